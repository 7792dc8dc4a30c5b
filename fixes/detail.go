package fixes

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/hazyhaar/domfix/domfix/dom"
	"github.com/hazyhaar/domfix/domfix/rule"
	"github.com/hazyhaar/domfix/wallet"
)

// DefaultBannerHTML is used when no staking banner is configured.
// {{symbol}}, {{name}} and {{network}} are replaced with escaped token
// fields.
const DefaultBannerHTML = `<strong class="staking-title">Stake {{symbol}}</strong>` +
	`<span class="staking-text">Earn rewards on the {{network}} network.</span>`

// Staking configures the staking banner.
type Staking struct {
	// Networks whose tokens get the banner, in addition to tokens flagged
	// Stakeable.
	Networks   []string `yaml:"networks"`
	BannerHTML string   `yaml:"banner_html"`
}

func (s Staking) covers(tok wallet.Token) bool {
	if tok.Stakeable {
		return true
	}
	for _, n := range s.Networks {
		if strings.EqualFold(n, tok.Network) {
			return true
		}
	}
	return false
}

type action struct {
	name  string
	label string
	bg    string
}

var detailActions = []action{
	{wallet.ActionSend, "Send", "#3861fb"},
	{wallet.ActionReceive, "Receive", "#16c784"},
}

func tokenDetailActions(wc *wallet.Context) rule.Rule {
	return rule.Rule{
		ID:       RuleTokenDetailActions,
		Selector: ".token-detail-actions",
		Screens:  []string{wallet.ScreenTokenDetail},
		AppliesWhen: func(el *dom.Element) bool {
			_, ok := tokenFor(wc, el)
			return ok && el.QuerySelector("["+ActionAttr+"]") == nil
		},
		Apply: func(el *dom.Element) error {
			tok, _ := tokenFor(wc, el)
			el.SetStyles(dom.D("display", "flex"), dom.D("gap", "12px"), dom.D("margin", "16px 0"))
			for _, a := range detailActions {
				btn := owned(el.Document(), "button", RuleTokenDetailActions)
				btn.SetAttr("type", "button")
				btn.SetAttr("class", "action-btn "+a.name+"-btn")
				btn.SetAttr(ActionAttr, a.name)
				btn.SetAttr(TokenAttr, tok.ID)
				btn.SetStyles(
					dom.D("flex", "1"),
					dom.D("padding", "12px"),
					dom.D("border", "none"),
					dom.D("border-radius", "12px"),
					dom.D("background", a.bg),
					dom.D("color", "#ffffff"),
					dom.D("font-weight", "600"),
				)
				btn.SetText(a.label)
				if err := el.AppendChild(btn); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func stakingBanner(wc *wallet.Context, cfg Staking) rule.Rule {
	tmpl := cfg.BannerHTML
	if tmpl == "" {
		tmpl = DefaultBannerHTML
	}
	policy := bluemonday.UGCPolicy()

	return rule.Rule{
		ID:       RuleStakingBanner,
		Selector: ".token-detail-info",
		Screens:  []string{wallet.ScreenTokenDetail},
		AppliesWhen: func(el *dom.Element) bool {
			tok, ok := tokenFor(wc, el)
			return ok && cfg.covers(tok) && el.QuerySelector(".staking-banner") == nil
		},
		Apply: func(el *dom.Element) error {
			tok, _ := tokenFor(wc, el)
			body := strings.NewReplacer(
				"{{symbol}}", html.EscapeString(tok.Symbol),
				"{{name}}", html.EscapeString(tok.Name),
				"{{network}}", html.EscapeString(tok.Network),
			).Replace(tmpl)

			banner := owned(el.Document(), "div", RuleStakingBanner)
			banner.SetAttr("class", "staking-banner")
			banner.SetStyles(
				dom.D("display", "flex"),
				dom.D("flex-direction", "column"),
				dom.D("gap", "4px"),
				dom.D("margin-top", "16px"),
				dom.D("padding", "16px"),
				dom.D("border-radius", "12px"),
				dom.D("background", "linear-gradient(135deg, #3861fb, #7b3fe4)"),
				dom.D("color", "#ffffff"),
			)
			if _, err := banner.AppendHTML(policy.Sanitize(body)); err != nil {
				return err
			}
			return el.AppendChild(banner)
		},
	}
}
