package fixes

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/hazyhaar/domfix/domfix/dom"
	"github.com/hazyhaar/domfix/domfix/rule"
	"github.com/hazyhaar/domfix/wallet"
)

const (
	colorUp   = "#16c784"
	colorDown = "#ea3943"
)

func tokenRowLayout() rule.Rule {
	return rule.Rule{
		ID:       RuleTokenRowLayout,
		Selector: ".token-item",
		Screens:  []string{wallet.ScreenWallet},
		Apply: func(el *dom.Element) error {
			el.SetStyles(
				dom.D("display", "flex"),
				dom.D("align-items", "center"),
				dom.D("gap", "12px"),
				dom.D("padding", "12px 16px"),
				dom.D("cursor", "pointer"),
			)
			return nil
		},
	}
}

// BadgeURL validates a chain badge reference. It accepts http(s) URLs,
// image data URIs and relative paths without whitespace.
func BadgeURL(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.ContainsAny(raw, " \t\n<>\"") {
		return "", false
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", false
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		if u.Host == "" {
			return "", false
		}
	case "data":
		if !strings.HasPrefix(strings.ToLower(u.Opaque), "image/") {
			return "", false
		}
	case "":
		if u.Path == "" {
			return "", false
		}
	default:
		return "", false
	}
	return raw, true
}

func badgeAnchor(row *dom.Element) *dom.Element {
	if icon := row.QuerySelector(".token-icon"); icon != nil {
		return icon
	}
	return row
}

func networkBadge(wc *wallet.Context) rule.Rule {
	return rule.Rule{
		ID:       RuleNetworkBadge,
		Selector: ".token-item",
		Screens:  []string{wallet.ScreenWallet},
		AppliesWhen: func(el *dom.Element) bool {
			tok, ok := tokenFor(wc, el)
			if !ok || !tok.ShowChainBadge {
				return false
			}
			if _, ok := BadgeURL(tok.ChainBadge); !ok {
				return false
			}
			return el.QuerySelector("img.chain-badge") == nil
		},
		Apply: func(el *dom.Element) error {
			tok, _ := tokenFor(wc, el)
			src, _ := BadgeURL(tok.ChainBadge)
			img := owned(el.Document(), "img", RuleNetworkBadge)
			img.SetAttr("class", "chain-badge")
			img.SetAttr("src", src)
			img.SetAttr("alt", tok.Network)
			img.SetStyles(dom.D("width", "16px"), dom.D("height", "16px"))
			return badgeAnchor(el).AppendChild(img)
		},
	}
}

func networkBadgeStyle() rule.Rule {
	return rule.Rule{
		ID:       RuleNetworkBadgeStyle,
		Selector: "img.chain-badge",
		Screens:  []string{wallet.ScreenWallet},
		Apply: func(el *dom.Element) error {
			el.SetStyles(
				dom.D("position", "absolute"),
				dom.D("right", "-2px"),
				dom.D("bottom", "-2px"),
				dom.D("width", "16px"),
				dom.D("height", "16px"),
				dom.D("border-radius", "50%"),
				dom.D("border", "2px solid #ffffff"),
				dom.D("background", "#ffffff"),
			)
			// The badge is positioned against its anchor, icon or row.
			if row := el.Closest(".token-item"); row != nil {
				if p := el.Parent(); p != nil && p.Same(badgeAnchor(row)) {
					p.SetStyle("position", "relative")
				}
			}
			return nil
		},
	}
}

// numericValue reads data-value, falling back to fallback when absent.
func numericValue(el *dom.Element, fallback func() (float64, bool)) (float64, bool) {
	if raw, ok := el.Attr("data-value"); ok {
		v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		return v, err == nil
	}
	return fallback()
}

func tokenPriceFormat(wc *wallet.Context) rule.Rule {
	value := func(el *dom.Element) (float64, bool) {
		return numericValue(el, func() (float64, bool) {
			tok, ok := tokenFor(wc, el)
			return tok.Price, ok
		})
	}
	return rule.Rule{
		ID:       RuleTokenPriceFormat,
		Selector: ".token-price",
		Screens:  []string{wallet.ScreenWallet, wallet.ScreenTokenDetail},
		AppliesWhen: func(el *dom.Element) bool {
			_, ok := value(el)
			return ok
		},
		Apply: func(el *dom.Element) error {
			v, ok := value(el)
			if !ok {
				return fmt.Errorf("price of %s vanished", el.XPath())
			}
			el.SetText(wc.FormatCurrency(v))
			return nil
		},
	}
}

func tokenChangeColor(wc *wallet.Context) rule.Rule {
	value := func(el *dom.Element) (float64, bool) {
		return numericValue(el, func() (float64, bool) {
			tok, ok := tokenFor(wc, el)
			return tok.Change24h, ok
		})
	}
	return rule.Rule{
		ID:       RuleTokenChangeColor,
		Selector: ".token-change",
		Screens:  []string{wallet.ScreenWallet, wallet.ScreenTokenDetail},
		AppliesWhen: func(el *dom.Element) bool {
			_, ok := value(el)
			return ok
		},
		Apply: func(el *dom.Element) error {
			v, ok := value(el)
			if !ok {
				return fmt.Errorf("change of %s vanished", el.XPath())
			}
			color := colorUp
			if v < 0 {
				color = colorDown
			}
			el.SetStyle("color", color)
			el.SetText(wallet.FormatPercent(v))
			return nil
		},
	}
}
