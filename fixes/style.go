package fixes

import (
	"fmt"

	"github.com/hazyhaar/domfix/domfix/dom"
	"github.com/hazyhaar/domfix/domfix/rule"
	"github.com/hazyhaar/domfix/wallet"
)

// StyleSpec is a declarative style rule from configuration.
type StyleSpec struct {
	ID           string     `yaml:"id"`
	Screens      []string   `yaml:"screens"`
	Selector     string     `yaml:"selector"`
	Declarations []dom.Decl `yaml:"declarations"`
}

// StyleRule compiles a StyleSpec. Without screens the rule applies
// everywhere.
func StyleRule(spec StyleSpec) (rule.Rule, error) {
	if spec.ID == "" || spec.Selector == "" || len(spec.Declarations) == 0 {
		return rule.Rule{}, fmt.Errorf("fixes: style %q: %w: id, selector and declarations are required", spec.ID, rule.ErrInvalidRule)
	}
	if _, err := dom.Compile(spec.Selector); err != nil {
		return rule.Rule{}, fmt.Errorf("fixes: style %s: %w", spec.ID, err)
	}
	screens := spec.Screens
	if len(screens) == 0 {
		screens = []string{rule.AnyScreen}
	}
	decls := append([]dom.Decl(nil), spec.Declarations...)
	return rule.Rule{
		ID:       spec.ID,
		Selector: spec.Selector,
		Screens:  screens,
		Apply: func(el *dom.Element) error {
			el.SetStyles(decls...)
			return nil
		},
	}, nil
}

func transactionRowStyle() rule.Rule {
	return rule.Rule{
		ID:       RuleTransactionRow,
		Selector: ".transaction-item",
		Screens:  []string{wallet.ScreenWallet, wallet.ScreenTokenDetail},
		Apply: func(el *dom.Element) error {
			el.SetStyles(
				dom.D("display", "flex"),
				dom.D("justify-content", "space-between"),
				dom.D("padding", "10px 16px"),
				dom.D("border-bottom", "1px solid #eef0f3"),
			)
			amount := el.QuerySelector(".transaction-amount")
			if amount == nil {
				return nil
			}
			switch {
			case el.HasClass("incoming"):
				amount.SetStyle("color", colorUp)
			case el.HasClass("outgoing"):
				amount.SetStyle("color", colorDown)
			}
			return nil
		},
	}
}

func walletHeaderStyle() rule.Rule {
	return rule.Rule{
		ID:       RuleWalletHeader,
		Selector: ".wallet-header",
		Screens:  []string{wallet.ScreenWallet},
		Apply: func(el *dom.Element) error {
			el.SetStyles(
				dom.D("display", "flex"),
				dom.D("flex-direction", "column"),
				dom.D("align-items", "center"),
				dom.D("padding", "24px 16px"),
			)
			if bal := el.QuerySelector(".wallet-balance"); bal != nil {
				bal.SetStyles(dom.D("font-size", "32px"), dom.D("font-weight", "700"))
			}
			return nil
		},
	}
}
