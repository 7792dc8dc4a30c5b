// Package fixes holds the wallet UI rules: token row layout, network badge
// synthesis, price and change formatting, token detail actions, the staking
// banner, transaction and header styling, plus declarative style rules
// loaded from configuration.
package fixes

import (
	"fmt"

	"github.com/hazyhaar/domfix/domfix/dom"
	"github.com/hazyhaar/domfix/domfix/rule"
	"github.com/hazyhaar/domfix/wallet"
)

// Rule IDs, in registration order.
const (
	RuleTokenRowLayout     = "token-row-layout"
	RuleNetworkBadge       = "token-network-badge"
	RuleNetworkBadgeStyle  = "token-network-badge-style"
	RuleTokenPriceFormat   = "token-price-format"
	RuleTokenChangeColor   = "token-change-color"
	RuleTokenDetailActions = "token-detail-actions"
	RuleStakingBanner      = "staking-banner"
	RuleTransactionRow     = "transaction-row-style"
	RuleWalletHeader       = "wallet-header-style"
)

// ActionAttr carries the action name on synthesized buttons.
const ActionAttr = "data-fx-action"

// TokenAttr carries the token ID on token rows, the detail screen and
// synthesized buttons.
const TokenAttr = "data-token-id"

// Options configures the configurable rules.
type Options struct {
	Staking Staking     `yaml:"staking"`
	Styles  []StyleSpec `yaml:"styles"`
}

// DefaultScreens describes the wallet application's screens.
func DefaultScreens() []rule.ScreenDescriptor {
	return []rule.ScreenDescriptor{
		{ScreenID: wallet.ScreenWallet, Root: "#wallet-screen"},
		{ScreenID: wallet.ScreenTokenDetail, Root: "#token-detail-screen"},
		{ScreenID: wallet.ScreenSend, Root: "#send-screen"},
		{ScreenID: wallet.ScreenReceive, Root: "#receive-screen"},
		{ScreenID: wallet.ScreenSettings, Root: "#settings-screen"},
	}
}

// Rules builds the built-in rules followed by the configured style rules.
func Rules(wc *wallet.Context, opts Options) ([]rule.Rule, error) {
	rules := []rule.Rule{
		tokenRowLayout(),
		networkBadge(wc),
		networkBadgeStyle(),
		tokenPriceFormat(wc),
		tokenChangeColor(wc),
		tokenDetailActions(wc),
		stakingBanner(wc, opts.Staking),
		transactionRowStyle(),
		walletHeaderStyle(),
	}
	for _, spec := range opts.Styles {
		rl, err := StyleRule(spec)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rl)
	}
	return rules, nil
}

// Register adds every rule to reg, in order. It stops at the first error,
// which is a *rule.DuplicateRuleError when a configured style reuses an ID.
func Register(reg *rule.Registry, wc *wallet.Context, opts Options) error {
	rules, err := Rules(wc, opts)
	if err != nil {
		return err
	}
	for _, rl := range rules {
		if err := reg.Register(rl); err != nil {
			return fmt.Errorf("fixes: register: %w", err)
		}
	}
	return nil
}

// ActionOf reads the action and token of a synthesized button.
func ActionOf(el *dom.Element) (action, tokenID string, ok bool) {
	btn := el.Closest("[" + ActionAttr + "]")
	if btn == nil {
		return "", "", false
	}
	return btn.GetAttr(ActionAttr), btn.GetAttr(TokenAttr), true
}

// tokenFor resolves the token of the nearest element carrying TokenAttr.
func tokenFor(wc *wallet.Context, el *dom.Element) (wallet.Token, bool) {
	holder := el.Closest("[" + TokenAttr + "]")
	if holder == nil {
		return wallet.Token{}, false
	}
	return wc.Token(holder.GetAttr(TokenAttr))
}

// owned creates a detached element tagged as inserted by ruleID.
func owned(doc *dom.Document, tag, ruleID string) *dom.Element {
	el := doc.CreateElement(tag)
	el.SetAttr(dom.OwnerAttr, ruleID)
	return el
}
