// Package wallet is the host side the fixes read from and call into: wallet
// and token records, the active screen, host callbacks and the currency
// formatter, gathered in one explicit Context instead of page globals.
package wallet

import (
	"encoding/json"
	"fmt"
	"os"
)

// Token is one token record as the host renders it.
type Token struct {
	ID             string  `json:"id"`
	Symbol         string  `json:"symbol"`
	Name           string  `json:"name"`
	Network        string  `json:"network"`
	ChainBadge     string  `json:"chainBadge,omitempty"`
	ShowChainBadge bool    `json:"showChainBadge,omitempty"`
	Price          float64 `json:"price"`
	Change24h      float64 `json:"change24h"`
	Balance        float64 `json:"balance"`
	Stakeable      bool    `json:"stakeable,omitempty"`
}

// Value returns the fiat value of the balance.
func (t Token) Value() float64 { return t.Price * t.Balance }

// Wallet holds tokens in display order.
type Wallet struct {
	ID     string  `json:"id"`
	Name   string  `json:"name,omitempty"`
	Tokens []Token `json:"tokens"`
}

// Token returns the token with the given ID.
func (w *Wallet) Token(id string) (Token, bool) {
	for _, t := range w.Tokens {
		if t.ID == id {
			return t, true
		}
	}
	return Token{}, false
}

// Total returns the summed fiat value of every token.
func (w *Wallet) Total() float64 {
	var sum float64
	for _, t := range w.Tokens {
		sum += t.Value()
	}
	return sum
}

// Data is the serialised form of the host's wallet state.
type Data struct {
	Active  string             `json:"active"`
	Wallets map[string]*Wallet `json:"wallets"`
}

// ParseData decodes wallet state from JSON. Wallet IDs default to their map
// key.
func ParseData(raw []byte) (*Data, error) {
	var d Data
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, fmt.Errorf("wallet: parse data: %w", err)
	}
	for id, w := range d.Wallets {
		if w == nil {
			delete(d.Wallets, id)
			continue
		}
		if w.ID == "" {
			w.ID = id
		}
	}
	if d.Active == "" && len(d.Wallets) == 1 {
		for id := range d.Wallets {
			d.Active = id
		}
	}
	return &d, nil
}

// LoadData reads wallet state from a JSON file.
func LoadData(path string) (*Data, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("wallet: read %s: %w", path, err)
	}
	return ParseData(raw)
}
