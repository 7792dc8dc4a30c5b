package wallet

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

const demoJSON = `{
  "wallets": {
    "main": {
      "name": "Main",
      "tokens": [
        {"id": "eth", "symbol": "ETH", "name": "Ethereum", "network": "Ethereum", "price": 3000, "balance": 2, "change24h": 1.5, "stakeable": true},
        {"id": "usdt-trc", "symbol": "USDT", "name": "Tether", "network": "Tron", "chainBadge": "https://cdn.example/tron.png", "showChainBadge": true, "price": 1, "balance": 250.5, "change24h": -0.02}
      ]
    }
  }
}`

func TestParseData(t *testing.T) {
	d, err := ParseData([]byte(demoJSON))
	if err != nil {
		t.Fatal(err)
	}
	if d.Active != "main" {
		t.Errorf("Active: got %q, want main", d.Active)
	}
	w := d.Wallets["main"]
	if w.ID != "main" || len(w.Tokens) != 2 {
		t.Fatalf("wallet: %+v", w)
	}
	tok, ok := w.Token("usdt-trc")
	if !ok || !tok.ShowChainBadge || tok.ChainBadge != "https://cdn.example/tron.png" {
		t.Errorf("token: %+v", tok)
	}
	if got := w.Total(); got != 6250.5 {
		t.Errorf("Total: got %v, want 6250.5", got)
	}
}

func TestParseDataInvalid(t *testing.T) {
	if _, err := ParseData([]byte(`{"wallets": [`)); err == nil {
		t.Error("ParseData: want error for truncated JSON")
	}
}

func TestFormatCurrency(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{1234.5, "$1,234.50"},
		{0, "$0.00"},
		{0.004, "$0.00"},
		{1000000, "$1,000,000.00"},
		{-42.1, "-$42.10"},
	}
	for _, tt := range tests {
		if got := FormatCurrency(tt.in); got != tt.want {
			t.Errorf("FormatCurrency(%v): got %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatPercent(t *testing.T) {
	if got := FormatPercent(1.5); got != "+1.50%" {
		t.Errorf("FormatPercent(1.5): got %q", got)
	}
	if got := FormatPercent(-0.02); got != "-0.02%" {
		t.Errorf("FormatPercent(-0.02): got %q", got)
	}
}

func TestContextFormatterOverride(t *testing.T) {
	c := NewContext(WithFormatter(FormatterFunc(func(v float64) string { return "EUR" })))
	if got := c.FormatCurrency(1); got != "EUR" {
		t.Errorf("FormatCurrency: got %q, want host formatter", got)
	}
	if got := NewContext().FormatCurrency(1); got != "$1.00" {
		t.Errorf("fallback: got %q", got)
	}
}

func TestDispatch(t *testing.T) {
	d, err := ParseData([]byte(demoJSON))
	if err != nil {
		t.Fatal(err)
	}
	app := NewApp(ScreenTokenDetail)
	c := NewContext(WithData(d), WithHost(app))

	if err := c.Dispatch(ActionSend, "eth"); err != nil {
		t.Fatalf("send: %v", err)
	}
	if err := c.Dispatch(ActionReceive, "usdt-trc"); err != nil {
		t.Fatalf("receive: %v", err)
	}
	if err := c.Dispatch("swap", "eth"); !errors.Is(err, ErrUnknownAction) {
		t.Errorf("swap: got %v, want ErrUnknownAction", err)
	}
	if err := c.Dispatch(ActionSend, "doge"); !errors.Is(err, ErrUnknownToken) {
		t.Errorf("unknown token: got %v, want ErrUnknownToken", err)
	}

	if diff := cmp.Diff([]string{"send:eth", "receive:usdt-trc"}, app.Calls()); diff != "" {
		t.Errorf("calls mismatch (-want +got):\n%s", diff)
	}
	if len(app.Toasts()) != 2 {
		t.Errorf("toasts: got %v, want 2", app.Toasts())
	}
	if app.Current() != ScreenReceive {
		t.Errorf("Current: got %q, want receive", app.Current())
	}

	if err := NewContext().Dispatch(ActionSend, "eth"); !errors.Is(err, ErrNoHost) {
		t.Errorf("no host: got %v, want ErrNoHost", err)
	}
}

func TestAppListeners(t *testing.T) {
	app := NewApp(ScreenWallet)
	var seen []string
	var rendered []string
	app.Render = func(to string) { rendered = append(rendered, to) }
	unsub := app.OnNavigate(func(from, to string) { seen = append(seen, from+">"+to) })

	app.NavigateTo(ScreenTokenDetail)
	unsub()
	app.NavigateTo(ScreenWallet)

	if diff := cmp.Diff([]string{"wallet>token-detail"}, seen); diff != "" {
		t.Errorf("listener mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{ScreenTokenDetail, ScreenWallet}, rendered); diff != "" {
		t.Errorf("render mismatch (-want +got):\n%s", diff)
	}
}
