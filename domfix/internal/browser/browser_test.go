package browser

import (
	"context"
	"errors"
	"testing"
)

func TestBlockSet(t *testing.T) {
	set := blockSet([]string{"Images", "font", " media ", "stylesheets"})
	for _, typ := range []string{"image", "font", "media", "stylesheet"} {
		if !set[typ] {
			t.Errorf("blockSet: %q not blocked", typ)
		}
	}
	if set["document"] || set["script"] {
		t.Error("blockSet: unexpected type blocked")
	}
}

func TestClosedManager(t *testing.T) {
	m := NewManager(Config{})
	if err := m.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := m.Start(context.Background()); !errors.Is(err, ErrClosed) {
		t.Errorf("Start after Close: got %v, want ErrClosed", err)
	}
	if m.Browser() != nil {
		t.Error("Browser after Close: want nil")
	}
}

func TestOpenTabWithoutBrowser(t *testing.T) {
	if _, err := OpenTab(context.Background(), NewManager(Config{}), "about:blank"); err == nil {
		t.Error("OpenTab without Start: want error")
	}
}
