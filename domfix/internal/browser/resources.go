// CLAUDE:SUMMARY Blocks configured resource types (images, fonts, media, stylesheets) on Rod pages.
package browser

import (
	"strings"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// applyResourceBlocking intercepts requests and fails those of blocked
// resource types.
func applyResourceBlocking(page *rod.Page, types []string) {
	blocked := blockSet(types)
	router := page.HijackRequests()
	router.MustAdd("*", func(h *rod.Hijack) {
		if blocked[strings.ToLower(string(h.Request.Type()))] {
			h.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
			return
		}
		h.ContinueRequest(&proto.FetchContinueRequest{})
	})
	go router.Run()
}

// blockSet normalises config names (plural or CDP singular) to CDP resource
// type names.
func blockSet(types []string) map[string]bool {
	set := make(map[string]bool, len(types))
	for _, t := range types {
		t = strings.ToLower(strings.TrimSpace(t))
		switch t {
		case "images":
			t = "image"
		case "fonts":
			t = "font"
		case "stylesheets":
			t = "stylesheet"
		}
		set[t] = true
	}
	return set
}
