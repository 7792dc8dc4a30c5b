package domfix

import (
	"fmt"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
)

var mdConverter = converter.NewConverter(
	converter.WithPlugins(
		base.NewBasePlugin(),
		commonmark.NewCommonmarkPlugin(),
		table.NewTablePlugin(),
	),
)

// Digest renders a screen's HTML as markdown: a compact view of what the
// user sees, badges included as images.
func Digest(html string) (string, error) {
	md, err := mdConverter.ConvertString(html)
	if err != nil {
		return "", fmt.Errorf("domfix: digest: %w", err)
	}
	return strings.TrimSpace(md), nil
}
