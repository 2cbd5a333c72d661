package textutil

import (
	"html"
	"regexp"
	"strings"

	"github.com/russross/blackfriday/v2"
)

// Flatten renders any markdown formatting in model output down to plain text.
// Models occasionally decorate their answers with emphasis, code fences, or
// bullets even when asked for bare strings.
func Flatten(text string) string {
	if text == "" {
		return ""
	}

	rendered := string(blackfriday.Run([]byte(text), blackfriday.WithExtensions(blackfriday.CommonExtensions)))

	return cleanHTML(rendered)
}

var (
	tagPattern    = regexp.MustCompile(`</?[a-zA-Z][^>]*>`)
	blankPattern  = regexp.MustCompile(`\n{3,}`)
	spacesPattern = regexp.MustCompile(`[ \t]+`)
)

// cleanHTML strips the HTML produced by blackfriday, keeping list bullets and
// paragraph breaks readable.
func cleanHTML(rendered string) string {
	rendered = strings.ReplaceAll(rendered, "</p>", "\n")
	rendered = strings.ReplaceAll(rendered, "<li>", "• ")
	rendered = strings.ReplaceAll(rendered, "</li>", "\n")
	rendered = strings.ReplaceAll(rendered, "<br>", "\n")
	rendered = strings.ReplaceAll(rendered, "<br/>", "\n")

	text := tagPattern.ReplaceAllString(rendered, "")
	text = html.UnescapeString(text)
	text = blankPattern.ReplaceAllString(text, "\n\n")
	text = spacesPattern.ReplaceAllString(text, " ")

	return strings.TrimSpace(text)
}
