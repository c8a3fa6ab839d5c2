// Package sanitize turns mail bodies and user-provided text into plain text.
package sanitize

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

var (
	// htmlTagRegex matches HTML tags left over in already-decoded text
	htmlTagRegex   = regexp.MustCompile(`<[^>]*>`)
	blankRunsRegex = regexp.MustCompile(`\n{3,}`)
	spaceRunsRegex = regexp.MustCompile(`[ \t\f\v]+`)
)

var blockElements = map[string]bool{
	"p": true, "div": true, "br": true, "tr": true, "li": true, "table": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
}

// StripHTML renders an HTML fragment as plain text. Block elements become
// line breaks and script or style contents are dropped.
func StripHTML(s string) string {
	if !strings.Contains(s, "<") {
		return normalizeSpace(html.UnescapeString(s))
	}
	tokenizer := html.NewTokenizer(strings.NewReader(s))
	var b strings.Builder
	skip := 0
	for {
		tt := tokenizer.Next()
		switch tt {
		case html.ErrorToken:
			return normalizeSpace(htmlTagRegex.ReplaceAllString(b.String(), ""))
		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := tokenizer.TagName()
			tag := string(name)
			if tag == "script" || tag == "style" {
				if tt == html.StartTagToken {
					skip++
				}
				continue
			}
			if blockElements[tag] {
				b.WriteByte('\n')
			}
		case html.EndTagToken:
			name, _ := tokenizer.TagName()
			tag := string(name)
			if (tag == "script" || tag == "style") && skip > 0 {
				skip--
				continue
			}
			if blockElements[tag] {
				b.WriteByte('\n')
			}
		case html.TextToken:
			if skip == 0 {
				b.Write(tokenizer.Text())
			}
		}
	}
}

// NewlinesToBreaks converts a plain-text body into the HTML form sent by the mailbox.
func NewlinesToBreaks(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\n", "<br>")
}

func normalizeSpace(s string) string {
	s = strings.ReplaceAll(s, "\u00a0", " ")
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(spaceRunsRegex.ReplaceAllString(line, " "))
	}
	out := strings.Join(lines, "\n")
	out = blankRunsRegex.ReplaceAllString(out, "\n\n")
	return strings.TrimSpace(out)
}
