// Package markdown turns run reports into standalone HTML pages.
package markdown

import (
	"fmt"
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/russross/blackfriday/v2"
)

// RenderToHTML converts markdown text to sanitized HTML. Report entries are
// built from command output, so everything goes through bluemonday.
func RenderToHTML(markdown string) string {
	unsafeHTML := blackfriday.Run(
		[]byte(markdown),
		blackfriday.WithExtensions(
			blackfriday.CommonExtensions|
				blackfriday.AutoHeadingIDs|
				blackfriday.HardLineBreak,
		),
	)

	policy := bluemonday.UGCPolicy()
	policy.AllowAttrs("class").Matching(bluemonday.SpaceSeparatedTokens).OnElements("code", "pre", "span", "section")
	policy.AllowAttrs("id").Matching(bluemonday.SpaceSeparatedTokens).OnElements("h1", "h2", "h3", "h4", "h5", "h6")

	return string(policy.SanitizeBytes(unsafeHTML))
}

// ReportMarkdown joins report entries into one markdown document. Entries
// are markdown themselves; a line inside an entry stays a line.
func ReportMarkdown(title string, entries []string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", title)
	if len(entries) == 0 {
		sb.WriteString("_No report entries._\n")
		return sb.String()
	}
	for i, entry := range entries {
		if i > 0 {
			sb.WriteString("\n---\n\n")
		}
		sb.WriteString(strings.TrimRight(entry, "\n"))
		sb.WriteString("\n")
	}
	return sb.String()
}

// ReportPage renders entries as a complete HTML document.
func ReportPage(title string, entries []string) string {
	body := RenderToHTML(ReportMarkdown(title, entries))
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>%s</title>
</head>
<body>
%s</body>
</html>
`, html.EscapeString(title), body)
}
