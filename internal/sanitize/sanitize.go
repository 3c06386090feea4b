// Package sanitize cleans HTML-polluted free text coming out of spreadsheet
// exports. It is a stateless module of pure functions: one pair of strip
// modes for note-style fields, and link extractors for cloud-storage URLs
// embedded in that text.
package sanitize

import (
	"html"
	"strings"

	xhtml "golang.org/x/net/html"
)

// Strip decodes HTML entities, removes all tags, and collapses whitespace
// runs to single spaces.
func Strip(s string) string {
	if s == "" {
		return ""
	}
	text := tokenizeText(html.UnescapeString(s), false)
	return strings.Join(strings.Fields(text), " ")
}

// StripPreservingLinks removes markup like Strip but keeps anchor URLs in
// the output: <a href="URL">text</a> becomes "URL text", or just "URL" when
// the link text duplicates the URL. <br>, <p>, and <div> boundaries become
// newlines so paragraph structure survives for downstream readers.
func StripPreservingLinks(s string) string {
	if s == "" {
		return ""
	}
	text := tokenizeText(html.UnescapeString(s), true)
	return collapseLines(text)
}

// tokenizeText walks the HTML token stream collecting text content. With
// preserveLinks set, anchors are rewritten in place and block boundaries
// emit newlines.
func tokenizeText(s string, preserveLinks bool) string {
	z := xhtml.NewTokenizer(strings.NewReader(s))

	var out strings.Builder
	var anchorHref string
	var anchorText strings.Builder
	inAnchor := false

	flushAnchor := func() {
		text := strings.TrimSpace(anchorText.String())
		href := strings.TrimSpace(anchorHref)
		switch {
		case href == "":
			out.WriteString(text)
		case text == "" || text == href:
			out.WriteString(href)
		default:
			out.WriteString(href + " " + text)
		}
		inAnchor = false
		anchorHref = ""
		anchorText.Reset()
	}

	for {
		tt := z.Next()
		if tt == xhtml.ErrorToken {
			if inAnchor {
				flushAnchor()
			}
			return out.String()
		}

		tok := z.Token()
		switch tt {
		case xhtml.TextToken:
			if inAnchor {
				anchorText.WriteString(tok.Data)
			} else {
				out.WriteString(tok.Data)
			}

		case xhtml.StartTagToken, xhtml.SelfClosingTagToken:
			if !preserveLinks {
				out.WriteString(" ")
				continue
			}
			switch tok.Data {
			case "a":
				if inAnchor {
					flushAnchor()
				}
				inAnchor = true
				for _, attr := range tok.Attr {
					if attr.Key == "href" {
						anchorHref = attr.Val
						break
					}
				}
			case "br", "p", "div":
				out.WriteString("\n")
			default:
				out.WriteString(" ")
			}

		case xhtml.EndTagToken:
			if preserveLinks {
				switch tok.Data {
				case "a":
					if inAnchor {
						flushAnchor()
					}
				case "p", "div":
					out.WriteString("\n")
				default:
					out.WriteString(" ")
				}
			} else {
				out.WriteString(" ")
			}
		}
	}
}

// collapseLines trims each line, squeezes internal whitespace, and drops
// runs of blank lines while keeping single newlines intact.
func collapseLines(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line == "" {
			continue
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}
