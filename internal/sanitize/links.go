package sanitize

// links.go extracts cloud-storage links from HTML-polluted text. Candidate
// URLs are gathered in two passes (href attribute values first, then raw
// text) so a well-formed anchor wins over a URL fragment in prose. Malformed
// exports sometimes nest one URL inside another; extraction always scopes to
// the innermost URL before pulling the identifier out.

import (
	"html"
	"regexp"
	"strings"

	xhtml "golang.org/x/net/html"
)

// StorageLink is a recognized cloud-storage reference.
type StorageLink struct {
	URL    string
	ID     string
	Folder bool
}

var (
	urlRegex  = regexp.MustCompile(`https?://[^\s"'<>\\]+`)
	hrefRegex = regexp.MustCompile(`https?://(?:drive|docs)\.google\.com/[^\s"'<>\\]*`)

	// Identifier segment after the classifying path component. At least 10
	// characters of [A-Za-z0-9_-] filters out truncated and garbage IDs.
	driveIDRegex = regexp.MustCompile(`^[A-Za-z0-9_-]{10,}$`)

	// documentURLRegex independently matches generic upload-host file URLs,
	// used as a resume-document fallback when no drive link resolves.
	documentURLRegex = regexp.MustCompile(`https?://[^\s"'<>\\]+\.(?:pdf|docx?|rtf|odt)\b`)
)

// ExtractStorageLink finds the first valid cloud-storage link in s. Href
// values are scanned before raw text; the first candidate with a valid
// identifier wins.
func ExtractStorageLink(s string) (StorageLink, bool) {
	for _, candidate := range candidateURLs(s) {
		if link, ok := classifyStorageURL(candidate); ok {
			return link, true
		}
	}
	return StorageLink{}, false
}

// ExtractDocumentURL finds a generic uploaded-document URL (PDF or word
// processor file) in s. It is a fallback for resume documents hosted outside
// the recognized storage providers.
func ExtractDocumentURL(s string) (string, bool) {
	decoded := html.UnescapeString(s)
	for _, pass := range []string{strings.Join(hrefValues(decoded), "\n"), decoded} {
		if m := documentURLRegex.FindString(pass); m != "" {
			return innermostURL(m), true
		}
	}
	return "", false
}

// candidateURLs returns storage-provider URLs found in s: all href attribute
// values first, then matches over the raw text.
func candidateURLs(s string) []string {
	decoded := html.UnescapeString(s)

	var candidates []string
	for _, href := range hrefValues(decoded) {
		candidates = append(candidates, hrefRegex.FindAllString(href, -1)...)
	}
	candidates = append(candidates, hrefRegex.FindAllString(decoded, -1)...)

	seen := make(map[string]bool, len(candidates))
	out := candidates[:0]
	for _, c := range candidates {
		c = innermostURL(c)
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	return out
}

// hrefValues collects href attribute values from anchor tags.
func hrefValues(s string) []string {
	z := xhtml.NewTokenizer(strings.NewReader(s))
	var hrefs []string
	for {
		tt := z.Next()
		if tt == xhtml.ErrorToken {
			return hrefs
		}
		if tt != xhtml.StartTagToken && tt != xhtml.SelfClosingTagToken {
			continue
		}
		tok := z.Token()
		if tok.Data != "a" {
			continue
		}
		for _, attr := range tok.Attr {
			if attr.Key == "href" && attr.Val != "" {
				hrefs = append(hrefs, attr.Val)
			}
		}
	}
}

// innermostURL returns the last URL when one URL is pasted inside another
// (doubled links from broken exports).
func innermostURL(s string) string {
	if idx := strings.LastIndex(s, "http://"); idx > 0 {
		return s[idx:]
	}
	if idx := strings.LastIndex(s, "https://"); idx > 0 {
		return s[idx:]
	}
	return s
}

// classifyStorageURL decides folder vs file by path segment and validates
// the embedded identifier.
func classifyStorageURL(raw string) (StorageLink, bool) {
	path := raw
	if idx := strings.Index(path, "://"); idx >= 0 {
		path = path[idx+3:]
	}
	path = strings.TrimSuffix(path, "/")

	segments := strings.Split(path, "/")
	for i, seg := range segments {
		if idx := strings.IndexAny(seg, "?#"); idx >= 0 {
			seg = seg[:idx]
		}
		switch seg {
		case "folders":
			if id, ok := idSegment(segments, i+1); ok {
				return StorageLink{URL: raw, ID: id, Folder: true}, true
			}
		case "d":
			if id, ok := idSegment(segments, i+1); ok {
				return StorageLink{URL: raw, ID: id, Folder: false}, true
			}
		case "open":
			if id, ok := queryID(raw); ok {
				return StorageLink{URL: raw, ID: id, Folder: false}, true
			}
		}
	}
	return StorageLink{}, false
}

// idSegment validates the path segment after a classifying component.
func idSegment(segments []string, i int) (string, bool) {
	if i >= len(segments) {
		return "", false
	}
	seg := segments[i]
	if idx := strings.IndexAny(seg, "?#"); idx >= 0 {
		seg = seg[:idx]
	}
	if driveIDRegex.MatchString(seg) {
		return seg, true
	}
	return "", false
}

// queryID pulls the id query parameter from open?id=... style URLs.
func queryID(raw string) (string, bool) {
	idx := strings.Index(raw, "id=")
	if idx < 0 {
		return "", false
	}
	id := raw[idx+3:]
	if amp := strings.IndexAny(id, "&#"); amp >= 0 {
		id = id[:amp]
	}
	if driveIDRegex.MatchString(id) {
		return id, true
	}
	return "", false
}
