package extract

import (
	"html"
	"strings"

	"stubborn-archivist/internal/models"
)

// Markup the dictionary site renders extracted fields in.
const (
	titleClass   = "dictionary-detail-title"
	detailsClass = "dictionary-details"
)

// ParsePage pulls the title headings and the details block out of a page
// body. Fields the page does not carry come back empty; the caller decides
// whether an all-empty payload counts as a failure.
func ParsePage(body []byte) models.PageContent {
	doc := string(body)
	return models.PageContent{
		H1:      elementText(doc, "h1", titleClass),
		H2:      elementText(doc, "h2", titleClass),
		Content: elementText(doc, "div", detailsClass),
	}
}

// elementText returns the flattened text of the first <tag class="...cls...">
// element, or "" if the document has none.
func elementText(doc, tag, cls string) string {
	inner, ok := innerHTML(doc, tag, cls)
	if !ok {
		return ""
	}
	return collapseWhitespace(html.UnescapeString(stripTags(inner)))
}

// innerHTML finds the first element of tag whose class attribute contains
// cls and returns its inner markup. Nested elements of the same tag are
// tracked by depth so the matching close tag is found.
func innerHTML(doc, tag, cls string) (string, bool) {
	lower := strings.ToLower(doc)
	open := "<" + tag
	pos := 0
	for {
		i := strings.Index(lower[pos:], open)
		if i < 0 {
			return "", false
		}
		i += pos
		end := strings.IndexByte(lower[i:], '>')
		if end < 0 {
			return "", false
		}
		end += i
		if hasClass(doc[i:end], cls) {
			return sliceToClose(doc, lower, tag, end+1)
		}
		pos = end + 1
	}
}

// sliceToClose returns doc[start:] up to the close tag matching an already
// consumed open tag, counting same-tag nesting.
func sliceToClose(doc, lower, tag string, start int) (string, bool) {
	open := "<" + tag
	closing := "</" + tag
	depth := 1
	pos := start
	for depth > 0 {
		nextOpen := strings.Index(lower[pos:], open)
		nextClose := strings.Index(lower[pos:], closing)
		if nextClose < 0 {
			return "", false
		}
		if nextOpen >= 0 && nextOpen < nextClose {
			depth++
			pos += nextOpen + len(open)
			continue
		}
		depth--
		if depth == 0 {
			return doc[start : pos+nextClose], true
		}
		pos += nextClose + len(closing)
	}
	return "", false
}

// hasClass reports whether an open-tag snippet carries cls as one of the
// whitespace-separated tokens of its class attribute.
func hasClass(openTag, cls string) bool {
	lower := strings.ToLower(openTag)
	i := strings.Index(lower, "class=")
	if i < 0 {
		return false
	}
	rest := openTag[i+len("class="):]
	if rest == "" {
		return false
	}
	var value string
	if rest[0] == '"' || rest[0] == '\'' {
		quote := rest[0]
		end := strings.IndexByte(rest[1:], quote)
		if end < 0 {
			return false
		}
		value = rest[1 : 1+end]
	} else {
		value = rest
		if end := strings.IndexAny(value, " \t\n>"); end >= 0 {
			value = value[:end]
		}
	}
	for _, token := range strings.Fields(value) {
		if token == cls {
			return true
		}
	}
	return false
}

// inlineTags render inside the flow of text. Removing one must not split
// the surrounding run: "of <b>language</b>." flattens to "of language.".
var inlineTags = map[string]bool{
	"a": true, "abbr": true, "b": true, "code": true, "em": true,
	"i": true, "mark": true, "small": true, "span": true, "strong": true,
	"sub": true, "sup": true, "u": true,
}

// stripTags removes markup. Block-level tags become a space so adjacent text
// runs don't fuse together; inline tags are dropped without one.
func stripTags(markup string) string {
	var b strings.Builder
	i := 0
	for i < len(markup) {
		if markup[i] != '<' {
			b.WriteByte(markup[i])
			i++
			continue
		}
		end := strings.IndexByte(markup[i:], '>')
		if end < 0 {
			break
		}
		if !inlineTags[tagName(markup[i+1:i+end])] {
			b.WriteByte(' ')
		}
		i += end + 1
	}
	return b.String()
}

// tagName returns the lowercase element name from the inside of a tag,
// dropping the leading slash of a close tag.
func tagName(tag string) string {
	tag = strings.TrimPrefix(tag, "/")
	end := 0
	for end < len(tag) {
		c := tag[end]
		if c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '/' {
			break
		}
		end++
	}
	return strings.ToLower(tag[:end])
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
