package normalisers

import (
	"encoding/json"
	"regexp"
	"sort"
	"strings"

	"golang.org/x/net/html"
)

// PlaintextNormaliser handles plain text content.
type PlaintextNormaliser struct{}

func (n *PlaintextNormaliser) Normalise(content string, mimeType string) string {
	return cleanText(content)
}

func (n *PlaintextNormaliser) SupportedTypes() []string {
	return []string{"text/plain", "text/*"}
}

func (n *PlaintextNormaliser) Priority() int {
	return 10
}

var (
	mdFence    = regexp.MustCompile("(?m)^[ \\t]*(```|~~~).*$")
	mdHeading  = regexp.MustCompile(`(?m)^[ \t]{0,3}#{1,6}[ \t]+`)
	mdQuote    = regexp.MustCompile(`(?m)^[ \t]{0,3}>[ \t]?`)
	mdImage    = regexp.MustCompile(`!\[([^\]]*)\]\([^)]*\)`)
	mdLink     = regexp.MustCompile(`\[([^\]]+)\]\([^)]*\)`)
	mdEmphasis = regexp.MustCompile(`(\*\*|__|\*|_|~~|` + "`" + `)([^*_~` + "`" + `\n]+)(\*\*|__|\*|_|~~|` + "`" + `)`)
)

// MarkdownNormaliser handles Markdown content.
type MarkdownNormaliser struct{}

func (n *MarkdownNormaliser) Normalise(content string, mimeType string) string {
	content = mdFence.ReplaceAllString(content, "")
	content = mdHeading.ReplaceAllString(content, "")
	content = mdQuote.ReplaceAllString(content, "")
	content = mdImage.ReplaceAllString(content, "$1")
	content = mdLink.ReplaceAllString(content, "$1")
	content = mdEmphasis.ReplaceAllString(content, "$2")
	return cleanText(content)
}

func (n *MarkdownNormaliser) SupportedTypes() []string {
	return []string{"text/markdown", "text/x-markdown", "markdown/*"}
}

func (n *MarkdownNormaliser) Priority() int {
	return 50
}

// HTMLNormaliser extracts the visible text of an HTML document.
type HTMLNormaliser struct{}

func (n *HTMLNormaliser) Normalise(content string, mimeType string) string {
	doc, err := html.Parse(strings.NewReader(content))
	if err != nil {
		return cleanText(content)
	}

	var b strings.Builder
	var walker func(*html.Node)
	walker = func(node *html.Node) {
		if node.Type == html.ElementNode {
			switch node.Data {
			case "script", "style", "noscript", "head", "template":
				return
			}
		}
		if node.Type == html.TextNode {
			b.WriteString(node.Data)
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walker(c)
		}
		if node.Type == html.ElementNode && isBlockElement(node.Data) {
			b.WriteByte('\n')
		}
	}
	walker(doc)

	return cleanText(b.String())
}

func (n *HTMLNormaliser) SupportedTypes() []string {
	return []string{"text/html", "application/xhtml+xml", "html/*", "xhtml/*"}
}

func (n *HTMLNormaliser) Priority() int {
	return 50
}

func isBlockElement(tag string) bool {
	switch tag {
	case "p", "div", "br", "li", "tr", "h1", "h2", "h3", "h4", "h5", "h6",
		"pre", "blockquote", "section", "article", "table", "ul", "ol", "dd", "dt":
		return true
	}
	return false
}

// JSONNormaliser indexes the string values of a JSON document, one per line.
type JSONNormaliser struct{}

func (n *JSONNormaliser) Normalise(content string, mimeType string) string {
	var v any
	if err := json.Unmarshal([]byte(content), &v); err != nil {
		return cleanText(content)
	}
	var lines []string
	collectJSONStrings(v, &lines)
	return strings.Join(lines, "\n")
}

func (n *JSONNormaliser) SupportedTypes() []string {
	return []string{"application/json", "application/ld+json", "text/json"}
}

func (n *JSONNormaliser) Priority() int {
	return 50
}

func collectJSONStrings(v any, out *[]string) {
	switch t := v.(type) {
	case string:
		if s := strings.TrimSpace(t); s != "" {
			*out = append(*out, s)
		}
	case []any:
		for _, e := range t {
			collectJSONStrings(e, out)
		}
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			collectJSONStrings(t[k], out)
		}
	}
}

var (
	wikiMacroBlock = regexp.MustCompile(`(?s)\{\{(code|html|velocity|groovy|python)\b[^}]*\}\}.*?\{\{/(code|html|velocity|groovy|python)\}\}`)
	wikiMacro      = regexp.MustCompile(`\{\{/?[^}]*\}\}`)
	wikiImage      = regexp.MustCompile(`\[\[image:[^\]]*\]\]`)
	wikiLabelLink  = regexp.MustCompile(`\[\[([^\]>]+)>>[^\]]*\]\]`)
	wikiLink       = regexp.MustCompile(`\[\[([^\]]+)\]\]`)
	wikiHeading    = regexp.MustCompile(`(?m)^[ \t]*=+[ \t]*(.*?)[ \t]*=*[ \t]*$`)
	wikiParams     = regexp.MustCompile(`\(%[^%]*%\)`)
	wikiFormat     = regexp.MustCompile(`(\*\*|//|__|--|##|\^\^|,,)(.+?)(\*\*|//|__|--|##|\^\^|,,)`)
	wikiTable      = regexp.MustCompile(`\|=?`)
)

// WikiSyntaxNormaliser strips wiki markup: macros, links, headings and
// inline formatting. Content of script and raw HTML macros is dropped.
type WikiSyntaxNormaliser struct{}

func (n *WikiSyntaxNormaliser) Normalise(content string, mimeType string) string {
	content = wikiMacroBlock.ReplaceAllString(content, "")
	content = wikiMacro.ReplaceAllString(content, "")
	content = wikiImage.ReplaceAllString(content, "")
	content = wikiLabelLink.ReplaceAllString(content, "$1")
	content = wikiLink.ReplaceAllString(content, "$1")
	content = wikiHeading.ReplaceAllString(content, "$1")
	content = wikiParams.ReplaceAllString(content, "")
	content = wikiFormat.ReplaceAllString(content, "$2")
	content = wikiTable.ReplaceAllString(content, " ")
	return cleanText(content)
}

func (n *WikiSyntaxNormaliser) SupportedTypes() []string {
	return []string{"xwiki/*", "confluence/*", "mediawiki/*"}
}

func (n *WikiSyntaxNormaliser) Priority() int {
	return 60
}

// cleanText normalises line endings, collapses runs of spaces and blank
// lines, and trims the result.
func cleanText(content string) string {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = strings.ReplaceAll(content, "\r", "\n")

	lines := strings.Split(content, "\n")
	out := make([]string, 0, len(lines))
	blank := false
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line == "" {
			if !blank && len(out) > 0 {
				out = append(out, "")
			}
			blank = true
			continue
		}
		blank = false
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
