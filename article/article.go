package article

import (
	"fmt"
	"html"
	"strings"

	"github.com/factiva-io/factiva-analytics-go/internal/request"
)

// Article is a single retrieved article shaped for display. Content keeps the
// raw attribute tree so callers can reach annotations the typed fields do not
// surface.
type Article struct {
	AN              string
	Headline        string
	SourceCode      string
	SourceName      string
	PublicationDate string
	WordCount       int

	Metadata      map[string]any
	Content       map[string]any
	Included      []any
	Relationships map[string]any
}

func parseArticle(resp *request.Response) (*Article, error) {
	var envelope struct {
		Data struct {
			ID            string         `json:"id"`
			Attributes    map[string]any `json:"attributes"`
			Meta          map[string]any `json:"meta"`
			Relationships map[string]any `json:"relationships"`
		} `json:"data"`
		Included []any `json:"included"`
	}
	if err := resp.Decode(&envelope); err != nil {
		return nil, err
	}
	if envelope.Data.ID == "" || envelope.Data.Attributes == nil || envelope.Data.Meta == nil {
		return nil, fmt.Errorf("unexpected article response structure")
	}

	a := &Article{
		AN:            strings.TrimPrefix(envelope.Data.ID, drnPrefix),
		Metadata:      envelope.Data.Meta,
		Content:       envelope.Data.Attributes,
		Included:      envelope.Included,
		Relationships: envelope.Data.Relationships,
	}

	a.Headline = richText(dig(envelope.Data.Attributes, "headline", "main"))
	a.PublicationDate, _ = envelope.Data.Attributes["publication_date"].(string)
	if sources, ok := envelope.Data.Attributes["sources"].([]any); ok && len(sources) > 0 {
		if source, ok := sources[0].(map[string]any); ok {
			a.SourceCode, _ = source["code"].(string)
			a.SourceName, _ = source["name"].(string)
		}
	}
	if count, ok := dig(envelope.Data.Meta, "metrics", "word_count").(float64); ok {
		a.WordCount = int(count)
	}
	return a, nil
}

// Text renders the article as plain text: headline, dateline, body
// paragraphs, copyright and the document identifier line.
func (a *Article) Text() string {
	var b strings.Builder
	b.WriteString(a.Headline)
	b.WriteString("\n\n")
	b.WriteString(a.dateline())
	b.WriteString("\n\n")
	for _, p := range a.paragraphs() {
		b.WriteString(p)
		b.WriteString("\n\n")
	}
	if copyright := richText(a.Content["copyright"]); copyright != "" {
		b.WriteString(copyright)
		b.WriteString("\n")
	}
	b.WriteString("Document identifier: ")
	b.WriteString(a.AN)
	b.WriteString("\n")
	return b.String()
}

// HTML renders the article as an HTML fragment.
func (a *Article) HTML() string {
	var b strings.Builder
	fmt.Fprintf(&b, "<h1>%s</h1>\n", html.EscapeString(a.Headline))
	fmt.Fprintf(&b, "<p class=\"dateline\">%s</p>\n", html.EscapeString(a.dateline()))
	for _, p := range a.paragraphs() {
		fmt.Fprintf(&b, "<p>%s</p>\n", html.EscapeString(p))
	}
	if copyright := richText(a.Content["copyright"]); copyright != "" {
		fmt.Fprintf(&b, "<p class=\"copyright\">%s</p>\n", html.EscapeString(copyright))
	}
	fmt.Fprintf(&b, "<p class=\"docid\">Document identifier: %s</p>\n", html.EscapeString(a.AN))
	return b.String()
}

func (a *Article) dateline() string {
	return fmt.Sprintf("%s, %s, %d words", a.SourceName, a.PublicationDate, a.WordCount)
}

// paragraphs flattens the first body block into one string per paragraph
// node.
func (a *Article) paragraphs() []string {
	body, ok := a.Content["body"].([]any)
	if !ok || len(body) == 0 {
		return nil
	}
	block, ok := body[0].(map[string]any)
	if !ok {
		return nil
	}
	nodes, ok := block["content"].([]any)
	if !ok {
		return nil
	}

	paras := make([]string, 0, len(nodes))
	for _, node := range nodes {
		if text := richText(node); text != "" {
			paras = append(paras, text)
		}
	}
	return paras
}

// dig walks nested maps by key, returning nil at the first miss.
func dig(m map[string]any, keys ...string) any {
	var current any = m
	for _, key := range keys {
		node, ok := current.(map[string]any)
		if !ok {
			return nil
		}
		current = node[key]
	}
	return current
}

// richText collects every text leaf under a rich-text node tree into one
// string, in document order.
func richText(node any) string {
	switch n := node.(type) {
	case string:
		return n
	case []any:
		var b strings.Builder
		for _, child := range n {
			b.WriteString(richText(child))
		}
		return b.String()
	case map[string]any:
		if text, ok := n["text"].(string); ok {
			return text
		}
		return richText(n["content"])
	}
	return ""
}

func (a *Article) String() string {
	return fmt.Sprintf("Article(an: %s, source: %s, date: %s, headline: %s)",
		a.AN, a.SourceCode, a.PublicationDate, a.Headline)
}
