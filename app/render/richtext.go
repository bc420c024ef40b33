package render

import (
	"html/template"
	"net/url"
	"strings"

	"inkwell/app/cms"
	"inkwell/app/models"
)

var styleTags = map[string]string{
	"normal":     "p",
	"h1":         "h1",
	"h2":         "h2",
	"h3":         "h3",
	"h4":         "h4",
	"h5":         "h5",
	"h6":         "h6",
	"blockquote": "blockquote",
}

var decoratorTags = map[string]string{
	"strong":         "strong",
	"em":             "em",
	"code":           "code",
	"underline":      "u",
	"strike-through": "s",
}

// RichText renders a body. Consecutive list items are grouped into one
// list; block kinds without a renderer become an invisible comment.
func RichText(blocks []models.Block, images cms.ImageURLBuilder) template.HTML {
	var b strings.Builder
	openList := ""
	for i := range blocks {
		blk := &blocks[i]

		list := listTag(blk)
		if list != openList {
			if openList != "" {
				b.WriteString("</" + openList + ">")
			}
			if list != "" {
				b.WriteString("<" + list + ">")
			}
			openList = list
		}

		switch blk.Kind {
		case models.KindText:
			writeText(&b, blk)
		case models.KindImage:
			writeImage(&b, blk, images)
		default:
			b.WriteString("<!-- unsupported block: " + commentSafe(blk.Type) + " -->")
		}
	}
	if openList != "" {
		b.WriteString("</" + openList + ">")
	}
	return template.HTML(b.String())
}

func listTag(blk *models.Block) string {
	if blk.Kind != models.KindText {
		return ""
	}
	switch blk.ListItem {
	case "bullet":
		return "ul"
	case "number":
		return "ol"
	}
	return ""
}

func writeText(b *strings.Builder, blk *models.Block) {
	tag := "li"
	if blk.ListItem == "" {
		var ok bool
		if tag, ok = styleTags[blk.Style]; !ok {
			tag = "p"
		}
	}
	b.WriteString("<" + tag + ">")
	for _, span := range blk.Children {
		writeSpan(b, blk, span)
	}
	b.WriteString("</" + tag + ">")
}

func writeSpan(b *strings.Builder, blk *models.Block, span models.Span) {
	var closers []string
	for _, mark := range span.Marks {
		if tag, ok := decoratorTags[mark]; ok {
			b.WriteString("<" + tag + ">")
			closers = append(closers, "</"+tag+">")
			continue
		}
		if href, ok := blk.Href(mark); ok {
			b.WriteString(`<a href="` + template.HTMLEscapeString(safeHref(href)) + `" rel="noopener">`)
			closers = append(closers, "</a>")
		}
	}
	b.WriteString(template.HTMLEscapeString(span.Text))
	for i := len(closers) - 1; i >= 0; i-- {
		b.WriteString(closers[i])
	}
}

func writeImage(b *strings.Builder, blk *models.Block, images cms.ImageURLBuilder) {
	src := images.URL(blk.Image, cms.Width(1200))
	if src == "" {
		return
	}
	b.WriteString(`<figure><img src="` + template.HTMLEscapeString(src) + `" alt="` + template.HTMLEscapeString(blk.Alt) + `"></figure>`)
}

// safeHref only lets through links a reader can follow safely.
func safeHref(href string) string {
	u, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return "#"
	}
	switch strings.ToLower(u.Scheme) {
	case "", "http", "https", "mailto":
		return u.String()
	}
	return "#"
}

func commentSafe(s string) string {
	s = template.HTMLEscapeString(s)
	for strings.Contains(s, "--") {
		s = strings.ReplaceAll(s, "--", "-")
	}
	return s
}
