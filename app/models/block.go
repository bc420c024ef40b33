package models

import (
	"github.com/goccy/go-json"
)

// BlockKind is the closed set of rich-text body elements the renderer knows.
type BlockKind int

const (
	// KindUnknown is any block type the renderer has no case for.
	KindUnknown BlockKind = iota
	// KindText is a paragraph, heading, quote or list item.
	KindText
	// KindImage is an inline image.
	KindImage
)

// Block is one element of a rich-text body.
type Block struct {
	Kind     BlockKind
	Type     string
	Key      string
	Style    string
	ListItem string
	Level    int
	Children []Span
	MarkDefs []MarkDef
	Image    Image
	Alt      string
	raw      json.RawMessage
}

// Span is a run of text with decorator and annotation marks.
type Span struct {
	Type  string   `json:"_type,omitempty"`
	Key   string   `json:"_key,omitempty"`
	Text  string   `json:"text"`
	Marks []string `json:"marks,omitempty"`
}

// MarkDef defines an annotation referenced from span marks by key.
type MarkDef struct {
	Key  string `json:"_key"`
	Type string `json:"_type"`
	Href string `json:"href,omitempty"`
}

type blockWire struct {
	Type     string     `json:"_type"`
	Key      string     `json:"_key,omitempty"`
	Style    string     `json:"style,omitempty"`
	ListItem string     `json:"listItem,omitempty"`
	Level    int        `json:"level,omitempty"`
	Children []Span     `json:"children,omitempty"`
	MarkDefs []MarkDef  `json:"markDefs,omitempty"`
	Asset    *Reference `json:"asset,omitempty"`
	Alt      string     `json:"alt,omitempty"`
}

// UnmarshalJSON classifies the block by its _type.
func (b *Block) UnmarshalJSON(data []byte) error {
	var w blockWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*b = Block{
		Type:     w.Type,
		Key:      w.Key,
		Style:    w.Style,
		ListItem: w.ListItem,
		Level:    w.Level,
		Children: w.Children,
		MarkDefs: w.MarkDefs,
		Alt:      w.Alt,
	}
	switch w.Type {
	case "block":
		b.Kind = KindText
		if b.Style == "" {
			b.Style = "normal"
		}
	case "image":
		b.Kind = KindImage
		if w.Asset != nil {
			b.Image = Image{Type: "image", Asset: *w.Asset}
		}
	default:
		b.Kind = KindUnknown
		b.raw = append(json.RawMessage(nil), data...)
	}
	return nil
}

// MarshalJSON writes the block back in its wire shape.
func (b Block) MarshalJSON() ([]byte, error) {
	switch b.Kind {
	case KindText:
		return json.Marshal(blockWire{
			Type:     "block",
			Key:      b.Key,
			Style:    b.Style,
			ListItem: b.ListItem,
			Level:    b.Level,
			Children: b.Children,
			MarkDefs: b.MarkDefs,
		})
	case KindImage:
		asset := b.Image.Asset
		return json.Marshal(blockWire{Type: "image", Key: b.Key, Asset: &asset, Alt: b.Alt})
	default:
		if len(b.raw) > 0 {
			return b.raw, nil
		}
		return json.Marshal(blockWire{Type: b.Type, Key: b.Key})
	}
}

// PlainText concatenates the text of all spans.
func (b *Block) PlainText() string {
	var s string
	for _, span := range b.Children {
		s += span.Text
	}
	return s
}

// Href resolves an annotation mark key to its link target.
func (b *Block) Href(mark string) (string, bool) {
	for _, def := range b.MarkDefs {
		if def.Key == mark && def.Type == "link" {
			return def.Href, true
		}
	}
	return "", false
}
