package feed

import (
	"bytes"
	"encoding/json"
	"fmt"
)

var jsonNull = []byte("null")

// BlurbKind 标识 MarketingBlurb 实际携带的形态。
type BlurbKind int

const (
	BlurbAbsent BlurbKind = iota
	BlurbText
	BlurbStructured
)

// MarketingBlurb 在 feed 中有时是字符串，有时是 {text, style} 对象。
type MarketingBlurb struct {
	Kind  BlurbKind
	Text  string
	Style string
}

type structuredBlurb struct {
	Text  string `json:"text"`
	Style string `json:"style"`
}

// UnmarshalJSON 依次尝试 null → 字符串 → 对象。
func (b *MarketingBlurb) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, jsonNull) {
		*b = MarketingBlurb{Kind: BlurbAbsent}
		return nil
	}

	var text string
	if err := json.Unmarshal(trimmed, &text); err == nil {
		*b = MarketingBlurb{Kind: BlurbText, Text: text}
		return nil
	}

	var structured structuredBlurb
	if err := json.Unmarshal(trimmed, &structured); err == nil {
		*b = MarketingBlurb{Kind: BlurbStructured, Text: structured.Text, Style: structured.Style}
		return nil
	}

	return fmt.Errorf("marketing-blurb: unsupported value %s", abbreviate(trimmed))
}

// MarshalJSON 按原始形态回写。
func (b MarketingBlurb) MarshalJSON() ([]byte, error) {
	switch b.Kind {
	case BlurbText:
		return json.Marshal(b.Text)
	case BlurbStructured:
		return json.Marshal(structuredBlurb{Text: b.Text, Style: b.Style})
	default:
		return jsonNull, nil
	}
}

// Publisher 是条目的发行商信息。
type Publisher struct {
	Name string  `json:"publisher-name"`
	URI  *string `json:"publisher-uri"`
}

// Publishers 在 feed 中可能为 null、列表或单个对象。
type Publishers struct {
	Present bool
	List    []Publisher
}

// UnmarshalJSON 依次尝试 null → 列表 → 单个对象。
func (p *Publishers) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, jsonNull) {
		*p = Publishers{}
		return nil
	}

	var list []Publisher
	if err := json.Unmarshal(trimmed, &list); err == nil {
		*p = Publishers{Present: true, List: list}
		return nil
	}

	var single Publisher
	if err := json.Unmarshal(trimmed, &single); err == nil && trimmed[0] == '{' {
		*p = Publishers{Present: true, List: []Publisher{single}}
		return nil
	}

	return fmt.Errorf("publishers: unsupported value %s", abbreviate(trimmed))
}

// MarshalJSON 缺失时写 null，否则写列表。
func (p Publishers) MarshalJSON() ([]byte, error) {
	if !p.Present {
		return jsonNull, nil
	}
	if p.List == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(p.List)
}

// Names 返回所有发行商名称。
func (p Publishers) Names() []string {
	names := make([]string, 0, len(p.List))
	for _, pub := range p.List {
		names = append(names, pub.Name)
	}
	return names
}

func abbreviate(raw []byte) string {
	const limit = 64
	if len(raw) <= limit {
		return string(raw)
	}
	return string(raw[:limit]) + "..."
}
