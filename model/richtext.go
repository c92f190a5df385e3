package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"strings"

	"github.com/yf-river/LifeOS/helper"
)

// RichText is a structured rich-text document stored as JSONB.
// The editor tree is made of nodes with a "type", an optional "text" and
// optional child nodes under "content".
type RichText map[string]interface{}

// Value implements the driver.Valuer interface for database storage
func (r RichText) Value() (driver.Value, error) {
	if r == nil {
		return nil, nil
	}
	return json.Marshal(r)
}

// Scan implements the sql.Scanner interface for database retrieval
func (r *RichText) Scan(value interface{}) error {
	if value == nil {
		*r = nil
		return nil
	}

	var b []byte
	switch v := value.(type) {
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return helper.NewError("byte assertion", errors.New("type assertion to []byte failed"))
	}

	if len(b) == 0 || string(b) == "null" {
		*r = nil
		return nil
	}

	return json.Unmarshal(b, r)
}

// PlainText flattens the document to plain text.
func (r RichText) PlainText() string {
	return ExtractPlainText(r)
}

// ExtractPlainText collects the text of every "text" node in document order,
// joined by a single space.
func ExtractPlainText(doc map[string]interface{}) string {
	if len(doc) == 0 {
		return ""
	}

	var texts []string
	var walk func(node map[string]interface{})
	walk = func(node map[string]interface{}) {
		if t, _ := node["type"].(string); t == "text" {
			if text, _ := node["text"].(string); text != "" {
				texts = append(texts, text)
			}
		}

		children, ok := node["content"].([]interface{})
		if !ok {
			return
		}
		for _, child := range children {
			if c, ok := child.(map[string]interface{}); ok {
				walk(c)
			}
		}
	}
	walk(doc)

	return strings.Join(texts, " ")
}
