package quiz

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

// OptionsKind tags the stored shape of a question's options.
type OptionsKind int

const (
	KindMalformed OptionsKind = iota
	KindStrings
	KindObjects
)

func (k OptionsKind) String() string {
	switch k {
	case KindStrings:
		return "strings"
	case KindObjects:
		return "objects"
	default:
		return "malformed"
	}
}

// OptionObject is an option stored with its correctness embedded.
type OptionObject struct {
	ID        string `json:"id,omitempty"`
	Text      string `json:"text"`
	IsCorrect bool   `json:"isCorrect"`
}

// UnmarshalJSON accepts both isCorrect and is_correct.
func (o *OptionObject) UnmarshalJSON(data []byte) error {
	var v struct {
		ID          string `json:"id"`
		Text        string `json:"text"`
		IsCorrect   *bool  `json:"isCorrect"`
		IsCorrectSC *bool  `json:"is_correct"`
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	o.ID, o.Text = v.ID, v.Text
	switch {
	case v.IsCorrect != nil:
		o.IsCorrect = *v.IsCorrect
	case v.IsCorrectSC != nil:
		o.IsCorrect = *v.IsCorrectSC
	}
	return nil
}

// RawOptions is the tagged union of stored option shapes. Raw keeps the
// original payload for display when the shape is not recognised.
type RawOptions struct {
	Kind    OptionsKind
	Strings []string
	Objects []OptionObject
	Raw     string
}

var (
	stringListSchema = mustSchema(`{
		"type": "array",
		"items": {"type": "string"}
	}`)
	objectListSchema = mustSchema(`{
		"type": "array",
		"items": {
			"type": "object",
			"required": ["text"],
			"properties": {
				"id": {"type": "string"},
				"text": {"type": "string"},
				"isCorrect": {"type": "boolean"},
				"is_correct": {"type": "boolean"}
			}
		}
	}`)
)

func mustSchema(src string) *gojsonschema.Schema {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(src))
	if err != nil {
		panic(fmt.Sprintf("compile options schema: %v", err))
	}
	return s
}

// ParseRawOptions classifies a stored options payload. A JSON string whose
// content is itself JSON is decoded once. It never fails: anything that is
// neither a string list nor an object list is KindMalformed.
func ParseRawOptions(raw []byte) RawOptions {
	return parseRawOptions(bytes.TrimSpace(raw), true)
}

func parseRawOptions(raw []byte, unwrap bool) RawOptions {
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return RawOptions{Kind: KindMalformed}
	}
	malformed := RawOptions{Kind: KindMalformed, Raw: string(raw)}

	if raw[0] == '"' {
		var inner string
		if err := json.Unmarshal(raw, &inner); err != nil {
			return malformed
		}
		if !unwrap {
			return RawOptions{Kind: KindMalformed, Raw: inner}
		}
		res := parseRawOptions(bytes.TrimSpace([]byte(inner)), false)
		if res.Kind == KindMalformed {
			res.Raw = inner
		}
		return res
	}

	// An empty list offers nothing to choose and is shown as malformed.
	if matches(stringListSchema, raw) {
		var list []string
		if err := json.Unmarshal(raw, &list); err == nil && len(list) > 0 {
			return RawOptions{Kind: KindStrings, Strings: list, Raw: string(raw)}
		}
	}
	if matches(objectListSchema, raw) {
		var list []OptionObject
		if err := json.Unmarshal(raw, &list); err == nil && len(list) > 0 {
			return RawOptions{Kind: KindObjects, Objects: list, Raw: string(raw)}
		}
	}
	return malformed
}

func matches(schema *gojsonschema.Schema, raw []byte) bool {
	res, err := schema.Validate(gojsonschema.NewBytesLoader(raw))
	return err == nil && res.Valid()
}

// JSON returns the payload in storable form. Unrecognised payloads are
// stored as a JSON string; an absent payload is nil.
func (o RawOptions) JSON() []byte {
	var (
		data []byte
		err  error
	)
	switch {
	case o.Kind != KindMalformed && o.Raw != "":
		return []byte(o.Raw)
	case o.Kind == KindStrings:
		data, err = json.Marshal(o.Strings)
	case o.Kind == KindObjects:
		data, err = json.Marshal(o.Objects)
	case o.Raw == "":
		return nil
	default:
		data, err = json.Marshal(o.Raw)
	}
	if err != nil {
		return nil
	}
	return data
}
