// Package validate turns raw model text into a schema-conformant extraction
// or a structured parse failure. All optional-key defaulting happens in one
// normalization step so downstream code never probes loose maps.
package validate

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/sells-group/submission-intake/internal/model"
)

// Validated is the successfully parsed and normalized model output.
type Validated struct {
	Fields          model.ExtractedFields
	FieldConfidence map[string]model.FieldConfidence
	Citations       map[string][]model.Citation
}

// ParseFailure reports model output that could not be salvaged into a
// schema-conformant object. RawText is preserved for offline debugging.
type ParseFailure struct {
	RawText string
	Reason  string
}

func (f *ParseFailure) Error() string {
	return "validate: " + f.Reason
}

// responseSchema constrains the shape of the model's top-level keys. Extra
// keys are tolerated; every declared key is optional but must carry the
// declared type when present. Confidence bounds are not enforced here;
// out-of-range scores are clamped, not rejected.
var responseSchema = mustCompile(map[string]any{
	"type": "object",
	"properties": map[string]any{
		"broker_name":                map[string]any{"type": []string{"string", "null"}},
		"broker_email":               map[string]any{"type": []string{"string", "null"}},
		"brokerage":                  map[string]any{"type": []string{"string", "null"}},
		"complete_brokerage_address": map[string]any{"type": []string{"string", "null"}},
		"property_addresses": map[string]any{
			"type":  []string{"array", "null"},
			"items": map[string]any{"type": "string"},
		},
		"field_confidence": map[string]any{"type": []string{"object", "null"}},
		"citations":        map[string]any{"type": []string{"object", "null"}},
	},
})

func mustCompile(schemaMap map[string]any) *jsonschema.Schema {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		panic(err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("extraction.json", bytes.NewReader(b)); err != nil {
		panic(err)
	}
	return compiler.MustCompile("extraction.json")
}

// Validate parses raw model text. The primary path expects a single JSON
// object; if that fails, the first balanced {...} substring is salvaged and
// re-parsed strictly. Anything else is a ParseFailure.
func Validate(raw string) (*Validated, *ParseFailure) {
	candidate := stripFences(raw)

	var parsed map[string]any
	if err := json.Unmarshal([]byte(candidate), &parsed); err != nil {
		salvaged, ok := firstObject(candidate)
		if !ok {
			return nil, &ParseFailure{RawText: raw, Reason: "no balanced JSON object in model output"}
		}
		if err := json.Unmarshal([]byte(salvaged), &parsed); err != nil {
			return nil, &ParseFailure{RawText: raw, Reason: "salvaged object is not valid JSON: " + err.Error()}
		}
	}

	if err := responseSchema.Validate(any(parsed)); err != nil {
		return nil, &ParseFailure{RawText: raw, Reason: "schema violation: " + err.Error()}
	}

	return normalize(parsed), nil
}

// stripFences removes a markdown code fence wrapping, if present.
func stripFences(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	} else if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}
	return strings.TrimSpace(text)
}

// firstObject scans for the first balanced {...} substring, honoring JSON
// string literals and escapes. An unbalanced or truncated object reports
// not-found rather than a best guess.
func firstObject(text string) (string, bool) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1], true
			}
		}
	}
	return "", false
}
