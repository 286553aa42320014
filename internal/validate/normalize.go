package validate

import (
	"strings"

	"github.com/sells-group/submission-intake/internal/model"
)

// normalize defaults every optional key and coerces loose value shapes into
// the typed result. This is the single place the raw map is probed.
func normalize(m map[string]any) *Validated {
	v := &Validated{
		FieldConfidence: make(map[string]model.FieldConfidence),
		Citations:       make(map[string][]model.Citation),
	}

	v.Fields.BrokerName = stringOrNil(m[model.FieldBrokerName])
	v.Fields.BrokerEmail = stringOrNil(m[model.FieldBrokerEmail])
	v.Fields.Brokerage = stringOrNil(m[model.FieldBrokerage])
	v.Fields.CompleteBrokerageAddress = stringOrNil(m[model.FieldBrokerageAddress])
	v.Fields.PropertyAddresses = DedupAddresses(stringSlice(m[model.FieldPropertyAddresses]))

	confRaw, _ := m["field_confidence"].(map[string]any)
	for _, field := range model.ScalarFields {
		v.FieldConfidence[field] = confidenceFor(confRaw[field], nil)
	}
	v.FieldConfidence[model.FieldPropertyAddresses] = confidenceFor(
		confRaw[model.FieldPropertyAddresses], v.Fields.PropertyAddresses)

	if citRaw, ok := m["citations"].(map[string]any); ok {
		for field, entries := range citRaw {
			for _, e := range anySlice(entries) {
				em, ok := e.(map[string]any)
				if !ok {
					continue
				}
				c := model.Citation{
					Source:  stringValue(em["source"]),
					Snippet: stringValue(em["snippet"]),
					Match:   stringValue(em["match"]),
				}
				if c.Source == "" {
					continue
				}
				v.Citations[field] = append(v.Citations[field], c)
			}
		}
	}

	return v
}

// DedupAddresses removes duplicate addresses by case-insensitive,
// whitespace-collapsed equality, preserving first-seen order and the casing
// of the first occurrence.
func DedupAddresses(addrs []string) []string {
	out := make([]string, 0, len(addrs))
	seen := make(map[string]bool, len(addrs))
	for _, a := range addrs {
		a = strings.TrimSpace(a)
		if a == "" {
			continue
		}
		key := AddressKey(a)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, a)
	}
	return out
}

// AddressKey is the dedup/alignment key for an address: lowercased with all
// whitespace runs collapsed to single spaces.
func AddressKey(a string) string {
	return strings.ToLower(strings.Join(strings.Fields(a), " "))
}

// confidenceFor coerces one field_confidence entry, clamping scores into
// [0,1]. For the address field, per_address entries are aligned to the
// deduplicated address list; entries matching no final address are dropped.
func confidenceFor(raw any, addresses []string) model.FieldConfidence {
	fc := model.FieldConfidence{}
	cm, ok := raw.(map[string]any)
	if !ok {
		return fc
	}
	fc.Score = clamp01(floatValue(cm["score"]))
	fc.Explanation = stringValue(cm["explanation"])

	if addresses == nil {
		return fc
	}

	byKey := make(map[string]model.AddressConfidence)
	for _, e := range anySlice(cm["per_address"]) {
		em, ok := e.(map[string]any)
		if !ok {
			continue
		}
		addr := stringValue(em["address"])
		if addr == "" {
			continue
		}
		byKey[AddressKey(addr)] = model.AddressConfidence{
			Address:     addr,
			Score:       clamp01(floatValue(em["score"])),
			Explanation: stringValue(em["explanation"]),
		}
	}
	for _, addr := range addresses {
		if ac, ok := byKey[AddressKey(addr)]; ok {
			ac.Address = addr
			fc.PerAddress = append(fc.PerAddress, ac)
		}
	}
	return fc
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

func stringOrNil(v any) *string {
	s, ok := v.(string)
	if !ok {
		return nil
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func stringValue(v any) string {
	s, _ := v.(string)
	return strings.TrimSpace(s)
}

func floatValue(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	default:
		return 0
	}
}

func stringSlice(v any) []string {
	var out []string
	for _, e := range anySlice(v) {
		if s, ok := e.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func anySlice(v any) []any {
	s, _ := v.([]any)
	return s
}
