package model

// Status is the terminal state of one extraction.
type Status string

const (
	StatusOk      Status = "ok"
	StatusSkipped Status = "skipped"
	StatusError   Status = "error"
)

// Field keys of the extraction schema.
const (
	FieldBrokerName        = "broker_name"
	FieldBrokerEmail       = "broker_email"
	FieldBrokerage         = "brokerage"
	FieldBrokerageAddress  = "complete_brokerage_address"
	FieldPropertyAddresses = "property_addresses"
)

// ScalarFields lists the single-valued fields in schema order.
var ScalarFields = []string{
	FieldBrokerName,
	FieldBrokerEmail,
	FieldBrokerage,
	FieldBrokerageAddress,
}

// ExtractedFields is the schema-conformant payload recovered from the model.
type ExtractedFields struct {
	BrokerName               *string  `json:"broker_name"`
	BrokerEmail              *string  `json:"broker_email"`
	Brokerage                *string  `json:"brokerage"`
	CompleteBrokerageAddress *string  `json:"complete_brokerage_address"`
	PropertyAddresses        []string `json:"property_addresses"`
}

// Scalars maps each scalar field key to its value pointer, in schema order.
func (f *ExtractedFields) Scalars() map[string]*string {
	return map[string]*string{
		FieldBrokerName:       f.BrokerName,
		FieldBrokerEmail:      f.BrokerEmail,
		FieldBrokerage:        f.Brokerage,
		FieldBrokerageAddress: f.CompleteBrokerageAddress,
	}
}

// AddressConfidence scores one entry of property_addresses, aligned to it
// by exact string match.
type AddressConfidence struct {
	Address     string  `json:"address"`
	Score       float64 `json:"score"`
	Explanation string  `json:"explanation,omitempty"`
}

// FieldConfidence is the model's self-reported confidence for one field.
type FieldConfidence struct {
	Score       float64             `json:"score"`
	Explanation string              `json:"explanation,omitempty"`
	PerAddress  []AddressConfidence `json:"per_address,omitempty"`
}

// Citation is model-asserted evidence for a field value.
type Citation struct {
	Source  string `json:"source"`
	Snippet string `json:"snippet"`
	Match   string `json:"match,omitempty"`
}

// ProvenanceEntry is system-verified-or-searched evidence shown to the
// reviewer. Page is nil for non-paginated sources and citation-adopted
// entries. Verified reports whether Match was found in the named document.
type ProvenanceEntry struct {
	Doc      string  `json:"doc"`
	Page     *int    `json:"page"`
	Snippet  string  `json:"snippet"`
	Match    *string `json:"match"`
	Verified bool    `json:"verified"`
}

// Usage carries token accounting passed through from the model gateway.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ExtractionResult is the outcome of one extract call.
type ExtractionResult struct {
	Status          Status                       `json:"status"`
	Data            *ExtractedFields             `json:"data"`
	FieldConfidence map[string]FieldConfidence   `json:"field_confidence,omitempty"`
	Citations       map[string][]Citation        `json:"citations,omitempty"`
	Provenance      map[string][]ProvenanceEntry `json:"provenance,omitempty"`
	Message         string                       `json:"message,omitempty"`
	Cached          bool                         `json:"cached"`
	Model           string                       `json:"model,omitempty"`
	Usage           *Usage                       `json:"usage,omitempty"`
	LatencyMS       float64                      `json:"latency_ms,omitempty"`
}

// Clone deep-copies the result so cache reads can flip the Cached flag
// without touching the stored entry.
func (r *ExtractionResult) Clone() *ExtractionResult {
	out := *r
	if r.Data != nil {
		data := *r.Data
		data.BrokerName = cloneStr(r.Data.BrokerName)
		data.BrokerEmail = cloneStr(r.Data.BrokerEmail)
		data.Brokerage = cloneStr(r.Data.Brokerage)
		data.CompleteBrokerageAddress = cloneStr(r.Data.CompleteBrokerageAddress)
		data.PropertyAddresses = append([]string(nil), r.Data.PropertyAddresses...)
		out.Data = &data
	}
	if r.FieldConfidence != nil {
		out.FieldConfidence = make(map[string]FieldConfidence, len(r.FieldConfidence))
		for k, v := range r.FieldConfidence {
			v.PerAddress = append([]AddressConfidence(nil), v.PerAddress...)
			out.FieldConfidence[k] = v
		}
	}
	if r.Citations != nil {
		out.Citations = make(map[string][]Citation, len(r.Citations))
		for k, v := range r.Citations {
			out.Citations[k] = append([]Citation(nil), v...)
		}
	}
	if r.Provenance != nil {
		out.Provenance = make(map[string][]ProvenanceEntry, len(r.Provenance))
		for k, v := range r.Provenance {
			entries := make([]ProvenanceEntry, len(v))
			for i, e := range v {
				if e.Page != nil {
					page := *e.Page
					e.Page = &page
				}
				e.Match = cloneStr(e.Match)
				entries[i] = e
			}
			out.Provenance[k] = entries
		}
	}
	if r.Usage != nil {
		usage := *r.Usage
		out.Usage = &usage
	}
	return &out
}

func cloneStr(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
