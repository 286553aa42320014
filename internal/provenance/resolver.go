// Package provenance grounds extracted field values in the source
// documents. Model-asserted citations are adopted when their source can be
// resolved; values without a verified citation fall back to a literal text
// search across every document.
package provenance

import (
	"strings"
	"unicode/utf8"

	"github.com/sells-group/submission-intake/internal/model"
	"github.com/sells-group/submission-intake/internal/validate"
)

const snippetContext = 80

// Resolver resolves provenance for one extraction result against the
// preprocessed documents it was derived from.
type Resolver struct{}

func New() *Resolver {
	return &Resolver{}
}

// Resolve returns per-field provenance entries. Citation adoption runs
// first; any field value with no verified citation is searched for directly
// in the documents. Fields with no evidence at all get an empty entry list.
func (r *Resolver) Resolve(
	fields *model.ExtractedFields,
	citations map[string][]model.Citation,
	docs []model.Document,
) map[string][]model.ProvenanceEntry {
	out := make(map[string][]model.ProvenanceEntry)

	for field, value := range fields.Scalars() {
		if value == nil {
			continue
		}
		out[field] = r.resolveValue(*value, citations[field], docs, nil)
	}
	if len(fields.PropertyAddresses) > 0 {
		var entries []model.ProvenanceEntry
		for _, addr := range fields.PropertyAddresses {
			entries = append(entries,
				r.resolveValue(addr, citations[model.FieldPropertyAddresses], docs, &addr)...)
		}
		out[model.FieldPropertyAddresses] = entries
	}
	return out
}

// resolveValue produces the entries for a single value. When forAddress is
// set, only citations whose match or snippet mentions that address are
// considered; each address in a multi-address field resolves independently.
func (r *Resolver) resolveValue(
	value string,
	cits []model.Citation,
	docs []model.Document,
	forAddress *string,
) []model.ProvenanceEntry {
	entries := make([]model.ProvenanceEntry, 0, 1)
	verified := false

	for _, c := range cits {
		if forAddress != nil && !citationMentions(c, *forAddress) {
			continue
		}
		doc := resolveSource(c.Source, docs)
		if doc == nil {
			continue
		}
		match := c.Match
		if match == "" {
			match = value
		}
		ok := containsFold(doc.FullText(), match)
		if ok {
			verified = true
		}
		m := match
		entries = append(entries, model.ProvenanceEntry{
			Doc:      c.Source,
			Snippet:  c.Snippet,
			Match:    &m,
			Verified: ok,
		})
	}

	if !verified {
		if e, ok := searchDocuments(value, docs); ok {
			entries = append(entries, e)
		}
	}
	return entries
}

// citationMentions reports whether a citation plausibly covers the given
// address, by case-insensitive equality of its match or containment in its
// snippet.
func citationMentions(c model.Citation, addr string) bool {
	if c.Match != "" && validate.AddressKey(c.Match) == validate.AddressKey(addr) {
		return true
	}
	return containsFold(c.Snippet, addr)
}

// resolveSource maps a citation source string to a document. The sentinel
// "email_pdf" always names the email chain; anything else must equal a
// document name.
func resolveSource(source string, docs []model.Document) *model.Document {
	if len(docs) == 0 {
		return nil
	}
	if source == model.EmailSource {
		for i := range docs {
			if docs[i].Kind == model.KindEmailChain {
				return &docs[i]
			}
		}
		return nil
	}
	for i := range docs {
		if docs[i].Name == source {
			return &docs[i]
		}
	}
	return nil
}

// searchDocuments finds the first case-insensitive occurrence of value,
// scanning documents in submission order and pages in page order. The
// snippet carries up to 80 characters of context on each side, clipped to
// the page.
func searchDocuments(value string, docs []model.Document) (model.ProvenanceEntry, bool) {
	if strings.TrimSpace(value) == "" {
		return model.ProvenanceEntry{}, false
	}
	for _, doc := range docs {
		for _, page := range doc.Pages {
			off, ok := indexFold(page.Text, value)
			if !ok {
				continue
			}
			match := page.Text[off : off+len(value)]
			start := off - snippetContext
			if start < 0 {
				start = 0
			}
			for start > 0 && !utf8.RuneStart(page.Text[start]) {
				start--
			}
			end := off + len(value) + snippetContext
			if end > len(page.Text) {
				end = len(page.Text)
			}
			for end < len(page.Text) && !utf8.RuneStart(page.Text[end]) {
				end++
			}
			e := model.ProvenanceEntry{
				Doc:      doc.Name,
				Snippet:  page.Text[start:end],
				Match:    &match,
				Verified: true,
			}
			if page.Number > 0 {
				n := page.Number
				e.Page = &n
			}
			return e, true
		}
	}
	return model.ProvenanceEntry{}, false
}

func containsFold(haystack, needle string) bool {
	_, ok := indexFold(haystack, needle)
	return ok
}

// indexFold is a case-insensitive substring search returning the byte
// offset of the first match. The window scan keeps the reported match a
// literal substring of the haystack, which offset math over a lowered copy
// would not guarantee for case-changing runes.
func indexFold(haystack, needle string) (int, bool) {
	if needle == "" {
		return 0, false
	}
	n := len(needle)
	for i := 0; i+n <= len(haystack); i++ {
		if strings.EqualFold(haystack[i:i+n], needle) {
			return i, true
		}
	}
	return 0, false
}
