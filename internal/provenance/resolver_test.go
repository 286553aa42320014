package provenance

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/submission-intake/internal/model"
)

func strp(s string) *string { return &s }

func emailDoc(pages ...string) model.Document {
	d := model.Document{Name: "submission.pdf", Kind: model.KindEmailChain, MIME: "application/pdf"}
	for i, text := range pages {
		d.Pages = append(d.Pages, model.PageText{Number: i + 1, Text: text})
	}
	return d
}

func attachment(name, text string) model.Document {
	return model.Document{
		Name:  name,
		Kind:  model.KindAttachment,
		Pages: []model.PageText{{Text: text}},
	}
}

func TestResolve_AdoptsVerifiedCitation(t *testing.T) {
	docs := []model.Document{emailDoc("Regards, Jane Smith, Acme Insurance")}
	fields := &model.ExtractedFields{BrokerName: strp("Jane Smith")}
	citations := map[string][]model.Citation{
		model.FieldBrokerName: {{
			Source:  model.EmailSource,
			Snippet: "Regards, Jane Smith, Acme",
			Match:   "Jane Smith",
		}},
	}

	prov := New().Resolve(fields, citations, docs)

	entries := prov[model.FieldBrokerName]
	require.Len(t, entries, 1)
	assert.Equal(t, model.EmailSource, entries[0].Doc)
	assert.Nil(t, entries[0].Page)
	assert.Equal(t, "Jane Smith", *entries[0].Match)
	assert.True(t, entries[0].Verified)
}

func TestResolve_HallucinatedCitationKeptUnverified(t *testing.T) {
	// The citation names a real document but its match never occurs there.
	docs := []model.Document{emailDoc("The broker is Jane Smith.")}
	fields := &model.ExtractedFields{Brokerage: strp("Acme Insurance")}
	citations := map[string][]model.Citation{
		model.FieldBrokerage: {{
			Source:  model.EmailSource,
			Snippet: "from Acme Insurance in",
			Match:   "Acme Insurance",
		}},
	}

	prov := New().Resolve(fields, citations, docs)

	entries := prov[model.FieldBrokerage]
	require.NotEmpty(t, entries)
	assert.False(t, entries[0].Verified)
}

func TestResolve_UnknownSourceFallsBack(t *testing.T) {
	docs := []model.Document{emailDoc("Broker: Jane Smith, Acme Insurance Brokers")}
	fields := &model.ExtractedFields{BrokerName: strp("Jane Smith")}
	citations := map[string][]model.Citation{
		model.FieldBrokerName: {{Source: "nonexistent.pdf", Snippet: "x", Match: "Jane Smith"}},
	}

	prov := New().Resolve(fields, citations, docs)

	entries := prov[model.FieldBrokerName]
	require.Len(t, entries, 1)
	assert.Equal(t, "submission.pdf", entries[0].Doc)
	assert.True(t, entries[0].Verified)
	require.NotNil(t, entries[0].Page)
	assert.Equal(t, 1, *entries[0].Page)
}

func TestResolve_FallbackSearchCaseInsensitive(t *testing.T) {
	docs := []model.Document{emailDoc("page one filler", "contact JANE SMITH for details")}
	fields := &model.ExtractedFields{BrokerName: strp("Jane Smith")}
	prov := New().Resolve(fields, nil, docs)

	entries := prov[model.FieldBrokerName]
	require.Len(t, entries, 1)
	// The match preserves the document casing and the snippet contains it.
	assert.Equal(t, "JANE SMITH", *entries[0].Match)
	assert.Contains(t, entries[0].Snippet, "JANE SMITH")
	require.NotNil(t, entries[0].Page)
	assert.Equal(t, 2, *entries[0].Page)
	assert.True(t, entries[0].Verified)
}

func TestResolve_FallbackSnippetBounds(t *testing.T) {
	long := strings.Repeat("a", 300) + " NEEDLE " + strings.Repeat("b", 300)
	docs := []model.Document{emailDoc(long)}
	fields := &model.ExtractedFields{BrokerName: strp("NEEDLE")}

	prov := New().Resolve(fields, nil, docs)

	entries := prov[model.FieldBrokerName]
	require.Len(t, entries, 1)
	snippet := entries[0].Snippet
	assert.Contains(t, snippet, "NEEDLE")
	// 80 chars of context on each side plus the match itself.
	assert.LessOrEqual(t, len(snippet), 80+len(" NEEDLE ")+80)
}

func TestResolve_DocumentOrderTieBreak(t *testing.T) {
	docs := []model.Document{
		emailDoc("nothing here"),
		attachment("a.txt", "value 777 Pine Rd here"),
		attachment("b.txt", "value 777 Pine Rd there too"),
	}
	fields := &model.ExtractedFields{PropertyAddresses: []string{"777 Pine Rd"}}

	prov := New().Resolve(fields, nil, docs)

	entries := prov[model.FieldPropertyAddresses]
	require.Len(t, entries, 1)
	assert.Equal(t, "a.txt", entries[0].Doc)
}

func TestResolve_NoEvidenceYieldsEmptyList(t *testing.T) {
	docs := []model.Document{emailDoc("unrelated content")}
	fields := &model.ExtractedFields{BrokerEmail: strp("jane@acme.com")}

	prov := New().Resolve(fields, nil, docs)

	entries, ok := prov[model.FieldBrokerEmail]
	assert.True(t, ok)
	assert.Empty(t, entries)
}

func TestResolve_NilFieldsSkipped(t *testing.T) {
	docs := []model.Document{emailDoc("text")}
	prov := New().Resolve(&model.ExtractedFields{}, nil, docs)
	assert.Empty(t, prov)
}

func TestResolve_PerAddressIndependence(t *testing.T) {
	docs := []model.Document{
		emailDoc("Properties: 123 Main St and 456 Oak Ave"),
	}
	fields := &model.ExtractedFields{PropertyAddresses: []string{"123 Main St", "456 Oak Ave", "999 Ghost Rd"}}
	citations := map[string][]model.Citation{
		model.FieldPropertyAddresses: {{
			Source:  model.EmailSource,
			Snippet: "Properties: 123 Main St and",
			Match:   "123 Main St",
		}},
	}

	prov := New().Resolve(fields, citations, docs)

	entries := prov[model.FieldPropertyAddresses]
	// 123 Main St adopts its citation; 456 Oak Ave falls back to search;
	// 999 Ghost Rd has no evidence anywhere.
	require.Len(t, entries, 2)
	assert.Equal(t, "123 Main St", *entries[0].Match)
	assert.Nil(t, entries[0].Page)
	assert.Equal(t, "456 Oak Ave", *entries[1].Match)
	require.NotNil(t, entries[1].Page)
}

func TestResolve_CitationForOtherAddressNotAdopted(t *testing.T) {
	docs := []model.Document{emailDoc("only 123 Main St appears")}
	fields := &model.ExtractedFields{PropertyAddresses: []string{"456 Oak Ave"}}
	citations := map[string][]model.Citation{
		model.FieldPropertyAddresses: {{
			Source:  model.EmailSource,
			Snippet: "only 123 Main St appears",
			Match:   "123 Main St",
		}},
	}

	prov := New().Resolve(fields, citations, docs)
	assert.Empty(t, prov[model.FieldPropertyAddresses])
}

func TestIndexFold(t *testing.T) {
	off, ok := indexFold("Hello WORLD", "world")
	require.True(t, ok)
	assert.Equal(t, 6, off)

	_, ok = indexFold("Hello", "absent")
	assert.False(t, ok)

	_, ok = indexFold("anything", "")
	assert.False(t, ok)
}
