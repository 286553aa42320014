package preprocess

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/submission-intake/internal/model"
)

func TestPreprocess_PlainText(t *testing.T) {
	p := New(Options{})
	doc := p.Preprocess(context.Background(), []byte("  Hello from the broker.  "), "note.txt", "text/plain", model.KindAttachment)

	assert.Equal(t, "note.txt", doc.Name)
	assert.Equal(t, model.KindAttachment, doc.Kind)
	require.Len(t, doc.Pages, 1)
	assert.Equal(t, 0, doc.Pages[0].Number)
	assert.Equal(t, "Hello from the broker.", doc.Pages[0].Text)
	assert.Equal(t, "Hello from the broker.", doc.Preview)
}

func TestPreprocess_Deterministic(t *testing.T) {
	p := New(Options{})
	raw := []byte("Submission for 123 Main St, Springfield")

	a := p.Preprocess(context.Background(), raw, "body.txt", "text/plain", model.KindEmailChain)
	b := p.Preprocess(context.Background(), raw, "body.txt", "text/plain", model.KindEmailChain)
	assert.Equal(t, a, b)
}

func TestPreprocess_PreviewTruncation(t *testing.T) {
	p := New(Options{PreviewChars: 10})
	doc := p.Preprocess(context.Background(), []byte(strings.Repeat("a", 50)), "long.txt", "text/plain", model.KindAttachment)

	assert.Len(t, doc.Preview, 10)
	// Full page text is untouched.
	assert.Len(t, doc.Pages[0].Text, 50)
}

func TestPreprocess_CorruptPDFDegrades(t *testing.T) {
	// Point at a binary that does not exist so extraction always fails.
	p := New(Options{PdfToTextPath: "/nonexistent/pdftotext"})
	doc := p.Preprocess(context.Background(), []byte("%PDF-1.4 garbage"), "sub.pdf", "application/pdf", model.KindEmailChain)

	require.Len(t, doc.Pages, 1)
	assert.Equal(t, 1, doc.Pages[0].Number)
	assert.Empty(t, doc.Pages[0].Text)
	assert.Empty(t, doc.Preview)
}

func TestPreprocess_XLSX(t *testing.T) {
	raw := buildWorkbook(t, "Losses", [][]string{
		{"Year", "Paid"},
		{"2023", "15000"},
		{"", ""},
	})

	p := New(Options{})
	doc := p.Preprocess(context.Background(), raw, "loss_runs.xlsx", mimeXLSX, model.KindAttachment)

	require.Len(t, doc.Pages, 1)
	assert.Equal(t, 0, doc.Pages[0].Number)
	text := doc.Pages[0].Text
	assert.Contains(t, text, "# Sheet: Losses")
	assert.Contains(t, text, "Year, Paid")
	assert.Contains(t, text, "2023, 15000")
}

func TestPreprocess_XLSXCellBudget(t *testing.T) {
	rows := make([][]string, 100)
	for i := range rows {
		rows[i] = []string{"aaa", "bbb", "ccc"}
	}
	raw := buildWorkbook(t, "Big", rows)

	p := New(Options{CellBudget: 6})
	doc := p.Preprocess(context.Background(), raw, "big.xlsx", mimeXLSX, model.KindAttachment)

	// Header line plus two rows of three cells each.
	lines := strings.Split(doc.Pages[0].Text, "\n")
	assert.Len(t, lines, 3)
}

func TestPreprocess_CorruptXLSXDegrades(t *testing.T) {
	p := New(Options{})
	doc := p.Preprocess(context.Background(), []byte("not a zip"), "bad.xlsx", mimeXLSX, model.KindAttachment)

	require.Len(t, doc.Pages, 1)
	assert.Empty(t, doc.Pages[0].Text)
}

func TestTruncate_UTF8Boundary(t *testing.T) {
	s := "héllo"
	out := Truncate(s, 2)
	assert.Equal(t, "h", out)
	assert.Equal(t, s, Truncate(s, 100))
}

func buildWorkbook(t *testing.T, sheetName string, rows [][]string) []byte {
	t.Helper()
	f := xlsx.NewFile()
	sheet, err := f.AddSheet(sheetName)
	require.NoError(t, err)
	for _, r := range rows {
		row := sheet.AddRow()
		for _, v := range r {
			row.AddCell().Value = v
		}
	}
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	return buf.Bytes()
}
