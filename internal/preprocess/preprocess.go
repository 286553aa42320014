// Package preprocess converts uploaded documents into bounded textual
// previews plus full per-page text for provenance search.
package preprocess

import (
	"context"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"

	"github.com/sells-group/submission-intake/internal/model"
)

const (
	mimePDF  = "application/pdf"
	mimeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// Options tunes the preprocessor. Zero values pick the defaults used by the
// upload contract.
type Options struct {
	PdfToTextPath string
	PreviewChars  int
	CellBudget    int
}

// Preprocessor builds Documents from raw uploaded bytes. It never fails a
// request: unreadable input degrades to a Document with empty pages.
type Preprocessor struct {
	pdf          *pdfToText
	previewChars int
	cellBudget   int
}

// New creates a Preprocessor.
func New(opts Options) *Preprocessor {
	if opts.PreviewChars <= 0 {
		opts.PreviewChars = 2000
	}
	if opts.CellBudget <= 0 {
		opts.CellBudget = 2000
	}
	return &Preprocessor{
		pdf:          newPdfToText(opts.PdfToTextPath),
		previewChars: opts.PreviewChars,
		cellBudget:   opts.CellBudget,
	}
}

// Preprocess converts one uploaded file into a Document. The result is a
// pure function of the input bytes: re-running on identical bytes yields
// identical text.
func (p *Preprocessor) Preprocess(ctx context.Context, raw []byte, filename, mime string, kind model.DocumentKind) model.Document {
	doc := model.Document{
		Name:      filename,
		Kind:      kind,
		MIME:      mime,
		SizeBytes: len(raw),
	}

	lowerName := strings.ToLower(filename)
	switch {
	case strings.EqualFold(mime, mimePDF) || strings.HasSuffix(lowerName, ".pdf"):
		pages, err := p.pdf.Pages(ctx, raw)
		if err != nil {
			zap.L().Warn("preprocess: pdf text extraction failed",
				zap.String("file", filename),
				zap.Error(err),
			)
			pages = nil
		}
		doc.Pages = make([]model.PageText, 0, len(pages))
		for i, text := range pages {
			doc.Pages = append(doc.Pages, model.PageText{
				Number: i + 1,
				Text:   cleanText(text),
			})
		}
		if len(doc.Pages) == 0 {
			doc.Pages = []model.PageText{{Number: 1, Text: ""}}
		}
	case strings.EqualFold(mime, mimeXLSX) || strings.HasSuffix(lowerName, ".xlsx"):
		text, err := flattenWorkbook(raw, p.cellBudget)
		if err != nil {
			zap.L().Warn("preprocess: xlsx extraction failed",
				zap.String("file", filename),
				zap.Error(err),
			)
			text = ""
		}
		doc.Pages = []model.PageText{{Text: cleanText(text)}}
	default:
		doc.Pages = []model.PageText{{Text: cleanText(string(raw))}}
	}

	doc.Preview = Truncate(doc.FullText(), p.previewChars)
	return doc
}

// Truncate bounds s to at most n bytes without splitting a UTF-8 sequence.
func Truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && s[n]&0xC0 == 0x80 {
		n--
	}
	return s[:n]
}

// cleanText normalizes extracted text to NFC and strips invalid UTF-8 so
// fingerprints and provenance searches are stable across extractors.
func cleanText(s string) string {
	s = strings.ToValidUTF8(s, "")
	return norm.NFC.String(strings.TrimSpace(s))
}
