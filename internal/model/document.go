package model

import "strings"

// DocumentKind distinguishes the email chain from its attachments.
type DocumentKind string

const (
	KindEmailChain DocumentKind = "email_chain"
	KindAttachment DocumentKind = "attachment"
)

// EmailSource is the citation sentinel the model uses to refer to the
// email chain document instead of an attachment filename.
const EmailSource = "email_pdf"

// PageText holds the extracted text of one page. Number is 1-based for
// paginated formats and 0 for formats with no page concept (spreadsheets,
// plain text).
type PageText struct {
	Number int    `json:"page_number,omitempty"`
	Text   string `json:"text"`
}

// Document is the textual representation of one uploaded file. It is built
// once per pipeline invocation and never mutated afterwards.
type Document struct {
	Name      string       `json:"name"`
	Kind      DocumentKind `json:"kind"`
	MIME      string       `json:"mime"`
	SizeBytes int          `json:"size_bytes"`
	Pages     []PageText   `json:"pages"`
	Preview   string       `json:"preview"`
}

// FullText joins all page texts with newlines.
func (d *Document) FullText() string {
	if len(d.Pages) == 1 {
		return d.Pages[0].Text
	}
	parts := make([]string, len(d.Pages))
	for i, p := range d.Pages {
		parts[i] = p.Text
	}
	return strings.Join(parts, "\n")
}

// DocumentMeta is the client-facing summary of an uploaded document,
// mirroring the upload response contract.
type DocumentMeta struct {
	Filename    string `json:"filename"`
	MIMEType    string `json:"mime_type"`
	SizeBytes   int    `json:"size_bytes"`
	TextPreview string `json:"text_preview"`
}

// MetaOf summarizes a Document for the upload response.
func MetaOf(d Document) DocumentMeta {
	return DocumentMeta{
		Filename:    d.Name,
		MIMEType:    d.MIME,
		SizeBytes:   d.SizeBytes,
		TextPreview: d.Preview,
	}
}
