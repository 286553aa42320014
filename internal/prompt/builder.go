// Package prompt assembles the deterministic instruction+schema+content
// payload sent to the model, and derives the content-addressed fingerprint
// that keys the extraction cache.
package prompt

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"hash"

	"github.com/rotisserie/eris"

	"github.com/sells-group/submission-intake/internal/model"
	"github.com/sells-group/submission-intake/internal/preprocess"
)

// attachmentPreviewChars bounds the per-attachment preview embedded in the
// prompt. The document preview kept for the caller is larger; this is the
// prompt-size bound only.
const attachmentPreviewChars = 500

// SystemInstructions frames the extraction task. Submissions are sparse and
// unstandardized, so the model is told to prefer explicit evidence and
// return null over inference.
const SystemInstructions = "You are a precise extraction assistant. " +
	"Extract brokerage details and property addresses from the provided email thread text and attachment summaries. " +
	"Insurance submissions are sparse and unstandardized; prefer explicit evidence and return null rather than infer. " +
	"Always return strictly valid JSON that conforms to the schema. No extra text."

// SchemaDescription enumerates every output field, its type, and the
// citation and confidence requirements.
const SchemaDescription = `Return a JSON object with exactly these fields and types:
{
  "broker_name": string|null,
  "broker_email": string|null,
  "brokerage": string|null,
  "complete_brokerage_address": string|null,
  "property_addresses": [string],
  "field_confidence": {field: {"score": number 0..1, "explanation": string, "per_address": [{"address": string, "score": number, "explanation": string}] for property_addresses only}},
  "citations": {field: [{"source": string, "snippet": string, "match": string}]}
}
Rules:
- Use the email thread text primarily; use attachment summaries as secondary hints.
- If a field is not present, return null.
- "property_addresses" must be a list of unique, human-readable street addresses (one line each), with state and country context when the source provides it.
- For every non-null field, supply a "citations" array. "source" is the attachment filename, or "email_pdf" for the email thread. "match" is the exact text you relied on; "snippet" must include 25-120 characters of surrounding context on each side of the match.
- Provide a "field_confidence" entry for every field, with a per-address breakdown for "property_addresses".
- Do not include commentary, only the JSON object.`

// AttachmentSummary is the bounded per-attachment view embedded in the prompt.
type AttachmentSummary struct {
	Filename    string `json:"filename"`
	MIMEType    string `json:"mime_type"`
	SizeBytes   int    `json:"size_bytes"`
	TextPreview string `json:"text_preview"`
}

// Payload is the fully deterministic prompt for one extraction: identical
// inputs always produce byte-identical payloads, which is what makes the
// cache fingerprint sound.
type Payload struct {
	SystemInstructions string
	SchemaDescription  string
	EmailText          string
	Attachments        []AttachmentSummary
	Model              string
}

// Build assembles the Payload from preprocessed documents.
func Build(email model.Document, attachments []model.Document, modelID string) Payload {
	summaries := make([]AttachmentSummary, 0, len(attachments))
	for _, a := range attachments {
		summaries = append(summaries, AttachmentSummary{
			Filename:    a.Name,
			MIMEType:    a.MIME,
			SizeBytes:   a.SizeBytes,
			TextPreview: preprocess.Truncate(a.Preview, attachmentPreviewChars),
		})
	}
	return Payload{
		SystemInstructions: SystemInstructions,
		SchemaDescription:  SchemaDescription,
		EmailText:          email.Preview,
		Attachments:        summaries,
		Model:              modelID,
	}
}

// userPayload is the JSON object sent as the user message.
type userPayload struct {
	EmailThreadText string              `json:"email_thread_text"`
	Attachments     []AttachmentSummary `json:"attachments"`
	Instructions    string              `json:"instructions"`
}

// UserMessage renders the user-role message body. encoding/json emits struct
// fields in declaration order, so the output is byte-stable.
func (p Payload) UserMessage() (string, error) {
	atts := p.Attachments
	if atts == nil {
		atts = []AttachmentSummary{}
	}
	b, err := json.Marshal(userPayload{
		EmailThreadText: p.EmailText,
		Attachments:     atts,
		Instructions:    p.SchemaDescription,
	})
	if err != nil {
		return "", eris.Wrap(err, "prompt: marshal user payload")
	}
	return string(b), nil
}

// Fingerprint is the SHA-256 content address of the payload: a digest over
// length-prefixed canonical fields, so no two distinct payloads can collide
// by concatenation.
func (p Payload) Fingerprint() string {
	h := sha256.New()
	writeField(h, p.EmailText)
	writeField(h, p.Model)
	writeField(h, p.SystemInstructions)
	writeField(h, p.SchemaDescription)
	for _, a := range p.Attachments {
		writeField(h, a.Filename)
		writeField(h, a.MIMEType)
		var size [8]byte
		binary.BigEndian.PutUint64(size[:], uint64(a.SizeBytes))
		h.Write(size[:])
		writeField(h, a.TextPreview)
	}
	return hex.EncodeToString(h.Sum(nil))
}

func writeField(h hash.Hash, s string) {
	var n [8]byte
	binary.BigEndian.PutUint64(n[:], uint64(len(s)))
	h.Write(n[:])
	h.Write([]byte(s))
}
