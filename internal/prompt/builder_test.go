package prompt

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/submission-intake/internal/model"
)

func emailDoc(text string) model.Document {
	return model.Document{
		Name:    "submission.pdf",
		Kind:    model.KindEmailChain,
		MIME:    "application/pdf",
		Pages:   []model.PageText{{Number: 1, Text: text}},
		Preview: text,
	}
}

func attachmentDoc(name, text string) model.Document {
	return model.Document{
		Name:      name,
		Kind:      model.KindAttachment,
		MIME:      "text/plain",
		SizeBytes: len(text),
		Pages:     []model.PageText{{Text: text}},
		Preview:   text,
	}
}

func TestBuild_Deterministic(t *testing.T) {
	email := emailDoc("Please quote 123 Main St")
	atts := []model.Document{attachmentDoc("sov.txt", "Building values")}

	a := Build(email, atts, "claude-haiku-4-5-20251001")
	b := Build(email, atts, "claude-haiku-4-5-20251001")

	assert.Equal(t, a, b)
	assert.Equal(t, a.Fingerprint(), b.Fingerprint())

	ua, err := a.UserMessage()
	require.NoError(t, err)
	ub, err := b.UserMessage()
	require.NoError(t, err)
	assert.Equal(t, ua, ub)
}

func TestBuild_AttachmentPreviewBound(t *testing.T) {
	long := strings.Repeat("x", 5000)
	p := Build(emailDoc("body"), []model.Document{attachmentDoc("big.txt", long)}, "m")

	require.Len(t, p.Attachments, 1)
	assert.Len(t, p.Attachments[0].TextPreview, attachmentPreviewChars)
	// Size reflects the full document, not the preview.
	assert.Equal(t, 5000, p.Attachments[0].SizeBytes)
}

func TestFingerprint_Sensitivity(t *testing.T) {
	email := emailDoc("body text")
	base := Build(email, nil, "model-a").Fingerprint()

	assert.NotEqual(t, base, Build(email, nil, "model-b").Fingerprint())
	assert.NotEqual(t, base, Build(emailDoc("other body"), nil, "model-a").Fingerprint())
	assert.NotEqual(t, base,
		Build(email, []model.Document{attachmentDoc("a.txt", "hi")}, "model-a").Fingerprint())
}

func TestFingerprint_NoConcatenationCollision(t *testing.T) {
	// "ab"+"c" and "a"+"bc" must hash differently under length prefixing.
	a := Payload{EmailText: "ab", Model: "c"}
	b := Payload{EmailText: "a", Model: "bc"}
	assert.NotEqual(t, a.Fingerprint(), b.Fingerprint())
}

func TestUserMessage_Shape(t *testing.T) {
	p := Build(emailDoc("thread text"), nil, "m")

	msg, err := p.UserMessage()
	require.NoError(t, err)

	var decoded struct {
		EmailThreadText string              `json:"email_thread_text"`
		Attachments     []AttachmentSummary `json:"attachments"`
		Instructions    string              `json:"instructions"`
	}
	require.NoError(t, json.Unmarshal([]byte(msg), &decoded))
	assert.Equal(t, "thread text", decoded.EmailThreadText)
	assert.NotNil(t, decoded.Attachments)
	assert.Empty(t, decoded.Attachments)
	assert.Equal(t, SchemaDescription, decoded.Instructions)

	// No attachments still serializes an empty array, not null.
	assert.Contains(t, msg, `"attachments":[]`)
}
