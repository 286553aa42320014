package model

import "time"

// RunStatus tracks an extraction run in the audit log.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// Run is one audited extraction request.
type Run struct {
	ID              string            `json:"id"`
	EmailName       string            `json:"email_name"`
	AttachmentCount int               `json:"attachment_count"`
	Status          RunStatus         `json:"status"`
	Result          *ExtractionResult `json:"result,omitempty"`
	Error           string            `json:"error,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}
