package preprocess

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

// pdfToText extracts page text from PDFs using the pdftotext CLI tool.
// Scanned PDFs with no text layer yield empty pages; OCR is out of scope.
type pdfToText struct {
	binPath string
}

func newPdfToText(binPath string) *pdfToText {
	if binPath == "" {
		binPath = "pdftotext"
	}
	return &pdfToText{binPath: binPath}
}

// Pages runs pdftotext -layout on the given bytes and splits the output on
// the form feeds pdftotext emits between pages.
func (p *pdfToText) Pages(ctx context.Context, raw []byte) ([]string, error) {
	tmp, err := os.CreateTemp("", "intake-*.pdf")
	if err != nil {
		return nil, eris.Wrap(err, "preprocess: create temp pdf")
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return nil, eris.Wrap(err, "preprocess: write temp pdf")
	}
	if err := tmp.Close(); err != nil {
		return nil, eris.Wrap(err, "preprocess: close temp pdf")
	}

	cmd := exec.CommandContext(ctx, p.binPath, "-layout", tmp.Name(), "-")

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, eris.Wrapf(err, "preprocess: pdftotext failed for %s: %s",
			filepath.Base(tmp.Name()), stderr.String())
	}

	out := strings.TrimSuffix(stdout.String(), "\f")
	return strings.Split(out, "\f"), nil
}
