package server

import (
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/sells-group/submission-intake/internal/model"
	"github.com/sells-group/submission-intake/internal/pipeline"
	"github.com/sells-group/submission-intake/internal/store"
)

// uploadResponse is the envelope returned by POST /api/upload. Provenance
// is duplicated at the top level for clients that render evidence without
// walking the extraction result.
type uploadResponse struct {
	EmailDocument model.DocumentMeta                 `json:"email_document"`
	Attachments   []model.DocumentMeta               `json:"attachments"`
	DocumentCount int                                `json:"document_count"`
	Extraction    *model.ExtractionResult            `json:"extraction"`
	Provenance    map[string][]model.ProvenanceEntry `json:"provenance"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleUpload accepts a multipart form with an "email_pdf" part and any
// number of "attachments" parts. As a fallback, a bare "files" list is
// accepted with the first file treated as the email chain.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	if err := r.ParseMultipartForm(s.maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form: "+err.Error())
		return
	}
	defer r.MultipartForm.RemoveAll()

	email, attachments, ok := collectDocuments(r.MultipartForm)
	if !ok {
		writeError(w, http.StatusBadRequest, "missing email document: provide an email_pdf part or a files list")
		return
	}

	out, err := s.extractor.Run(r.Context(), email, attachments)
	if err != nil {
		zap.L().Error("server: extraction run aborted", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "extraction aborted")
		return
	}

	metas := make([]model.DocumentMeta, len(out.Attachments))
	for i, a := range out.Attachments {
		metas[i] = model.MetaOf(a)
	}
	writeJSON(w, http.StatusOK, uploadResponse{
		EmailDocument: model.MetaOf(out.Email),
		Attachments:   metas,
		DocumentCount: 1 + len(out.Attachments),
		Extraction:    out.Result,
		Provenance:    out.Result.Provenance,
	})
}

// collectDocuments pulls the email and attachment files out of the parsed
// form. Returns ok=false when no email document can be identified.
func collectDocuments(form *multipart.Form) (pipeline.RawDocument, []pipeline.RawDocument, bool) {
	var email pipeline.RawDocument
	var attachments []pipeline.RawDocument

	if headers := form.File["email_pdf"]; len(headers) > 0 {
		doc, ok := readPart(headers[0])
		if !ok {
			return email, nil, false
		}
		email = doc
		for _, h := range form.File["attachments"] {
			if doc, ok := readPart(h); ok {
				attachments = append(attachments, doc)
			}
		}
		return email, attachments, true
	}

	files := form.File["files"]
	if len(files) == 0 {
		return email, nil, false
	}
	doc, ok := readPart(files[0])
	if !ok {
		return email, nil, false
	}
	email = doc
	for _, h := range files[1:] {
		if doc, ok := readPart(h); ok {
			attachments = append(attachments, doc)
		}
	}
	return email, attachments, true
}

func readPart(h *multipart.FileHeader) (pipeline.RawDocument, bool) {
	f, err := h.Open()
	if err != nil {
		zap.L().Warn("server: open multipart file failed", zap.String("file", h.Filename), zap.Error(err))
		return pipeline.RawDocument{}, false
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		zap.L().Warn("server: read multipart file failed", zap.String("file", h.Filename), zap.Error(err))
		return pipeline.RawDocument{}, false
	}
	return pipeline.RawDocument{
		Name: h.Filename,
		MIME: h.Header.Get("Content-Type"),
		Data: data,
	}, true
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	filter := store.RunFilter{
		Status: model.RunStatus(r.URL.Query().Get("status")),
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Offset = n
		}
	}

	runs, err := s.runs.ListRuns(r.Context(), filter)
	if err != nil {
		zap.L().Error("server: list runs failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "list runs failed")
		return
	}
	if runs == nil {
		runs = []model.Run{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	run, err := s.runs.GetRun(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("server: write response failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
