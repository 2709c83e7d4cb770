package web

import (
	"errors"
	"net/http"

	"github.com/JonMunkholm/filecheck/internal/core"
	"github.com/JonMunkholm/filecheck/internal/web/templates"
)

// uploadField is the multipart field carrying the report.
const uploadField = "report_file"

// readSubmission extracts the declared type and the uploaded report from r.
// The returned cleanup must be called once the run finishes.
func (s *Server) readSubmission(w http.ResponseWriter, r *http.Request) (core.Submission, func(), error) {
	maxSize := s.cfg.Upload.MaxRequestSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize)

	if err := r.ParseMultipartForm(maxSize); err != nil {
		return core.Submission{}, nil, err
	}
	cleanup := func() { _ = r.MultipartForm.RemoveAll() }

	file, header, err := r.FormFile(uploadField)
	if err != nil {
		cleanup()
		if errors.Is(err, http.ErrMissingFile) {
			return core.Submission{}, nil, core.ErrNoFile
		}
		return core.Submission{}, nil, err
	}

	declared := r.URL.Query().Get("file_type")
	if declared == "" {
		declared = r.FormValue("file_type")
	}

	sub := core.Submission{
		DeclaredType: declared,
		FileName:     header.Filename,
		Content:      file,
		Size:         header.Size,
	}
	return sub, func() {
		file.Close()
		cleanup()
	}, nil
}

// handleProcessFiles serves the upload form. Every response is JSON with
// either "message" (accepted, HTML list) or "error" (rejected HTML list, or
// a plain diagnostic).
func (s *Server) handleProcessFiles(w http.ResponseWriter, r *http.Request) {
	sub, cleanup, err := s.readSubmission(w, r)
	if err != nil {
		s.respondFormError(w, r, err)
		return
	}
	defer cleanup()

	out, err := s.service.Validate(WithRequestMetadata(r.Context(), r), sub)
	if err != nil {
		s.respondFormError(w, r, err)
		return
	}

	if out.Accepted() {
		html, err := templates.Render(r.Context(), templates.AcceptedResults(out.Verdicts))
		if err != nil {
			s.respondFormError(w, r, err)
			return
		}
		writeJSON(w, map[string]string{"message": html})
		return
	}

	failures := out.Failures()

	// An extension mismatch stops the run and is reported on its own.
	if len(failures) == 1 && failures[0].Rule == core.RuleFileType {
		writeJSON(w, map[string]string{"error": templates.Mark(failures[0])})
		return
	}

	html, err := templates.Render(r.Context(), templates.RejectedResults(failures))
	if err != nil {
		s.respondFormError(w, r, err)
		return
	}
	writeJSON(w, map[string]string{"error": html})
}

// respondFormError writes err in the upload form's {"error": text} shape.
// Parse failures are a content outcome and keep status 200.
func (s *Server) respondFormError(w http.ResponseWriter, r *http.Request, err error) {
	var pe *core.ParseError
	if errors.As(err, &pe) {
		logError(r, err, http.StatusOK)
		writeJSON(w, map[string]string{"error": pe.Error() + " " + templates.FailMark})
		return
	}

	status := statusFor(err)
	logError(r, err, status)
	writeJSONStatus(w, status, map[string]string{
		"error": "An unexpected error occurred: " + core.FormatUserError(err) + " " + templates.FailMark,
	})
}

// ValidateResponse is the structured outcome returned by /api/validate.
type ValidateResponse struct {
	RunID    string         `json:"run_id"`
	FileName string         `json:"file_name"`
	Status   core.Status    `json:"status"`
	Accepted bool           `json:"accepted"`
	Verdicts []core.Verdict `json:"verdicts"`
	Failures []core.Verdict `json:"failures,omitempty"`
	Error    *ErrorResponse `json:"error,omitempty"`
}

// handleValidate runs a validation and returns the full outcome as JSON.
// Parse failures return 422 with the verdicts produced before the parse.
func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	sub, cleanup, err := s.readSubmission(w, r)
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	defer cleanup()

	out, err := s.service.Validate(WithRequestMetadata(r.Context(), r), sub)

	var pe *core.ParseError
	if err != nil && !errors.As(err, &pe) {
		respondError(w, r, err, statusFor(err))
		return
	}

	resp := ValidateResponse{
		RunID:    out.RunID,
		FileName: sub.FileName,
		Status:   out.Status,
		Accepted: out.Accepted(),
		Verdicts: out.Verdicts,
		Failures: out.Failures(),
	}
	if resp.Verdicts == nil {
		resp.Verdicts = []core.Verdict{}
	}

	status := http.StatusOK
	if err != nil {
		status = http.StatusUnprocessableEntity
		logError(r, err, status)
		er := newErrorResponse(err)
		resp.Error = &er
	}
	writeJSONStatus(w, status, resp)
}
