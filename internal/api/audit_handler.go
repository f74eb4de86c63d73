package api

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ignite/adoptimizer/internal/domain"
	"github.com/ignite/adoptimizer/internal/pkg/httputil"
	"github.com/ignite/adoptimizer/internal/report"
	"github.com/ignite/adoptimizer/internal/segmentation"
	"github.com/ignite/adoptimizer/internal/service/audit"
)

// ownerHeader carries the caller identity set by the fronting auth proxy.
const ownerHeader = "X-Owner-Identity"

const multipartOverhead = 1 << 20

// AuditHandler serves upload, history and export endpoints.
type AuditHandler struct {
	svc      *audit.Service
	maxBytes int64
}

// NewAuditHandler creates the handler. maxBytes bounds the uploaded file.
func NewAuditHandler(svc *audit.Service, maxBytes int64) *AuditHandler {
	return &AuditHandler{svc: svc, maxBytes: maxBytes}
}

// AuditResponse is the body of upload and detail responses.
type AuditResponse struct {
	Audit  *domain.Audit  `json:"audit"`
	Report *report.Report `json:"report,omitempty"`
	Cached bool           `json:"cached,omitempty"`
}

// HandleWelcome greets API clients.
//
//	GET /
func (h *AuditHandler) HandleWelcome(w http.ResponseWriter, r *http.Request) {
	httputil.OK(w, map[string]string{
		"message": "Welcome to the AdOptimizer API. Upload an ad performance export to POST /api/audits.",
	})
}

// HandleUpload analyses one uploaded export.
//
//	POST /api/audits  (multipart field "file")
func (h *AuditHandler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes+multipartOverhead)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httputil.ErrorWithCode(w, http.StatusRequestEntityTooLarge, "TooLarge", "file exceeds the upload limit", nil)
			return
		}
		httputil.BadRequest(w, "expected a multipart form with a file field")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		httputil.BadRequest(w, "missing file field")
		return
	}
	defer file.Close()

	content, err := io.ReadAll(io.LimitReader(file, h.maxBytes+1))
	if err != nil {
		respondSafeError(w, http.StatusInternalServerError, fmt.Errorf("read upload: %w", err))
		return
	}

	out, err := h.svc.Analyze(r.Context(), audit.Upload{
		Filename: header.Filename,
		Owner:    r.Header.Get(ownerHeader),
		Content:  content,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.OK(w, AuditResponse{Audit: out.Audit, Report: out.Report, Cached: out.Cached})
}

// HandleList returns the caller's audit history.
//
//	GET /api/audits?limit=&offset=
func (h *AuditHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	filter := audit.ListFilter{
		Limit:  queryInt(r, "limit"),
		Offset: queryInt(r, "offset"),
	}.Normalize()

	audits, total, err := h.svc.History(r.Context(), r.Header.Get(ownerHeader), filter)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.OK(w, map[string]interface{}{
		"audits": audits,
		"total":  total,
		"limit":  filter.Limit,
		"offset": filter.Offset,
	})
}

// HandleDetail returns one audit with its archived report.
//
//	GET /api/audits/{id}
func (h *AuditHandler) HandleDetail(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.Detail(r.Context(), r.Header.Get(ownerHeader), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.OK(w, AuditResponse{Audit: out.Audit, Report: out.Report})
}

// HandleExport streams the archived report as an Excel workbook.
//
//	GET /api/audits/{id}/export.xlsx
func (h *AuditHandler) HandleExport(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var buf bytes.Buffer
	if err := h.svc.Export(r.Context(), r.Header.Get(ownerHeader), id, &buf); err != nil {
		writeServiceError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="audit-%s.xlsx"`, id))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	buf.WriteTo(w)
}

// writeServiceError maps service and engine errors onto HTTP responses.
func writeServiceError(w http.ResponseWriter, err error) {
	var segErr *segmentation.Error
	switch {
	case errors.As(err, &segErr):
		status := http.StatusUnprocessableEntity
		if segErr.Kind == segmentation.KindInvalidInput {
			status = http.StatusBadRequest
		}
		var details any
		if len(segErr.Missing) > 0 {
			details = map[string][]string{"missing": segErr.Missing}
		}
		httputil.ErrorWithCode(w, status, string(segErr.Kind), segErr.Message, details)
	case errors.Is(err, audit.ErrTooLarge):
		httputil.ErrorWithCode(w, http.StatusRequestEntityTooLarge, "TooLarge", "file exceeds the upload limit", nil)
	case errors.Is(err, audit.ErrNotFound):
		httputil.NotFound(w, "audit not found")
	case errors.Is(err, audit.ErrBusy):
		httputil.Error(w, http.StatusConflict, audit.ErrBusy.Error())
	default:
		respondSafeError(w, http.StatusInternalServerError, err)
	}
}

func queryInt(r *http.Request, key string) int {
	n, _ := strconv.Atoi(r.URL.Query().Get(key))
	return n
}
