package handlers

import (
	"bytes"
	"io"
	"mime"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/ns-gamming/ns-tracker-sub000/internal/api/middleware"
	"github.com/ns-gamming/ns-tracker-sub000/internal/domain"
	"github.com/ns-gamming/ns-tracker-sub000/internal/finance"
	"github.com/ns-gamming/ns-tracker-sub000/internal/infra/gcs"
	"github.com/ns-gamming/ns-tracker-sub000/internal/jobs"
	"github.com/ns-gamming/ns-tracker-sub000/internal/realtime"
	"github.com/rs/zerolog"
)

const (
	maxStatementBytes  = 20 << 20
	defaultImportLimit = 50
)

var statementTypes = map[string]string{
	".pdf": "application/pdf",
	".csv": "text/csv",
}

// statementType resolves the MIME type of an uploaded statement from the
// Content-Type header, falling back to the file extension.
func statementType(header, filename string) (string, bool) {
	if mt, _, err := mime.ParseMediaType(header); err == nil {
		switch mt {
		case "application/pdf", "text/csv":
			return mt, true
		}
	}
	mt, ok := statementTypes[strings.ToLower(path.Ext(filename))]
	return mt, ok
}

// ImportsHandler accepts statement uploads and reports their progress.
type ImportsHandler struct {
	svc       *finance.Service
	storage   ObjectStorage
	publisher jobs.Publisher
	jobs      jobs.JobStore
	log       zerolog.Logger
}

// NewImportsHandler creates a new imports handler. A nil storage or
// publisher disables uploads.
func NewImportsHandler(svc *finance.Service, storage ObjectStorage, publisher jobs.Publisher, jobStore jobs.JobStore, log zerolog.Logger) *ImportsHandler {
	return &ImportsHandler{svc: svc, storage: storage, publisher: publisher, jobs: jobStore, log: log}
}

// CreateImport handles POST /api/imports?filename=
func (h *ImportsHandler) CreateImport(w http.ResponseWriter, r *http.Request) {
	if h.storage == nil || h.publisher == nil {
		middleware.WriteError(w, http.StatusServiceUnavailable, "Statement imports are not configured")
		return
	}

	filename := gcs.SanitizeFilename(r.URL.Query().Get("filename"))
	contentType, ok := statementType(r.Header.Get("Content-Type"), filename)
	if !ok {
		middleware.WriteError(w, http.StatusUnsupportedMediaType, "Statement must be a PDF or CSV file")
		return
	}
	if path.Ext(filename) == "" {
		filename += map[string]string{"application/pdf": ".pdf", "text/csv": ".csv"}[contentType]
	}

	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxStatementBytes))
	if err != nil {
		middleware.WriteError(w, http.StatusRequestEntityTooLarge, "Statement is too large")
		return
	}
	if len(data) == 0 {
		middleware.WriteError(w, http.StatusBadRequest, "Request body is required")
		return
	}

	ctx := r.Context()
	owner := userID(r)
	objectName := gcs.ImportObjectName(owner, filename, time.Now())
	uri, err := h.storage.Upload(ctx, objectName, contentType, bytes.NewReader(data))
	if err != nil {
		h.log.Error().Err(err).Str("user_id", owner).Msg("Failed to upload statement")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to upload statement")
		return
	}

	imp := &domain.Import{
		UserID:           owner,
		ObjectURI:        uri,
		OriginalFilename: filename,
		MimeType:         contentType,
		Status:           domain.ImportPending,
	}
	repo := h.svc.Store()
	if err := repo.CreateImport(ctx, imp); err != nil {
		writeServiceError(w, r, err, "Failed to record import")
		return
	}

	job := &jobs.ImportStatementJob{
		ImportID:  imp.ID,
		UserID:    owner,
		ObjectURI: uri,
		MimeType:  contentType,
	}
	if err := h.publisher.PublishImportStatement(ctx, job); err != nil {
		h.log.Error().Err(err).Str("import_id", imp.ID).Msg("Failed to enqueue import job")
		_ = repo.UpdateImportStatus(ctx, imp.ID, domain.ImportFailed, 0, "could not be queued")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to enqueue import")
		return
	}
	imp.JobID = job.JobID
	if err := repo.SetImportJob(ctx, imp.ID, job.JobID); err != nil {
		h.log.Warn().Err(err).Str("import_id", imp.ID).Str("job_id", job.JobID).Msg("Failed to link import to job")
	}

	h.log.Info().
		Str("job_id", job.JobID).
		Str("import_id", imp.ID).
		Str("object_uri", uri).
		Int("bytes", len(data)).
		Msg("Import job enqueued")

	h.svc.Track(ctx, owner, "import.created", "import", imp.ID, map[string]any{"filename": filename, "bytes": len(data)}, requestInfo(r))
	h.svc.Publish(owner, "imports", realtime.ActionInsert, imp)
	middleware.WriteJSON(w, http.StatusAccepted, imp)
}

// ListImports handles GET /api/imports
func (h *ImportsHandler) ListImports(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryInt(r, "limit", defaultImportLimit)
	if !ok {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid limit")
		return
	}
	list, err := h.svc.Store().ListImports(r.Context(), userID(r), limit)
	if err != nil {
		writeServiceError(w, r, err, "Failed to list imports")
		return
	}
	if list == nil {
		list = []domain.Import{}
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"imports": list,
		"count":   len(list),
	})
}

// GetImport handles GET /api/imports/{id}
func (h *ImportsHandler) GetImport(w http.ResponseWriter, r *http.Request) {
	imp, err := h.svc.Store().GetImport(r.Context(), userID(r), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err, "Failed to get import")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, imp)
}

// GetJob handles GET /api/jobs/{id}. Jobs of other users are reported as
// not found.
func (h *ImportsHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	if h.jobs == nil {
		middleware.WriteError(w, http.StatusNotFound, "Job not found")
		return
	}
	jobID := r.PathValue("id")
	job, err := h.jobs.GetJob(r.Context(), jobID)
	if err != nil || job.UserID != userID(r) {
		if err != nil {
			h.log.Debug().Err(err).Str("job_id", jobID).Msg("Job lookup failed")
		}
		middleware.WriteError(w, http.StatusNotFound, "Job not found")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, job)
}

// ListJobs handles GET /api/jobs?status=&limit=&offset=
func (h *ImportsHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	if h.jobs == nil {
		middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{"jobs": []*jobs.ImportStatementJob{}, "count": 0})
		return
	}
	query := r.URL.Query()
	filter := jobs.JobFilter{
		UserID:   userID(r),
		ImportID: query.Get("import_id"),
		Status:   jobs.JobStatus(query.Get("status")),
	}
	var ok bool
	if filter.Limit, ok = queryInt(r, "limit", 0); !ok {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid limit")
		return
	}
	if filter.Offset, ok = queryInt(r, "offset", 0); !ok {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid offset")
		return
	}

	list, err := h.jobs.ListJobs(r.Context(), filter)
	if err != nil {
		writeServiceError(w, r, err, "Failed to list jobs")
		return
	}
	if list == nil {
		list = []*jobs.ImportStatementJob{}
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  list,
		"count": len(list),
	})
}
