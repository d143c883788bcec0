package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/maauso/img2video-api/internal/job"
	"github.com/maauso/img2video-api/internal/storage"
)

const (
	// DefaultMaxUploadBytes bounds the multipart body of POST /convert.
	DefaultMaxUploadBytes = 20 << 20

	formFieldImage    = "image"
	formFieldDuration = "duration"
	multipartMemory   = 1 << 20
	sniffBytes        = 3072

	codeInternal = "internal_error"
)

// Handlers contains the HTTP handlers for the API.
type Handlers struct {
	supervisor     *job.Supervisor
	store          storage.Store
	validator      *validator.Validate
	logger         *slog.Logger
	maxUploadBytes int64
	publicBaseURL  string
}

// HandlerOption is a function that configures a Handlers instance.
type HandlerOption func(*Handlers)

// WithMaxUploadBytes limits the size of an upload. Values below 1 are ignored.
func WithMaxUploadBytes(n int64) HandlerOption {
	return func(h *Handlers) {
		if n > 0 {
			h.maxUploadBytes = n
		}
	}
}

// WithPublicBaseURL fixes the scheme://host used in video URLs. Without it
// the URL is derived from the incoming request.
func WithPublicBaseURL(u string) HandlerOption {
	return func(h *Handlers) {
		h.publicBaseURL = strings.TrimRight(u, "/")
	}
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(supervisor *job.Supervisor, store storage.Store, logger *slog.Logger, opts ...HandlerOption) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handlers{
		supervisor:     supervisor,
		store:          store,
		validator:      validator.New(),
		logger:         logger,
		maxUploadBytes: DefaultMaxUploadBytes,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Health handles GET /health requests.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// Convert handles POST /convert requests. The request blocks until the
// video is rendered; a client disconnect cancels the encoder.
func (h *Handlers) Convert(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeIntakeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("upload exceeds %d bytes", tooLarge.Limit))
			return
		}
		h.logger.Warn("failed to parse multipart form", slog.String("error", err.Error()))
		writeIntakeError(w, http.StatusBadRequest, "expected a multipart/form-data body")
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	duration := parseDuration(r.FormValue(formFieldDuration))

	file, header, err := r.FormFile(formFieldImage)
	if err != nil {
		writeIntakeError(w, http.StatusBadRequest, `multipart field "image" is required`)
		return
	}
	defer func() { _ = file.Close() }()

	head := make([]byte, sniffBytes)
	n, err := io.ReadFull(file, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		writeIntakeError(w, http.StatusBadRequest, "failed to read upload")
		return
	}
	head = head[:n]

	meta := UploadMeta{
		FileName:    header.Filename,
		ContentType: mimetype.Detect(head).String(),
		Size:        header.Size,
	}
	if err := h.validator.Struct(meta); err != nil {
		h.logger.Warn("upload validation failed",
			slog.String("file_name", meta.FileName),
			slog.String("content_type", meta.ContentType),
			slog.String("error", err.Error()),
		)
		writeIntakeError(w, http.StatusBadRequest, describeUploadError(err, meta))
		return
	}

	src, err := h.store.SaveInput(r.Context(), header.Filename, io.MultiReader(bytes.NewReader(head), file))
	if err != nil {
		h.logger.Error("failed to save upload", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to store upload", codeInternal, "")
		return
	}

	res := h.supervisor.Convert(r.Context(), job.Request{
		SourcePath:      src,
		DurationSeconds: duration,
		OriginalName:    header.Filename,
	})
	if !res.OK() {
		writeJSON(w, statusFor(res.ErrorKind), ErrorResponse{
			Message: res.Message,
			Error:   string(res.ErrorKind),
			Details: res.Detail,
			JobID:   res.JobID,
		})
		return
	}

	videoURL, err := h.store.PublicURLFor(r.Context(), h.baseURL(r), res.VideoPath)
	if err != nil {
		h.logger.Error("failed to publish video",
			slog.String("job_id", res.JobID),
			slog.String("error", err.Error()),
		)
		if delErr := h.store.Delete(res.VideoPath); delErr != nil {
			h.logger.Error("failed to delete unpublished video", slog.String("error", delErr.Error()))
		}
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{
			Message: job.MsgProcessFailed,
			Error:   string(job.ErrorProcess),
			Details: "failed to publish video",
			JobID:   res.JobID,
		})
		return
	}

	if err := h.supervisor.AttachURL(r.Context(), res.JobID, videoURL); err != nil {
		h.logger.Warn("failed to record video URL", slog.String("job_id", res.JobID), slog.String("error", err.Error()))
	}

	writeJSON(w, http.StatusOK, ConvertResponse{
		Message:  res.Message,
		VideoURL: videoURL,
		FileName: res.FileName,
		JobID:    res.JobID,
	})
}

// GetJob handles GET /jobs/{id} requests.
func (h *Handlers) GetJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "id")
	if jobID == "" {
		writeError(w, http.StatusBadRequest, "job ID is required", "missing_job_id", "")
		return
	}

	found, err := h.supervisor.GetJob(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, job.ErrJobNotFound) {
			writeError(w, http.StatusNotFound, "job not found", "job_not_found", "")
			return
		}
		h.logger.Error("failed to get job",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to get job", codeInternal, "")
		return
	}

	writeJSON(w, http.StatusOK, jobResponse(found))
}

// ListJobs handles GET /jobs requests.
func (h *Handlers) ListJobs(w http.ResponseWriter, r *http.Request) {
	jobs, err := h.supervisor.ListJobs(r.Context())
	if err != nil {
		h.logger.Error("failed to list jobs", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to list jobs", codeInternal, "")
		return
	}

	resp := JobListResponse{Jobs: make([]JobResponse, 0, len(jobs))}
	for _, j := range jobs {
		resp.Jobs = append(resp.Jobs, jobResponse(j))
	}
	writeJSON(w, http.StatusOK, resp)
}

func jobResponse(j *job.Job) JobResponse {
	resp := JobResponse{
		ID:              j.ID,
		Status:          string(j.GetStatus()),
		DurationSeconds: j.DurationSeconds,
		VideoURL:        j.VideoURL,
		CreatedAt:       j.CreatedAt,
		UpdatedAt:       j.UpdatedAt,
	}
	if !j.CompletedAt.IsZero() {
		completed := j.CompletedAt
		resp.CompletedAt = &completed
	}
	if res, ok := j.GetResult(); ok {
		resp.Message = res.Message
		resp.FileName = res.FileName
		resp.Error = string(res.ErrorKind)
		resp.Details = res.Detail
	}
	return resp
}

// baseURL returns the scheme://host clients should use for video links.
func (h *Handlers) baseURL(r *http.Request) string {
	if h.publicBaseURL != "" {
		return h.publicBaseURL
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = strings.ToLower(strings.TrimSpace(strings.Split(proto, ",")[0]))
	}
	return scheme + "://" + r.Host
}

// parseDuration reads the optional duration field. Fractions are truncated;
// empty or non-numeric input returns 0 so the supervisor applies its default.
func parseDuration(v string) int {
	v = strings.TrimSpace(v)
	if d, err := strconv.Atoi(v); err == nil {
		return d
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(f) {
		return 0
	}
	return int(math.Max(math.MinInt32, math.Min(math.MaxInt32, math.Trunc(f))))
}

func describeUploadError(err error, meta UploadMeta) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err.Error()
	}
	switch verrs[0].Field() {
	case "ContentType":
		return fmt.Sprintf("uploaded file is not an image (detected %s)", meta.ContentType)
	case "Size":
		return "uploaded file is empty"
	case "FileName":
		return "uploaded file needs a name of at most 255 characters"
	default:
		return err.Error()
	}
}

// statusFor maps a failed job to an HTTP status.
func statusFor(kind job.ErrorKind) int {
	switch kind {
	case job.ErrorInvalidIntake:
		return http.StatusBadRequest
	case job.ErrorCanceled:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
	}
}

// writeError writes an error response in the standard format.
func writeError(w http.ResponseWriter, status int, message, code, details string) {
	writeJSON(w, status, ErrorResponse{
		Message: message,
		Error:   code,
		Details: details,
	})
}

func writeIntakeError(w http.ResponseWriter, status int, details string) {
	writeError(w, status, job.MsgInvalidIntake, string(job.ErrorInvalidIntake), details)
}
