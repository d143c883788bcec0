// Package server provides the HTTP surface of the image-to-video service.
// It includes handlers, middleware, routes, and DTOs separated from domain types.
package server

import "time"

// UploadMeta describes an uploaded image after content sniffing.
type UploadMeta struct {
	// FileName is the client supplied name of the upload.
	FileName string `validate:"required,max=255"`
	// Size is the upload size in bytes.
	Size int64 `validate:"gt=0"`
	// ContentType is the sniffed MIME type, not the client claimed one.
	ContentType string `validate:"required,startswith=image/"`
}

// ConvertResponse is the HTTP response after a successful conversion.
type ConvertResponse struct {
	// Message is a human-readable status line.
	Message string `json:"message"`
	// VideoURL is the absolute URL of the generated video.
	VideoURL string `json:"videoUrl"`
	// FileName is the base name of the generated video.
	FileName string `json:"fileName"`
	// JobID identifies the job for GET /jobs/{id}.
	JobID string `json:"jobId"`
}

// JobResponse is the HTTP response for getting job details.
type JobResponse struct {
	ID              string     `json:"id"`
	Status          string     `json:"status"`
	DurationSeconds int        `json:"durationSeconds"`
	FileName        string     `json:"fileName,omitempty"`
	VideoURL        string     `json:"videoUrl,omitempty"`
	Message         string     `json:"message,omitempty"`
	Error           string     `json:"error,omitempty"`
	Details         string     `json:"details,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
	CompletedAt     *time.Time `json:"completedAt,omitempty"`
}

// JobListResponse is the HTTP response for GET /jobs.
type JobListResponse struct {
	Jobs []JobResponse `json:"jobs"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	// Message is the human-readable error message.
	Message string `json:"message"`
	// Error is the error code for programmatic handling.
	Error string `json:"error"`
	// Details carries bounded diagnostics, if any.
	Details string `json:"details,omitempty"`
	// JobID is set when the failure belongs to a job.
	JobID string `json:"jobId,omitempty"`
}

// HealthResponse is the HTTP response for the health check endpoint.
type HealthResponse struct {
	// Status is the health status of the service.
	Status string `json:"status"`
}
