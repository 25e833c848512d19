package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ExtractionStatus represents the current status of an extraction record
type ExtractionStatus string

const (
	StatusQueued     ExtractionStatus = "queued"
	StatusProcessing ExtractionStatus = "processing"
	StatusCompleted  ExtractionStatus = "completed"
	StatusFailed     ExtractionStatus = "failed"
	StatusCancelled  ExtractionStatus = "cancelled"
)

// ValidateStatus checks if a status filter value is known
func ValidateStatus(status ExtractionStatus) bool {
	switch status {
	case StatusQueued, StatusProcessing, StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// Extraction is the persisted record of one requested extraction. The browser
// fingerprint used for it is deliberately not stored.
type Extraction struct {
	ID           string           `json:"id" gorm:"primaryKey"`
	SourceURL    string           `json:"source_url" gorm:"not null"`
	VideoID      string           `json:"video_id" gorm:"index"`
	OutputDir    string           `json:"output_dir"`
	Status       ExtractionStatus `json:"status" gorm:"not null;index"`
	ErrorKind    ErrorKind        `json:"error_kind,omitempty"`
	ErrorMessage string           `json:"error_message,omitempty"`
	ArtifactPath string           `json:"artifact_path,omitempty"`
	RetryCount   int              `json:"retry_count" gorm:"default:0"`
	CreatedAt    time.Time        `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt    time.Time        `json:"updated_at" gorm:"autoUpdateTime"`
	StartedAt    *time.Time       `json:"started_at,omitempty"`
	CompletedAt  *time.Time       `json:"completed_at,omitempty"`
	CleanedAt    *time.Time       `json:"cleaned_at,omitempty"`
}

// NewExtraction creates a queued extraction for an already parsed reference
func NewExtraction(ref SourceReference) *Extraction {
	now := time.Now()
	return &Extraction{
		ID:        uuid.New().String(),
		SourceURL: ref.Raw,
		VideoID:   ref.VideoID,
		Status:    StatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// MarkProcessing marks the extraction as processing
func (e *Extraction) MarkProcessing() {
	e.Status = StatusProcessing
	now := time.Now()
	e.StartedAt = &now
	e.UpdatedAt = now
}

// MarkCompleted records the artifact produced by the attempt
func (e *Extraction) MarkCompleted(artifactPath string) {
	e.Status = StatusCompleted
	e.ArtifactPath = artifactPath
	e.ErrorKind = ""
	e.ErrorMessage = ""
	now := time.Now()
	e.CompletedAt = &now
	e.UpdatedAt = now
}

// MarkFailed records the failure and its classification
func (e *Extraction) MarkFailed(err error) {
	e.Status = StatusFailed
	e.ErrorKind = KindOf(err)
	e.ErrorMessage = err.Error()
	now := time.Now()
	e.CompletedAt = &now
	e.UpdatedAt = now
}

// MarkCancelled marks the extraction as cancelled
func (e *Extraction) MarkCancelled() {
	e.Status = StatusCancelled
	e.UpdatedAt = time.Now()
}

// MarkCleaned records that the artifact was removed from disk
func (e *Extraction) MarkCleaned() {
	now := time.Now()
	e.CleanedAt = &now
	e.UpdatedAt = now
}

// ResetForRetry puts a finished record back in the queue
func (e *Extraction) ResetForRetry() {
	e.Status = StatusQueued
	e.RetryCount = 0
	e.ErrorKind = ""
	e.ErrorMessage = ""
	e.ArtifactPath = ""
	e.StartedAt = nil
	e.CompletedAt = nil
	e.CleanedAt = nil
	e.UpdatedAt = time.Now()
}

// IncrementRetry increments the retry count
func (e *Extraction) IncrementRetry() {
	e.RetryCount++
	e.UpdatedAt = time.Now()
}

// CanRetry checks whether another attempt is allowed after err
func (e *Extraction) CanRetry(err error, maxRetries int) bool {
	if e.RetryCount >= maxRetries {
		return false
	}
	var classified *Error
	if errors.As(err, &classified) {
		return classified.Retryable()
	}
	return true
}

// IsTerminal checks if the extraction is in a terminal state
func (e *Extraction) IsTerminal() bool {
	return e.Status == StatusCompleted || e.Status == StatusFailed || e.Status == StatusCancelled
}

// IsPending checks if the extraction is waiting in the queue
func (e *Extraction) IsPending() bool {
	return e.Status == StatusQueued
}

// IsProcessing checks if the extraction is currently running
func (e *Extraction) IsProcessing() bool {
	return e.Status == StatusProcessing
}

// HasArtifact reports whether a produced file is still expected on disk
func (e *Extraction) HasArtifact() bool {
	return e.ArtifactPath != "" && e.CleanedAt == nil
}

// Result is the value form of an attempt outcome: exactly one of
// ArtifactPath or Err is set.
type Result struct {
	ArtifactPath string `json:"artifact_path,omitempty"`
	Err          *Error `json:"-"`
}

// NewResult builds a Result from the (path, err) pair returned by an attempt
func NewResult(path string, err error) Result {
	if err == nil {
		return Result{ArtifactPath: path}
	}
	var classified *Error
	if !errors.As(err, &classified) {
		classified = NewError(KindAutomation, "", err)
	}
	return Result{Err: classified}
}

// Succeeded reports whether the attempt produced an artifact
func (r Result) Succeeded() bool {
	return r.Err == nil
}

// Settle applies the outcome of the final attempt to the record
func (e *Extraction) Settle(r Result) {
	if r.Succeeded() {
		e.MarkCompleted(r.ArtifactPath)
		return
	}
	e.MarkFailed(r.Err)
}
