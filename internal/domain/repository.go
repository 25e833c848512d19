package domain

import "errors"

// ErrExtractionNotFound is returned when no record has the requested ID
var ErrExtractionNotFound = errors.New("extraction not found")

// ExtractionRepository defines the interface for extraction record persistence
type ExtractionRepository interface {
	// Create creates a new extraction record
	Create(extraction *Extraction) error

	// Update updates an existing record
	Update(extraction *Extraction) error

	// Delete deletes a record by ID
	Delete(id string) error

	// FindByID finds a record by ID
	FindByID(id string) (*Extraction, error)

	// FindByStatus finds records by status
	FindByStatus(status ExtractionStatus) ([]*Extraction, error)

	// FindPending finds queued records, oldest first
	FindPending() ([]*Extraction, error)

	// FindAll finds all records with optional equality filters
	FindAll(filters map[string]interface{}) ([]*Extraction, error)

	// CountByStatus returns the number of records in a status
	CountByStatus(status ExtractionStatus) (int64, error)

	// ResetProcessing requeues records left processing by a previous run
	ResetProcessing() (int64, error)

	// GetStats returns extraction statistics
	GetStats() (*ExtractionStats, error)
}

// ExtractionStats represents extraction statistics
type ExtractionStats struct {
	Total      int64 `json:"total"`
	Queued     int64 `json:"queued"`
	Processing int64 `json:"processing"`
	Completed  int64 `json:"completed"`
	Failed     int64 `json:"failed"`
	Cancelled  int64 `json:"cancelled"`
}
