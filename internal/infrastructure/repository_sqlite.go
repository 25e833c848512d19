package infrastructure

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/yourusername/yt-audio-extract/internal/domain"
)

// filterColumns are the columns FindAll accepts as equality filters
var filterColumns = map[string]bool{
	"status":     true,
	"video_id":   true,
	"error_kind": true,
}

// SQLiteExtractionRepository implements domain.ExtractionRepository using SQLite
type SQLiteExtractionRepository struct {
	db *gorm.DB
}

// NewSQLiteExtractionRepository opens (creating if needed) the database at
// dbPath and migrates the schema. ":memory:" gives a throwaway database.
func NewSQLiteExtractionRepository(dbPath string) (*SQLiteExtractionRepository, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// a single connection keeps ":memory:" databases shared and serializes
	// writers on the file
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(1)
	}

	if err := db.AutoMigrate(&domain.Extraction{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &SQLiteExtractionRepository{db: db}, nil
}

// Create creates a new extraction record
func (r *SQLiteExtractionRepository) Create(extraction *domain.Extraction) error {
	return r.db.Create(extraction).Error
}

// Update saves all fields of an existing record
func (r *SQLiteExtractionRepository) Update(extraction *domain.Extraction) error {
	return r.db.Save(extraction).Error
}

// Delete deletes a record by ID
func (r *SQLiteExtractionRepository) Delete(id string) error {
	res := r.db.Delete(&domain.Extraction{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", domain.ErrExtractionNotFound, id)
	}
	return nil
}

// FindByID finds a record by ID
func (r *SQLiteExtractionRepository) FindByID(id string) (*domain.Extraction, error) {
	var extraction domain.Extraction
	err := r.db.First(&extraction, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", domain.ErrExtractionNotFound, id)
		}
		return nil, err
	}
	return &extraction, nil
}

// FindByStatus finds records by status
func (r *SQLiteExtractionRepository) FindByStatus(status domain.ExtractionStatus) ([]*domain.Extraction, error) {
	var extractions []*domain.Extraction
	err := r.db.Where("status = ?", status).Order("created_at ASC").Find(&extractions).Error
	return extractions, err
}

// FindPending finds queued records, oldest first
func (r *SQLiteExtractionRepository) FindPending() ([]*domain.Extraction, error) {
	return r.FindByStatus(domain.StatusQueued)
}

// FindAll finds all records matching the equality filters, newest first
func (r *SQLiteExtractionRepository) FindAll(filters map[string]interface{}) ([]*domain.Extraction, error) {
	var extractions []*domain.Extraction
	query := r.db

	for key, value := range filters {
		if !filterColumns[key] {
			return nil, fmt.Errorf("unsupported filter: %s", key)
		}
		query = query.Where(fmt.Sprintf("%s = ?", key), value)
	}

	err := query.Order("created_at DESC").Find(&extractions).Error
	return extractions, err
}

// CountByStatus returns the number of records in a status
func (r *SQLiteExtractionRepository) CountByStatus(status domain.ExtractionStatus) (int64, error) {
	var count int64
	err := r.db.Model(&domain.Extraction{}).Where("status = ?", status).Count(&count).Error
	return count, err
}

// ResetProcessing puts records left processing by a previous run back in the
// queue
func (r *SQLiteExtractionRepository) ResetProcessing() (int64, error) {
	res := r.db.Model(&domain.Extraction{}).
		Where("status = ?", domain.StatusProcessing).
		Updates(map[string]interface{}{
			"status":     domain.StatusQueued,
			"started_at": nil,
			"updated_at": time.Now(),
		})
	return res.RowsAffected, res.Error
}

// GetStats returns extraction statistics
func (r *SQLiteExtractionRepository) GetStats() (*domain.ExtractionStats, error) {
	stats := &domain.ExtractionStats{}

	if err := r.db.Model(&domain.Extraction{}).Count(&stats.Total).Error; err != nil {
		return nil, err
	}

	statusCounts := []struct {
		Status domain.ExtractionStatus
		Count  int64
	}{}

	if err := r.db.Model(&domain.Extraction{}).
		Select("status, count(*) as count").
		Group("status").
		Scan(&statusCounts).Error; err != nil {
		return nil, err
	}

	for _, sc := range statusCounts {
		switch sc.Status {
		case domain.StatusQueued:
			stats.Queued = sc.Count
		case domain.StatusProcessing:
			stats.Processing = sc.Count
		case domain.StatusCompleted:
			stats.Completed = sc.Count
		case domain.StatusFailed:
			stats.Failed = sc.Count
		case domain.StatusCancelled:
			stats.Cancelled = sc.Count
		}
	}

	return stats, nil
}

// Ping checks the database connection
func (r *SQLiteExtractionRepository) Ping() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

// Close closes the database connection
func (r *SQLiteExtractionRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
