package handlers

import (
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/yt-audio-extract/pkg/logger"
)

const (
	defaultLogLimit = 100
	maxLogLimit     = 1000
)

var logCategories = []logger.LogCategory{
	logger.CategoryExtraction,
	logger.CategoryError,
}

// LogHandler handles log-related requests
type LogHandler struct {
	logReader *logger.LogReader
}

// NewLogHandler creates a new log handler
func NewLogHandler(logsDir string) *LogHandler {
	return &LogHandler{
		logReader: logger.NewLogReader(logsDir),
	}
}

// GetCategories handles GET /api/v1/logs/categories
func (h *LogHandler) GetCategories(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"categories": logCategories})
}

// GetLogs handles GET /api/v1/logs/:category. Optional q does a text
// search and id narrows to one extraction.
func (h *LogHandler) GetLogs(c *gin.Context) {
	category, ok := parseCategory(c)
	if !ok {
		return
	}
	date, ok := parseDate(c)
	if !ok {
		return
	}

	q := logger.Query{
		Text:  c.Query("q"),
		Limit: parseLimit(c),
	}
	if id := c.Query("id"); id != "" {
		q.Field = map[string]string{"id": id}
	}

	h.respond(c, category, date, q)
}

// GetExtractionLogs handles GET /api/v1/extractions/:id/logs
func (h *LogHandler) GetExtractionLogs(c *gin.Context) {
	date, ok := parseDate(c)
	if !ok {
		return
	}

	q := logger.Query{
		Field: map[string]string{"id": c.Param("id")},
		Limit: parseLimit(c),
	}
	h.respond(c, logger.CategoryExtraction, date, q)
}

// ExportLogs handles GET /api/v1/logs/:category/export
func (h *LogHandler) ExportLogs(c *gin.Context) {
	category, ok := parseCategory(c)
	if !ok {
		return
	}
	date, ok := parseDate(c)
	if !ok {
		return
	}

	logPath := h.logReader.GetLogPath(category, date)
	if _, err := os.Stat(logPath); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no log file for that date"})
		return
	}

	filename := string(category) + "-" + date.Format("20060102") + ".log"
	c.FileAttachment(logPath, filename)
}

func (h *LogHandler) respond(c *gin.Context, category logger.LogCategory, date time.Time, q logger.Query) {
	entries, err := h.logReader.ReadLogs(category, date, q)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read logs"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"category": category,
		"date":     date.Format("2006-01-02"),
		"count":    len(entries),
		"entries":  entries,
	})
}

func parseCategory(c *gin.Context) (logger.LogCategory, bool) {
	category := logger.LogCategory(c.Param("category"))
	for _, known := range logCategories {
		if category == known {
			return category, true
		}
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": "invalid category"})
	return "", false
}

func parseDate(c *gin.Context) (time.Time, bool) {
	dateStr := c.Query("date")
	if dateStr == "" {
		return time.Now(), true
	}
	date, err := time.ParseInLocation("2006-01-02", dateStr, time.Local)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date format, use YYYY-MM-DD"})
		return time.Time{}, false
	}
	return date, true
}

func parseLimit(c *gin.Context) int {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultLogLimit)))
	if err != nil || limit < 0 {
		return defaultLogLimit
	}
	if limit > maxLogLimit {
		return maxLogLimit
	}
	return limit
}
