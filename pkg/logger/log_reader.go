package logger

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// LogEntry is one parsed line of a category log
type LogEntry struct {
	Timestamp string                 `json:"timestamp"`
	Level     string                 `json:"level"`
	Message   string                 `json:"message"`
	Category  string                 `json:"category"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
}

// Query narrows ReadLogs. Zero values match everything.
type Query struct {
	// Text is matched case-insensitively against message, level and field values
	Text string
	// Field requires every key to be present with exactly the given value,
	// e.g. {"id": "<extraction id>"}
	Field map[string]string
	// Limit keeps only the last Limit matches
	Limit int
}

// LogReader reads the category files written by MultiLogger
type LogReader struct {
	logsDir string
}

// NewLogReader creates a new log reader
func NewLogReader(logsDir string) *LogReader {
	return &LogReader{logsDir: logsDir}
}

// GetLogPath returns the path to a category log file for a specific date
func (lr *LogReader) GetLogPath(category LogCategory, date time.Time) string {
	return filepath.Join(lr.logsDir, fmt.Sprintf("%s-%s.log", category, date.Format(dateLayout)))
}

// ReadLogs returns the entries of category on date that match q, oldest first.
// A missing file yields no entries.
func (lr *LogReader) ReadLogs(category LogCategory, date time.Time, q Query) ([]LogEntry, error) {
	file, err := os.Open(lr.GetLogPath(category, date))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []LogEntry{}, nil
		}
		return nil, err
	}
	defer file.Close()

	entries := []LogEntry{}
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		entry := parseEntry(category, line)
		if !q.matches(entry) {
			continue
		}
		entries = append(entries, entry)
		if q.Limit > 0 && len(entries) > 2*q.Limit {
			entries = append(entries[:0:0], entries[len(entries)-q.Limit:]...)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	if q.Limit > 0 && len(entries) > q.Limit {
		entries = entries[len(entries)-q.Limit:]
	}
	return entries, nil
}

func parseEntry(category LogCategory, line string) LogEntry {
	var raw map[string]interface{}
	if err := json.Unmarshal([]byte(line), &raw); err != nil {
		return LogEntry{Level: "info", Message: line, Category: string(category)}
	}

	entry := LogEntry{Category: string(category)}
	entry.Timestamp, _ = raw["ts"].(string)
	entry.Level, _ = raw["level"].(string)
	entry.Message, _ = raw["msg"].(string)
	delete(raw, "ts")
	delete(raw, "level")
	delete(raw, "msg")
	if len(raw) > 0 {
		entry.Fields = raw
	}
	return entry
}

func (q Query) matches(e LogEntry) bool {
	for key, want := range q.Field {
		got, ok := e.Fields[key]
		if !ok || fmt.Sprint(got) != want {
			return false
		}
	}

	if q.Text == "" {
		return true
	}
	text := strings.ToLower(q.Text)
	if strings.Contains(strings.ToLower(e.Message), text) || strings.Contains(strings.ToLower(e.Level), text) {
		return true
	}
	for _, v := range e.Fields {
		if strings.Contains(strings.ToLower(fmt.Sprint(v)), text) {
			return true
		}
	}
	return false
}
