package infrastructure

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/yourusername/yt-audio-extract/internal/domain"
)

const notifyTimeout = 5 * time.Second

// commandRunner runs an external notifier binary
type commandRunner func(ctx context.Context, name string, args ...string) error

func runCommand(ctx context.Context, name string, args ...string) error {
	return exec.CommandContext(ctx, name, args...).Run()
}

// NotificationService sends desktop notifications about extractions
type NotificationService struct {
	config *domain.NotificationConfig
	logger *zap.Logger
	run    commandRunner
}

// NewNotificationService creates a new notification service
func NewNotificationService(config *domain.NotificationConfig, logger *zap.Logger) *NotificationService {
	return &NotificationService{
		config: config,
		logger: logger,
		run:    runCommand,
	}
}

// Send sends a notification
func (n *NotificationService) Send(title, message string) error {
	if !n.config.Enabled {
		n.logger.Debug("Notifications disabled, skipping",
			zap.String("title", title),
			zap.String("message", message))
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
	defer cancel()

	var err error
	switch n.config.Method {
	case "osascript":
		err = n.run(ctx, "osascript", "-e", osaScript(title, message, n.config.Sound))
	case "notify-send":
		err = n.run(ctx, "notify-send", "--app-name=ytaudio", title, message)
	default:
		n.logger.Warn("Unknown notification method", zap.String("method", n.config.Method))
		return nil
	}

	if err != nil {
		n.logger.Error("Failed to send notification",
			zap.String("method", n.config.Method),
			zap.Error(err))
		return err
	}

	n.logger.Debug("Notification sent",
		zap.String("title", title),
		zap.String("message", message))
	return nil
}

func osaScript(title, message string, sound bool) string {
	script := fmt.Sprintf(`display notification %s with title %s`, appleQuote(message), appleQuote(title))
	if sound {
		script += ` sound name "Glass"`
	}
	return script
}

func appleQuote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
}

// NotifyExtractionStarted sends notification when an extraction starts
func (n *NotificationService) NotifyExtractionStarted(url string) {
	n.Send("Extraction Started", fmt.Sprintf("Converting: %s", truncateString(url, 40)))
}

// NotifyExtractionCompleted sends notification when the audio file is ready
func (n *NotificationService) NotifyExtractionCompleted(url, artifactPath string) {
	n.Send("Extraction Completed", fmt.Sprintf("Saved %s", filepath.Base(artifactPath)))
}

// NotifyExtractionFailed sends notification when an extraction fails for good
func (n *NotificationService) NotifyExtractionFailed(url string, err error) {
	message := fmt.Sprintf("Failed: %s", truncateString(url, 40))
	if kind := domain.KindOf(err); kind != "" {
		message += fmt.Sprintf(" (%s)", kind)
	}
	n.Send("Extraction Failed", message)
}

// truncateString truncates a string to the specified number of runes
func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen]) + "..."
}
