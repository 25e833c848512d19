package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yourusername/yt-audio-extract/internal/domain"
)

var followCmd = &cobra.Command{
	Use:   "follow [id]",
	Short: "Stream an extraction's progress until it finishes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ensureServer()
		return followExtraction(cmd.Context(), os.Stdout, args[0])
	},
}

// errExtractionFailed is returned by follow when the attempt ended without an
// artifact
var errExtractionFailed = errors.New("extraction did not produce an artifact")

// followExtraction prints the server-sent events of one extraction until the
// done sentinel arrives
func followExtraction(ctx context.Context, w io.Writer, id string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, serverURL+extractionPath(id, "events"), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/event-stream")

	// no client timeout: the stream lives as long as the attempt
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var apiErr apiError
		if json.NewDecoder(resp.Body).Decode(&apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("%s", apiErr.Error)
		}
		return fmt.Errorf("server returned %s", resp.Status)
	}

	var last domain.ExtractionEvent
	err = readEvents(resp.Body, func(ev domain.ExtractionEvent) {
		printEvent(w, ev)
		if !ev.IsSentinel() {
			last = ev
		}
	})
	if err != nil {
		return err
	}

	if last.Stage != domain.StageCompleted {
		return errExtractionFailed
	}
	return nil
}

// readEvents parses a text/event-stream body, calling fn for every event
// whose data is an extraction event. It returns once the sentinel has been
// seen or the body ends.
func readEvents(r io.Reader, fn func(domain.ExtractionEvent)) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	var data strings.Builder
	for scanner.Scan() {
		line := scanner.Text()

		if line == "" {
			if data.Len() == 0 {
				continue
			}
			var ev domain.ExtractionEvent
			if err := json.Unmarshal([]byte(data.String()), &ev); err != nil {
				return fmt.Errorf("malformed event: %w", err)
			}
			data.Reset()
			fn(ev)
			if ev.IsSentinel() {
				return nil
			}
			continue
		}

		if value, ok := strings.CutPrefix(line, "data:"); ok {
			if data.Len() > 0 {
				data.WriteByte('\n')
			}
			data.WriteString(strings.TrimPrefix(value, " "))
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("event stream interrupted: %w", err)
	}
	return errors.New("event stream ended before the extraction finished")
}

func printEvent(w io.Writer, ev domain.ExtractionEvent) {
	ts := ev.Time.Local().Format("15:04:05")
	switch {
	case ev.IsSentinel():
		return
	case ev.ErrorKind != "":
		fmt.Fprintf(w, "%s  %-22s %s [%s]\n", ts, ev.Stage, ev.Message, ev.ErrorKind)
	case ev.Percent > 0:
		fmt.Fprintf(w, "%s  %-22s %s (%d%%)\n", ts, ev.Stage, ev.Message, ev.Percent)
	default:
		fmt.Fprintf(w, "%s  %-22s %s\n", ts, ev.Stage, ev.Message)
	}
}
