package main

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/yourusername/yt-audio-extract/internal/domain"
	"github.com/yourusername/yt-audio-extract/pkg/logger"
)

var addCmd = &cobra.Command{
	Use:   "add [url]",
	Short: "Queue an extraction",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ensureServer()

		var extraction domain.Extraction
		if err := call(http.MethodPost, "/api/v1/extractions", map[string]string{"url": args[0]}, &extraction); err != nil {
			return err
		}

		fmt.Printf("Extraction queued!\n")
		fmt.Printf("ID:       %s\n", extraction.ID)
		fmt.Printf("Video ID: %s\n", extraction.VideoID)
		fmt.Printf("Status:   %s\n", extraction.Status)

		if follow, _ := cmd.Flags().GetBool("follow"); follow {
			return followExtraction(cmd.Context(), os.Stdout, extraction.ID)
		}
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List extractions",
	RunE: func(cmd *cobra.Command, args []string) error {
		ensureServer()

		path := "/api/v1/extractions"
		if status, _ := cmd.Flags().GetString("status"); status != "" {
			path += "?status=" + url.QueryEscape(status)
		}

		var result struct {
			Extractions []domain.Extraction `json:"extractions"`
		}
		if err := call(http.MethodGet, path, nil, &result); err != nil {
			return err
		}

		printExtractions(os.Stdout, result.Extractions)
		return nil
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show extraction statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		ensureServer()

		var stats domain.ExtractionStats
		if err := call(http.MethodGet, "/api/v1/extractions/stats", nil, &stats); err != nil {
			return err
		}

		fmt.Println("Extraction Statistics:")
		fmt.Printf("  Total:      %d\n", stats.Total)
		fmt.Printf("  Queued:     %d\n", stats.Queued)
		fmt.Printf("  Processing: %d\n", stats.Processing)
		fmt.Printf("  Completed:  %d\n", stats.Completed)
		fmt.Printf("  Failed:     %d\n", stats.Failed)
		fmt.Printf("  Cancelled:  %d\n", stats.Cancelled)
		return nil
	},
}

var getCmd = &cobra.Command{
	Use:   "get [id]",
	Short: "Get extraction details",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ensureServer()

		var extraction domain.Extraction
		if err := call(http.MethodGet, extractionPath(args[0]), nil, &extraction); err != nil {
			return err
		}

		printExtraction(os.Stdout, &extraction)
		return nil
	},
}

var cancelCmd = &cobra.Command{
	Use:   "cancel [id]",
	Short: "Cancel a queued or running extraction",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ensureServer()
		if err := call(http.MethodPost, extractionPath(args[0], "cancel"), nil, nil); err != nil {
			return err
		}
		fmt.Println("Extraction cancelled")
		return nil
	},
}

var retryCmd = &cobra.Command{
	Use:   "retry [id]",
	Short: "Queue a failed or cancelled extraction again",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ensureServer()
		if err := call(http.MethodPost, extractionPath(args[0], "retry"), nil, nil); err != nil {
			return err
		}
		fmt.Println("Extraction queued for retry")
		return nil
	},
}

var cleanupCmd = &cobra.Command{
	Use:   "cleanup [id]",
	Short: "Delete the audio file an extraction produced",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ensureServer()
		var extraction domain.Extraction
		if err := call(http.MethodDelete, extractionPath(args[0], "artifact"), nil, &extraction); err != nil {
			return err
		}
		if extraction.ArtifactPath == "" {
			fmt.Println("Nothing to clean up")
			return nil
		}
		fmt.Printf("Removed %s\n", extraction.ArtifactPath)
		return nil
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete [id]",
	Short: "Delete an extraction record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ensureServer()
		if err := call(http.MethodDelete, extractionPath(args[0]), nil, nil); err != nil {
			return err
		}
		fmt.Println("Extraction deleted")
		return nil
	},
}

var logsCmd = &cobra.Command{
	Use:   "logs [id]",
	Short: "Show lifecycle log entries of an extraction",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ensureServer()

		path := extractionPath(args[0], "logs")
		if date, _ := cmd.Flags().GetString("date"); date != "" {
			path += "?date=" + url.QueryEscape(date)
		}

		var result struct {
			Entries []logger.LogEntry `json:"entries"`
		}
		if err := call(http.MethodGet, path, nil, &result); err != nil {
			return err
		}

		for _, e := range result.Entries {
			fmt.Printf("%s  %-5s  %s\n", e.Timestamp, e.Level, e.Message)
		}
		return nil
	},
}

func init() {
	addCmd.Flags().BoolP("follow", "f", false, "Follow progress until the extraction finishes")
	listCmd.Flags().StringP("status", "s", "", "Filter by status (queued, processing, completed, failed, cancelled)")
	logsCmd.Flags().String("date", "", "Log date, YYYY-MM-DD (default today)")
}

func printExtractions(w io.Writer, extractions []domain.Extraction) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tVIDEO\tSTATUS\tCREATED\tARTIFACT")
	for _, e := range extractions {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			e.ID,
			e.VideoID,
			e.Status,
			e.CreatedAt.Local().Format(time.DateTime),
			truncate(e.ArtifactPath, 50))
	}
	tw.Flush()
}

func printExtraction(w io.Writer, e *domain.Extraction) {
	fmt.Fprintf(w, "Extraction Details:\n")
	fmt.Fprintf(w, "  ID:       %s\n", e.ID)
	fmt.Fprintf(w, "  URL:      %s\n", e.SourceURL)
	fmt.Fprintf(w, "  Video ID: %s\n", e.VideoID)
	fmt.Fprintf(w, "  Status:   %s\n", e.Status)
	fmt.Fprintf(w, "  Retries:  %d\n", e.RetryCount)
	fmt.Fprintf(w, "  Created:  %s\n", e.CreatedAt.Local().Format(time.DateTime))
	if e.ArtifactPath != "" {
		fmt.Fprintf(w, "  File:     %s\n", e.ArtifactPath)
	}
	if e.CleanedAt != nil {
		fmt.Fprintf(w, "  Cleaned:  %s\n", e.CleanedAt.Local().Format(time.DateTime))
	}
	if e.ErrorKind != "" {
		fmt.Fprintf(w, "  Error:    %s (%s)\n", e.ErrorMessage, e.ErrorKind)
	}
}

// truncate shortens s to maxLen runes, marking the cut with "..."
func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
