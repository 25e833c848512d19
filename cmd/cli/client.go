package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

var httpClient = &http.Client{Timeout: 30 * time.Second}

// apiError is the JSON error body returned by the server
type apiError struct {
	Error     string `json:"error"`
	ErrorKind string `json:"error_kind,omitempty"`
}

// call sends a request to the server and decodes a 2xx JSON response into
// out. Non-2xx responses become errors carrying the server's message.
func call(method, path string, payload, out interface{}) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, serverURL+path, body)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach server: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr apiError
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
			if apiErr.ErrorKind != "" {
				return fmt.Errorf("%s (%s)", apiErr.Error, apiErr.ErrorKind)
			}
			return fmt.Errorf("%s", apiErr.Error)
		}
		return fmt.Errorf("server returned %s", resp.Status)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func extractionPath(id string, suffix ...string) string {
	p := "/api/v1/extractions/" + url.PathEscape(id)
	for _, s := range suffix {
		p += "/" + s
	}
	return p
}
