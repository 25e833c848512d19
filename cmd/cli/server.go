package main

import (
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"time"
)

const (
	serverBinary       = "ytaudio-server"
	serverBinEnv       = "YTAUDIO_SERVER_BIN"
	serverStartTimeout = 10 * time.Second
	serverPollInterval = 200 * time.Millisecond
)

// serverConfig is forwarded to an auto-started server
var serverConfig string

func init() {
	rootCmd.PersistentFlags().StringVar(&serverConfig, "server-config", "", "Config file passed to an auto-started server")
}

// isServerRunning checks if the server is responding to health checks
func isServerRunning() bool {
	client := &http.Client{Timeout: 1 * time.Second}
	resp, err := client.Get(serverURL + "/health")
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// findServerBinary looks at $YTAUDIO_SERVER_BIN, next to the CLI binary, on
// PATH, and in the usual install locations, in that order
func findServerBinary() (string, error) {
	if bin := os.Getenv(serverBinEnv); bin != "" {
		if _, err := os.Stat(bin); err != nil {
			return "", fmt.Errorf("%s=%s: %w", serverBinEnv, bin, err)
		}
		return bin, nil
	}

	candidates := []string{}
	if execPath, err := os.Executable(); err == nil {
		candidates = append(candidates, filepath.Join(filepath.Dir(execPath), serverBinary))
	}
	if path, err := exec.LookPath(serverBinary); err == nil {
		candidates = append(candidates, path)
	}
	candidates = append(candidates,
		filepath.Join("/usr/local/bin", serverBinary),
		filepath.Join("/usr/bin", serverBinary),
	)
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates,
			filepath.Join(home, "go", "bin", serverBinary),
			filepath.Join(home, ".local", "bin", serverBinary),
		)
	}

	for _, p := range candidates {
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p, nil
		}
	}

	return "", fmt.Errorf("%s binary not found (set %s)", serverBinary, serverBinEnv)
}

// startServerBackground starts the server as a detached background process
func startServerBackground() error {
	serverPath, err := findServerBinary()
	if err != nil {
		return err
	}

	var args []string
	if serverConfig != "" {
		args = append(args, "-config", serverConfig)
	}

	cmd := exec.Command(serverPath, args...)
	cmd.Stdin = nil
	cmd.Stdout = nil
	cmd.Stderr = nil

	// own process group so the server outlives the terminal
	setSysProcAttr(cmd)

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return cmd.Process.Release()
}

// waitForServerReady polls the server until it answers or the timeout passes
func waitForServerReady() error {
	ticker := time.NewTicker(serverPollInterval)
	defer ticker.Stop()
	deadline := time.After(serverStartTimeout)

	for {
		if isServerRunning() {
			return nil
		}
		select {
		case <-ticker.C:
		case <-deadline:
			return fmt.Errorf("server did not start within %v", serverStartTimeout)
		}
	}
}

// ensureServerRunning checks if server is running, starts it if not
func ensureServerRunning() error {
	if isServerRunning() {
		return nil
	}

	fmt.Fprintln(os.Stderr, "Server not running, starting...")

	if err := startServerBackground(); err != nil {
		return err
	}

	if err := waitForServerReady(); err != nil {
		return err
	}

	fmt.Fprintln(os.Stderr, "Server started")
	return nil
}
