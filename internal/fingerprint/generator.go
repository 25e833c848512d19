// Package fingerprint draws per-session browser identities from configured
// catalogs.
package fingerprint

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/yourusername/yt-audio-extract/internal/domain"
	"github.com/yourusername/yt-audio-extract/internal/jitter"
)

// Generator produces a fresh FingerprintProfile per call. Catalog draws are
// uniform; the navigator overrides are the same for every profile.
type Generator struct {
	viewports  []domain.Viewport
	userAgents []string
	overrides  domain.NavigatorOverrides
	rnd        *jitter.Source
}

// NewGenerator validates the catalogs and compile-checks the override script
func NewGenerator(cfg domain.FingerprintConfig, rnd *jitter.Source) (*Generator, error) {
	if rnd == nil {
		rnd = jitter.New()
	}

	viewports := make([]domain.Viewport, 0, len(cfg.Viewports))
	for _, raw := range cfg.Viewports {
		vp, err := ParseViewport(raw)
		if err != nil {
			return nil, err
		}
		viewports = append(viewports, vp)
	}
	if len(viewports) == 0 {
		return nil, fmt.Errorf("viewport catalog is empty")
	}

	userAgents := make([]string, 0, len(cfg.UserAgents))
	for _, ua := range cfg.UserAgents {
		if ua = strings.TrimSpace(ua); ua != "" {
			userAgents = append(userAgents, ua)
		}
	}
	if len(userAgents) == 0 {
		return nil, fmt.Errorf("user agent catalog is empty")
	}

	overrides := DefaultOverrides()
	if len(cfg.Languages) > 0 {
		overrides.Languages = append([]string(nil), cfg.Languages...)
	}
	if cfg.WebGLVendor != "" {
		overrides.WebGLVendor = cfg.WebGLVendor
	}
	if cfg.WebGLRenderer != "" {
		overrides.WebGLRenderer = cfg.WebGLRenderer
	}

	if err := CompileCheck("navigator-overrides.js", OverrideScript(overrides)); err != nil {
		return nil, err
	}

	return &Generator{
		viewports:  viewports,
		userAgents: userAgents,
		overrides:  overrides,
		rnd:        rnd,
	}, nil
}

// Generate draws a new profile
func (g *Generator) Generate() domain.FingerprintProfile {
	return domain.FingerprintProfile{
		Viewport:  g.viewports[g.rnd.Intn(len(g.viewports))],
		UserAgent: g.userAgents[g.rnd.Intn(len(g.userAgents))],
		Overrides: cloneOverrides(g.overrides),
	}
}

// ParseViewport parses "WIDTHxHEIGHT"
func ParseViewport(raw string) (domain.Viewport, error) {
	w, h, ok := strings.Cut(strings.ToLower(strings.TrimSpace(raw)), "x")
	if !ok {
		return domain.Viewport{}, fmt.Errorf("invalid viewport %q: want WIDTHxHEIGHT", raw)
	}
	width, err := strconv.Atoi(w)
	if err != nil || width <= 0 {
		return domain.Viewport{}, fmt.Errorf("invalid viewport width in %q", raw)
	}
	height, err := strconv.Atoi(h)
	if err != nil || height <= 0 {
		return domain.Viewport{}, fmt.Errorf("invalid viewport height in %q", raw)
	}
	return domain.Viewport{Width: width, Height: height}, nil
}

// DefaultOverrides hides the webdriver flag, advertises the Chrome PDF
// viewer, and reports an Intel GPU through WebGL.
func DefaultOverrides() domain.NavigatorOverrides {
	return domain.NavigatorOverrides{
		HideWebdriver: true,
		Plugins: []domain.Plugin{
			{
				Name:        "Chrome PDF Plugin",
				Filename:    "internal-pdf-viewer",
				Description: "Portable Document Format",
				MimeTypes: []domain.PluginMimeType{
					{Type: "application/x-google-chrome-pdf", Suffixes: "pdf", Description: "Portable Document Format"},
				},
			},
			{
				Name:        "Chrome PDF Viewer",
				Filename:    "mhjfbmdgcfjbbpaeojofohoefgiehjai",
				Description: "",
				MimeTypes: []domain.PluginMimeType{
					{Type: "application/pdf", Suffixes: "pdf", Description: ""},
				},
			},
		},
		Languages:     []string{"en-US", "en"},
		WebGLVendor:   "Intel Inc.",
		WebGLRenderer: "Intel(R) Iris(TM) Graphics 6100",
	}
}

func cloneOverrides(o domain.NavigatorOverrides) domain.NavigatorOverrides {
	out := o
	out.Languages = append([]string(nil), o.Languages...)
	out.Plugins = make([]domain.Plugin, len(o.Plugins))
	for i, p := range o.Plugins {
		p.MimeTypes = append([]domain.PluginMimeType(nil), p.MimeTypes...)
		out.Plugins[i] = p
	}
	return out
}
