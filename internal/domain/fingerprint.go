package domain

import "fmt"

// Viewport is a browser window size in CSS pixels
type Viewport struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

func (v Viewport) String() string {
	return fmt.Sprintf("%dx%d", v.Width, v.Height)
}

// PluginMimeType describes one entry of a plugin's mimeTypes list
type PluginMimeType struct {
	Type        string `json:"type"`
	Suffixes    string `json:"suffixes"`
	Description string `json:"description"`
}

// Plugin mirrors what navigator.plugins exposes for one plugin
type Plugin struct {
	Name        string           `json:"name"`
	Filename    string           `json:"filename"`
	Description string           `json:"description"`
	MimeTypes   []PluginMimeType `json:"mimeTypes"`
}

// NavigatorOverrides are applied to every page before its first script runs
type NavigatorOverrides struct {
	HideWebdriver bool     `json:"hide_webdriver"`
	Plugins       []Plugin `json:"plugins"`
	Languages     []string `json:"languages"`
	WebGLVendor   string   `json:"webgl_vendor"`
	WebGLRenderer string   `json:"webgl_renderer"`
}

// FingerprintProfile is the browser identity for one session. It is a value
// type and is never persisted.
type FingerprintProfile struct {
	Viewport  Viewport           `json:"viewport"`
	UserAgent string             `json:"user_agent"`
	Overrides NavigatorOverrides `json:"overrides"`
}
