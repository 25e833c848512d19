package browser

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"go.uber.org/zap"

	"github.com/yourusername/yt-audio-extract/internal/domain"
	"github.com/yourusername/yt-audio-extract/internal/fingerprint"
)

// ProfileDirPrefix names the per-session Chrome user-data directories
const ProfileDirPrefix = "ytaudio_profile_"

const viewportJS = `() => ({
  w: Math.min(window.innerWidth || 0, document.documentElement.clientWidth || window.innerWidth || 0),
  h: Math.min(window.innerHeight || 0, document.documentElement.clientHeight || window.innerHeight || 0)
})`

// RodOpener launches a dedicated headless Chrome per session through go-rod
type RodOpener struct {
	config      *domain.BrowserConfig
	initScripts []string
	logger      *zap.Logger
}

// NewRodOpener loads and compile-checks the configured init scripts
func NewRodOpener(config *domain.BrowserConfig, logger *zap.Logger) (*RodOpener, error) {
	scripts, err := LoadInitScripts(config.InitScripts)
	if err != nil {
		return nil, err
	}
	return &RodOpener{
		config:      config,
		initScripts: scripts,
		logger:      logger,
	}, nil
}

// Open launches Chrome with the profile applied and downloads bound to
// downloadDir
func (o *RodOpener) Open(ctx context.Context, profile domain.FingerprintProfile, downloadDir string) (Session, error) {
	userDataDir, err := os.MkdirTemp(o.config.ProfileDir, ProfileDirPrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to create profile directory: %w", err)
	}

	l, err := o.launcher(profile, userDataDir)
	if err != nil {
		os.RemoveAll(userDataDir)
		return nil, err
	}

	o.logger.Debug("Launching browser",
		zap.String("viewport", profile.Viewport.String()),
		zap.String("user_agent", profile.UserAgent),
		zap.String("download_dir", downloadDir))

	controlURL, err := l.Launch()
	if err != nil {
		os.RemoveAll(userDataDir)
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	s := &rodSession{
		launcher:    l,
		userDataDir: userDataDir,
		downloadDir: downloadDir,
		profile:     profile,
	}

	s.browser = rod.New().ControlURL(controlURL)
	if err := s.browser.Connect(); err != nil {
		s.browser = nil
		s.Close()
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}

	if err := o.prepare(ctx, s); err != nil {
		s.Close()
		return nil, err
	}

	return s, nil
}

func (o *RodOpener) launcher(profile domain.FingerprintProfile, userDataDir string) (l *launcher.Launcher, err error) {
	// launcher.Set panics on malformed flag names from config
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("invalid browser flag: %v", r)
		}
	}()

	l = launcher.New().
		UserDataDir(userDataDir).
		Leakless(o.config.Leakless).
		Headless(o.config.Headless).
		NoSandbox(o.config.NoSandbox).
		Delete("enable-automation").
		Set("disable-blink-features", "AutomationControlled").
		Set("lang", "en-US").
		Set("disable-gpu").
		Set("disable-dev-shm-usage").
		Set("window-size", fmt.Sprintf("%d,%d", profile.Viewport.Width, profile.Viewport.Height)).
		Set("user-agent", profile.UserAgent)

	if o.config.Headless {
		l = l.Set("headless", "new")
	}

	if o.config.Bin != "" {
		l = l.Bin(o.config.Bin)
	} else if path, ok := launcher.LookPath(); ok {
		l = l.Bin(path)
	}

	for _, raw := range o.config.ExtraFlags {
		name, value, hasValue := strings.Cut(strings.TrimLeft(raw, "-"), "=")
		if name == "" {
			continue
		}
		if hasValue {
			l = l.Set(flags.Flag(name), value)
		} else {
			l = l.Set(flags.Flag(name))
		}
	}

	return l, nil
}

// prepare binds downloads and installs overrides before any navigation
func (o *RodOpener) prepare(ctx context.Context, s *rodSession) error {
	err := proto.BrowserSetDownloadBehavior{
		Behavior:      proto.BrowserSetDownloadBehaviorBehaviorAllow,
		DownloadPath:  s.downloadDir,
		EventsEnabled: true,
	}.Call(s.browser)
	if err != nil {
		return fmt.Errorf("failed to bind download directory: %w", err)
	}

	page, err := stealth.Page(s.browser)
	if err != nil {
		return fmt.Errorf("failed to create stealth page: %w", err)
	}
	s.page = page

	scripts := append([]string{fingerprint.OverrideScript(s.profile.Overrides)}, o.initScripts...)
	for i, js := range scripts {
		if _, err := page.Context(ctx).EvalOnNewDocument(js); err != nil {
			return fmt.Errorf("failed to inject init script %d: %w", i, err)
		}
	}

	err = page.Context(ctx).SetUserAgent(&proto.NetworkSetUserAgentOverride{
		UserAgent:      s.profile.UserAgent,
		AcceptLanguage: strings.Join(s.profile.Overrides.Languages, ","),
	})
	if err != nil {
		return fmt.Errorf("failed to override user agent: %w", err)
	}

	err = page.Context(ctx).SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             s.profile.Viewport.Width,
		Height:            s.profile.Viewport.Height,
		DeviceScaleFactor: 1,
	})
	if err != nil {
		return fmt.Errorf("failed to set viewport: %w", err)
	}

	return nil
}

type rodSession struct {
	launcher    *launcher.Launcher
	browser     *rod.Browser
	page        *rod.Page
	userDataDir string
	downloadDir string
	profile     domain.FingerprintProfile
}

func (s *rodSession) Navigate(ctx context.Context, url string) error {
	p := s.page.Context(ctx)
	if err := p.Navigate(url); err != nil {
		return err
	}
	return p.WaitLoad()
}

func (s *rodSession) Element(ctx context.Context, selector string) (Element, error) {
	el, err := s.page.Context(ctx).Element(selector)
	if err != nil {
		return nil, fmt.Errorf("element %q not found: %w", selector, err)
	}
	return &rodElement{el: el}, nil
}

func (s *rodSession) Viewport(ctx context.Context) (int, int, error) {
	res, err := s.page.Context(ctx).Eval(viewportJS)
	if err != nil {
		return 0, 0, err
	}
	w, h := res.Value.Get("w").Int(), res.Value.Get("h").Int()
	if w <= 0 || h <= 0 {
		return 0, 0, fmt.Errorf("page reported viewport %dx%d", w, h)
	}
	return w, h, nil
}

func (s *rodSession) MoveMouse(ctx context.Context, x, y float64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.page.Mouse.MoveTo(proto.Point{X: x, Y: y})
}

func (s *rodSession) Click(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.page.Mouse.Click(proto.InputMouseButtonLeft, 1)
}

func (s *rodSession) Profile() domain.FingerprintProfile {
	return s.profile
}

func (s *rodSession) DownloadDir() string {
	return s.downloadDir
}

// Close shuts the browser down, kills the process and removes the profile dir
func (s *rodSession) Close() error {
	var errs []error
	if s.browser != nil {
		if err := s.browser.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close browser: %w", err))
		}
	}
	s.launcher.Kill()
	s.launcher.Cleanup()
	if err := os.RemoveAll(s.userDataDir); err != nil {
		errs = append(errs, fmt.Errorf("failed to remove profile directory: %w", err))
	}
	return errors.Join(errs...)
}

type rodElement struct {
	el *rod.Element
}

func (e *rodElement) Focus(ctx context.Context) error {
	return e.el.Context(ctx).Focus()
}

func (e *rodElement) Type(ctx context.Context, text string) error {
	return e.el.Context(ctx).Input(text)
}

func (e *rodElement) Value(ctx context.Context) (string, error) {
	v, err := e.el.Context(ctx).Property("value")
	if err != nil {
		return "", err
	}
	return v.Str(), nil
}

func (e *rodElement) Clear(ctx context.Context) error {
	_, err := e.el.Context(ctx).Eval(`() => {
  this.value = '';
  this.dispatchEvent(new Event('input', { bubbles: true }));
}`)
	return err
}

func (e *rodElement) Center(ctx context.Context) (float64, float64, error) {
	el := e.el.Context(ctx)
	if err := el.ScrollIntoView(); err != nil {
		return 0, 0, err
	}
	shape, err := el.Shape()
	if err != nil {
		return 0, 0, err
	}
	pt := shape.OnePointInside()
	if pt == nil {
		return 0, 0, errors.New("element has no visible area")
	}
	return pt.X, pt.Y, nil
}

func (e *rodElement) Click(ctx context.Context) error {
	return e.el.Context(ctx).Click(proto.InputMouseButtonLeft, 1)
}
