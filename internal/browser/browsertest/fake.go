// Package browsertest provides in-memory browser sessions for tests.
package browsertest

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/yourusername/yt-audio-extract/internal/browser"
	"github.com/yourusername/yt-audio-extract/internal/domain"
)

// Point is a recorded mouse position
type Point struct {
	X, Y float64
}

// Element is a fake input or button
type Element struct {
	Selector string
	X, Y     float64

	TypeErr   error
	ClearErr  error
	CenterErr error
	ClickErr  error
	// DropRunes makes the first n typed runes vanish, simulating a field
	// that loses keystrokes
	DropRunes int

	mu      sync.Mutex
	value   string
	typed   int
	focuses int
	clicks  int
	session *Session
}

func (e *Element) Focus(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.focuses++
	return ctx.Err()
}

func (e *Element) Type(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.TypeErr != nil {
		return e.TypeErr
	}
	for _, r := range text {
		e.typed++
		if e.DropRunes > 0 {
			e.DropRunes--
			continue
		}
		e.value += string(r)
	}
	return nil
}

func (e *Element) Value(ctx context.Context) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.value, ctx.Err()
}

func (e *Element) Clear(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.ClearErr != nil {
		return e.ClearErr
	}
	e.value = ""
	return ctx.Err()
}

func (e *Element) Center(ctx context.Context) (float64, float64, error) {
	if e.CenterErr != nil {
		return 0, 0, e.CenterErr
	}
	return e.X, e.Y, ctx.Err()
}

func (e *Element) Click(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e.mu.Lock()
	if e.ClickErr != nil {
		e.mu.Unlock()
		return e.ClickErr
	}
	e.clicks++
	s := e.session
	e.mu.Unlock()
	if s != nil {
		s.fireClick(e)
	}
	return nil
}

// SetValue replaces the field content
func (e *Element) SetValue(v string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.value = v
}

// TypedRunes counts every rune passed to Type, dropped or not
func (e *Element) TypedRunes() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.typed
}

// Clicks counts element-level clicks
func (e *Element) Clicks() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.clicks
}

// Session is a fake browser.Session. Zero value fields mean success.
type Session struct {
	Elements map[string]*Element

	NavigateErr error
	// BlockNavigate makes Navigate wait for ctx to end
	BlockNavigate bool
	ViewportW     int
	ViewportH     int
	ViewportErr   error
	MouseClickErr error
	CloseErr      error
	// OnClick runs after the convert target is clicked, through the mouse or
	// the element
	OnClick func(s *Session, target *Element)

	mu          sync.Mutex
	profile     domain.FingerprintProfile
	downloadDir string
	navigated   []string
	moves       []Point
	mouseClicks int
	closes      atomic.Int32
}

// NewSession builds a session with the given elements
func NewSession(elements ...*Element) *Session {
	s := &Session{Elements: make(map[string]*Element), ViewportW: 1366, ViewportH: 768}
	for _, el := range elements {
		s.Elements[el.Selector] = el
	}
	return s
}

func (s *Session) Navigate(ctx context.Context, url string) error {
	if s.BlockNavigate {
		<-ctx.Done()
		return ctx.Err()
	}
	if s.NavigateErr != nil {
		return s.NavigateErr
	}
	s.mu.Lock()
	s.navigated = append(s.navigated, url)
	s.mu.Unlock()
	return ctx.Err()
}

func (s *Session) Element(ctx context.Context, selector string) (browser.Element, error) {
	s.mu.Lock()
	el, ok := s.Elements[selector]
	s.mu.Unlock()
	if !ok {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	el.mu.Lock()
	el.session = s
	el.mu.Unlock()
	return el, nil
}

func (s *Session) Viewport(ctx context.Context) (int, int, error) {
	if s.ViewportErr != nil {
		return 0, 0, s.ViewportErr
	}
	return s.ViewportW, s.ViewportH, ctx.Err()
}

func (s *Session) MoveMouse(ctx context.Context, x, y float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.moves = append(s.moves, Point{X: x, Y: y})
	return ctx.Err()
}

// Click clicks at the last mouse position. It fires OnClick when the pointer
// rests on an element's centre.
func (s *Session) Click(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.MouseClickErr != nil {
		return s.MouseClickErr
	}

	s.mu.Lock()
	s.mouseClicks++
	var at *Point
	if n := len(s.moves); n > 0 {
		p := s.moves[n-1]
		at = &p
	}
	var hit *Element
	if at != nil {
		for _, el := range s.Elements {
			if el.X == at.X && el.Y == at.Y {
				hit = el
				break
			}
		}
	}
	s.mu.Unlock()

	if hit != nil {
		s.fireClick(hit)
	}
	return nil
}

func (s *Session) Profile() domain.FingerprintProfile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.profile
}

func (s *Session) DownloadDir() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.downloadDir
}

func (s *Session) Close() error {
	s.closes.Add(1)
	return s.CloseErr
}

// Closes counts Close calls
func (s *Session) Closes() int {
	return int(s.closes.Load())
}

// Moves returns the recorded mouse path
func (s *Session) Moves() []Point {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Point(nil), s.moves...)
}

// MouseClicks counts pointer clicks
func (s *Session) MouseClicks() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mouseClicks
}

// Navigated lists visited URLs
func (s *Session) Navigated() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.navigated...)
}

func (s *Session) fireClick(el *Element) {
	if s.OnClick != nil {
		s.OnClick(s, el)
	}
}

// Opener hands out sessions built by NewSession
type Opener struct {
	// NewSession builds the session for each Open; nil yields an empty session
	NewSession func(profile domain.FingerprintProfile, downloadDir string) *Session
	OpenErr    error

	mu       sync.Mutex
	opens    int
	sessions []*Session
}

func (o *Opener) Open(ctx context.Context, profile domain.FingerprintProfile, downloadDir string) (browser.Session, error) {
	o.mu.Lock()
	o.opens++
	o.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if o.OpenErr != nil {
		return nil, o.OpenErr
	}

	var s *Session
	if o.NewSession != nil {
		s = o.NewSession(profile, downloadDir)
	}
	if s == nil {
		s = NewSession()
	}
	s.mu.Lock()
	s.profile = profile
	s.downloadDir = downloadDir
	s.mu.Unlock()

	o.mu.Lock()
	o.sessions = append(o.sessions, s)
	o.mu.Unlock()
	return s, nil
}

// Opens counts Open calls, failed ones included
func (o *Opener) Opens() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.opens
}

// Sessions returns every session handed out
func (o *Opener) Sessions() []*Session {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]*Session(nil), o.sessions...)
}
