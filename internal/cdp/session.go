// Package cdp streams console activity of a Chrome DevTools Protocol page
// into a source.Hub so the page can be watched like any other frame target.
package cdp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	loggingpkg "github.com/drblury/resourcewatch/internal/runtime/logging"
	"github.com/drblury/resourcewatch/internal/runtime/source"
	"github.com/drblury/resourcewatch/internal/runtime/target"
)

// ErrNoPage is returned when no open page matches the configured filter.
var ErrNoPage = errors.New("cdp: no matching page")

// Config selects the browser and page to attach to.
type Config struct {
	// ControlURL is the DevTools websocket of a running browser. When empty a
	// local browser is launched.
	ControlURL string
	// PageMatch picks the first page whose URL contains it. Empty picks the
	// first page, opening a blank one if none exists.
	PageMatch string
	Headless  bool
}

// NavigateFunc is called after the main frame committed a new document. The
// handle already reports the new window.
type NavigateFunc func(h *target.Handle)

// Session is one attached page.
type Session struct {
	cfg    Config
	hub    *source.Hub
	logger loggingpkg.ServiceLogger

	browser  *rod.Browser
	page     *rod.Page
	launcher *launcher.Launcher
	handle   *target.Handle

	windowID atomic.Uint64

	mu         sync.Mutex
	onNavigate NavigateFunc
	cancel     context.CancelFunc
	done       chan struct{}
}

// Connect attaches to the browser and resolves the page. Console events are
// only streamed once the returned handle is attached by a watch.
func Connect(ctx context.Context, cfg Config, hub *source.Hub, logger loggingpkg.ServiceLogger) (*Session, error) {
	if hub == nil {
		return nil, errors.New("cdp: hub is required")
	}
	if logger == nil {
		logger = loggingpkg.NewNopServiceLogger()
	}
	s := &Session{cfg: cfg, hub: hub, logger: logger}

	controlURL := cfg.ControlURL
	if controlURL == "" {
		s.launcher = launcher.New().Headless(cfg.Headless)
		u, err := s.launcher.Launch()
		if err != nil {
			return nil, fmt.Errorf("launch browser: %w", err)
		}
		controlURL = u
	}

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		s.cleanupLauncher()
		return nil, fmt.Errorf("connect to browser: %w", err)
	}
	s.browser = browser

	page, err := s.findPage()
	if err != nil {
		_ = s.Close()
		return nil, err
	}
	s.page = page

	s.windowID.Store(1)
	handle, err := target.NewHandle(target.HandleConfig{
		ParentID: "cdp",
		Kind:     target.KindFrame,
		Window:   &target.Window{ID: 1, NavigationStart: time.Now()},
		OnAttach: s.attach,
	})
	if err != nil {
		_ = s.Close()
		return nil, err
	}
	s.handle = handle

	s.logger.Info("Connected to DevTools page", loggingpkg.LogFields{
		"target_id": handle.ActorID(),
		"launched":  s.launcher != nil,
	})
	return s, nil
}

func (s *Session) findPage() (*rod.Page, error) {
	pages, err := s.browser.Pages()
	if err != nil {
		return nil, fmt.Errorf("list pages: %w", err)
	}
	for _, p := range pages {
		if s.cfg.PageMatch == "" {
			return p, nil
		}
		info, err := p.Info()
		if err != nil {
			continue
		}
		if strings.Contains(info.URL, s.cfg.PageMatch) {
			return p, nil
		}
	}
	if s.cfg.PageMatch != "" {
		return nil, fmt.Errorf("%w: %q", ErrNoPage, s.cfg.PageMatch)
	}
	page, err := s.browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return nil, fmt.Errorf("open page: %w", err)
	}
	return page, nil
}

// Target returns the frame target backed by the page.
func (s *Session) Target() *target.Handle {
	return s.handle
}

// OnNavigate registers fn to run after every main frame navigation.
func (s *Session) OnNavigate(fn NavigateFunc) {
	s.mu.Lock()
	s.onNavigate = fn
	s.mu.Unlock()
}

// attach enables the Runtime, Page and Debugger domains and starts streaming
// events. The Debugger domain only reports parsed scripts so source ids
// resolve; pauses are skipped.
func (s *Session) attach(ctx context.Context) error {
	streamCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	page := s.page.Context(streamCtx)

	wait := page.EachEvent(
		s.scriptParsed,
		s.consoleAPICalled,
		func(ev *proto.PageFrameNavigated) {
			if ev.Frame == nil || ev.Frame.ParentID != "" {
				return
			}
			s.navigated(ev.Frame.URL)
		},
	)

	if err := (proto.PageEnable{}).Call(page); err != nil {
		cancel()
		return fmt.Errorf("enable page domain: %w", err)
	}
	if _, err := (proto.DebuggerEnable{}).Call(page); err != nil {
		cancel()
		return fmt.Errorf("enable debugger domain: %w", err)
	}
	if err := (proto.DebuggerSetSkipAllPauses{Skip: true}).Call(page); err != nil {
		cancel()
		return fmt.Errorf("skip debugger pauses: %w", err)
	}
	if err := (proto.RuntimeEnable{}).Call(page); err != nil {
		cancel()
		return fmt.Errorf("enable runtime domain: %w", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		wait()
	}()

	s.mu.Lock()
	s.cancel = cancel
	s.done = done
	s.mu.Unlock()
	return nil
}

// scriptParsed registers the script so stack frames naming it resolve to a
// source actor. Events are handled in order, so a script is always known
// before console calls made from it.
func (s *Session) scriptParsed(ev *proto.DebuggerScriptParsed) {
	if ev.ScriptID == "" {
		return
	}
	s.handle.RegisterSource(string(ev.ScriptID))
}

func (s *Session) consoleAPICalled(ev *proto.RuntimeConsoleAPICalled) {
	s.hub.Emit(RawMessage(ev, s.windowID.Load(), time.Now()))
}

func (s *Session) navigated(url string) {
	prev := s.windowID.Load()
	next := s.windowID.Add(1)
	cleared := s.hub.ClearWindow(prev)
	released := s.handle.Navigate(target.Window{ID: next, NavigationStart: time.Now()})

	s.logger.Debug("Page navigated", loggingpkg.LogFields{
		"url":             url,
		"window_id":       next,
		"cleared":         cleared,
		"actors_released": released,
	})

	s.mu.Lock()
	fn := s.onNavigate
	s.mu.Unlock()
	if fn != nil {
		fn(s.handle)
	}
}

// Close stops the event stream. A browser launched by Connect is shut down;
// a browser reached through ControlURL is left running.
func (s *Session) Close() error {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}

	var err error
	if s.launcher != nil && s.browser != nil {
		err = s.browser.Close()
	}
	s.cleanupLauncher()
	return err
}

func (s *Session) cleanupLauncher() {
	if s.launcher != nil {
		s.launcher.Cleanup()
		s.launcher = nil
	}
}
