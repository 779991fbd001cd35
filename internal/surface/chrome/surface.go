// Package chrome renders tabs in headless Chrome and reports navigations back
// to the session controller.
package chrome

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"pkt.systems/navygator/internal/logx"
	"pkt.systems/navygator/internal/sessionctx"
	"pkt.systems/navygator/schema"
	"pkt.systems/pslog"
)

// Config configures the browser process.
type Config struct {
	Headless        bool
	ExecPath        string
	NavigateTimeout time.Duration
}

// ReportFunc receives main-frame navigations observed in a tab.
type ReportFunc func(ctx context.Context, id schema.TabID, url string) error

// Surface owns one browser target per tab.
type Surface struct {
	cfg           Config
	log           pslog.Logger
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
	events        chan schema.TabEvent
	done          chan struct{}
	reports       chan navigation
	reportsDone   chan struct{}

	mu      sync.Mutex
	targets map[schema.TabID]*target
	report  ReportFunc
	closed  bool
	// active is the namespace of the last activated event; events from any
	// other namespace are stale.
	active schema.Namespace
}

type navigation struct {
	id  schema.TabID
	url string
}

type target struct {
	ns     schema.Namespace
	ctx    context.Context
	cancel context.CancelFunc
}

// New starts the browser and the event loop.
func New(ctx context.Context, cfg Config, logger pslog.Logger) (*Surface, error) {
	if logger == nil {
		logger = pslog.Ctx(ctx)
	}
	if cfg.NavigateTimeout <= 0 {
		cfg.NavigateTimeout = 30 * time.Second
	}
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
	)
	if cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ExecPath))
	}
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.WithoutCancel(ctx), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, err
	}
	s := newSurface(cfg, logger, browserCtx, browserCancel, allocCancel)
	s.log.Info("chrome surface started", "headless", cfg.Headless)
	return s, nil
}

func newSurface(cfg Config, logger pslog.Logger, browserCtx context.Context, browserCancel, allocCancel context.CancelFunc) *Surface {
	s := &Surface{
		cfg:           cfg,
		log:           logger.With("surface", "chrome"),
		allocCancel:   allocCancel,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
		events:        make(chan schema.TabEvent, 256),
		done:          make(chan struct{}),
		reports:       make(chan navigation, 256),
		reportsDone:   make(chan struct{}),
		targets:       make(map[schema.TabID]*target),
	}
	go s.loop()
	go s.reportLoop()
	return s
}

// SetReporter sets the callback that receives navigations.
func (s *Surface) SetReporter(report ReportFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.report = report
}

// OnTabEvent queues a tab event for the browser loop.
func (s *Surface) OnTabEvent(event schema.TabEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.events <- event:
	default:
		s.log.Warn("chrome surface dropped event", "type", string(event.Type), "tab", int64(event.Tab.ID))
	}
}

// Title returns the document title of a tab.
func (s *Surface) Title(ctx context.Context, id schema.TabID) (string, error) {
	t := s.lookup(id)
	if t == nil {
		return "", schema.ErrTabNotFound
	}
	runCtx, cancel := context.WithTimeout(t.ctx, s.cfg.NavigateTimeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	var title string
	if err := chromedp.Run(runCtx, chromedp.Title(&title)); err != nil {
		return "", err
	}
	return title, nil
}

// Close stops the event loop, closes all targets, and stops the browser.
func (s *Surface) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.events)
	close(s.reports)
	s.mu.Unlock()
	<-s.done
	<-s.reportsDone
	s.mu.Lock()
	for id, t := range s.targets {
		t.cancel()
		delete(s.targets, id)
	}
	s.mu.Unlock()
	s.browserCancel()
	s.allocCancel()
	s.log.Info("chrome surface stopped")
	return nil
}

func (s *Surface) loop() {
	defer close(s.done)
	for event := range s.events {
		s.handle(event)
	}
}

// accepts records the namespace of activated events and reports whether event
// belongs to the active namespace.
func (s *Surface) accepts(event schema.TabEvent) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if event.Type == schema.TabEventActivated {
		s.active = event.Namespace
		return true
	}
	return s.active == "" || event.Namespace == "" || event.Namespace == s.active
}

func (s *Surface) handle(event schema.TabEvent) {
	log := logx.WithTab(s.log.With("namespace", string(event.Namespace)), event.Tab.ID)
	if !s.accepts(event) {
		log.Debug("chrome dropped stale event", "type", string(event.Type))
		return
	}
	switch event.Type {
	case schema.TabEventActivated:
		s.closeAll()
		for _, tab := range event.Tabs {
			if err := s.load(event.Namespace, tab); err != nil {
				logx.WithTab(s.log, tab.ID).Warn("chrome load failed", "url", tab.URL, "err", err)
			}
		}
	case schema.TabEventCreated, schema.TabEventNavigate:
		if err := s.load(event.Namespace, event.Tab); err != nil {
			log.Warn("chrome load failed", "url", event.Tab.URL, "err", err)
		}
	case schema.TabEventClosed:
		s.closeTarget(event.Tab.ID)
		log.Debug("chrome target closed")
	}
}

func (s *Surface) lookup(id schema.TabID) *target {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.targets[id]
}

func (s *Surface) open(ns schema.Namespace, id schema.TabID) (*target, error) {
	if t := s.lookup(id); t != nil {
		return t, nil
	}
	ctx, cancel := chromedp.NewContext(s.browserCtx)
	chromedp.ListenTarget(ctx, func(ev any) {
		navigated, ok := ev.(*page.EventFrameNavigated)
		if !ok || navigated.Frame == nil || navigated.Frame.ParentID != "" {
			return
		}
		s.queueReport(id, navigated.Frame.URL+navigated.Frame.URLFragment)
	})
	if err := chromedp.Run(ctx); err != nil {
		cancel()
		return nil, err
	}
	t := &target{ns: ns, ctx: ctx, cancel: cancel}
	s.mu.Lock()
	s.targets[id] = t
	s.mu.Unlock()
	return t, nil
}

func (s *Surface) load(ns schema.Namespace, tab schema.Tab) error {
	if tab.ID == schema.NoTab {
		return errors.New("missing tab id")
	}
	t, err := s.open(ns, tab.ID)
	if err != nil {
		return err
	}
	if tab.URL == "" {
		return nil
	}
	runCtx, cancel := context.WithTimeout(t.ctx, s.cfg.NavigateTimeout)
	defer cancel()
	if err := chromedp.Run(runCtx, chromedp.Navigate(tab.URL)); err != nil {
		return err
	}
	logx.WithTab(s.log, tab.ID).Debug("chrome loaded", "url", tab.URL)
	return nil
}

func (s *Surface) closeTarget(id schema.TabID) {
	s.mu.Lock()
	t := s.targets[id]
	delete(s.targets, id)
	s.mu.Unlock()
	if t != nil {
		t.cancel()
	}
}

func (s *Surface) closeAll() {
	s.mu.Lock()
	targets := s.targets
	s.targets = make(map[schema.TabID]*target)
	s.mu.Unlock()
	for _, t := range targets {
		t.cancel()
	}
}

// queueReport hands a navigation to the report loop without blocking the
// chromedp event goroutine.
func (s *Surface) queueReport(id schema.TabID, url string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.reports <- navigation{id: id, url: url}:
	default:
		logx.WithTab(s.log, id).Warn("chrome surface dropped navigation", "url", url)
	}
}

// reportLoop delivers navigations one at a time in the order Chrome emitted them.
func (s *Surface) reportLoop() {
	defer close(s.reportsDone)
	for nav := range s.reports {
		s.reportNavigation(nav.id, nav.url)
	}
}

func (s *Surface) reportNavigation(id schema.TabID, url string) {
	s.mu.Lock()
	report := s.report
	t, open := s.targets[id]
	s.mu.Unlock()
	if report == nil || !open || url == "" {
		return
	}
	ctx := sessionctx.WithContext(context.Background(), schema.SessionContext{Namespace: t.ns})
	if err := report(ctx, id, url); err != nil && !errors.Is(err, schema.ErrSessionClosed) {
		logx.WithTab(s.log, id).Debug("chrome navigation report failed", "url", url, "err", err)
	}
}
