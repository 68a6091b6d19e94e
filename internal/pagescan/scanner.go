// Package pagescan collects foreground/background color pairs from a live
// page rendered in headless Chromium.
package pagescan

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"go.opentelemetry.io/otel/attribute"

	"github.com/onnwee/telesis/internal/contrast"
	"github.com/onnwee/telesis/internal/tracing"
	"github.com/onnwee/telesis/internal/validate"
)

// Scanner errors.
var (
	ErrNoBrowser  = errors.New("no Chromium binary or DevTools URL available")
	ErrInvalidURL = errors.New("scan target must be an absolute http or https URL")
)

// Defaults applied to zero Options fields.
const (
	DefaultMaxElements       = 500
	DefaultNavigationTimeout = 30 * time.Second
)

// Options configures a Scanner.
type Options struct {
	// BrowserBin is the Chromium binary to launch. When empty the system
	// browser is looked up; it is never downloaded.
	BrowserBin string

	// ControlURL connects to an already running browser instead of launching one.
	ControlURL string

	// BlockPrivate rejects targets on loopback, private or link-local
	// networks. Servers scanning caller-supplied URLs should set it.
	BlockPrivate bool

	// Resolver resolves hosts for the private network check. Defaults to
	// net.DefaultResolver.
	Resolver validate.Resolver

	Headless          bool
	NavigationTimeout time.Duration
	MaxElements       int
	Logger            *slog.Logger
}

// Element is a visible element with direct text, as rendered.
type Element struct {
	Selector        string  `json:"selector"`
	Text            string  `json:"text"`
	Color           string  `json:"color"`
	BackgroundColor string  `json:"background_color"`
	FontSize        float64 `json:"font_size"`
	FontWeight      string  `json:"font_weight"`
}

// Pair converts the element to an engine pair. Sizes are computed-style pixels.
func (e Element) Pair() contrast.Pair {
	return contrast.Pair{
		Label:      e.Selector,
		Text:       e.Text,
		Foreground: e.Color,
		Background: e.BackgroundColor,
		FontSize:   e.FontSize,
		FontUnit:   string(contrast.Px),
		FontWeight: contrast.WeightSpec(e.FontWeight),
	}
}

// Scanner launches or connects to Chromium for each scan.
// It holds no browser between scans and is safe for concurrent use.
type Scanner struct {
	opts Options
}

// New creates a Scanner.
func New(opts Options) *Scanner {
	if opts.MaxElements <= 0 {
		opts.MaxElements = DefaultMaxElements
	}
	if opts.NavigationTimeout <= 0 {
		opts.NavigationTimeout = DefaultNavigationTimeout
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Scanner{opts: opts}
}

// HealthCheck reports ErrNoBrowser when no browser can be reached. A
// configured control URL is assumed reachable.
func (s *Scanner) HealthCheck(ctx context.Context) error {
	if s.opts.ControlURL != "" {
		return nil
	}
	_, err := s.browserBin()
	return err
}

func (s *Scanner) browserBin() (string, error) {
	if s.opts.BrowserBin != "" {
		if _, err := os.Stat(s.opts.BrowserBin); err != nil {
			return "", fmt.Errorf("%w: %w", ErrNoBrowser, err)
		}
		return s.opts.BrowserBin, nil
	}
	if path, ok := launcher.LookPath(); ok {
		return path, nil
	}
	return "", ErrNoBrowser
}

// Scan renders target and returns its text elements as engine pairs.
// maxElements <= 0 uses the configured limit.
func (s *Scanner) Scan(ctx context.Context, target string, maxElements int) ([]contrast.Pair, error) {
	elements, err := s.Elements(ctx, target, maxElements)
	if err != nil {
		return nil, err
	}
	pairs := make([]contrast.Pair, len(elements))
	for i, el := range elements {
		pairs[i] = el.Pair()
	}
	return pairs, nil
}

// Elements renders target and collects up to maxElements text elements in
// document order.
func (s *Scanner) Elements(ctx context.Context, target string, maxElements int) (elements []Element, err error) {
	if err := validateTarget(ctx, target, s.opts.BlockPrivate, s.opts.Resolver); err != nil {
		return nil, err
	}
	if maxElements <= 0 || maxElements > s.opts.MaxElements {
		maxElements = s.opts.MaxElements
	}

	ctx, endSpan := tracing.StartClientSpan(ctx, "chromium", "scan", target)
	defer func() { endSpan(err) }()

	browser, cleanup, err := s.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	// An incognito context keeps a shared browser's state untouched and is
	// disposed on Close.
	incognito, err := browser.Incognito()
	if err != nil {
		return nil, fmt.Errorf("create browser context: %w", err)
	}
	defer func() { _ = incognito.Close() }()

	page, err := incognito.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, fmt.Errorf("create page: %w", err)
	}
	page = page.Context(ctx).Timeout(s.opts.NavigationTimeout)
	defer page.CancelTimeout()

	guard := &requestGuard{ctx: ctx, resolver: s.opts.Resolver, logger: s.opts.Logger}
	if s.opts.BlockPrivate {
		router := page.HijackRequests()
		if err := router.Add("*", proto.NetworkResourceTypeDocument, guard.handle); err != nil {
			return nil, fmt.Errorf("intercept requests: %w", err)
		}
		go router.Run()
		defer func() { _ = router.Stop() }()
	}

	start := time.Now()
	if err := page.Navigate(target); err != nil {
		if blocked := guard.blocked(); blocked != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidURL, blocked)
		}
		return nil, fmt.Errorf("navigate to %s: %w", target, err)
	}
	if err := page.WaitLoad(); err != nil {
		return nil, fmt.Errorf("wait for %s to load: %w", target, err)
	}
	if blocked := guard.blocked(); blocked != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidURL, blocked)
	}
	tracing.AddEvent(ctx, "page loaded", attribute.Int64("load_ms", time.Since(start).Milliseconds()))

	res, err := page.Eval(collectScript, maxElements)
	if err != nil {
		return nil, fmt.Errorf("collect elements: %w", err)
	}
	raw, err := res.Value.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("collect elements: %w", err)
	}

	elements, err = decodeElements(raw)
	if err != nil {
		return nil, err
	}

	tracing.SetAttributes(ctx, attribute.Int("pagescan.elements", len(elements)))
	s.opts.Logger.DebugContext(ctx, "page scanned", "url", target, "elements", len(elements))
	return elements, nil
}

// connect returns a connected browser and a cleanup that releases it. A
// launched browser is killed on cleanup; a remote one is only disconnected.
func (s *Scanner) connect(ctx context.Context) (*rod.Browser, func(), error) {
	if s.opts.ControlURL != "" {
		browser := rod.New().ControlURL(s.opts.ControlURL).Context(ctx)
		if err := browser.Connect(); err != nil {
			return nil, nil, fmt.Errorf("connect to browser: %w", err)
		}
		return browser, func() {}, nil
	}

	bin, err := s.browserBin()
	if err != nil {
		return nil, nil, err
	}

	l := launcher.New().Context(ctx).Bin(bin).Headless(s.opts.Headless)
	controlURL, err := l.Launch()
	if err != nil {
		return nil, nil, fmt.Errorf("launch browser: %w", err)
	}

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, nil, fmt.Errorf("connect to browser: %w", err)
	}

	return browser, func() {
		_ = browser.Close()
		l.Kill()
	}, nil
}

func validateTarget(ctx context.Context, target string, blockPrivate bool, resolver validate.Resolver) error {
	constraints := validate.ScanTargetConstraints(blockPrivate)
	constraints.Resolver = resolver
	if _, err := validate.URL(ctx, target, constraints); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}
	return nil
}

// requestGuard re-checks every document request the page makes, including
// redirect hops and frames, against the private network rules. The host is
// resolved again at request time, so a name that re-resolves to an internal
// address after the first check is still refused.
type requestGuard struct {
	ctx      context.Context
	resolver validate.Resolver
	logger   *slog.Logger

	mu    sync.Mutex
	first error
}

func (g *requestGuard) handle(h *rod.Hijack) {
	if err := g.check(h.Request.URL()); err != nil {
		g.mu.Lock()
		if g.first == nil {
			g.first = err
		}
		g.mu.Unlock()
		g.logger.WarnContext(g.ctx, "blocked page request", "url", h.Request.URL().String(), "error", err)
		h.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
		return
	}
	h.ContinueRequest(&proto.FetchContinueRequest{})
}

// check allows http and https requests to public hosts and inline
// documents. Any other scheme is refused.
func (g *requestGuard) check(u *url.URL) error {
	switch u.Scheme {
	case "http", "https":
		return validate.CheckHost(g.ctx, g.resolver, u.Hostname())
	case "about", "data", "blob":
		return nil
	default:
		return fmt.Errorf("%w: scheme %q", validate.ErrDisallowedScheme, u.Scheme)
	}
}

func (g *requestGuard) blocked() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.first
}

func decodeElements(raw []byte) ([]Element, error) {
	var elements []Element
	if err := json.Unmarshal(raw, &elements); err != nil {
		return nil, fmt.Errorf("decode elements: %w", err)
	}
	if elements == nil {
		elements = []Element{}
	}
	return elements, nil
}
