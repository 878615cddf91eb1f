package preview

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/study-groups/mdpublish/internal/embed"
	"github.com/study-groups/mdpublish/internal/fileutil"
	"github.com/study-groups/mdpublish/internal/logging"
	"github.com/study-groups/mdpublish/internal/process"
)

// Browser check errors.
var (
	ErrBrowserConnect = errors.New("failed to connect to browser")
	ErrPageLoad       = errors.New("failed to load preview page")
	ErrNotReady       = errors.New("preview did not report ready")
)

// DefaultLoadTimeout bounds loading the container page, before the
// readiness bound starts.
const DefaultLoadTimeout = 30 * time.Second

// CheckResult is the outcome of a successful check.
type CheckResult struct {
	EmbedID string
	Settle  time.Duration // from container load to the readiness message
}

// Checker verifies that a preview document reports readiness.
type Checker interface {
	Check(ctx context.Context, document, embedID string, bound time.Duration) (*CheckResult, error)
	Close() error
}

var _ Checker = (*BrowserChecker)(nil)

// BrowserChecker loads preview documents in headless Chrome inside the
// container page. Rod downloads Chromium on first use unless ROD_BROWSER_BIN
// points at an installed browser.
//
// The browser is started lazily and reused across checks; Close stops it.
type BrowserChecker struct {
	loadTimeout time.Duration
	log         logging.Logger

	mu       sync.Mutex
	launcher *launcher.Launcher
	browser  *rod.Browser
}

// CheckerOption configures a BrowserChecker.
type CheckerOption func(*BrowserChecker)

// WithLoadTimeout sets the page load timeout. Panics if d is not positive.
func WithLoadTimeout(d time.Duration) CheckerOption {
	if d <= 0 {
		panic(fmt.Sprintf("preview: load timeout must be positive, got %v", d))
	}
	return func(c *BrowserChecker) { c.loadTimeout = d }
}

// WithCheckerLogger sets the logger.
func WithCheckerLogger(l logging.Logger) CheckerOption {
	return func(c *BrowserChecker) { c.log = logging.OrNop(l) }
}

// NewBrowserChecker creates a BrowserChecker. No browser is started yet.
func NewBrowserChecker(opts ...CheckerOption) *BrowserChecker {
	c := &BrowserChecker{loadTimeout: DefaultLoadTimeout, log: logging.Nop()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Check embeds document in the container page and waits up to bound for
// the readiness message carrying embedID. bound is normally
// Publisher.Readiness().Bound(); a short margin covers script start-up.
func (c *BrowserChecker) Check(ctx context.Context, document, embedID string, bound time.Duration) (*CheckResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	page, err := renderPage(pageData{Title: "preview check", EmbedID: embedID, Document: document})
	if err != nil {
		return nil, err
	}
	path, cleanup, err := fileutil.WriteTempFile(page, "html")
	if err != nil {
		return nil, err
	}
	defer cleanup()

	browser, err := c.ensureBrowser()
	if err != nil {
		return nil, err
	}

	p, err := browser.Context(ctx).Page(proto.TargetCreateTarget{URL: "file://" + path})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPageLoad, err)
	}
	defer func() { _ = p.Close() }()

	if err := p.Timeout(c.loadTimeout).WaitLoad(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %v", ErrPageLoad, err)
	}

	wait := bound + bound/10 + time.Second
	err = p.Timeout(wait).Wait(rod.Eval(fmt.Sprintf("() => window.%s !== undefined", readyGlobal)))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w within %v", ErrNotReady, wait)
	}

	obj, err := p.Eval(fmt.Sprintf("() => window.%s", readyGlobal))
	if err != nil {
		return nil, fmt.Errorf("%w: reading readiness: %v", ErrNotReady, err)
	}
	msg, err := embed.Decode([]byte(obj.Value.Get("message").Str()))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotReady, err)
	}

	settle := time.Duration(obj.Value.Get("settleMs").Num() * float64(time.Millisecond))
	c.log.Info("preview ready", "embed", msg.EmbedID, "settle", settle)
	return &CheckResult{EmbedID: msg.EmbedID, Settle: settle}, nil
}

// ensureBrowser lazily launches and connects to the browser.
func (c *BrowserChecker) ensureBrowser() (*rod.Browser, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.browser != nil {
		return c.browser, nil
	}

	l := launcher.New()

	// Use pre-installed browser if specified (Docker/containerized environments)
	if bin := os.Getenv("ROD_BROWSER_BIN"); bin != "" {
		l = l.Bin(bin)
	}

	// NoSandbox required for CI and containerized environments
	if os.Getenv("CI") == "true" || os.Getenv("ROD_BROWSER_BIN") != "" || os.Getenv("ROD_NO_SANDBOX") == "1" {
		l = l.NoSandbox(true)
	}

	u, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBrowserConnect, err)
	}

	browser := rod.New().ControlURL(u)
	if err := browser.Connect(); err != nil {
		c.kill(l)
		return nil, fmt.Errorf("%w: %v", ErrBrowserConnect, err)
	}

	c.launcher = l
	c.browser = browser
	return browser, nil
}

// Close stops the browser and its child processes.
func (c *BrowserChecker) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var err error
	if c.browser != nil {
		err = c.browser.Close()
		c.browser = nil
	}
	if c.launcher != nil {
		c.kill(c.launcher)
		c.launcher = nil
	}
	return err
}

func (c *BrowserChecker) kill(l *launcher.Launcher) {
	pid := l.PID()
	l.Kill()
	if err := process.KillGroup(pid); err != nil {
		c.log.Warn("browser cleanup failed", "pid", pid, "error", err)
	}
	l.Cleanup()
}
