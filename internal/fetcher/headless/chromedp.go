// Package headless harvests virtually scrolled data grids via chromedp.
package headless

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/graviris/wildweb-scraper/internal/wildweb"
)

// Config controls the behavior of the grid harvester.
type Config struct {
	MaxParallel       int
	UserAgent         string
	NavigationTimeout time.Duration
	GridSettle        time.Duration
	MaxScrollAttempts int
	DefaultTargetRows int
	TargetGrowth      int
}

// Harvester implements wildweb.GridHarvester using chromedp and headless
// Chrome. The incidents page renders a MUI DataGrid whose rows only exist
// in the DOM while visible, so the harvester scrolls the virtual scroller
// and merges whatever rows surface on each pass.
type Harvester struct {
	cfg         Config
	limiter     chan struct{}
	allocator   context.Context
	allocCancel context.CancelFunc
	logger      *zap.Logger
}

const (
	gridSelector     = `[role="grid"]`
	scrollerSelector = `.MuiDataGrid-virtualScroller`

	headersJS = `(() => {
	const out = [];
	document.querySelectorAll("[role='columnheader']").forEach((h) => out.push(h.innerText.trim()));
	return out;
})()`

	visibleRowsJS = `(() => {
	const grid = document.querySelector("[role='grid']");
	if (!grid) { return []; }
	const rows = [];
	grid.querySelectorAll("[role='row'][data-rowindex]").forEach((row) => {
		if ((row.className || "").includes("headerrow")) { return; }
		const cells = [];
		row.querySelectorAll("[role='cell']").forEach((c) => cells.push(c.innerText.trim()));
		rows.push({ index: row.getAttribute("data-rowindex"), cells: cells });
	});
	return rows;
})()`

	pageDownJS = `(() => {
	const s = document.querySelector(".MuiDataGrid-virtualScroller");
	if (!s) { return false; }
	s.scrollTop = s.scrollTop + s.clientHeight;
	return true;
})()`
)

// NewChromedp creates a grid harvester backed by chromedp.
func NewChromedp(cfg Config, logger *zap.Logger) (*Harvester, error) {
	if cfg.MaxParallel <= 0 {
		return nil, fmt.Errorf("max parallel must be > 0")
	}
	if cfg.NavigationTimeout <= 0 {
		cfg.NavigationTimeout = 120 * time.Second
	}
	if cfg.GridSettle <= 0 {
		cfg.GridSettle = 10 * time.Second
	}
	if cfg.MaxScrollAttempts <= 0 {
		cfg.MaxScrollAttempts = 100
	}
	if cfg.DefaultTargetRows <= 0 {
		cfg.DefaultTargetRows = 250
	}
	if cfg.TargetGrowth <= 0 {
		cfg.TargetGrowth = 50
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", "new"),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.WindowSize(1920, 1080),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)

	return &Harvester{
		cfg:         cfg,
		limiter:     make(chan struct{}, cfg.MaxParallel),
		allocator:   allocCtx,
		allocCancel: allocCancel,
		logger:      logger,
	}, nil
}

// Close cancels the allocator context.
func (h *Harvester) Close() {
	h.allocCancel()
}

// Harvest navigates to the grid URL and scrolls until the row target is
// met or progress stalls per the termination rules.
func (h *Harvester) Harvest(ctx context.Context, url string) (wildweb.GridResult, error) {
	if err := h.acquire(ctx); err != nil {
		return wildweb.GridResult{}, err
	}
	defer h.release()

	tabCtx, tabCancel := chromedp.NewContext(h.allocator)
	defer tabCancel()

	taskCtx, cancel := context.WithTimeout(tabCtx, h.cfg.NavigationTimeout)
	defer cancel()

	stopForward := forwardCancel(ctx, cancel)
	defer stopForward()

	meta := newResponseMeta()
	chromedp.ListenTarget(taskCtx, meta.captureEvent)

	start := time.Now()
	if err := chromedp.Run(taskCtx,
		h.networkSetupAction(),
		chromedp.Navigate(url),
		chromedp.WaitReady(gridSelector, chromedp.ByQuery),
		chromedp.Sleep(h.cfg.GridSettle),
	); err != nil {
		return wildweb.GridResult{}, fmt.Errorf("navigate grid: %w", err)
	}

	target := h.readTarget(taskCtx, url)
	columns, err := h.readColumns(taskCtx)
	if err != nil {
		return wildweb.GridResult{}, err
	}

	state := newScrollState(target, h.cfg.TargetGrowth)
	if err := h.scrollAndCollect(taskCtx, url, columns, state); err != nil {
		return wildweb.GridResult{}, err
	}

	var html string
	if err := chromedp.Run(taskCtx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		h.logger.Warn("grid snapshot capture failed", zap.String("url", url), zap.Error(err))
	}

	rows := state.rows()
	return wildweb.GridResult{
		Rows:       rows,
		Processed:  len(rows),
		Target:     state.target,
		StatusCode: meta.status(),
		HTML:       []byte(html),
		Duration:   time.Since(start),
	}, nil
}

// readTarget probes aria-rowcount; the grid counts its header row, so the
// data row target is one less. Falls back to the configured default when
// the attribute is absent or not numeric.
func (h *Harvester) readTarget(ctx context.Context, url string) int {
	var (
		raw string
		ok  bool
	)
	if err := chromedp.Run(ctx, chromedp.AttributeValue(gridSelector, "aria-rowcount", &raw, &ok, chromedp.ByQuery)); err != nil {
		h.logger.Warn("aria-rowcount read failed", zap.String("url", url), zap.Error(err))
		return h.cfg.DefaultTargetRows
	}
	if ok {
		if n, err := strconv.Atoi(raw); err == nil && n > 1 {
			return n - 1
		}
	}
	h.logger.Info("row count unavailable, using default target",
		zap.String("url", url),
		zap.Int("target", h.cfg.DefaultTargetRows),
	)
	return h.cfg.DefaultTargetRows
}

func (h *Harvester) readColumns(ctx context.Context) (columnMap, error) {
	var headers []string
	if err := chromedp.Run(ctx, chromedp.Evaluate(headersJS, &headers)); err != nil {
		return nil, fmt.Errorf("read column headers: %w", err)
	}
	return mapColumns(headers), nil
}

type visibleRow struct {
	Index string   `json:"index"`
	Cells []string `json:"cells"`
}

func (h *Harvester) scrollAndCollect(
	ctx context.Context,
	url string,
	columns columnMap,
	state *scrollState,
) error {
	for attempt := 0; len(state.collected) < state.threshold && attempt < h.cfg.MaxScrollAttempts; attempt++ {
		if err := h.scrollStep(ctx, attempt, state.stagnant); err != nil {
			return err
		}
		if err := chromedp.Run(ctx, chromedp.Sleep(500*time.Millisecond)); err != nil {
			return fmt.Errorf("scroll settle: %w", err)
		}

		var visible []visibleRow
		if err := chromedp.Run(ctx, chromedp.Evaluate(visibleRowsJS, &visible)); err != nil {
			return fmt.Errorf("read visible rows: %w", err)
		}

		if added := state.merge(visible, columns); added > 0 {
			h.logger.Debug("grid rows collected",
				zap.String("url", url),
				zap.Int("rows", len(state.collected)),
				zap.Int("target", state.target),
			)
		}
		if state.extend() {
			h.logger.Debug("row target reached, extending",
				zap.String("url", url),
				zap.Int("threshold", state.threshold),
			)
		}
		if state.done() {
			break
		}
		if state.barren() {
			h.logger.Warn("grid produced no rows", zap.String("url", url))
			break
		}
	}
	return nil
}

// scrollStep pages the virtual scroller down; once progress stalls it
// jumps to varying fractional positions, which dislodges rows the grid
// refuses to render on incremental scrolls.
func (h *Harvester) scrollStep(ctx context.Context, attempt, stagnant int) error {
	js := pageDownJS
	if stagnant >= 3 {
		fraction := float64(attempt%10) / 10
		js = fmt.Sprintf(`(() => {
	const s = document.querySelector(%q);
	if (!s) { return false; }
	s.scrollTop = s.scrollHeight * %0.1f;
	return true;
})()`, scrollerSelector, fraction)
	}
	var scrolled bool
	if err := chromedp.Run(ctx, chromedp.Evaluate(js, &scrolled)); err != nil {
		return fmt.Errorf("scroll grid: %w", err)
	}
	if !scrolled {
		return fmt.Errorf("virtual scroller not found")
	}
	return nil
}

func (h *Harvester) networkSetupAction() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if err := network.Enable().Do(ctx); err != nil {
			return fmt.Errorf("enable network domain: %w", err)
		}
		if h.cfg.UserAgent != "" {
			if err := emulation.SetUserAgentOverride(h.cfg.UserAgent).Do(ctx); err != nil {
				return fmt.Errorf("set user-agent: %w", err)
			}
		}
		return nil
	})
}

func (h *Harvester) acquire(ctx context.Context) error {
	select {
	case h.limiter <- struct{}{}:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("headless slot wait canceled: %w", ctx.Err())
	}
}

func (h *Harvester) release() {
	select {
	case <-h.limiter:
	default:
	}
}

func forwardCancel(parent context.Context, cancel context.CancelFunc) func() {
	if parent == nil {
		return func() {}
	}
	done := make(chan struct{})
	go func() {
		select {
		case <-parent.Done():
			cancel()
		case <-done:
		}
	}()
	return func() { close(done) }
}

type responseMeta struct {
	mu     sync.RWMutex
	code   int
	docURL string
}

func newResponseMeta() *responseMeta {
	return &responseMeta{}
}

func (m *responseMeta) captureEvent(ev any) {
	resp, ok := ev.(*network.EventResponseReceived)
	if !ok || resp.Type != network.ResourceTypeDocument || resp.Response == nil {
		return
	}
	m.mu.Lock()
	m.code = int(resp.Response.Status)
	m.docURL = resp.Response.URL
	m.mu.Unlock()
}

func (m *responseMeta) status() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.code == 0 {
		return 200
	}
	return m.code
}
