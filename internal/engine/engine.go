package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"dealsift/internal/config"
	"dealsift/internal/extract"
	"dealsift/internal/fetcher"
	"dealsift/internal/locator"
	"dealsift/internal/normalize"
	"dealsift/internal/observability"
	"dealsift/internal/pipeline"
	"dealsift/internal/storage"
	"dealsift/internal/types"
)

// Engine drives a paginated scrape: it fans page fetches out to workers,
// extracts listings from each page, funnels them through the pipeline into
// the run accumulator, and flushes accepted listings to storage in batches.
type Engine struct {
	cfg       *config.Config
	fetcher   fetcher.Fetcher
	locator   *locator.Locator
	extractor *extract.Extractor
	pipeline  *pipeline.Pipeline
	acc       *normalize.Accumulator
	store     storage.Storage
	metrics   *observability.Metrics
	logger    *slog.Logger
}

// Result summarizes a completed run.
type Result struct {
	PagesScraped   int
	PagesFailed    int
	ListingsStored int
	Duplicates     int
	Duration       time.Duration
	StoppedEarly   bool
}

// pageResult is what a worker reports back per page. A page is empty when
// zero containers were located on it, which is how exhaustion shows up.
type pageResult struct {
	page  int
	empty bool
	err   error
}

// pageStatus is the folded-in outcome of one page, keyed by page number
// until the coordinator's frontier reaches it.
type pageStatus struct {
	empty  bool
	failed bool
}

// New assembles an engine from its parts.
func New(
	cfg *config.Config,
	f fetcher.Fetcher,
	loc *locator.Locator,
	ext *extract.Extractor,
	pipe *pipeline.Pipeline,
	store storage.Storage,
	metrics *observability.Metrics,
	logger *slog.Logger,
) *Engine {
	return &Engine{
		cfg:       cfg,
		fetcher:   f,
		locator:   loc,
		extractor: ext,
		pipeline:  pipe,
		acc:       normalize.NewAccumulator(cfg.Engine.MaxPages * cfg.Locator.MaxContainers),
		store:     store,
		metrics:   metrics,
		logger:    logger.With("component", "engine"),
	}
}

// Run scrapes baseURL page by page until the page budget is spent, the site
// is exhausted (EmptyPageLimit consecutive empty pages), or ctx is cancelled.
// Cancellation is not an error: the partial result is flushed and returned.
func (e *Engine) Run(ctx context.Context, baseURL string) (*Result, error) {
	if err := config.ValidateURL(baseURL); err != nil {
		return nil, err
	}

	start := time.Now()
	startPage := 1

	if cp, err := LoadCheckpoint(e.cfg.Engine.CheckpointPath); err == nil && cp != nil && cp.BaseURL == baseURL {
		e.acc.Import(cp.Identifiers)
		startPage = cp.LastPage + 1
		e.logger.Info("resuming from checkpoint",
			"last_page", cp.LastPage,
			"known_identifiers", len(cp.Identifiers),
		)
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	pages := make(chan int)
	results := make(chan pageResult, e.cfg.Engine.Concurrency)

	go func() {
		defer close(pages)
		for p := startPage; p <= e.cfg.Engine.MaxPages; p++ {
			select {
			case pages <- p:
			case <-runCtx.Done():
				return
			}
		}
	}()

	var wg sync.WaitGroup
	for i := 0; i < e.cfg.Engine.Concurrency; i++ {
		wg.Add(1)
		go e.worker(runCtx, &wg, baseURL, pages, results)
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	res, frontier := e.coordinate(cancel, startPage, results)
	res.Duration = time.Since(start)
	res.Duplicates = e.acc.Dropped()

	stored, err := e.flush()
	res.ListingsStored += stored
	if err != nil {
		e.logger.Error("final flush failed", "error", err)
	}

	if e.cfg.Engine.CheckpointPath != "" {
		cp := &Checkpoint{
			BaseURL:     baseURL,
			LastPage:    frontier,
			Identifiers: e.acc.Export(),
			SavedAt:     time.Now(),
		}
		if err := cp.Save(e.cfg.Engine.CheckpointPath); err != nil {
			e.logger.Warn("checkpoint save failed", "error", err)
		}
	}

	snap := e.metrics.Snapshot()
	e.logger.Info("run complete",
		"pages", res.PagesScraped,
		"failed_pages", res.PagesFailed,
		"unique_listings", e.acc.Len(),
		"duplicates", res.Duplicates,
		"stored", res.ListingsStored,
		"fallback_pages", snap.FallbackLocations,
		"duration", res.Duration.Round(time.Millisecond),
	)

	if ctx.Err() != nil {
		return res, types.ErrRunStopped
	}
	return res, err
}

// coordinate consumes worker results, tracks the consecutive-empty streak in
// page order, and stops dispatch when the site looks exhausted. Results can
// arrive out of order with parallel workers, so emptiness is folded in only
// along the contiguous page frontier. The second return is the highest page
// through which every page from startPage succeeded: the safe resume point,
// since a failed or never-processed page below it would otherwise be lost.
func (e *Engine) coordinate(cancel context.CancelFunc, startPage int, results <-chan pageResult) (*Result, int) {
	res := &Result{}
	statusByPage := make(map[int]pageStatus)
	next := startPage
	lastClean := startPage - 1
	streak := 0
	processed := 0

	for r := range results {
		processed++
		if r.err != nil {
			res.PagesFailed++
			e.metrics.PagesFailed.Add(1)
			e.logger.Warn("page failed", "page", r.page, "error", r.err)
			// A failed page is treated as non-empty so exhaustion is only
			// declared on real evidence.
			statusByPage[r.page] = pageStatus{failed: true}
		} else {
			res.PagesScraped++
			statusByPage[r.page] = pageStatus{empty: r.empty}
		}

		for {
			st, ok := statusByPage[next]
			if !ok {
				break
			}
			delete(statusByPage, next)
			if !st.failed && lastClean == next-1 {
				lastClean = next
			}
			next++
			if st.empty {
				streak++
			} else {
				streak = 0
			}
			if streak >= e.cfg.Engine.EmptyPageLimit {
				e.logger.Info("site exhausted, stopping dispatch",
					"consecutive_empty", streak,
					"last_page", next-1,
				)
				res.StoppedEarly = true
				cancel()
			}
		}

		if e.cfg.Engine.FlushEvery > 0 && processed%e.cfg.Engine.FlushEvery == 0 {
			stored, err := e.flush()
			res.ListingsStored += stored
			if err != nil {
				e.logger.Error("flush failed", "error", err)
			}
		}
	}

	return res, lastClean
}

// worker fetches and processes pages until the page channel closes.
func (e *Engine) worker(ctx context.Context, wg *sync.WaitGroup, baseURL string, pages <-chan int, results chan<- pageResult) {
	defer wg.Done()

	for page := range pages {
		select {
		case <-ctx.Done():
			return
		default:
		}

		empty, err := e.scrapePage(ctx, baseURL, page)
		select {
		case results <- pageResult{page: page, empty: empty, err: err}:
		case <-ctx.Done():
			return
		}

		if e.cfg.Engine.PolitenessDelay > 0 {
			select {
			case <-time.After(e.cfg.Engine.PolitenessDelay):
			case <-ctx.Done():
				return
			}
		}
	}
}

// scrapePage fetches one index page and runs location + extraction over it.
// Returns whether the page was empty (zero containers located).
func (e *Engine) scrapePage(ctx context.Context, baseURL string, page int) (bool, error) {
	req, err := types.NewPageRequest(baseURL, e.cfg.Engine.PageParam, page)
	if err != nil {
		return false, err
	}
	req.Timeout = e.cfg.Engine.RequestTimeout

	resp, err := e.fetchWithRetry(ctx, req)
	if err != nil {
		return false, err
	}
	e.metrics.PagesFetched.Add(1)
	e.metrics.BytesFetched.Add(int64(len(resp.Body)))

	if len(resp.Body) == 0 {
		return false, &types.ExtractError{Page: req.URLString(), Err: types.ErrEmptyResponse}
	}

	doc, err := resp.Document()
	if err != nil {
		return false, &types.ExtractError{Page: req.URLString(), Err: err}
	}

	containers, strategy, err := e.locator.Locate(doc)
	if err != nil {
		return false, &types.ExtractError{Page: req.URLString(), Err: err}
	}
	if strategy == locator.StrategyFallback && len(containers) > 0 {
		e.metrics.FallbackLocations.Add(1)
	}
	if len(containers) == 0 {
		e.metrics.PagesEmpty.Add(1)
		e.logger.Debug("empty page", "page", page)
		return true, nil
	}
	e.metrics.ContainersLocated.Add(int64(len(containers)))

	accepted := 0
	for _, c := range containers {
		l := e.extractor.Extract(c, resp.FinalURL)
		e.metrics.ListingsExtracted.Add(1)
		if l.Synthetic() {
			e.metrics.SyntheticIDsIssued.Add(1)
		}

		if !e.extractor.Accepted(l) {
			e.metrics.ListingsRejected.Add(1)
			continue
		}

		processed, err := e.pipeline.Process(l)
		if err != nil {
			e.logger.Warn("pipeline error", "page", page, "identifier", l.Identifier, "error", err)
			continue
		}
		if processed == nil {
			e.metrics.ListingsRejected.Add(1)
			continue
		}

		if e.acc.Insert(processed) {
			e.metrics.ListingsAccepted.Add(1)
			accepted++
		} else {
			e.metrics.ListingsDuplicate.Add(1)
		}
	}

	e.logger.Debug("page scraped",
		"page", page,
		"containers", len(containers),
		"accepted", accepted,
	)
	return false, nil
}

// fetchWithRetry retries retryable fetch failures up to MaxRetries, honoring
// server-provided Retry-After hints over the configured backoff.
func (e *Engine) fetchWithRetry(ctx context.Context, req *types.PageRequest) (*types.PageResponse, error) {
	var lastErr error

	for attempt := 0; attempt <= e.cfg.Engine.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := e.cfg.Engine.RetryDelay * time.Duration(attempt)
			var fe *types.FetchError
			if errors.As(lastErr, &fe) && fe.RetryAfter > delay {
				delay = fe.RetryAfter
			}
			e.logger.Debug("retrying fetch",
				"url", req.URLString(),
				"attempt", attempt,
				"delay", delay,
			)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		resp, err := e.fetcher.Fetch(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		req.RetryCount = attempt + 1

		var fe *types.FetchError
		if errors.As(err, &fe) && !fe.Retryable {
			return nil, err
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}

	return nil, fmt.Errorf("%w: %v", types.ErrMaxRetries, lastErr)
}

// flush drains newly accumulated listings into storage.
func (e *Engine) flush() (int, error) {
	batch := e.acc.Drain()
	if len(batch) == 0 {
		return 0, nil
	}

	if err := e.store.Store(batch); err != nil {
		return 0, err
	}

	e.metrics.FlushBatches.Add(1)
	e.logger.Debug("batch flushed", "listings", len(batch), "backend", e.store.Name())
	return len(batch), nil
}

// Accumulator exposes the run accumulator, mainly for offline extraction and
// tests.
func (e *Engine) Accumulator() *normalize.Accumulator {
	return e.acc
}
