package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"dealsift/internal/config"
	"dealsift/internal/extract"
	"dealsift/internal/locator"
	"dealsift/internal/observability"
	"dealsift/internal/pipeline"
	"dealsift/internal/types"
)

// stubFetcher serves canned HTML per page number; unknown pages get an empty
// results page, pages listed in fail return an error.
type stubFetcher struct {
	mu    sync.Mutex
	pages map[int]string
	fail  map[int]error
	calls int
}

const emptyResultsPage = `<html><body><p>No results found for this search.</p></body></html>`

func (f *stubFetcher) Fetch(ctx context.Context, req *types.PageRequest) (*types.PageResponse, error) {
	f.mu.Lock()
	f.calls++
	failErr := f.fail[req.Page]
	body, ok := f.pages[req.Page]
	f.mu.Unlock()
	if failErr != nil {
		return nil, failErr
	}
	if !ok {
		body = emptyResultsPage
	}
	return types.NewBrowserPageResponse(req, 200, []byte(body), req.URLString(), time.Millisecond), nil
}

func (f *stubFetcher) Close() error { return nil }
func (f *stubFetcher) Type() string { return "stub" }

// memStorage records stored listings in memory.
type memStorage struct {
	mu       sync.Mutex
	listings []*types.Listing
	batches  int
}

func (s *memStorage) Name() string { return "mem" }

func (s *memStorage) Store(listings []*types.Listing) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listings = append(s.listings, listings...)
	s.batches++
	return nil
}

func (s *memStorage) Close() error { return nil }

func indexPage(ids ...int) string {
	page := "<html><body>"
	for _, id := range ids {
		page += fmt.Sprintf(`<div id="listing-%d">
			<h3>Business number %d with a descriptive headline</h3>
			<a href="/%d">View Listing</a>
			<p>$45,000 asking, $1,500/mo revenue</p>
		</div>`, id, id, id)
	}
	return page + "</body></html>"
}

func testEngine(t *testing.T, f *stubFetcher, store *memStorage, mutate func(*config.Config)) *Engine {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	cfg := config.DefaultConfig()
	cfg.Engine.Concurrency = 1 // deterministic page order
	cfg.Engine.PolitenessDelay = 0
	cfg.Engine.MaxPages = 10
	cfg.Engine.EmptyPageLimit = 2
	cfg.Engine.MaxRetries = 0
	cfg.Engine.CheckpointPath = ""
	if mutate != nil {
		mutate(cfg)
	}

	pipe := pipeline.New(logger)
	pipe.Use(&pipeline.TrimMiddleware{})

	return New(cfg, f,
		locator.New(&cfg.Locator, logger),
		extract.New(&cfg.Extractor, logger),
		pipe, store, observability.NewMetrics(), logger,
	)
}

func TestRunStopsOnConsecutiveEmptyPages(t *testing.T) {
	f := &stubFetcher{pages: map[int]string{
		1: indexPage(1183001, 1183002),
		2: indexPage(1183003),
	}}
	store := &memStorage{}
	eng := testEngine(t, f, store, nil)

	res, err := eng.Run(context.Background(), "https://example.com/search")
	if err != nil {
		t.Fatal(err)
	}

	if !res.StoppedEarly {
		t.Error("expected early stop on exhaustion")
	}
	if f.calls >= 10 {
		t.Errorf("fetch calls = %d, expected stop well before the page budget", f.calls)
	}
	if len(store.listings) != 3 {
		t.Fatalf("stored = %d, want 3", len(store.listings))
	}
}

func TestRunDeduplicatesAcrossPages(t *testing.T) {
	f := &stubFetcher{pages: map[int]string{
		1: indexPage(1183001, 1183002),
		2: indexPage(1183002, 1183003), // 1183002 repeats
	}}
	store := &memStorage{}
	eng := testEngine(t, f, store, nil)

	res, err := eng.Run(context.Background(), "https://example.com/search")
	if err != nil {
		t.Fatal(err)
	}

	if res.Duplicates != 1 {
		t.Errorf("duplicates = %d, want 1", res.Duplicates)
	}
	if len(store.listings) != 3 {
		t.Fatalf("stored = %d, want 3 unique", len(store.listings))
	}

	seen := make(map[string]bool)
	for _, l := range store.listings {
		if seen[l.Identifier] {
			t.Errorf("identifier %s stored twice", l.Identifier)
		}
		seen[l.Identifier] = true
	}
}

func TestRunRespectsPageBudget(t *testing.T) {
	pages := make(map[int]string)
	for p := 1; p <= 20; p++ {
		pages[p] = indexPage(1183000 + p)
	}
	f := &stubFetcher{pages: pages}
	store := &memStorage{}
	eng := testEngine(t, f, store, func(cfg *config.Config) {
		cfg.Engine.MaxPages = 5
	})

	res, err := eng.Run(context.Background(), "https://example.com/search")
	if err != nil {
		t.Fatal(err)
	}

	if res.PagesScraped != 5 {
		t.Errorf("pages = %d, want 5", res.PagesScraped)
	}
	if len(store.listings) != 5 {
		t.Errorf("stored = %d, want 5", len(store.listings))
	}
}

func TestRunInvalidURL(t *testing.T) {
	eng := testEngine(t, &stubFetcher{}, &memStorage{}, nil)
	if _, err := eng.Run(context.Background(), "not-a-url"); err == nil {
		t.Fatal("expected error for invalid seed URL")
	}
}

func TestRunCancelledContext(t *testing.T) {
	f := &stubFetcher{pages: map[int]string{1: indexPage(1183001)}}
	store := &memStorage{}
	eng := testEngine(t, f, store, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := eng.Run(ctx, "https://example.com/search")
	if err != types.ErrRunStopped {
		t.Errorf("err = %v, want ErrRunStopped", err)
	}
}

func TestRunResumesFromCheckpoint(t *testing.T) {
	checkpointPath := t.TempDir() + "/run.checkpoint"

	f := &stubFetcher{pages: map[int]string{
		1: indexPage(1183001),
		2: indexPage(1183002),
		3: indexPage(1183003),
	}}
	store := &memStorage{}
	eng := testEngine(t, f, store, func(cfg *config.Config) {
		cfg.Engine.CheckpointPath = checkpointPath
	})

	if _, err := eng.Run(context.Background(), "https://example.com/search"); err != nil {
		t.Fatal(err)
	}
	firstRunStored := len(store.listings)
	if firstRunStored != 3 {
		t.Fatalf("first run stored = %d, want 3", firstRunStored)
	}

	// Second run over the same site: everything is already known.
	resumed := testEngine(t, f, store, func(cfg *config.Config) {
		cfg.Engine.CheckpointPath = checkpointPath
	})
	if _, err := resumed.Run(context.Background(), "https://example.com/search"); err != nil {
		t.Fatal(err)
	}

	if len(store.listings) != firstRunStored {
		t.Errorf("resumed run re-stored listings: %d vs %d", len(store.listings), firstRunStored)
	}
}

func TestScrapePageEmptyBody(t *testing.T) {
	f := &stubFetcher{pages: map[int]string{1: ""}}
	eng := testEngine(t, f, &memStorage{}, nil)

	_, err := eng.scrapePage(context.Background(), "https://example.com/search", 1)
	if !errors.Is(err, types.ErrEmptyResponse) {
		t.Fatalf("err = %v, want ErrEmptyResponse", err)
	}

	var ee *types.ExtractError
	if !errors.As(err, &ee) {
		t.Fatalf("err = %T, want *types.ExtractError", err)
	}
	if !strings.Contains(ee.Page, "page=1") {
		t.Errorf("error page = %q, expected the page URL", ee.Page)
	}
}

func TestRunCheckpointStopsAtFailedPage(t *testing.T) {
	checkpointPath := t.TempDir() + "/run.checkpoint"

	pages := map[int]string{
		1: indexPage(1183001),
		2: indexPage(1183002),
		3: indexPage(1183003),
		4: indexPage(1183004),
		5: indexPage(1183005),
	}
	f := &stubFetcher{
		pages: pages,
		fail:  map[int]error{3: errors.New("connection reset")},
	}
	store := &memStorage{}
	eng := testEngine(t, f, store, func(cfg *config.Config) {
		cfg.Engine.CheckpointPath = checkpointPath
	})

	res, err := eng.Run(context.Background(), "https://example.com/search")
	if err != nil {
		t.Fatal(err)
	}
	if res.PagesFailed != 1 {
		t.Fatalf("failed pages = %d, want 1", res.PagesFailed)
	}
	if len(store.listings) != 4 {
		t.Fatalf("first run stored = %d, want 4", len(store.listings))
	}

	// The checkpoint must not advance past the failed page, or its listings
	// would never be scraped.
	cp, err := LoadCheckpoint(checkpointPath)
	if err != nil {
		t.Fatal(err)
	}
	if cp.LastPage != 2 {
		t.Errorf("checkpoint last page = %d, want 2", cp.LastPage)
	}

	// Resume with the failure cleared: page 3 is picked up, pages 4 and 5
	// deduplicate against the checkpointed identifiers.
	resumed := testEngine(t, &stubFetcher{pages: pages}, store, func(cfg *config.Config) {
		cfg.Engine.CheckpointPath = checkpointPath
	})
	if _, err := resumed.Run(context.Background(), "https://example.com/search"); err != nil {
		t.Fatal(err)
	}

	if len(store.listings) != 5 {
		t.Fatalf("stored after resume = %d, want 5", len(store.listings))
	}
	found := false
	for _, l := range store.listings {
		if l.Identifier == "1183003" {
			found = true
		}
	}
	if !found {
		t.Error("listing from the failed page was never stored")
	}
}
