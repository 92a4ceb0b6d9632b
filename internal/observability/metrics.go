package observability

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"dealsift/internal/config"
)

// Metrics holds run counters. All counters are atomic so the engine's
// workers can update them without locking.
type Metrics struct {
	PagesFetched       atomic.Int64
	PagesFailed        atomic.Int64
	PagesEmpty         atomic.Int64
	ContainersLocated  atomic.Int64
	FallbackLocations  atomic.Int64
	ListingsExtracted  atomic.Int64
	ListingsAccepted   atomic.Int64
	ListingsRejected   atomic.Int64
	ListingsDuplicate  atomic.Int64
	SyntheticIDsIssued atomic.Int64
	FlushBatches       atomic.Int64
	BytesFetched       atomic.Int64

	startTime time.Time
}

// NewMetrics creates a metrics collector.
func NewMetrics() *Metrics {
	return &Metrics{startTime: time.Now()}
}

// Snapshot is a point-in-time copy of the counters for logging.
type Snapshot struct {
	PagesFetched       int64         `json:"pages_fetched"`
	PagesFailed        int64         `json:"pages_failed"`
	PagesEmpty         int64         `json:"pages_empty"`
	ContainersLocated  int64         `json:"containers_located"`
	FallbackLocations  int64         `json:"fallback_locations"`
	ListingsExtracted  int64         `json:"listings_extracted"`
	ListingsAccepted   int64         `json:"listings_accepted"`
	ListingsRejected   int64         `json:"listings_rejected"`
	ListingsDuplicate  int64         `json:"listings_duplicate"`
	SyntheticIDsIssued int64         `json:"synthetic_ids_issued"`
	FlushBatches       int64         `json:"flush_batches"`
	BytesFetched       int64         `json:"bytes_fetched"`
	Uptime             time.Duration `json:"uptime"`
}

// Snapshot returns a consistent-enough copy for reporting.
func (m *Metrics) Snapshot() Snapshot {
	return Snapshot{
		PagesFetched:       m.PagesFetched.Load(),
		PagesFailed:        m.PagesFailed.Load(),
		PagesEmpty:         m.PagesEmpty.Load(),
		ContainersLocated:  m.ContainersLocated.Load(),
		FallbackLocations:  m.FallbackLocations.Load(),
		ListingsExtracted:  m.ListingsExtracted.Load(),
		ListingsAccepted:   m.ListingsAccepted.Load(),
		ListingsRejected:   m.ListingsRejected.Load(),
		ListingsDuplicate:  m.ListingsDuplicate.Load(),
		SyntheticIDsIssued: m.SyntheticIDsIssued.Load(),
		FlushBatches:       m.FlushBatches.Load(),
		BytesFetched:       m.BytesFetched.Load(),
		Uptime:             time.Since(m.startTime).Round(time.Second),
	}
}

// ServeHTTP exposes the counters in Prometheus text exposition format.
func (m *Metrics) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s := m.Snapshot()
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")

	counters := []struct {
		name  string
		help  string
		value int64
	}{
		{"dealsift_pages_fetched_total", "Pages fetched successfully", s.PagesFetched},
		{"dealsift_pages_failed_total", "Pages that failed after all retries", s.PagesFailed},
		{"dealsift_pages_empty_total", "Pages with zero located containers", s.PagesEmpty},
		{"dealsift_containers_located_total", "Listing containers located", s.ContainersLocated},
		{"dealsift_fallback_locations_total", "Pages located via the currency fallback", s.FallbackLocations},
		{"dealsift_listings_extracted_total", "Listings extracted from containers", s.ListingsExtracted},
		{"dealsift_listings_accepted_total", "Listings above the confidence threshold", s.ListingsAccepted},
		{"dealsift_listings_rejected_total", "Listings below the confidence threshold", s.ListingsRejected},
		{"dealsift_listings_duplicate_total", "Listings dropped as duplicates", s.ListingsDuplicate},
		{"dealsift_synthetic_ids_total", "Synthetic identifiers issued", s.SyntheticIDsIssued},
		{"dealsift_flush_batches_total", "Storage flush batches", s.FlushBatches},
		{"dealsift_bytes_fetched_total", "Response bytes fetched", s.BytesFetched},
	}

	for _, c := range counters {
		fmt.Fprintf(w, "# HELP %s %s\n", c.name, c.help)
		fmt.Fprintf(w, "# TYPE %s counter\n", c.name)
		fmt.Fprintf(w, "%s %d\n", c.name, c.value)
	}
	fmt.Fprintf(w, "# HELP dealsift_uptime_seconds Run uptime in seconds\n")
	fmt.Fprintf(w, "# TYPE dealsift_uptime_seconds gauge\n")
	fmt.Fprintf(w, "dealsift_uptime_seconds %f\n", time.Since(m.startTime).Seconds())
}

// StartServer serves the metrics endpoint until ctx is cancelled.
func (m *Metrics) StartServer(ctx context.Context, cfg *config.MetricsConfig, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle(cfg.Path, m)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: mux,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	go func() {
		logger.Info("metrics server listening", "addr", srv.Addr, "path", cfg.Path)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server failed", "error", err)
		}
	}()
}
