// Package orchestrator drives a scrape run: walk the hierarchy brand by
// brand, scrape product pages sequentially with polite delays, and fold
// the results into a run summary. Units fail independently; one broken
// page or brand never aborts the run.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/bathingbrands/catalog-scraper/internal/models"
	"github.com/bathingbrands/catalog-scraper/internal/observability"
	"github.com/bathingbrands/catalog-scraper/internal/reconcile"
)

type Fetcher interface {
	Fetch(ctx context.Context, pageURL string) (*goquery.Document, error)
}

type Discoverer interface {
	Brands(ctx context.Context) ([]models.Brand, error)
	Categories(ctx context.Context, brand models.Brand) ([]models.Category, error)
	Collections(ctx context.Context, brand models.Brand, category models.Category) ([]models.Collection, error)
	Products(ctx context.Context, brand models.Brand, collectionURL string) ([]string, error)
}

type Extractor interface {
	Product(doc *goquery.Document, pageURL string) *models.ExtractedProduct
}

type Reconciler interface {
	Save(ctx context.Context, ex *models.ExtractedProduct) (*models.Product, error)
	LinkRelated(ctx context.Context, main *models.Product, candidates []models.RelatedCandidate) int
}

// Options selects what a run covers and how hard it may hit the site.
type Options struct {
	// Brand restricts the run to one brand (name or slug).
	Brand string
	// Category restricts the run to matching categories (name or slug).
	Category string
	// Limit caps products processed across the whole run; 0 is unlimited.
	Limit int
	// LimitPerBrand caps products processed per brand; 0 is unlimited.
	LimitPerBrand int
	// StartFromBrand resumes the configured brand order at this brand.
	StartFromBrand string
	// Delay is the pause between product page requests.
	Delay time.Duration
	// BrandDelay is the pause between brands.
	BrandDelay time.Duration
	// DryRun discovers and counts product URLs without scraping them.
	DryRun bool
}

// Summary is the outcome of one run.
type Summary struct {
	Attempted  int            `json:"attempted"`
	Saved      int            `json:"saved"`
	Skipped    int            `json:"skipped"`
	Failed     int            `json:"failed"`
	Relations  int            `json:"relations"`
	PerBrand   map[string]int `json:"per_brand"`
	Discovered int            `json:"discovered"`
	StartedAt  time.Time      `json:"started_at"`
	Duration   time.Duration  `json:"duration"`
}

type Session struct {
	fetcher    Fetcher
	discoverer Discoverer
	extractor  Extractor
	reconciler Reconciler
	metrics    *observability.Metrics
	logger     *slog.Logger

	// scraped dedupes product URLs within the run; collections overlap.
	scraped map[string]struct{}

	mu   sync.Mutex
	last *Summary

	// sleep is swapped in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

func New(fetcher Fetcher, discoverer Discoverer, extractor Extractor, reconciler Reconciler, metrics *observability.Metrics, logger *slog.Logger) *Session {
	return &Session{
		fetcher:    fetcher,
		discoverer: discoverer,
		extractor:  extractor,
		reconciler: reconciler,
		metrics:    metrics,
		logger:     logger.With("component", "orchestrator"),
		scraped:    make(map[string]struct{}),
		sleep:      sleepCtx,
	}
}

// LastSummary returns the most recent run's summary, or nil before the
// first run completes.
func (s *Session) LastSummary() *Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// Run walks the hierarchy and scrapes every product page it finds, subject
// to the Options filters and limits. The returned error covers only
// failures that prevent the run from proceeding at all; per-unit failures
// land in the summary.
func (s *Session) Run(ctx context.Context, opts Options) (*Summary, error) {
	summary := &Summary{
		PerBrand:  make(map[string]int),
		StartedAt: time.Now(),
	}

	brands, err := s.discoverer.Brands(ctx)
	if err != nil {
		return nil, fmt.Errorf("discover brands: %w", err)
	}

	brands = selectBrands(brands, opts)
	s.logger.Info("starting run",
		"brands", len(brands),
		"limit", opts.Limit,
		"limit_per_brand", opts.LimitPerBrand,
		"dry_run", opts.DryRun)

	for i, brand := range brands {
		if ctx.Err() != nil {
			break
		}
		if s.budgetExhausted(summary, opts) {
			s.logger.Info("total limit reached, stopping run", "limit", opts.Limit)
			break
		}

		if i > 0 && opts.BrandDelay > 0 {
			if err := s.sleep(ctx, opts.BrandDelay); err != nil {
				break
			}
		}

		s.runBrand(ctx, brand, opts, summary)
	}

	summary.Duration = time.Since(summary.StartedAt)

	s.mu.Lock()
	s.last = summary
	s.mu.Unlock()

	s.logger.Info("run finished",
		"attempted", summary.Attempted,
		"saved", summary.Saved,
		"skipped", summary.Skipped,
		"failed", summary.Failed,
		"relations", summary.Relations,
		"duration", summary.Duration)

	return summary, nil
}

// ScrapeOne scrapes a single product URL outside any hierarchy walk.
func (s *Session) ScrapeOne(ctx context.Context, pageURL string) (*models.Product, error) {
	doc, err := s.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", pageURL, err)
	}
	if s.metrics != nil {
		s.metrics.PagesFetched.Inc()
	}

	ex := s.extractor.Product(doc, pageURL)
	p, err := s.reconciler.Save(ctx, ex)
	if err != nil {
		return nil, err
	}

	created := s.reconciler.LinkRelated(ctx, p, ex.Related)
	if s.metrics != nil {
		s.metrics.ProductsSaved.WithLabelValues(p.Brand).Inc()
		s.metrics.RelationsCreated.Add(float64(created))
	}
	return p, nil
}

func (s *Session) runBrand(ctx context.Context, brand models.Brand, opts Options, summary *Summary) {
	logger := s.logger.With("brand", brand.Slug)

	categories, err := s.discoverer.Categories(ctx, brand)
	if err != nil {
		logger.Error("failed to discover categories", "error", err)
		return
	}

	processed := 0
	for _, category := range categories {
		if !matchCategory(category, opts.Category) {
			continue
		}

		collections, err := s.discoverer.Collections(ctx, brand, category)
		if err != nil {
			logger.Error("failed to discover collections", "category", category.Slug, "error", err)
			continue
		}

		for _, collection := range collections {
			urls, err := s.discoverer.Products(ctx, brand, collection.URL)
			if err != nil {
				logger.Error("failed to discover products", "collection", collection.Slug, "error", err)
				continue
			}

			for _, pageURL := range urls {
				if _, done := s.scraped[pageURL]; done {
					continue
				}
				s.scraped[pageURL] = struct{}{}
				summary.Discovered++

				if opts.DryRun {
					continue
				}
				if !s.withinBudget(summary, opts, processed) {
					return
				}
				if ctx.Err() != nil {
					return
				}

				if opts.Delay > 0 {
					if err := s.sleep(ctx, opts.Delay); err != nil {
						return
					}
				}

				processed++
				s.scrapeProduct(ctx, brand, pageURL, summary)
			}
		}
	}
}

func (s *Session) scrapeProduct(ctx context.Context, brand models.Brand, pageURL string, summary *Summary) {
	summary.Attempted++

	doc, err := s.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		summary.Failed++
		if s.metrics != nil {
			s.metrics.FetchFailures.Inc()
			s.metrics.ProductsFailed.Inc()
		}
		s.logger.Error("failed to fetch product page", "url", pageURL, "error", err)
		return
	}
	if s.metrics != nil {
		s.metrics.PagesFetched.Inc()
	}

	ex := s.extractor.Product(doc, pageURL)

	p, err := s.reconciler.Save(ctx, ex)
	if err != nil {
		if errors.Is(err, reconcile.ErrInvalidProduct) {
			summary.Skipped++
			if s.metrics != nil {
				s.metrics.ProductsSkipped.Inc()
			}
			s.logger.Warn("skipping invalid product", "url", pageURL, "error", err)
		} else {
			summary.Failed++
			if s.metrics != nil {
				s.metrics.ProductsFailed.Inc()
			}
			s.logger.Error("failed to save product", "url", pageURL, "error", err)
		}
		return
	}

	summary.Saved++
	summary.PerBrand[brand.Name]++
	created := s.reconciler.LinkRelated(ctx, p, ex.Related)
	summary.Relations += created

	if s.metrics != nil {
		s.metrics.ProductsSaved.WithLabelValues(p.Brand).Inc()
		s.metrics.RelationsCreated.Add(float64(created))
	}
}

// withinBudget reports whether another product may be processed given the
// per-brand count so far and the global budget. The global limit wins: it
// caps the per-brand allowance when less budget remains.
func (s *Session) withinBudget(summary *Summary, opts Options, processedInBrand int) bool {
	if opts.LimitPerBrand > 0 && processedInBrand >= opts.LimitPerBrand {
		return false
	}
	return !s.budgetExhausted(summary, opts)
}

func (s *Session) budgetExhausted(summary *Summary, opts Options) bool {
	return opts.Limit > 0 && summary.Attempted >= opts.Limit
}

// selectBrands applies the start-from resume point and the brand filter,
// preserving configured order.
func selectBrands(brands []models.Brand, opts Options) []models.Brand {
	if opts.StartFromBrand != "" {
		for i, b := range brands {
			if matchBrand(b, opts.StartFromBrand) {
				brands = brands[i:]
				break
			}
		}
	}

	if opts.Brand == "" {
		return brands
	}

	var selected []models.Brand
	for _, b := range brands {
		if matchBrand(b, opts.Brand) {
			selected = append(selected, b)
		}
	}
	return selected
}

func matchBrand(b models.Brand, want string) bool {
	return strings.EqualFold(b.Name, want) || strings.EqualFold(b.Slug, want)
}

func matchCategory(c models.Category, want string) bool {
	if want == "" {
		return true
	}
	return strings.EqualFold(c.Name, want) || strings.EqualFold(c.Slug, want)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
