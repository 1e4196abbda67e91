package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/bathingbrands/catalog-scraper/internal/models"
	"github.com/bathingbrands/catalog-scraper/internal/orchestrator"
)

// Scraper is the slice of the orchestrator session the API needs.
type Scraper interface {
	ScrapeOne(ctx context.Context, pageURL string) (*models.Product, error)
	LastSummary() *orchestrator.Summary
}

// CatalogStats reports stored product counts.
type CatalogStats interface {
	CountByBrand(ctx context.Context) (map[string]int, error)
}

// OutboxStats reports outbox backlog sizes for the health check.
type OutboxStats interface {
	PendingCount(ctx context.Context) (int64, error)
	DeadLetterCount(ctx context.Context) (int64, error)
}

type Handlers struct {
	scraper Scraper
	catalog CatalogStats
	outbox  OutboxStats
	logger  *slog.Logger
}

func NewHandlers(scraper Scraper, catalog CatalogStats, outbox OutboxStats, logger *slog.Logger) *Handlers {
	return &Handlers{
		scraper: scraper,
		catalog: catalog,
		outbox:  outbox,
		logger:  logger,
	}
}

// Router assembles the chi router. metricsHandler serves /metrics and may
// be nil.
func (h *Handlers) Router(metricsHandler http.Handler) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "https://localhost:*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", h.Health)
	if metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", metricsHandler)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/status", h.GetStatus)
		r.Get("/products/counts", h.GetProductCounts)
		r.Post("/scrape/test", h.TestScrape)
	})

	return r
}

// Health reports service health, degrading when the outbox backlog grows.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	health := map[string]interface{}{"status": "ok"}
	status := http.StatusOK

	if h.outbox != nil {
		pending, _ := h.outbox.PendingCount(r.Context())
		deadLetter, _ := h.outbox.DeadLetterCount(r.Context())

		health["outbox"] = map[string]interface{}{
			"pending":     pending,
			"dead_letter": deadLetter,
		}

		if pending > 1000 {
			health["status"] = "warning"
			health["message"] = "high number of pending outbox events"
		}
		if deadLetter > 100 {
			health["status"] = "error"
			health["message"] = "high number of dead letter events"
			status = http.StatusServiceUnavailable
		}
	}

	h.respondJSON(w, status, health)
}

// GetStatus returns the last run's summary.
func (h *Handlers) GetStatus(w http.ResponseWriter, r *http.Request) {
	summary := h.scraper.LastSummary()
	if summary == nil {
		h.respondJSON(w, http.StatusOK, map[string]string{"status": "idle"})
		return
	}
	h.respondJSON(w, http.StatusOK, summary)
}

// GetProductCounts returns stored product counts per brand.
func (h *Handlers) GetProductCounts(w http.ResponseWriter, r *http.Request) {
	counts, err := h.catalog.CountByBrand(r.Context())
	if err != nil {
		h.logger.Error("failed to count products", "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to count products")
		return
	}

	total := 0
	for _, n := range counts {
		total += n
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"total":    total,
		"by_brand": counts,
	})
}

// TestScrapeRequest names a single product URL to scrape immediately.
type TestScrapeRequest struct {
	URL string `json:"url"`
}

// TestScrape scrapes one product page and returns the persisted product.
func (h *Handlers) TestScrape(w http.ResponseWriter, r *http.Request) {
	var req TestScrapeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.URL == "" {
		h.respondError(w, http.StatusBadRequest, "url is required")
		return
	}

	product, err := h.scraper.ScrapeOne(r.Context(), req.URL)
	if err != nil {
		h.logger.Error("test scrape failed", "url", req.URL, "error", err)
		h.respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	h.respondJSON(w, http.StatusOK, product)
}

func (h *Handlers) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handlers) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}
