package httpapi

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/riskibarqy/streamhub/internal/platform/logging"
	"github.com/riskibarqy/streamhub/internal/platform/resilience"
	"github.com/riskibarqy/streamhub/internal/usecase"
)

// CatalogRefresher forces and inspects aggregation cycles.
type CatalogRefresher interface {
	Refresh(ctx context.Context) usecase.Catalog
	Snapshot() (usecase.Catalog, bool)
}

// BreakerReporter is implemented by every provider client.
type BreakerReporter interface {
	Name() string
	BreakerState() resilience.CircuitState
}

type HandlerDeps struct {
	Catalog   *usecase.CatalogService
	Streams   *usecase.StreamService
	Viewers   *usecase.ViewerService
	Probe     *usecase.ViewerProbe
	Refresher CatalogRefresher
	Breakers  []BreakerReporter
	Logger    *logging.Logger
	Now       func() time.Time
	// MatchStreamsTimeout bounds stream resolution for one match detail
	// request. Sources still pending when it expires mark the response stale.
	MatchStreamsTimeout time.Duration
}

const defaultMatchStreamsTimeout = 20 * time.Second

type Handler struct {
	catalog   *usecase.CatalogService
	streams   *usecase.StreamService
	viewers   *usecase.ViewerService
	probe     *usecase.ViewerProbe
	refresher CatalogRefresher
	breakers  []BreakerReporter
	logger    *logging.Logger
	validator *validator.Validate
	now       func() time.Time

	matchStreamsTimeout time.Duration
}

func NewHandler(deps HandlerDeps) *Handler {
	logger := deps.Logger
	if logger == nil {
		logger = logging.Default()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	if deps.MatchStreamsTimeout <= 0 {
		deps.MatchStreamsTimeout = defaultMatchStreamsTimeout
	}

	return &Handler{
		catalog:   deps.Catalog,
		streams:   deps.Streams,
		viewers:   deps.Viewers,
		probe:     deps.Probe,
		refresher: deps.Refresher,
		breakers:  deps.Breakers,
		logger:    logger.Named("httpapi"),
		validator: validator.New(),
		now:       now,

		matchStreamsTimeout: deps.MatchStreamsTimeout,
	}
}

type healthDTO struct {
	Status            string            `json:"status"`
	CatalogReady      bool              `json:"catalogReady"`
	CatalogAgeSeconds *float64          `json:"catalogAgeSeconds,omitempty"`
	CatalogStale      bool              `json:"catalogStale"`
	Breakers          map[string]string `json:"breakers"`
}

// Healthz reports degraded rather than failing: the service keeps answering
// from cache while upstreams are down.
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.Healthz")
	defer span.End()

	out := healthDTO{Status: "ok", Breakers: make(map[string]string, len(h.breakers))}
	for _, b := range h.breakers {
		state := b.BreakerState()
		if state == "" {
			state = resilience.CircuitStateClosed
		}
		out.Breakers[b.Name()] = string(state)
		if state != resilience.CircuitStateClosed {
			out.Status = "degraded"
		}
	}

	if h.refresher != nil {
		if catalog, ok := h.refresher.Snapshot(); ok {
			out.CatalogReady = true
			out.CatalogStale = catalog.Stale
			age := h.now().Sub(catalog.GeneratedAt).Seconds()
			out.CatalogAgeSeconds = &age
			if catalog.Stale {
				out.Status = "degraded"
			}
		}
	}

	writeSuccess(ctx, w, http.StatusOK, out)
}

type refreshDTO struct {
	Matches  int `json:"matches"`
	Events   int `json:"events"`
	Channels int `json:"channels"`
}

func (h *Handler) RefreshCatalog(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RefreshCatalog")
	defer span.End()

	catalog := h.refresher.Refresh(ctx)
	h.logger.InfoContext(ctx, "catalog refreshed on demand",
		"matches", len(catalog.Matches),
		"stale", catalog.Stale,
		"request_id", requestIDFromContext(ctx),
	)

	writeCatalog(ctx, w, refreshDTO{
		Matches:  len(catalog.Matches),
		Events:   len(catalog.Events),
		Channels: len(catalog.Channels),
	}, usecase.CatalogMeta{
		GeneratedAt: catalog.GeneratedAt,
		Stale:       catalog.Stale,
		Providers:   catalog.Providers,
	})
}

type clearViewerCacheDTO struct {
	Scope   string `json:"scope"`
	Removed int    `json:"removed"`
}

// ClearViewerCache drops probe samples for one key, one source, or all of
// them, depending on which query parameters are present.
func (h *Handler) ClearViewerCache(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ClearViewerCache")
	defer span.End()

	source := strings.TrimSpace(r.URL.Query().Get("source"))
	id := strings.TrimSpace(r.URL.Query().Get("id"))

	var out clearViewerCacheDTO
	switch {
	case source != "" && id != "":
		h.probe.Clear(ctx, source, id)
		out = clearViewerCacheDTO{Scope: "key", Removed: 1}
	case source != "":
		out = clearViewerCacheDTO{Scope: "source", Removed: h.probe.ClearSource(ctx, source)}
	default:
		out = clearViewerCacheDTO{Scope: "all", Removed: h.probe.ClearAll()}
	}

	h.logger.InfoContext(ctx, "viewer samples cleared", "scope", out.Scope, "source", source, "id", id, "removed", out.Removed)
	writeSuccess(ctx, w, http.StatusOK, out)
}
