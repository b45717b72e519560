package httpapi

import (
	"net/http"

	idgen "github.com/riskibarqy/streamhub/internal/platform/id"
	"github.com/riskibarqy/streamhub/internal/platform/logging"
)

type RouterConfig struct {
	Logger             *logging.Logger
	CORSAllowedOrigins []string
	InternalToken      string
	// Metrics is mounted at GET /metrics when non-nil.
	Metrics    http.Handler
	RequestIDs idgen.Generator
}

func NewRouter(handler *Handler, cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	ids := cfg.RequestIDs
	if ids == nil {
		ids = idgen.NewRandomGenerator(8)
	}

	mux := http.NewServeMux()
	registerSystemRoutes(mux, handler, cfg.Metrics)
	registerCatalogRoutes(mux, handler)
	registerStreamRoutes(mux, handler)
	registerViewerRoutes(mux, handler)
	registerInternalRoutes(mux, handler, cfg.InternalToken)

	return RequestTracing(RequestID(ids, RequestLogging(logger, CORS(cfg.CORSAllowedOrigins, recoverPanic(logger, mux)))))
}

func recoverPanic(logger *logging.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		defer func() {
			if rec := recover(); rec != nil {
				logger.ErrorContext(ctx, "panic recovered", "panic", rec, "request_id", requestIDFromContext(ctx))
				writeInternalError(ctx, w)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
