package httpapi

import "net/http"

func registerSystemRoutes(mux *http.ServeMux, handler *Handler, metrics http.Handler) {
	mux.HandleFunc("GET /healthz", handler.Healthz)
	if metrics != nil {
		mux.Handle("GET /metrics", metrics)
	}
}

func registerCatalogRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("GET /matches", handler.ListMatches)
	mux.HandleFunc("GET /matches/live", handler.ListLiveMatches)
	mux.HandleFunc("GET /matches/popular", handler.ListPopularMatches)
	mux.HandleFunc("GET /matches/{id}", handler.GetMatch)
	mux.HandleFunc("GET /sports", handler.ListSports)
	mux.HandleFunc("GET /sports/{category}", handler.ListMatchesBySport)
	mux.HandleFunc("GET /livescores", handler.ListLivescores)
	mux.HandleFunc("GET /livescores/{sport}", handler.ListLivescores)
	mux.HandleFunc("GET /team/{name}", handler.GetTeam)
	mux.HandleFunc("GET /channels", handler.ListChannels)
}

func registerStreamRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("GET /streams/{source}/{id}", handler.ListStreams)
}

func registerViewerRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("GET /viewers/{matchId}", handler.GetViewers)
	mux.HandleFunc("POST /viewers/{matchId}/heartbeat", handler.Heartbeat)
}

func registerInternalRoutes(mux *http.ServeMux, handler *Handler, internalToken string) {
	mux.Handle("POST /internal/catalog/refresh", RequireInternalToken(internalToken, http.HandlerFunc(handler.RefreshCatalog)))
	mux.Handle("DELETE /internal/viewers/cache", RequireInternalToken(internalToken, http.HandlerFunc(handler.ClearViewerCache)))
}
