package httpapi

import (
	"net/http"

	crerr "github.com/cockroachdb/errors"

	"github.com/riskibarqy/streamhub/internal/usecase"
)

// ListStreams answers an unavailable provider with an empty stale list.
func (h *Handler) ListStreams(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListStreams")
	defer span.End()

	source, id := r.PathValue("source"), r.PathValue("id")
	resolved, err := h.streams.ListStreams(ctx, source, id)
	if err != nil {
		if crerr.Is(err, usecase.ErrProviderUnavailable) {
			writeCatalog(ctx, w, []streamDTO{}, usecase.CatalogMeta{Stale: true})
			return
		}
		writeError(ctx, w, err)
		return
	}

	writeCatalog(ctx, w, streamsToDTO(resolved), usecase.CatalogMeta{GeneratedAt: h.now()})
}
