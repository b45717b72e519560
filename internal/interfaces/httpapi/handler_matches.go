package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"

	crerr "github.com/cockroachdb/errors"
	"github.com/sourcegraph/conc"

	"github.com/riskibarqy/streamhub/internal/usecase"
)

func (h *Handler) ListMatches(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListMatches")
	defer span.End()

	query, err := h.parseListQuery(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	page, err := h.catalog.List(ctx, usecase.ListQuery{Page: query.Page, Limit: query.Limit, Sport: query.Sport})
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	writeCatalog(ctx, w, matchPageDTO{
		Items: matchesToDTO(page.Items),
		Total: page.Total,
		Page:  page.Page,
		Limit: page.Limit,
	}, page.Meta)
}

func (h *Handler) ListLiveMatches(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListLiveMatches")
	defer span.End()

	list := h.catalog.Live(ctx)
	writeCatalog(ctx, w, matchesToDTO(list.Items), list.Meta)
}

func (h *Handler) ListPopularMatches(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListPopularMatches")
	defer span.End()

	list := h.catalog.Popular(ctx)
	writeCatalog(ctx, w, matchesToDTO(list.Items), list.Meta)
}

// GetMatch returns one match with the streams of every source resolved.
// Sources are resolved concurrently under one deadline. A source whose
// provider is down, or that is still pending at the deadline, contributes no
// streams and marks the response stale.
func (h *Handler) GetMatch(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetMatch")
	defer span.End()

	matchID := r.PathValue("id")
	view, meta, err := h.catalog.Get(ctx, matchID)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	streamsCtx, cancel := context.WithTimeout(ctx, h.matchStreamsTimeout)
	defer cancel()

	var (
		mu      sync.Mutex
		results = make([][]streamDTO, len(view.Sources))
		settled = make([]bool, len(view.Sources))
		stale   bool
	)
	done := make(chan struct{})
	go func() {
		defer close(done)
		var wg conc.WaitGroup
		for i, src := range view.Sources {
			wg.Go(func() {
				resolved, err := h.streams.ListStreams(streamsCtx, src.Provider, src.ID)
				mu.Lock()
				defer mu.Unlock()
				settled[i] = true
				if err != nil {
					h.logger.WarnContext(ctx, "list match streams failed",
						"match_id", view.ID,
						"source", src.Provider,
						"source_id", src.ID,
						"error", err,
					)
					if crerr.Is(err, usecase.ErrProviderUnavailable) || streamsCtx.Err() != nil {
						stale = true
					}
					return
				}
				results[i] = streamsToDTO(resolved)
			})
		}
		if recovered := wg.WaitAndRecover(); recovered != nil {
			h.logger.ErrorContext(ctx, "match stream resolution panicked", "error", recovered.AsError())
		}
	}()

	select {
	case <-done:
	case <-streamsCtx.Done():
	}

	mu.Lock()
	streams := make([]streamDTO, 0)
	for i, settledSource := range settled {
		if !settledSource {
			stale = true
			continue
		}
		streams = append(streams, results[i]...)
	}
	if stale {
		meta.Stale = true
	}
	mu.Unlock()

	writeCatalog(ctx, w, matchDetailDTO{Match: matchToDTO(view), Streams: streams}, meta)
}

func (h *Handler) ListSports(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListSports")
	defer span.End()

	list := h.catalog.Sports(ctx)
	writeCatalog(ctx, w, sportsToDTO(list.Items), list.Meta)
}

func (h *Handler) ListMatchesBySport(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListMatchesBySport")
	defer span.End()

	list, err := h.catalog.BySport(ctx, r.PathValue("category"))
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeCatalog(ctx, w, matchesToDTO(list.Items), list.Meta)
}

func (h *Handler) ListLivescores(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListLivescores")
	defer span.End()

	list := h.catalog.Livescores(ctx, r.PathValue("sport"))
	writeCatalog(ctx, w, eventsToDTO(list.Items), list.Meta)
}

func (h *Handler) GetTeam(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetTeam")
	defer span.End()

	view, err := h.catalog.Team(ctx, r.PathValue("name"))
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeCatalog(ctx, w, teamViewDTO{
		Name:    view.Name,
		Badge:   view.Badge,
		Matches: matchesToDTO(view.Matches),
		Events:  eventsToDTO(view.Events),
	}, view.Meta)
}

func (h *Handler) ListChannels(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListChannels")
	defer span.End()

	list := h.catalog.Channels(ctx, r.URL.Query().Get("country"))
	writeCatalog(ctx, w, channelsToDTO(list.Items), list.Meta)
}

func (h *Handler) parseListQuery(r *http.Request) (listMatchesQuery, error) {
	values := r.URL.Query()
	var (
		out listMatchesQuery
		err error
	)
	if out.Page, err = queryInt(values.Get("page")); err != nil {
		return out, fmt.Errorf("%w: page must be an integer", usecase.ErrInvalidInput)
	}
	if out.Limit, err = queryInt(values.Get("limit")); err != nil {
		return out, fmt.Errorf("%w: limit must be an integer", usecase.ErrInvalidInput)
	}
	out.Sport = strings.TrimSpace(values.Get("sport"))
	if err := h.validator.Struct(out); err != nil {
		return out, fmt.Errorf("%w: %s", usecase.ErrInvalidInput, err.Error())
	}
	return out, nil
}

func queryInt(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}
