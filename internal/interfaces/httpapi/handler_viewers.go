package httpapi

import (
	"fmt"
	"io"
	"net/http"

	sonic "github.com/bytedance/sonic"

	"github.com/riskibarqy/streamhub/internal/usecase"
)

const maxHeartbeatBodyBytes = 4 << 10

func (h *Handler) GetViewers(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetViewers")
	defer span.End()

	out, err := h.viewers.MatchViewers(ctx, r.PathValue("matchId"))
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	sources := out.Sources
	if sources == nil {
		sources = map[string]int{}
	}
	writeSuccess(ctx, w, http.StatusOK, viewersDTO{
		MatchID: out.MatchID,
		Total:   out.Total,
		Sources: sources,
		Active:  out.Active,
	})
}

func (h *Handler) Heartbeat(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.Heartbeat")
	defer span.End()

	body, err := io.ReadAll(io.LimitReader(r.Body, maxHeartbeatBodyBytes+1))
	if err != nil {
		writeError(ctx, w, fmt.Errorf("%w: read body: %s", usecase.ErrInvalidInput, err.Error()))
		return
	}
	if len(body) > maxHeartbeatBodyBytes {
		writeError(ctx, w, fmt.Errorf("%w: body too large", usecase.ErrInvalidInput))
		return
	}

	var req heartbeatRequest
	if err := sonic.Unmarshal(body, &req); err != nil {
		writeError(ctx, w, fmt.Errorf("%w: invalid json body", usecase.ErrInvalidInput))
		return
	}
	if err := h.validator.Struct(req); err != nil {
		writeError(ctx, w, fmt.Errorf("%w: %s", usecase.ErrInvalidInput, err.Error()))
		return
	}

	matchID := r.PathValue("matchId")
	active, err := h.viewers.Heartbeat(ctx, matchID, req.SessionID)
	if err != nil {
		h.logger.WarnContext(ctx, "heartbeat failed", "match_id", matchID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, heartbeatDTO{MatchID: matchID, Active: active})
}
