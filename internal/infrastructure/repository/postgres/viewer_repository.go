package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	qb "github.com/riskibarqy/streamhub/internal/platform/querybuilder"
)

const upsertViewerSessionSuffix = "ON CONFLICT (match_id, session_id) DO UPDATE SET last_seen_at = GREATEST(viewer_sessions.last_seen_at, EXCLUDED.last_seen_at)"

type ViewerRepository struct {
	db *sqlx.DB
}

func NewViewerRepository(db *sqlx.DB) *ViewerRepository {
	return &ViewerRepository{db: db}
}

func (r *ViewerRepository) Heartbeat(ctx context.Context, matchID, sessionID string, at time.Time) error {
	matchID = strings.TrimSpace(matchID)
	sessionID = strings.TrimSpace(sessionID)
	if matchID == "" || sessionID == "" {
		return nil
	}

	query, args, err := qb.InsertModel(viewerSessionsTable, viewerSessionInsertModel{
		MatchID:    matchID,
		SessionID:  sessionID,
		LastSeenAt: at.UTC(),
	}, upsertViewerSessionSuffix)
	if err != nil {
		return fmt.Errorf("build upsert viewer session query: %w", err)
	}

	_, err = r.db.ExecContext(ctx, query, args...)
	if isUnnamedPreparedStatementMissing(err) {
		_, err = r.db.ExecContext(ctx, query, args...)
	}
	if err != nil {
		return fmt.Errorf("upsert viewer session: %w", err)
	}

	return nil
}

func (r *ViewerRepository) CountActive(ctx context.Context, matchID string, since time.Time) (int, error) {
	query, args, err := qb.Select("COUNT(*) AS total").
		From(viewerSessionsTable).
		Where(
			qb.Eq("match_id", strings.TrimSpace(matchID)),
			qb.Gte("last_seen_at", since.UTC()),
		).
		ToSQL()
	if err != nil {
		return 0, fmt.Errorf("build count viewer sessions query: %w", err)
	}

	var row viewerCountRow
	err = r.db.GetContext(ctx, &row, query, args...)
	if isUnnamedPreparedStatementMissing(err) {
		err = r.db.GetContext(ctx, &row, query, args...)
	}
	if err != nil {
		if isNotFound(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("count viewer sessions: %w", err)
	}

	return row.Total, nil
}

func (r *ViewerRepository) Prune(ctx context.Context, before time.Time) (int, error) {
	query, args, err := qb.DeleteFrom(viewerSessionsTable).
		Where(qb.Lt("last_seen_at", before.UTC())).
		ToSQL()
	if err != nil {
		return 0, fmt.Errorf("build prune viewer sessions query: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("prune viewer sessions: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune viewer sessions rows affected: %w", err)
	}

	return int(affected), nil
}
