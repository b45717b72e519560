package postgres

import "time"

const viewerSessionsTable = "viewer_sessions"

type viewerSessionInsertModel struct {
	MatchID    string    `db:"match_id"`
	SessionID  string    `db:"session_id"`
	LastSeenAt time.Time `db:"last_seen_at"`
}

type viewerCountRow struct {
	Total int `db:"total"`
}
