package postgres

import (
	"context"
	"database/sql"
	stderrors "errors"
	"strconv"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"surveygen/domain/core"
	"surveygen/domain/responsestats"
	"surveygen/internal/errors"
	"surveygen/ports"
)

const statsSchema = `
	CREATE TABLE IF NOT EXISTS survey_stats (
		session_id         TEXT PRIMARY KEY,
		url                TEXT NOT NULL,
		title              TEXT NOT NULL DEFAULT '',
		total_submissions  INTEGER NOT NULL DEFAULT 0,
		failed_submissions INTEGER NOT NULL DEFAULT 0,
		document           JSONB NOT NULL,
		created_at         TIMESTAMPTZ NOT NULL,
		updated_at         TIMESTAMPTZ NOT NULL
	);
	CREATE INDEX IF NOT EXISTS survey_stats_url_updated_idx ON survey_stats (url, updated_at DESC);`

// StatsRepositoryImpl implements StatsRepository for PostgreSQL. Each
// session is one row; the full snapshot lives in a JSONB document and the
// counters are duplicated into columns for querying
type StatsRepositoryImpl struct {
	db *sqlx.DB
}

// NewStatsRepository creates a new PostgreSQL statistics repository
func NewStatsRepository(db *sqlx.DB) *StatsRepositoryImpl {
	return &StatsRepositoryImpl{db: db}
}

// Connect opens a pooled connection and verifies it
func Connect(ctx context.Context, databaseURL string) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", databaseURL)
	if err != nil {
		return nil, errors.DatabaseError("failed to connect to database", err)
	}
	return db, nil
}

// EnsureSchema creates the survey_stats table when it does not exist
func (r *StatsRepositoryImpl) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, statsSchema); err != nil {
		return errors.DatabaseError("failed to create survey_stats table", err)
	}
	return nil
}

// Save upserts the snapshot of a session
func (r *StatsRepositoryImpl) Save(ctx context.Context, stats *responsestats.SurveyStats) error {
	if stats == nil || stats.SessionID == "" {
		return errors.InvalidInput("stats snapshot has no session id")
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO survey_stats (session_id, url, title, total_submissions, failed_submissions, document, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6::jsonb, $7, $8)
		ON CONFLICT (session_id) DO UPDATE SET
			title = EXCLUDED.title,
			total_submissions = EXCLUDED.total_submissions,
			failed_submissions = EXCLUDED.failed_submissions,
			document = EXCLUDED.document,
			updated_at = EXCLUDED.updated_at
	`, string(stats.SessionID), stats.URL, stats.Title, stats.TotalSubmissions, stats.FailedSubmissions,
		*stats, stats.CreatedAt, stats.UpdatedAt)
	if err != nil {
		return errors.DatabaseError("failed to save survey stats", err)
	}
	return nil
}

// Load returns the stored snapshot of a session
func (r *StatsRepositoryImpl) Load(ctx context.Context, sessionID core.SessionID) (*responsestats.SurveyStats, error) {
	var stats responsestats.SurveyStats
	err := r.db.QueryRowxContext(ctx, `
		SELECT document FROM survey_stats WHERE session_id = $1
	`, string(sessionID)).Scan(&stats)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.NotFound("survey stats " + sessionID.String())
	}
	if err != nil {
		return nil, errors.DatabaseError("failed to load survey stats", err)
	}
	return &stats, nil
}

// List returns the snapshots of a survey URL, most recently updated first.
// An empty url lists every survey; limit <= 0 means no limit
func (r *StatsRepositoryImpl) List(ctx context.Context, url string, limit int) ([]*responsestats.SurveyStats, error) {
	query, args := listQuery(url, limit)

	var documents []responsestats.SurveyStats
	if err := r.db.SelectContext(ctx, &documents, query, args...); err != nil {
		return nil, errors.DatabaseError("failed to list survey stats", err)
	}

	out := make([]*responsestats.SurveyStats, 0, len(documents))
	for i := range documents {
		out = append(out, &documents[i])
	}
	return out, nil
}

func listQuery(url string, limit int) (string, []interface{}) {
	query := `SELECT document FROM survey_stats`
	var args []interface{}
	if url != "" {
		args = append(args, url)
		query += ` WHERE url = $1`
	}
	query += ` ORDER BY updated_at DESC`
	if limit > 0 {
		args = append(args, limit)
		query += ` LIMIT $` + strconv.Itoa(len(args))
	}
	return query, args
}

var _ ports.StatsRepository = (*StatsRepositoryImpl)(nil)
