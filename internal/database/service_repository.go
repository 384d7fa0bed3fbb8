package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/realshaunoneill/servicetracker/internal/domain"
)

// uniqueViolation is the PostgreSQL error code for unique constraint violations.
const uniqueViolation = "23505"

// serviceColumns must match the Scan order in scanService.
const serviceColumns = `id, name, picture, require_token, app_token, session_timeout_days, created_at`

// sessionColumns must match the Scan order in scanSession.
const sessionColumns = `id, data_id, data_url, token, same_session_count, created_at, last_updated_at`

// ServiceRepo implements domain.ServiceRepository backed by PostgreSQL.
type ServiceRepo struct {
	pool *pgxpool.Pool
}

func NewServiceRepo(pool *pgxpool.Pool) *ServiceRepo {
	return &ServiceRepo{pool: pool}
}

func (r *ServiceRepo) Create(ctx context.Context, svc *domain.Service) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO services (id, name, picture, require_token, app_token, session_timeout_days, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		svc.ID, svc.Name, svc.Picture, svc.RequireToken, svc.AppToken, svc.SessionTimeoutDays, svc.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return domain.ErrServiceExists
		}
		return fmt.Errorf("failed to insert service: %w", err)
	}
	return nil
}

func (r *ServiceRepo) GetByName(ctx context.Context, name string) (*domain.Service, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+serviceColumns+` FROM services WHERE name = $1`, name)

	svc, err := scanService(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrServiceNotFound
		}
		return nil, fmt.Errorf("failed to query service: %w", err)
	}
	return svc, nil
}

func (r *ServiceRepo) List(ctx context.Context) ([]*domain.Service, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+serviceColumns+` FROM services ORDER BY created_at, name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query services: %w", err)
	}
	defer rows.Close()

	var services []*domain.Service
	for rows.Next() {
		svc, err := scanService(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan service: %w", err)
		}
		services = append(services, svc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate services: %w", err)
	}

	for _, svc := range services {
		sessions, err := r.ListSessions(ctx, svc.ID)
		if err != nil {
			return nil, err
		}
		svc.Sessions = sessions
	}
	return services, nil
}

func (r *ServiceRepo) ListSessions(ctx context.Context, serviceID uuid.UUID) ([]domain.Session, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE service_id = $1 ORDER BY position`, serviceID)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []domain.Session
	var ids []uuid.UUID
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, *session)
		ids = append(ids, session.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate sessions: %w", err)
	}
	if len(sessions) == 0 {
		return []domain.Session{}, nil
	}

	texts, err := r.textsBySession(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range sessions {
		sessions[i].Texts = texts[sessions[i].ID]
	}
	return sessions, nil
}

func (r *ServiceRepo) textsBySession(ctx context.Context, sessionIDs []uuid.UUID) (map[uuid.UUID][]domain.SessionText, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT session_id, session_count, text FROM session_texts
		 WHERE session_id = ANY($1) ORDER BY id`, sessionIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to query session texts: %w", err)
	}
	defer rows.Close()

	texts := make(map[uuid.UUID][]domain.SessionText)
	for rows.Next() {
		var sessionID uuid.UUID
		var entry domain.SessionText
		if err := rows.Scan(&sessionID, &entry.SessionCount, &entry.Text); err != nil {
			return nil, fmt.Errorf("failed to scan session text: %w", err)
		}
		texts[sessionID] = append(texts[sessionID], entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate session texts: %w", err)
	}
	return texts, nil
}

// FirstSessionByDataID returns the first session in insertion order with the
// given dataID. Later duplicate rows stay inert for matching purposes.
func (r *ServiceRepo) FirstSessionByDataID(ctx context.Context, serviceID uuid.UUID, dataID string) (*domain.Session, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM sessions
		 WHERE service_id = $1 AND data_id = $2
		 ORDER BY position LIMIT 1`, serviceID, dataID)

	session, err := scanSession(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to query session: %w", err)
	}

	texts, err := r.textsBySession(ctx, []uuid.UUID{session.ID})
	if err != nil {
		return nil, err
	}
	session.Texts = texts[session.ID]
	return session, nil
}

func (r *ServiceRepo) InsertSession(ctx context.Context, serviceID uuid.UUID, session *domain.Session) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO sessions (id, service_id, data_id, data_url, token, same_session_count, created_at, last_updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		session.ID, serviceID, session.DataID, session.DataURL, session.Token,
		session.SameSessionCount, session.CreatedAt, session.LastUpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}

	for _, entry := range session.Texts {
		_, err = tx.Exec(ctx,
			`INSERT INTO session_texts (session_id, session_count, text) VALUES ($1, $2, $3)`,
			session.ID, entry.SessionCount, entry.Text)
		if err != nil {
			return fmt.Errorf("failed to insert session text: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit session insert: %w", err)
	}
	return nil
}

// MergeSession is the atomic conditional update backing the merge branch:
// the increment only lands if the stored counter still equals expectedCount,
// so a stale read can never clobber a concurrent writer's merge.
func (r *ServiceRepo) MergeSession(ctx context.Context, sessionID uuid.UUID, expectedCount int, now time.Time, text string) (bool, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`UPDATE sessions SET same_session_count = same_session_count + 1, last_updated_at = $2
		 WHERE id = $1 AND same_session_count = $3`,
		sessionID, now, expectedCount)
	if err != nil {
		return false, fmt.Errorf("failed to update session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO session_texts (session_id, session_count, text) VALUES ($1, $2, $3)`,
		sessionID, expectedCount+1, text)
	if err != nil {
		return false, fmt.Errorf("failed to insert session text: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("failed to commit session merge: %w", err)
	}
	return true, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanService(row rowScanner) (*domain.Service, error) {
	var svc domain.Service
	err := row.Scan(&svc.ID, &svc.Name, &svc.Picture, &svc.RequireToken,
		&svc.AppToken, &svc.SessionTimeoutDays, &svc.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &svc, nil
}

func scanSession(row rowScanner) (*domain.Session, error) {
	var session domain.Session
	err := row.Scan(&session.ID, &session.DataID, &session.DataURL, &session.Token,
		&session.SameSessionCount, &session.CreatedAt, &session.LastUpdatedAt)
	if err != nil {
		return nil, err
	}
	return &session, nil
}
