package time_entry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
)

var (
	ErrEntryNotFound     = errors.New("time entry not found")
	ErrActiveTimerExists = errors.New("another timer is already running")
	ErrEntryCompleted    = errors.New("time entry is already completed")
)

const (
	uniqueViolation       = "23505"
	activeTimerConstraint = "time_entry_active_idx"
)

type Repository interface {
	ListEntries(ctx context.Context, userId int) ([]TimeEntry, error)
	GetEntry(ctx context.Context, userId int, id int) (TimeEntry, error)
	// FindActiveEntry returns a zero TimeEntry when no timer is running.
	FindActiveEntry(ctx context.Context, userId int) (TimeEntry, error)
	// StartTimer inserts a running entry. When stopAt is nil and a timer is already running,
	// ErrActiveTimerExists is returned. Otherwise the running timer is completed at stopAt
	// and returned as stopped.
	StartTimer(ctx context.Context, userId int, entry TimeEntry, stopAt *time.Time) (started TimeEntry, stopped TimeEntry, err error)
	// StopActiveEntry completes the running entry, never before its start. Returns a zero
	// TimeEntry when no timer is running.
	StopActiveEntry(ctx context.Context, userId int, endTime time.Time) (TimeEntry, error)
	CreateEntry(ctx context.Context, userId int, entry TimeEntry) (TimeEntry, error)
	// UpdateEntry overwrites the entry. A completed entry is never reopened, an update
	// without end time on it fails with ErrEntryCompleted.
	UpdateEntry(ctx context.Context, userId int, entry TimeEntry) (TimeEntry, error)
	DeleteEntry(ctx context.Context, userId int, id int) (bool, error)
}

type RepositoryImpl struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *RepositoryImpl {
	return &RepositoryImpl{db: db}
}

const selectEntry = `SELECT id, project_id, start_time, end_time, description, billable FROM time_entry`

func (r *RepositoryImpl) ListEntries(ctx context.Context, userId int) ([]TimeEntry, error) {
	rows, err := r.db.Query(ctx, selectEntry+` WHERE user_id = $1 ORDER BY start_time DESC, id DESC`, userId)
	if err != nil {
		err := fmt.Errorf("could not query time entries: %w", err)
		log.Error(err)
		return nil, err
	}
	defer rows.Close()

	entries := make([]TimeEntry, 0)
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			err := fmt.Errorf("error scanning row: %w", err)
			log.Error(err)
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *RepositoryImpl) GetEntry(ctx context.Context, userId int, id int) (TimeEntry, error) {
	e, err := scanEntry(r.db.QueryRow(ctx, selectEntry+` WHERE user_id = $1 AND id = $2`, userId, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return TimeEntry{}, ErrEntryNotFound
	}
	if err != nil {
		log.Errorf("failed to get time entry %d: %v", id, err)
		return TimeEntry{}, err
	}
	return e, nil
}

func (r *RepositoryImpl) FindActiveEntry(ctx context.Context, userId int) (TimeEntry, error) {
	return findActive(ctx, r.db, userId)
}

func (r *RepositoryImpl) StartTimer(ctx context.Context, userId int, entry TimeEntry, stopAt *time.Time) (TimeEntry, TimeEntry, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		log.Errorf("failed to begin transaction: %v", err)
		return TimeEntry{}, TimeEntry{}, err
	}
	defer tx.Rollback(ctx)

	// Timer changes of one user are serialized on the user row.
	if _, err := tx.Exec(ctx, `SELECT id FROM users WHERE id = $1 FOR UPDATE`, userId); err != nil {
		err := fmt.Errorf("could not lock user %d: %w", userId, err)
		log.Error(err)
		return TimeEntry{}, TimeEntry{}, err
	}

	active, err := findActive(ctx, tx, userId)
	if err != nil {
		return TimeEntry{}, TimeEntry{}, err
	}

	var stopped TimeEntry
	if active.Id != 0 {
		if stopAt == nil {
			return TimeEntry{}, TimeEntry{}, ErrActiveTimerExists
		}
		stopped, err = stopEntry(ctx, tx, userId, active.Id, *stopAt)
		if err != nil {
			return TimeEntry{}, TimeEntry{}, err
		}
	}

	started, err := insertEntry(ctx, tx, userId, entry)
	if err != nil {
		return TimeEntry{}, TimeEntry{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		err := fmt.Errorf("could not commit timer start: %w", err)
		log.Error(err)
		return TimeEntry{}, TimeEntry{}, err
	}
	return started, stopped, nil
}

func (r *RepositoryImpl) StopActiveEntry(ctx context.Context, userId int, endTime time.Time) (TimeEntry, error) {
	query := `UPDATE time_entry SET end_time = GREATEST($1, start_time)
				WHERE user_id = $2 AND end_time IS NULL
				RETURNING id, project_id, start_time, end_time, description, billable`
	e, err := scanEntry(r.db.QueryRow(ctx, query, endTime, userId))
	if errors.Is(err, pgx.ErrNoRows) {
		return TimeEntry{}, nil
	}
	if err != nil {
		err := fmt.Errorf("could not stop active timer: %w", err)
		log.Error(err)
		return TimeEntry{}, err
	}
	return e, nil
}

func (r *RepositoryImpl) CreateEntry(ctx context.Context, userId int, entry TimeEntry) (TimeEntry, error) {
	return insertEntry(ctx, r.db, userId, entry)
}

func (r *RepositoryImpl) UpdateEntry(ctx context.Context, userId int, entry TimeEntry) (TimeEntry, error) {
	query := `UPDATE time_entry SET project_id = $1, start_time = $2, end_time = $3, description = $4, billable = $5
				WHERE user_id = $6 AND id = $7 AND (end_time IS NULL OR $3::timestamptz IS NOT NULL)
				RETURNING id, project_id, start_time, end_time, description, billable`
	updated, err := scanEntry(r.db.QueryRow(ctx, query,
		entry.ProjectId,
		entry.StartTime,
		entry.EndTime,
		entry.Description,
		entry.Billable,
		userId,
		entry.Id,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return TimeEntry{}, r.missingEntryError(ctx, userId, entry.Id)
	}
	if isActiveTimerViolation(err) {
		return TimeEntry{}, ErrActiveTimerExists
	}
	if err != nil {
		err := fmt.Errorf("could not execute query: %w", err)
		log.Error(err)
		return TimeEntry{}, err
	}
	return updated, nil
}

// missingEntryError tells apart an update that matched no entry from one refused
// because the entry was completed in the meantime.
func (r *RepositoryImpl) missingEntryError(ctx context.Context, userId int, id int) error {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM time_entry WHERE user_id = $1 AND id = $2)`, userId, id).Scan(&exists)
	if err != nil {
		err := fmt.Errorf("could not execute query: %w", err)
		log.Error(err)
		return err
	}
	if exists {
		return ErrEntryCompleted
	}
	return ErrEntryNotFound
}

func (r *RepositoryImpl) DeleteEntry(ctx context.Context, userId int, id int) (bool, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM time_entry WHERE user_id = $1 AND id = $2`, userId, id)
	if err != nil {
		err := fmt.Errorf("could not delete time entry %d: %w", id, err)
		log.Error(err)
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// querier is satisfied by both the pool and a transaction.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func findActive(ctx context.Context, q querier, userId int) (TimeEntry, error) {
	e, err := scanEntry(q.QueryRow(ctx, selectEntry+` WHERE user_id = $1 AND end_time IS NULL LIMIT 1`, userId))
	if errors.Is(err, pgx.ErrNoRows) {
		return TimeEntry{}, nil
	}
	if err != nil {
		err := fmt.Errorf("failed when trying to find active timer: %w", err)
		log.Error(err)
		return TimeEntry{}, err
	}
	return e, nil
}

func stopEntry(ctx context.Context, q querier, userId int, id int, endTime time.Time) (TimeEntry, error) {
	query := `UPDATE time_entry SET end_time = GREATEST($1, start_time)
				WHERE user_id = $2 AND id = $3
				RETURNING id, project_id, start_time, end_time, description, billable`
	e, err := scanEntry(q.QueryRow(ctx, query, endTime, userId, id))
	if err != nil {
		err := fmt.Errorf("could not stop time entry %d: %w", id, err)
		log.Error(err)
		return TimeEntry{}, err
	}
	return e, nil
}

func insertEntry(ctx context.Context, q querier, userId int, entry TimeEntry) (TimeEntry, error) {
	query := `INSERT INTO time_entry (user_id, project_id, start_time, end_time, description, billable)
				VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`
	err := q.QueryRow(ctx, query,
		userId,
		entry.ProjectId,
		entry.StartTime,
		entry.EndTime,
		entry.Description,
		entry.Billable,
	).Scan(&entry.Id)
	if isActiveTimerViolation(err) {
		return TimeEntry{}, ErrActiveTimerExists
	}
	if err != nil {
		err := fmt.Errorf("could not execute query: %w", err)
		log.Error(err)
		return TimeEntry{}, err
	}
	return entry, nil
}

func isActiveTimerViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation && pgErr.ConstraintName == activeTimerConstraint
}

func scanEntry(row pgx.Row) (TimeEntry, error) {
	var e TimeEntry
	err := row.Scan(&e.Id, &e.ProjectId, &e.StartTime, &e.EndTime, &e.Description, &e.Billable)
	return e, err
}
