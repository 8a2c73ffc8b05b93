package project

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
)

var (
	ErrProjectNotFound = errors.New("project not found")
	// ErrProjectInUse is returned when time entries still reference the project.
	ErrProjectInUse = errors.New("project has time entries")
)

const foreignKeyViolation = "23503"

type Repository interface {
	ListProjects(ctx context.Context, userId int) ([]Project, error)
	GetProject(ctx context.Context, userId int, id int) (Project, error)
	CreateProject(ctx context.Context, userId int, project Project) (Project, error)
	UpdateProject(ctx context.Context, userId int, project Project) (Project, error)
	// DeleteProject fails with ErrProjectInUse while time entries reference the project.
	DeleteProject(ctx context.Context, userId int, id int) (bool, error)
	CountTimeEntries(ctx context.Context, userId int, id int) (int, error)
}

type RepositoryImpl struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *RepositoryImpl {
	return &RepositoryImpl{db: db}
}

const selectProject = `SELECT id, client_id, name, hourly_rate, color, currency, created_at FROM project`

func (r *RepositoryImpl) ListProjects(ctx context.Context, userId int) ([]Project, error) {
	rows, err := r.db.Query(ctx, selectProject+` WHERE user_id = $1 ORDER BY created_at DESC, id DESC`, userId)
	if err != nil {
		err := fmt.Errorf("could not query projects: %w", err)
		log.Error(err)
		return nil, err
	}
	defer rows.Close()

	projects := make([]Project, 0)
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			err := fmt.Errorf("error scanning row: %w", err)
			log.Error(err)
			return nil, err
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

func (r *RepositoryImpl) GetProject(ctx context.Context, userId int, id int) (Project, error) {
	p, err := scanProject(r.db.QueryRow(ctx, selectProject+` WHERE user_id = $1 AND id = $2`, userId, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Project{}, ErrProjectNotFound
	}
	if err != nil {
		log.Errorf("failed to get project %d: %v", id, err)
		return Project{}, err
	}
	return p, nil
}

func (r *RepositoryImpl) CreateProject(ctx context.Context, userId int, project Project) (Project, error) {
	query := `INSERT INTO project (user_id, client_id, name, hourly_rate, color, currency)
				VALUES ($1, $2, $3, $4, $5, $6) RETURNING id, created_at`
	err := r.db.QueryRow(ctx, query,
		userId,
		project.ClientId,
		project.Name,
		project.HourlyRate,
		project.Color,
		project.Currency,
	).Scan(&project.Id, &project.CreatedAt)
	if err != nil {
		err := fmt.Errorf("could not execute query: %w", err)
		log.Error(err)
		return Project{}, err
	}
	return project, nil
}

func (r *RepositoryImpl) UpdateProject(ctx context.Context, userId int, project Project) (Project, error) {
	query := `UPDATE project SET client_id = $1, name = $2, hourly_rate = $3, color = $4, currency = $5
				WHERE user_id = $6 AND id = $7 RETURNING created_at`
	err := r.db.QueryRow(ctx, query,
		project.ClientId,
		project.Name,
		project.HourlyRate,
		project.Color,
		project.Currency,
		userId,
		project.Id,
	).Scan(&project.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Project{}, ErrProjectNotFound
	}
	if err != nil {
		err := fmt.Errorf("could not execute query: %w", err)
		log.Error(err)
		return Project{}, err
	}
	return project, nil
}

func (r *RepositoryImpl) DeleteProject(ctx context.Context, userId int, id int) (bool, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM project WHERE user_id = $1 AND id = $2`, userId, id)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation {
		return false, ErrProjectInUse
	}
	if err != nil {
		err := fmt.Errorf("could not delete project %d: %w", id, err)
		log.Error(err)
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *RepositoryImpl) CountTimeEntries(ctx context.Context, userId int, id int) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `SELECT count(*) FROM time_entry WHERE user_id = $1 AND project_id = $2`, userId, id).Scan(&count)
	if err != nil {
		err := fmt.Errorf("could not count time entries of project %d: %w", id, err)
		log.Error(err)
		return 0, err
	}
	return count, nil
}

func scanProject(row pgx.Row) (Project, error) {
	var p Project
	err := row.Scan(&p.Id, &p.ClientId, &p.Name, &p.HourlyRate, &p.Color, &p.Currency, &p.CreatedAt)
	return p, err
}
