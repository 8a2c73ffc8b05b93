package client

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
	ErrClientNotFound = errors.New("client not found")
	// ErrClientInUse is returned when time entries still reference a project of the client.
	ErrClientInUse = errors.New("client has time entries")
)

const foreignKeyViolation = "23503"

type Repository interface {
	ListClients(ctx context.Context, userId int) ([]Client, error)
	GetClient(ctx context.Context, userId int, id int) (Client, error)
	CreateClient(ctx context.Context, userId int, client Client) (Client, error)
	UpdateClient(ctx context.Context, userId int, client Client) (Client, error)
	// DeleteClient removes the client together with its projects. It fails with
	// ErrClientInUse while time entries reference any of those projects.
	DeleteClient(ctx context.Context, userId int, id int) (bool, error)
	// CountTimeEntries counts time entries booked on any project of the client.
	CountTimeEntries(ctx context.Context, userId int, id int) (int, error)
}

type RepositoryImpl struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *RepositoryImpl {
	return &RepositoryImpl{db: db}
}

func (r *RepositoryImpl) ListClients(ctx context.Context, userId int) ([]Client, error) {
	query := `SELECT id, name, email, company, created_at FROM client WHERE user_id = $1 ORDER BY created_at DESC, id DESC`
	rows, err := r.db.Query(ctx, query, userId)
	if err != nil {
		err := fmt.Errorf("could not query clients: %w", err)
		log.Error(err)
		return nil, err
	}
	defer rows.Close()

	clients := make([]Client, 0)
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			log.Error(err)
			return nil, err
		}
		clients = append(clients, c)
	}
	return clients, rows.Err()
}

func (r *RepositoryImpl) GetClient(ctx context.Context, userId int, id int) (Client, error) {
	query := `SELECT id, name, email, company, created_at FROM client WHERE user_id = $1 AND id = $2`
	c, err := scanClient(r.db.QueryRow(ctx, query, userId, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Client{}, ErrClientNotFound
	}
	if err != nil {
		log.Error(err)
		return Client{}, err
	}
	return c, nil
}

func (r *RepositoryImpl) CreateClient(ctx context.Context, userId int, client Client) (Client, error) {
	query := `INSERT INTO client (user_id, name, email, company) VALUES ($1, $2, $3, $4) RETURNING id, created_at`
	err := r.db.QueryRow(ctx, query, userId, client.Name, client.Email, nullable(client.Company)).
		Scan(&client.Id, &client.CreatedAt)
	if err != nil {
		err := fmt.Errorf("could not execute query: %w", err)
		log.Error(err)
		return Client{}, err
	}
	return client, nil
}

func (r *RepositoryImpl) UpdateClient(ctx context.Context, userId int, client Client) (Client, error) {
	query := `UPDATE client SET name = $1, email = $2, company = $3 WHERE user_id = $4 AND id = $5 RETURNING created_at`
	err := r.db.QueryRow(ctx, query, client.Name, client.Email, nullable(client.Company), userId, client.Id).
		Scan(&client.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Client{}, ErrClientNotFound
	}
	if err != nil {
		err := fmt.Errorf("could not execute query: %w", err)
		log.Error(err)
		return Client{}, err
	}
	return client, nil
}

func (r *RepositoryImpl) DeleteClient(ctx context.Context, userId int, id int) (bool, error) {
	// projects go with the client through ON DELETE CASCADE
	tag, err := r.db.Exec(ctx, `DELETE FROM client WHERE user_id = $1 AND id = $2`, userId, id)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation {
		return false, ErrClientInUse
	}
	if err != nil {
		err := fmt.Errorf("could not delete client %d: %w", id, err)
		log.Error(err)
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *RepositoryImpl) CountTimeEntries(ctx context.Context, userId int, id int) (int, error) {
	query := `SELECT count(*) FROM time_entry e JOIN project p ON p.id = e.project_id
				WHERE p.user_id = $1 AND p.client_id = $2`
	var count int
	if err := r.db.QueryRow(ctx, query, userId, id).Scan(&count); err != nil {
		err := fmt.Errorf("could not count time entries of client %d: %w", id, err)
		log.Error(err)
		return 0, err
	}
	return count, nil
}

func scanClient(row pgx.Row) (Client, error) {
	var c Client
	var company *string
	if err := row.Scan(&c.Id, &c.Name, &c.Email, &company, &c.CreatedAt); err != nil {
		return Client{}, err
	}
	if company != nil {
		c.Company = *company
	}
	return c, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
