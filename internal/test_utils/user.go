package test_utils

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
)

// InsertUser stores a user row directly and returns its id.
func InsertUser(t *testing.T, db *pgxpool.Pool, username string) int {
	t.Helper()
	var id int
	err := db.QueryRow(context.Background(),
		"INSERT INTO users (uid, username, timezone) VALUES ($1, $2, 'UTC') RETURNING id",
		uuid.NewString(), username,
	).Scan(&id)
	require.NoError(t, err)
	return id
}
