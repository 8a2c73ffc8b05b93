package project

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tallyhq/tally/internal/apperr"
	"github.com/tallyhq/tally/pkg/client"
	"github.com/tallyhq/tally/pkg/user"
)

func setupServiceTest(t *testing.T) (*ServiceImpl, *StubRepository, context.Context, client.Client) {
	ctx := user.WithUser(context.Background(), user.User{Id: 1, Username: "test-user-1"})
	clientService := client.NewService(client.NewStubRepository())
	acme, err := clientService.CreateClient(ctx, client.Client{Name: "Acme"})
	require.NoError(t, err)
	repo := NewStubRepository()
	return NewService(repo, clientService), repo, ctx, acme
}

func TestCreateProject(t *testing.T) {
	t.Run("applies defaults", func(t *testing.T) {
		service, _, ctx, acme := setupServiceTest(t)

		created, err := service.CreateProject(ctx, Project{ClientId: acme.Id, Name: " Website ", HourlyRate: 50})
		require.NoError(t, err)

		assert.Equal(t, "Website", created.Name)
		assert.Equal(t, DefaultColor, created.Color)
		assert.Equal(t, DefaultCurrency, created.Currency)
		assert.Equal(t, 50.0, created.HourlyRate)
	})

	t.Run("uppercases currency", func(t *testing.T) {
		service, _, ctx, acme := setupServiceTest(t)

		created, err := service.CreateProject(ctx, Project{ClientId: acme.Id, Name: "App", Currency: "eur"})
		require.NoError(t, err)
		assert.Equal(t, "EUR", created.Currency)
	})

	invalid := map[string]func(acme client.Client) Project{
		"missing name":     func(c client.Client) Project { return Project{ClientId: c.Id} },
		"missing client":   func(c client.Client) Project { return Project{Name: "App"} },
		"negative rate":    func(c client.Client) Project { return Project{ClientId: c.Id, Name: "App", HourlyRate: -1} },
		"nan rate":         func(c client.Client) Project { return Project{ClientId: c.Id, Name: "App", HourlyRate: math.NaN()} },
		"invalid currency": func(c client.Client) Project { return Project{ClientId: c.Id, Name: "App", Currency: "euro"} },
	}
	for name, build := range invalid {
		t.Run(name, func(t *testing.T) {
			service, _, ctx, acme := setupServiceTest(t)

			_, err := service.CreateProject(ctx, build(acme))
			assert.True(t, apperr.IsValidation(err), "expected validation error, got %v", err)
		})
	}

	t.Run("client must exist", func(t *testing.T) {
		service, _, ctx, _ := setupServiceTest(t)

		_, err := service.CreateProject(ctx, Project{ClientId: 77, Name: "App"})
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	})
}

// staleCountRepository reports no entries, as if they were booked right after the count.
type staleCountRepository struct {
	*StubRepository
}

func (r *staleCountRepository) CountTimeEntries(ctx context.Context, userId int, id int) (int, error) {
	return 0, nil
}

func TestDeleteProject(t *testing.T) {
	t.Run("refuses while time entries reference it", func(t *testing.T) {
		service, repo, ctx, acme := setupServiceTest(t)
		created, err := service.CreateProject(ctx, Project{ClientId: acme.Id, Name: "App"})
		require.NoError(t, err)
		repo.Entries[created.Id] = 1

		err = service.DeleteProject(ctx, created.Id)
		assert.ErrorIs(t, err, apperr.ErrConflict)

		_, err = service.GetProject(ctx, created.Id)
		assert.NoError(t, err)
	})

	t.Run("refuses when entries are booked after counting", func(t *testing.T) {
		ctx := user.WithUser(context.Background(), user.User{Id: 1, Username: "test-user-1"})
		clientService := client.NewService(client.NewStubRepository())
		acme, err := clientService.CreateClient(ctx, client.Client{Name: "Acme"})
		require.NoError(t, err)
		repo := &staleCountRepository{NewStubRepository()}
		service := NewService(repo, clientService)
		created, err := service.CreateProject(ctx, Project{ClientId: acme.Id, Name: "App"})
		require.NoError(t, err)
		repo.Entries[created.Id] = 1

		err = service.DeleteProject(ctx, created.Id)
		assert.ErrorIs(t, err, apperr.ErrConflict)

		_, err = service.GetProject(ctx, created.Id)
		assert.NoError(t, err)
	})

	t.Run("deletes unused project", func(t *testing.T) {
		service, _, ctx, acme := setupServiceTest(t)
		created, err := service.CreateProject(ctx, Project{ClientId: acme.Id, Name: "App"})
		require.NoError(t, err)

		require.NoError(t, service.DeleteProject(ctx, created.Id))

		_, err = service.GetProject(ctx, created.Id)
		assert.ErrorIs(t, err, apperr.ErrNotFound)
		assert.ErrorIs(t, service.DeleteProject(ctx, created.Id), apperr.ErrNotFound)
	})
}

func TestNewLookup(t *testing.T) {
	lookup := NewLookup([]Project{{Id: 1, Name: "A"}, {Id: 2, Name: "B"}})

	assert.Len(t, lookup, 2)
	assert.Equal(t, "B", lookup[2].Name)
	_, ok := lookup[3]
	assert.False(t, ok)
}
