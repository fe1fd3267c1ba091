package sqlstore

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pricepilot/internal/domain"
)

const testHash = "$2a$10$0123456789abcdefghijkl"

func newTestRepository(t *testing.T) *UserRepository {
	t.Helper()

	db, dialect, err := Open(context.Background(), filepath.Join(t.TempDir(), "users.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo := NewUserRepository(db, dialect)
	require.NoError(t, repo.Init(context.Background()))
	return repo
}

func newTestUser(email string) *domain.User {
	return &domain.User{
		ID:           uuid.NewString(),
		Name:         "Ann Example",
		Email:        email,
		PasswordHash: testHash,
	}
}

func TestUserRepositoryCreateAndGet(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	user := newTestUser("ann@x.io")
	user.SavedProducts = []domain.SavedProduct{{ProductID: "p1", Source: domain.SourceAmazon}}
	require.NoError(t, repo.Create(ctx, user))

	byEmail, err := repo.GetByEmail(ctx, "  ANN@x.io ")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byEmail.ID)
	assert.Equal(t, "Ann Example", byEmail.Name)
	assert.Equal(t, testHash, byEmail.PasswordHash)
	require.Len(t, byEmail.SavedProducts, 1)
	assert.Equal(t, "p1", byEmail.SavedProducts[0].ProductID)
	assert.Equal(t, domain.SourceAmazon, byEmail.SavedProducts[0].Source)

	byID, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.Email, byID.Email)
	assert.False(t, byID.CreatedAt.IsZero())
}

func TestUserRepositoryGetMissing(t *testing.T) {
	repo := newTestRepository(t)

	_, err := repo.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)

	_, err = repo.GetByEmail(context.Background(), "nobody@x.io")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestUserRepositoryCreateRejectsInvalidUser(t *testing.T) {
	repo := newTestRepository(t)

	user := newTestUser("ann@x.io")
	user.Name = "A"
	err := repo.Create(context.Background(), user)
	require.Error(t, err)
	assert.Equal(t, domain.KindValidation, domain.KindOf(err))
}

func TestUserRepositoryDuplicateEmail(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	original := newTestUser("ann@x.io")
	require.NoError(t, repo.Create(ctx, original))

	duplicate := newTestUser("ann@x.io")
	duplicate.Name = "Other Ann"
	duplicate.PasswordHash = "$2a$10$someotherhashvalue00"
	err := repo.Create(ctx, duplicate)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrDuplicateEmail)
	assert.Equal(t, domain.KindConflict, domain.KindOf(err))

	stored, err := repo.GetByEmail(ctx, "ann@x.io")
	require.NoError(t, err)
	assert.Equal(t, original.ID, stored.ID)
	assert.Equal(t, "Ann Example", stored.Name)
	assert.Equal(t, testHash, stored.PasswordHash)

	_, err = repo.GetByID(ctx, duplicate.ID)
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestUserRepositoryConcurrentRegistrationSameEmail(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	const attempts = 8
	var (
		wg   sync.WaitGroup
		errs = make([]error, attempts)
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = repo.Create(ctx, newTestUser("race@x.io"))
		}(i)
	}
	wg.Wait()

	created := 0
	for _, err := range errs {
		if err == nil {
			created++
			continue
		}
		assert.ErrorIs(t, err, domain.ErrDuplicateEmail)
	}
	assert.Equal(t, 1, created)
}

func TestUserRepositoryUpdates(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	user := newTestUser("ann@x.io")
	require.NoError(t, repo.Create(ctx, user))

	require.NoError(t, repo.UpdatePasswordHash(ctx, user.ID, "$2a$10$replacementhashvalue"))
	require.NoError(t, repo.UpdateProfileImage(ctx, user.ID, "data:image/png;base64,AAAA"))

	got, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "$2a$10$replacementhashvalue", got.PasswordHash)
	assert.Equal(t, "data:image/png;base64,AAAA", got.ProfileImage)
	assert.False(t, got.UpdatedAt.Before(got.CreatedAt))

	err = repo.UpdatePasswordHash(ctx, "missing", testHash)
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
	err = repo.UpdateProfileImage(ctx, "missing", "data:")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestUserRepositorySavedProducts(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	user := newTestUser("ann@x.io")
	require.NoError(t, repo.Create(ctx, user))

	added, err := repo.AddSavedProduct(ctx, user.ID, domain.SavedProduct{ProductID: "p1", Source: domain.SourceAmazon})
	require.NoError(t, err)
	assert.True(t, added)

	added, err = repo.AddSavedProduct(ctx, user.ID, domain.SavedProduct{ProductID: "p1", Source: domain.SourceMyntra})
	require.NoError(t, err)
	assert.False(t, added)

	added, err = repo.AddSavedProduct(ctx, user.ID, domain.SavedProduct{
		ProductID: "p2",
		Source:    domain.SourceOther,
		DateAdded: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.True(t, added)

	products, err := repo.ListSavedProducts(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, "p1", products[0].ProductID)
	assert.Equal(t, domain.SourceAmazon, products[0].Source)
	assert.Equal(t, "p2", products[1].ProductID)

	removed, err := repo.RemoveSavedProduct(ctx, user.ID, "p1")
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = repo.RemoveSavedProduct(ctx, user.ID, "p1")
	require.NoError(t, err)
	assert.False(t, removed)

	products, err = repo.ListSavedProducts(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "p2", products[0].ProductID)
}

func TestUserRepositoryConcurrentAddKeepsOneEntry(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	user := newTestUser("ann@x.io")
	require.NoError(t, repo.Create(ctx, user))

	const attempts = 8
	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		added int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := repo.AddSavedProduct(ctx, user.ID, domain.SavedProduct{ProductID: "p1", Source: domain.SourceOther})
			assert.NoError(t, err)
			if ok {
				mu.Lock()
				added++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, added)
	products, err := repo.ListSavedProducts(ctx, user.ID)
	require.NoError(t, err)
	assert.Len(t, products, 1)
}

func TestUserRepositoryAddForUnknownUser(t *testing.T) {
	repo := newTestRepository(t)

	_, err := repo.AddSavedProduct(context.Background(), "missing", domain.SavedProduct{ProductID: "p1", Source: domain.SourceOther})
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestUserRepositoryRemoveForUnknownUser(t *testing.T) {
	repo := newTestRepository(t)

	removed, err := repo.RemoveSavedProduct(context.Background(), "missing", "p1")
	require.NoError(t, err)
	assert.False(t, removed)
}
