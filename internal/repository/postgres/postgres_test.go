package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"shorturl-backend/internal/domain"
	"shorturl-backend/internal/repository"
)

// setupStorage starts a disposable PostgreSQL container, migrates the
// schema and returns a ready storage. Requires a Docker daemon.
func setupStorage(t *testing.T) *PostgresStorage {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container-backed test in short mode")
	}

	ctx := context.Background()

	container, err := tcpostgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:15-alpine"),
		tcpostgres.WithDatabase("shorturl_test"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = container.Terminate(ctx)
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(&domain.URL{}, &domain.AccessHistory{}))

	return New(db, zap.NewNop())
}

func TestPostgresStorage(t *testing.T) {
	storage := setupStorage(t)
	ctx := context.Background()

	t.Run("save_and_get", func(t *testing.T) {
		url := &domain.URL{
			Code:        "abc123",
			OriginalURL: "https://example.com",
			Status:      domain.StatusEnabled,
		}
		require.NoError(t, storage.SaveURL(ctx, url))
		require.NotZero(t, url.ID)

		got, err := storage.GetURLByCode(ctx, "abc123")
		require.NoError(t, err)
		assert.Equal(t, "https://example.com", got.OriginalURL)

		byID, err := storage.GetURLByID(ctx, url.ID)
		require.NoError(t, err)
		assert.Equal(t, "abc123", byID.Code)
	})

	t.Run("unique_code_constraint", func(t *testing.T) {
		err := storage.SaveURL(ctx, &domain.URL{
			Code:        "abc123",
			OriginalURL: "https://other.com",
		})
		assert.ErrorIs(t, err, repository.ErrCodeExists)
	})

	t.Run("code_exists", func(t *testing.T) {
		exists, err := storage.CodeExists(ctx, "abc123")
		require.NoError(t, err)
		assert.True(t, exists)

		exists, err = storage.CodeExists(ctx, "missing")
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("update_partial_fields", func(t *testing.T) {
		desc := "docs link"
		got, err := storage.UpdateURL(ctx, "abc123", repository.UpdateURLFields{Description: &desc})
		require.NoError(t, err)
		require.NotNil(t, got.Description)
		assert.Equal(t, "docs link", *got.Description)
		assert.Equal(t, "https://example.com", got.OriginalURL)

		_, err = storage.UpdateURL(ctx, "missing", repository.UpdateURLFields{Description: &desc})
		assert.ErrorIs(t, err, repository.ErrURLNotFound)
	})

	t.Run("empty_update_refreshes_updated_at", func(t *testing.T) {
		before, err := storage.GetURLByCode(ctx, "abc123")
		require.NoError(t, err)

		time.Sleep(10 * time.Millisecond)
		got, err := storage.UpdateURL(ctx, "abc123", repository.UpdateURLFields{})
		require.NoError(t, err)
		assert.True(t, got.UpdatedAt.After(before.UpdatedAt))
		assert.Equal(t, before.OriginalURL, got.OriginalURL)

		_, err = storage.UpdateURL(ctx, "missing", repository.UpdateURLFields{})
		assert.ErrorIs(t, err, repository.ErrURLNotFound)
	})

	t.Run("list_with_filters", func(t *testing.T) {
		require.NoError(t, storage.SaveURL(ctx, &domain.URL{
			Code:        "xyz789",
			OriginalURL: "https://example.com/other",
			Status:      domain.StatusDisabled,
		}))

		substr := "example.com"
		_, total, err := storage.ListURLs(ctx, repository.ListURLParams{OriginalURL: &substr})
		require.NoError(t, err)
		assert.EqualValues(t, 2, total)

		status := domain.StatusDisabled
		urls, total, err := storage.ListURLs(ctx, repository.ListURLParams{Status: &status})
		require.NoError(t, err)
		assert.EqualValues(t, 1, total)
		require.Len(t, urls, 1)
		assert.Equal(t, "xyz789", urls[0].Code)

		urls, _, err = storage.ListURLs(ctx, repository.ListURLParams{
			SortBy: repository.SortByCode,
			Order:  repository.OrderAsc,
		})
		require.NoError(t, err)
		require.Len(t, urls, 2)
		assert.Equal(t, "abc123", urls[0].Code)
	})

	t.Run("history_write_and_cascade", func(t *testing.T) {
		url, err := storage.GetURLByCode(ctx, "xyz789")
		require.NoError(t, err)

		ua := "curl/8.4.0"
		require.NoError(t, storage.SaveHistory(ctx, &domain.AccessHistory{
			URLID:      url.ID,
			Code:       url.Code,
			IPAddress:  "203.0.113.9",
			UserAgent:  &ua,
			AccessedAt: time.Now(),
		}))

		_, total, err := storage.ListHistories(ctx, repository.ListHistoryParams{URLID: &url.ID})
		require.NoError(t, err)
		assert.EqualValues(t, 1, total)

		// Deleting the URL removes its history rows through the FK.
		require.NoError(t, storage.DeleteURL(ctx, "xyz789"))

		_, total, err = storage.ListHistories(ctx, repository.ListHistoryParams{URLID: &url.ID})
		require.NoError(t, err)
		assert.EqualValues(t, 0, total)
	})

	t.Run("batch_delete_reports_affected_rows", func(t *testing.T) {
		url, err := storage.GetURLByCode(ctx, "abc123")
		require.NoError(t, err)

		deleted, err := storage.DeleteURLBatch(ctx, []int64{url.ID, 9999})
		require.NoError(t, err)
		assert.EqualValues(t, 1, deleted)
	})
}
