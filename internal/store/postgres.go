package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/appgrid/catalog-engine/internal/models"
)

// PostgresStore implements RecordStore using PostgreSQL
type PostgresStore struct {
	pool    *pgxpool.Pool
	bc      *broadcaster
	changed chan struct{}
	stop    context.CancelFunc
	done    chan struct{}
	refresh time.Duration
}

// PostgresConfig holds PostgreSQL connection configuration
type PostgresConfig struct {
	DSN          string
	MaxOpenConns int32
	MaxIdleConns int32
	MaxLifetime  time.Duration

	// RefreshInterval bounds how stale a subscription can be with respect
	// to writes made by other service instances
	RefreshInterval time.Duration
}

// NewPostgresStore creates a new PostgreSQL-backed record store
func NewPostgresStore(ctx context.Context, cfg PostgresConfig) (*PostgresStore, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DSN: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		poolConfig.MaxConns = cfg.MaxOpenConns
	} else {
		poolConfig.MaxConns = 25 // default
	}

	if cfg.MaxIdleConns > 0 {
		poolConfig.MinConns = cfg.MaxIdleConns
	} else {
		poolConfig.MinConns = 5 // default
	}

	if cfg.MaxLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.MaxLifetime
	} else {
		poolConfig.MaxConnLifetime = 30 * time.Minute
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	refresh := cfg.RefreshInterval
	if refresh <= 0 {
		refresh = 30 * time.Second
	}

	watchCtx, cancel := context.WithCancel(context.Background())
	s := &PostgresStore{
		pool:    pool,
		bc:      newBroadcaster(),
		changed: make(chan struct{}, 1),
		stop:    cancel,
		done:    make(chan struct{}),
		refresh: refresh,
	}
	go s.watch(watchCtx)

	return s, nil
}

// Ping checks database connectivity
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close stops the snapshot watcher and closes the connection pool
func (s *PostgresStore) Close() error {
	s.stop()
	<-s.done
	s.pool.Close()
	return nil
}

// Subscribe opens a full-snapshot subscription
func (s *PostgresStore) Subscribe(ctx context.Context) (<-chan Snapshot, func()) {
	ch, release := s.bc.subscribe()

	// Seed the new subscriber with the current state so it does not have
	// to wait for the first write or refresh tick
	go func() {
		readCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		items, err := s.List(readCtx)
		if err != nil {
			slog.Warn("failed to read initial snapshot", "error", err)
			return
		}
		s.bc.publish(Snapshot{Items: items, Taken: time.Now()})
	}()

	go func() {
		<-ctx.Done()
		release()
	}()

	return ch, release
}

// notify wakes the watcher after a successful local write
func (s *PostgresStore) notify() {
	select {
	case s.changed <- struct{}{}:
	default:
	}
}

// watch re-reads the collection after every local write and on a refresh
// interval, publishing the full snapshot to all subscribers
func (s *PostgresStore) watch(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.refresh)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.changed:
		case <-ticker.C:
			if s.bc.count() == 0 {
				continue
			}
		}

		readCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		items, err := s.List(readCtx)
		cancel()
		if err != nil {
			slog.Error("failed to read snapshot", "error", err)
			continue
		}

		s.bc.publish(Snapshot{Items: items, Taken: time.Now()})
	}
}

const appColumns = `id, title, description, apk_link, website_link, logo_url, screenshots, category, tags, featured, downloads, views, rating, version, size, created_at, updated_at`

// Create persists a new app and returns its server-assigned id
func (s *PostgresStore) Create(ctx context.Context, app *models.App) (string, error) {
	id := app.ID
	if id == "" {
		id = uuid.NewString()
	}

	screenshotsJSON, err := json.Marshal(emptyIfNil(app.Screenshots))
	if err != nil {
		return "", fmt.Errorf("failed to marshal screenshots: %w", err)
	}

	tagsJSON, err := json.Marshal(emptyIfNil(app.Tags))
	if err != nil {
		return "", fmt.Errorf("failed to marshal tags: %w", err)
	}

	query := `
		INSERT INTO apps (id, title, description, apk_link, website_link, logo_url, screenshots, category, tags, featured, downloads, views, rating, version, size, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`

	_, err = s.pool.Exec(ctx, query,
		id,
		app.Title,
		app.Description,
		app.APKLink,
		nullString(app.WebsiteLink),
		nullString(app.LogoURL),
		screenshotsJSON,
		string(models.NormalizeCategory(app.Category)),
		tagsJSON,
		app.Featured,
		app.Downloads,
		app.Views,
		app.Rating,
		nullString(app.Version),
		nullString(app.Size),
		app.CreatedAt,
		app.UpdatedAt,
	)

	if err != nil {
		return "", fmt.Errorf("failed to create app: %w", err)
	}

	s.notify()
	return id, nil
}

// Get retrieves an app by ID
func (s *PostgresStore) Get(ctx context.Context, id string) (*models.App, error) {
	query := fmt.Sprintf(`SELECT %s FROM apps WHERE id = $1`, appColumns)

	app, err := scanApp(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get app: %w", err)
	}

	return app, nil
}

// Update applies a field-level patch to an existing app
func (s *PostgresStore) Update(ctx context.Context, id string, patch models.Patch) error {
	sets := make([]string, 0, 13)
	args := make([]interface{}, 0, 14)
	args = append(args, id)
	argNum := 2

	set := func(column string, value interface{}) {
		sets = append(sets, fmt.Sprintf("%s = $%d", column, argNum))
		args = append(args, value)
		argNum++
	}

	if patch.Title != nil {
		set("title", *patch.Title)
	}
	if patch.Description != nil {
		set("description", *patch.Description)
	}
	if patch.APKLink != nil {
		set("apk_link", *patch.APKLink)
	}
	if patch.WebsiteLink != nil {
		set("website_link", nullString(*patch.WebsiteLink))
	}
	if patch.LogoURL != nil {
		set("logo_url", nullString(*patch.LogoURL))
	}
	if patch.Screenshots != nil {
		screenshotsJSON, err := json.Marshal(emptyIfNil(*patch.Screenshots))
		if err != nil {
			return fmt.Errorf("failed to marshal screenshots: %w", err)
		}
		set("screenshots", screenshotsJSON)
	}
	if patch.Category != nil {
		set("category", string(models.NormalizeCategory(*patch.Category)))
	}
	if patch.Tags != nil {
		tagsJSON, err := json.Marshal(emptyIfNil(*patch.Tags))
		if err != nil {
			return fmt.Errorf("failed to marshal tags: %w", err)
		}
		set("tags", tagsJSON)
	}
	if patch.Featured != nil {
		set("featured", *patch.Featured)
	}
	if patch.Rating != nil {
		set("rating", *patch.Rating)
	}
	if patch.Version != nil {
		set("version", nullString(*patch.Version))
	}
	if patch.Size != nil {
		set("size", nullString(*patch.Size))
	}

	if len(sets) == 0 {
		return nil
	}

	set("updated_at", time.Now().UTC())

	query := "UPDATE apps SET "
	for i, clause := range sets {
		if i > 0 {
			query += ", "
		}
		query += clause
	}
	query += " WHERE id = $1"

	result, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update app: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrNotFound
	}

	s.notify()
	return nil
}

// Delete removes an app by ID
func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	result, err := s.pool.Exec(ctx, `DELETE FROM apps WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete app: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrNotFound
	}

	s.notify()
	return nil
}

// IncrementDownloads atomically adds one to the download counter
func (s *PostgresStore) IncrementDownloads(ctx context.Context, id string) error {
	result, err := s.pool.Exec(ctx, `UPDATE apps SET downloads = downloads + 1 WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to increment downloads: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrNotFound
	}

	s.notify()
	return nil
}

// List returns all apps ordered by created_at descending
func (s *PostgresStore) List(ctx context.Context) ([]*models.App, error) {
	query := fmt.Sprintf(`SELECT %s FROM apps ORDER BY created_at DESC`, appColumns)

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list apps: %w", err)
	}
	defer rows.Close()

	var apps []*models.App
	for rows.Next() {
		app, err := scanApp(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan app: %w", err)
		}
		apps = append(apps, app)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating apps: %w", err)
	}

	return apps, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanApp(row rowScanner) (*models.App, error) {
	var app models.App
	var categoryStr string
	var websiteLink, logoURL, version, size sql.NullString
	var screenshotsJSON, tagsJSON []byte

	err := row.Scan(
		&app.ID,
		&app.Title,
		&app.Description,
		&app.APKLink,
		&websiteLink,
		&logoURL,
		&screenshotsJSON,
		&categoryStr,
		&tagsJSON,
		&app.Featured,
		&app.Downloads,
		&app.Views,
		&app.Rating,
		&version,
		&size,
		&app.CreatedAt,
		&app.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	app.Category = models.Category(categoryStr)
	app.WebsiteLink = websiteLink.String
	app.LogoURL = logoURL.String
	app.Version = version.String
	app.Size = size.String

	if screenshotsJSON != nil {
		if err := json.Unmarshal(screenshotsJSON, &app.Screenshots); err != nil {
			return nil, fmt.Errorf("failed to unmarshal screenshots: %w", err)
		}
	}

	if tagsJSON != nil {
		if err := json.Unmarshal(tagsJSON, &app.Tags); err != nil {
			return nil, fmt.Errorf("failed to unmarshal tags: %w", err)
		}
	}

	return &app, nil
}

// Helper functions for nullable values

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func emptyIfNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
