package mirror

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/showrunner/showrunner/internal/catalog"
)

// ErrConfigurationNotFound is returned when the remote configuration
// has never been fetched.
var ErrConfigurationNotFound = errors.New("remote configuration not found")

// ConfigStore persists the singleton remote-configuration record and
// keeps an in-memory copy for cheap reads by the presentation layer.
// The stored record is replaced wholesale on each refresh; a failed
// refresh leaves the previous copy in place.
type ConfigStore struct {
	db     *sql.DB
	logger zerolog.Logger

	mu      sync.RWMutex
	current *catalog.RemoteConfiguration
}

// NewConfigStore creates a configuration store. The in-memory copy is
// warmed from the database when a previous record exists.
func NewConfigStore(db *sql.DB, logger zerolog.Logger) *ConfigStore {
	s := &ConfigStore{
		db:     db,
		logger: logger.With().Str("component", "configstore").Logger(),
	}

	if conf, err := s.Get(context.Background()); err == nil {
		s.current = conf
	}

	return s
}

// Replace upserts the singleton record and swaps the in-memory copy.
func (s *ConfigStore) Replace(ctx context.Context, conf *catalog.RemoteConfiguration) error {
	encoded, err := json.Marshal(conf)
	if err != nil {
		return fmt.Errorf("failed to encode configuration: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO configuration (id, data, fetched_at)
		VALUES (1, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			data = excluded.data,
			fetched_at = excluded.fetched_at`,
		string(encoded), time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to store configuration: %w", err)
	}

	s.mu.Lock()
	s.current = conf
	s.mu.Unlock()

	s.logger.Debug().
		Str("imageBaseURL", conf.Images.SecureBaseURL).
		Int("changeKeys", len(conf.ChangeKeys)).
		Msg("Replaced remote configuration")

	return nil
}

// Get reads the persisted record.
func (s *ConfigStore) Get(ctx context.Context) (*catalog.RemoteConfiguration, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT data FROM configuration WHERE id = 1`).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrConfigurationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration: %w", err)
	}

	var conf catalog.RemoteConfiguration
	if err := json.Unmarshal([]byte(data), &conf); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}
	return &conf, nil
}

// Current returns the in-memory copy, or nil when no configuration has
// ever been fetched. Callers must treat the result as read-only.
func (s *ConfigStore) Current() *catalog.RemoteConfiguration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}
