package db

import (
	"context"
	"errors"
	"sync"

	"github.com/jackc/pgx/v5"
)

// EnrichmentSetting holds the admin-editable AI prompt configuration.
type EnrichmentSetting struct {
	AISystemPrompt       string
	AIUserPromptTemplate string
}

func (q *Queries) GetEnrichmentSettings(ctx context.Context) (*EnrichmentSetting, error) {
	rows, err := q.db.Query(ctx, `
		SELECT ai_system_prompt, ai_user_prompt_template
		FROM enrichment_settings
		WHERE id`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectOneRow(rows, pgx.RowToAddrOfStructByPos[EnrichmentSetting])
}

func (q *Queries) UpsertEnrichmentSettings(ctx context.Context, s *EnrichmentSetting) error {
	_, err := q.db.Exec(ctx, `
		INSERT INTO enrichment_settings (id, ai_system_prompt, ai_user_prompt_template)
		VALUES (TRUE, $1, $2)
		ON CONFLICT (id) DO UPDATE
		SET ai_system_prompt = EXCLUDED.ai_system_prompt,
		    ai_user_prompt_template = EXCLUDED.ai_user_prompt_template,
		    updated_at = now()`,
		s.AISystemPrompt, s.AIUserPromptTemplate)
	return err
}

// SettingsCache provides thread-safe access to enrichment settings.
// Reloaded after an admin updates them.
type SettingsCache struct {
	mu       sync.RWMutex
	settings *EnrichmentSetting
	dbc      *DatabaseConnection
}

// NewSettingsCache creates a new settings cache and loads initial values from DB.
// If no settings row exists yet, it returns a cache with empty prompts and
// callers fall back to their built-in defaults.
func NewSettingsCache(ctx context.Context, dbc *DatabaseConnection) (*SettingsCache, error) {
	settings, err := dbc.Queries(ctx).GetEnrichmentSettings(ctx)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			settings = &EnrichmentSetting{}
		} else {
			return nil, err
		}
	}
	return &SettingsCache{
		settings: settings,
		dbc:      dbc,
	}, nil
}

// Get returns the current enrichment settings. Safe for concurrent reads.
func (c *SettingsCache) Get() *EnrichmentSetting {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.settings
}

// Reload fetches fresh settings from the database and updates the cache.
func (c *SettingsCache) Reload(ctx context.Context) error {
	settings, err := c.dbc.Queries(ctx).GetEnrichmentSettings(ctx)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			settings = &EnrichmentSetting{}
		} else {
			return err
		}
	}
	c.mu.Lock()
	c.settings = settings
	c.mu.Unlock()
	return nil
}
