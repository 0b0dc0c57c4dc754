package web

import (
	"context"

	"github.com/google/uuid"
	"thirdcoast.systems/mytube/internal/db"
	"thirdcoast.systems/mytube/internal/deepseek"
	"thirdcoast.systems/mytube/internal/enrich"
)

// catalogAdapter bridges the database to the enrichment job's catalog and
// persistence contracts.
type catalogAdapter struct {
	dbc *db.DatabaseConnection
}

func (a *catalogAdapter) ListVideosNeedingEnrichment(ctx context.Context) ([]enrich.Target, error) {
	videos, err := a.dbc.Queries(ctx).ListVideosNeedingEnrichment(ctx)
	if err != nil {
		return nil, err
	}
	targets := make([]enrich.Target, 0, len(videos))
	for _, v := range videos {
		targets = append(targets, enrich.Target{
			ID:          db.UUID(v.ID),
			Filename:    v.Filename,
			Title:       v.Title,
			Description: v.Description,
		})
	}
	return targets, nil
}

func (a *catalogAdapter) UpdateMetadata(ctx context.Context, id uuid.UUID, title, description string) error {
	return a.dbc.Queries(ctx).UpdateVideoMetadata(ctx, db.PgUUID(id), title, description)
}

// aiAdapter feeds targets to the DeepSeek client, applying the admin-edited
// prompts from the settings cache at call time.
type aiAdapter struct {
	client   *deepseek.Client
	settings *db.SettingsCache
}

func (a *aiAdapter) SuggestMetadata(ctx context.Context, target enrich.Target) (enrich.Suggestion, error) {
	prompts := a.settings.Get()
	out, err := a.client.SuggestMetadata(ctx, deepseek.Context{
		Filename:           target.Filename,
		Title:              target.Title,
		Description:        target.Description,
		SystemPrompt:       prompts.AISystemPrompt,
		UserPromptTemplate: prompts.AIUserPromptTemplate,
	})
	if err != nil {
		return enrich.Suggestion{}, err
	}
	return enrich.Suggestion{Title: out.Title, Description: out.Description}, nil
}
