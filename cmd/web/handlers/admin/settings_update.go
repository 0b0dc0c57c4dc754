package admin

import (
	"log/slog"
	"strings"

	"github.com/labstack/echo/v4"
	"thirdcoast.systems/mytube/cmd/web/handlers/common"
	"thirdcoast.systems/mytube/internal/db"
)

// HandleSettingsUpdate stores the admin-editable AI prompts and refreshes the
// in-process cache so the next enrichment run picks them up.
func HandleSettingsUpdate(dbc *db.DatabaseConnection, cache *db.SettingsCache) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req struct {
			AISystemPrompt       string `json:"ai_system_prompt"`
			AIUserPromptTemplate string `json:"ai_user_prompt_template"`
		}
		if err := c.Bind(&req); err != nil {
			return common.ErrBadRequest("invalid json")
		}

		setting := &db.EnrichmentSetting{
			AISystemPrompt:       strings.TrimSpace(req.AISystemPrompt),
			AIUserPromptTemplate: strings.TrimSpace(req.AIUserPromptTemplate),
		}

		ctx := c.Request().Context()
		if err := dbc.Queries(ctx).UpsertEnrichmentSettings(ctx, setting); err != nil {
			slog.Error("failed to save enrichment settings", "error", err)
			return common.ErrInternal("failed to save settings")
		}
		if err := cache.Reload(ctx); err != nil {
			slog.Error("failed to reload settings cache", "error", err)
			return common.ErrInternal("settings saved but cache reload failed")
		}

		return c.JSON(200, map[string]any{"status": "saved"})
	}
}

// HandleSettingsShow returns the current enrichment settings from the cache.
func HandleSettingsShow(cache *db.SettingsCache) echo.HandlerFunc {
	return func(c echo.Context) error {
		s := cache.Get()
		return c.JSON(200, map[string]any{
			"ai_system_prompt":        s.AISystemPrompt,
			"ai_user_prompt_template": s.AIUserPromptTemplate,
		})
	}
}
