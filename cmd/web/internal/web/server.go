package web

import (
	"context"
	"log/slog"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"thirdcoast.systems/mytube/cmd/web/handlers/admin"
	"thirdcoast.systems/mytube/cmd/web/handlers/api/ai_api"
	"thirdcoast.systems/mytube/cmd/web/handlers/api/video_api"
	"thirdcoast.systems/mytube/internal/config"
	"thirdcoast.systems/mytube/internal/db"
	"thirdcoast.systems/mytube/internal/deepseek"
	"thirdcoast.systems/mytube/internal/enrich"
	"thirdcoast.systems/mytube/internal/store"
	"thirdcoast.systems/mytube/internal/thumbnail"
)

type Webserver struct {
	*echo.Echo
	dbc           *db.DatabaseConnection
	store         *store.Store
	thumbnails    *thumbnail.Generator
	registry      *enrich.Registry
	settingsCache *db.SettingsCache
}

func NewWebserver(ctx context.Context, conf *config.Config, dbc *db.DatabaseConnection) (*Webserver, error) {
	e := echo.New()

	st, err := store.New(conf.MediaDir, conf.ThumbnailDir)
	if err != nil {
		return nil, err
	}

	// Initialize settings cache
	settingsCache, err := db.NewSettingsCache(ctx, dbc)
	if err != nil {
		return nil, err
	}

	thumbnails := thumbnail.NewGenerator(st, &thumbnail.Options{
		OffsetPercent: conf.ThumbnailOffsetPercent,
		Timeout:       time.Duration(conf.ThumbnailTimeoutSecs) * time.Second,
	})

	aiClient := deepseek.NewClient(deepseek.Config{
		BaseURL:            conf.DeepSeekBaseURL,
		APIKey:             conf.DeepSeekAPIKey,
		Model:              conf.DeepSeekModel,
		SystemPrompt:       conf.AISystemPrompt,
		UserPromptTemplate: conf.AIUserPromptTmpl,
		Timeout:            time.Duration(conf.AIItemTimeoutSecs) * time.Second,
	})

	catalog := &catalogAdapter{dbc: dbc}
	registry := enrich.NewRegistry(
		catalog,
		catalog,
		&aiAdapter{client: aiClient, settings: settingsCache},
		enrich.WithItemTimeout(time.Duration(conf.AIItemTimeoutSecs)*time.Second),
	)

	webserver := &Webserver{
		Echo:          e,
		dbc:           dbc,
		store:         st,
		thumbnails:    thumbnails,
		registry:      registry,
		settingsCache: settingsCache,
	}

	webserver.registerRoutes()

	if err = webserver.setupMiddleware(); err != nil {
		return nil, err
	}

	return webserver, nil
}

func (s *Webserver) setupMiddleware() error {
	s.HideBanner = true
	s.HidePort = true
	s.Use(middleware.BodyLimitWithConfig(middleware.BodyLimitConfig{
		// Uploads carry whole video files; everything else stays small.
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/api/videos" && c.Request().Method == "POST"
		},
		Limit: "2M",
	}))
	s.Use(middleware.Recover())
	s.Use(middleware.RequestID())
	s.Use(middleware.GzipWithConfig(middleware.GzipConfig{
		Level: 5,
		// Compressing media would corrupt Content-Length and Content-Range.
		Skipper: func(c echo.Context) bool {
			switch c.Path() {
			case "/stream/:id", "/api/videos/:id/thumbnail":
				return true
			default:
				return false
			}
		},
	}))
	s.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		Skipper: func(c echo.Context) bool {
			// Seeking players issue range requests at high frequency.
			return c.Path() == "/stream/:id"
		},
		LogURI:       true,
		LogMethod:    true,
		LogStatus:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  false,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := []any{
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency,
				"remote_ip", v.RemoteIP,
				"request_id", v.RequestID,
			}
			if v.Error != nil {
				fields = append(fields, "error", v.Error)
			}
			slog.Info("request", fields...)
			return nil
		},
	}))

	return nil
}

func (s *Webserver) registerRoutes() {
	// Playback
	s.GET("/stream/:id", video_api.HandleStream(s.dbc, s.store))
	s.HEAD("/stream/:id", video_api.HandleStream(s.dbc, s.store))

	apiGroup := s.Group("/api")
	apiGroup.GET("/videos/index", video_api.HandleIndex(s.dbc))
	apiGroup.POST("/videos", video_api.HandleUpload(s.dbc, s.store))
	apiGroup.GET("/videos/:id/thumbnail", video_api.HandleThumbnail(s.dbc, s.store))
	apiGroup.POST("/videos/:id/view", video_api.HandleView(s.dbc))
	apiGroup.DELETE("/videos/:id", video_api.HandleDelete(s.dbc, s.store))

	adminGroup := s.Group("/admin")
	adminGroup.POST("/videos/:id/thumbnail", admin.HandleThumbnailRegenerate(s.dbc, s.store, s.thumbnails))
	adminGroup.POST("/videos/:id/metadata", admin.HandleMetadataUpdate(s.dbc))
	adminGroup.GET("/settings", admin.HandleSettingsShow(s.settingsCache))
	adminGroup.POST("/settings", admin.HandleSettingsUpdate(s.dbc, s.settingsCache))
	adminGroup.POST("/ai/bulk/start", ai_api.HandleBulkStart(s.registry))
	adminGroup.POST("/ai/bulk/:jobId/cancel", ai_api.HandleBulkCancel(s.registry))
	adminGroup.GET("/ai/bulk/:jobId/status", ai_api.HandleBulkStatus(s.registry))

	// Health check
	s.GET("/healthz", func(c echo.Context) error {
		return c.String(200, "ok")
	})
}
