package main

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"trunk-processor/internal/apperror"
	"trunk-processor/internal/config"
	"trunk-processor/internal/datastore"
	"trunk-processor/internal/filter"
	"trunk-processor/internal/logger"
	"trunk-processor/internal/notify"
	"trunk-processor/internal/pipeline"
	"trunk-processor/internal/storage"
	"trunk-processor/internal/tgimport"
	"trunk-processor/internal/transcribe"
)

func main() {
	_ = godotenv.Load() // loads .env

	log := logger.New()
	log.WithField("service", "trunk-processor").Info("initializing trunk-processor")

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("configuration failed")
	}

	if cfg.Filter.Enabled() {
		log.WithField("tgid", strings.Join(cfg.Filter.TGIDs, ", ")).
			WithField("group", strings.Join(cfg.Filter.Groups, ", ")).
			Info("filter values provided")
	} else {
		log.Info("filtering disabled")
	}

	store, err := datastore.Open(cfg, log)
	if err != nil {
		log.WithError(err).Fatal("database initialization failed")
	}

	if cfg.TalkgroupSheet != "" {
		if _, err := tgimport.Import(cfg.TalkgroupSheet, store, log); err != nil {
			log.WithError(err).Fatal("talkgroup import failed")
		}
	}

	uploader, err := storage.New(cfg, log)
	if err != nil {
		log.WithError(err).Fatal("object storage initialization failed")
	}

	p := pipeline.New(
		cfg,
		uploader,
		transcribe.New(cfg.TranscriptionEndpoint, cfg.ModelName, cfg.HTTPClient, log),
		store,
		notify.New(cfg.DiscordWebhook, cfg.HTTPClient, log),
		filter.New(cfg.Filter, log),
		log,
	)

	e := echo.New()
	e.HideBanner = true
	e.POST("/upload", uploadHandler(p))
	e.GET("/healthz", healthzHandler(log))

	e.Server.ReadTimeout = 60 * time.Second
	e.Server.WriteTimeout = 60 * time.Second
	e.Server.IdleTimeout = 120 * time.Second

	addr := ":" + cfg.Port
	log.WithField("addr", addr).Info("starting HTTP server")
	if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.WithError(apperror.Wrap(apperror.KindServerInit, err, "server terminated")).
			Fatal("server terminated")
	}
}

func uploadHandler(p *pipeline.Pipeline) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := p.Process(c.Request().Context(), c.Request()); err != nil {
			return c.String(statusFor(err), err.Error())
		}
		return c.String(http.StatusOK, "Upload successful")
	}
}

func statusFor(err error) int {
	var appErr *apperror.Error
	if errors.As(err, &appErr) {
		return appErr.HTTPStatus()
	}
	return http.StatusInternalServerError
}

type healthzResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Service   string `json:"service"`
}

func healthzHandler(log *logger.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		log.WithRequest(c.Request()).Info("health check requested")
		return c.JSON(http.StatusOK, healthzResponse{
			Status:    "healthy",
			Timestamp: notify.FormatTimestamp(time.Now()),
			Service:   "trunk-processor",
		})
	}
}
