package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mobihelp/sync-service/internal/app"
	"github.com/mobihelp/sync-service/internal/auth"
	"github.com/mobihelp/sync-service/internal/config"
	"github.com/mobihelp/sync-service/internal/entities"
	"github.com/mobihelp/sync-service/internal/geo"
	"github.com/mobihelp/sync-service/internal/handler"
	"github.com/mobihelp/sync-service/internal/postgres"
	"github.com/mobihelp/sync-service/internal/recommend"
	"github.com/mobihelp/sync-service/internal/remote"
	"github.com/mobihelp/sync-service/internal/service"
	"github.com/mobihelp/sync-service/internal/store"

	"github.com/joho/godotenv"
)

func main() {
	conf := config.New()
	logger := newLogger(conf.Env)
	panicIfErr("invalid config", conf.Validate())

	db, err := postgres.New(conf.Postgres)
	panicIfErr("failed to connect to db", err)
	defer db.Close()
	logger.Info("postgres connected")

	schema := remote.DefaultSchema()
	if conf.Sync.ProfileIDColumn != "" {
		schema = remote.SchemaAdapter{ProfileIDColumn: conf.Sync.ProfileIDColumn}
	} else {
		detectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		schema, err = remote.DetectSchema(detectCtx, db)
		cancel()
		panicIfErr("failed to detect profiles schema", err)
	}
	logger.Info("profiles schema resolved", slog.String("id_column", schema.ProfileIDColumn))

	dataStore := remote.NewPostgresStore(db, &schema)
	records := store.New()

	session := auth.NewStaticSession(conf.Actor, time.Time{})

	actor := entities.Actor{ID: conf.Actor.ID, Role: entities.Role(conf.Actor.Role)}
	syncService := service.NewSyncService(logger, actor, records, dataStore, service.Config{
		ReconcileInterval:      conf.Sync.ReconcileInterval,
		ProfileRefreshInterval: conf.Sync.ProfileRefreshInterval,
	})

	var geocoder handler.Geocoder
	if conf.Geo.GeocoderURL != "" {
		geocoder = geo.NewGeocoder(conf.Geo.GeocoderURL)
	}
	var router handler.Router
	if conf.Geo.RouterURL != "" {
		router = geo.NewRouter(conf.Geo.RouterURL)
	}
	var recommender handler.Recommender
	if conf.Recommend.URL != "" {
		recommender = recommend.NewClient(conf.Recommend.URL)
	}

	realtimeHandler := handler.NewRealtimeHandler(logger, conf.Kafka, syncService)
	httpHandler := handler.NewHTTPHandler(logger, syncService, session, geocoder, router, recommender)

	app := app.New(logger, conf)

	app.SetHTTPHandlers(httpHandler)
	app.SetConsumers(realtimeHandler)
	app.SetStarters(syncService)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	panicIfErr("failed to start app", app.Start(ctx))
	<-ctx.Done()
	panicIfErr("failed to stop app", app.Stop())
}

func init() {
	godotenv.Load()
}

func newLogger(env string) *slog.Logger {
	switch env {
	case "production":
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	default:
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
}

func panicIfErr(prefix string, err error) {
	if err != nil {
		panic(prefix + ": " + err.Error())
	}
}
