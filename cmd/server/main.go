package main

import (
	"context"
	"log"
	"os"
	"runtime/debug"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cabflow/cabflow/modules"
	"github.com/cabflow/cabflow/modules/changes"
	"github.com/cabflow/cabflow/modules/changes/domain/changerequest"
	infradirectory "github.com/cabflow/cabflow/modules/changes/infrastructure/directory"
	"github.com/cabflow/cabflow/modules/changes/infrastructure/persistence"
	infrascheduling "github.com/cabflow/cabflow/modules/changes/infrastructure/scheduling"
	"github.com/cabflow/cabflow/pkg/application"
	"github.com/cabflow/cabflow/pkg/configuration"
	"github.com/cabflow/cabflow/pkg/eventbus"
	"github.com/cabflow/cabflow/pkg/metrics"
	"github.com/cabflow/cabflow/pkg/middleware"
	"github.com/cabflow/cabflow/pkg/server"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			configuration.Use().Unload()
			log.Println(r)
			debug.PrintStack()
			os.Exit(1)
		}
	}()

	conf := configuration.Use()
	logger := conf.Logger()

	var pool *pgxpool.Pool
	var repo changerequest.Repository
	if conf.StorageDriver == "memory" {
		logger.Warn("running on the in-memory store, data will not survive a restart")
		repo = persistence.NewMemoryChangeRequestRepository()
	} else {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
		defer cancel()
		var err error
		pool, err = pgxpool.New(ctx, conf.Database.Opts)
		if err != nil {
			panic(err)
		}
		repo = persistence.NewPgChangeRequestRepository()
	}

	dir, err := infradirectory.LoadYAMLDirectory(conf.RolesFilePath)
	if err != nil {
		log.Fatalf("failed to load role directory: %v", err)
	}

	app := application.New(&application.ApplicationOptions{
		Pool:     pool,
		EventBus: eventbus.NewEventPublisher(logger),
		Logger:   logger,
	})

	err = modules.Load(app, changes.NewModule(&changes.ModuleOptions{
		Repository: repo,
		Roles:      dir,
		Display:    dir,
		Scheduler:  infrascheduling.NewLogScheduler(logger),
	}))
	if err != nil {
		log.Fatalf("failed to load modules: %v", err)
	}

	if conf.Prometheus.Enabled {
		app.RegisterControllers(metrics.NewPrometheusController(conf.Prometheus.Path))
	}

	app.RegisterMiddleware(
		middleware.RequestID(conf.RequestIDHeader),
		middleware.Actor(conf.ActorIDHeader),
		middleware.RequestLogger(logger),
	)
	if pool != nil {
		app.RegisterMiddleware(middleware.Pool(pool))
	}

	serverInstance := server.NewHTTPServer(app)
	log.Printf("Listening on: %s\n", conf.SocketAddress)
	if err := serverInstance.Start(conf.SocketAddress); err != nil {
		log.Fatalf("failed to start server: %v", err)
	}
}
