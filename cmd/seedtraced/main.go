package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"github.com/plotwise/seedtrace/internal/config"
	"github.com/plotwise/seedtrace/internal/infra/database"
	"github.com/plotwise/seedtrace/internal/infra/repository"
	"github.com/plotwise/seedtrace/internal/observability"
	"github.com/plotwise/seedtrace/internal/present/rest"
	authmiddleware "github.com/plotwise/seedtrace/internal/present/rest/middleware"
	"github.com/plotwise/seedtrace/internal/service"
	"github.com/plotwise/seedtrace/internal/usecase"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the server configuration")
	flag.Parse()

	conf, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx := context.Background()

	if conf.Server.EnableTrace {
		shutdown, err := observability.SetupTracer(ctx, "seedtraced", conf.Server.TraceEndpoint)
		if err != nil {
			slog.Error("failed to set up tracing", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer func() {
			if err := shutdown(ctx); err != nil {
				slog.Error("failed to shut down tracing", slog.String("error", err.Error()))
			}
		}()
	}

	db, err := database.NewPostgres(conf.Server.PostgresDsn)
	if err != nil {
		panic("failed to connect database")
	}
	if err := database.MigratePostgres(db); err != nil {
		panic("failed to migrate database")
	}

	rdb := database.NewRedis(conf.Server.RedisAddr, conf.Server.RedisPassword, conf.Server.RedisDB)
	if err := database.PingRedis(ctx, rdb); err != nil {
		panic("failed to connect redis")
	}

	mc := database.NewMemcached(conf.Server.MemcachedAddr)

	recordRepo := repository.NewRecordRepository(db)
	optionRepo := repository.NewOptionRepository(db, mc)
	scopeRepo := repository.NewScopeRepository(rdb)

	signal := service.NewSignalService(rdb)
	auth := service.NewAuthService(conf)

	defaults := conf.DefaultScope()
	handler := rest.NewHandler(
		usecase.NewOptionsUsecase(optionRepo),
		usecase.NewRecordsUsecase(recordRepo),
		usecase.NewValidatorUsecase(recordRepo, signal),
		usecase.NewSubmissionUsecase(recordRepo, signal),
		usecase.NewScopeUsecase(scopeRepo, defaults),
		signal,
	)

	e := echo.New()
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	if conf.Server.EnableTrace {
		e.Use(otelecho.Middleware("seedtraced"))
	}
	e.Use(authmiddleware.NewAuthMiddleware(auth).IdentifyActor)

	handler.RegisterRoutes(e)

	e.Logger.Fatal(e.Start(conf.Server.ListenAddr))
}
