// Package main provides the battle server binary, which resolves battles on
// request over HTTP and gRPC and stores their reports.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/tracelog"
	"go.uber.org/zap"
	"google.golang.org/grpc"

	"github.com/cory-johannsen/warsim/internal/api"
	"github.com/cory-johannsen/warsim/internal/battlerpc"
	"github.com/cory-johannsen/warsim/internal/config"
	"github.com/cory-johannsen/warsim/internal/content"
	"github.com/cory-johannsen/warsim/internal/observability"
	"github.com/cory-johannsen/warsim/internal/scenario"
	"github.com/cory-johannsen/warsim/internal/scripting"
	"github.com/cory-johannsen/warsim/internal/server"
	"github.com/cory-johannsen/warsim/internal/simulation"
	"github.com/cory-johannsen/warsim/internal/storage/postgres"
)

// reportStore is what both transports need from storage.
type reportStore interface {
	simulation.ReportStore
	api.ReportReader
}

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	memory := flag.Bool("memory", false, "keep reports in memory instead of PostgreSQL")
	flag.Parse()

	ctx := context.Background()

	v, err := config.NewViper(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}
	cfg, err := config.LoadFromViper(v)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, level, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	config.Watch(v, func(next config.Config) {
		if err := observability.SetLevel(level, next.Logging.Level); err != nil {
			logger.Warn("applying log level", zap.Error(err))
			return
		}
		logger.Info("config reloaded", zap.String("level", next.Logging.Level))
	}, func(err error) {
		logger.Warn("config reload rejected", zap.Error(err))
	})

	logger.Info("starting battle server",
		zap.String("http_addr", cfg.HTTP.Addr()),
		zap.String("grpc_addr", cfg.GRPC.Addr()),
	)

	contentStart := time.Now()
	lib, err := content.Load(cfg.Content.Dir, scripting.NewEvaluator(cfg.Content.ScriptInstructionLimit, logger))
	if err != nil {
		logger.Fatal("loading content", zap.Error(err))
	}
	logger.Info("content loaded",
		zap.Int("units", len(lib.UnitIDs())),
		zap.Int("effects", len(lib.EffectIDs())),
		zap.Duration("elapsed", time.Since(contentStart)),
	)

	var (
		store  reportStore
		health api.HealthFunc
	)
	if *memory {
		store = simulation.NewMemoryStore()
		logger.Info("using in-memory report store")
	} else {
		dbStart := time.Now()
		pool, err := postgres.NewPool(ctx, cfg.Database,
			postgres.WithQueryLogger(logger.Named("db"), tracelog.LogLevelWarn),
		)
		if err != nil {
			logger.Fatal("connecting to database", zap.Error(err))
		}
		defer pool.Close()
		logger.Info("database connected",
			zap.String("host", cfg.Database.Host),
			zap.Duration("elapsed", time.Since(dbStart)),
		)
		store = postgres.NewReportRepository(pool.DB())
		health = func(ctx context.Context) error { return pool.Health(ctx, 2*time.Second) }
	}

	svc, err := simulation.NewService(cfg.Battle.ToBattleConfig(), scenario.NewSource(cfg.Scenario), lib, logger,
		simulation.WithStore(store),
		simulation.WithEventLogger(logger.Named("battle")),
	)
	if err != nil {
		logger.Fatal("creating simulation service", zap.Error(err))
	}

	gin.SetMode(gin.ReleaseMode)
	router := api.NewRouter(api.NewHandler(svc, store, health, logger.Named("http")))

	grpcServer := grpc.NewServer()
	battlerpc.RegisterBattleServiceServer(grpcServer, battlerpc.NewServer(svc, store, logger.Named("grpc")))

	lifecycle := server.NewLifecycle(logger)
	lifecycle.Add("grpc", server.GRPCService(cfg.GRPC.Addr(), grpcServer, logger))
	lifecycle.Add("http", server.HTTPService(cfg.HTTP.Addr(), router, logger))

	logger.Info("battle server ready", zap.Duration("startup", time.Since(start)))

	if err := lifecycle.Run(ctx); err != nil {
		logger.Error("battle server stopped", zap.Error(err))
	}
}
