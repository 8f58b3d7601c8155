package main

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"google.golang.org/grpc"

	"viewings/backend/internal/config"
	"viewings/backend/internal/service/appointments"
	"viewings/backend/internal/store"
	"viewings/backend/internal/store/cache"
	"viewings/backend/internal/store/dynamo"
	"viewings/backend/internal/store/postgres"
	grpcTransport "viewings/backend/internal/transport/grpc"
	"viewings/backend/internal/transport/rest"
)

func main() {
	log := newLogger("info")
	slog.SetDefault(log)

	cfg, err := config.Load()
	if err != nil {
		log.Error("config load failed", slog.Any("err", err))
		os.Exit(1)
	}

	log = newLogger(cfg.LogLevel)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("viewings-server exited", slog.Any("err", err))
		os.Exit(1)
	}
}

func newLogger(level string) *slog.Logger {
	h := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLogLevel(level)})
	return slog.New(h).With(slog.String("service", "viewings-server"))
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	log.Info(
		"starting",
		slog.String("http_addr", cfg.HTTPAddr),
		slog.String("grpc_addr", cfg.GRPCAddr),
		slog.String("directory_backend", cfg.DirectoryBackend),
		slog.String("log_level", cfg.LogLevel),
	)

	dbAttr := databaseLogAttr(cfg.DatabaseURL)
	log.Info("connecting to database", dbAttr)
	db, err := postgres.Open(ctx, cfg.DatabaseURL, postgres.PoolConfig{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
		ConnMaxIdleTime: cfg.DBConnMaxIdleTime,
	})
	if err != nil {
		return fmt.Errorf("connect database %s: %w", dbAttr.Value, err)
	}
	defer func() {
		if err := postgres.Close(db); err != nil {
			log.Warn("database close failed", slog.Any("err", err))
		}
	}()

	dir, closeDir, err := openDirectory(ctx, cfg, postgres.NewDirectoryRepo(db), log)
	if err != nil {
		return fmt.Errorf("directory %s: %w", cfg.DirectoryBackend, err)
	}
	defer closeDir()

	svc := appointments.NewService(
		postgres.NewAppointmentRepo(db),
		dir,
		appointments.WithLogger(log),
		appointments.WithEnrichmentConcurrency(cfg.EnrichmentConcurrency),
	)

	grpcServer := grpc.NewServer(
		grpc.UnaryInterceptor(defaultRequestTimeoutInterceptor(cfg.GRPCRequestTimeout)),
	)
	grpcTransport.RegisterAppointmentRequestsServer(grpcServer, grpcTransport.NewAppointmentsServer(svc, log))

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           rest.NewServer(svc, log).Handler(cfg.CORSAllowedOrigins, cfg.HTTPRequestTimeout),
		ReadHeaderTimeout: 5 * time.Second,
	}

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		return fmt.Errorf("grpc listen on %s: %w", cfg.GRPCAddr, err)
	}

	errCh := make(chan error, 2)
	go func() {
		if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			errCh <- fmt.Errorf("grpc serve: %w", err)
		}
	}()
	go func() {
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http serve: %w", err)
		}
	}()

	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	go runExpirySweeper(sweepCtx, log, svc, cfg.ExpirySweepInterval, time.Now)

	log.Info("servers started", slog.String("http_addr", cfg.HTTPAddr), slog.String("grpc_addr", cfg.GRPCAddr))

	var serveErr error
	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case serveErr = <-errCh:
	}
	stopSweep()
	shutdown(log, grpcServer, httpServer, cfg.ShutdownTimeout)
	return serveErr
}

// openDirectory picks the directory backend and optionally fronts it with Redis.
// The returned func releases whatever clients were opened.
func openDirectory(ctx context.Context, cfg config.Config, pg store.Directory, log *slog.Logger) (store.Directory, func(), error) {
	var dir store.Directory = pg

	if cfg.DirectoryBackend == config.DirectoryDynamoDB {
		dcfg := dynamo.Config{
			Region:        cfg.DynamoRegion,
			Endpoint:      cfg.DynamoEndpoint,
			UsersTable:    cfg.DynamoUsersTable,
			ListingsTable: cfg.DynamoListingsTable,
		}
		client, err := dynamo.NewClient(ctx, dcfg)
		if err != nil {
			return nil, nil, err
		}
		dir = dynamo.NewDirectory(client, dcfg)
		log.Info("directory backend ready", slog.String("backend", "dynamodb"), slog.String("region", cfg.DynamoRegion))
	}

	if cfg.RedisAddr == "" {
		return dir, func() {}, nil
	}

	rdb := cache.NewClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	log.Info("directory cache enabled", slog.String("redis_addr", cfg.RedisAddr), slog.Duration("ttl", cfg.RedisTTL))
	return cache.NewDirectory(dir, rdb, cfg.RedisTTL, log), func() {
		if err := rdb.Close(); err != nil {
			log.Warn("redis close failed", slog.Any("err", err))
		}
	}, nil
}

func defaultRequestTimeoutInterceptor(timeout time.Duration) grpc.UnaryServerInterceptor {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if _, ok := ctx.Deadline(); ok {
			return handler(ctx, req)
		}
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		return handler(ctx, req)
	}
}

func shutdown(log *slog.Logger, g *grpc.Server, h *http.Server, timeout time.Duration) {
	log.Info("shutting down servers", slog.Duration("timeout", timeout))

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := h.Shutdown(ctx); err != nil {
		log.Warn("http graceful shutdown failed; closing", slog.Any("err", err))
		_ = h.Close()
	} else {
		log.Info("http server stopped")
	}

	done := make(chan struct{})
	go func() {
		g.GracefulStop()
		close(done)
	}()

	select {
	case <-done:
		log.Info("grpc server stopped")
	case <-ctx.Done():
		log.Warn("grpc graceful shutdown timed out; forcing stop")
		g.Stop()
	}
}

// parseLogLevel accepts slog's level names, case-insensitively, plus "warning".
// Anything else is info.
func parseLogLevel(level string) slog.Level {
	level = strings.TrimSpace(level)
	if strings.EqualFold(level, "warning") {
		level = "warn"
	}
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return slog.LevelInfo
	}
	return l
}

// databaseLogAttr describes the database target without its credentials.
func databaseLogAttr(databaseURL string) slog.Attr {
	u, err := url.Parse(databaseURL)
	if err != nil {
		return slog.String("db", "invalid url")
	}
	return slog.Group("db",
		slog.String("host", orUnknown(u.Hostname())),
		slog.String("port", cmp.Or(u.Port(), "default")),
		slog.String("name", orUnknown(strings.TrimPrefix(u.Path, "/"))),
	)
}

func orUnknown(s string) string {
	return cmp.Or(s, "unknown")
}
