package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/mwhitford/teamdesk/internal/api"
	"github.com/mwhitford/teamdesk/internal/chat"
	"github.com/mwhitford/teamdesk/internal/config"
	"github.com/mwhitford/teamdesk/internal/database"
	"github.com/mwhitford/teamdesk/internal/stats"
)

const defaultSigningKey = "5DLbyI1bWZCcCksY1IsXkAUqbW0eOfS5b/jslZYUJvE="

type stringSliceFlag []string

func (s *stringSliceFlag) String() string {
	return strings.Join(*s, ",")
}

func (s *stringSliceFlag) Set(value string) error {
	*s = append(*s, strings.Split(value, ",")...)
	return nil
}

var (
	addr           string
	dsn            string
	signingKey     string
	allowedOrigins stringSliceFlag
)

func main() {
	flag.StringVar(&addr, "addr", "localhost:8000", "server address")
	flag.StringVar(&dsn, "dsn", "host=localhost user=postgres password=postgres dbname=postgres sslmode=disable", "database connection string")
	flag.StringVar(&signingKey, "signing-key", defaultSigningKey, "base64 encoded signing key")
	flag.Var(&allowedOrigins, "allowed-origins", "comma-separated list of allowed origins for CORS")
	flag.Parse()

	logger := log.New(os.Stderr, "[teamdesk] ", log.LstdFlags)

	cfg, err := config.NewConfig(addr, dsn, signingKey, allowedOrigins)
	if err != nil {
		logger.Fatal("config:", err)
	}

	dbConn, err := database.NewPgRepository(cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal("db open:", err)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Fatal("db close:", err)
		}
	}()

	if err := dbConn.Migrate(); err != nil {
		logger.Fatal("migrate:", err)
	}

	mux := http.NewServeMux()

	statsUpdater := stats.NewStatsUpdater(mux)
	statsUpdater.RegisterMetric(stats.ActiveConnections)
	statsUpdater.RegisterMetric(stats.MessagesSent)
	statsUpdater.RegisterMetric(stats.BansIssued)

	registry := chat.NewSubscriptionRegistry(logger)
	limiter := chat.NewRateLimiter()

	bans, err := chat.NewBanRegistry(dbConn, logger)
	if err != nil {
		logger.Fatal("ban registry:", err)
	}

	settings := chat.NewStoreSettings(dbConn, logger)
	pipeline := chat.NewMessagePipeline(dbConn, limiter, bans, registry, settings, logger, statsUpdater)

	srv := api.NewPortalApp(mux, logger, dbConn, pipeline, registry, bans, settings, statsUpdater, cfg)

	statsUpdater.Run()
	defer statsUpdater.Stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigs:
		logger.Printf("received signal: %s\n", sig)
	case err := <-errCh:
		logger.Println("server:", err)
	}

	shutDownCtx, cancel := context.WithTimeout(
		context.Background(),
		10*time.Second,
	)
	defer cancel()

	if err := srv.Shutdown(shutDownCtx); err != nil {
		logger.Fatalln("HTTP server shutdown:", err)
	}

	logger.Println("shutdown complete")
}
