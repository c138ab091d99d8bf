package main

import (
	"context"
	"fmt"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"labcomm/auth"
	"labcomm/config"
	"labcomm/feeds"
	"labcomm/fetcher"
	"labcomm/monitoring"
	"labcomm/registry"
	"labcomm/server"
	"labcomm/storage"
	"os"
	"os/signal"
	"syscall"
)

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		path = os.Getenv("LABCOMM_CONFIG")
	}
	if path == "" {
		return config.FromEnv()
	}
	return config.LoadConfig(path)
}

func setupLogging(cfg config.LoggingConfig) {
	level, err := log.ParseLevel(cfg.Level)
	if err != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)
	if cfg.Format == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
}

func newChecker(cfg *config.Config) (auth.Checker, func(), error) {
	if cfg.Auth.Backend != "redis" {
		return auth.NewStaticChecker(cfg.Auth.Permissions), func() {}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return auth.NewRedisChecker(client, cfg.Auth.KeyPrefix), func() { client.Close() }, nil
}

func buildPages(cfg *config.Config, base *fetcher.Fetcher) server.Pages {
	documents := base.For(feeds.SourceDocuments)

	pages := server.Pages{
		"/calendar/":            feeds.NewCalendar(cfg.Calendar),
		"/feeds/":               feeds.NewFeedDetails(cfg.Calendar, cfg.Wikipedia),
		"/wikipedia/":           feeds.NewWikipediaEdits(cfg.Wikipedia, base.For("wikipedia")),
		"/news/":                feeds.NewFacebookNews(cfg.Facebook, base.For("facebook")),
		"/rules/":               feeds.NewLabRules(cfg.Documents, documents),
		"/publication-policy/":  feeds.NewPublicationPolicy(cfg.Documents, documents),
		"/data-sharing-policy/": feeds.NewDataSharingPolicy(cfg.Documents, documents),
	}

	if cfg.Twitter.Enabled() {
		twitter := fetcher.New(
			fetcher.WithClient(feeds.NewTwitterClient(cfg.Twitter)),
			fetcher.WithTimeout(cfg.Fetcher.Timeout()),
			fetcher.WithMaxBodySize(cfg.Fetcher.MaxBodyBytes()),
			fetcher.WithUserAgent(cfg.Fetcher.UserAgent),
			fetcher.WithSource("twitter"),
		)
		pages["/twitter/"] = feeds.NewTwitterTimeline(cfg.Twitter, twitter)
	} else {
		log.Info("Twitter credentials not configured, /twitter/ is disabled")
	}

	return pages
}

func serve(cfg *config.Config) error {
	if err := monitoring.Register(prometheus.DefaultRegisterer); err != nil {
		return fmt.Errorf("failed to register metrics: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	manager, err := storage.Open(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer manager.Close()

	if cfg.Database.Migrate {
		if err := manager.Migrate(); err != nil {
			return fmt.Errorf("failed to migrate database: %w", err)
		}
	}

	checker, closeChecker, err := newChecker(cfg)
	if err != nil {
		return fmt.Errorf("failed to set up permissions: %w", err)
	}
	defer closeChecker()

	base := fetcher.New(
		fetcher.WithTimeout(cfg.Fetcher.Timeout()),
		fetcher.WithMaxBodySize(cfg.Fetcher.MaxBodyBytes()),
		fetcher.WithUserAgent(cfg.Fetcher.UserAgent),
	)

	reg := registry.New(manager, checker, feeds.NewPostBody(base.For("posts")))
	s := server.NewServer(cfg.Server.Addr, cfg.Auth.UserHeader, reg, buildPages(cfg, base), manager)

	return s.Run(ctx)
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Error(err)
		os.Exit(1)
	}
}
