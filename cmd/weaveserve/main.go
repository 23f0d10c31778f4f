// weaveserve is a gin-based HTTP demo host for the engine: it loads one
// story and exposes session-scoped continue/choice/variable/save/
// restore endpoints over it. It is deliberately kept out of the core
// module tree, matching the "no HTTP transport in core" boundary.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nats-io/nats.go"

	"github.com/weave-lang/weave/pkg/config"
	"github.com/weave-lang/weave/pkg/format"
	"github.com/weave-lang/weave/pkg/kernel"
	"github.com/weave-lang/weave/pkg/persistence"
)

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func main() {
	log := slog.New(slog.NewTextHandler(os.Stderr, nil))

	configPath := flag.String("config", getEnv("WEAVE_CONFIG", "./weave.yaml"), "path to weave.yaml")
	envFile := flag.String("env-file", getEnv("WEAVE_ENV_FILE", ".env"), "path to a .env file (optional)")
	storyPath := flag.String("story", getEnv("WEAVE_STORY", ""), "path to the story file to serve")
	addr := flag.String("addr", getEnv("HTTP_ADDR", ":8080"), "HTTP listen address")
	flag.Parse()

	if *storyPath == "" {
		log.Error("no story file given; pass -story or set WEAVE_STORY")
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath, *envFile)
	if err != nil {
		log.Warn("no usable weave.yaml found, continuing with defaults", "error", err)
		cfg = &config.EngineConfig{}
	}

	formats := format.NewRegistry(format.InkJSON{})
	story, err := loadStory(*storyPath, formats, log)
	if err != nil {
		log.Error("failed to load story", "error", err)
		os.Exit(1)
	}

	bus := kernel.NewBus(log)
	if cfg.NATSBridge.Enabled {
		conn, err := nats.Connect(cfg.NATSBridge.URL)
		if err != nil {
			log.Error("failed to connect to NATS", "error", err)
			os.Exit(1)
		}
		defer conn.Close()
		bus.BridgeNATS(conn, cfg.NATSBridge.SubjectPrefix)
		log.Info("bridging bus events to NATS", "url", cfg.NATSBridge.URL, "subject_prefix", cfg.NATSBridge.SubjectPrefix)
	}

	var store persistence.SnapshotStore
	if cfg.Persistence.Host != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		pg, err := persistence.NewPostgresStore(ctx, cfg.Persistence, log)
		if err != nil {
			log.Error("failed to connect to persistence store", "error", err)
			os.Exit(1)
		}
		defer pg.Close()
		store = pg
		log.Info("persistence store ready", "database", cfg.Persistence.Database)
	} else {
		log.Warn("no persistence configured; /restore without a body snapshot will fail")
	}

	srv := newServer(story, bus, store, log)
	router := gin.Default()
	srv.routes(router)

	log.Info("weaveserve listening", "addr", *addr, "story_id", story.ID)
	if err := router.Run(*addr); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}
