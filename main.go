package main

import (
	"context"
	"net/http"
	"time"

	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/hlog"

	"github.com/zulfkhar00/instafit_console/handlers"
	"github.com/zulfkhar00/instafit_console/internal/archive"
	"github.com/zulfkhar00/instafit_console/internal/backend"
	"github.com/zulfkhar00/instafit_console/internal/config"
	"github.com/zulfkhar00/instafit_console/internal/dispatcher"
	"github.com/zulfkhar00/instafit_console/internal/middleware"
	"github.com/zulfkhar00/instafit_console/services/storage"
)

const sweepInterval = time.Minute

func main() {
	cfg, err := config.Load()
	if err != nil {
		hlog.Fatalf("Error loading configuration: %v", err)
	}
	if cfg.GeneratedSecret {
		hlog.Warnf("JWT_SECRET not set, using a random secret; sessions will not survive a restart")
	}

	client := backend.New(backend.WithTimeout(cfg.RequestTimeout))

	// Initialize services
	consoleHandler := &handlers.ConsoleHandler{
		Backend:        client,
		DefaultBaseURL: cfg.APIBaseURL,
		MaxUploadBytes: cfg.MaxUploadBytes,
	}
	opts := dispatcher.Options{
		BaseURL:           cfg.APIBaseURL,
		Category:          backend.DefaultCategory,
		SegmentationModel: cfg.SegmentationModel,
	}

	mode, err := cfg.Archive()
	if err != nil {
		hlog.Fatalf("Invalid archive configuration: %v", err)
	}
	var store storage.StorageService
	switch mode {
	case config.ArchiveR2:
		store, err = storage.NewR2Service(context.Background(), storage.R2Config{
			AccountID:       cfg.R2.AccountID,
			AccessKeyID:     cfg.R2.AccessKeyID,
			SecretAccessKey: cfg.R2.SecretAccessKey,
			Bucket:          cfg.R2.Bucket,
			PublicURL:       cfg.R2.PublicURL,
		})
		if err != nil {
			hlog.Fatalf("failed to initialize storage service: %v", err)
		}
	case config.ArchiveMemory:
		mem := storage.NewMemoryService("/archive")
		consoleHandler.Memory = mem
		store = mem
	}
	if store != nil {
		archiver := archive.New(store, &http.Client{Timeout: time.Minute})
		consoleHandler.Archiver = archiver
		opts.OnResult = archiver.Hook()
		opts.OnEvict = archiver.EvictHook()
	}
	hlog.Infof("Archive mode: %s", mode)

	registry := dispatcher.NewRegistry(client, opts, cfg.SessionTTL)
	consoleHandler.Sessions = &middleware.Sessions{
		Registry: registry,
		Secret:   []byte(cfg.JWTSecret),
		TTL:      cfg.SessionTTL,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go registry.RunSweeper(ctx, sweepInterval)

	// create a new Hertz server
	h := server.New(
		server.WithHostPorts(":"+cfg.Port),
		server.WithMaxRequestBodySize(2*cfg.MaxUploadBytes+1<<20),
	)
	consoleHandler.Register(h)

	// Start server
	hlog.Infof("Server starting on port %s, backend %s", cfg.Port, cfg.APIBaseURL)
	h.Spin()
}
