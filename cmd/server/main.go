package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"voxelrelay.ai/internal/assets"
	"voxelrelay.ai/internal/config"
	"voxelrelay.ai/internal/server"
	"voxelrelay.ai/internal/sim/game"
)

func main() {
	var (
		configPath = flag.String("config", "./configs/server.yaml", "server config path")
		bind       = flag.String("bind", "", "override bind_address")
		port       = flag.Int("port", -1, "override port")
		dataDir    = flag.String("data", "", "override data_dir")
		metrics    = flag.String("metrics", "", "override metrics_addr (\"off\" to disable)")
		disableDB  = flag.Bool("disable_db", false, "disable the sqlite session index")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}
	if *bind != "" {
		cfg.BindAddress = *bind
	}
	if *port >= 0 {
		cfg.Port = *port
	}
	if *dataDir != "" {
		cfg.DataDir = *dataDir
	}
	if *metrics != "" {
		cfg.MetricsAddr = *metrics
	}
	if *disableDB {
		cfg.DisableDB = true
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatalf("config: %v", err)
	}

	a, err := assets.Load()
	if err != nil {
		logger.Fatalf("load assets: %v", err)
	}

	ctx, cancel := signalContext()
	defer cancel()

	srv, err := server.Bind(ctx, server.Config{
		MaxPlayers:       cfg.MaxPlayers,
		MaxPendingLogins: cfg.MaxPendingLogins,
		Client: server.ClientConfig{
			OutboundQueue: cfg.OutboundQueue,
			ReadTimeout:   2 * cfg.KeepaliveTimeout(),
		},
	}, server.ListenerConfig{
		BindAddress: cfg.BindAddress,
		Port:        cfg.Port,
		Assets:      a,
	}, logger)
	if err != nil {
		logger.Fatalf("bind: %v", err)
	}

	g := game.New(game.Config{
		WorldID:           cfg.WorldID,
		Dimension:         cfg.Dimension,
		Seed:              cfg.Seed,
		Gamemode:          cfg.GamemodeValue(),
		LevelType:         cfg.LevelTypeValue(),
		MaxPlayers:        cfg.MaxPlayers,
		ViewDistance:      cfg.ViewDistance,
		Spawn:             cfg.SpawnPosition(),
		NPCCount:          cfg.NPCCount,
		TickRateHz:        cfg.TickRateHz,
		KeepaliveInterval: cfg.KeepaliveInterval(),
		KeepaliveTimeout:  cfg.KeepaliveTimeout(),
	}, srv, logger)

	worldDir := filepath.Join(cfg.DataDir, "worlds", cfg.WorldID)
	if err := os.MkdirAll(worldDir, 0o755); err != nil {
		logger.Fatalf("data dir: %v", err)
	}
	rec, err := openRecorders(worldDir, cfg.DisableDB, logger)
	if err != nil {
		logger.Fatalf("open index backend: %v", err)
	}
	defer rec.Close()
	g.SetTickLogger(rec)
	g.SetSessionRecorder(rec)

	if addr := strings.TrimSpace(cfg.MetricsAddr); addr != "" && addr != "off" {
		go serveOps(ctx, addr, cfg.WorldID, g, rec, logger)
	}

	logger.Printf("world=%s seed=%d gamemode=%s level=%s view_distance=%d tick_rate=%d npcs=%d",
		cfg.WorldID, cfg.Seed, cfg.Gamemode, cfg.LevelType, cfg.ViewDistance, cfg.TickRateHz, cfg.NPCCount)
	if err := g.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Printf("game stopped: %v", err)
	}
	if err := srv.Close(); err != nil {
		logger.Printf("close server: %v", err)
	}
	logger.Printf("shutdown complete")
}

func serveOps(ctx context.Context, addr, worldID string, g *game.Game, rec *recorders, logger *log.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", metricsHandler(worldID, g.Metrics, rec.IndexStats))
	mux.HandleFunc("/admin/v1/sessions", sessionsHandler(rec))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("ops listening on %s", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Printf("ops server: %v", err)
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}
