package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	appcfg "github.com/pawnme/pawnme-server/internal/config"
	"github.com/pawnme/pawnme-server/internal/msgcat"
	"github.com/pawnme/pawnme-server/internal/obslog"
	"github.com/pawnme/pawnme-server/internal/room"
	"github.com/pawnme/pawnme-server/internal/ws"
)

func main() {
	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("log init error: %v", err)
	}

	catalog, err := msgcat.New(cfg.MsgTemplateDir)
	if err != nil {
		log.Fatalf("message catalog error: %v", err)
	}

	var store room.Store
	var redisStore *room.RedisStore
	if cfg.RedisURL != "" {
		redisStore, err = room.NewRedisStore(cfg.RedisURL)
		if err != nil {
			log.Fatalf("redis store init error: %v", err)
		}
		store = redisStore
	} else {
		store = room.NewMemoryStore()
	}

	hub := ws.NewHub(cfg.OriginAllowlist)
	coord := room.NewCoordinator(store, hub, room.Options{
		JoinAutoCreate:           cfg.JoinAutoCreate,
		ResetRequiresParticipant: cfg.ResetRequiresParticipant,
	})
	coord.AttachCatalog(catalog)

	var repo *room.Repository
	if cfg.DatabaseURL != "" {
		repo, err = room.NewRepository(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("result repository init error: %v", err)
		}
		coord.AttachRepository(repo)
	}
	hub.AttachCoordinator(coord)

	runCtx, stopHub := context.WithCancel(context.Background())
	go hub.Run(runCtx)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", hub.ServeWS)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	srv := &http.Server{Addr: cfg.ListenAddr, Handler: mux}
	go func() {
		obslog.L().Info("server_listen", zap.String("addr", cfg.ListenAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			obslog.L().Fatal("server_error", zap.Error(err))
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	stopHub()
	if redisStore != nil {
		_ = redisStore.Close()
	}
	if repo != nil {
		_ = repo.Close()
	}
	obslog.L().Info("server_stopped")
}
