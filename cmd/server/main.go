package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/rivergate/avalon-core/internal/cache"
	"github.com/rivergate/avalon-core/internal/config"
	"github.com/rivergate/avalon-core/internal/connection"
	"github.com/rivergate/avalon-core/internal/directory"
	"github.com/rivergate/avalon-core/internal/dispatcher"
	"github.com/rivergate/avalon-core/internal/logging"
	"github.com/rivergate/avalon-core/internal/membership"
	"github.com/rivergate/avalon-core/internal/ratelimit"
	"github.com/rivergate/avalon-core/internal/registry"
	"github.com/rivergate/avalon-core/internal/websocket"
	"github.com/rivergate/avalon-core/internal/wsauth"
)

func main() {
	_ = godotenv.Load()
	logging.Init()

	cfg := config.Load()

	redisCache, err := cache.NewRedisCache(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("redis connect")
	}
	defer redisCache.Close()
	log.Info().Msg("connected to redis")

	ctx := context.Background()
	pool, err := directory.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("database connect")
	}
	defer pool.Close()
	log.Info().Msg("connected to database")
	roomDirectory := directory.NewPostgresRoomDirectory(pool)

	conns := connection.New()
	members := membership.New(redisCache, func() float64 {
		return float64(time.Now().UnixNano()) / 1e9
	})
	games := registry.New(redisCache)
	chatLimiter := ratelimit.NewInMemory(5, 10*time.Second)

	hub := websocket.NewHub()
	hubCtx, cancelHub := context.WithCancel(context.Background())
	defer cancelHub()
	go hub.Run(hubCtx)

	d := dispatcher.New(conns, members, games, roomDirectory, hub, nil, chatLimiter)
	verifier := wsauth.NewVerifier(cfg.WSBearerSecret)
	bind := func(sessionID string, userID int64, username, displayName, roomID string) {
		d.BindSession(context.Background(), sessionID, userID, username, displayName, roomID)
	}
	wsHandler := websocket.NewWSHandler(hub, d, bind, verifier)

	router := chi.NewRouter()
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: false,
	}))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	router.Get("/ws/rooms/{code}", wsHandler.HandleRoomWebSocket)

	srv := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", cfg.ListenAddr).Msg("avalon session server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("http server error")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}
