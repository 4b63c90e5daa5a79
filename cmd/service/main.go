package main

import (
	"context"
	"log"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"session-service/internal/realtime"
	"session-service/internal/search"
	"session-service/internal/session"
)

func main() {
	_ = godotenv.Load()

	port := getenv("PORT", "3004")
	dsn := getenv("DATABASE_URL", "")
	redisURL := getenv("REDIS_URL", "redis://localhost:6379")
	jwtSecret := getenv("JWT_SECRET", "")
	ytKey := getenv("YOUTUBE_API_KEY", "")
	ytURL := getenv("YOUTUBE_SEARCH_URL", "https://www.googleapis.com/youtube/v3/search")
	spotifyID := getenv("SPOTIFY_CLIENT_ID", "")
	spotifySecret := getenv("SPOTIFY_CLIENT_SECRET", "")

	ctx := context.Background()

	// Without DATABASE_URL the store runs purely in memory; sessions do
	// not survive a restart.
	var backend session.Backend
	if dsn != "" {
		pool, err := pgxpool.New(ctx, dsn)
		if err != nil {
			log.Fatalf("session-service: pg: %v", err)
		}
		defer pool.Close()
		if err := session.AutoMigrate(ctx, pool); err != nil {
			log.Fatalf("session-service: migrate: %v", err)
		}
		backend = session.NewPostgresBackend(pool)
	}

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		log.Fatalf("session-service: redis: %v", err)
	}
	rdb := redis.NewClient(opt)
	defer rdb.Close()

	store := session.NewStore(backend, rdb)
	defer store.Close()
	store.SetCatalog(session.DefaultCatalog)
	if err := store.Restore(ctx); err != nil {
		log.Printf("session-service: restore: %v", err)
	}
	go store.RunSubscriber(ctx)

	hub := realtime.NewHub()
	go hub.Run()
	rt := realtime.NewServer(hub, rdb, ctx)
	go rt.RunRedisSubscriber()

	var mws []func(http.Handler) http.Handler
	if jwtSecret != "" {
		mws = append(mws, jwtIdentityMiddleware([]byte(jwtSecret)))
	}

	r := chi.NewRouter()
	r.Mount("/", session.NewServer(store).Router(mws...))
	r.Mount("/realtime", rt.Router())
	if ytKey != "" {
		yt := search.NewYouTubeClient(ytKey, ytURL)
		r.Mount("/music", search.NewServer(yt, rdb).Router(mws...))
	}
	if spotifyID != "" && spotifySecret != "" {
		sp := search.NewSpotifyClient(spotifyID, spotifySecret)
		r.Mount("/spotify", search.NewServer(sp, rdb).Router(mws...))
	}

	log.Printf("session-service on :%s", port)
	if err := http.ListenAndServe(":"+port, r); err != nil {
		log.Fatalf("session-service: listen: %v", err)
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
