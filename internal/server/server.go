package server

import (
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	_ "github.com/joho/godotenv/autoload"

	"payment-reconciler/internal/circuitbreaker"
	"payment-reconciler/internal/database"
	"payment-reconciler/internal/lookup"
	"payment-reconciler/internal/poller"
	"payment-reconciler/internal/reconciler"
	"payment-reconciler/internal/redis"
	"payment-reconciler/internal/resume"
)

type Server struct {
	port        int
	db          database.Service
	redisClient *redis.Client
	resumeStore resume.Store
	manager     *reconciler.Manager
}

func NewServer() (*http.Server, *Server) {
	port, _ := strconv.Atoi(os.Getenv("PORT"))
	if port == 0 {
		port = 8080
	}

	dbService := database.New()

	redisHost := os.Getenv("REDIS_HOST")
	if redisHost == "" {
		redisHost = "localhost"
	}

	redisPort := os.Getenv("REDIS_PORT")
	if redisPort == "" {
		redisPort = "6379"
	}

	redisConfig := redis.Config{
		Host:     redisHost,
		Port:     redisPort,
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       0,
	}

	redisClient := redis.NewClient(redisConfig)

	// Resume records live in Redis with the Postgres archive behind it;
	// reads fall through to the archive when Redis has expired the key.
	resumeStore := resume.NewTiered(resume.NewRedisStore(redisClient), dbService)

	gatewayURL := os.Getenv("PAYMENT_GATEWAY_URL")
	if gatewayURL == "" {
		gatewayURL = "http://payment-gateway:8080"
	}

	reconcilerConfig := reconciler.Config{
		Poll: poller.Config{
			Interval: durationEnv("POLL_INTERVAL", 4*time.Second),
			Timeout:  durationEnv("POLL_TIMEOUT", 3*time.Minute),
		},
		Breaker: circuitbreaker.Config{},
	}

	manager := reconciler.NewManager(reconciler.New(
		resumeStore,
		lookup.NewClient(gatewayURL),
		reconcilerConfig,
	))

	appServer := &Server{
		port:        port,
		db:          dbService,
		redisClient: redisClient,
		resumeStore: resumeStore,
		manager:     manager,
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", appServer.port),
		Handler:      appServer.RegisterRoutes(),
		IdleTimeout:  30 * time.Second,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	return httpServer, appServer
}

func durationEnv(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(v)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

func (s *Server) Shutdown() {
	if s.manager != nil {
		s.manager.StopAll()
	}
	if s.redisClient != nil {
		s.redisClient.Close()
	}
	if s.db != nil {
		s.db.Close()
	}
}
