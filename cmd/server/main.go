package main // Entry point package

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/agrisage/farm-auth/internal/auth"
	"github.com/agrisage/farm-auth/internal/config"
	"github.com/agrisage/farm-auth/internal/database"
	"github.com/agrisage/farm-auth/internal/handler"
	"github.com/agrisage/farm-auth/internal/middleware"
	"github.com/agrisage/farm-auth/internal/queue"
	"github.com/agrisage/farm-auth/internal/repository"
	"github.com/agrisage/farm-auth/internal/router"
)

func main() {
	_ = godotenv.Load() // .env is optional; real deployments set the environment directly
	cfg := config.Load()

	db, err := database.Open(cfg.DBPath)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	activities := repository.NewActivityRepo(db)

	verifier := auth.NewGoogleVerifier(cfg.GoogleClientIDs, cfg.GoogleFallback)

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Printf("redis unavailable; auth rate limiting disabled")
	}
	rateLimit := middleware.AuthRateLimit(config.LoadRateLimitConfig(), rdb)

	e := echo.New()
	e.HideBanner = true
	router.RegisterRoutes(e)
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, users, tokens, verifier), rateLimit, cfg.JWTSecret)
	router.RegisterActivity(e, handler.NewActivityHandler(users, activities), cfg.JWTSecret)

	// Background workers: the activity log consumer and the expired
	// refresh-token sweep.
	go func() {
		if err := queue.StartActivityConsumer(); err != nil {
			log.Printf("activity consumer stopped: %v", err)
		}
	}()

	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	go func() {
		ticker := time.NewTicker(cfg.SweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-sweepCtx.Done():
				return
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(sweepCtx, 30*time.Second)
				n, err := tokens.DeleteExpired(ctx, time.Now().UTC())
				cancel()
				if err != nil {
					log.Printf("token sweep failed: %v", err)
				} else if n > 0 {
					log.Printf("token sweep removed %d expired refresh tokens", n)
				}
			}
		}
	}()

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)

	go func() {
		if err := e.Start(addr); err != nil {
			log.Printf("server stopped: %v", err)
		}
	}()

	// Shut down cleanly on SIGINT/SIGTERM so in-flight requests finish and
	// the SQLite handle is closed.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	stopSweep()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}
