package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"papertrade/config"
	"papertrade/database"
	"papertrade/handlers"
	"papertrade/market"
	"papertrade/session"

	"github.com/gin-gonic/gin"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration: ", err)
	}
	if cfg.GinMode != "" {
		gin.SetMode(cfg.GinMode)
	}

	db, err := config.OpenDB(cfg)
	if err != nil {
		log.Fatal(err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		log.Fatal("Failed to get database instance: ", err)
	}
	defer sqlDB.Close()

	store := database.New(db)
	if err := store.Migrate(); err != nil {
		log.Fatal(err)
	}

	rdb, err := config.OpenRedis(context.Background(), cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer rdb.Close()

	quotes := market.NewCache(
		market.NewAlphaVantage(cfg.AlphaVantageURL, cfg.AlphaVantageKey, cfg.QuoteTimeout),
		rdb,
		cfg.QuoteCacheTTL,
	)
	sessions := session.NewManager(rdb, cfg.JWTSecret, cfg.SessionTTL, cfg.CookieSecure)

	router := gin.Default()
	handlers.New(store, quotes, sessions).Routes(router)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Printf("Server is running on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Server failed: ", err)
		}
	}()

	sc := make(chan os.Signal, 1)
	signal.Notify(sc, syscall.SIGINT, syscall.SIGTERM)
	<-sc

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Println("Shutdown error: ", err)
	}
	log.Println("Server stopped.")
}
