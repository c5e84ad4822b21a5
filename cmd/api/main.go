package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"

	"github.com/canteenhq/go-canteen-dining/internal/config"
	"github.com/canteenhq/go-canteen-dining/internal/confirmation"
	"github.com/canteenhq/go-canteen-dining/internal/dining"
	"github.com/canteenhq/go-canteen-dining/internal/events"
	"github.com/canteenhq/go-canteen-dining/internal/httpx"
	"github.com/canteenhq/go-canteen-dining/internal/kafkax"
	"github.com/canteenhq/go-canteen-dining/internal/logger"
	"github.com/canteenhq/go-canteen-dining/internal/mealwindow"
	"github.com/canteenhq/go-canteen-dining/internal/menu"
	"github.com/canteenhq/go-canteen-dining/internal/postgres"
	"github.com/canteenhq/go-canteen-dining/internal/qrtoken"
	"github.com/canteenhq/go-canteen-dining/internal/redisx"
	"github.com/canteenhq/go-canteen-dining/internal/registrar"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	appLog := logger.New(cfg.ServiceName)

	windows, err := mealwindow.New(cfg.Timezone, cfg.MealWindows, cfg.CancelCutoff)
	if err != nil {
		log.Fatalf("meal windows: %v", err)
	}

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer db.Close()
	if err := postgres.Migrate(ctx, db); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Kafka producers, one per lifecycle topic
	pReg := kafkax.NewProducer(cfg.KafkaBrokers, dining.TopicOrderRegistered, 1024)
	pReg.Start(ctx)
	pCon := kafkax.NewProducer(cfg.KafkaBrokers, dining.TopicOrderConfirmed, 1024)
	pCon.Start(ctx)
	pCan := kafkax.NewProducer(cfg.KafkaBrokers, dining.TopicOrderCancelled, 1024)
	pCan.Start(ctx)

	bus := &events.Bus{Registered: pReg, Confirmed: pCon, Cancelled: pCan, Service: cfg.ServiceName}

	// Services
	repo := &dining.Repo{DB: db}
	menus := &menu.Resolver{
		Store: &menu.Repo{DB: db},
		Cache: &menu.RedisCache{RDB: rdb, TTL: cfg.MenuCacheTTL},
	}
	tokens := &qrtoken.Service{
		Secret:   []byte(cfg.QRSecret),
		TTL:      cfg.QRTokenTTL,
		Registry: repo,
	}
	reg := &registrar.Service{Store: repo, Menus: menus, Windows: windows, Events: bus}
	engine := &confirmation.Engine{Store: repo, Windows: windows, Tokens: tokens, Events: bus}

	// HTTP
	router := httpx.NewRouter()
	oh := &httpx.OrdersHandler{Registrar: reg, Menus: menus, Log: appLog}
	ch := &httpx.CheckinHandler{Engine: engine, Tokens: tokens, Codes: repo, Log: appLog}
	router.Route("/api", func(r chi.Router) {
		r.Use(httpx.WithIdentity)
		oh.Register(r)
		ch.Register(r)
	})

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	go func() {
		log.Printf("HTTP listening at %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Println("shutting down...")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	cancel()
	pReg.WaitClosed()
	pCon.WaitClosed()
	pCan.WaitClosed()
}
