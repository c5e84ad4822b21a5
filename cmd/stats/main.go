package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/canteenhq/go-canteen-dining/internal/config"
	"github.com/canteenhq/go-canteen-dining/internal/dining"
	"github.com/canteenhq/go-canteen-dining/internal/kafkax"
	"github.com/canteenhq/go-canteen-dining/internal/redisx"
	"github.com/canteenhq/go-canteen-dining/internal/stats"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	svc := &stats.Service{
		Redis:       rdb,
		ServiceName: cfg.ServiceName + "-stats",
	}

	group := getenv("STATS_GROUP", "dining-stats")
	workers := mustAtoi(os.Getenv("STATS_WORKERS"), "4")
	cons := kafkax.NewConsumer(cfg.KafkaBrokers, group, dining.TopicOrderConfirmed, workers)

	go func() {
		log.Printf("stats consumer started: group=%s topic=%s workers=%d", group, dining.TopicOrderConfirmed, workers)
		if err := cons.Start(ctx, svc.HandleOrderConfirmed); err != nil {
			log.Printf("consumer exit: %v", err)
			cancel()
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Println("shutting down consumer...")
	cancel()
	time.Sleep(500 * time.Millisecond)
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func mustAtoi(s, def string) int {
	if s == "" {
		s = def
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return 1
	}
	return i
}
