package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"erpbridge/internal/cache"
	"erpbridge/internal/config"
	"erpbridge/internal/http/handlers"
	applog "erpbridge/internal/log"
	"erpbridge/internal/repos"
	"erpbridge/internal/services"
)

func main() {
	cfg := config.Load()

	// Optional file logging
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			log.Printf("[warn] could not open log file %s: %v", cfg.LogFile, err)
		} else {
			defer f.Close()
			log.SetOutput(io.MultiWriter(os.Stdout, f))
		}
	}

	var poolOpts []repos.PoolOption
	if cfg.DB.Seed && cfg.DB.Driver == "sqlite" {
		poolOpts = append(poolOpts, repos.WithOnConnect(repos.Bootstrap))
	}
	pool := repos.NewPool(cfg.DB, poolOpts...)
	defer pool.Close()

	// A nil *cache.Redis must not end up inside the interface.
	var c services.Cache
	if cfg.RedisAddr != "" {
		rc, err := cache.NewRedis(cfg.RedisAddr, cfg.CacheTTL)
		if err != nil {
			applog.Warn(nil, "cache.disabled", err, map[string]any{"addr": cfg.RedisAddr})
		} else {
			defer rc.Close()
			c = rc
		}
	}

	app := handlers.NewApp(cfg, handlers.NewDeps(pool, cfg, c))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	addr := "0.0.0.0:" + cfg.Port
	banner(cfg)
	go func() {
		if err := app.Listen(addr); err != nil {
			log.Printf("[fatal] listen %s: %v", addr, err)
			stop()
		}
	}()

	<-ctx.Done()
	applog.Info(nil, "server.shutdown", nil)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		applog.Error(nil, "server.shutdown.fail", err, nil)
	}
}

func banner(cfg config.Config) {
	fmt.Println("----------------------------------------------------")
	fmt.Printf(" ERP bridge relay listening on http://localhost:%s\n", cfg.Port)
	fmt.Printf(" Remote database: %s (%s)\n", cfg.DB.Server(), cfg.DB.Driver)
	fmt.Println("----------------------------------------------------")
	fmt.Println(" If the storefront shows no products:")
	fmt.Println("  1. Allow this machine's public IP on the database host.")
	fmt.Println("  2. Allow the browser to reach this relay (private network / mixed content).")
	fmt.Printf("  3. Open http://localhost:%s/health for the raw connection error.\n", cfg.Port)
	fmt.Println("----------------------------------------------------")
}
