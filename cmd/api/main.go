package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"gatehouse.org/internal/auth"
	"gatehouse.org/internal/httpapi"
	"gatehouse.org/internal/obs"
)

var (
	version = "0.3.1"
	commit  = "dev"
)

func main() {
	obs.Init()
	obs.InitBuildInfo(version, commit)

	secret := os.Getenv("GATEHOUSE_AUTH_SECRET")
	if secret == "" {
		log.Fatal("GATEHOUSE_AUTH_SECRET is required")
	}

	dsn := os.Getenv("GATEHOUSE_PG_DSN")
	if dsn == "" {
		log.Fatal("GATEHOUSE_PG_DSN is required")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	opts := []auth.Option{}
	if v := os.Getenv("GATEHOUSE_TOKEN_TTL"); v != "" {
		ttl, err := time.ParseDuration(v)
		if err != nil {
			log.Fatalf("invalid GATEHOUSE_TOKEN_TTL: %v", err)
		}
		opts = append(opts, auth.WithTokenTTL(ttl))
	}
	if v := os.Getenv("GATEHOUSE_BCRYPT_COST"); v != "" {
		cost, err := strconv.Atoi(v)
		if err != nil {
			log.Fatalf("invalid GATEHOUSE_BCRYPT_COST: %v", err)
		}
		opts = append(opts, auth.WithBcryptCost(cost))
	}

	svc, err := auth.NewService(auth.NewPGDirectory(db), []byte(secret), opts...)
	if err != nil {
		log.Fatalf("auth service: %v", err)
	}
	gate := auth.NewGate(svc)

	api := httpapi.New(svc, gate, httpapi.ReadyProbe{DB: db}, version)

	addr := os.Getenv("GATEHOUSE_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting gatehouse-api %s on %s", version, srv.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	_ = db.Close()
	log.Println("Stopped")
}
