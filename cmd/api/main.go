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

	"redconnect.org/internal/auth"
	"redconnect.org/internal/bank"
	"redconnect.org/internal/drive"
	"redconnect.org/internal/httpapi"
	"redconnect.org/internal/migrate"
	"redconnect.org/internal/obs"
	"redconnect.org/internal/profile"
	"redconnect.org/internal/store/memory"
	"redconnect.org/internal/store/pg"
)

var (
	version = "1.0.0"
	commit  = "dev"
)

func main() {
	obs.Init()
	obs.InitBuildInfo(version, commit)

	secret := os.Getenv("REDCONNECT_AUTH_SECRET")
	if secret == "" {
		log.Fatal("REDCONNECT_AUTH_SECRET is required")
	}

	ttlMinutes := 30
	if raw := os.Getenv("REDCONNECT_TOKEN_TTL_MIN"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			log.Fatalf("invalid REDCONNECT_TOKEN_TTL_MIN %q", raw)
		}
		ttlMinutes = v
	}

	addr := os.Getenv("REDCONNECT_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	var (
		accountStore auth.AccountStore
		profileStore profile.Store
		bankStore    bank.Store
		driveStore   drive.Store
		db           *sql.DB
	)
	if dsn := os.Getenv("REDCONNECT_PG_DSN"); dsn != "" {
		pgs, err := pg.Open(dsn)
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
		defer pgs.Close()
		db = pgs.DB()
		accountStore, profileStore, bankStore, driveStore = pgs, pgs, pgs, pgs

		// best-effort schema migration; a failure here should not keep
		// an already-migrated deployment from starting
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := migrate.NewManager(db, "migrations", "seeds").Up(ctx); err != nil {
			log.Printf("migrate up: %v (continuing)", err)
		}
		cancel()
	} else {
		log.Print("REDCONNECT_PG_DSN not set, using in-memory store")
		mem := memory.New()
		accountStore, profileStore, bankStore, driveStore = mem, mem, mem, mem
	}

	issuer, err := auth.NewTokenIssuer(secret, auth.WithTTL(time.Duration(ttlMinutes)*time.Minute))
	if err != nil {
		log.Fatalf("token issuer: %v", err)
	}
	authSvc, err := auth.NewService(accountStore, issuer)
	if err != nil {
		log.Fatalf("auth service: %v", err)
	}
	profiles, err := profile.NewService(profileStore, accountStore)
	if err != nil {
		log.Fatalf("profile service: %v", err)
	}
	banks, err := bank.NewService(bankStore)
	if err != nil {
		log.Fatalf("bank service: %v", err)
	}
	drives, err := drive.NewService(driveStore, profileStore)
	if err != nil {
		log.Fatalf("drive service: %v", err)
	}

	api := httpapi.New(authSvc, profiles, banks, drives, httpapi.ReadyProbe{DB: db}, version)

	srv := &http.Server{
		Addr:              addr,
		Handler:           httpapi.RateLimit(api.Handler(), 30, 20),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting redconnect-api %s on %s", version, srv.Addr)

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
	log.Println("Stopped")
}
