package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/chaipat/go-shop-backend/internal/auth"
	"github.com/chaipat/go-shop-backend/internal/config"
	"github.com/chaipat/go-shop-backend/internal/httpx"
	kafkax "github.com/chaipat/go-shop-backend/internal/kafka"
	"github.com/chaipat/go-shop-backend/internal/postgres"
	"github.com/chaipat/go-shop-backend/internal/redisx"
	"github.com/chaipat/go-shop-backend/internal/shop"
	"github.com/chaipat/go-shop-backend/internal/uploads"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := postgres.Migrate(cfg.PostgresDSN); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer db.Close()

	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	prod := kafkax.NewProducer(cfg.KafkaBrokers, shop.TopicOrderPlaced, 1024)
	prod.Start(ctx)

	up, err := uploads.NewStore(cfg.UploadDir)
	if err != nil {
		log.Fatalf("uploads: %v", err)
	}

	repo := shop.NewRepo(db)
	svc := shop.NewService(repo)
	authSvc := auth.NewService(db, cfg.JWTSecret, cfg.JWTExpiry)

	router := httpx.NewRouter()
	httpx.ServeUploads(router, cfg.UploadDir)

	(&httpx.AuthHandler{Auth: authSvc}).Register(router, authSvc.RequireAuth)
	(&httpx.CheckoutHandler{
		Svc:      svc,
		Producer: prod,
		Redis:    rdb,
		Service:  cfg.ServiceName,
	}).Register(router, authSvc.RequireAuth)
	(&httpx.ProductsHandler{
		Repo:    repo,
		Svc:     svc,
		Redis:   rdb,
		Uploads: up,
	}).Register(router, authSvc.RequireAuth, auth.RequireRole(auth.RoleAdmin))
	(&httpx.CategoriesHandler{Repo: repo}).Register(router)
	(&httpx.SuppliersHandler{Repo: repo}).Register(router)

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
	prod.Close()
	cancel()
	prod.WaitClosed()
}
