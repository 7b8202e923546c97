// Command trajmatchd runs the trajectory-matching HTTP edge server.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/orneryd/trajmatch/internal/config"
	"github.com/orneryd/trajmatch/internal/httpapi"
	"github.com/orneryd/trajmatch/internal/service"
)

func main() {
	cfg := config.Load()

	svc, err := service.New(cfg)
	if err != nil {
		log.Fatalf("trajmatchd: failed to start service: %v", err)
	}
	defer svc.Close()

	srv := &http.Server{
		Addr:    cfg.Server.Address,
		Handler: httpapi.New(svc),
	}

	go func() {
		log.Printf("trajmatchd: listening on %s", cfg.Server.Address)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("trajmatchd: server error: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("trajmatchd: shutdown error: %v", err)
	}
}
