package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/orneryd/trajmatch/internal/httpapi"
	"github.com/orneryd/trajmatch/internal/service"
)

func runServe(cmd *cobra.Command, args []string) error {
	cfg := loadConfig(cmd)

	svc, err := service.New(cfg)
	if err != nil {
		return err
	}
	defer svc.Close()

	srv := &http.Server{
		Addr:    cfg.Server.Address,
		Handler: httpapi.New(svc),
	}

	go func() {
		log.Printf("trajmatch serve: listening on %s", cfg.Server.Address)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("trajmatch serve: server error: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}
