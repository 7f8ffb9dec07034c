package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/sguter90/sparrowmaestro/pkg/ingest"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the SparrowMaestro server",
	Long: `Start the HTTP API, receive routed Notehub events and, when MQTT_BROKER is set,
subscribe to routed events published over MQTT.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.JWT.Secret == "change_me_in_production" {
		return errors.New("JWT_SECRET has an invalid value")
	}
	if cfg.JWT.Secret == "" {
		log.Println("⚠ JWT_SECRET not set, attribute changes are not protected")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := buildApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	go app.Hub.Run(ctx)

	if cfg.MQTT.Broker != "" {
		subscriber := ingest.NewSubscriber(cfg.MQTT.Broker, cfg.MQTT.ClientID, cfg.MQTT.Topic, app.Ingestor)
		if err := subscriber.Start(ctx); err != nil {
			return err
		}
		defer subscriber.Stop()
		log.Printf("✓ Connected to MQTT broker %s", cfg.MQTT.Broker)
	}

	routeManager := NewRouteManager(app.Service, app.Ingestor, app.Hub, cfg.AllowedOrigins(), cfg.JWT.Secret)
	routeManager.Setup()

	addr := ":" + cfg.Server.Port
	server := &http.Server{
		Handler:      routeManager.Router,
		Addr:         addr,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		<-ctx.Done()
		log.Println("Shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
	}()

	log.Printf("Starting SparrowMaestro server on %s for project %s...", addr, app.Service.ProjectID())
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}
