package main

import (
	"context"
	"fmt"
	"os"

	"github.com/MKhiriev/go-offline-sync/internal/config"
	handler "github.com/MKhiriev/go-offline-sync/internal/handler/http"
	"github.com/MKhiriev/go-offline-sync/internal/logger"
	"github.com/MKhiriev/go-offline-sync/internal/server"
	"github.com/MKhiriev/go-offline-sync/internal/service"
	"github.com/MKhiriev/go-offline-sync/internal/store"
)

var (
	buildVersion string
	buildDate    string
	buildCommit  string
)

func main() {
	printBuildInfo()

	log := logger.NewLogger("go-offline-sync-server")
	cfg, err := config.GetServerConfig(os.Args[1:])
	if err != nil {
		log.Fatal().Err(err).Msg("error getting configs")
	}
	if buildVersion != "N/A" {
		cfg.Version = buildVersion
	}

	ctx := context.Background()

	storages, err := store.NewServerStorages(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("error creating storages")
	}
	defer storages.Close()

	services, err := service.NewServices(storages, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("error creating services")
	}

	// issue-token <owner> prints a bearer token for a client instead of serving.
	if len(cfg.Command) > 0 {
		if err = runCommand(ctx, services, cfg.Command); err != nil {
			log.Fatal().Err(err).Msg("command failed")
		}
		return
	}

	srv, err := server.NewServer(handler.NewHandler(services, cfg.HashKey, log).Init(), cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("error creating server")
	}

	if err = srv.RunServer(ctx); err != nil {
		log.Error().Err(err).Msg("server stopped with error")
	}
}

func runCommand(ctx context.Context, services *service.Services, args []string) error {
	if args[0] != "issue-token" || len(args) != 2 {
		return fmt.Errorf("unknown command %q, usage: issue-token <owner>", args)
	}

	token, err := services.AuthService.IssueToken(ctx, args[1])
	if err != nil {
		return err
	}

	fmt.Println(token.SignedString)
	return nil
}

func printBuildInfo() {
	if buildVersion == "" {
		buildVersion = "N/A"
	}
	if buildDate == "" {
		buildDate = "N/A"
	}
	if buildCommit == "" {
		buildCommit = "N/A"
	}

	fmt.Fprintf(os.Stderr, "Build version: %s\n", buildVersion)
	fmt.Fprintf(os.Stderr, "Build date: %s\n", buildDate)
	fmt.Fprintf(os.Stderr, "Build commit: %s\n", buildCommit)
}
