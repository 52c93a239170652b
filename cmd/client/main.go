package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/iudanet/taskauth/internal/client/api"
	"github.com/iudanet/taskauth/internal/client/auth"
	"github.com/iudanet/taskauth/internal/client/cli"
	"github.com/iudanet/taskauth/internal/client/iocli"
	"github.com/iudanet/taskauth/internal/client/storage"
	"github.com/iudanet/taskauth/internal/client/storage/boltdb"
)

var (
	// Version information set via ldflags during build
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

func main() {
	// Глобальные флаги
	showVersion := flag.Bool("version", false, "Show version information")
	serverURL := flag.String("server", "http://localhost:4000", "Server URL")
	dbPath := flag.String("db", "taskauth-client.db", "Path to local database")
	password := flag.String("password", "", "Password (not recommended, use env var or file)")
	passwordFile := flag.String("password-file", "", "Path to file containing password")
	verbose := flag.Bool("verbose", false, "Enable debug logging")

	flag.Parse()

	// Show version and exit if requested
	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	stdio := iocli.NewStdio()

	// Получаем команду
	args := flag.Args()
	if len(args) == 0 {
		cli.PrintUsage(stdio)
		os.Exit(1)
	}

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, logger, stdio, args, *serverURL, *dbPath, cli.Passwords{
		FromFile: *passwordFile,
		FromArgs: *password,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger, stdio iocli.IO, args []string, serverURL, dbPath string, passwords cli.Passwords) error {
	// Открываем BoltDB storage
	boltStorage, err := boltdb.New(ctx, dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if err := boltStorage.Close(); err != nil {
			logger.Error("failed to close database", slog.Any("error", err))
		}
	}()

	// refresh cookie переживает перезапуск, access токен живет только в памяти
	jar, err := storage.NewJar(ctx, logger, boltStorage)
	if err != nil {
		return err
	}

	apiClient := api.NewClient(serverURL, jar)
	manager := auth.NewManager(logger, apiClient, nil)

	return cli.New(stdio, manager, jar, passwords).Run(ctx, args[0], args[1:])
}

func printVersion() {
	fmt.Printf("TaskAuth Client\n")
	fmt.Printf("Version:    %s\n", Version)
	fmt.Printf("Build Date: %s\n", BuildDate)
	fmt.Printf("Git Commit: %s\n", GitCommit)
}
