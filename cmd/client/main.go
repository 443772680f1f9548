package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/iudanet/studysync/internal/client/api"
	"github.com/iudanet/studysync/internal/client/cli"
	"github.com/iudanet/studysync/internal/client/connectivity"
	"github.com/iudanet/studysync/internal/client/iocli"
	"github.com/iudanet/studysync/internal/client/outbox"
	"github.com/iudanet/studysync/internal/client/persist"
	"github.com/iudanet/studysync/internal/client/storage/boltdb"
	syncer "github.com/iudanet/studysync/internal/client/sync"
	"github.com/iudanet/studysync/internal/validation"
)

var (
	// Version information set via ldflags during build
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

const probeInterval = 10 * time.Second

func main() {
	// Глобальные флаги
	showVersion := flag.Bool("version", false, "Show version information")
	serverURL := flag.String("server", "http://localhost:8080", "Server URL")
	dbPath := flag.String("db", "studysync-client.db", "Path to local database")
	ownerID := flag.String("owner", os.Getenv("STUDYSYNC_OWNER"), "Owner identifier")

	flag.Parse()

	// Show version and exit if requested
	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	// Получаем команду
	args := flag.Args()
	if len(args) == 0 {
		cli.PrintUsage()
		os.Exit(1)
	}

	command := args[0]

	if *ownerID == "" {
		fmt.Fprintln(os.Stderr, "Owner ID is required: use --owner or the STUDYSYNC_OWNER environment variable")
		os.Exit(1)
	}
	if err := validation.ValidateOwnerID(*ownerID); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid owner ID: %v\n", err)
		os.Exit(1)
	}

	// Создаем контекст
	ctx := context.Background()

	// Логи клиента идут в stderr, чтобы не мешаться с выводом команд
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))

	// Открываем BoltDB storage
	boltStorage, err := boltdb.New(ctx, *dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open database: %v\n", err)
		os.Exit(1)
	}

	// Создаем API клиент
	apiClient := api.NewClient(*serverURL)

	// Собираем стек синхронизации: очередь, монитор сети, координатор, фасад
	queue := outbox.NewQueue(boltStorage, logger)
	monitor := connectivity.NewMonitor(connectivity.Offline, logger)
	monitor.SetDebounce(0) // одна команда за запуск, дребезг не актуален
	monitor.Report(apiClient.Ping(ctx))

	coord := syncer.NewCoordinator(apiClient, boltStorage, queue, monitor, nil, logger, syncer.Config{
		OwnerID: *ownerID,
	})

	svc := persist.NewService(boltStorage, queue, monitor, coord, apiClient, logger, *ownerID)
	svc.AddCloser(boltStorage.Close)

	if err := svc.Start(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start sync: %v\n", err)
		os.Exit(1)
	}

	// Фоновый пробер держит вердикт монитора актуальным, пока команда работает
	proberCtx, stopProber := context.WithCancel(ctx)
	go monitor.RunProber(proberCtx, apiClient.Ping, probeInterval)

	// Выполняем команду
	c := cli.New(iocli.NewStdio(), svc)
	runErr := c.Run(ctx, command, args[1:])

	stopProber()
	if err := svc.Close(); err != nil {
		logger.Error("failed to close persistence", "error", err)
	}

	if runErr != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", runErr)
		os.Exit(1)
	}
}

func printVersion() {
	fmt.Printf("StudySync Client\n")
	fmt.Printf("Version:    %s\n", Version)
	fmt.Printf("Build Date: %s\n", BuildDate)
	fmt.Printf("Git Commit: %s\n", GitCommit)
}
