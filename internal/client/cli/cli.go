// Package cli implements the interactive command surface of the client.
// Every command goes through the persistence facade: reads and writes are
// local-first, synchronization happens in the background or via 'sync'.
package cli

import (
	"context"
	"fmt"

	"github.com/iudanet/studysync/internal/client/iocli"
	"github.com/iudanet/studysync/internal/client/persist"
	syncer "github.com/iudanet/studysync/internal/client/sync"
	"github.com/iudanet/studysync/internal/models"
)

//go:generate moq -out service_mock.go . Service

// Service is the slice of the persistence facade the CLI depends on
type Service interface {
	Save(ctx context.Context, entityID string, payload []byte) (*models.VersionedRecord, error)
	Load(ctx context.Context, entityID string) (*models.VersionedRecord, persist.Source, error)
	List(ctx context.Context) ([]models.EntitySummary, error)
	Delete(ctx context.Context, entityID string) error
	GetSyncStatus(ctx context.Context, entityID string) (persist.SyncState, error)
	ForceSync(ctx context.Context) (syncer.Result, error)
	ResolveConflict(ctx context.Context, entityID string, chooseLocal bool) error
	FailedItems(ctx context.Context) ([]*models.OutboxItem, error)
	RetryItem(ctx context.Context, itemID string) error
	DiscardItem(ctx context.Context, itemID string) error
	Online() bool
}

type Cli struct {
	io  iocli.IO
	svc Service
}

func New(io iocli.IO, svc Service) *Cli {
	return &Cli{
		io:  io,
		svc: svc,
	}
}

// Run dispatches a single command and returns its error
func (c *Cli) Run(ctx context.Context, command string, args []string) error {
	switch command {
	case "save":
		return c.runSave(ctx, args)
	case "get":
		return c.runGet(ctx, args)
	case "list":
		return c.runList(ctx)
	case "delete":
		return c.runDelete(ctx, args)
	case "status":
		return c.runStatus(ctx, args)
	case "sync":
		return c.runSync(ctx)
	case "retry":
		return c.runRetry(ctx, args)
	case "discard":
		return c.runDiscard(ctx, args)
	case "resolve":
		return c.runResolve(ctx, args)
	default:
		return fmt.Errorf("unknown command: %s", command)
	}
}

func PrintUsage() {
	fmt.Println("StudySync Client")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  studysync [OPTIONS] COMMAND")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  --version        Show version information")
	fmt.Println("  --server URL     Server URL (default: http://localhost:8080)")
	fmt.Println("  --db PATH        Path to local database (default: studysync-client.db)")
	fmt.Println("  --owner ID       Owner identifier (default: STUDYSYNC_OWNER env var)")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  save <id|new> [payload]  Save entity locally and queue for sync")
	fmt.Println("  get <id>                 Show entity (remote-first when no local edits)")
	fmt.Println("  list                     List saved entities")
	fmt.Println("  delete <id>              Delete entity (queued until confirmed by server)")
	fmt.Println("  status [id]              Show sync status (global or per entity)")
	fmt.Println("  sync                     Force synchronization with server")
	fmt.Println("  retry <item-id>          Retry a failed outbox item immediately")
	fmt.Println("  discard <item-id>        Discard a failed outbox item")
	fmt.Println("  resolve <id> <local|remote>  Resolve a conflicted entity")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  studysync save new '{\"title\":\"biology notes\"}'")
	fmt.Println("  studysync save b692f5c0-2d88-4aa1-a9e1-13aa6e4976d5 '{\"title\":\"updated\"}'")
	fmt.Println("  studysync get b692f5c0-2d88-4aa1-a9e1-13aa6e4976d5")
	fmt.Println("  studysync list")
	fmt.Println("  studysync status")
	fmt.Println("  studysync resolve b692f5c0-2d88-4aa1-a9e1-13aa6e4976d5 local")
	fmt.Println("  studysync --server https://example.com sync")
}
