package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/iudanet/studysync/internal/client/persist"
	"github.com/iudanet/studysync/internal/client/storage"
)

func (c *Cli) runResolve(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: studysync resolve <id> <local|remote>")
	}

	entityID := args[0]

	var chooseLocal bool
	switch args[1] {
	case "local":
		chooseLocal = true
	case "remote":
		chooseLocal = false
	default:
		return fmt.Errorf("unknown verdict: %s. Use 'local' or 'remote'", args[1])
	}

	err := c.svc.ResolveConflict(ctx, entityID, chooseLocal)
	switch {
	case err == nil:
	case errors.Is(err, storage.ErrRecordNotFound):
		return fmt.Errorf("entity not found: %s", entityID)
	case errors.Is(err, persist.ErrNotConflicted):
		return fmt.Errorf("entity %s is not in conflict state", entityID)
	case errors.Is(err, persist.ErrOffline):
		return fmt.Errorf("conflict resolution requires connectivity. Try again when online")
	default:
		return fmt.Errorf("failed to resolve conflict: %w", err)
	}

	if chooseLocal {
		c.io.Println("✓ Conflict resolved: local version kept")
		c.io.Println()
		c.io.Println("The local payload has been queued for upload over the current server version.")
	} else {
		c.io.Println("✓ Conflict resolved: server version adopted")
	}

	return nil
}
