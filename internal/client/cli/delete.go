package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/iudanet/studysync/internal/client/storage"
)

func (c *Cli) runDelete(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("missing entity ID. Usage: studysync delete <id>")
	}

	entityID := args[0]

	if err := c.svc.Delete(ctx, entityID); err != nil {
		if errors.Is(err, storage.ErrRecordNotFound) {
			return fmt.Errorf("entity not found: %s", entityID)
		}
		return fmt.Errorf("failed to delete entity: %w", err)
	}

	c.io.Println("✓ Entity deleted locally")
	c.io.Println()
	c.io.Println("The deletion will be confirmed by the server on the next sync.")

	return nil
}
