package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/iudanet/studysync/internal/client/storage"
)

func (c *Cli) runGet(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("missing entity ID. Usage: studysync get <id>")
	}

	entityID := args[0]

	rec, source, err := c.svc.Load(ctx, entityID)
	if err != nil {
		if errors.Is(err, storage.ErrRecordNotFound) {
			return fmt.Errorf("entity not found: %s", entityID)
		}
		return fmt.Errorf("failed to load entity: %w", err)
	}

	c.io.Println("=== Entity Details ===")
	c.io.Println()
	c.io.Printf("ID:             %s\n", rec.ID)
	c.io.Printf("Source:         %s\n", source)
	c.io.Printf("Sync status:    %s\n", rec.SyncStatus)
	c.io.Printf("Local version:  %d\n", rec.LocalVersion)
	c.io.Printf("Server version: %d\n", rec.ServerVersion)
	c.io.Printf("Modified:       %s\n", rec.LastModifiedAt.Format(time.RFC3339))
	c.io.Println()
	c.io.Println("Payload:")
	if _, err := c.io.Write(rec.Payload); err != nil {
		return fmt.Errorf("failed to write payload: %w", err)
	}
	c.io.Println()

	return nil
}
