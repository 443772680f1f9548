package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/iudanet/studysync/internal/client/storage"
)

func (c *Cli) runRetry(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("missing item ID. Usage: studysync retry <item-id>")
	}

	itemID := args[0]

	if err := c.svc.RetryItem(ctx, itemID); err != nil {
		if errors.Is(err, storage.ErrItemNotFound) {
			return fmt.Errorf("outbox item not found: %s", itemID)
		}
		return fmt.Errorf("failed to retry item: %w", err)
	}

	c.io.Println("✓ Item queued for retry")

	return nil
}

func (c *Cli) runDiscard(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("missing item ID. Usage: studysync discard <item-id>")
	}

	itemID := args[0]

	if err := c.svc.DiscardItem(ctx, itemID); err != nil {
		if errors.Is(err, storage.ErrItemNotFound) {
			return fmt.Errorf("outbox item not found: %s", itemID)
		}
		return fmt.Errorf("failed to discard item: %w", err)
	}

	c.io.Println("✓ Item discarded")
	c.io.Println()
	c.io.Println("The local copy keeps its current state; the mutation will not be retried.")

	return nil
}
