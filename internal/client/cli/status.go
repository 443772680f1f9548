package cli

import (
	"context"
	"fmt"

	"github.com/iudanet/studysync/internal/models"
)

func (c *Cli) runStatus(ctx context.Context, args []string) error {
	if len(args) > 0 {
		return c.runEntityStatus(ctx, args[0])
	}
	return c.runGlobalStatus(ctx)
}

func (c *Cli) runGlobalStatus(ctx context.Context) error {
	c.io.Println("=== Sync Status ===")
	c.io.Println()

	if c.svc.Online() {
		c.io.Println("Connectivity: online")
	} else {
		c.io.Println("Connectivity: offline")
	}

	summaries, err := c.svc.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list entities: %w", err)
	}

	// Считаем сущности по статусам
	var pending, conflicted int
	for _, s := range summaries {
		switch s.SyncStatus {
		case models.SyncStatusConflict:
			conflicted++
		case models.SyncStatusPending:
			pending++
		}
	}

	c.io.Printf("Entities:     %d\n", len(summaries))
	if pending > 0 {
		c.io.Printf("⚠️  Pending sync: %d entit(ies) waiting to be synchronized\n", pending)
		c.io.Println("Run 'studysync sync' to synchronize with server.")
	}
	if conflicted > 0 {
		c.io.Printf("⚠️  Conflicts: %d entit(ies) require manual resolution\n", conflicted)
		c.io.Println("Run 'studysync resolve <id> <local|remote>' to resolve.")
	}
	if pending == 0 && conflicted == 0 {
		c.io.Println("✓ All data synchronized with server")
	}

	failed, err := c.svc.FailedItems(ctx)
	if err != nil {
		return fmt.Errorf("failed to list failed items: %w", err)
	}
	if len(failed) > 0 {
		c.io.Println()
		c.io.Printf("Failed outbox items (%d):\n", len(failed))
		for _, item := range failed {
			c.io.Printf("  %s  entity=%s op=%s retries=%d\n", item.ItemID, item.EntityID, item.Operation, item.RetryCount)
			if item.LastError != "" {
				c.io.Printf("    last error: %s\n", item.LastError)
			}
		}
		c.io.Println()
		c.io.Println("Use 'studysync retry <item-id>' or 'studysync discard <item-id>'.")
	}

	return nil
}

func (c *Cli) runEntityStatus(ctx context.Context, entityID string) error {
	state, err := c.svc.GetSyncStatus(ctx, entityID)
	if err != nil {
		return fmt.Errorf("failed to get sync status: %w", err)
	}

	c.io.Printf("=== Status: %s ===\n", entityID)
	c.io.Println()
	c.io.Printf("Sync status:   %s\n", state.Status)
	c.io.Printf("Pending items: %d\n", state.PendingCount)
	if state.LastError != "" {
		c.io.Printf("Last error:    %s\n", state.LastError)
	}

	return nil
}
