package cli

import (
	"context"
	"fmt"
)

func (c *Cli) runSync(ctx context.Context) error {
	c.io.Println("=== Synchronization ===")
	c.io.Println()

	if !c.svc.Online() {
		c.io.Println("Currently offline. Nothing to do.")
		c.io.Println("Queued changes will be sent automatically when connectivity returns.")
		return nil
	}

	c.io.Println("Synchronizing with server...")

	result, err := c.svc.ForceSync(ctx)
	if err != nil {
		return fmt.Errorf("synchronization failed: %w", err)
	}

	c.io.Println()
	if result.Failed == 0 {
		c.io.Println("✓ Synchronization completed successfully!")
	} else {
		c.io.Println("Synchronization completed with errors.")
	}
	c.io.Println()
	c.io.Printf("Synced items: %d\n", result.Synced)
	if result.Failed > 0 {
		c.io.Printf("Failed items: %d\n", result.Failed)
		c.io.Println()
		c.io.Println("Run 'studysync status' to inspect failed items.")
	}

	return nil
}
