package cli

import (
	"context"
	"fmt"
	"time"
)

func (c *Cli) runList(ctx context.Context) error {
	c.io.Println("=== Saved Entities ===")
	c.io.Println()

	summaries, err := c.svc.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list entities: %w", err)
	}

	if len(summaries) == 0 {
		c.io.Println("No entities found.")
		c.io.Println()
		c.io.Println("Use 'studysync save new <payload>' to create your first entity.")
		return nil
	}

	c.io.Printf("Found %d entit(ies):\n", len(summaries))
	c.io.Println()

	for i, s := range summaries {
		c.io.Printf("%d. %s\n", i+1, s.ID)
		c.io.Printf("   Status:   %s\n", s.SyncStatus)
		c.io.Printf("   Versions: local=%d server=%d\n", s.LocalVersion, s.ServerVersion)
		c.io.Printf("   Modified: %s\n", s.LastModifiedAt.Format(time.RFC3339))
		c.io.Println()
	}

	c.io.Println("Use 'studysync get <id>' to view full details.")

	return nil
}
