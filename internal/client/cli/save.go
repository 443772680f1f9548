package cli

import (
	"context"
	"fmt"
	"strings"
)

func (c *Cli) runSave(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("missing entity ID. Usage: studysync save <id|new> [payload]")
	}

	entityID := args[0]
	if entityID == "new" {
		// Пустой ID — фасад сгенерирует новый UUID
		entityID = ""
	}

	// Payload берем из аргументов, иначе запрашиваем интерактивно
	var payload string
	if len(args) > 1 {
		payload = strings.Join(args[1:], " ")
	} else {
		input, err := c.io.ReadInput("Payload: ")
		if err != nil {
			return fmt.Errorf("failed to read payload: %w", err)
		}
		payload = input
	}
	if payload == "" {
		return fmt.Errorf("payload cannot be empty")
	}

	rec, err := c.svc.Save(ctx, entityID, []byte(payload))
	if err != nil {
		return fmt.Errorf("failed to save entity: %w", err)
	}

	c.io.Println("✓ Saved locally")
	c.io.Println()
	c.io.Printf("ID:             %s\n", rec.ID)
	c.io.Printf("Local version:  %d\n", rec.LocalVersion)
	c.io.Printf("Sync status:    %s\n", rec.SyncStatus)
	if !c.svc.Online() {
		c.io.Println()
		c.io.Println("Currently offline. The change will be synchronized when connectivity returns.")
	}

	return nil
}
