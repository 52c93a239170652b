package cli

import (
	"context"
)

func (c *Cli) runMe(ctx context.Context) error {
	user, err := c.manager.Me(ctx)
	if err != nil {
		return formatError("failed to get current user", err)
	}

	c.io.Printf("ID:    %s\n", user.ID)
	c.io.Printf("Email: %s\n", user.Email)
	c.io.Printf("Name:  %s\n", user.Name)

	return nil
}

func (c *Cli) runRefresh(ctx context.Context) error {
	if err := c.manager.Refresh(ctx); err != nil {
		return formatError("refresh failed", err)
	}

	c.io.Println("✓ Session refreshed")
	return nil
}
