package cli

import (
	"context"
	"fmt"
)

func (c *Cli) runLogout(ctx context.Context) error {
	c.io.Println("=== Logout ===")

	// Сервер отзывает сессию и очищает cookie; если он недоступен,
	// локальная cookie все равно удаляется
	c.manager.Logout(ctx)

	if err := c.jar.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear local session: %w", err)
	}

	c.io.Println("✓ Logout successful!")
	c.io.Println("Your local session has been deleted.")

	return nil
}
