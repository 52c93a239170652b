package cli

import (
	"context"
	"fmt"
)

func (c *Cli) runRegister(ctx context.Context) error {
	c.io.Println("=== Registration ===")
	c.io.Println()

	email, err := c.io.ReadInput("Email: ")
	if err != nil {
		return fmt.Errorf("failed to read email: %w", err)
	}

	name, err := c.io.ReadInput("Name: ")
	if err != nil {
		return fmt.Errorf("failed to read name: %w", err)
	}

	password, preset, err := c.presetPassword()
	if err != nil {
		return err
	}
	if !preset {
		password, err = c.getPassword("Password (min 8 chars): ")
		if err != nil {
			return err
		}

		// Подтверждение пароля только при интерактивном вводе
		confirm, err := c.io.ReadPassword("Confirm password: ")
		if err != nil {
			return fmt.Errorf("failed to read confirmation: %w", err)
		}
		if password != confirm {
			return fmt.Errorf("passwords do not match")
		}
	}

	c.io.Println()
	c.io.Println("Registering user...")

	user, err := c.manager.Register(ctx, email, password, name)
	if err != nil {
		return formatError("registration failed", err)
	}

	c.io.Println()
	c.io.Println("✓ Registration successful!")
	c.io.Printf("User ID: %s\n", user.ID)
	c.io.Printf("Email:   %s\n", user.Email)
	c.io.Printf("Name:    %s\n", user.Name)

	return nil
}
