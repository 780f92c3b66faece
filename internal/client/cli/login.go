package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/iudanet/gophgate/internal/client/auth"
	"github.com/iudanet/gophgate/internal/client/guard"
	"github.com/iudanet/gophgate/internal/validation"
)

func (c *Cli) runLoginMenu(ctx context.Context) error {
	c.io.Println("=== Sign In ===")
	c.io.Println()
	c.io.Println("  1) Phone and SMS code")
	c.io.Println("  2) Create an account")
	c.io.Println("  3) Email and password")
	c.io.Println("  4) OAuth provider")
	c.io.Println()

	choice, err := c.io.ReadInput("Choose [1-4]: ")
	if err != nil {
		return fmt.Errorf("failed to read choice: %w", err)
	}

	switch choice {
	case "1":
		return c.navigate(ctx, guard.RoutePhoneLogin, nil)
	case "2":
		return c.navigate(ctx, guard.RouteRegister, nil)
	case "3":
		return c.runCredentialLogin(ctx)
	case "4":
		c.io.Println("Open the provider sign-in page in a browser, then run:")
		c.io.Println("  gophgate oauth-callback '<redirect URL>'")
		return nil
	default:
		return fmt.Errorf("unknown choice: %q", choice)
	}
}

func (c *Cli) runCredentialLogin(ctx context.Context) error {
	email, err := c.io.ReadInput("Email: ")
	if err != nil {
		return fmt.Errorf("failed to read email: %w", err)
	}
	if err := validation.ValidateEmail(email); err != nil {
		return fmt.Errorf("invalid email: %w", err)
	}

	password, err := c.io.ReadPassword("Password: ")
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}
	if err := validation.ValidatePassword(password); err != nil {
		return fmt.Errorf("invalid password: %w", err)
	}

	c.io.Println("Signing in...")
	res := auth.NewCredentialLogin(c.gateway, c.session, c.logger).Login(ctx, email, password)
	if !res.OK() {
		return errors.New(res.Message())
	}

	c.io.Println("✓ Login successful!")
	return c.navigate(ctx, guard.RouteHome, nil)
}
