package cli

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/iudanet/gophgate/internal/client/guard"
	"github.com/iudanet/gophgate/internal/client/session"
	"github.com/iudanet/gophgate/internal/validation"
)

func (c *Cli) runHome(ctx context.Context) error {
	// После входа по телефону профиля в сессии еще нет
	if c.session.Snapshot().User == nil {
		user, err := c.gateway.CurrentUser(ctx, c.session.Token())
		if err != nil {
			c.logger.WarnContext(ctx, "failed to load profile", slog.Any("error", err))
		} else {
			c.session.SetUser(user)
			// Без профиля флаг был false; теперь guard решает заново
			if c.session.Snapshot().NeedBindPhone {
				return c.navigate(ctx, guard.RouteHome, nil)
			}
		}
	}

	c.io.Println("=== Home ===")
	c.io.Println()

	st := c.session.Snapshot()
	c.io.Println("Status: Authenticated")

	if st.User != nil {
		c.io.Printf("User: %s\n", st.User.DisplayName())
		c.io.Printf("ID: %s\n", st.User.ID)
		if st.User.Phone != "" {
			c.io.Printf("Phone: %s\n", validation.MaskPhone(st.User.Phone))
		}
		if st.User.Email != "" {
			c.io.Printf("Email: %s\n", st.User.Email)
		}
	} else {
		c.io.Println("Profile: unavailable")
	}

	if expiresAt, ok := session.TokenExpiry(st.Token); ok {
		c.io.Printf("Token expires: %s\n", expiresAt.Format(time.RFC3339))
		if remaining := time.Until(expiresAt); remaining > 0 {
			c.io.Printf("Time remaining: %s\n", remaining.Round(time.Second))
		} else {
			c.io.Println("⚠️  Token has expired. Please login again.")
		}
	}

	return nil
}

func (c *Cli) runLogout(ctx context.Context) error {
	c.io.Println("=== Logout ===")

	if err := c.session.Logout(ctx); err != nil {
		return fmt.Errorf("logout failed: %w", err)
	}

	c.io.Println("✓ Logout successful!")
	c.io.Println("Your local session has been deleted.")

	return nil
}
