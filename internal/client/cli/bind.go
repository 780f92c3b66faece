package cli

import (
	"context"
	"errors"

	"github.com/iudanet/gophgate/internal/client/auth"
	"github.com/iudanet/gophgate/internal/client/guard"
	"github.com/iudanet/gophgate/internal/validation"
)

func (c *Cli) runBindPhone(ctx context.Context) error {
	c.io.Println("=== Bind Phone ===")
	c.io.Println()

	phone, code, err := c.phoneAndCode(ctx)
	if err != nil {
		return err
	}

	res := auth.NewBindPhone(c.gateway, c.session, c.logger).Bind(ctx, phone, code)
	if !res.OK() {
		return errors.New(res.Message())
	}

	c.io.Printf("✓ Phone %s bound to your account\n", validation.MaskPhone(res.Value().Phone))
	return c.navigate(ctx, guard.RouteHome, nil)
}
