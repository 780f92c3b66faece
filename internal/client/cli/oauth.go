package cli

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/iudanet/gophgate/internal/client/auth"
	"github.com/iudanet/gophgate/internal/client/guard"
)

var ErrMissingOAuthCode = errors.New("missing OAuth code")

// runOAuthCallback завершает OAuth вход. Аргумент: redirect URL провайдера или сам код.
func (c *Cli) runOAuthCallback(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return ErrMissingOAuthCode
	}

	code, err := parseOAuthCode(args[0])
	if err != nil {
		return err
	}

	c.io.Println("Completing OAuth sign-in...")
	res := auth.NewOAuthLogin(c.gateway, c.session, c.logger).Login(ctx, code)
	if !res.OK() {
		return errors.New(res.Message())
	}

	outcome := res.Value()
	c.io.Printf("✓ Signed in as %s\n", outcome.User.DisplayName())

	if outcome.NeedBindPhone {
		c.io.Println("A verified phone number is required to continue.")
		return c.navigate(ctx, guard.RouteBindPhone, nil)
	}
	return c.navigate(ctx, guard.RouteHome, nil)
}

// parseOAuthCode достает параметр code из redirect URL
func parseOAuthCode(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrMissingOAuthCode
	}

	if !strings.Contains(raw, "?") && !strings.Contains(raw, "://") {
		return raw, nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid callback URL: %w", err)
	}

	query := u.Query()
	if msg := query.Get("error"); msg != "" {
		return "", fmt.Errorf("provider returned error: %s", msg)
	}

	code := query.Get("code")
	if code == "" {
		return "", ErrMissingOAuthCode
	}
	return code, nil
}
