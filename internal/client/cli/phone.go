package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/iudanet/gophgate/internal/client/auth"
	"github.com/iudanet/gophgate/internal/client/guard"
	"github.com/iudanet/gophgate/internal/validation"
)

func (c *Cli) runPhoneLogin(ctx context.Context) error {
	c.io.Println("=== Phone Login ===")
	c.io.Println()

	phone, code, err := c.phoneAndCode(ctx)
	if err != nil {
		return err
	}

	c.io.Println("Signing in...")
	res := auth.NewPhoneLogin(c.gateway, c.session, c.logger).Login(ctx, phone, code)
	if !res.OK() {
		return errors.New(res.Message())
	}

	c.io.Println("✓ Login successful!")
	return c.navigate(ctx, guard.RouteHome, nil)
}

func (c *Cli) runRegister(ctx context.Context) error {
	c.io.Println("=== Register ===")
	c.io.Println()

	phone, code, err := c.phoneAndCode(ctx)
	if err != nil {
		return err
	}

	nickname, err := c.io.ReadInput("Nickname (optional): ")
	if err != nil {
		return fmt.Errorf("failed to read nickname: %w", err)
	}
	if err := validation.ValidateNickname(nickname); err != nil {
		return fmt.Errorf("invalid nickname: %w", err)
	}

	c.io.Println("Creating account...")
	res := auth.NewPhoneRegister(c.gateway, c.session, c.logger).Register(ctx, phone, code, nickname)
	if !res.OK() {
		return errors.New(res.Message())
	}

	c.io.Println("✓ Registration successful!")
	return c.navigate(ctx, guard.RouteHome, nil)
}

// phoneAndCode читает телефон, отправляет SMS и читает код
func (c *Cli) phoneAndCode(ctx context.Context) (string, string, error) {
	phone, err := c.readPhone()
	if err != nil {
		return "", "", err
	}

	sender := c.newSMSSender()
	defer sender.Close()

	code, err := c.requestCode(ctx, sender, phone)
	if err != nil {
		return "", "", err
	}

	return phone, code, nil
}

// readPhone запрашивает номер до первого корректного ввода
func (c *Cli) readPhone() (string, error) {
	for {
		phone, err := c.io.ReadInput("Phone: ")
		if err != nil {
			return "", fmt.Errorf("failed to read phone: %w", err)
		}
		if err := validation.ValidatePhone(phone); err != nil {
			c.io.Printf("Invalid phone: %v\n", err)
			continue
		}
		return phone, nil
	}
}

// requestCode отправляет SMS код и читает его. Пустой ввод запрашивает код повторно,
// если таймер повторной отправки истек.
func (c *Cli) requestCode(ctx context.Context, sender *auth.SMSSender, phone string) (string, error) {
	if err := c.sendCode(ctx, sender, phone); err != nil {
		return "", err
	}

	for {
		prompt := "SMS code (empty to resend): "
		if remaining := sender.Timer().Remaining(); remaining > 0 {
			prompt = fmt.Sprintf("SMS code (resend in %ds): ", remaining)
		}

		code, err := c.io.ReadInput(prompt)
		if err != nil {
			return "", fmt.Errorf("failed to read code: %w", err)
		}

		if code == "" {
			if !sender.Timer().CanSend() {
				c.io.Printf("Please wait %ds before requesting a new code\n", sender.Timer().Remaining())
				continue
			}
			if err := c.sendCode(ctx, sender, phone); err != nil {
				return "", err
			}
			continue
		}

		if err := validation.ValidateCode(code); err != nil {
			c.io.Printf("Invalid code: %v\n", err)
			continue
		}
		return code, nil
	}
}

func (c *Cli) sendCode(ctx context.Context, sender *auth.SMSSender, phone string) error {
	res := sender.Send(ctx, phone)
	if !res.OK() {
		return errors.New(res.Message())
	}
	c.io.Printf("Code sent to %s\n", validation.MaskPhone(phone))
	return nil
}
