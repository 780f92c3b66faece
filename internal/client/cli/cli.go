package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/iudanet/gophgate/internal/client/auth"
	"github.com/iudanet/gophgate/internal/client/countdown"
	"github.com/iudanet/gophgate/internal/client/guard"
	"github.com/iudanet/gophgate/internal/client/iocli"
	"github.com/iudanet/gophgate/internal/client/session"
)

// maxRedirects ограничивает цепочку перенаправлений guard за одну навигацию
const maxRedirects = 3

var (
	ErrUnknownCommand = errors.New("unknown command")
	ErrRedirectLoop   = errors.New("too many redirects")
)

// commandRoutes команда CLI -> маршрут
var commandRoutes = map[string]string{
	"login":          guard.RouteLogin,
	"phone-login":    guard.RoutePhoneLogin,
	"register":       guard.RouteRegister,
	"oauth-callback": guard.RouteOAuthCallback,
	"bind-phone":     guard.RouteBindPhone,
	"home":           guard.RouteHome,
	"status":         guard.RouteHome,
}

// Options дополнительные настройки CLI
type Options struct {
	Logger *slog.Logger
	// Resend пауза перед повторной отправкой кода, секунд
	Resend int
	// TickInterval шаг таймера повторной отправки (по умолчанию секунда)
	TickInterval time.Duration
}

// Cli выполняет команды как переходы по маршрутам: каждая команда сначала
// проходит через guard на основе восстановленной сессии.
type Cli struct {
	io       iocli.IO
	gateway  auth.Gateway
	session  *session.Store
	guard    *guard.Guard
	logger   *slog.Logger
	resend   int
	interval time.Duration
}

// New создает CLI
func New(out iocli.IO, gateway auth.Gateway, sess *session.Store, g *guard.Guard, opts Options) *Cli {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if g == nil {
		g = guard.Default()
	}
	resend := opts.Resend
	if resend <= 0 {
		resend = countdown.DefaultResend
	}
	interval := opts.TickInterval
	if interval <= 0 {
		interval = time.Second
	}

	return &Cli{
		io:       out,
		gateway:  gateway,
		session:  sess,
		guard:    g,
		logger:   logger,
		resend:   resend,
		interval: interval,
	}
}

// Run выполняет команду
func (c *Cli) Run(ctx context.Context, command string, args []string) error {
	switch command {
	case "logout":
		return c.runLogout(ctx)
	case "help":
		PrintUsage(c.io)
		return nil
	}

	route, ok := commandRoutes[command]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCommand, command)
	}

	// Восстанавливаем сессию до первой проверки guard
	c.session.CheckAuth(ctx)

	return c.navigate(ctx, route, args)
}

// navigate проверяет маршрут через guard и следует перенаправлениям
func (c *Cli) navigate(ctx context.Context, route string, args []string) error {
	for hop := 0; hop <= maxRedirects; hop++ {
		decision := c.guard.Evaluate(c.session.Snapshot(), route)
		if decision.Allowed() {
			return c.render(ctx, route, args)
		}

		c.logger.DebugContext(ctx, "route redirected",
			slog.String("from", route),
			slog.String("to", decision.Target))
		c.io.Printf("-> %s\n", decision.Target)

		route = decision.Target
		args = nil
	}

	return ErrRedirectLoop
}

func (c *Cli) render(ctx context.Context, route string, args []string) error {
	switch route {
	case guard.RouteLogin:
		return c.runLoginMenu(ctx)
	case guard.RoutePhoneLogin:
		return c.runPhoneLogin(ctx)
	case guard.RouteRegister:
		return c.runRegister(ctx)
	case guard.RouteOAuthCallback:
		return c.runOAuthCallback(ctx, args)
	case guard.RouteBindPhone:
		return c.runBindPhone(ctx)
	case guard.RouteHome:
		return c.runHome(ctx)
	default:
		return fmt.Errorf("%w: no page for %s", ErrUnknownCommand, route)
	}
}

// newSMSSender создает контроллер кода с таймером на время одной формы
func (c *Cli) newSMSSender() *auth.SMSSender {
	timer := countdown.New(countdown.WithInterval(c.interval))
	return auth.NewSMSSender(c.gateway, timer, c.resend, c.logger)
}

// PrintUsage выводит справку
func PrintUsage(out iocli.IO) {
	out.Println("GophGate Client")
	out.Println()
	out.Println("Usage:")
	out.Println("  gophgate [OPTIONS] COMMAND")
	out.Println()
	out.Println("Options:")
	out.Println("  --version          Show version information")
	out.Println("  --server URL       Auth API base URL (default: http://localhost:8080/api/v1)")
	out.Println("  --db PATH          Path to local session database (default: gophgate-client.db)")
	out.Println("  --log-level LEVEL  debug, info, warn, error (default: warn)")
	out.Println("  --resend SECONDS   SMS resend cooldown (default: 60)")
	out.Println()
	out.Println("Commands:")
	out.Println("  login                    Sign in (menu: phone, register, email/password, OAuth)")
	out.Println("  phone-login              Sign in with phone and SMS code")
	out.Println("  register                 Create an account with phone and SMS code")
	out.Println("  oauth-callback <url>     Finish OAuth sign-in with the provider redirect URL or code")
	out.Println("  bind-phone               Attach a verified phone to the account")
	out.Println("  home, status             Show the current session")
	out.Println("  logout                   Sign out")
	out.Println()
	out.Println("Examples:")
	out.Println("  gophgate phone-login")
	out.Println("  gophgate oauth-callback 'http://localhost:5173/oauth-callback?code=abc&state=xyz'")
	out.Println("  gophgate --server https://auth.example.com/api/v1 status")
}
