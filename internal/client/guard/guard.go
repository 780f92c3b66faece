// Package guard решает, можно ли перейти на маршрут при текущем состоянии сессии.
package guard

import (
	"github.com/iudanet/gophgate/internal/client/session"
)

// Маршруты приложения
const (
	RouteRoot          = "/"
	RouteLogin         = "/login"
	RoutePhoneLogin    = "/phone-login"
	RouteRegister      = "/register"
	RouteOAuthCallback = "/oauth-callback"
	RouteBindPhone     = "/bind-phone"
	RouteHome          = "/home"
)

// Action результат проверки маршрута
type Action int

const (
	Allow Action = iota
	Redirect
)

func (a Action) String() string {
	if a == Redirect {
		return "redirect"
	}
	return "allow"
}

// Decision решение guard: разрешить или перенаправить на Target
type Decision struct {
	Target string
	Action Action
}

// Allowed true, если переход разрешен
func (d Decision) Allowed() bool {
	return d.Action == Allow
}

func allow() Decision {
	return Decision{Action: Allow}
}

func redirect(target string) Decision {
	return Decision{Action: Redirect, Target: target}
}

// Policy способ защиты маршрута
type Policy int

const (
	// PolicyUnknown маршрут не зарегистрирован: перенаправление на /login
	PolicyUnknown Policy = iota
	// PolicyPublic страницы входа: аутентифицированного пользователя уводят дальше
	PolicyPublic
	// PolicyGated требует сессии и привязанного телефона (кроме /bind-phone)
	PolicyGated
	// PolicyBypass пропускается без проверок (OAuth callback)
	PolicyBypass
)

// Gated проверка защищенного маршрута.
//
//	!isAuth                            -> /login
//	needBind && route != /bind-phone   -> /bind-phone
//	иначе                              -> allow
func Gated(isAuth, needBind bool, route string) Decision {
	switch {
	case !isAuth:
		return redirect(RouteLogin)
	case needBind && route != RouteBindPhone:
		return redirect(RouteBindPhone)
	default:
		return allow()
	}
}

// PublicOnly проверка страницы входа.
//
//	isAuth && needBind  -> /bind-phone
//	isAuth && !needBind -> /home
//	иначе               -> allow
func PublicOnly(isAuth, needBind bool) Decision {
	switch {
	case isAuth && needBind:
		return redirect(RouteBindPhone)
	case isAuth:
		return redirect(RouteHome)
	default:
		return allow()
	}
}

// Guard хранит только таблицу маршрутов; решение зависит от снимка сессии.
type Guard struct {
	table map[string]Policy
}

// DefaultTable таблица маршрутов приложения
func DefaultTable() map[string]Policy {
	return map[string]Policy{
		RouteLogin:         PolicyPublic,
		RoutePhoneLogin:    PolicyPublic,
		RouteRegister:      PolicyPublic,
		RouteOAuthCallback: PolicyBypass,
		RouteBindPhone:     PolicyGated,
		RouteHome:          PolicyGated,
	}
}

// Default создает guard со стандартной таблицей
func Default() *Guard {
	return New(DefaultTable())
}

// New создает guard с собственной таблицей
func New(table map[string]Policy) *Guard {
	cp := make(map[string]Policy, len(table))
	for route, policy := range table {
		cp[route] = policy
	}
	return &Guard{table: cp}
}

// Policy возвращает политику маршрута
func (g *Guard) Policy(route string) Policy {
	return g.table[route]
}

// Evaluate решает, можно ли перейти на route. Вызывается на каждой навигации.
func (g *Guard) Evaluate(state session.State, route string) Decision {
	switch g.table[route] {
	case PolicyBypass:
		return allow()
	case PolicyPublic:
		return PublicOnly(state.IsAuthenticated, state.NeedBindPhone)
	case PolicyGated:
		return Gated(state.IsAuthenticated, state.NeedBindPhone, route)
	default:
		// "/" и неизвестные маршруты
		return redirect(RouteLogin)
	}
}
