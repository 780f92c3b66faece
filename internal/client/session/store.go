package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/iudanet/gophgate/internal/client/storage"
	"github.com/iudanet/gophgate/internal/models"
)

//go:generate moq -out fetcher_mock.go . ProfileFetcher

// ProfileFetcher loads the profile of the token owner (GET /auth/me)
type ProfileFetcher interface {
	CurrentUser(ctx context.Context, token string) (*models.UserProfile, error)
}

// Store is the process-wide session container: the single source of truth for
// flow controllers and the route guard. Create one per application run with New
// and pass it to every dependent.
type Store struct {
	tokens   storage.TokenStorage
	profiles ProfileFetcher
	logger   *slog.Logger

	subscribers map[int]func(State)
	state       State

	// очередь уведомлений; draining true, пока какая-то горутина ее разбирает
	pending []notification

	mu      sync.RWMutex // защищает state, subscribers, generation, checks, pending, draining
	writeMu sync.Mutex   // упорядочивает пары "запись на диск + публикация"

	// generation увеличивается при каждой смене токена; CheckAuth сверяется с ним,
	// чтобы устаревший результат не перезаписал более новый Login/Logout
	generation uint64
	checks     int
	nextSubID  int
	draining   bool
}

type notification struct {
	subs  []func(State)
	state State
}

// New creates an empty (anonymous) session store
func New(tokens storage.TokenStorage, profiles ProfileFetcher, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Store{
		tokens:      tokens,
		profiles:    profiles,
		logger:      logger,
		subscribers: make(map[int]func(State)),
	}
}

// Snapshot returns a copy of the current state
func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.clone()
}

// Token returns the current bearer token ("" when anonymous)
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Token
}

// Subscribe registers fn to receive every new snapshot after a transition.
// Snapshots are delivered in transition order, outside every store lock, so fn
// may read the store and call SetUser, SetNeedBindPhone or UpdateUser; such a
// transition is delivered after fn returns. Login, Logout, SetToken and
// CheckAuth must not be called from fn.
func (s *Store) Subscribe(fn func(State)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subscribers, id)
		s.mu.Unlock()
	}
}

// Close drops all subscribers
func (s *Store) Close() {
	s.mu.Lock()
	s.subscribers = make(map[int]func(State))
	s.mu.Unlock()
}

// Login persists the token and then atomically publishes an authenticated session.
// If the durable write fails, the in-memory state is left as it was.
func (s *Store) Login(ctx context.Context, token string, user *models.UserProfile, needBindPhone bool) error {
	if token == "" {
		return ErrEmptyToken
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	// Сначала диск: isAuthenticated не должен стать видимым раньше записи токена
	if err := s.tokens.SaveToken(ctx, token); err != nil {
		return fmt.Errorf("failed to persist token: %w", err)
	}

	s.update(func(st *State) {
		st.Token = token
		st.User = cloneProfile(user)
		st.NeedBindPhone = needBindPhone
		s.generation++
	})

	s.logger.InfoContext(ctx, "session started",
		slog.Bool("has_profile", user != nil),
		slog.Bool("need_bind_phone", needBindPhone && user != nil))

	return nil
}

// Logout removes the persisted token and resets the session to the anonymous state.
// Calling it when already logged out is a no-op.
func (s *Store) Logout(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	err := s.tokens.DeleteToken(ctx)
	if errors.Is(err, storage.ErrTokenNotFound) {
		err = nil
	}

	// Память очищаем в любом случае
	changed := s.update(func(st *State) {
		*st = State{}
		s.generation++
	})

	if err != nil {
		s.logger.ErrorContext(ctx, "failed to delete persisted token", slog.Any("error", err))
		return fmt.Errorf("failed to delete persisted token: %w", err)
	}

	if changed {
		s.logger.InfoContext(ctx, "session ended")
	}

	return nil
}

// SetToken replaces the bearer token. An empty token is the same as Logout.
func (s *Store) SetToken(ctx context.Context, token string) error {
	if token == "" {
		return s.Logout(ctx)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.tokens.SaveToken(ctx, token); err != nil {
		return fmt.Errorf("failed to persist token: %w", err)
	}

	s.update(func(st *State) {
		st.Token = token
		s.generation++
	})

	return nil
}

// SetUser replaces the profile and recomputes NeedBindPhone from it
func (s *Store) SetUser(user *models.UserProfile) {
	s.update(func(st *State) {
		st.User = cloneProfile(user)
		st.NeedBindPhone = user != nil && user.NeedsPhoneBinding()
	})
}

// SetNeedBindPhone overrides the bind-phone flag. Without a profile the flag stays false.
func (s *Store) SetNeedBindPhone(need bool) {
	s.update(func(st *State) {
		st.NeedBindPhone = need
	})
}

// UpdateUser merges patch into the current profile and recomputes NeedBindPhone.
// Without a current profile it does nothing.
func (s *Store) UpdateUser(patch models.ProfilePatch) {
	s.update(func(st *State) {
		if st.User == nil {
			return
		}
		merged := st.User.Merge(patch)
		st.User = &merged
		st.NeedBindPhone = merged.NeedsPhoneBinding()
	})
}

// CheckAuth rehydrates the session from the persisted token.
//
// No token: the session is reset and no request is made. A token whose profile
// cannot be fetched (network error, 401, malformed response) is treated as
// invalid: it is removed from storage and the session is reset. Returns the
// final authentication status; never fails.
func (s *Store) CheckAuth(ctx context.Context) bool {
	token, err := s.tokens.GetToken(ctx)
	if err != nil {
		if !errors.Is(err, storage.ErrTokenNotFound) {
			s.logger.WarnContext(ctx, "failed to read persisted token", slog.Any("error", err))
		}
		s.writeMu.Lock()
		s.update(func(st *State) {
			*st = State{}
			s.generation++
		})
		s.writeMu.Unlock()
		return false
	}

	var startGen uint64
	s.update(func(st *State) {
		s.checks++
		startGen = s.generation
	})

	fresh, rehydrateErr := Rehydrate(ctx, token, s.profiles)

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.RLock()
	stale := s.generation != startGen
	s.mu.RUnlock()

	if stale {
		// Пока шел запрос, сессию изменил Login/Logout: его результат новее
		s.update(func(st *State) { s.checks-- })
		s.logger.DebugContext(ctx, "discarding stale rehydration result")
		return s.Snapshot().IsAuthenticated
	}

	if rehydrateErr != nil {
		s.logger.WarnContext(ctx, "persisted session is invalid, logging out", slog.Any("error", rehydrateErr))
		if err := s.tokens.DeleteToken(ctx); err != nil && !errors.Is(err, storage.ErrTokenNotFound) {
			s.logger.ErrorContext(ctx, "failed to delete invalid token", slog.Any("error", err))
		}
		s.update(func(st *State) {
			s.checks--
			*st = State{}
			s.generation++
		})
		return false
	}

	s.update(func(st *State) {
		s.checks--
		*st = fresh
		s.generation++
	})

	s.logger.DebugContext(ctx, "session rehydrated", slog.Bool("need_bind_phone", fresh.NeedBindPhone))
	return true
}

// update применяет fn к состоянию под блокировкой, восстанавливает инварианты
// и ставит снимок в очередь уведомлений, если он изменился.
func (s *Store) update(fn func(st *State)) bool {
	s.mu.Lock()
	before := s.state.clone()
	fn(&s.state)
	s.state.normalize()
	s.state.IsLoading = s.checks > 0

	if s.state.equal(before) {
		s.mu.Unlock()
		return false
	}

	subs := make([]func(State), 0, len(s.subscribers))
	for _, sub := range s.subscribers {
		subs = append(subs, sub)
	}
	s.pending = append(s.pending, notification{state: s.state.clone(), subs: subs})

	// Очередь разбирает одна горутина; остальные только добавляют снимки
	if s.draining {
		s.mu.Unlock()
		return true
	}
	s.draining = true
	s.drain()

	return true
}

// drain доставляет уведомления в порядке переходов без удержания mu.
// Вызывается с захваченным mu, возвращается с отпущенным.
func (s *Store) drain() {
	for len(s.pending) > 0 {
		n := s.pending[0]
		s.pending[0] = notification{}
		s.pending = s.pending[1:]
		s.mu.Unlock()

		for _, sub := range n.subs {
			sub(n.state.clone())
		}

		s.mu.Lock()
	}
	s.pending = nil
	s.draining = false
	s.mu.Unlock()
}
