package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/gophgate/internal/client/api"
	"github.com/iudanet/gophgate/internal/client/storage"
	"github.com/iudanet/gophgate/internal/models"
)

// mockTokenStorage хранит токен в памяти
type mockTokenStorage struct {
	saveErr   error
	getErr    error
	deleteErr error
	token     string
	mu        sync.Mutex
	saves     int
	deletes   int
}

func (m *mockTokenStorage) SaveToken(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	if m.saveErr != nil {
		return m.saveErr
	}
	m.token = token
	return nil
}

func (m *mockTokenStorage) GetToken(_ context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return "", m.getErr
	}
	if m.token == "" {
		return "", storage.ErrTokenNotFound
	}
	return m.token, nil
}

func (m *mockTokenStorage) DeleteToken(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deletes++
	if m.deleteErr != nil {
		return m.deleteErr
	}
	if m.token == "" {
		return storage.ErrTokenNotFound
	}
	m.token = ""
	return nil
}

func (m *mockTokenStorage) stored() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token
}

// mockFetcher возвращает заданный профиль или ошибку
type mockFetcher struct {
	user  *models.UserProfile
	err   error
	block chan struct{}
	calls int
	mu    sync.Mutex
}

func (m *mockFetcher) CurrentUser(_ context.Context, _ string) (*models.UserProfile, error) {
	m.mu.Lock()
	m.calls++
	block := m.block
	m.mu.Unlock()

	if block != nil {
		<-block
	}
	return m.user, m.err
}

func (m *mockFetcher) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func assertInvariants(t *testing.T, st State) {
	t.Helper()
	assert.Equal(t, st.Token != "", st.IsAuthenticated, "IsAuthenticated must follow Token")
	if st.NeedBindPhone {
		assert.NotNil(t, st.User, "NeedBindPhone requires a profile")
	}
}

func TestStore_InitialState(t *testing.T) {
	s := New(&mockTokenStorage{}, &mockFetcher{}, nil)

	st := s.Snapshot()
	assert.Equal(t, State{}, st)
	assert.Empty(t, s.Token())
}

func TestStore_Login(t *testing.T) {
	ctx := context.Background()
	tokens := &mockTokenStorage{}
	s := New(tokens, &mockFetcher{}, nil)

	user := &models.UserProfile{ID: "u1", Nickname: "wx"}
	require.NoError(t, s.Login(ctx, "tok1", user, true))

	st := s.Snapshot()
	assertInvariants(t, st)
	assert.True(t, st.IsAuthenticated)
	assert.True(t, st.NeedBindPhone)
	assert.Equal(t, "tok1", st.Token)
	assert.Equal(t, "u1", st.User.ID)
	assert.Equal(t, "tok1", tokens.stored())

	// Изменение переданного профиля не влияет на сессию
	user.Nickname = "changed"
	assert.Equal(t, "wx", s.Snapshot().User.Nickname)
}

func TestStore_Login_NilUserCoercesNeedBind(t *testing.T) {
	s := New(&mockTokenStorage{}, &mockFetcher{}, nil)

	require.NoError(t, s.Login(context.Background(), "tok", nil, true))

	st := s.Snapshot()
	assertInvariants(t, st)
	assert.True(t, st.IsAuthenticated)
	assert.False(t, st.NeedBindPhone)
	assert.Nil(t, st.User)
}

func TestStore_Login_EmptyToken(t *testing.T) {
	tokens := &mockTokenStorage{}
	s := New(tokens, &mockFetcher{}, nil)

	err := s.Login(context.Background(), "", nil, false)
	assert.ErrorIs(t, err, ErrEmptyToken)
	assert.Equal(t, 0, tokens.saves)
	assert.False(t, s.Snapshot().IsAuthenticated)
}

func TestStore_Login_PersistFailureLeavesState(t *testing.T) {
	ctx := context.Background()
	tokens := &mockTokenStorage{}
	s := New(tokens, &mockFetcher{}, nil)

	var notified int
	s.Subscribe(func(State) { notified++ })

	tokens.saveErr = errors.New("disk full")
	err := s.Login(ctx, "tok", nil, false)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.Equal(t, State{}, s.Snapshot())
	assert.Equal(t, 0, notified)
}

func TestStore_Logout(t *testing.T) {
	ctx := context.Background()
	tokens := &mockTokenStorage{}
	s := New(tokens, &mockFetcher{}, nil)

	require.NoError(t, s.Login(ctx, "tok", &models.UserProfile{ID: "u1"}, true))
	require.NoError(t, s.Logout(ctx))

	assert.Equal(t, State{}, s.Snapshot())
	assert.Empty(t, tokens.stored())

	// Повторный logout ничего не меняет и не падает
	require.NoError(t, s.Logout(ctx))
	assert.Equal(t, State{}, s.Snapshot())
}

func TestStore_Logout_StorageErrorStillClearsMemory(t *testing.T) {
	ctx := context.Background()
	tokens := &mockTokenStorage{}
	s := New(tokens, &mockFetcher{}, nil)

	require.NoError(t, s.Login(ctx, "tok", nil, false))

	tokens.deleteErr = errors.New("io error")
	err := s.Logout(ctx)

	require.Error(t, err)
	assert.False(t, s.Snapshot().IsAuthenticated)
}

func TestStore_SetToken(t *testing.T) {
	ctx := context.Background()
	tokens := &mockTokenStorage{}
	s := New(tokens, &mockFetcher{}, nil)

	require.NoError(t, s.SetToken(ctx, "abc"))
	assert.True(t, s.Snapshot().IsAuthenticated)
	assert.Equal(t, "abc", tokens.stored())

	require.NoError(t, s.SetToken(ctx, ""))
	assert.False(t, s.Snapshot().IsAuthenticated)
	assert.Empty(t, tokens.stored())
}

func TestStore_SetUser(t *testing.T) {
	ctx := context.Background()
	s := New(&mockTokenStorage{}, &mockFetcher{}, nil)
	require.NoError(t, s.Login(ctx, "tok", nil, false))

	s.SetUser(&models.UserProfile{ID: "u1"})
	assert.True(t, s.Snapshot().NeedBindPhone)

	s.SetUser(&models.UserProfile{ID: "u1", Phone: "13800138000", IsPhoneVerified: true})
	assert.False(t, s.Snapshot().NeedBindPhone)

	s.SetUser(nil)
	st := s.Snapshot()
	assertInvariants(t, st)
	assert.Nil(t, st.User)
	assert.False(t, st.NeedBindPhone)
}

func TestStore_SetNeedBindPhone_WithoutUser(t *testing.T) {
	s := New(&mockTokenStorage{}, &mockFetcher{}, nil)
	require.NoError(t, s.Login(context.Background(), "tok", nil, false))

	s.SetNeedBindPhone(true)
	assert.False(t, s.Snapshot().NeedBindPhone)
}

func TestStore_UpdateUser(t *testing.T) {
	ctx := context.Background()
	s := New(&mockTokenStorage{}, &mockFetcher{}, nil)

	// Без профиля patch игнорируется
	s.UpdateUser(models.ProfilePatch{})
	assert.Nil(t, s.Snapshot().User)

	require.NoError(t, s.Login(ctx, "tok", &models.UserProfile{ID: "u1", Nickname: "wx"}, true))

	phone := "13800138000"
	verified := true
	s.UpdateUser(models.ProfilePatch{Phone: &phone, IsPhoneVerified: &verified})

	st := s.Snapshot()
	assertInvariants(t, st)
	assert.Equal(t, "u1", st.User.ID)
	assert.Equal(t, "wx", st.User.Nickname)
	assert.Equal(t, phone, st.User.Phone)
	assert.False(t, st.NeedBindPhone)
}

func TestStore_CheckAuth_NoToken(t *testing.T) {
	fetcher := &mockFetcher{}
	s := New(&mockTokenStorage{}, fetcher, nil)

	assert.False(t, s.CheckAuth(context.Background()))
	assert.Equal(t, 0, fetcher.callCount())

	st := s.Snapshot()
	assert.False(t, st.IsAuthenticated)
	assert.False(t, st.IsLoading)
}

func TestStore_CheckAuth_UnverifiedPhone(t *testing.T) {
	tokens := &mockTokenStorage{token: "t"}
	fetcher := &mockFetcher{user: &models.UserProfile{ID: "u1", Phone: "13800138000", IsPhoneVerified: false}}
	s := New(tokens, fetcher, nil)

	assert.True(t, s.CheckAuth(context.Background()))

	st := s.Snapshot()
	assertInvariants(t, st)
	assert.True(t, st.IsAuthenticated)
	assert.True(t, st.NeedBindPhone)
	assert.False(t, st.IsLoading)
	assert.Equal(t, "t", st.Token)
}

func TestStore_CheckAuth_Unauthorized(t *testing.T) {
	tokens := &mockTokenStorage{token: "t"}
	fetcher := &mockFetcher{err: &api.RemoteError{Kind: api.KindSessionInvalid, Status: 401}}
	s := New(tokens, fetcher, nil)

	assert.False(t, s.CheckAuth(context.Background()))

	st := s.Snapshot()
	assert.False(t, st.IsAuthenticated)
	assert.False(t, st.IsLoading)
	assert.Empty(t, tokens.stored())
}

func TestStore_CheckAuth_NilProfile(t *testing.T) {
	tokens := &mockTokenStorage{token: "t"}
	s := New(tokens, &mockFetcher{}, nil)

	assert.False(t, s.CheckAuth(context.Background()))
	assert.Empty(t, tokens.stored())
}

func TestStore_CheckAuth_ReadError(t *testing.T) {
	tokens := &mockTokenStorage{getErr: storage.ErrStorageClosed}
	fetcher := &mockFetcher{}
	s := New(tokens, fetcher, nil)

	assert.False(t, s.CheckAuth(context.Background()))
	assert.Equal(t, 0, fetcher.callCount())
}

func TestStore_CheckAuth_LoadingVisible(t *testing.T) {
	tokens := &mockTokenStorage{token: "t"}
	fetcher := &mockFetcher{user: &models.UserProfile{ID: "u1"}, block: make(chan struct{})}
	s := New(tokens, fetcher, nil)

	done := make(chan bool)
	go func() {
		done <- s.CheckAuth(context.Background())
	}()

	assert.Eventually(t, func() bool {
		return s.Snapshot().IsLoading
	}, time.Second, 5*time.Millisecond)

	close(fetcher.block)
	assert.True(t, <-done)
	assert.False(t, s.Snapshot().IsLoading)
}

func TestStore_CheckAuth_StaleResultDiscarded(t *testing.T) {
	ctx := context.Background()
	tokens := &mockTokenStorage{token: "old"}
	fetcher := &mockFetcher{err: errors.New("network down"), block: make(chan struct{})}
	s := New(tokens, fetcher, nil)

	done := make(chan bool)
	go func() {
		done <- s.CheckAuth(ctx)
	}()

	assert.Eventually(t, func() bool {
		return fetcher.callCount() == 1
	}, time.Second, 5*time.Millisecond)

	// Новый вход во время проверки старого токена
	require.NoError(t, s.Login(ctx, "new", nil, false))
	close(fetcher.block)

	assert.True(t, <-done)
	st := s.Snapshot()
	assert.Equal(t, "new", st.Token)
	assert.False(t, st.IsLoading)
	assert.Equal(t, "new", tokens.stored())
}

func TestStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	tokens := &mockTokenStorage{}
	profile := &models.UserProfile{ID: "u1", Phone: "13800138000", IsPhoneVerified: true}

	first := New(tokens, &mockFetcher{user: profile}, nil)
	require.NoError(t, first.Login(ctx, "tok", profile, false))

	// Новый процесс с тем же хранилищем
	second := New(tokens, &mockFetcher{user: profile}, nil)
	assert.True(t, second.CheckAuth(ctx))

	st := second.Snapshot()
	assert.Equal(t, "tok", st.Token)
	assert.Equal(t, "u1", st.User.ID)
	assert.False(t, st.NeedBindPhone)
}

func TestStore_Subscribe(t *testing.T) {
	ctx := context.Background()
	s := New(&mockTokenStorage{}, &mockFetcher{}, nil)

	var seen []State
	unsubscribe := s.Subscribe(func(st State) {
		seen = append(seen, st)
	})

	require.NoError(t, s.Login(ctx, "tok", &models.UserProfile{ID: "u1"}, true))
	s.SetNeedBindPhone(true) // без изменений, уведомления нет
	require.NoError(t, s.Logout(ctx))

	require.Len(t, seen, 2)
	assert.True(t, seen[0].IsAuthenticated)
	assert.True(t, seen[0].NeedBindPhone)
	assert.False(t, seen[1].IsAuthenticated)
	for _, st := range seen {
		assertInvariants(t, st)
	}

	unsubscribe()
	require.NoError(t, s.Login(ctx, "tok", nil, false))
	assert.Len(t, seen, 2)
}

// Подписчик читает снимок, пока другой переход ждет своей очереди
func TestStore_SubscriberReadsDuringPendingTransition(t *testing.T) {
	s := New(&mockTokenStorage{}, &mockFetcher{}, nil)

	entered := make(chan struct{})
	release := make(chan struct{})

	var (
		mu       sync.Mutex
		seen     []string
		readBack []string
		first    = true
	)
	s.Subscribe(func(st State) {
		mu.Lock()
		isFirst := first
		first = false
		seen = append(seen, st.User.ID)
		mu.Unlock()

		if isFirst {
			close(entered)
			<-release
		}

		snap := s.Snapshot()
		mu.Lock()
		readBack = append(readBack, snap.User.ID)
		mu.Unlock()
	})

	firstDone := make(chan struct{})
	go func() {
		defer close(firstDone)
		s.SetUser(&models.UserProfile{ID: "u1"})
	}()
	<-entered

	secondDone := make(chan struct{})
	go func() {
		defer close(secondDone)
		s.SetUser(&models.UserProfile{ID: "u2"})
	}()

	select {
	case <-secondDone:
	case <-time.After(3 * time.Second):
		t.Fatal("transition blocked while a subscriber was running")
	}

	close(release)

	for _, done := range []chan struct{}{firstDone, secondDone} {
		select {
		case <-done:
		case <-time.After(3 * time.Second):
			t.Fatal("subscriber reading Snapshot never returned")
		}
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"u1", "u2"}, seen)
	assert.Equal(t, []string{"u2", "u2"}, readBack)
	assert.Equal(t, "u2", s.Snapshot().User.ID)
}

// Переход из подписчика доставляется после его возврата
func TestStore_SubscriberTransition(t *testing.T) {
	s := New(&mockTokenStorage{}, &mockFetcher{}, nil)

	var seen []bool
	s.Subscribe(func(st State) {
		seen = append(seen, st.NeedBindPhone)
		if st.NeedBindPhone {
			s.SetNeedBindPhone(false)
		}
	})

	s.SetUser(&models.UserProfile{ID: "u1"})

	assert.Equal(t, []bool{true, false}, seen)
	assert.False(t, s.Snapshot().NeedBindPhone)
}

func TestStore_Close(t *testing.T) {
	s := New(&mockTokenStorage{}, &mockFetcher{}, nil)

	var notified int
	s.Subscribe(func(State) { notified++ })
	s.Close()

	require.NoError(t, s.Login(context.Background(), "tok", nil, false))
	assert.Equal(t, 0, notified)
}

func TestStore_ConcurrentSnapshotsKeepInvariants(t *testing.T) {
	ctx := context.Background()
	s := New(&mockTokenStorage{}, &mockFetcher{}, nil)

	var wg sync.WaitGroup
	stop := make(chan struct{})

	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
				st := s.Snapshot()
				if st.IsAuthenticated != (st.Token != "") || (st.NeedBindPhone && st.User == nil) {
					t.Errorf("invariant violated: %+v", st)
					return
				}
			}
		}
	}()

	for i := 0; i < 200; i++ {
		if i%2 == 0 {
			_ = s.Login(ctx, "tok", &models.UserProfile{ID: "u1"}, true)
		} else {
			_ = s.Logout(ctx)
		}
	}

	close(stop)
	wg.Wait()
}

func TestTokenExpiry(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "u1",
		"exp": exp.Unix(),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	got, ok := TokenExpiry(token)
	require.True(t, ok)
	assert.True(t, exp.Equal(got))

	_, ok = TokenExpiry("not-a-jwt")
	assert.False(t, ok)

	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "u1"}).SignedString([]byte("secret"))
	require.NoError(t, err)
	_, ok = TokenExpiry(noExp)
	assert.False(t, ok)
}

func TestRehydrate(t *testing.T) {
	ctx := context.Background()

	_, err := Rehydrate(ctx, "", &mockFetcher{})
	assert.ErrorIs(t, err, ErrEmptyToken)

	_, err = Rehydrate(ctx, "t", &mockFetcher{err: errors.New("boom")})
	assert.Error(t, err)

	st, err := Rehydrate(ctx, "t", &mockFetcher{user: &models.UserProfile{ID: "u1"}})
	require.NoError(t, err)
	assert.True(t, st.IsAuthenticated)
	assert.True(t, st.NeedBindPhone)
	assert.False(t, st.IsLoading)
}
