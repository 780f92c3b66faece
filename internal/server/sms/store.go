// Package sms выдает и проверяет одноразовые SMS коды.
package sms

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iudanet/gophgate/internal/crypto"
)

const (
	// DefaultCodeTTL время жизни кода
	DefaultCodeTTL = 5 * time.Minute
	// DefaultResendInterval минимальная пауза между отправками на один номер
	DefaultResendInterval = 60 * time.Second

	codeLength = 6
	keyPrefix  = "gophgate:sms:"
)

var (
	// ErrResendTooSoon код на этот номер уже отправлен недавно
	ErrResendTooSoon = errors.New("code was sent recently")
	// ErrInvalidCode код неверный, истек или уже использован
	ErrInvalidCode = errors.New("invalid or expired code")
)

// CodeStore хранит хеши кодов в Redis: ключ кода с TTL и ключ блокировки повторной отправки.
type CodeStore struct {
	rdb    redis.Cmdable
	ttl    time.Duration
	resend time.Duration
}

// NewCodeStore создает хранилище кодов. Нулевые длительности заменяются значениями по умолчанию.
func NewCodeStore(rdb redis.Cmdable, ttl, resend time.Duration) *CodeStore {
	if ttl <= 0 {
		ttl = DefaultCodeTTL
	}
	if resend <= 0 {
		resend = DefaultResendInterval
	}
	return &CodeStore{rdb: rdb, ttl: ttl, resend: resend}
}

// Issue генерирует новый код для phone и возвращает его открытым текстом для отправки.
// В Redis сохраняется только хеш.
func (s *CodeStore) Issue(ctx context.Context, phone string) (string, error) {
	ok, err := s.rdb.SetNX(ctx, lockKey(phone), 1, s.resend).Result()
	if err != nil {
		return "", fmt.Errorf("failed to acquire resend lock: %w", err)
	}
	if !ok {
		return "", ErrResendTooSoon
	}

	code, err := generateCode(codeLength)
	if err != nil {
		_ = s.rdb.Del(ctx, lockKey(phone)).Err()
		return "", err
	}

	hashed, err := crypto.HashCode(phone, code)
	if err != nil {
		_ = s.rdb.Del(ctx, lockKey(phone)).Err()
		return "", err
	}

	if err := s.rdb.Set(ctx, codeKey(phone), hashed, s.ttl).Err(); err != nil {
		// Без сохраненного кода блокировка только мешает повторить
		_ = s.rdb.Del(ctx, lockKey(phone)).Err()
		return "", fmt.Errorf("failed to store code: %w", err)
	}

	return code, nil
}

// RetryAfter сколько ждать до следующей отправки на phone (0, если можно сейчас)
func (s *CodeStore) RetryAfter(ctx context.Context, phone string) time.Duration {
	ttl, err := s.rdb.TTL(ctx, lockKey(phone)).Result()
	if err != nil || ttl < 0 {
		return 0
	}
	return ttl
}

// Release снимает блокировку повторной отправки (отправка SMS не удалась)
func (s *CodeStore) Release(ctx context.Context, phone string) error {
	if err := s.rdb.Del(ctx, lockKey(phone), codeKey(phone)).Err(); err != nil {
		return fmt.Errorf("failed to release code: %w", err)
	}
	return nil
}

// Verify проверяет код. Верный код погашается и повторно не принимается;
// неверная попытка код не сжигает.
func (s *CodeStore) Verify(ctx context.Context, phone, code string) error {
	hashed, err := s.rdb.Get(ctx, codeKey(phone)).Result()
	if errors.Is(err, redis.Nil) {
		return ErrInvalidCode
	}
	if err != nil {
		return fmt.Errorf("failed to load code: %w", err)
	}

	if err := crypto.VerifyCode(phone, code, hashed); err != nil {
		return ErrInvalidCode
	}

	// Del возвращает 1 только одному из параллельных проверяющих
	deleted, err := s.rdb.Del(ctx, codeKey(phone)).Result()
	if err != nil {
		return fmt.Errorf("failed to consume code: %w", err)
	}
	if deleted == 0 {
		return ErrInvalidCode
	}

	return nil
}

func generateCode(length int) (string, error) {
	max := big.NewInt(1)
	for i := 0; i < length; i++ {
		max.Mul(max, big.NewInt(10))
	}

	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", fmt.Errorf("failed to generate code: %w", err)
	}

	return fmt.Sprintf("%0*d", length, n), nil
}

func codeKey(phone string) string {
	return keyPrefix + "code:" + phone
}

func lockKey(phone string) string {
	return keyPrefix + "lock:" + phone
}
