package crypto

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
)

// HashCode хеширует SMS код вместе с телефоном (SHA256, hex).
// Телефон в качестве соли не дает сопоставить одинаковые коды разных номеров.
func HashCode(phone, code string) (string, error) {
	if code == "" {
		return "", fmt.Errorf("code cannot be empty")
	}

	hash := sha256.Sum256([]byte(phone + ":" + code))

	// Возвращаем hex-encoded строку
	return hex.EncodeToString(hash[:]), nil
}

// VerifyCode проверяет код против сохраненного хеша за постоянное время
func VerifyCode(phone, code, hashedCode string) error {
	if code == "" {
		return fmt.Errorf("code cannot be empty")
	}
	if hashedCode == "" {
		return fmt.Errorf("hashed code cannot be empty")
	}

	computedHash, err := HashCode(phone, code)
	if err != nil {
		return fmt.Errorf("failed to compute code hash: %w", err)
	}

	if subtle.ConstantTimeCompare([]byte(computedHash), []byte(hashedCode)) != 1 {
		return fmt.Errorf("invalid code")
	}

	return nil
}
