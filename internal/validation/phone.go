package validation

import (
	"fmt"
	"net/mail"
	"regexp"
	"unicode/utf8"
)

// PhonePattern определяет допустимый формат номера телефона
// 11 цифр, начинается с 1, второй символ 3-9 (мобильные номера)
var PhonePattern = regexp.MustCompile(`^1[3-9]\d{9}$`)

// CodePattern определяет формат SMS кода: только цифры
var CodePattern = regexp.MustCompile(`^\d+$`)

const (
	// MinCodeLen минимальная длина SMS кода
	MinCodeLen = 4
	// MaxCodeLen максимальная длина SMS кода
	MaxCodeLen = 6
	// MaxNicknameLen максимальная длина ника в символах
	MaxNicknameLen = 32
	// MinPasswordLen минимальная длина пароля для legacy входа
	MinPasswordLen = 8
)

// ValidatePhone проверяет, что номер телефона соответствует требованиям
func ValidatePhone(phone string) error {
	if phone == "" {
		return fmt.Errorf("phone cannot be empty")
	}

	if !PhonePattern.MatchString(phone) {
		return fmt.Errorf("phone must be 11 digits starting with 13-19")
	}

	return nil
}

// ValidateCode проверяет SMS код подтверждения
// Длина: 4-6 цифр
func ValidateCode(code string) error {
	if code == "" {
		return fmt.Errorf("code cannot be empty")
	}

	if len(code) < MinCodeLen {
		return fmt.Errorf("code must be at least %d digits long", MinCodeLen)
	}

	if len(code) > MaxCodeLen {
		return fmt.Errorf("code must not exceed %d digits", MaxCodeLen)
	}

	if !CodePattern.MatchString(code) {
		return fmt.Errorf("code can only contain digits")
	}

	return nil
}

// ValidateNickname проверяет необязательный ник (пустой допустим)
func ValidateNickname(nickname string) error {
	if utf8.RuneCountInString(nickname) > MaxNicknameLen {
		return fmt.Errorf("nickname must not exceed %d characters", MaxNicknameLen)
	}
	return nil
}

// ValidateEmail проверяет email для legacy входа
func ValidateEmail(email string) error {
	if email == "" {
		return fmt.Errorf("email cannot be empty")
	}

	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return fmt.Errorf("invalid email address")
	}

	return nil
}

// ValidatePassword проверяет минимальные требования к паролю legacy входа
// Минимум 8 символов
func ValidatePassword(password string) error {
	if password == "" {
		return fmt.Errorf("password cannot be empty")
	}

	if len(password) < MinPasswordLen {
		return fmt.Errorf("password must be at least %d characters long", MinPasswordLen)
	}

	return nil
}

// MaskPhone скрывает середину номера для логов: 138****8000
func MaskPhone(phone string) string {
	if len(phone) < 7 {
		return "****"
	}
	return phone[:3] + "****" + phone[len(phone)-4:]
}
