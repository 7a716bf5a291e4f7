package validator

import (
	"errors"
	"regexp"
)

var ErrInvalidInput = errors.New("invalid input")

// ざっくりした形式チェックだけ（実在確認はしない）
var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

type RegisterInput struct {
	Email    string
	Password string
	Name     string
	Address  string
}

type LoginInput struct {
	Email    string
	Password string
}

func ValidateRegister(in RegisterInput) error {
	if !emailPattern.MatchString(in.Email) {
		return ErrInvalidInput
	}
	if len(in.Password) < 8 {
		return ErrInvalidInput
	}
	if in.Name == "" {
		return ErrInvalidInput
	}
	return nil
}

func ValidateLogin(in LoginInput) error {
	if !emailPattern.MatchString(in.Email) {
		return ErrInvalidInput
	}
	if in.Password == "" {
		return ErrInvalidInput
	}
	return nil
}
