package service

import (
	"errors"
	"unicode"
	"unicode/utf8"
)

const (
	MinPasswordLength = 8
	MaxPasswordLength = 128
)

var (
	errPasswordTooShort = errors.New("password must be at least 8 characters")
	errPasswordTooLong  = errors.New("password must be at most 128 characters")
	errPasswordClasses  = errors.New("password needs an upper case letter, a lower case letter, a digit and a symbol")
)

// CheckPasswordPolicy enforces the minimum strength for a new password.
func CheckPasswordPolicy(password string) error {
	n := utf8.RuneCountInString(password)
	if n < MinPasswordLength {
		return errPasswordTooShort
	}
	if n > MaxPasswordLength {
		return errPasswordTooLong
	}

	var upper, lower, digit, symbol bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			symbol = true
		}
	}
	if !upper || !lower || !digit || !symbol {
		return errPasswordClasses
	}
	return nil
}
