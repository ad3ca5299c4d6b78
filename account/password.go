package account

import (
	"errors"
	"strings"
	"unicode"

	"github.com/dentscan/dentclaim/apperr"
	"golang.org/x/crypto/bcrypt"
)

const (
	MinPasswordLen = 8
	// passwordSpecials are the characters that satisfy the special
	// character rule.
	passwordSpecials = "!@#$%^&*"

	MsgPasswordPolicy = "Password must contain at least one uppercase letter, one number, and one special character"
	MsgPasswordShort  = "Password must be at least 8 characters long"
)

// StrongPassword reports whether p satisfies the sign-up policy.
func StrongPassword(p string) bool {
	return CheckPassword(p) == nil
}

// CheckPassword enforces the sign-up policy: at least eight characters
// with an uppercase letter, a digit and one of !@#$%^&*.
func CheckPassword(p string) error {
	if len(p) < MinPasswordLen {
		return apperr.ValidationFields(MsgPasswordShort, map[string]string{"password": MsgPasswordShort})
	}
	var upper, digit, special bool
	for _, r := range p {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		case strings.ContainsRune(passwordSpecials, r):
			special = true
		}
	}
	if !upper || !digit || !special {
		return apperr.ValidationFields(MsgPasswordPolicy, map[string]string{"password": MsgPasswordPolicy})
	}
	return nil
}

func hashPassword(p string, cost int) (string, error) {
	if cost < bcrypt.MinCost {
		cost = bcrypt.DefaultCost
	}
	h, err := bcrypt.GenerateFromPassword([]byte(p), cost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", apperr.Validation("Password must be at most 72 bytes")
	}
	if err != nil {
		return "", err
	}
	return string(h), nil
}

func matchPassword(hash, p string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(p)) == nil
}
