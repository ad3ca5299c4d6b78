package account

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"math/big"
	"strings"
	"time"

	"github.com/dentscan/dentclaim/cache"
)

// OTP purposes. Each purpose has its own key space so a verification code
// cannot be replayed as a password-reset code.
const (
	PurposeVerify = "verify"
	PurposeReset  = "reset"
)

// OTPStore keeps one-time passwords in the cache. A code is consumed by the
// first successful Verify; failed attempts are counted and the code is
// burned once they exceed the limit.
type OTPStore struct {
	cache       cache.Cache
	ttl         time.Duration
	maxAttempts int
}

func NewOTPStore(c cache.Cache, ttl time.Duration, maxAttempts int) *OTPStore {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &OTPStore{cache: c, ttl: ttl, maxAttempts: maxAttempts}
}

func otpKey(purpose, subject string) string      { return "otp:" + purpose + ":" + subject }
func attemptsKey(purpose, subject string) string { return "otp_attempts:" + purpose + ":" + subject }

// Issue stores a fresh code of the given length for subject, replacing any
// earlier code and resetting the attempt counter.
func (s *OTPStore) Issue(ctx context.Context, purpose, subject string, digits int) (string, error) {
	code, err := randomDigits(digits)
	if err != nil {
		return "", err
	}
	if err := s.cache.Set(ctx, otpKey(purpose, subject), code, s.ttl); err != nil {
		return "", err
	}
	if err := s.cache.Del(ctx, attemptsKey(purpose, subject)); err != nil {
		return "", err
	}
	return code, nil
}

// Verify reports whether code matches the stored code for subject, and
// consumes it if so.
func (s *OTPStore) Verify(ctx context.Context, purpose, subject, code string) (bool, error) {
	key := otpKey(purpose, subject)
	n, err := s.cache.Incr(ctx, attemptsKey(purpose, subject), s.ttl)
	if err != nil {
		return false, err
	}
	if s.maxAttempts > 0 && n > int64(s.maxAttempts) {
		return false, s.cache.Del(ctx, key)
	}

	stored, err := s.cache.Get(ctx, key)
	if cache.IsNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if subtle.ConstantTimeCompare([]byte(stored), []byte(strings.TrimSpace(code))) != 1 {
		return false, nil
	}

	// Two concurrent verifies can both match; only the one that removes
	// the key wins.
	if _, err := s.cache.GetDel(ctx, key); err != nil {
		if cache.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	_ = s.cache.Del(ctx, attemptsKey(purpose, subject))
	return true, nil
}

func randomDigits(n int) (string, error) {
	var b strings.Builder
	b.Grow(n)
	ten := big.NewInt(10)
	for i := 0; i < n; i++ {
		d, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return "", err
		}
		b.WriteByte(byte('0' + d.Int64()))
	}
	return b.String(), nil
}
