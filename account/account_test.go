package account

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/dentscan/dentclaim/cache"
	"github.com/dentscan/dentclaim/config"
	"github.com/dentscan/dentclaim/testutil"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// outbox records OTPs instead of mailing them.
type outbox struct {
	mu   sync.Mutex
	last map[string]string
}

func (o *outbox) SendOTP(_ context.Context, to, otp string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.last == nil {
		o.last = map[string]string{}
	}
	o.last[to] = otp
	return nil
}

func (o *outbox) code(to string) string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.last[to]
}

var testSecurity = config.SecurityConfig{
	JWTSecret:      "account-test-secret",
	UserTokenTTL:   time.Hour,
	AdminTokenTTL:  time.Hour,
	BcryptCost:     bcrypt.MinCost,
	OTPTTL:         time.Minute,
	OTPMaxAttempts: 3,
	ResetWindow:    time.Minute,
}

type fixture struct {
	db     *gorm.DB
	cache  cache.Cache
	mail   *outbox
	users  *Users
	admins *Admins
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.SetupTestDB(t)
	c := testutil.SetupTestCache(t)
	box := &outbox{}
	otps := NewOTPStore(c, testSecurity.OTPTTL, testSecurity.OTPMaxAttempts)
	sessions := NewSessions(c, testSecurity.JWTSecret)
	return &fixture{
		db:     db,
		cache:  c,
		mail:   box,
		users:  NewUsers(db, otps, sessions, box, testSecurity, zap.NewNop()),
		admins: NewAdmins(db, c, otps, sessions, box, testSecurity, zap.NewNop()),
	}
}
