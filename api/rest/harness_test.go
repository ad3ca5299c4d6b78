package rest_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dentscan/dentclaim/account"
	"github.com/dentscan/dentclaim/api/rest"
	"github.com/dentscan/dentclaim/claim"
	"github.com/dentscan/dentclaim/config"
	"github.com/dentscan/dentclaim/model"
	"github.com/dentscan/dentclaim/reqlog"
	"github.com/dentscan/dentclaim/scheduler"
	"github.com/dentscan/dentclaim/testutil"
	"github.com/dentscan/dentclaim/vehicle"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/crypto/bcrypt"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const (
	customerPassword = "Passw0rd!"
	staffPassword    = "Adm1n!pass"
)

// outbox captures OTPs instead of mailing them.
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

type harness struct {
	router   *gin.Engine
	apiLogs  *observer.ObservedLogs
	mail     *outbox
	users    *account.Users
	admins   *account.Admins
	vpicHits *atomic.Int32
	vpic     atomic.Value // http.HandlerFunc
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	cfg := config.Default()
	cfg.Server.UploadDir = ""
	cfg.Server.Env = "production"
	cfg.Security.JWTSecret = "rest-test-secret"
	cfg.Security.BcryptCost = bcrypt.MinCost
	cfg.Security.RateLimitRPS = 0

	h := &harness{mail: &outbox{}, vpicHits: &atomic.Int32{}}
	h.vpic.Store(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"Count":1,"Results":[{"Make":"HONDA","Model":"Accord","VIN":"1HGCM82633A004352"}]}`))
	}))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.vpicHits.Add(1)
		h.vpic.Load().(http.HandlerFunc)(w, r)
	}))
	t.Cleanup(srv.Close)
	cfg.Vehicle.BaseURL = srv.URL
	cfg.Vehicle.BackupURL = ""
	cfg.Vehicle.CacheTTL = 0

	db := testutil.SetupTestDB(t)
	c := testutil.SetupTestCache(t)
	otps := account.NewOTPStore(c, cfg.Security.OTPTTL, cfg.Security.OTPMaxAttempts)
	sessions := account.NewSessions(c, cfg.Security.JWTSecret)
	h.users = account.NewUsers(db, otps, sessions, h.mail, cfg.Security, zap.NewNop())
	h.admins = account.NewAdmins(db, c, otps, sessions, h.mail, cfg.Security, zap.NewNop())

	sched := scheduler.New(zap.NewNop())
	sched.AddTicker("api_log_retention", time.Hour, func(context.Context) error { return nil })
	t.Cleanup(sched.Stop)

	core, logs := observer.New(zapcore.DebugLevel)
	h.apiLogs = logs
	h.router = rest.NewRouter(rest.Deps{
		Config:   cfg,
		DB:       db,
		Cache:    c,
		Logger:   zap.NewNop(),
		APILog:   reqlog.NewWriter(zap.New(core), cfg.Server.Port),
		Claims:   claim.NewService(db, zap.NewNop()),
		Users:    h.users,
		Admins:   h.admins,
		Vehicles: vehicle.NewClient(cfg.Vehicle, c, zap.NewNop()),
		Sched:    sched,
	})
	return h
}

func (h *harness) do(method, target, token, body string) *httptest.ResponseRecorder {
	contentType := ""
	if body != "" {
		contentType = "application/json"
	}
	return h.doAs(method, target, token, contentType, body)
}

// doAs sends body with the given Content-Type, or none when it is empty.
func (h *harness) doAs(method, target, token, contentType, body string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	return w
}

// staffToken creates an admin with role and returns a session token.
func (h *harness) staffToken(t *testing.T, email string, role model.Role) string {
	t.Helper()
	ctx := context.Background()
	_, err := h.admins.Create(ctx, account.AdminInput{Email: email, Password: staffPassword, Role: role})
	require.NoError(t, err)
	_, token, err := h.admins.Login(ctx, email, staffPassword, "127.0.0.1")
	require.NoError(t, err)
	return token
}

// customerToken registers and verifies a mobile user.
func (h *harness) customerToken(t *testing.T, email string) (string, *model.User) {
	t.Helper()
	ctx := context.Background()
	u, _, err := h.users.Register(ctx, account.RegisterInput{Email: email, Password: customerPassword, Gender: model.GenderMale})
	require.NoError(t, err)
	u, token, err := h.users.VerifyOTP(ctx, u.ID, h.mail.code(email))
	require.NoError(t, err)
	return token, u
}

type successBody struct {
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

type errorBody struct {
	Result string            `json:"result"`
	Code   int               `json:"code"`
	Desc   string            `json:"desc"`
	Fields map[string]string `json:"fields"`
	Stack  *string           `json:"stack"`
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func dataOf[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(decode[successBody](t, w).Data, &v))
	return v
}
