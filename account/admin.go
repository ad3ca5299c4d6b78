package account

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dentscan/dentclaim/apperr"
	"github.com/dentscan/dentclaim/cache"
	"github.com/dentscan/dentclaim/config"
	"github.com/dentscan/dentclaim/mail"
	"github.com/dentscan/dentclaim/model"
	"github.com/dentscan/dentclaim/store"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	AdminOTPDigits = 6

	MsgAdminNotExist     = "User Not Exist. Please Register yourself"
	MsgIncorrectPassword = "Incorrect password"
	MsgAdminLoggedIn     = "Logged in successfully"
	MsgAdminExists       = "Admin already exists"
	MsgAdminNotFound     = "Admin not found"
	MsgNoAccountForEmail = "Couldn't find your account with this email"
	MsgAdminOTPSent      = "OTP sent successfully"
	MsgInvalidOTP        = "Invalid OTP"
	MsgOTPVerified       = "OTP verify successfully"
	MsgResetNotAllowed   = "Verify the OTP before resetting the password"
)

// AdminInput creates an admin.
type AdminInput struct {
	Email    string
	Password string
	FullName string
	Phone    string
	Role     model.Role
}

// AdminChanges is a partial admin update; nil fields are left untouched.
type AdminChanges struct {
	Email    *string
	Password *string
	FullName *string
	Phone    *string
}

// Admins implements the back-office account flows.
type Admins struct {
	admins   *store.Collection[model.Admin]
	cache    cache.Cache
	otps     *OTPStore
	sessions *Sessions
	notifier mail.Notifier
	sec      config.SecurityConfig
	logger   *zap.Logger
	now      func() time.Time
}

func NewAdmins(db *gorm.DB, c cache.Cache, otps *OTPStore, sessions *Sessions, notifier mail.Notifier, sec config.SecurityConfig, logger *zap.Logger) *Admins {
	return &Admins{
		admins:   store.New[model.Admin](db),
		cache:    c,
		otps:     otps,
		sessions: sessions,
		notifier: notifier,
		sec:      sec,
		logger:   logger,
		now:      time.Now,
	}
}

var liveAdmin = store.Filter{"is_deleted": false}

func resetKey(adminID string) string { return "reset:" + adminID }

func adminNotFound(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return apperr.NotFound(MsgAdminNotFound)
	}
	return err
}

func (s *Admins) findByEmail(ctx context.Context, email string) (*model.Admin, error) {
	return s.admins.FindOne(ctx, store.Filter{"email": normalizeEmail(email), "is_deleted": false})
}

// Login checks admin credentials, stamps the login and opens a session.
func (s *Admins) Login(ctx context.Context, email, password, ip string) (*model.Admin, string, error) {
	a, err := s.findByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return nil, "", apperr.BadRequest(MsgAdminNotExist)
	}
	if err != nil {
		return nil, "", err
	}
	if !matchPassword(a.PasswordHash, password) {
		return nil, "", apperr.BadRequest(MsgIncorrectPassword)
	}
	a, err = s.admins.UpdateByID(ctx, a.ID, nil, map[string]any{
		"last_login_at": s.now(),
		"last_login_ip": ip,
	})
	if err != nil {
		return nil, "", adminNotFound(err)
	}
	token, err := s.sessions.Start(ctx, a.ID, a.Role, s.sec.AdminTokenTTL)
	if err != nil {
		return nil, "", err
	}
	return a, token, nil
}

// Logout ends the session of token.
func (s *Admins) Logout(ctx context.Context, token string) error {
	return s.sessions.End(ctx, token)
}

// Create adds an admin. An existing email, deleted or not, is a conflict.
func (s *Admins) Create(ctx context.Context, in AdminInput) (*model.Admin, error) {
	email := normalizeEmail(in.Email)
	if _, err := s.admins.FindOne(ctx, store.Filter{"email": email}); err == nil {
		return nil, apperr.Conflict(MsgAdminExists)
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}
	hash, err := hashPassword(in.Password, s.sec.BcryptCost)
	if err != nil {
		return nil, err
	}
	a := &model.Admin{
		Email:        email,
		FullName:     strings.TrimSpace(in.FullName),
		Phone:        in.Phone,
		PasswordHash: hash,
		Role:         in.Role,
	}
	if err := s.admins.Create(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// Update edits a live admin.
func (s *Admins) Update(ctx context.Context, id string, ch AdminChanges) (*model.Admin, error) {
	patch := map[string]any{}
	if ch.Email != nil {
		patch["email"] = normalizeEmail(*ch.Email)
	}
	if ch.FullName != nil {
		patch["full_name"] = strings.TrimSpace(*ch.FullName)
	}
	if ch.Phone != nil {
		patch["phone"] = *ch.Phone
	}
	if ch.Password != nil {
		hash, err := hashPassword(*ch.Password, s.sec.BcryptCost)
		if err != nil {
			return nil, err
		}
		patch["password_hash"] = hash
	}
	a, err := s.admins.UpdateByID(ctx, id, liveAdmin, patch)
	return a, adminNotFound(err)
}

// Get returns a live admin.
func (s *Admins) Get(ctx context.Context, id string) (*model.Admin, error) {
	a, err := s.admins.FindByID(ctx, id, liveAdmin)
	return a, adminNotFound(err)
}

// List returns live admins, newest first, optionally restricted to a role.
func (s *Admins) List(ctx context.Context, role model.Role) ([]model.Admin, error) {
	f := store.Filter{"is_deleted": false}
	if role != "" {
		f["role"] = role
	}
	return s.admins.Find(ctx, f, store.FindOptions{})
}

// Delete soft-deletes an admin.
func (s *Admins) Delete(ctx context.Context, id string) (*model.Admin, error) {
	a, err := s.admins.UpdateByID(ctx, id, liveAdmin, map[string]any{
		"is_deleted":  true,
		"delete_date": s.now(),
	})
	return a, adminNotFound(err)
}

// Forgot mails a password-reset code to the admin owning email and
// returns the admin's id.
func (s *Admins) Forgot(ctx context.Context, email string) (string, error) {
	a, err := s.findByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return "", apperr.BadRequest(MsgNoAccountForEmail)
	}
	if err != nil {
		return "", err
	}
	code, err := s.otps.Issue(ctx, PurposeReset, a.ID, AdminOTPDigits)
	if err != nil {
		return "", err
	}
	if err := s.notifier.SendOTP(ctx, a.Email, code); err != nil {
		s.logger.Warn("otp delivery failed", zap.String("admin_id", a.ID), zap.Error(err))
	}
	return a.ID, nil
}

// VerifyResetOTP consumes the reset code and opens the password reset
// window for the admin.
func (s *Admins) VerifyResetOTP(ctx context.Context, adminID, code string) error {
	ok, err := s.otps.Verify(ctx, PurposeReset, adminID, code)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.BadRequest(MsgInvalidOTP)
	}
	return s.cache.Set(ctx, resetKey(adminID), "1", s.sec.ResetWindow)
}

// ResetPassword sets a new password inside an open reset window. The
// window closes on use.
func (s *Admins) ResetPassword(ctx context.Context, adminID, password string) (*model.Admin, error) {
	if _, err := s.cache.GetDel(ctx, resetKey(adminID)); err != nil {
		if cache.IsNotFound(err) {
			return nil, apperr.Forbidden(MsgResetNotAllowed)
		}
		return nil, err
	}
	hash, err := hashPassword(password, s.sec.BcryptCost)
	if err != nil {
		return nil, err
	}
	a, err := s.admins.UpdateByID(ctx, adminID, liveAdmin, map[string]any{"password_hash": hash})
	return a, adminNotFound(err)
}

// Seed creates the configured default admin if no admin has its email.
func (s *Admins) Seed(ctx context.Context, cfg config.AdminConfig) (bool, error) {
	if cfg.Email == "" || cfg.Password == "" {
		return false, nil
	}
	_, err := s.Create(ctx, AdminInput{
		Email:    cfg.Email,
		Password: cfg.Password,
		FullName: cfg.FullName,
		Role:     model.RoleAdmin,
	})
	if apperr.IsKind(err, apperr.KindConflict) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	s.logger.Info("default admin created", zap.String("email", normalizeEmail(cfg.Email)))
	return true, nil
}
