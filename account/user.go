// Package account manages mobile users and back-office admins: sign-up,
// OTP verification, login sessions and password resets.
package account

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dentscan/dentclaim/apperr"
	"github.com/dentscan/dentclaim/config"
	"github.com/dentscan/dentclaim/mail"
	mw "github.com/dentscan/dentclaim/middleware"
	"github.com/dentscan/dentclaim/model"
	"github.com/dentscan/dentclaim/store"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	UserOTPDigits = 5

	MsgUserExists      = "User already exists"
	MsgOTPSent         = "OTP sent on email"
	MsgUserVerified    = "User account verified successfully"
	MsgOTPInvalid      = "OTP could not verified, please try again"
	MsgBadCredentials  = "Incorrect email or password"
	MsgUserLoggedIn    = "User logged in successfully"
	MsgUserNotExist    = "User does not Exist. Please Register yourself"
	MsgPasswordUpdated = "Password updated successfully"
	MsgUserNotFound    = "User not found"
)

// RegisterInput is an email sign-up request.
type RegisterInput struct {
	Email    string
	Password string
	Gender   model.Gender
}

// ProfileInput is the editable part of a user profile.
type ProfileInput struct {
	UserName string
	Gender   model.Gender
}

// Users implements the mobile user account flows.
type Users struct {
	users    *store.Collection[model.User]
	otps     *OTPStore
	sessions *Sessions
	notifier mail.Notifier
	sec      config.SecurityConfig
	logger   *zap.Logger
	now      func() time.Time
}

func NewUsers(db *gorm.DB, otps *OTPStore, sessions *Sessions, notifier mail.Notifier, sec config.SecurityConfig, logger *zap.Logger) *Users {
	return &Users{
		users:    store.New[model.User](db),
		otps:     otps,
		sessions: sessions,
		notifier: notifier,
		sec:      sec,
		logger:   logger,
		now:      time.Now,
	}
}

func normalizeEmail(e string) string { return strings.ToLower(strings.TrimSpace(e)) }

func userNotFound(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return apperr.NotFound(MsgUserNotFound)
	}
	return err
}

// Register creates an unverified user, or reuses an existing unverified
// one, and mails it a verification code. An already verified email is
// returned unchanged with MsgUserExists.
func (s *Users) Register(ctx context.Context, in RegisterInput) (*model.User, string, error) {
	if err := CheckPassword(in.Password); err != nil {
		return nil, "", err
	}
	email := normalizeEmail(in.Email)

	u, err := s.users.FindOne(ctx, store.Filter{"email": email})
	switch {
	case err == nil && u.IsVerified:
		return u, MsgUserExists, nil
	case errors.Is(err, store.ErrNotFound):
		hash, err := hashPassword(in.Password, s.sec.BcryptCost)
		if err != nil {
			return nil, "", err
		}
		now := s.now()
		u = &model.User{
			Email:        email,
			Gender:       in.Gender,
			Platform:     model.PlatformEmail,
			PasswordHash: hash,
			LastVisit:    &now,
		}
		if err := s.users.Create(ctx, u); err != nil {
			return nil, "", err
		}
	case err != nil:
		return nil, "", err
	}

	if err := s.sendOTP(ctx, u); err != nil {
		return nil, "", err
	}
	return u, MsgOTPSent, nil
}

// ResendOTP issues a new verification code to an existing user.
func (s *Users) ResendOTP(ctx context.Context, email string) (*model.User, error) {
	u, err := s.users.FindOne(ctx, store.Filter{"email": normalizeEmail(email), "is_deleted": false})
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.Unauthorized(MsgUserNotExist)
	}
	if err != nil {
		return nil, err
	}
	if err := s.sendOTP(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *Users) sendOTP(ctx context.Context, u *model.User) error {
	code, err := s.otps.Issue(ctx, PurposeVerify, u.ID, UserOTPDigits)
	if err != nil {
		return err
	}
	// Delivery failures are logged; the user can ask for a resend.
	if err := s.notifier.SendOTP(ctx, u.Email, code); err != nil {
		s.logger.Warn("otp delivery failed", zap.String("user_id", u.ID), zap.Error(err))
	}
	return nil
}

// VerifyOTP marks the user verified when code matches and opens a session.
func (s *Users) VerifyOTP(ctx context.Context, id, code string) (*model.User, string, error) {
	ok, err := s.otps.Verify(ctx, PurposeVerify, id, code)
	if err != nil {
		return nil, "", err
	}
	if !ok {
		return nil, "", apperr.Unauthorized(MsgOTPInvalid)
	}
	u, err := s.users.UpdateByID(ctx, id, nil, map[string]any{"is_verified": true})
	if err != nil {
		return nil, "", userNotFound(err)
	}
	token, err := s.sessions.Start(ctx, u.ID, u.Role, s.sec.UserTokenTTL)
	if err != nil {
		return nil, "", err
	}
	return u, token, nil
}

// Login checks email credentials and opens a session.
func (s *Users) Login(ctx context.Context, email, password string) (*model.User, string, error) {
	u, err := s.users.FindOne(ctx, store.Filter{"email": normalizeEmail(email), "is_deleted": false})
	if errors.Is(err, store.ErrNotFound) {
		return nil, "", apperr.Unauthorized(MsgUserNotExist)
	}
	if err != nil {
		return nil, "", err
	}
	if !matchPassword(u.PasswordHash, password) {
		return nil, "", apperr.BadRequest(MsgBadCredentials)
	}
	if u, err = s.touch(ctx, u.ID); err != nil {
		return nil, "", err
	}
	token, err := s.sessions.Start(ctx, u.ID, u.Role, s.sec.UserTokenTTL)
	if err != nil {
		return nil, "", err
	}
	return u, token, nil
}

// Logout ends the session of token.
func (s *Users) Logout(ctx context.Context, token string) error {
	return s.sessions.End(ctx, token)
}

// ChangePassword sets a new password for the user owning email. Only the
// signed-in owner of the address may change it.
func (s *Users) ChangePassword(ctx context.Context, principalID, email, password string) (*model.User, error) {
	u, err := s.users.FindOne(ctx, store.Filter{"email": normalizeEmail(email), "is_deleted": false})
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("User does not exist")
	}
	if err != nil {
		return nil, err
	}
	if u.ID != principalID {
		return nil, apperr.Forbidden("You are not authorized")
	}
	if err := CheckPassword(password); err != nil {
		return nil, err
	}
	hash, err := hashPassword(password, s.sec.BcryptCost)
	if err != nil {
		return nil, err
	}
	u, err = s.users.UpdateByID(ctx, u.ID, nil, map[string]any{"password_hash": hash})
	return u, userNotFound(err)
}

// Get returns a user by id, deleted or not.
func (s *Users) Get(ctx context.Context, id string) (*model.User, error) {
	u, err := s.users.FindByID(ctx, id, nil)
	return u, userNotFound(err)
}

// List returns every user, newest first.
func (s *Users) List(ctx context.Context) ([]model.User, error) {
	return s.users.Find(ctx, nil, store.FindOptions{})
}

// UpdateProfile edits the profile of a live user.
func (s *Users) UpdateProfile(ctx context.Context, id string, in ProfileInput) (*model.User, error) {
	u, err := s.users.UpdateByID(ctx, id, store.Filter{"is_deleted": false}, map[string]any{
		"user_name": strings.TrimSpace(in.UserName),
		"gender":    in.Gender,
	})
	return u, userNotFound(err)
}

// SetDeleted soft-deletes (or restores) a user.
func (s *Users) SetDeleted(ctx context.Context, id string, deleted bool) (*model.User, error) {
	patch := map[string]any{"is_deleted": deleted, "delete_date": nil}
	if deleted {
		patch["delete_date"] = s.now()
	}
	u, err := s.users.UpdateByID(ctx, id, nil, patch)
	return u, userNotFound(err)
}

// FromToken resolves a signed token to its user and records the visit.
func (s *Users) FromToken(ctx context.Context, token string) (*model.User, error) {
	if strings.TrimSpace(token) == "" {
		return nil, apperr.NotFound("Token not found")
	}
	claims, err := mw.ParseToken(token, s.sec.JWTSecret)
	if err != nil {
		return nil, apperr.Unauthorized("invalid token")
	}
	return s.touch(ctx, claims.Subject)
}

func (s *Users) touch(ctx context.Context, id string) (*model.User, error) {
	u, err := s.users.UpdateByID(ctx, id, store.Filter{"is_deleted": false}, map[string]any{"last_visit": s.now()})
	return u, userNotFound(err)
}

// Purge removes every user row.
func (s *Users) Purge(ctx context.Context) (int64, error) {
	n, err := s.users.DeleteWhere(ctx, nil)
	if err == nil {
		s.logger.Warn("users purged", zap.Int64("rows", n))
	}
	return n, err
}
