package account

import (
	"context"
	"errors"

	"github.com/dentscan/dentclaim/apperr"
	mw "github.com/dentscan/dentclaim/middleware"
	"github.com/dentscan/dentclaim/model"
	"github.com/dentscan/dentclaim/store"
	"gorm.io/gorm"
)

const (
	MsgAccountMissing = "Couldn't find your account, please create an account"
	MsgAccountDeleted = "Your account is deleted. Register new account"
)

// NewPrincipalLoader resolves token subjects against admins for admin
// roles and users for customers. A token whose role no longer matches the
// stored account is rejected.
func NewPrincipalLoader(db *gorm.DB) mw.PrincipalLoader {
	users := store.New[model.User](db)
	admins := store.New[model.Admin](db)

	return func(ctx context.Context, subject string, role model.Role) (*mw.Principal, error) {
		switch role {
		case model.RoleAdmin, model.RoleSuperAdmin:
			a, err := admins.FindByID(ctx, subject, nil)
			if err != nil {
				return nil, missing(err)
			}
			if a.IsDeleted {
				return nil, apperr.Forbidden(MsgAccountDeleted)
			}
			if a.Role != role {
				return nil, apperr.Unauthorized("role changed, please sign in again")
			}
			return &mw.Principal{ID: a.ID, Role: a.Role, Email: a.Email, Name: a.FullName}, nil
		case model.RoleCustomer:
			u, err := users.FindByID(ctx, subject, nil)
			if err != nil {
				return nil, missing(err)
			}
			if u.IsDeleted {
				return nil, apperr.Forbidden(MsgAccountDeleted)
			}
			return &mw.Principal{ID: u.ID, Role: u.Role, Email: u.Email, Name: u.UserName}, nil
		default:
			return nil, apperr.Unauthorized("invalid token")
		}
	}
}

func missing(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return apperr.Unauthorized(MsgAccountMissing)
	}
	return err
}
