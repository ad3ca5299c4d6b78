package rest

import (
	"net/http"

	"github.com/dentscan/dentclaim/account"
	mw "github.com/dentscan/dentclaim/middleware"
	"github.com/dentscan/dentclaim/model"
	"github.com/gin-gonic/gin"
)

// UserHandler handles mobile user REST endpoints.
type UserHandler struct {
	users *account.Users
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(users *account.Users) *UserHandler {
	return &UserHandler{users: users}
}

type registerRequest struct {
	Email    string       `json:"email" binding:"required,email"`
	Password string       `json:"password" binding:"required,strongpwd"`
	Gender   model.Gender `json:"gender" binding:"required,oneof=MALE FEMALE"`
}

// Register handles POST /api/user/register/email.
func (h *UserHandler) Register(c *gin.Context) {
	var req registerRequest
	if !bindJSON(c, &req) {
		return
	}
	u, msg, err := h.users.Register(c.Request.Context(), account.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		Gender:   req.Gender,
	})
	if err != nil {
		mw.Fail(c, err)
		return
	}
	ok(c, u, msg)
}

type emailRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// SendOTP handles PUT /api/user/send/otp/email.
func (h *UserHandler) SendOTP(c *gin.Context) {
	var req emailRequest
	if !bindJSON(c, &req) {
		return
	}
	u, err := h.users.ResendOTP(c.Request.Context(), req.Email)
	if err != nil {
		mw.Fail(c, err)
		return
	}
	ok(c, gin.H{"id": u.ID}, account.MsgOTPSent)
}

type verifyOTPRequest struct {
	ID  string `json:"id" binding:"required"`
	OTP string `json:"otp" binding:"required"`
}

// VerifyOTP handles POST /api/user/otp/verify.
func (h *UserHandler) VerifyOTP(c *gin.Context) {
	var req verifyOTPRequest
	if !bindJSON(c, &req) {
		return
	}
	u, token, err := h.users.VerifyOTP(c.Request.Context(), req.ID, req.OTP)
	if err != nil {
		mw.Fail(c, err)
		return
	}
	ok(c, gin.H{"user": u, "token": token}, account.MsgUserVerified)
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Login handles POST /api/user/login/email.
func (h *UserHandler) Login(c *gin.Context) {
	var req loginRequest
	if !bindJSON(c, &req) {
		return
	}
	u, token, err := h.users.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		mw.Fail(c, err)
		return
	}
	ok(c, gin.H{"user": u, "token": token}, account.MsgUserLoggedIn)
}

// Logout handles POST /api/user/logout.
func (h *UserHandler) Logout(c *gin.Context) {
	p := mw.GetPrincipal(c)
	if err := h.users.Logout(c.Request.Context(), p.Token); err != nil {
		mw.Fail(c, err)
		return
	}
	ok(c, nil, "Logged out successfully")
}

type changePasswordRequest struct {
	Email           string `json:"email" binding:"required,email"`
	Password        string `json:"password" binding:"required,min=8"`
	ConfirmPassword string `json:"confirmPassword" binding:"required,eqfield=Password"`
}

// UpdatePassword handles PUT /api/user/update/password.
func (h *UserHandler) UpdatePassword(c *gin.Context) {
	var req changePasswordRequest
	if !bindJSON(c, &req) {
		return
	}
	p := mw.GetPrincipal(c)
	u, err := h.users.ChangePassword(c.Request.Context(), p.ID, req.Email, req.Password)
	if err != nil {
		mw.Fail(c, err)
		return
	}
	ok(c, u, account.MsgPasswordUpdated)
}

// Profile handles GET /api/user/profile.
func (h *UserHandler) Profile(c *gin.Context) {
	u, err := h.users.Get(c.Request.Context(), mw.GetPrincipal(c).ID)
	if err != nil {
		mw.Fail(c, err)
		return
	}
	ok(c, u, "User found successfully")
}

type profileRequest struct {
	UserName string       `json:"userName" binding:"required,max=15,alphanum"`
	Gender   model.Gender `json:"gender" binding:"required,oneof=MALE FEMALE"`
}

// UpdateProfile handles PUT /api/user/profile.
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	h.updateProfile(c, mw.GetPrincipal(c).ID)
}

// EditUser handles PUT /api/user/user/edit/:id.
func (h *UserHandler) EditUser(c *gin.Context) {
	id, valid := idParam(c)
	if !valid {
		return
	}
	h.updateProfile(c, id)
}

func (h *UserHandler) updateProfile(c *gin.Context, id string) {
	var req profileRequest
	if !bindJSON(c, &req) {
		return
	}
	u, err := h.users.UpdateProfile(c.Request.Context(), id, account.ProfileInput{
		UserName: req.UserName,
		Gender:   req.Gender,
	})
	if err != nil {
		mw.Fail(c, err)
		return
	}
	ok(c, u, "User profile updated successfully")
}

type deleteRequest struct {
	Status *bool `json:"status" binding:"required"`
}

// DeleteAccount handles PUT /api/user/delete-account.
func (h *UserHandler) DeleteAccount(c *gin.Context) {
	var req deleteRequest
	if !bindJSON(c, &req) {
		return
	}
	u, err := h.users.SetDeleted(c.Request.Context(), mw.GetPrincipal(c).ID, *req.Status)
	if err != nil {
		mw.Fail(c, err)
		return
	}
	ok(c, u, "Your account has been deleted successfully")
}

// DeleteUser handles PUT /api/user/delete/:id.
func (h *UserHandler) DeleteUser(c *gin.Context) {
	id, valid := idParam(c)
	if !valid {
		return
	}
	var req deleteRequest
	if !bindJSON(c, &req) {
		return
	}
	u, err := h.users.SetDeleted(c.Request.Context(), id, *req.Status)
	if err != nil {
		mw.Fail(c, err)
		return
	}
	ok(c, u, "User account deleted successfully")
}

type tokenRequest struct {
	Token string `json:"token"`
}

// FromToken handles POST /api/user/token.
func (h *UserHandler) FromToken(c *gin.Context) {
	var req tokenRequest
	if !bindJSON(c, &req) {
		return
	}
	u, err := h.users.FromToken(c.Request.Context(), req.Token)
	if err != nil {
		mw.Fail(c, err)
		return
	}
	ok(c, u, "Token Verified")
}

// List handles GET /api/user.
func (h *UserHandler) List(c *gin.Context) {
	users, err := h.users.List(c.Request.Context())
	if err != nil {
		mw.Fail(c, err)
		return
	}
	ok(c, users, "Users found successfully")
}

// Get handles GET /api/user/:id.
func (h *UserHandler) Get(c *gin.Context) {
	id, valid := idParam(c)
	if !valid {
		return
	}
	u, err := h.users.Get(c.Request.Context(), id)
	if err != nil {
		mw.Fail(c, err)
		return
	}
	ok(c, u, "User found successfully")
}

// Purge handles DELETE /api/user/purge.
func (h *UserHandler) Purge(c *gin.Context) {
	n, err := h.users.Purge(c.Request.Context())
	if err != nil {
		mw.Fail(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"deleted": n}, "Collection dropped successfully")
}
