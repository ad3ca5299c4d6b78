package rest

import (
	"net/http"

	"github.com/dentscan/dentclaim/account"
	"github.com/dentscan/dentclaim/apperr"
	mw "github.com/dentscan/dentclaim/middleware"
	"github.com/dentscan/dentclaim/model"
	"github.com/gin-gonic/gin"
)

// AdminHandler handles back-office account endpoints.
type AdminHandler struct {
	admins *account.Admins
}

// NewAdminHandler creates an AdminHandler.
func NewAdminHandler(admins *account.Admins) *AdminHandler {
	return &AdminHandler{admins: admins}
}

// Login handles POST /api/admin/login.
func (h *AdminHandler) Login(c *gin.Context) {
	var req loginRequest
	if !bindJSON(c, &req) {
		return
	}
	a, token, err := h.admins.Login(c.Request.Context(), req.Email, req.Password, c.ClientIP())
	if err != nil {
		mw.Fail(c, err)
		return
	}
	ok(c, gin.H{"user": a, "token": token}, account.MsgAdminLoggedIn)
}

// Logout handles POST /api/admin/logout.
func (h *AdminHandler) Logout(c *gin.Context) {
	if err := h.admins.Logout(c.Request.Context(), mw.GetPrincipal(c).Token); err != nil {
		mw.Fail(c, err)
		return
	}
	ok(c, nil, "Logged out successfully")
}

type createAdminRequest struct {
	Email    string     `json:"email" binding:"required,email"`
	Password string     `json:"password" binding:"required,min=8"`
	FullName string     `json:"fullName"`
	Phone    string     `json:"phone"`
	Role     model.Role `json:"role" binding:"omitempty,oneof=ADMIN SUPER_ADMIN"`
}

// Create handles POST /api/admin. Only a SUPER_ADMIN may create another
// SUPER_ADMIN.
func (h *AdminHandler) Create(c *gin.Context) {
	var req createAdminRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.Role == model.RoleSuperAdmin && mw.GetPrincipal(c).Role != model.RoleSuperAdmin {
		mw.Fail(c, apperr.Forbidden("You are not authorized"))
		return
	}
	a, err := h.admins.Create(c.Request.Context(), account.AdminInput{
		Email:    req.Email,
		Password: req.Password,
		FullName: req.FullName,
		Phone:    req.Phone,
		Role:     req.Role,
	})
	if err != nil {
		mw.Fail(c, err)
		return
	}
	respond(c, http.StatusCreated, a, MsgRecordSaved)
}

type updateAdminRequest struct {
	Email    *string `json:"email" binding:"omitempty,email"`
	Password *string `json:"password" binding:"omitempty,min=8"`
	FullName *string `json:"fullName"`
	Phone    *string `json:"phone"`
}

// Update handles PUT /api/admin. Admins edit their own record.
func (h *AdminHandler) Update(c *gin.Context) {
	var req updateAdminRequest
	if !bindJSON(c, &req) {
		return
	}
	a, err := h.admins.Update(c.Request.Context(), mw.GetPrincipal(c).ID, account.AdminChanges{
		Email:    req.Email,
		Password: req.Password,
		FullName: req.FullName,
		Phone:    req.Phone,
	})
	if err != nil {
		mw.Fail(c, err)
		return
	}
	ok(c, a, MsgRecordUpdated)
}

type listAdminsQuery struct {
	Role model.Role `form:"role" binding:"omitempty,oneof=ADMIN SUPER_ADMIN"`
}

// List handles GET /api/admin.
func (h *AdminHandler) List(c *gin.Context) {
	if !rejectUnknownQuery(c, "role") {
		return
	}
	var q listAdminsQuery
	if !bindQuery(c, &q) {
		return
	}
	admins, err := h.admins.List(c.Request.Context(), q.Role)
	if err != nil {
		mw.Fail(c, err)
		return
	}
	ok(c, admins, MsgRecordFetched)
}

// Get handles GET /api/admin/:id.
func (h *AdminHandler) Get(c *gin.Context) {
	id, valid := idParam(c)
	if !valid {
		return
	}
	a, err := h.admins.Get(c.Request.Context(), id)
	if err != nil {
		mw.Fail(c, err)
		return
	}
	ok(c, a, MsgRecordFetched)
}

// Delete handles DELETE /api/admin/:id.
func (h *AdminHandler) Delete(c *gin.Context) {
	id, valid := idParam(c)
	if !valid {
		return
	}
	a, err := h.admins.Delete(c.Request.Context(), id)
	if err != nil {
		mw.Fail(c, err)
		return
	}
	ok(c, a, MsgRecordDeleted)
}

// Forgot handles POST /api/admin/forgot.
func (h *AdminHandler) Forgot(c *gin.Context) {
	var req emailRequest
	if !bindJSON(c, &req) {
		return
	}
	id, err := h.admins.Forgot(c.Request.Context(), req.Email)
	if err != nil {
		mw.Fail(c, err)
		return
	}
	ok(c, gin.H{"userID": id}, account.MsgAdminOTPSent)
}

type adminOTPRequest struct {
	UserID string `json:"userID" binding:"required"`
	OTP    string `json:"otp" binding:"required"`
}

// VerifyOTP handles POST /api/admin/otp/verify.
func (h *AdminHandler) VerifyOTP(c *gin.Context) {
	var req adminOTPRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.admins.VerifyResetOTP(c.Request.Context(), req.UserID, req.OTP); err != nil {
		mw.Fail(c, err)
		return
	}
	ok(c, nil, account.MsgOTPVerified)
}

type resetPasswordRequest struct {
	UserID          string `json:"userID" binding:"required"`
	Password        string `json:"password" binding:"required,min=8"`
	ConfirmPassword string `json:"confirmPassword" binding:"required,eqfield=Password"`
}

// ResetPassword handles POST /api/admin/update/password.
func (h *AdminHandler) ResetPassword(c *gin.Context) {
	var req resetPasswordRequest
	if !bindJSON(c, &req) {
		return
	}
	a, err := h.admins.ResetPassword(c.Request.Context(), req.UserID, req.Password)
	if err != nil {
		mw.Fail(c, err)
		return
	}
	respond(c, http.StatusCreated, a, account.MsgPasswordUpdated)
}
