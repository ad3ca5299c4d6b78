package rest

import (
	"strings"

	"github.com/dentscan/dentclaim/account"
	"github.com/dentscan/dentclaim/apperr"
	"github.com/dentscan/dentclaim/cache"
	"github.com/dentscan/dentclaim/claim"
	"github.com/dentscan/dentclaim/config"
	mw "github.com/dentscan/dentclaim/middleware"
	"github.com/dentscan/dentclaim/model"
	"github.com/dentscan/dentclaim/reqlog"
	"github.com/dentscan/dentclaim/scheduler"
	"github.com/dentscan/dentclaim/vehicle"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"gorm.io/gorm"
)

// Deps are the services the HTTP surface is built from.
type Deps struct {
	Config   *config.Config
	DB       *gorm.DB
	Cache    cache.Cache
	Logger   *zap.Logger
	APILog   *reqlog.Writer
	Claims   *claim.Service
	Users    *account.Users
	Admins   *account.Admins
	Vehicles *vehicle.Client
	Sched    *scheduler.Scheduler
}

// NewRouter builds the gin engine. Every request passes the response
// capture and API log stages; only routes under the API group are audited,
// so /pingServer and /uploads are never logged.
func NewRouter(d Deps) *gin.Engine {
	registerValidators()
	cfg := d.Config
	limit := cfg.Log.MaxBodyBytes

	r := gin.New()
	r.Use(
		mw.TraceID(),
		mw.Logger(d.Logger),
		mw.Capture(limit),
		mw.APILog(d.APILog, limit),
		mw.Errors(d.Logger, cfg.Server.Production()),
		mw.Recovery(d.Logger),
		mw.Timeout(cfg.Server.RequestTimeout),
	)
	r.NoRoute(func(c *gin.Context) {
		mw.Fail(c, apperr.NotFound("Route not found"))
	})

	route := strings.Trim(cfg.Server.Route, "/")
	base := "/" + route
	r.GET(base+"/pingServer", Ping)
	if cfg.Server.UploadDir != "" {
		r.Static("/uploads", cfg.Server.UploadDir)
	}

	apiMW := []gin.HandlerFunc{}
	if cfg.Security.RateLimitRPS > 0 {
		apiMW = append(apiMW, mw.RateLimit(rate.Limit(cfg.Security.RateLimitRPS), cfg.Security.RateLimitBurst))
	}
	apiMW = append(apiMW, mw.Audit(reqlog.NewRecorder(route, int64(limit))))
	api := r.Group(base, apiMW...)

	auth := mw.Auth(cfg.Security, d.Cache, account.NewPrincipalLoader(d.DB))
	staff := mw.RequireRoles(model.RoleAdmin, model.RoleSuperAdmin)
	customer := mw.RequireRoles(model.RoleCustomer)
	maintenance := mw.IPWhitelist(cfg.Server.AdminIPs)

	ch := NewClaimHandler(d.Claims, d.Logger)
	claims := api.Group("/claim", auth)
	{
		claims.POST("", ch.Create)
		claims.GET("", ch.List)
		claims.GET("/all", ch.Paginate)
		claims.PUT("/all", staff, maintenance, ch.ResetArchive)
		claims.PUT("/archives", ch.Archive)
		claims.PUT("/submit", ch.Submit)
		claims.GET("/:id", ch.Get)
		claims.PUT("/:id", ch.Update)
		claims.DELETE("/:id", ch.Delete)
	}

	uh := NewUserHandler(d.Users)
	users := api.Group("/user")
	{
		users.POST("/register/email", uh.Register)
		users.PUT("/send/otp/email", uh.SendOTP)
		users.POST("/otp/verify", uh.VerifyOTP)
		users.POST("/login/email", uh.Login)
		users.POST("/token", uh.FromToken)

		users.POST("/logout", auth, uh.Logout)
		users.PUT("/update/password", auth, customer, uh.UpdatePassword)
		users.GET("/profile", auth, customer, uh.Profile)
		users.PUT("/profile", auth, customer, uh.UpdateProfile)
		users.PUT("/delete-account", auth, customer, uh.DeleteAccount)

		users.GET("", auth, staff, uh.List)
		users.GET("/:id", auth, staff, uh.Get)
		users.PUT("/user/edit/:id", auth, staff, uh.EditUser)
		users.PUT("/delete/:id", auth, staff, uh.DeleteUser)
		users.DELETE("/purge", auth, staff, maintenance, uh.Purge)
	}

	ah := NewAdminHandler(d.Admins)
	oh := NewOpsHandler(d.Sched)
	admins := api.Group("/admin")
	{
		admins.POST("/login", ah.Login)
		admins.POST("/forgot", ah.Forgot)
		admins.POST("/otp/verify", ah.VerifyOTP)
		admins.POST("/update/password", ah.ResetPassword)

		admins.POST("/logout", auth, staff, ah.Logout)
		admins.POST("", auth, staff, ah.Create)
		admins.PUT("", auth, staff, ah.Update)
		admins.GET("", auth, staff, ah.List)
		admins.GET("/tasks", auth, staff, oh.Tasks)
		admins.GET("/:id", auth, staff, ah.Get)
		admins.DELETE("/:id", auth, staff, ah.Delete)
	}

	vh := NewVehicleHandler(d.Vehicles, d.Logger)
	vehicles := api.Group("/vehicle")
	{
		vehicles.POST("/scan-vin", vh.ScanVIN)
		vehicles.GET("/specs", vh.Specs)
	}

	return r
}
