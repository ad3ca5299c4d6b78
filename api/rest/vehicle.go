package rest

import (
	"github.com/dentscan/dentclaim/apperr"
	mw "github.com/dentscan/dentclaim/middleware"
	"github.com/dentscan/dentclaim/reqlog"
	"github.com/dentscan/dentclaim/vehicle"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// VehicleHandler proxies vehicle lookups to vPIC.
type VehicleHandler struct {
	client *vehicle.Client
	logger *zap.Logger
}

// NewVehicleHandler creates a VehicleHandler.
func NewVehicleHandler(client *vehicle.Client, logger *zap.Logger) *VehicleHandler {
	return &VehicleHandler{client: client, logger: logger}
}

type scanVINRequest struct {
	VIN string `json:"vin" binding:"required,len=17"`
}

// ScanVIN handles POST /api/vehicle/scan-vin.
func (h *VehicleHandler) ScanVIN(c *gin.Context) {
	var req scanVINRequest
	if !bindJSON(c, &req) {
		return
	}
	fields := []zap.Field{zap.String("vin", vehicle.NormalizeVIN(req.VIN))}
	if ctx, ok := reqlog.From(c); ok {
		fields = append(fields, zap.String("requestId", ctx.RequestID))
	}

	result, err := h.client.DecodeVIN(c.Request.Context(), req.VIN)
	if err != nil {
		h.logger.Error("VIN_SCAN_ERROR", append(fields, zap.Error(err))...)
		mw.Fail(c, err)
		return
	}
	h.logger.Info("VIN_SCAN", append(fields, zap.Any("result", result))...)
	ok(c, result, vehicle.MsgScanned)
}

type specsQuery struct {
	Make string `form:"make" binding:"required"`
	Year int    `form:"year" binding:"required,gte=1981"`
}

// Specs handles GET /api/vehicle/specs?make=&year=.
func (h *VehicleHandler) Specs(c *gin.Context) {
	var q specsQuery
	if !bindQuery(c, &q) {
		return
	}
	models, err := h.client.Models(c.Request.Context(), q.Make, q.Year)
	if err != nil {
		if !apperr.IsKind(err, apperr.KindValidation) {
			h.logger.Warn("vehicle specs lookup failed", zap.String("make", q.Make), zap.Int("year", q.Year), zap.Error(err))
		}
		mw.Fail(c, err)
		return
	}
	ok(c, models, vehicle.MsgSpecsFound)
}
