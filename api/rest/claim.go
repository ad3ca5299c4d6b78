package rest

import (
	"net/http"

	"github.com/dentscan/dentclaim/claim"
	mw "github.com/dentscan/dentclaim/middleware"
	"github.com/dentscan/dentclaim/model"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	MsgRecordSaved   = "Record saved successfully"
	MsgRecordUpdated = "Record update successfully"
	MsgRecordFetched = "Record fetch successfully"
	MsgRecordDeleted = "Record delete successfully"
)

// ClaimHandler handles claim REST endpoints.
type ClaimHandler struct {
	svc    *claim.Service
	logger *zap.Logger
}

// NewClaimHandler creates a new ClaimHandler.
func NewClaimHandler(svc *claim.Service, logger *zap.Logger) *ClaimHandler {
	return &ClaimHandler{svc: svc, logger: logger}
}

type vehicleRequest struct {
	OwnerName          string `json:"ownerName" binding:"required"`
	OwnerNumber        string `json:"ownerNumber" binding:"required"`
	OwnerAddressOne    string `json:"ownerAddressOne" binding:"required"`
	OwnerAddressTwo    string `json:"ownerAddressTwo" binding:"required"`
	City               string `json:"city" binding:"required"`
	State              string `json:"state" binding:"required"`
	Zip                string `json:"zip" binding:"required"`
	LocationName       string `json:"locationName" binding:"required"`
	LocationNumber     string `json:"locationNumber" binding:"required"`
	LocationAddressOne string `json:"locationAddressOne" binding:"required"`
	LocationAddressTwo string `json:"locationAddressTwo" binding:"required"`
	LocationCity       string `json:"locationCity" binding:"required"`
	LocationState      string `json:"locationState" binding:"required"`
	LocationZip        string `json:"locationZip" binding:"required"`
	Make               string `json:"make" binding:"required"`
	Model              string `json:"model" binding:"required"`
	Year               string `json:"year" binding:"required"`
	Color              string `json:"color" binding:"required"`
	PlateNumber        string `json:"plateNumber" binding:"required"`
	VIN                string `json:"vin" binding:"required"`
}

func (v vehicleRequest) toModel() model.Vehicle {
	return model.Vehicle(v)
}

type createClaimRequest struct {
	Company     string         `json:"company" binding:"required"`
	ClaimNumber string         `json:"claimNumber" binding:"required"`
	Vehicle     vehicleRequest `json:"vehicle"`
}

// Create handles POST /api/claim.
func (h *ClaimHandler) Create(c *gin.Context) {
	var req createClaimRequest
	if !bindJSON(c, &req) {
		return
	}
	cl := &model.Claim{
		Company:     req.Company,
		ClaimNumber: req.ClaimNumber,
		Vehicle:     req.Vehicle.toModel(),
	}
	if err := h.svc.Create(c.Request.Context(), cl); err != nil {
		mw.Fail(c, err)
		return
	}
	respond(c, http.StatusCreated, cl, MsgRecordSaved)
}

type updateClaimRequest struct {
	Company     *string            `json:"company"`
	ClaimNumber *string            `json:"claimNumber"`
	Vehicle     *model.Vehicle     `json:"vehicle"`
	Status      *model.ClaimStatus `json:"status" binding:"omitempty,oneof=PENDING ON_GOING APPROVE REJECT ARCHIVE"`
}

// Update handles PUT /api/claim/:id.
func (h *ClaimHandler) Update(c *gin.Context) {
	id, valid := idParam(c)
	if !valid {
		return
	}
	var req updateClaimRequest
	if !bindJSON(c, &req) {
		return
	}
	cl, err := h.svc.Update(c.Request.Context(), id, claim.Changes{
		Company:     req.Company,
		ClaimNumber: req.ClaimNumber,
		Vehicle:     req.Vehicle,
		Status:      req.Status,
	})
	if err != nil {
		mw.Fail(c, err)
		return
	}
	respond(c, http.StatusOK, cl, MsgRecordUpdated)
}

type listClaimsQuery struct {
	Status      model.ClaimStatus `form:"status"`
	IsArchive   *bool             `form:"isArchive"`
	Company     string            `form:"company"`
	ClaimNumber string            `form:"claimNumber"`
}

func (q listClaimsQuery) filter() claim.Filter {
	return claim.Filter{
		Status:      q.Status,
		IsArchive:   q.IsArchive,
		Company:     q.Company,
		ClaimNumber: q.ClaimNumber,
	}
}

// List handles GET /api/claim.
func (h *ClaimHandler) List(c *gin.Context) {
	if !rejectUnknownQuery(c, "status", "isArchive", "company", "claimNumber") {
		return
	}
	var q listClaimsQuery
	if !bindQuery(c, &q) {
		return
	}
	claims, err := h.svc.List(c.Request.Context(), q.filter())
	if err != nil {
		mw.Fail(c, err)
		return
	}
	respond(c, http.StatusOK, claims, MsgRecordFetched)
}

// Get handles GET /api/claim/:id.
func (h *ClaimHandler) Get(c *gin.Context) {
	id, valid := idParam(c)
	if !valid {
		return
	}
	cl, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		mw.Fail(c, err)
		return
	}
	respond(c, http.StatusOK, cl, MsgRecordFetched)
}

// Delete handles DELETE /api/claim/:id.
func (h *ClaimHandler) Delete(c *gin.Context) {
	id, valid := idParam(c)
	if !valid {
		return
	}
	cl, err := h.svc.Delete(c.Request.Context(), id)
	if err != nil {
		mw.Fail(c, err)
		return
	}
	respond(c, http.StatusOK, cl, MsgRecordDeleted)
}

type pageQuery struct {
	listClaimsQuery
	Limit      int `form:"limit"`
	PageNumber int `form:"pageNumber"`
}

type pageResponse struct {
	Total   int64         `json:"total"`
	IsNext  bool          `json:"isNext"`
	Data    []model.Claim `json:"data"`
	Message string        `json:"message"`
}

// Paginate handles GET /api/claim/all?limit=&pageNumber=.
func (h *ClaimHandler) Paginate(c *gin.Context) {
	if !rejectUnknownQuery(c, "limit", "pageNumber", "status", "isArchive", "company", "claimNumber") {
		return
	}
	var q pageQuery
	if !bindQuery(c, &q) {
		return
	}
	page, err := h.svc.Paginate(c.Request.Context(), q.filter(), q.Limit, q.PageNumber)
	if err != nil {
		mw.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, pageResponse{
		Total:   page.Total,
		IsNext:  page.IsNext,
		Data:    page.Data,
		Message: MsgRecordFetched,
	})
}

type archiveRequest struct {
	IDs       []string `json:"ids" binding:"required"`
	IsArchive *bool    `json:"isArchive" binding:"required"`
}

type archiveResponse struct {
	Matched  int64 `json:"matchedCount"`
	Modified int64 `json:"modifiedCount"`
}

// Archive handles PUT /api/claim/archives.
func (h *ClaimHandler) Archive(c *gin.Context) {
	var req archiveRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.svc.Archive(c.Request.Context(), req.IDs, *req.IsArchive)
	if err != nil {
		mw.Fail(c, err)
		return
	}
	respond(c, http.StatusOK, archiveResponse{Matched: res.Matched, Modified: res.Modified}, res.Message())
}

// ResetArchive handles PUT /api/claim/all.
func (h *ClaimHandler) ResetArchive(c *gin.Context) {
	n, err := h.svc.ResetArchive(c.Request.Context())
	if err != nil {
		mw.Fail(c, err)
		return
	}
	h.logger.Info("claim archive flags reset", zap.Int64("rows", n))
	respond(c, http.StatusOK, archiveResponse{Matched: n, Modified: n}, MsgRecordUpdated)
}

type dentRequest struct {
	Title         string          `json:"title" binding:"required"`
	SeverityClass model.DentClass `json:"severityClass" binding:"required,oneof=VERY_LIGHT LIGHT MODERATE MEDIUM HEAVY"`
	Size          model.DentSize  `json:"size" binding:"required,oneof=DIME NICKEL QUARTER HALF"`
	Price         *float64        `json:"price" binding:"required"`
	Images        []string        `json:"images" binding:"required,min=1,dive,required"`
}

type submitRequest struct {
	ClaimID  string        `json:"claimID" binding:"required"`
	DentList []dentRequest `json:"dentList" binding:"dive"`
}

func (r submitRequest) dents() []model.DentRecord {
	out := make([]model.DentRecord, 0, len(r.DentList))
	for _, d := range r.DentList {
		out = append(out, model.DentRecord{
			Title:    d.Title,
			DentType: d.SeverityClass,
			DentSize: d.Size,
			Price:    *d.Price,
			Images:   d.Images,
		})
	}
	return out
}

// Submit handles PUT /api/claim/submit. A claim that is no longer PENDING
// is returned unchanged with a 200.
func (h *ClaimHandler) Submit(c *gin.Context) {
	var req submitRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.svc.Submit(c.Request.Context(), req.ClaimID, req.dents())
	if err != nil {
		mw.Fail(c, err)
		return
	}
	respond(c, http.StatusOK, res.Claim, res.Message())
}
