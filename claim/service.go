// Package claim implements the claim lifecycle: CRUD, pagination,
// archival and the one-way PENDING to SUBMITTED transition.
package claim

import (
	"context"
	"errors"
	"time"

	"github.com/dentscan/dentclaim/apperr"
	"github.com/dentscan/dentclaim/model"
	"github.com/dentscan/dentclaim/store"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	MsgSubmitted        = "Claim submit successfully"
	MsgAlreadySubmitted = "Claim already submitted"
	MsgNotFound         = "Claim not found"
)

// Filter is the allow-listed set of claim list predicates.
// Soft-deleted claims are always excluded.
type Filter struct {
	Status      model.ClaimStatus
	IsArchive   *bool
	Company     string
	ClaimNumber string
}

func (f Filter) predicates() store.Filter {
	out := store.Filter{"is_deleted": false}
	if f.Status != "" {
		out["status"] = f.Status
	}
	if f.IsArchive != nil {
		out["is_archive"] = *f.IsArchive
	}
	if f.Company != "" {
		out["company"] = f.Company
	}
	if f.ClaimNumber != "" {
		out["claim_number"] = f.ClaimNumber
	}
	return out
}

// Page is one window of claims plus the total-aware next flag.
type Page struct {
	Total  int64         `json:"total"`
	IsNext bool          `json:"isNext"`
	Data   []model.Claim `json:"data"`
	Window Window        `json:"-"`
}

// ArchiveResult reports a bulk archive toggle.
type ArchiveResult struct {
	Requested int
	Matched   int64
	Modified  int64
	IsArchive bool
}

// Message renders the client-facing archive confirmation.
func (r ArchiveResult) Message() string {
	noun := "Claim"
	if r.Requested > 1 {
		noun = "Claims"
	}
	verb := "Unarchive"
	if r.IsArchive {
		verb = "Archived"
	}
	return noun + " " + verb + " successfully"
}

// SubmitResult carries the claim after a submit attempt and whether this
// call performed the transition.
type SubmitResult struct {
	Claim     *model.Claim
	Submitted bool
}

func (r SubmitResult) Message() string {
	if r.Submitted {
		return MsgSubmitted
	}
	return MsgAlreadySubmitted
}

// Changes is a partial claim update; nil fields are left untouched.
type Changes struct {
	Company     *string
	ClaimNumber *string
	Vehicle     *model.Vehicle
	Status      *model.ClaimStatus
	DentInfo    []model.DentRecord
}

func (c Changes) patch() map[string]any {
	p := map[string]any{}
	if c.Company != nil {
		p["company"] = *c.Company
	}
	if c.ClaimNumber != nil {
		p["claim_number"] = *c.ClaimNumber
	}
	if c.Vehicle != nil {
		v := c.Vehicle
		for col, val := range map[string]string{
			"owner_name":           v.OwnerName,
			"owner_number":         v.OwnerNumber,
			"owner_address_one":    v.OwnerAddressOne,
			"owner_address_two":    v.OwnerAddressTwo,
			"city":                 v.City,
			"state":                v.State,
			"zip":                  v.Zip,
			"location_name":        v.LocationName,
			"location_number":      v.LocationNumber,
			"location_address_one": v.LocationAddressOne,
			"location_address_two": v.LocationAddressTwo,
			"location_city":        v.LocationCity,
			"location_state":       v.LocationState,
			"location_zip":         v.LocationZip,
			"make":                 v.Make,
			"model":                v.Model,
			"year":                 v.Year,
			"color":                v.Color,
			"plate_number":         v.PlateNumber,
			"vin":                  v.VIN,
		} {
			p["vehicle_"+col] = val
		}
	}
	if c.Status != nil {
		p["status"] = *c.Status
	}
	if c.DentInfo != nil {
		p["dent_info"] = datatypes.JSONSlice[model.DentRecord](c.DentInfo)
	}
	return p
}

// Service implements claim operations over the persistence gateway.
type Service struct {
	claims *store.Collection[model.Claim]
	logger *zap.Logger
}

// NewService creates a claim Service.
func NewService(db *gorm.DB, logger *zap.Logger) *Service {
	return &Service{claims: store.New[model.Claim](db), logger: logger}
}

var live = store.Filter{"is_deleted": false}

func notFound(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return apperr.NotFound(MsgNotFound)
	}
	return err
}

// Create stores a new PENDING claim.
func (s *Service) Create(ctx context.Context, c *model.Claim) error {
	c.ID = ""
	c.Status = model.StatusPending
	c.IsArchive = false
	c.IsDeleted = false
	c.DeleteDate = nil
	return s.claims.Create(ctx, c)
}

// Get returns a live claim by id.
func (s *Service) Get(ctx context.Context, id string) (*model.Claim, error) {
	c, err := s.claims.FindByID(ctx, id, live)
	return c, notFound(err)
}

// List returns every live claim matching f, newest first.
func (s *Service) List(ctx context.Context, f Filter) ([]model.Claim, error) {
	return s.claims.Find(ctx, f.predicates(), store.FindOptions{})
}

// Update applies ch to a live claim and returns it as stored.
func (s *Service) Update(ctx context.Context, id string, ch Changes) (*model.Claim, error) {
	if ch.Status != nil && *ch.Status == model.StatusSubmitted {
		return nil, apperr.Validation("status SUBMITTED can only be set by submit")
	}
	c, err := s.claims.UpdateByID(ctx, id, live, ch.patch())
	return c, notFound(err)
}

// Delete soft-deletes a claim. Deleted claims drop out of every list,
// count and page.
func (s *Service) Delete(ctx context.Context, id string) (*model.Claim, error) {
	c, err := s.claims.UpdateByID(ctx, id, live, map[string]any{
		"is_deleted":  true,
		"delete_date": time.Now(),
	})
	return c, notFound(err)
}

// Paginate returns the pageNumber-th window of limit claims matching f.
// Total and items are two separate reads, so IsNext may be stale when
// claims are inserted or deleted concurrently.
func (s *Service) Paginate(ctx context.Context, f Filter, limit, pageNumber int) (*Page, error) {
	if err := ValidatePage(limit, pageNumber); err != nil {
		return nil, err
	}
	pred := f.predicates()
	total, err := s.claims.Count(ctx, pred)
	if err != nil {
		return nil, err
	}
	w, err := NewWindow(limit, pageNumber, total)
	if err != nil {
		return nil, err
	}
	items, err := s.claims.Find(ctx, pred, store.FindOptions{
		Offset: w.StartIndex,
		Limit:  w.Limit,
	})
	if err != nil {
		return nil, err
	}
	return &Page{Total: total, IsNext: w.IsNext, Data: items, Window: w}, nil
}

// Archive sets isArchive on every live claim whose id is in ids. Unknown
// ids are ignored. Matched counts claims found, not claims changed, so a
// repeated call reports the same number.
func (s *Service) Archive(ctx context.Context, ids []string, isArchive bool) (ArchiveResult, error) {
	res := ArchiveResult{Requested: len(ids), IsArchive: isArchive}
	if len(ids) == 0 {
		return res, apperr.Validation("ids must not be empty")
	}
	bulk, err := s.claims.UpdateMany(ctx, dedupe(ids), live, map[string]any{"is_archive": isArchive})
	if err != nil {
		return res, err
	}
	res.Matched = bulk.Matched
	res.Modified = bulk.Modified
	s.logger.Debug("claims archive toggled",
		zap.Int("requested", res.Requested),
		zap.Int64("matched", res.Matched),
		zap.Bool("is_archive", isArchive))
	return res, nil
}

// ResetArchive clears isArchive on every claim.
func (s *Service) ResetArchive(ctx context.Context) (int64, error) {
	return s.claims.UpdateWhere(ctx, nil, map[string]any{"is_archive": false})
}

// Submit moves a PENDING claim to SUBMITTED and records its dents. Any
// other status leaves the claim untouched and is reported as already
// submitted rather than as an error. The status check and the write are a
// single conditional update, so concurrent submits perform it once.
func (s *Service) Submit(ctx context.Context, claimID string, dents []model.DentRecord) (*SubmitResult, error) {
	current, err := s.claims.FindByID(ctx, claimID, live)
	if err != nil {
		return nil, notFound(err)
	}
	if current.Status != model.StatusPending {
		return &SubmitResult{Claim: current}, nil
	}

	if dents == nil {
		dents = []model.DentRecord{}
	}
	n, err := s.claims.UpdateWhere(ctx,
		store.Filter{"id": claimID, "status": model.StatusPending, "is_deleted": false},
		map[string]any{
			"status":    model.StatusSubmitted,
			"dent_info": datatypes.JSONSlice[model.DentRecord](dents),
		})
	if err != nil {
		return nil, err
	}

	after, err := s.claims.FindByID(ctx, claimID, nil)
	if err != nil {
		return nil, notFound(err)
	}
	if n == 0 {
		s.logger.Info("claim submit lost race", zap.String("claim_id", claimID))
	}
	return &SubmitResult{Claim: after, Submitted: n > 0}, nil
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
