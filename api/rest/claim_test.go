package rest_test

import (
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/dentscan/dentclaim/api/rest"
	"github.com/dentscan/dentclaim/claim"
	"github.com/dentscan/dentclaim/model"
	"github.com/dentscan/dentclaim/reqlog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const vehicleJSON = `{"ownerName":"Jane Roe","ownerNumber":"555-0100","ownerAddressOne":"1 Main St","ownerAddressTwo":"Apt 2",` +
	`"city":"Austin","state":"TX","zip":"73301","locationName":"Body Shop","locationNumber":"555-0101",` +
	`"locationAddressOne":"9 Side St","locationAddressTwo":"Bay 4","locationCity":"Austin","locationState":"TX",` +
	`"locationZip":"73301","make":"HONDA","model":"Accord","year":"2003","color":"Blue","plateNumber":"ABC123",` +
	`"vin":"1HGCM82633A004352"}`

func createClaim(t *testing.T, h *harness, token, number string) model.Claim {
	t.Helper()
	w := h.do(http.MethodPost, "/api/claim", token,
		fmt.Sprintf(`{"company":"Acme","claimNumber":%q,"vehicle":%s}`, number, vehicleJSON))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return dataOf[model.Claim](t, w)
}

func TestClaim_CreateIsPending(t *testing.T) {
	h := newHarness(t)
	token, _ := h.customerToken(t, "inspector@example.com")

	w := h.do(http.MethodPost, "/api/claim", token,
		`{"company":"Acme","claimNumber":"C-1","vehicle":`+vehicleJSON+`}`)
	require.Equal(t, http.StatusCreated, w.Code)
	body := decode[successBody](t, w)
	assert.Equal(t, rest.MsgRecordSaved, body.Message)

	c := dataOf[model.Claim](t, w)
	assert.True(t, model.IsValidID(c.ID))
	assert.Equal(t, model.StatusPending, c.Status)
	assert.Equal(t, "HONDA", c.Vehicle.Make)
	assert.False(t, c.IsArchive)
}

func TestClaim_CreateTrimsBodyWithoutContentType(t *testing.T) {
	h := newHarness(t)
	token, _ := h.customerToken(t, "inspector@example.com")

	w := h.doAs(http.MethodPost, "/api/claim", token, "",
		`{"company":"  Acme  ","claimNumber":"  C-9  ","vehicle":`+vehicleJSON+`}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	c := dataOf[model.Claim](t, w)
	assert.Equal(t, "Acme", c.Company)
	assert.Equal(t, "C-9", c.ClaimNumber)

	entries := h.apiLogs.All()
	require.NotEmpty(t, entries)
	detail, ok := entries[len(entries)-1].ContextMap()["apiDetail"].(reqlog.Detail)
	require.True(t, ok)
	logged, ok := detail.Request.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "C-9", logged["claimNumber"])
}

func TestClaim_CreateRejectsNonJSONContentType(t *testing.T) {
	h := newHarness(t)
	token, _ := h.customerToken(t, "inspector@example.com")

	w := h.doAs(http.MethodPost, "/api/claim", token, "text/plain",
		`{"company":"  Acme  ","claimNumber":"C-9","vehicle":`+vehicleJSON+`}`)
	assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)

	w = h.do(http.MethodGet, "/api/claim", token, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, dataOf[[]model.Claim](t, w))
}

func TestClaim_CreateTrimsOversizedBody(t *testing.T) {
	h := newHarness(t)
	token, _ := h.customerToken(t, "inspector@example.com")

	padding := strings.Repeat("x", 70<<10)
	w := h.do(http.MethodPost, "/api/claim", token,
		`{"company":"  Acme  ","claimNumber":"C-9","padding":"`+padding+`","vehicle":`+vehicleJSON+`}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "Acme", dataOf[model.Claim](t, w).Company)
}

func TestClaim_CreateMissingVehicleField(t *testing.T) {
	h := newHarness(t)
	token, _ := h.customerToken(t, "inspector@example.com")

	w := h.do(http.MethodPost, "/api/claim", token, `{"company":"Acme","claimNumber":"C-1","vehicle":{"make":"HONDA"}}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	e := decode[errorBody](t, w)
	assert.Equal(t, "is required", e.Fields["OwnerName"])
	assert.Nil(t, e.Stack)
}

func TestClaim_RequiresAuth(t *testing.T) {
	h := newHarness(t)
	w := h.do(http.MethodGet, "/api/claim", "", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "missing token", decode[errorBody](t, w).Desc)
}

func TestClaim_GetInvalidAndUnknownID(t *testing.T) {
	h := newHarness(t)
	token, _ := h.customerToken(t, "inspector@example.com")

	w := h.do(http.MethodGet, "/api/claim/not-an-id", token, "")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = h.do(http.MethodGet, "/api/claim/"+model.NewID(), token, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, claim.MsgNotFound, decode[errorBody](t, w).Desc)
}

func TestClaim_UpdateAndDelete(t *testing.T) {
	h := newHarness(t)
	token, _ := h.customerToken(t, "inspector@example.com")
	c := createClaim(t, h, token, "C-1")

	w := h.do(http.MethodPut, "/api/claim/"+c.ID, token, `{"company":"Globex","status":"ON_GOING"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	updated := dataOf[model.Claim](t, w)
	assert.Equal(t, "Globex", updated.Company)
	assert.Equal(t, model.StatusOnGoing, updated.Status)
	assert.Equal(t, "C-1", updated.ClaimNumber)

	w = h.do(http.MethodPut, "/api/claim/"+c.ID, token, `{"status":"SUBMITTED"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = h.do(http.MethodDelete, "/api/claim/"+c.ID, token, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, rest.MsgRecordDeleted, decode[successBody](t, w).Message)

	w = h.do(http.MethodGet, "/api/claim/"+c.ID, token, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

type page struct {
	Total   int64         `json:"total"`
	IsNext  bool          `json:"isNext"`
	Data    []model.Claim `json:"data"`
	Message string        `json:"message"`
}

func TestClaim_Paginate(t *testing.T) {
	h := newHarness(t)
	token, _ := h.customerToken(t, "inspector@example.com")
	for i := 0; i < 3; i++ {
		createClaim(t, h, token, fmt.Sprintf("C-%d", i))
	}

	w := h.do(http.MethodGet, "/api/claim/all?limit=2&pageNumber=1", token, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	p := decode[page](t, w)
	assert.Equal(t, int64(3), p.Total)
	assert.True(t, p.IsNext)
	assert.Len(t, p.Data, 2)
	assert.Equal(t, rest.MsgRecordFetched, p.Message)

	w = h.do(http.MethodGet, "/api/claim/all?limit=2&pageNumber=2", token, "")
	p = decode[page](t, w)
	assert.False(t, p.IsNext)
	assert.Len(t, p.Data, 1)

	w = h.do(http.MethodGet, "/api/claim/all?limit=2&pageNumber=0", token, "")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "Page number can't be zero", decode[errorBody](t, w).Desc)

	w = h.do(http.MethodGet, "/api/claim/all?limit=2&pageNumber=1&sort=desc", token, "")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "is not allowed", decode[errorBody](t, w).Fields["sort"])
}

func TestClaim_ListFilter(t *testing.T) {
	h := newHarness(t)
	token, _ := h.customerToken(t, "inspector@example.com")
	createClaim(t, h, token, "C-1")
	createClaim(t, h, token, "C-2")

	w := h.do(http.MethodGet, "/api/claim?claimNumber=C-2", token, "")
	require.Equal(t, http.StatusOK, w.Code)
	claims := dataOf[[]model.Claim](t, w)
	require.Len(t, claims, 1)
	assert.Equal(t, "C-2", claims[0].ClaimNumber)
}

type archiveCounts struct {
	Matched  int64 `json:"matchedCount"`
	Modified int64 `json:"modifiedCount"`
}

func TestClaim_Archive(t *testing.T) {
	h := newHarness(t)
	token, _ := h.customerToken(t, "inspector@example.com")
	a := createClaim(t, h, token, "C-1")
	b := createClaim(t, h, token, "C-2")

	body := fmt.Sprintf(`{"ids":[%q,%q],"isArchive":true}`, a.ID, b.ID)
	w := h.do(http.MethodPut, "/api/claim/archives", token, body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Claims Archived successfully", decode[successBody](t, w).Message)
	assert.Equal(t, archiveCounts{Matched: 2, Modified: 2}, dataOf[archiveCounts](t, w))

	w = h.do(http.MethodPut, "/api/claim/archives", token, body)
	assert.Equal(t, int64(2), dataOf[archiveCounts](t, w).Matched)

	w = h.do(http.MethodGet, "/api/claim?isArchive=true", token, "")
	assert.Len(t, dataOf[[]model.Claim](t, w), 2)
}

func TestClaim_ArchiveRequiresFlag(t *testing.T) {
	h := newHarness(t)
	token, _ := h.customerToken(t, "inspector@example.com")

	w := h.do(http.MethodPut, "/api/claim/archives", token, `{"ids":["x"]}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "is required", decode[errorBody](t, w).Fields["IsArchive"])
}

func TestClaim_ResetArchiveStaffOnly(t *testing.T) {
	h := newHarness(t)
	customer, _ := h.customerToken(t, "inspector@example.com")
	staff := h.staffToken(t, "ops@example.com", model.RoleAdmin)
	c := createClaim(t, h, customer, "C-1")
	h.do(http.MethodPut, "/api/claim/archives", customer, fmt.Sprintf(`{"ids":[%q],"isArchive":true}`, c.ID))

	w := h.do(http.MethodPut, "/api/claim/all", customer, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = h.do(http.MethodPut, "/api/claim/all", staff, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, int64(1), dataOf[archiveCounts](t, w).Modified)

	w = h.do(http.MethodGet, "/api/claim/"+c.ID, staff, "")
	assert.False(t, dataOf[model.Claim](t, w).IsArchive)
}

const dentListJSON = `[{"title":"Front door","severityClass":"LIGHT","size":"DIME","price":120.5,"images":["door.jpg"]}]`

func TestClaim_Submit(t *testing.T) {
	h := newHarness(t)
	token, _ := h.customerToken(t, "inspector@example.com")
	c := createClaim(t, h, token, "C-1")
	body := fmt.Sprintf(`{"claimID":%q,"dentList":%s}`, c.ID, dentListJSON)

	w := h.do(http.MethodPut, "/api/claim/submit", token, body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, claim.MsgSubmitted, decode[successBody](t, w).Message)
	submitted := dataOf[model.Claim](t, w)
	assert.Equal(t, model.StatusSubmitted, submitted.Status)
	require.Len(t, submitted.DentInfo, 1)
	assert.Equal(t, model.DentLight, submitted.DentInfo[0].DentType)
	assert.Equal(t, 120.5, submitted.DentInfo[0].Price)

	w = h.do(http.MethodPut, "/api/claim/submit", token, body)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, claim.MsgAlreadySubmitted, decode[successBody](t, w).Message)
	assert.Equal(t, model.StatusSubmitted, dataOf[model.Claim](t, w).Status)
}

func TestClaim_SubmitValidation(t *testing.T) {
	h := newHarness(t)
	token, _ := h.customerToken(t, "inspector@example.com")
	c := createClaim(t, h, token, "C-1")

	w := h.do(http.MethodPut, "/api/claim/submit", token,
		fmt.Sprintf(`{"claimID":%q,"dentList":[{"title":"x","severityClass":"SEVERE","size":"DIME","price":1,"images":["a"]}]}`, c.ID))
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = h.do(http.MethodPut, "/api/claim/submit", token,
		fmt.Sprintf(`{"claimID":%q,"dentList":%s}`, model.NewID(), dentListJSON))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = h.do(http.MethodGet, "/api/claim/"+c.ID, token, "")
	assert.Equal(t, model.StatusPending, dataOf[model.Claim](t, w).Status)
}
