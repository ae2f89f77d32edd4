package reservation

import (
	"testing"

	"reservo/models"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func testValidator(repo *fakeRepo) *Validator {
	return &Validator{Repo: repo, Logger: zap.NewNop()}
}

func TestCheckHoursInRange(t *testing.T) {
	v := testValidator(newFakeRepo())

	res := v.CheckHours(testBusiness(), "12:30")

	assert.True(t, res.IsAvailable)
	assert.Empty(t, res.Reason)
}

func TestCheckHoursBoundariesInclusive(t *testing.T) {
	v := testValidator(newFakeRepo())
	biz := testBusiness()

	assert.True(t, v.CheckHours(biz, "08:00").IsAvailable)
	assert.True(t, v.CheckHours(biz, "18:00").IsAvailable)
	assert.False(t, v.CheckHours(biz, "18:01").IsAvailable)
}

func TestCheckHoursLateNightOffersClosestSlots(t *testing.T) {
	v := testValidator(newFakeRepo())

	res := v.CheckHours(testBusiness(), "23:00")

	assert.False(t, res.IsAvailable)
	assert.Equal(t, ReasonTimeOutOfRange, res.Reason)
	assert.Equal(t, []string{"18:00", "17:30", "17:00"}, res.Alternatives)
}

func TestCheckHoursNoConfiguredHoursMeansAlwaysOpen(t *testing.T) {
	v := testValidator(newFakeRepo())
	biz := testBusiness()
	biz.Config.Hours = nil

	assert.True(t, v.CheckHours(biz, "03:00").IsAvailable)
}

func TestCheckHoursSplitWindows(t *testing.T) {
	v := testValidator(newFakeRepo())
	biz := testBusiness()
	biz.Config.Hours = []models.OperatingWindow{
		{Open: "12:00", Close: "15:00"},
		{Open: "19:00", Close: "23:00"},
	}

	assert.True(t, v.CheckHours(biz, "20:00").IsAvailable)

	res := v.CheckHours(biz, "17:00")
	assert.False(t, res.IsAvailable)
	assert.Equal(t, []string{"15:00", "19:00", "14:30"}, res.Alternatives)
}

func TestAssignTableSmallestSufficient(t *testing.T) {
	v := testValidator(newFakeRepo())

	id, res := v.AssignTable(testBusiness(), "2026-09-04", "12:00", "", 3)

	assert.True(t, res.IsAvailable)
	assert.Equal(t, "t1", id)
}

func TestAssignTableSkipsTaken(t *testing.T) {
	repo := newFakeRepo()
	repo.active = []models.Reservation{{TableID: "t1", Status: models.ReservationConfirmed}}
	v := testValidator(repo)

	id, res := v.AssignTable(testBusiness(), "2026-09-04", "12:00", "", 3)

	assert.True(t, res.IsAvailable)
	assert.Equal(t, "t2", id)
}

func TestAssignTableExplicitTooSmall(t *testing.T) {
	v := testValidator(newFakeRepo())

	_, res := v.AssignTable(testBusiness(), "2026-09-04", "12:00", "t1", 6)

	assert.False(t, res.IsAvailable)
	assert.Equal(t, ReasonTableTooSmall, res.Reason)
	assert.Equal(t, []string{"Salón"}, res.Alternatives)
}

func TestAssignTableExplicitTaken(t *testing.T) {
	repo := newFakeRepo()
	repo.active = []models.Reservation{{TableID: "t2", Status: models.ReservationConfirmed}}
	v := testValidator(repo)

	_, res := v.AssignTable(testBusiness(), "2026-09-04", "12:00", "t2", 6)

	assert.Equal(t, ReasonTableTaken, res.Reason)
	assert.Empty(t, res.Alternatives, "remaining table seats 4, party is 6")
}

func TestAssignTableByName(t *testing.T) {
	v := testValidator(newFakeRepo())

	id, res := v.AssignTable(testBusiness(), "2026-09-04", "12:00", "ventana", 2)

	assert.True(t, res.IsAvailable)
	assert.Equal(t, "t1", id)
}

func TestAssignTableNoneFree(t *testing.T) {
	repo := newFakeRepo()
	repo.active = []models.Reservation{{TableID: "t1"}, {TableID: "t2"}}
	v := testValidator(repo)

	_, res := v.AssignTable(testBusiness(), "2026-09-04", "12:00", "", 2)

	assert.Equal(t, ReasonNoTableAvailable, res.Reason)
}

func TestValidateProductsKeepsValidSubset(t *testing.T) {
	v := testValidator(newFakeRepo())

	valid, issues := v.ValidateProducts(testBusiness(), []models.ProductSelection{
		{ProductID: "p1", Quantity: 2},
		{ProductID: "p3", Quantity: 1},
		{ProductID: "p9", Quantity: 1},
	})

	assert.Equal(t, []models.ProductSelection{{ProductID: "p1", Quantity: 2}}, valid)
	assert.Equal(t, []ProductIssue{
		{ProductID: "p3", Reason: ReasonProductOff},
		{ProductID: "p9", Reason: ReasonProductNotFound},
	}, issues)
}

func TestValidateProductsInsufficientStock(t *testing.T) {
	v := testValidator(newFakeRepo())

	valid, issues := v.ValidateProducts(testBusiness(), []models.ProductSelection{
		{ProductID: "p1", Quantity: 6},
	})

	assert.Empty(t, valid)
	assert.Equal(t, []ProductIssue{{ProductID: "p1", Reason: ReasonInsufficientStock}}, issues)
}

func TestValidateProductsDefaultsQuantity(t *testing.T) {
	v := testValidator(newFakeRepo())

	valid, _ := v.ValidateProducts(testBusiness(), []models.ProductSelection{{ProductID: "p2"}})

	assert.Equal(t, []models.ProductSelection{{ProductID: "p2", Quantity: 1}}, valid)
}

func TestOrderTotal(t *testing.T) {
	total := OrderTotal(testBusiness(), []models.ProductSelection{
		{ProductID: "p1", Quantity: 2},
		{ProductID: "p2", Quantity: 1},
	})

	assert.InDelta(t, 39.0, total, 0.001)
}
