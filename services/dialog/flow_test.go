package dialog

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"reservo/models"
	"reservo/services/contextcache"
	"reservo/services/extractor"
	"reservo/services/nlu"
	"reservo/services/reservation"
)

// testNow is a Tuesday, so "mañana" is 2026-09-02 and "viernes" 2026-09-04.
var testNow = time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)

func dialogBusiness() *models.Business {
	return &models.Business{
		ID:   "biz1",
		Name: "La Terraza",
		Type: models.BusinessTypeRestaurant,
		Config: models.BusinessConfig{
			Hours: []models.OperatingWindow{{Open: "08:00", Close: "22:00"}},
			Services: []models.ServiceDefinition{
				{
					Key:            "dine_in",
					DisplayName:    "Mesa en restaurante",
					Synonyms:       []string{"mesa"},
					RequiresGuests: true,
					RequiresTable:  true,
				},
				{
					Key:             "delivery",
					DisplayName:     "Domicilio",
					Synonyms:        []string{"domicilio"},
					RequiresProduct: true,
					RequiresAddress: true,
				},
			},
			Products: []models.ProductDefinition{
				{ID: "p1", Name: "Pizza Margarita", Price: 12, Available: true, TrackStock: true, Stock: 5},
				{ID: "p2", Name: "Lasagna", Price: 15, Available: true},
				{ID: "p3", Name: "Tiramisu", Price: 6, Available: false},
			},
			Tables: []models.TableDefinition{
				{ID: "t1", Name: "Ventana", Capacity: 4},
				{ID: "t2", Name: "Salón", Capacity: 8},
			},
			Intentions: []models.IntentionDefinition{
				{
					Name: models.IntentionReserve,
					Keywords: []models.WeightedKeyword{
						{Pattern: "reservar", Weight: 0.9},
						{Pattern: "pedir", Weight: 0.9},
						{Pattern: "mesa", Weight: 0.7},
					},
					Examples: []string{"quiero reservar una mesa"},
				},
				{
					Name:     models.IntentionCancel,
					Keywords: []models.WeightedKeyword{{Pattern: "cancelar", Weight: 0.95}},
					Examples: []string{"quiero cancelar mi reserva"},
				},
				{
					Name:     models.IntentionGreeting,
					Keywords: []models.WeightedKeyword{{Pattern: "hola", Weight: 0.9}},
					Examples: []string{"hola"},
				},
				{
					Name:     models.IntentionFarewell,
					Keywords: []models.WeightedKeyword{{Pattern: "hasta luego", Weight: 0.9}},
					Examples: []string{"gracias, hasta luego"},
				},
				{
					Name:     models.IntentionQuery,
					Keywords: []models.WeightedKeyword{{Pattern: "estado", Weight: 0.9}},
					Examples: []string{"cuál es el estado de mi reserva"},
				},
				{
					Name:     models.IntentionAvailability,
					Keywords: []models.WeightedKeyword{{Pattern: "horario", Weight: 0.9}},
					Examples: []string{"cuál es su horario"},
				},
			},
		},
		Currency: "USD",
	}
}

type fakeBizRepo struct {
	biz *models.Business
	err error
}

func (f *fakeBizRepo) GetByID(id string) (*models.Business, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.biz == nil || f.biz.ID != id {
		return nil, errors.New("business not found")
	}
	return f.biz, nil
}

type fakeConvRepo struct {
	states map[string]*models.ConversationState
	turns  []models.Turn
}

func (f *fakeConvRepo) GetContext(userID, businessID string) (*models.ConversationState, error) {
	if s, ok := f.states[userID+":"+businessID]; ok {
		raw, _ := json.Marshal(s)
		var clone models.ConversationState
		_ = json.Unmarshal(raw, &clone)
		if clone.Metadata == nil {
			clone.Metadata = map[string]string{}
		}
		return &clone, nil
	}
	return models.NewConversationState(userID, businessID), nil
}

func (f *fakeConvRepo) SaveContext(state *models.ConversationState) error {
	f.states[state.UserID+":"+state.BusinessID] = state
	return nil
}

func (f *fakeConvRepo) AppendTurn(userID, businessID string, turn models.Turn, max int) error {
	f.turns = append(f.turns, turn)
	return nil
}

type fakeResRepo struct {
	created  []*models.Reservation
	statuses map[string]models.ReservationStatus
	stock    map[string]int
	pending  map[string]*models.PendingPayment
}

func newFakeResRepo() *fakeResRepo {
	return &fakeResRepo{
		statuses: map[string]models.ReservationStatus{},
		stock:    map[string]int{"p1": 5},
		pending:  map[string]*models.PendingPayment{},
	}
}

func (f *fakeResRepo) Create(res *models.Reservation) error {
	f.created = append(f.created, res)
	f.statuses[res.ID] = res.Status
	return nil
}

func (f *fakeResRepo) GetByID(id string) (*models.Reservation, error) {
	for _, r := range f.created {
		if r.ID == id {
			out := *r
			out.Status = f.statuses[id]
			return &out, nil
		}
	}
	return nil, errors.New("not found")
}

func (f *fakeResRepo) UpdateStatus(id string, status models.ReservationStatus) error {
	f.statuses[id] = status
	return nil
}

func (f *fakeResRepo) ActiveForUser(businessID, userID string) ([]models.Reservation, error) {
	var out []models.Reservation
	for _, r := range f.created {
		if r.BusinessID == businessID && r.UserID == userID && f.statuses[r.ID] != models.ReservationCancelled {
			clone := *r
			clone.Status = f.statuses[r.ID]
			out = append(out, clone)
		}
	}
	return out, nil
}

func (f *fakeResRepo) ActiveAt(businessID, date, timeOfDay string) ([]models.Reservation, error) {
	var out []models.Reservation
	for _, r := range f.created {
		if r.BusinessID == businessID && r.Date == date && r.Time == timeOfDay && f.statuses[r.ID] != models.ReservationCancelled {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (f *fakeResRepo) DecrementStock(businessID, productID string, qty int) error {
	if f.stock[productID] < qty {
		return errors.New("insufficient stock")
	}
	f.stock[productID] -= qty
	return nil
}

func (f *fakeResRepo) IncrementStock(businessID, productID string, qty int) error {
	f.stock[productID] += qty
	return nil
}

func (f *fakeResRepo) SavePendingPayment(p *models.PendingPayment) error {
	f.pending[p.ConversationID] = p
	return nil
}

func (f *fakeResRepo) GetPendingPayment(conversationID string) (*models.PendingPayment, error) {
	return f.pending[conversationID], nil
}

type fakePayments struct {
	url string
	err error
}

func (f *fakePayments) CreatePaymentRequest(req models.PaymentRequest) (string, error) {
	return f.url, f.err
}

func newTestEngine(biz *models.Business) (*Engine, *fakeResRepo, *fakeConvRepo) {
	logger := zap.NewNop()
	resRepo := newFakeResRepo()
	convRepo := &fakeConvRepo{states: map[string]*models.ConversationState{}}

	return &Engine{
		Businesses:    &fakeBizRepo{biz: biz},
		Conversations: convRepo,
		ContextCache:  contextcache.NewRedisCache(nil, "ctx", time.Minute, logger),
		ConfigCache:   contextcache.NewRedisCache(nil, "cfg", time.Minute, logger),
		Cascade: &nlu.Cascade{
			Keyword: nlu.NewKeywordStrategy(),
			Fuzzy:   nlu.NewFuzzyStrategy(),
			Breaker: nlu.NewBreaker(3, time.Minute, logger),
			Logger:  logger,
		},
		Extractor:  extractor.DefaultRegistry(),
		Validator:  &reservation.Validator{Repo: resRepo, Logger: logger},
		Committer:  &reservation.Committer{Repo: resRepo, Payments: &fakePayments{url: "https://pay.example/cs_1"}, Logger: logger},
		HistoryMax: 20,
		Clock:      func() time.Time { return testNow },
		Logger:     logger,
	}, resRepo, convRepo
}

func send(t *testing.T, e *Engine, message string) *ChatReply {
	t.Helper()
	reply, err := e.ProcessMessage(context.Background(), ChatRequest{
		UserID:     "u1",
		BusinessID: "biz1",
		Message:    message,
	})
	require.NoError(t, err)
	require.NotNil(t, reply)
	return reply
}

func TestSingleMessageReservation(t *testing.T) {
	e, resRepo, _ := newTestEngine(dialogBusiness())

	reply := send(t, e, "Quiero reservar una mesa para 4 personas mañana a las 7pm, mi teléfono es 3001234567")

	assert.Equal(t, models.IntentionReserve, reply.Intention)
	assert.Equal(t, string(models.StageCompleted), reply.Stage)
	assert.Empty(t, reply.MissingFields)
	assert.Contains(t, reply.Reply, "confirmada")

	require.Len(t, resRepo.created, 1)
	res := resRepo.created[0]
	assert.Equal(t, "dine_in", res.ServiceKey)
	assert.Equal(t, "2026-09-02", res.Date)
	assert.Equal(t, "19:00", res.Time)
	assert.Equal(t, 4, res.Guests)
	assert.Equal(t, "3001234567", res.Phone)
	assert.Equal(t, "t1", res.TableID, "smallest table that fits the party")
}

func TestProgressiveSlotFilling(t *testing.T) {
	e, resRepo, _ := newTestEngine(dialogBusiness())

	greeting := send(t, e, "Hola")
	assert.Equal(t, models.IntentionGreeting, greeting.Intention)
	assert.Contains(t, greeting.Reply, "La Terraza")

	first := send(t, e, "Quiero reservar una mesa")
	assert.Equal(t, string(models.StageCollecting), first.Stage)
	assert.Equal(t, []string{models.FieldDate, models.FieldTime, models.FieldPhone, models.FieldGuests}, first.MissingFields)
	assert.Contains(t, first.Reply, "necesito", "first ask lists everything at once")

	second := send(t, e, "mañana a las 7pm")
	assert.Equal(t, []string{models.FieldPhone, models.FieldGuests}, second.MissingFields)
	assert.Contains(t, second.Reply, "teléfono", "later asks go one field at a time")

	third := send(t, e, "3001234567")
	assert.Equal(t, []string{models.FieldGuests}, third.MissingFields)

	final := send(t, e, "somos 4")
	assert.Equal(t, string(models.StageCompleted), final.Stage)
	require.Len(t, resRepo.created, 1)
	assert.Equal(t, 4, resRepo.created[0].Guests)
}

func TestOutOfHoursOffersAlternatives(t *testing.T) {
	e, resRepo, _ := newTestEngine(dialogBusiness())

	reply := send(t, e, "Quiero reservar una mesa para 2 personas mañana a las 23:00, mi teléfono es 3001234567")

	assert.Equal(t, string(models.StageCollecting), reply.Stage)
	assert.Equal(t, []string{models.FieldTime}, reply.MissingFields)
	assert.Contains(t, reply.Reply, "cerrados")
	assert.Contains(t, reply.Reply, "22:00")
	assert.Empty(t, resRepo.created)

	// The first offered slot, picked by ordinal reference.
	final := send(t, e, "la primera")
	assert.Equal(t, string(models.StageCompleted), final.Stage)
	require.Len(t, resRepo.created, 1)
	assert.Equal(t, "22:00", resRepo.created[0].Time)
}

func TestInvalidProductKeepsValidSubset(t *testing.T) {
	e, resRepo, convRepo := newTestEngine(dialogBusiness())

	seed := models.NewConversationState("u1", "biz1")
	seed.Stage = models.StageCollecting
	seed.Metadata[models.MetaAskedAllFields] = "1"
	seed.Collected = models.SlotValues{
		Service: "delivery",
		Date:    "2026-09-02",
		Time:    "13:00",
		Address: "Calle 10 #4-21",
		Products: []models.ProductSelection{
			{ProductID: "p1", Quantity: 2},
			{ProductID: "p3", Quantity: 1},
		},
	}
	convRepo.states["u1:biz1"] = seed

	reply := send(t, e, "mi teléfono es 3001234567")

	assert.Equal(t, string(models.StageCompleted), reply.Stage)
	assert.Contains(t, reply.Reply, "No pude agregar")
	assert.Contains(t, reply.Reply, "confirmada")
	require.Len(t, resRepo.created, 1)
	assert.Equal(t, []models.ProductSelection{{ProductID: "p1", Quantity: 2}}, resRepo.created[0].Products)
	assert.Equal(t, 3, resRepo.stock["p1"])
}

func TestConfirmationResolvesAgainstLastQuestion(t *testing.T) {
	e, resRepo, convRepo := newTestEngine(dialogBusiness())

	seed := models.NewConversationState("u1", "biz1")
	seed.Stage = models.StageCollecting
	seed.Metadata[models.MetaAskedAllFields] = "1"
	seed.Collected = models.SlotValues{Service: "dine_in", Guests: 2, Phone: "3001234567"}
	seed.History = []models.Turn{
		{Role: "user", Text: "quiero reservar una mesa para 2", Timestamp: testNow},
		{Role: "assistant", Text: "¿Vienes el viernes a las 6 pm?", Timestamp: testNow},
	}
	convRepo.states["u1:biz1"] = seed

	reply := send(t, e, "sí")

	assert.Equal(t, string(models.StageCompleted), reply.Stage)
	require.Len(t, resRepo.created, 1)
	assert.Equal(t, "2026-09-04", resRepo.created[0].Date)
	assert.Equal(t, "18:00", resRepo.created[0].Time)
}

func TestConflictIsConfirmedNotOverwritten(t *testing.T) {
	e, resRepo, convRepo := newTestEngine(dialogBusiness())

	seed := models.NewConversationState("u1", "biz1")
	seed.Stage = models.StageCollecting
	seed.Metadata[models.MetaAskedAllFields] = "1"
	seed.Collected = models.SlotValues{Service: "dine_in", Date: "2026-09-02", Guests: 2, Phone: "3001234567"}
	convRepo.states["u1:biz1"] = seed

	reply := send(t, e, "el viernes a las 19:00")

	assert.Equal(t, string(models.StageCollecting), reply.Stage)
	assert.Contains(t, reply.Reply, "2026-09-02")
	assert.Contains(t, reply.Reply, "2026-09-04")
	assert.Empty(t, resRepo.created, "nothing commits while the conflict is open")

	final := send(t, e, "sí")
	assert.Equal(t, string(models.StageCompleted), final.Stage)
	require.Len(t, resRepo.created, 1)
	assert.Equal(t, "2026-09-04", resRepo.created[0].Date, "confirmed change applies")
}

func TestConflictRejectedKeepsOldValue(t *testing.T) {
	e, resRepo, convRepo := newTestEngine(dialogBusiness())

	seed := models.NewConversationState("u1", "biz1")
	seed.Stage = models.StageCollecting
	seed.Metadata[models.MetaAskedAllFields] = "1"
	seed.Collected = models.SlotValues{Service: "dine_in", Date: "2026-09-02", Time: "19:00", Guests: 2, Phone: "3001234567"}
	convRepo.states["u1:biz1"] = seed

	send(t, e, "el viernes")

	// A bare "no" normally abandons the flow; with a pending conflict it
	// answers the conflict question instead.
	final := send(t, e, "no")
	assert.Equal(t, string(models.StageCompleted), final.Stage)
	require.Len(t, resRepo.created, 1)
	assert.Equal(t, "2026-09-02", resRepo.created[0].Date, "rejected change keeps original")
}

func TestCorrectionAppliesDirectly(t *testing.T) {
	e, resRepo, convRepo := newTestEngine(dialogBusiness())

	seed := models.NewConversationState("u1", "biz1")
	seed.Stage = models.StageCollecting
	seed.Metadata[models.MetaAskedAllFields] = "1"
	seed.Collected = models.SlotValues{Service: "dine_in", Date: "2026-09-02", Time: "19:00", Guests: 2, Phone: "3001234567"}
	convRepo.states["u1:biz1"] = seed

	reply := send(t, e, "no, mejor a las 20:00")

	assert.Equal(t, string(models.StageCompleted), reply.Stage)
	require.Len(t, resRepo.created, 1)
	assert.Equal(t, "20:00", resRepo.created[0].Time)
}

func TestNegationAbandonsFlow(t *testing.T) {
	e, _, convRepo := newTestEngine(dialogBusiness())

	send(t, e, "Quiero reservar una mesa")
	reply := send(t, e, "mejor no")

	assert.Equal(t, string(models.StageIdle), reply.Stage)
	assert.Contains(t, reply.Reply, "descartado")

	saved := convRepo.states["u1:biz1"]
	assert.Empty(t, saved.Collected.Service)
	assert.NotEmpty(t, saved.History, "history survives the reset")
}

func TestCancelActiveReservation(t *testing.T) {
	e, resRepo, _ := newTestEngine(dialogBusiness())

	send(t, e, "Quiero reservar una mesa para 4 personas mañana a las 7pm, mi teléfono es 3001234567")
	require.Len(t, resRepo.created, 1)

	reply := send(t, e, "Quiero cancelar mi reserva")

	assert.Equal(t, models.IntentionCancel, reply.Intention)
	assert.Contains(t, reply.Reply, "cancelada")
	assert.Equal(t, models.ReservationCancelled, resRepo.statuses[resRepo.created[0].ID])
}

func TestCancelWithNothingActive(t *testing.T) {
	e, _, _ := newTestEngine(dialogBusiness())

	reply := send(t, e, "Quiero cancelar mi reserva")

	assert.Contains(t, reply.Reply, "No encontré")
}

func TestQueryReportsActiveReservations(t *testing.T) {
	e, _, _ := newTestEngine(dialogBusiness())

	send(t, e, "Quiero reservar una mesa para 4 personas mañana a las 7pm, mi teléfono es 3001234567")
	reply := send(t, e, "¿Cuál es el estado de mi reserva?")

	assert.Equal(t, models.IntentionQuery, reply.Intention)
	assert.Contains(t, reply.Reply, "2026-09-02")
	assert.Contains(t, reply.Reply, "19:00")
}

func TestAvailabilityQuery(t *testing.T) {
	e, _, _ := newTestEngine(dialogBusiness())

	reply := send(t, e, "¿Cuál es su horario?")

	assert.Equal(t, models.IntentionAvailability, reply.Intention)
	assert.Contains(t, reply.Reply, "08:00 a 22:00")
}

func TestBusinessNotFoundIsPoliteNotFatal(t *testing.T) {
	e, _, _ := newTestEngine(dialogBusiness())
	e.Businesses = &fakeBizRepo{err: errors.New("mongo down")}
	e.ConfigCache = contextcache.NewRedisCache(nil, "cfg2", time.Minute, zap.NewNop())

	reply, err := e.ProcessMessage(context.Background(), ChatRequest{
		UserID: "u1", BusinessID: "ghost", Message: "hola",
	})

	require.NoError(t, err)
	assert.Equal(t, replyBusinessNotFound, reply.Reply)
	assert.Equal(t, models.IntentionOther, reply.Intention)
	assert.Zero(t, reply.Confidence)
}

func TestOutOfScopeMessage(t *testing.T) {
	e, _, _ := newTestEngine(dialogBusiness())

	reply := send(t, e, "cuánto cuesta un vuelo a París")

	assert.Equal(t, models.IntentionOther, reply.Intention)
	assert.Contains(t, reply.Reply, "no entendí")
}

func TestRepeatedConfirmDoesNotDuplicate(t *testing.T) {
	e, resRepo, _ := newTestEngine(dialogBusiness())

	send(t, e, "Quiero reservar una mesa para 4 personas mañana a las 7pm, mi teléfono es 3001234567")
	require.Len(t, resRepo.created, 1)

	reply := send(t, e, "quiero reservar")

	assert.Equal(t, string(models.StageCompleted), reply.Stage)
	assert.Len(t, resRepo.created, 1, "replaying the outcome must not insert again")
	assert.Equal(t, resRepo.created[0].ID, reply.ReservationID)
}

func TestPaymentGatedFlow(t *testing.T) {
	biz := dialogBusiness()
	biz.Config.Services[1].RequiresPayment = true
	e, resRepo, _ := newTestEngine(biz)

	reply := send(t, e, "Quiero pedir a domicilio 2 pizza margarita mañana a las 13:00 a la calle 10 #4-21, mi teléfono es 3001234567")

	assert.Equal(t, string(models.StageAwaitingPayment), reply.Stage)
	assert.Equal(t, "https://pay.example/cs_1", reply.PaymentURL)
	require.Len(t, resRepo.created, 1)
	assert.Equal(t, models.ReservationProvisional, resRepo.statuses[resRepo.created[0].ID])

	// Any chatter while awaiting payment repeats the link.
	nudge := send(t, e, "hola")
	assert.Contains(t, nudge.Reply, "https://pay.example/cs_1")

	confirmed, err := e.ConfirmPayment(context.Background(), "u1:biz1", true)
	require.NoError(t, err)
	assert.Equal(t, string(models.StageCompleted), confirmed.Stage)
	assert.Equal(t, models.ReservationConfirmed, resRepo.statuses[resRepo.created[0].ID])
	assert.Contains(t, confirmed.Reply, "Pago recibido")
}

func TestCancelDuringAwaitingPaymentVoidsReservation(t *testing.T) {
	biz := dialogBusiness()
	biz.Config.Services[1].RequiresPayment = true
	e, resRepo, _ := newTestEngine(biz)

	send(t, e, "Quiero pedir a domicilio 2 pizza margarita mañana a las 13:00 a la calle 10 #4-21, mi teléfono es 3001234567")
	require.Len(t, resRepo.created, 1)
	require.Equal(t, models.ReservationProvisional, resRepo.statuses[resRepo.created[0].ID])
	require.Equal(t, 3, resRepo.stock["p1"])

	reply := send(t, e, "Quiero cancelar mi reserva")

	assert.Equal(t, models.IntentionCancel, reply.Intention)
	assert.Equal(t, string(models.StageIdle), reply.Stage)
	assert.Equal(t, models.ReservationCancelled, resRepo.statuses[resRepo.created[0].ID])
	assert.Equal(t, 5, resRepo.stock["p1"], "taken stock is returned")
}

func TestFarewellAbandonsCollection(t *testing.T) {
	e, _, convRepo := newTestEngine(dialogBusiness())

	send(t, e, "Quiero reservar una mesa")
	reply := send(t, e, "hasta luego")

	assert.Equal(t, models.IntentionFarewell, reply.Intention)
	assert.Equal(t, string(models.StageIdle), reply.Stage)

	saved := convRepo.states["u1:biz1"]
	assert.Empty(t, saved.Collected.Service)
	assert.NotEmpty(t, saved.History, "history survives the reset")
}

func TestGreetingAfterCompletionStartsFresh(t *testing.T) {
	e, resRepo, _ := newTestEngine(dialogBusiness())

	send(t, e, "Quiero reservar una mesa para 4 personas mañana a las 7pm, mi teléfono es 3001234567")
	require.Len(t, resRepo.created, 1)

	reply := send(t, e, "hola")

	assert.Equal(t, models.IntentionGreeting, reply.Intention)
	assert.Equal(t, string(models.StageIdle), reply.Stage)
	assert.Contains(t, reply.Reply, "La Terraza")
}

func TestPaymentFailureCancelsAndRestocks(t *testing.T) {
	biz := dialogBusiness()
	biz.Config.Services[1].RequiresPayment = true
	e, resRepo, _ := newTestEngine(biz)

	send(t, e, "Quiero pedir a domicilio 2 pizza margarita mañana a las 13:00 a la calle 10 #4-21, mi teléfono es 3001234567")
	require.Equal(t, 3, resRepo.stock["p1"])

	reply, err := e.ConfirmPayment(context.Background(), "u1:biz1", false)
	require.NoError(t, err)

	assert.Contains(t, reply.Reply, "cancelada")
	assert.Equal(t, models.ReservationCancelled, resRepo.statuses[resRepo.created[0].ID])
	assert.Equal(t, 5, resRepo.stock["p1"])
}

// orderedCache records cache writes so tests can assert their ordering
// against the durable store.
type orderedCache struct {
	contextcache.Service
	log *[]string
}

func (c *orderedCache) Invalidate(ctx context.Context, key string) {
	*c.log = append(*c.log, "invalidate:"+key)
	c.Service.Invalidate(ctx, key)
}

func (c *orderedCache) Set(ctx context.Context, key string, value []byte) {
	*c.log = append(*c.log, "set:"+key)
	c.Service.Set(ctx, key, value)
}

type orderedConvRepo struct {
	*fakeConvRepo
	log *[]string
}

func (r *orderedConvRepo) SaveContext(state *models.ConversationState) error {
	*r.log = append(*r.log, "save")
	return r.fakeConvRepo.SaveContext(state)
}

func TestTurnWriteDropsCacheBeforeStore(t *testing.T) {
	e, _, convRepo := newTestEngine(dialogBusiness())
	var log []string
	e.ContextCache = &orderedCache{Service: e.ContextCache, log: &log}
	e.Conversations = &orderedConvRepo{fakeConvRepo: convRepo, log: &log}

	send(t, e, "hola")

	// A reader racing the turn must fall back to the store, never see the
	// previous cached state: invalidate first, durable write, then re-fill.
	assert.Equal(t, []string{"invalidate:u1:biz1", "save", "set:u1:biz1"}, log)
}

func TestTableConflictOffersAlternatives(t *testing.T) {
	e, resRepo, _ := newTestEngine(dialogBusiness())

	// Fill both tables for the same slot.
	resRepo.created = append(resRepo.created,
		&models.Reservation{ID: "r1", BusinessID: "biz1", UserID: "u9", Date: "2026-09-02", Time: "19:00", TableID: "t1"},
		&models.Reservation{ID: "r2", BusinessID: "biz1", UserID: "u8", Date: "2026-09-02", Time: "19:00", TableID: "t2"},
	)

	reply := send(t, e, "Quiero reservar una mesa para 4 personas mañana a las 7pm, mi teléfono es 3001234567")

	assert.Equal(t, string(models.StageCollecting), reply.Stage)
	assert.Contains(t, reply.Reply, "no tenemos mesas")
	assert.Len(t, resRepo.created, 2, "nothing new was committed")
}
