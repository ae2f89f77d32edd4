package reservation

import (
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	reservationRepo "reservo/database/repository/reservation"
	"reservo/models"
)

// PaymentLinker produces a hosted payment URL for a provisional reservation.
type PaymentLinker interface {
	CreatePaymentRequest(req models.PaymentRequest) (string, error)
}

// ReminderScheduler enqueues a reminder for a confirmed reservation. May be
// nil when reminders are disabled.
type ReminderScheduler interface {
	ScheduleReminder(res *models.Reservation) error
}

// Committer turns a fully collected conversation into a persisted
// reservation, decrementing stock and gating on payment when the service
// requires it.
type Committer struct {
	Repo      reservationRepo.ReservationRepository
	Payments  PaymentLinker
	Reminders ReminderScheduler
	Logger    *zap.Logger
}

// CommitResult is what the dialog layer needs to phrase the closing reply.
type CommitResult struct {
	Reservation     *models.Reservation
	RequiresPayment bool
	PaymentURL      string
}

// Commit persists the reservation and applies its side effects. Stock is
// decremented after the record exists; a partial stock failure rolls the
// already-taken units back and cancels the record. Payment-gated services
// produce a provisional record plus a payment link.
func (c *Committer) Commit(biz *models.Business, state *models.ConversationState, svc models.ServiceDefinition) (*CommitResult, error) {
	// Re-running commit for an already completed conversation must not create
	// a second reservation.
	if state.Stage == models.StageCompleted && state.PendingReservationID != "" {
		existing, err := c.Repo.GetByID(state.PendingReservationID)
		if err == nil && existing != nil {
			return &CommitResult{Reservation: existing}, nil
		}
	}

	now := time.Now()
	res := &models.Reservation{
		ID:           uuid.New().String(),
		BusinessID:   biz.ID,
		UserID:       state.UserID,
		ServiceKey:   svc.Key,
		Date:         state.Collected.Date,
		Time:         state.Collected.Time,
		Guests:       state.Collected.Guests,
		Phone:        state.Collected.Phone,
		CustomerName: state.Collected.Name,
		Products:     append([]models.ProductSelection(nil), state.Collected.Products...),
		Address:      state.Collected.Address,
		TableID:      state.Collected.TableID,
		Amount:       OrderTotal(biz, state.Collected.Products),
		Status:       models.ReservationConfirmed,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if svc.RequiresPayment {
		res.Status = models.ReservationProvisional
	}

	if err := c.Repo.Create(res); err != nil {
		c.Logger.Error("reservation insert failed",
			zap.String("businessId", biz.ID),
			zap.String("userId", state.UserID),
			zap.Error(err))
		return nil, NewCommitError("create reservation", err.Error())
	}

	if err := c.takeStock(biz, res); err != nil {
		if stErr := c.Repo.UpdateStatus(res.ID, models.ReservationCancelled); stErr != nil {
			c.Logger.Error("cancel after stock failure failed", zap.String("reservationId", res.ID), zap.Error(stErr))
		}
		return nil, err
	}

	if svc.RequiresPayment {
		amount := res.Amount
		if biz.PaymentPercentage > 0 && biz.PaymentPercentage < 100 {
			amount = res.Amount * biz.PaymentPercentage / 100
		}
		url, err := c.Payments.CreatePaymentRequest(models.PaymentRequest{
			ConversationID: state.UserID + ":" + state.BusinessID,
			ReservationID:  res.ID,
			Amount:         amount,
			Currency:       currencyOrDefault(biz),
			Description:    svc.DisplayName + " - " + biz.Name,
			CustomerPhone:  state.Collected.Phone,
		})
		if err != nil {
			c.returnStock(biz, res)
			if stErr := c.Repo.UpdateStatus(res.ID, models.ReservationCancelled); stErr != nil {
				c.Logger.Error("cancel after payment failure failed", zap.String("reservationId", res.ID), zap.Error(stErr))
			}
			return nil, NewCommitError("create payment request", err.Error())
		}
		pending := &models.PendingPayment{
			ConversationID: state.UserID + ":" + state.BusinessID,
			ReservationID:  res.ID,
			PaymentURL:     url,
			Amount:         amount,
			Currency:       currencyOrDefault(biz),
			Status:         "pending",
			CreatedAt:      now,
		}
		if err := c.Repo.SavePendingPayment(pending); err != nil {
			c.Logger.Error("pending payment save failed", zap.String("reservationId", res.ID), zap.Error(err))
		}
		return &CommitResult{Reservation: res, RequiresPayment: true, PaymentURL: url}, nil
	}

	c.scheduleReminder(res)
	return &CommitResult{Reservation: res}, nil
}

// ConfirmPendingPayment resolves a payment-gated reservation after external
// verification. Success confirms it; failure cancels it and restores stock.
func (c *Committer) ConfirmPendingPayment(biz *models.Business, conversationID string, success bool) (*models.Reservation, error) {
	pending, err := c.Repo.GetPendingPayment(conversationID)
	if err != nil {
		return nil, NewCommitError("load pending payment", err.Error())
	}
	if pending == nil {
		return nil, nil
	}
	res, err := c.Repo.GetByID(pending.ReservationID)
	if err != nil || res == nil {
		return nil, NewCommitError("load reservation", "reservation "+pending.ReservationID+" not found")
	}
	if res.Status != models.ReservationProvisional {
		return res, nil
	}
	if success {
		if err := c.Repo.UpdateStatus(res.ID, models.ReservationConfirmed); err != nil {
			return nil, NewCommitError("confirm reservation", err.Error())
		}
		res.Status = models.ReservationConfirmed
		c.scheduleReminder(res)
		return res, nil
	}
	if err := c.Repo.UpdateStatus(res.ID, models.ReservationCancelled); err != nil {
		return nil, NewCommitError("cancel reservation", err.Error())
	}
	res.Status = models.ReservationCancelled
	c.returnStock(biz, res)
	return res, nil
}

// Cancel voids an active reservation and returns any stock it held.
func (c *Committer) Cancel(biz *models.Business, reservationID string) error {
	res, err := c.Repo.GetByID(reservationID)
	if err != nil || res == nil {
		return NewCommitError("load reservation", "reservation "+reservationID+" not found")
	}
	if res.Status == models.ReservationCancelled {
		return nil
	}
	if err := c.Repo.UpdateStatus(res.ID, models.ReservationCancelled); err != nil {
		return NewCommitError("cancel reservation", err.Error())
	}
	res.Status = models.ReservationCancelled
	c.returnStock(biz, res)
	return nil
}

// takeStock decrements every stock-tracked item, rolling back the ones
// already taken when a later one fails.
func (c *Committer) takeStock(biz *models.Business, res *models.Reservation) error {
	var taken []models.ProductSelection
	for _, sel := range res.Products {
		p, ok := biz.ProductByID(sel.ProductID)
		if !ok || !p.TrackStock {
			continue
		}
		if err := c.Repo.DecrementStock(biz.ID, sel.ProductID, sel.Quantity); err != nil {
			c.Logger.Warn("stock decrement failed",
				zap.String("businessId", biz.ID),
				zap.String("productId", sel.ProductID),
				zap.Int("qty", sel.Quantity),
				zap.Error(err))
			for _, t := range taken {
				if incErr := c.Repo.IncrementStock(biz.ID, t.ProductID, t.Quantity); incErr != nil {
					c.Logger.Error("stock rollback failed", zap.String("productId", t.ProductID), zap.Error(incErr))
				}
			}
			return NewCommitError("reserve stock", "insufficient stock for "+sel.ProductID)
		}
		taken = append(taken, sel)
	}
	return nil
}

func (c *Committer) returnStock(biz *models.Business, res *models.Reservation) {
	for _, sel := range res.Products {
		p, ok := biz.ProductByID(sel.ProductID)
		if !ok || !p.TrackStock {
			continue
		}
		if err := c.Repo.IncrementStock(biz.ID, sel.ProductID, sel.Quantity); err != nil {
			c.Logger.Error("stock restore failed", zap.String("productId", sel.ProductID), zap.Error(err))
		}
	}
}

func currencyOrDefault(biz *models.Business) string {
	if biz.Currency != "" {
		return biz.Currency
	}
	return "usd"
}

func (c *Committer) scheduleReminder(res *models.Reservation) {
	if c.Reminders == nil {
		return
	}
	if err := c.Reminders.ScheduleReminder(res); err != nil {
		c.Logger.Warn("reminder scheduling failed", zap.String("reservationId", res.ID), zap.Error(err))
	}
}
