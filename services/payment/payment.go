package payment

import (
	"strings"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/checkout/session"
	"go.uber.org/zap"

	"reservo/models"
	"reservo/utils"
)

// Service produces hosted payment links for payment-gated reservations.
type Service interface {
	CreatePaymentRequest(req models.PaymentRequest) (string, error)
}

// StripePaymentService creates Stripe Checkout sessions. The API key is set
// globally at startup via stripe.Key.
type StripePaymentService struct {
	SuccessURL string
	CancelURL  string
}

func NewStripePaymentService(successURL, cancelURL string) *StripePaymentService {
	return &StripePaymentService{SuccessURL: successURL, CancelURL: cancelURL}
}

func (s *StripePaymentService) CreatePaymentRequest(req models.PaymentRequest) (string, error) {
	logger := utils.GetLogger()

	params := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String(strings.ToLower(req.Currency)),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(req.Description),
					},
					UnitAmount: stripe.Int64(int64(req.Amount * 100)),
				},
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL:        stripe.String(s.SuccessURL),
		CancelURL:         stripe.String(s.CancelURL),
		ClientReferenceID: stripe.String(req.ReservationID),
	}
	params.AddMetadata("conversationId", req.ConversationID)
	params.AddMetadata("reservationId", req.ReservationID)

	sess, err := session.New(params)
	if err != nil {
		logger.Error("stripe checkout session creation failed",
			zap.String("reservationId", req.ReservationID),
			zap.Error(err))
		return "", err
	}

	logger.Info("payment link created",
		zap.String("reservationId", req.ReservationID),
		zap.Float64("amount", req.Amount))
	return sess.URL, nil
}
