package payments

import (
	"context"
	"errors"
	"strings"

	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/client"
	"go.uber.org/zap"

	"github.com/katlegobruce88/quickcart/internal/domain"
)

type stripeIntentAPI interface {
	New(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
	Capture(id string, params *stripe.PaymentIntentCaptureParams) (*stripe.PaymentIntent, error)
}

// StripeGatewayConfig configures the Stripe-backed payment gateway.
type StripeGatewayConfig struct {
	APIKey   string
	Backends *stripe.Backends
	Logger   *zap.Logger
	// Intents overrides the Stripe client, for tests.
	Intents stripeIntentAPI
}

// StripeGateway authorizes checkouts as manual-capture PaymentIntents and
// captures them after order commit.
type StripeGateway struct {
	intents stripeIntentAPI
	logger  *zap.Logger
}

func NewStripeGateway(cfg StripeGatewayConfig) (*StripeGateway, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" && cfg.Intents == nil {
		return nil, errors.New("stripe: api key is required")
	}

	intents := cfg.Intents
	if intents == nil {
		sc := client.New(apiKey, cfg.Backends)
		intents = sc.PaymentIntents
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &StripeGateway{intents: intents, logger: logger}, nil
}

func (g *StripeGateway) Authorize(ctx context.Context, checkoutToken string, amount domain.Money) (string, error) {
	params := &stripe.PaymentIntentParams{
		Params: stripe.Params{
			Context: ctx,
		},
		Metadata: map[string]string{"checkout_token": checkoutToken},
		Amount:        stripe.Int64(amount.Amount),
		Currency:      stripe.String(strings.ToLower(amount.Currency)),
		CaptureMethod: stripe.String(string(stripe.PaymentIntentCaptureMethodManual)),
	}

	intent, err := g.intents.New(params)
	if err != nil {
		g.logger.Warn("stripe authorization failed",
			zap.String("checkout", checkoutToken),
			zap.Error(err),
		)
		return "", domain.ErrPaymentDeclined
	}
	if intent.Status == stripe.PaymentIntentStatusCanceled {
		return "", domain.ErrPaymentDeclined
	}
	return intent.ID, nil
}

func (g *StripeGateway) Capture(ctx context.Context, authorizationID string) error {
	params := &stripe.PaymentIntentCaptureParams{
		Params: stripe.Params{Context: ctx},
	}
	if _, err := g.intents.Capture(authorizationID, params); err != nil {
		return err
	}
	return nil
}
