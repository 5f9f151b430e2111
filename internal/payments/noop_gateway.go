package payments

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/katlegobruce88/quickcart/internal/domain"
)

// NoopGateway approves every authorization. It backs local development when
// no Stripe key is configured.
type NoopGateway struct{}

func (NoopGateway) Authorize(_ context.Context, checkoutToken string, _ domain.Money) (string, error) {
	return fmt.Sprintf("noop-%s-%s", checkoutToken, uuid.NewString()), nil
}

func (NoopGateway) Capture(context.Context, string) error {
	return nil
}
