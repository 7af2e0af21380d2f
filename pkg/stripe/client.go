package stripe

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/paymentintent"
	"github.com/stripe/stripe-go/v84/paymentmethod"

	"github.com/synqsell/synqsell-backend/pkg/config"
	pkgerrors "github.com/synqsell/synqsell-backend/pkg/errors"
	"github.com/synqsell/synqsell-backend/pkg/logger"
)

const (
	testEnv = "test"
	liveEnv = "live"
)

var (
	errAPIKeyRequired   = errors.New("stripe api key is required")
	errInvalidStripeEnv = fmt.Errorf("stripe environment must be %q or %q", testEnv, liveEnv)
)

// Client wraps Stripe's API client plus env-specific metadata.
type Client struct {
	api         *stripe.Client
	environment string
}

// NewClient initializes Stripe once with the configured secrets and env.
func NewClient(ctx context.Context, cfg config.StripeConfig, logg *logger.Logger) (*Client, error) {
	env, err := normalizeEnv(cfg.Environment())
	if err != nil {
		return nil, err
	}

	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errAPIKeyRequired
	}

	if err := validateAPIKey(env, apiKey); err != nil {
		return nil, err
	}

	api := stripe.NewClient(apiKey)
	stripe.Key = apiKey

	if logg != nil {
		logg.Info(ctx, fmt.Sprintf("stripe client initialized (%s)", env))
	}

	return &Client{
		api:         api,
		environment: env,
	}, nil
}

// API returns the underlying Stripe API client.
func (c *Client) API() *stripe.Client {
	if c == nil {
		return nil
	}
	return c.api
}

// Environment reports the normalized Stripe environment in use.
func (c *Client) Environment() string {
	if c == nil {
		return ""
	}
	return c.environment
}

// ChargeInput describes one settlement charge: a retailer customer pays,
// and the funds are transferred to the supplier's connected account.
type ChargeInput struct {
	CustomerID           string
	DestinationAccountID string
	Amount               decimal.Decimal
	Currency             string
	Description          string
}

// Charge debits the customer's card on file off-session and routes the funds
// to the destination account. Returns the payment intent id.
func (c *Client) Charge(ctx context.Context, in ChargeInput) (string, error) {
	if in.CustomerID == "" || in.DestinationAccountID == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "customer and destination account are required")
	}
	if !in.Amount.IsPositive() {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "charge amount must be positive")
	}

	listParams := &stripe.PaymentMethodListParams{
		Customer: stripe.String(in.CustomerID),
		Type:     stripe.String(string(stripe.PaymentMethodTypeCard)),
	}
	listParams.Context = ctx
	iter := paymentmethod.List(listParams)

	var methodID string
	for iter.Next() {
		methodID = iter.PaymentMethod().ID
		break
	}
	if err := iter.Err(); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list payment methods")
	}
	if methodID == "" {
		return "", pkgerrors.New(pkgerrors.CodeStateConflict, "retailer has no card on file")
	}

	params := &stripe.PaymentIntentParams{
		Amount:        stripe.Int64(in.Amount.Mul(decimal.NewFromInt(100)).IntPart()),
		Currency:      stripe.String(strings.ToLower(in.Currency)),
		Customer:      stripe.String(in.CustomerID),
		PaymentMethod: stripe.String(methodID),
		OffSession:    stripe.Bool(true),
		Confirm:       stripe.Bool(true),
		Description:   stripe.String(in.Description),
		TransferData: &stripe.PaymentIntentTransferDataParams{
			Destination: stripe.String(in.DestinationAccountID),
		},
	}
	params.Context = ctx

	intent, err := paymentintent.New(params)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payment intent")
	}
	return intent.ID, nil
}

func normalizeEnv(raw string) (string, error) {
	env := strings.TrimSpace(strings.ToLower(raw))
	if env == "" {
		env = testEnv
	}
	switch env {
	case testEnv, liveEnv:
		return env, nil
	default:
		return "", errInvalidStripeEnv
	}
}

func validateAPIKey(env, key string) error {
	switch env {
	case testEnv:
		if strings.HasPrefix(key, "sk_test") || strings.HasPrefix(key, "rk_test") {
			return nil
		}
		return fmt.Errorf("stripe environment %q requires a test secret key (sk_test/rk_test)", testEnv)
	case liveEnv:
		if strings.HasPrefix(key, "sk_live") || strings.HasPrefix(key, "rk_live") {
			return nil
		}
		return fmt.Errorf("stripe environment %q requires a live secret key (sk_live/rk_live)", liveEnv)
	default:
		return errInvalidStripeEnv
	}
}
