package payment

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"storefront/internal/models"

	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/paymentintent"
	"github.com/stripe/stripe-go/v81/paymentmethod"
)

// Defaults substituted for absent buyer and address fields so the gateway's
// validation always receives a complete document.
const (
	defaultContactName = "Customer"
	defaultAddress     = "Address"
	defaultCity        = "City"
	defaultCountry     = "Turkey"
	defaultZipCode     = "34000"
)

type StripeGateway struct{}

func NewStripeGateway(apiKey string) (*StripeGateway, error) {
	if apiKey == "" {
		return nil, errors.New("stripe secret key is empty")
	}
	stripe.Key = apiKey
	return &StripeGateway{}, nil
}

func (g *StripeGateway) Charge(ctx context.Context, req ChargeRequest) (ChargeResult, error) {
	expMonth, err := strconv.ParseInt(strings.TrimSpace(req.Card.ExpireMonth), 10, 64)
	if err != nil {
		return ChargeResult{}, &DeclineError{Message: "invalid expiry month", Code: "invalid_expiry_month"}
	}
	expYear, err := strconv.ParseInt(strings.TrimSpace(req.Card.ExpireYear), 10, 64)
	if err != nil {
		return ChargeResult{}, &DeclineError{Message: "invalid expiry year", Code: "invalid_expiry_year"}
	}

	holder := req.Card.HolderName
	if holder == "" {
		holder = defaultContactName
	}

	pmParams := &stripe.PaymentMethodParams{
		Type: stripe.String(string(stripe.PaymentMethodTypeCard)),
		Card: &stripe.PaymentMethodCardParams{
			Number:   stripe.String(strings.ReplaceAll(req.Card.Number, " ", "")),
			ExpMonth: stripe.Int64(expMonth),
			ExpYear:  stripe.Int64(expYear),
			CVC:      stripe.String(req.Card.CVC),
		},
		BillingDetails: &stripe.PaymentMethodBillingDetailsParams{
			Name:    stripe.String(holder),
			Email:   stripe.String(req.User.Email),
			Address: addressParams(req.Order.BillingAddress),
		},
	}
	pmParams.Context = ctx

	pm, err := paymentmethod.New(pmParams)
	if err != nil {
		return ChargeResult{}, wrapStripeErr(err)
	}

	piParams := &stripe.PaymentIntentParams{
		Amount:        stripe.Int64(int64(math.Round(req.Order.TotalAmount * 100))),
		Currency:      stripe.String(string(stripe.CurrencyTRY)),
		PaymentMethod: stripe.String(pm.ID),
		Confirm:       stripe.Bool(true),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled:        stripe.Bool(true),
			AllowRedirects: stripe.String("never"),
		},
		Shipping: &stripe.ShippingDetailsParams{
			Name:    stripe.String(orDefault(req.Order.ShippingAddress.ContactName, defaultContactName)),
			Address: addressParams(req.Order.ShippingAddress),
		},
	}
	piParams.Context = ctx
	piParams.AddMetadata("order_id", req.Order.ID)
	piParams.AddMetadata("user_id", req.User.ID)

	pi, err := paymentintent.New(piParams)
	if err != nil {
		return ChargeResult{}, wrapStripeErr(err)
	}
	if pi.Status != stripe.PaymentIntentStatusSucceeded {
		return ChargeResult{}, &DeclineError{
			Message: "payment was not completed",
			Code:    string(pi.Status),
		}
	}

	return ChargeResult{PaymentID: pi.ID}, nil
}

func addressParams(a models.Address) *stripe.AddressParams {
	return &stripe.AddressParams{
		Line1:      stripe.String(orDefault(a.Address, defaultAddress)),
		City:       stripe.String(orDefault(a.City, defaultCity)),
		Country:    stripe.String(orDefault(a.Country, defaultCountry)),
		PostalCode: stripe.String(orDefault(a.ZipCode, defaultZipCode)),
	}
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func wrapStripeErr(err error) error {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		return &DeclineError{Message: stripeErr.Msg, Code: string(stripeErr.Code)}
	}
	return fmt.Errorf("stripe request failed: %w", err)
}
