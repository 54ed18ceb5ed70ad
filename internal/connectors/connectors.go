// Package connectors lists the processors this switch ships with.
package connectors

import (
	"github.com/akylbek/payment-system/connector-switch/internal/config"
	"github.com/akylbek/payment-system/connector-switch/internal/connector"
	"github.com/akylbek/payment-system/connector-switch/internal/connectors/airwallex"
	"github.com/akylbek/payment-system/connector-switch/internal/connectors/fiserv"
	"github.com/akylbek/payment-system/connector-switch/internal/connectors/paystack"
	"github.com/akylbek/payment-system/connector-switch/internal/connectors/stripe"
	"github.com/akylbek/payment-system/connector-switch/internal/connectors/worldpay"
)

// NewRegistry builds the process-wide registry. An empty override keeps
// the connector's sandbox base URL.
func NewRegistry(overrides config.Connectors) (*connector.Registry, error) {
	return connector.NewRegistry(
		airwallex.New(overrides.BaseURL(airwallex.Name)),
		fiserv.New(overrides.BaseURL(fiserv.Name)),
		paystack.New(overrides.BaseURL(paystack.Name)),
		stripe.New(overrides.BaseURL(stripe.Name)),
		worldpay.New(overrides.BaseURL(worldpay.Name)),
	)
}
