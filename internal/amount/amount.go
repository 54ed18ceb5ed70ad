// Package amount converts canonical minor-unit amounts into the unit each
// connector puts on the wire. Connectors never do currency arithmetic
// themselves.
package amount

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/akylbek/payment-system/connector-switch/internal/models"
)

// Wire unit representations.
type (
	StringMajorUnit string
	FloatMajorUnit  float64
	StringMinorUnit string
)

// Convertor turns a minor-unit amount into a connector's wire unit and back.
type Convertor[T any] interface {
	Convert(amount models.MinorUnit, currency models.Currency) (T, error)
	ConvertBack(amount T, currency models.Currency) (models.MinorUnit, error)
}

type (
	minorUnitConvertor       struct{}
	stringMajorUnitConvertor struct{}
	floatMajorUnitConvertor  struct{}
	stringMinorUnitConvertor struct{}
)

var (
	MinorUnitForConnector       Convertor[models.MinorUnit] = minorUnitConvertor{}
	StringMajorUnitForConnector Convertor[StringMajorUnit]  = stringMajorUnitConvertor{}
	FloatMajorUnitForConnector  Convertor[FloatMajorUnit]   = floatMajorUnitConvertor{}
	StringMinorUnitForConnector Convertor[StringMinorUnit]  = stringMinorUnitConvertor{}
)

func conversionError(format string, args ...any) error {
	return models.NewError(models.ErrKindAmountConversionFailed, fmt.Errorf(format, args...))
}

func checkCurrency(currency models.Currency) error {
	if !currency.Valid() {
		return conversionError("invalid currency %q", currency)
	}
	return nil
}

// toMinor shifts a major-unit decimal into minor units and rejects
// sub-minor-unit precision instead of rounding it away.
func toMinor(major decimal.Decimal, currency models.Currency) (models.MinorUnit, error) {
	minor := major.Shift(currency.Exponent())
	if !minor.Equal(minor.Truncate(0)) {
		return 0, conversionError("%s has more precision than %s allows", major.String(), currency.Upper())
	}
	return models.MinorUnit(minor.IntPart()), nil
}

func (minorUnitConvertor) Convert(amount models.MinorUnit, currency models.Currency) (models.MinorUnit, error) {
	if err := checkCurrency(currency); err != nil {
		return 0, err
	}
	return amount, nil
}

func (minorUnitConvertor) ConvertBack(amount models.MinorUnit, currency models.Currency) (models.MinorUnit, error) {
	if err := checkCurrency(currency); err != nil {
		return 0, err
	}
	return amount, nil
}

func (stringMajorUnitConvertor) Convert(amount models.MinorUnit, currency models.Currency) (StringMajorUnit, error) {
	if err := checkCurrency(currency); err != nil {
		return "", err
	}
	exp := currency.Exponent()
	return StringMajorUnit(decimal.New(int64(amount), -exp).StringFixed(exp)), nil
}

func (stringMajorUnitConvertor) ConvertBack(amount StringMajorUnit, currency models.Currency) (models.MinorUnit, error) {
	if err := checkCurrency(currency); err != nil {
		return 0, err
	}
	major, err := decimal.NewFromString(string(amount))
	if err != nil {
		return 0, conversionError("parse %q: %v", amount, err)
	}
	return toMinor(major, currency)
}

func (floatMajorUnitConvertor) Convert(amount models.MinorUnit, currency models.Currency) (FloatMajorUnit, error) {
	if err := checkCurrency(currency); err != nil {
		return 0, err
	}
	f, _ := decimal.New(int64(amount), -currency.Exponent()).Float64()
	return FloatMajorUnit(f), nil
}

func (floatMajorUnitConvertor) ConvertBack(amount FloatMajorUnit, currency models.Currency) (models.MinorUnit, error) {
	if err := checkCurrency(currency); err != nil {
		return 0, err
	}
	// The float carries binary noise below the minor unit; round to it.
	major := decimal.NewFromFloat(float64(amount)).Round(currency.Exponent())
	return toMinor(major, currency)
}

func (stringMinorUnitConvertor) Convert(amount models.MinorUnit, currency models.Currency) (StringMinorUnit, error) {
	if err := checkCurrency(currency); err != nil {
		return "", err
	}
	return StringMinorUnit(decimal.NewFromInt(int64(amount)).String()), nil
}

func (stringMinorUnitConvertor) ConvertBack(amount StringMinorUnit, currency models.Currency) (models.MinorUnit, error) {
	if err := checkCurrency(currency); err != nil {
		return 0, err
	}
	minor, err := decimal.NewFromString(string(amount))
	if err != nil {
		return 0, conversionError("parse %q: %v", amount, err)
	}
	if !minor.Equal(minor.Truncate(0)) {
		return 0, conversionError("minor amount %q is fractional", amount)
	}
	return models.MinorUnit(minor.IntPart()), nil
}
