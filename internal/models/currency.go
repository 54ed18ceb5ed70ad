package models

import "strings"

// MinorUnit is an amount in the smallest currency subdivision. All amounts
// are carried internally in this unit.
type MinorUnit int64

// Currency is an ISO 4217 alphabetic code.
type Currency string

var zeroDecimalCurrencies = map[Currency]struct{}{
	"BIF": {}, "CLP": {}, "DJF": {}, "GNF": {}, "ISK": {}, "JPY": {}, "KMF": {}, "KRW": {},
	"PYG": {}, "RWF": {}, "UGX": {}, "VND": {}, "VUV": {}, "XAF": {}, "XOF": {}, "XPF": {},
}

var threeDecimalCurrencies = map[Currency]struct{}{
	"BHD": {}, "IQD": {}, "JOD": {}, "KWD": {}, "LYD": {}, "OMR": {}, "TND": {},
}

// Exponent is the number of minor-unit digits for the currency.
func (c Currency) Exponent() int32 {
	code := Currency(strings.ToUpper(string(c)))
	if _, ok := zeroDecimalCurrencies[code]; ok {
		return 0
	}
	if _, ok := threeDecimalCurrencies[code]; ok {
		return 3
	}
	return 2
}

func (c Currency) Upper() string {
	return strings.ToUpper(string(c))
}

func (c Currency) Lower() string {
	return strings.ToLower(string(c))
}

// Valid reports whether c looks like a three-letter ISO 4217 code.
func (c Currency) Valid() bool {
	if len(c) != 3 {
		return false
	}
	for _, r := range c {
		if !((r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z')) {
			return false
		}
	}
	return true
}
