package models

// PaymentMethodKind tags the variant held by PaymentMethodData.
type PaymentMethodKind string

const (
	PaymentMethodCard         PaymentMethodKind = "card"
	PaymentMethodWallet       PaymentMethodKind = "wallet"
	PaymentMethodBankRedirect PaymentMethodKind = "bank_redirect"
	PaymentMethodBankTransfer PaymentMethodKind = "bank_transfer"
)

// PaymentMethodData is a tagged union; exactly the field matching Kind is set.
type PaymentMethodData struct {
	Kind         PaymentMethodKind `json:"kind"`
	Card         *Card             `json:"card,omitempty"`
	Wallet       *Wallet           `json:"wallet,omitempty"`
	BankRedirect *BankRedirect     `json:"bank_redirect,omitempty"`
	BankTransfer *BankTransfer     `json:"bank_transfer,omitempty"`
}

// Card holds raw card details. Every field is a Secret.
type Card struct {
	Number     Secret `json:"number"`
	ExpMonth   Secret `json:"exp_month"`
	ExpYear    Secret `json:"exp_year"`
	CVC        Secret `json:"cvc"`
	HolderName Secret `json:"holder_name"`
}

// ExpYear4 returns the expiry year as four digits.
func (c Card) ExpYear4() string {
	y := c.ExpYear.Expose()
	if len(y) == 2 {
		return "20" + y
	}
	return y
}

// ExpMonth2 returns the expiry month zero padded to two digits.
func (c Card) ExpMonth2() string {
	m := c.ExpMonth.Expose()
	if len(m) == 1 {
		return "0" + m
	}
	return m
}

type Wallet struct {
	Type  string `json:"type"`
	Token Secret `json:"token"`
}

type BankRedirect struct {
	Type       string `json:"type"`
	BankName   string `json:"bank_name,omitempty"`
	CountryISO string `json:"country,omitempty"`
}

type BankTransfer struct {
	Type string `json:"type"`
}

// Capability names the variant for NotImplemented errors, e.g. "wallet:apple_pay".
func (p PaymentMethodData) Capability() string {
	switch p.Kind {
	case PaymentMethodWallet:
		if p.Wallet != nil {
			return string(p.Kind) + ":" + p.Wallet.Type
		}
	case PaymentMethodBankRedirect:
		if p.BankRedirect != nil {
			return string(p.Kind) + ":" + p.BankRedirect.Type
		}
	case PaymentMethodBankTransfer:
		if p.BankTransfer != nil {
			return string(p.Kind) + ":" + p.BankTransfer.Type
		}
	}
	if p.Kind == "" {
		return "payment_method"
	}
	return string(p.Kind)
}
