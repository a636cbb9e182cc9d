package models

import (
	"time"

	"github.com/shopspring/decimal"

	"taxledger/internal/ledger"
	"taxledger/internal/taxperiod"
)

type User struct {
	ID           string    `db:"id" json:"id"`
	Username     string    `db:"username" json:"username"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

type Category struct {
	ID        string                 `json:"id"`
	Name      string                 `json:"name"`
	Type      ledger.TransactionType `json:"category_type"`
	Owner     ledger.Ownership       `json:"-"`
	CreatedAt time.Time              `json:"created_at"`
}

func (c Category) IsSystem() bool {
	return ledger.IsSystem(c.Owner)
}

type Transaction struct {
	ID              string                 `db:"id" json:"id"`
	UserID          string                 `db:"user_id" json:"-"`
	Type            ledger.TransactionType `db:"transaction_type" json:"transaction_type"`
	CategoryID      *string                `db:"category_id" json:"category_id"`
	CategoryName    *string                `db:"category_name" json:"category_name"`
	ActivityCodeID  *int64                 `db:"activity_code_id" json:"activity_code_id"`
	ActivityName    *string                `db:"activity_name" json:"activity_name"`
	Amount          decimal.Decimal        `db:"amount" json:"amount"`
	Description     string                 `db:"description" json:"description"`
	TransactionDate time.Time              `db:"transaction_date" json:"transaction_date"`
	PaymentMethod   ledger.PaymentMethod   `db:"payment_method" json:"payment_method"`
	IsBusiness      bool                   `db:"is_business" json:"is_business"`
	IsTaxable       bool                   `db:"is_taxable" json:"is_taxable"`
	CashTaxRate     decimal.NullDecimal    `db:"cash_tax_rate" json:"cash_tax_rate"`
	NonCashTaxRate  decimal.NullDecimal    `db:"non_cash_tax_rate" json:"non_cash_tax_rate"`
	CreatedAt       time.Time              `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time              `db:"updated_at" json:"updated_at"`
}

type OnboardingStatus string

const (
	OnboardingNotStarted OnboardingStatus = "not_started"
	OnboardingOrgType    OnboardingStatus = "org_type"
	OnboardingTaxRegime  OnboardingStatus = "tax_regime"
	OnboardingActivities OnboardingStatus = "activities"
	OnboardingCompleted  OnboardingStatus = "completed"
)

var onboardingOrder = map[OnboardingStatus]int{
	OnboardingNotStarted: 0,
	OnboardingOrgType:    1,
	OnboardingTaxRegime:  2,
	OnboardingActivities: 3,
	OnboardingCompleted:  4,
}

// Advance moves s to next only when next is the immediately following stage.
func (s OnboardingStatus) Advance(next OnboardingStatus) OnboardingStatus {
	if onboardingOrder[next] == onboardingOrder[s]+1 {
		return next
	}
	return s
}

type OrgType string

const (
	OrgTypeIE  OrgType = "ie"
	OrgTypeLLC OrgType = "llc"
)

func (t OrgType) Valid() bool {
	return t == OrgTypeIE || t == OrgTypeLLC
}

type TaxRegime string

const (
	TaxRegimeSingle  TaxRegime = "single"
	TaxRegimeGeneral TaxRegime = "general"
)

func (r TaxRegime) Valid() bool {
	return r == TaxRegimeSingle || r == TaxRegimeGeneral
}

type OrganizationProfile struct {
	ID                 string           `db:"id" json:"id"`
	UserID             string           `db:"user_id" json:"-"`
	OrgType            *OrgType         `db:"org_type" json:"org_type"`
	TaxRegime          *TaxRegime       `db:"tax_regime" json:"tax_regime"`
	TaxPeriodType      *string          `db:"tax_period_type" json:"tax_period_type"`
	TaxPeriodPreset    *string          `db:"tax_period_preset" json:"tax_period_preset"`
	TaxPeriodCustomDay *int             `db:"tax_period_custom_day" json:"tax_period_custom_day"`
	OnboardingStatus   OnboardingStatus `db:"onboarding_status" json:"onboarding_status"`
	CreatedAt          time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time        `db:"updated_at" json:"updated_at"`
}

func (p OrganizationProfile) TaxPolicy() taxperiod.Policy {
	var policy taxperiod.Policy
	if p.TaxPeriodType != nil {
		policy.Type = taxperiod.PolicyType(*p.TaxPeriodType)
	}
	if p.TaxPeriodPreset != nil {
		policy.Preset = taxperiod.Preset(*p.TaxPeriodPreset)
	}
	if p.TaxPeriodCustomDay != nil {
		policy.CustomDay = *p.TaxPeriodCustomDay
	}
	return policy
}

func (p OrganizationProfile) IsCompleted() bool {
	return p.OnboardingStatus == OnboardingCompleted
}

type OrganizationActivity struct {
	ID             int64           `db:"id" json:"id"`
	ProfileID      string          `db:"profile_id" json:"-"`
	ActivityCodeID int64           `db:"activity_code_id" json:"activity_code_id"`
	Code           string          `db:"code" json:"code"`
	Name           string          `db:"name" json:"name"`
	CashTaxRate    decimal.Decimal `db:"cash_tax_rate" json:"cash_tax_rate"`
	NonCashTaxRate decimal.Decimal `db:"non_cash_tax_rate" json:"non_cash_tax_rate"`
	IsPrimary      bool            `db:"is_primary" json:"is_primary"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
}

// ActivityRates is the snapshot copied onto business transactions.
type ActivityRates struct {
	CashTaxRate    decimal.Decimal `db:"cash_tax_rate"`
	NonCashTaxRate decimal.Decimal `db:"non_cash_tax_rate"`
}

type ActivityCode struct {
	ID      int64  `db:"id" json:"id"`
	Code    string `db:"code" json:"code"`
	Section string `db:"section" json:"section"`
	Name    string `db:"name" json:"name"`
}
