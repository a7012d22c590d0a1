package billing

import (
	"net/url"
	"strconv"

	"corporate/internal/types"
)

// BillingModality selects how payment is collected.
type BillingModality string

const (
	ModalityChargeAutomatically BillingModality = "charge_automatically"
	ModalitySendInvoice         BillingModality = "send_invoice"
)

// BillingSchedule selects the billing frequency.
type BillingSchedule string

const (
	ScheduleMonthly BillingSchedule = "monthly"
	ScheduleAnnual  BillingSchedule = "annual"
)

// LicenseManagement selects whether the license count tracks the seat count
// automatically or is fixed by hand.
type LicenseManagement string

const (
	LicenseAutomatic LicenseManagement = "automatic"
	LicenseManual    LicenseManagement = "manual"
)

var (
	validBillingModalities = map[BillingModality]bool{
		ModalityChargeAutomatically: true,
		ModalitySendInvoice:         true,
	}
	validBillingSchedules = map[BillingSchedule]bool{
		ScheduleMonthly: true,
		ScheduleAnnual:  true,
	}
	validLicenseManagement = map[LicenseManagement]bool{
		LicenseAutomatic: true,
		LicenseManual:    true,
	}
)

// Pricing and invoicing constants surfaced on the render path. Display
// prices are per seat, in cents.
const (
	MinInvoicedLicenses        = 30
	DefaultInvoiceDaysUntilDue = 30
	AnnualPriceCents           = 8000
	MonthlyPriceCents          = 800
	PlanName                   = "Cloud Standard"
)

// UpgradeRequest is the validated set of raw upgrade parameters. The signed
// seat count and salt are passed through untouched: their correctness is
// the Signer's job, applied by the session when building the intent.
type UpgradeRequest struct {
	BillingModality   BillingModality
	Schedule          BillingSchedule
	SignedSeatCount   string
	Salt              string
	Onboarding        bool
	LicenseManagement LicenseManagement // empty means "infer from Licenses"
	Licenses          *int
}

// UpgradeIntent is the canonical, tamper-checked description of one upgrade
// handed to the payment back-end. Constructed per request, validated once,
// then discarded.
type UpgradeIntent struct {
	BillingModality   BillingModality
	Schedule          BillingSchedule
	SeatCount         int
	Onboarding        bool
	LicenseManagement LicenseManagement
	Licenses          *int
}

// ParseUpgradeRequest constrains raw form values to the fixed enumerations
// before any side effect occurs. Checks run cheapest-first and fail on the
// first offending field. It is a pure function of its input.
func ParseUpgradeRequest(values url.Values) (*UpgradeRequest, error) {
	modality := BillingModality(values.Get("billing_modality"))
	if !validBillingModalities[modality] {
		return nil, types.NewAppError(
			types.ErrCodeValidationInvalidModality,
			"Invalid billing_modality",
			nil,
		)
	}

	schedule := BillingSchedule(values.Get("schedule"))
	if !validBillingSchedules[schedule] {
		return nil, types.NewAppError(
			types.ErrCodeValidationInvalidSchedule,
			"Invalid schedule",
			nil,
		)
	}

	signedSeatCount := values.Get("signed_seat_count")
	if signedSeatCount == "" {
		return nil, missingField("signed_seat_count")
	}
	salt := values.Get("salt")
	if salt == "" {
		return nil, missingField("salt")
	}

	onboarding, err := parseOptionalBool(values, "onboarding")
	if err != nil {
		return nil, err
	}

	var management LicenseManagement
	if raw := values.Get("license_management"); raw != "" {
		management = LicenseManagement(raw)
		if !validLicenseManagement[management] {
			return nil, types.NewAppError(
				types.ErrCodeValidationInvalidLicenses,
				"Invalid license_management",
				nil,
			)
		}
	}

	var licenses *int
	if raw := values.Get("licenses"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, types.NewAppError(
				types.ErrCodeValidationInvalidLicenses,
				"licenses must be an integer",
				nil,
			)
		}
		licenses = &n
	}

	return &UpgradeRequest{
		BillingModality:   modality,
		Schedule:          schedule,
		SignedSeatCount:   signedSeatCount,
		Salt:              salt,
		Onboarding:        onboarding,
		LicenseManagement: management,
		Licenses:          licenses,
	}, nil
}

// parseOptionalBool coerces a boolean-shaped value ("true"/"false"),
// defaulting to false when absent.
func parseOptionalBool(values url.Values, field string) (bool, error) {
	raw := values.Get(field)
	if raw == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, types.NewAppError(
			types.ErrCodeValidationInvalidBool,
			field+" must be a boolean",
			nil,
		)
	}
	return b, nil
}

func missingField(field string) *types.AppError {
	return types.NewAppErrorWithDetails(
		types.ErrCodeValidationMissingField,
		"Missing required field: "+field,
		nil,
		map[string]any{"field": field},
	)
}
