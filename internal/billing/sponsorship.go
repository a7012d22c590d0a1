package billing

import (
	"context"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"corporate/internal/types"
)

// MaxOrgURLLength bounds the sponsorship website field.
const MaxOrgURLLength = 200

// SponsorshipForm holds the parsed sponsorship submission. Field constraints
// are declared as validator tags so all complaints are collected together.
type SponsorshipForm struct {
	OrganizationType     int    `validate:"-"`
	Website              string `validate:"omitempty,url,max=200"`
	Description          string `validate:"required"`
	ExpectedTotalUsers   string `validate:"required"`
	PaidUsersCount       string `validate:"required"`
	PaidUsersDescription string `validate:"-"`
}

// StructValidator validates a struct and aggregates every failing field
// into one AppError. Implemented by core.Validator.
type StructValidator interface {
	ValidateStruct(s interface{}) *types.AppError
}

// SponsorshipTx is the all-or-nothing unit of work for one sponsorship
// submission. Either every mutation commits or none persist.
type SponsorshipTx interface {
	CreateSponsorshipRequest(ctx context.Context, req *types.SponsorshipRequest) error
	// UpdateOrgType issues a single targeted write to the org_type column.
	UpdateOrgType(ctx context.Context, orgID string, orgType types.OrgType) error
	// SetSponsorshipPending is the billing back-end's customer mutation
	// entry point, run inside the same transaction.
	SetSponsorshipPending(ctx context.Context, orgID string, pending bool) error
	GrantBillingAdmin(ctx context.Context, userID string) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// SponsorshipDB opens sponsorship transactions against the shared store.
type SponsorshipDB interface {
	BeginTx(ctx context.Context) (SponsorshipTx, error)
}

// SponsorshipNotification carries the rendered context for the outbound
// support email.
type SponsorshipNotification struct {
	RequestedBy          string
	UserRole             string
	OrganizationStringID string
	SupportURL           string
	OrganizationType     string
	Website              string
	Description          string
	ExpectedTotalUsers   string
	PaidUsersCount       string
	PaidUsersDescription string
	ReplyTo              string
}

// Notifier delivers the sponsorship notification to the support address.
type Notifier interface {
	SendSponsorshipRequest(ctx context.Context, n SponsorshipNotification) error
}

// Workflow executes sponsorship submissions: validate every field, persist
// the request, reclassify the organization, flag the customer, and grant
// the requester billing administration, all atomically. The notification
// email goes out after commit, best-effort.
type Workflow struct {
	db          SponsorshipDB
	validator   StructValidator
	notifier    Notifier
	externalURL string
	logger      *slog.Logger
}

// NewWorkflow creates a sponsorship Workflow.
func NewWorkflow(db SponsorshipDB, validator StructValidator, notifier Notifier, externalURL string, logger *slog.Logger) *Workflow {
	if logger == nil {
		logger = slog.Default()
	}
	return &Workflow{
		db:          db,
		validator:   validator,
		notifier:    notifier,
		externalURL: strings.TrimSuffix(externalURL, "/"),
		logger:      logger,
	}
}

// Submit validates the raw form values and runs the atomic transition.
// Validation failures abort before any write and report every offending
// field in one combined message.
func (w *Workflow) Submit(ctx context.Context, org *types.Organization, requester *types.User, values url.Values) error {
	form, err := w.validateForm(values)
	if err != nil {
		return err
	}
	orgType := types.OrgType(form.OrganizationType)

	tx, err := w.db.BeginTx(ctx)
	if err != nil {
		return err
	}
	// Rollback after a successful commit is a no-op.
	defer func() { _ = tx.Rollback(ctx) }()

	request := &types.SponsorshipRequest{
		ID:                   "sponsor_" + uuid.NewString(),
		OrganizationID:       org.ID,
		RequestedByID:        requester.ID,
		OrgWebsite:           form.Website,
		OrgType:              orgType,
		OrgDescription:       form.Description,
		ExpectedTotalUsers:   form.ExpectedTotalUsers,
		PaidUsersCount:       form.PaidUsersCount,
		PaidUsersDescription: form.PaidUsersDescription,
		CreatedAt:            time.Now().UTC(),
	}
	if err := tx.CreateSponsorshipRequest(ctx, request); err != nil {
		return err
	}

	// Skip the write entirely when the declared type matches the current
	// one; the row's last-modified marker must not move on a no-op.
	if org.OrgType != orgType {
		if err := tx.UpdateOrgType(ctx, org.ID, orgType); err != nil {
			return err
		}
	}

	if err := tx.SetSponsorshipPending(ctx, org.ID, true); err != nil {
		return err
	}

	if err := tx.GrantBillingAdmin(ctx, requester.ID); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	// Post-commit notification. A delivery failure is logged, not retried,
	// and never fails the submission.
	notification := SponsorshipNotification{
		RequestedBy:          requester.FullName,
		UserRole:             requester.Role.DisplayName(),
		OrganizationStringID: org.StringID,
		SupportURL:           w.supportURL(org),
		OrganizationType:     orgType.DisplayName(),
		Website:              form.Website,
		Description:          form.Description,
		ExpectedTotalUsers:   form.ExpectedTotalUsers,
		PaidUsersCount:       form.PaidUsersCount,
		PaidUsersDescription: form.PaidUsersDescription,
		ReplyTo:              requester.Email,
	}
	if err := w.notifier.SendSponsorshipRequest(ctx, notification); err != nil {
		w.logger.Warn("sponsorship notification delivery failed",
			"organization_id", org.ID,
			"error", err,
		)
	}

	return nil
}

// validateForm parses and validates the raw values, aggregating every field
// complaint into a single expected billing error.
func (w *Workflow) validateForm(values url.Values) (*SponsorshipForm, error) {
	var messages []string

	// The page posts the type under "organization-type"; accept the
	// underscore form as well for API callers.
	rawType := values.Get("organization-type")
	if rawType == "" {
		rawType = values.Get("organization_type")
	}

	orgType := 0
	typeParsed := false
	if rawType == "" {
		messages = append(messages, "organization_type: This field is required.")
	} else if n, err := strconv.Atoi(rawType); err != nil {
		messages = append(messages, "organization_type: Enter a whole number.")
	} else {
		orgType = n
		typeParsed = true
	}

	form := &SponsorshipForm{
		OrganizationType:     orgType,
		Website:              values.Get("website"),
		Description:          values.Get("description"),
		ExpectedTotalUsers:   values.Get("expected_total_users"),
		PaidUsersCount:       values.Get("paid_users_count"),
		PaidUsersDescription: values.Get("paid_users_description"),
	}

	if appErr := w.validator.ValidateStruct(form); appErr != nil {
		messages = append(messages, appErr.Message)
	}

	if typeParsed && !types.OrgType(orgType).IsValid() {
		messages = append(messages, "organization_type: Select a valid choice.")
	}

	if len(messages) > 0 {
		return nil, FormValidationError(strings.Join(messages, " "))
	}
	return form, nil
}

// supportURL builds the staff support link for an organization.
func (w *Workflow) supportURL(org *types.Organization) string {
	return w.externalURL + "/support?q=" + url.QueryEscape(org.StringID)
}
