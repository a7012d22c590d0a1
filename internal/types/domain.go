package types

import "time"

// PlanType identifies the billing plan an organization is on. Stored on the
// organization row; transitions are owned by the billing back-end.
type PlanType string

const (
	PlanTypeLimited      PlanType = "limited"
	PlanTypeStandard     PlanType = "standard"
	PlanTypeStandardFree PlanType = "standard_free"
)

// OrgType classifies an organization for sponsorship eligibility and
// support triage. The numeric values are stable wire/database identifiers.
type OrgType int

const (
	OrgTypeUnspecified        OrgType = 0
	OrgTypeBusiness           OrgType = 10
	OrgTypeOpenSource         OrgType = 20
	OrgTypeEducationNonprofit OrgType = 30
	OrgTypeEducation          OrgType = 35
	OrgTypeResearch           OrgType = 40
	OrgTypeEvent              OrgType = 50
	OrgTypeNonprofit          OrgType = 60
	OrgTypeGovernment         OrgType = 70
	OrgTypePoliticalGroup     OrgType = 80
	OrgTypeCommunity          OrgType = 90
	OrgTypePersonal           OrgType = 100
	OrgTypeOther              OrgType = 1000
)

// orgTypeDisplayNames maps each recognized OrgType to its human-readable
// name, used in the sponsorship notification email.
var orgTypeDisplayNames = map[OrgType]string{
	OrgTypeUnspecified:        "Unspecified",
	OrgTypeBusiness:           "Business",
	OrgTypeOpenSource:         "Open-source project",
	OrgTypeEducationNonprofit: "Education (non-profit)",
	OrgTypeEducation:          "Education (for-profit)",
	OrgTypeResearch:           "Research",
	OrgTypeEvent:              "Event or conference",
	OrgTypeNonprofit:          "Non-profit (registered)",
	OrgTypeGovernment:         "Government",
	OrgTypePoliticalGroup:     "Political group",
	OrgTypeCommunity:          "Community",
	OrgTypePersonal:           "Personal",
	OrgTypeOther:              "Other",
}

// IsValid reports whether the value is one of the recognized org types.
func (t OrgType) IsValid() bool {
	_, ok := orgTypeDisplayNames[t]
	return ok
}

// DisplayName returns the human-readable name for the org type, or
// "Unspecified" for unrecognized values.
func (t OrgType) DisplayName() string {
	if name, ok := orgTypeDisplayNames[t]; ok {
		return name
	}
	return orgTypeDisplayNames[OrgTypeUnspecified]
}

// UserRole is the organization-level role of a user.
type UserRole string

const (
	RoleOwner     UserRole = "owner"
	RoleAdmin     UserRole = "admin"
	RoleModerator UserRole = "moderator"
	RoleMember    UserRole = "member"
	RoleGuest     UserRole = "guest"
)

// DisplayName returns the human-readable role name used in notifications.
func (r UserRole) DisplayName() string {
	switch r {
	case RoleOwner:
		return "Organization owner"
	case RoleAdmin:
		return "Organization administrator"
	case RoleModerator:
		return "Moderator"
	case RoleGuest:
		return "Guest"
	default:
		return "Member"
	}
}

// Organization is a tenant. org_type is the only field this service
// mutates; plan_type transitions belong to the billing back-end.
type Organization struct {
	ID        string
	StringID  string // URL-safe short identifier, e.g. "acme"
	Name      string
	OrgType   OrgType
	PlanType  PlanType
	// DemoScheduledDeletionDate is set for demo organizations that will be
	// reaped automatically; nil for regular organizations.
	DemoScheduledDeletionDate *time.Time
	CreatedAt                 time.Time
	UpdatedAt                 time.Time
}

// IsDemo reports whether this is a demo organization.
func (o *Organization) IsDemo() bool {
	return o.DemoScheduledDeletionDate != nil
}

// Customer is the billing back-end's record for an organization. Read-only
// in this service except for the sponsorship-pending flag, which is flipped
// through the back-end's mutation entry point inside the sponsorship
// transaction.
type Customer struct {
	ID                           string
	OrganizationID               string
	StripeCustomerID             string
	SponsorshipPending           bool
	DefaultDiscount              float64 // percentage, 0 when absent
	ExemptFromLicenseNumberCheck bool
	CreatedAt                    time.Time
}

// CustomerPlan is an active or scheduled plan attached to a customer.
// Only its existence matters here (redirect decisions on the render path).
type CustomerPlan struct {
	ID         string
	CustomerID string
	Name       string
	Status     string
	CreatedAt  time.Time
}

// SponsorshipRequest records one nonprofit/open-source discount application.
// Created exactly once per successful submission; immutable thereafter.
type SponsorshipRequest struct {
	ID                   string
	OrganizationID       string
	RequestedByID        string
	OrgWebsite           string
	OrgType              OrgType
	OrgDescription       string
	ExpectedTotalUsers   string
	PaidUsersCount       string
	PaidUsersDescription string
	CreatedAt            time.Time
}

// User is an organization member.
type User struct {
	ID             string
	OrganizationID string
	Email          string
	FullName       string
	Role           UserRole
	IsGuest        bool
	IsBillingAdmin bool
	IsActive       bool
	CreatedAt      time.Time
}
