package billing

import (
	"errors"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Metadata keys whoever initiates a checkout attaches to the provider
// session/intent so webhook events can be tied back to a tenant.
const (
	metadataKeyOrganizationID = "organization_id"
	metadataKeyUserID         = "user_id"
	metadataKeyPlanID         = "plan_id"
)

var metadataValidate = validator.New()

// CheckoutMetadata is the validated event-processing context every handler
// depends on. OrganizationID and PlanID are required; UserID records who
// initiated the checkout and may be absent.
type CheckoutMetadata struct {
	OrganizationID uint   `validate:"required"`
	UserID         uint   `validate:"-"`
	PlanID         string `validate:"required"`
}

// ParseCheckoutMetadata decodes and validates the free-form metadata bag in a
// single step. It returns a *MissingMetadataError naming the first absent or
// malformed required field, never a panic, since provider retries can never
// make missing metadata appear.
func ParseCheckoutMetadata(bag map[string]string) (*CheckoutMetadata, error) {
	meta := &CheckoutMetadata{
		PlanID: strings.TrimSpace(bag[metadataKeyPlanID]),
	}

	if raw := strings.TrimSpace(bag[metadataKeyOrganizationID]); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			return nil, &MissingMetadataError{Field: metadataKeyOrganizationID}
		}
		meta.OrganizationID = uint(id)
	}
	if raw := strings.TrimSpace(bag[metadataKeyUserID]); raw != "" {
		if id, err := strconv.ParseUint(raw, 10, 32); err == nil {
			meta.UserID = uint(id)
		}
	}

	if err := metadataValidate.Struct(meta); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return nil, &MissingMetadataError{Field: metadataFieldName(verrs[0].Field())}
		}
		return nil, &MissingMetadataError{Field: "metadata"}
	}
	return meta, nil
}

// FailureMetadata is the context required to attribute a payment failure.
// Only the organization is required; failures carry no plan.
type FailureMetadata struct {
	OrganizationID uint `validate:"required"`
	UserID         uint `validate:"-"`
}

// ParseFailureMetadata decodes the metadata bag of a failed payment event.
func ParseFailureMetadata(bag map[string]string) (*FailureMetadata, error) {
	meta := &FailureMetadata{}
	if raw := strings.TrimSpace(bag[metadataKeyOrganizationID]); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			return nil, &MissingMetadataError{Field: metadataKeyOrganizationID}
		}
		meta.OrganizationID = uint(id)
	}
	if raw := strings.TrimSpace(bag[metadataKeyUserID]); raw != "" {
		if id, err := strconv.ParseUint(raw, 10, 32); err == nil {
			meta.UserID = uint(id)
		}
	}
	if err := metadataValidate.Struct(meta); err != nil {
		return nil, &MissingMetadataError{Field: metadataKeyOrganizationID}
	}
	return meta, nil
}

func metadataFieldName(structField string) string {
	switch structField {
	case "OrganizationID":
		return metadataKeyOrganizationID
	case "UserID":
		return metadataKeyUserID
	case "PlanID":
		return metadataKeyPlanID
	default:
		return structField
	}
}
