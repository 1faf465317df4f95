package model

import "time"

// ActivityCategory groups activity log entries by business area.
type ActivityCategory string

const (
	CategoryAuth       ActivityCategory = "auth"
	CategoryMerchant   ActivityCategory = "merchant"
	CategoryGiftCard   ActivityCategory = "gift_card"
	CategoryOrder      ActivityCategory = "order"
	CategoryPayment    ActivityCategory = "payment"
	CategoryRedemption ActivityCategory = "redemption"
	CategorySystem     ActivityCategory = "system"
)

// ActivityCategories lists every known category.
var ActivityCategories = []ActivityCategory{
	CategoryAuth,
	CategoryMerchant,
	CategoryGiftCard,
	CategoryOrder,
	CategoryPayment,
	CategoryRedemption,
	CategorySystem,
}

// ActivitySeverity ranks how significant an activity entry is.
type ActivitySeverity string

const (
	SeverityInfo     ActivitySeverity = "info"
	SeverityWarning  ActivitySeverity = "warning"
	SeverityError    ActivitySeverity = "error"
	SeverityCritical ActivitySeverity = "critical"
)

// ActivitySeverities lists every known severity from least to most severe.
var ActivitySeverities = []ActivitySeverity{
	SeverityInfo,
	SeverityWarning,
	SeverityError,
	SeverityCritical,
}

// ActivityLog is an immutable audit entry describing something an actor
// did in the marketplace.
type ActivityLog struct {
	ID           string           `json:"id"`
	CreatedAt    time.Time        `json:"createdAt"`
	ActorID      string           `json:"actorId,omitempty"`
	ActorType    string           `json:"actorType,omitempty"`
	Action       string           `json:"action"`
	Category     ActivityCategory `json:"category"`
	Severity     ActivitySeverity `json:"severity"`
	Description  string           `json:"description"`
	ResourceType string           `json:"resourceType,omitempty"`
	ResourceID   string           `json:"resourceId,omitempty"`

	// Metadata is an open key-value bag supplied by the server.
	Metadata map[string]any `json:"metadata,omitempty"`

	MerchantID string `json:"merchantId,omitempty"`
	IPAddress  string `json:"ipAddress,omitempty"`
	UserAgent  string `json:"userAgent,omitempty"`
}

// ActivityLogID returns the identity of an activity log entry.
func ActivityLogID(a ActivityLog) string { return a.ID }
