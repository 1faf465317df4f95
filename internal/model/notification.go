package model

import "time"

// NotificationType classifies what a notification is about.
type NotificationType string

const (
	NotificationOrderCreated     NotificationType = "order_created"
	NotificationOrderCompleted   NotificationType = "order_completed"
	NotificationGiftCardRedeemed NotificationType = "gift_card_redeemed"
	NotificationGiftCardExpiring NotificationType = "gift_card_expiring"
	NotificationMerchantApproved NotificationType = "merchant_approved"
	NotificationMerchantRejected NotificationType = "merchant_rejected"
	NotificationMerchantPending  NotificationType = "merchant_pending"
	NotificationPayoutProcessed  NotificationType = "payout_processed"
	NotificationSystem           NotificationType = "system"
)

// NotificationTypes lists every known notification type.
var NotificationTypes = []NotificationType{
	NotificationOrderCreated,
	NotificationOrderCompleted,
	NotificationGiftCardRedeemed,
	NotificationGiftCardExpiring,
	NotificationMerchantApproved,
	NotificationMerchantRejected,
	NotificationMerchantPending,
	NotificationPayoutProcessed,
	NotificationSystem,
}

// Notification is an alert surfaced to an admin or merchant.
type Notification struct {
	// ID is unique among notifications.
	ID string `json:"id"`

	// RecipientID is the user the notification was addressed to.
	RecipientID string `json:"recipientId"`

	// RecipientType is the role of the recipient.
	RecipientType Role `json:"recipientType"`

	// Type classifies the notification.
	Type NotificationType `json:"type"`

	// Title is the short headline.
	Title string `json:"title"`

	// Message is the human-readable body.
	Message string `json:"message"`

	// ResourceType and ResourceID point at the related resource. They are
	// used for lookup only.
	ResourceType string `json:"resourceType,omitempty"`
	ResourceID   string `json:"resourceId,omitempty"`

	// IsRead indicates whether the recipient has seen this notification.
	IsRead bool `json:"isRead"`

	// ReadAt is when the notification was marked read.
	ReadAt *time.Time `json:"readAt,omitempty"`

	// ActorID and ActorName identify who triggered the notification.
	ActorID   string `json:"actorId,omitempty"`
	ActorName string `json:"actorName,omitempty"`

	// CreatedAt is when the notification was generated.
	CreatedAt time.Time `json:"createdAt"`
}

// NotificationID returns the identity of a notification.
func NotificationID(n Notification) string { return n.ID }

// MarkRead returns a copy of n flagged as read at the given time. Already
// read notifications keep their existing ReadAt.
func (n Notification) MarkRead(at time.Time) Notification {
	if n.IsRead {
		return n
	}
	n.IsRead = true
	n.ReadAt = &at
	return n
}

// NotificationPreferences controls which channels deliver notifications.
type NotificationPreferences struct {
	EmailEnabled bool               `json:"emailEnabled"`
	InAppEnabled bool               `json:"inAppEnabled"`
	MutedTypes   []NotificationType `json:"mutedTypes"`
}

// Muted reports whether t is muted.
func (p NotificationPreferences) Muted(t NotificationType) bool {
	for _, m := range p.MutedTypes {
		if m == t {
			return true
		}
	}
	return false
}

// CountUnread returns how many notifications in items are unread.
func CountUnread(items []Notification) int {
	count := 0
	for _, n := range items {
		if !n.IsRead {
			count++
		}
	}
	return count
}
