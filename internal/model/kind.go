package model

// Resource kinds used as the first component of every cache key.
const (
	KindNotifications = "notifications"
	KindUnreadCount   = "notifications:unread-count"
	KindPreferences   = "notifications:preferences"
	KindActivityLogs  = "activity-logs"
)
