package model

const (
	// DefaultPageSize is the page size used when a filter does not set one.
	DefaultPageSize = 20

	// MaxPageSize is the largest page size the API accepts.
	MaxPageSize = 100
)

// NotificationFilter holds the optional predicates for a notification list
// view. Zero values mean "no predicate".
type NotificationFilter struct {
	Page       int              `validate:"min=1"`
	Limit      int              `validate:"min=1,max=100"`
	Type       NotificationType `validate:"omitempty,notification_type"`
	UnreadOnly bool
	Search     string `validate:"max=200"`
}

// DefaultNotificationFilter returns the filter applied on first load and
// after a reset.
func DefaultNotificationFilter() NotificationFilter {
	return NotificationFilter{Page: 1, Limit: DefaultPageSize}
}

// Normalize fills in missing pagination fields.
func (f NotificationFilter) Normalize() NotificationFilter {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = DefaultPageSize
	}
	if f.Limit > MaxPageSize {
		f.Limit = MaxPageSize
	}
	return f
}

// IsDefault reports whether f carries no predicates beyond pagination.
func (f NotificationFilter) IsDefault() bool {
	return f.Type == "" && !f.UnreadOnly && f.Search == ""
}

// IsDefaultFirstPage reports whether f is the unfiltered first page, the
// only view the realtime overlay is applied to.
func (f NotificationFilter) IsDefaultFirstPage() bool {
	return f.IsDefault() && f.Normalize().Page == 1
}

// ActivityFilter holds the optional predicates for an activity log view.
// Dates use the YYYY-MM-DD layout.
type ActivityFilter struct {
	Page         int              `validate:"min=1"`
	Limit        int              `validate:"min=1,max=100"`
	Category     ActivityCategory `validate:"omitempty,activity_category"`
	Severity     ActivitySeverity `validate:"omitempty,activity_severity"`
	MerchantID   string
	ActorID      string
	ResourceType string
	ResourceID   string
	StartDate    string `validate:"omitempty,datetime=2006-01-02"`
	EndDate      string `validate:"omitempty,datetime=2006-01-02"`
	Search       string `validate:"max=200"`
}

// DefaultActivityFilter returns the filter applied on first load and after
// a reset.
func DefaultActivityFilter() ActivityFilter {
	return ActivityFilter{Page: 1, Limit: DefaultPageSize}
}

// Normalize fills in missing pagination fields.
func (f ActivityFilter) Normalize() ActivityFilter {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = DefaultPageSize
	}
	if f.Limit > MaxPageSize {
		f.Limit = MaxPageSize
	}
	return f
}

// IsDefault reports whether f carries no predicates beyond pagination.
func (f ActivityFilter) IsDefault() bool {
	return f.Category == "" &&
		f.Severity == "" &&
		f.MerchantID == "" &&
		f.ActorID == "" &&
		f.ResourceType == "" &&
		f.ResourceID == "" &&
		f.StartDate == "" &&
		f.EndDate == "" &&
		f.Search == ""
}

// IsDefaultFirstPage reports whether f is the unfiltered first page.
func (f ActivityFilter) IsDefaultFirstPage() bool {
	return f.IsDefault() && f.Normalize().Page == 1
}

// Pagination describes where a page sits in a result set. Page is 1-based.
type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// Page is one page of a paginated resource.
type Page[T any] struct {
	Items      []T        `json:"items"`
	Pagination Pagination `json:"pagination"`
}

// TotalPagesFor computes the page count for total items split into pages
// of limit items.
func TotalPagesFor(total, limit int) int {
	if total <= 0 || limit <= 0 {
		return 0
	}
	return (total + limit - 1) / limit
}
