package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/nhle/giftcard-console/internal/model"
)

// ListNotifications fetches one page of the caller's notifications.
func (c *Client) ListNotifications(
	ctx context.Context,
	f model.NotificationFilter,
) (model.Page[model.Notification], error) {
	f = f.Normalize()
	if err := c.ValidateNotificationFilter(f); err != nil {
		return model.Page[model.Notification]{}, err
	}

	body, err := c.do(ctx, http.MethodGet, "/notifications?"+notificationQuery(f).Encode(), nil)
	if err != nil {
		return model.Page[model.Notification]{}, err
	}
	page, err := decodePage[model.Notification](body, model.Pagination{Page: f.Page, Limit: f.Limit})
	if err != nil {
		return model.Page[model.Notification]{}, fmt.Errorf("listing notifications: %w", err)
	}
	return page, nil
}

func notificationQuery(f model.NotificationFilter) url.Values {
	q := url.Values{}
	q.Set("page", strconv.Itoa(f.Page))
	q.Set("limit", strconv.Itoa(f.Limit))
	if f.Type != "" {
		q.Set("type", string(f.Type))
	}
	if f.UnreadOnly {
		q.Set("unreadOnly", "true")
	}
	if f.Search != "" {
		q.Set("search", f.Search)
	}
	return q
}

// UnreadCount returns how many of the caller's notifications are unread.
func (c *Client) UnreadCount(ctx context.Context) (int, error) {
	body, err := c.do(ctx, http.MethodGet, "/notifications/unread-count", nil)
	if err != nil {
		return 0, err
	}
	n, err := decodeCount(body)
	if err != nil {
		return 0, fmt.Errorf("reading unread count: %w", err)
	}
	return n, nil
}

// MarkNotificationRead marks one notification as read.
func (c *Client) MarkNotificationRead(ctx context.Context, id string) error {
	_, err := c.do(ctx, http.MethodPatch, "/notifications/"+url.PathEscape(id)+"/read", nil)
	return err
}

// MarkAllNotificationsRead marks every notification of the caller as read.
func (c *Client) MarkAllNotificationsRead(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodPatch, "/notifications/read-all", nil)
	return err
}

// DeleteNotification removes one notification.
func (c *Client) DeleteNotification(ctx context.Context, id string) error {
	_, err := c.do(ctx, http.MethodDelete, "/notifications/"+url.PathEscape(id), nil)
	return err
}

// GetPreferences fetches the caller's notification preferences.
func (c *Client) GetPreferences(ctx context.Context) (model.NotificationPreferences, error) {
	body, err := c.do(ctx, http.MethodGet, "/notifications/preferences", nil)
	if err != nil {
		return model.NotificationPreferences{}, err
	}
	prefs, err := decodeRecord[model.NotificationPreferences](body, "preferences")
	if err != nil {
		return model.NotificationPreferences{}, fmt.Errorf("reading preferences: %w", err)
	}
	return prefs, nil
}

// UpdatePreferences saves p and returns what the server stored.
func (c *Client) UpdatePreferences(
	ctx context.Context,
	p model.NotificationPreferences,
) (model.NotificationPreferences, error) {
	for _, t := range p.MutedTypes {
		if !oneOf(t, model.NotificationTypes) {
			return model.NotificationPreferences{}, fmt.Errorf("invalid preferences: unknown notification type %q", t)
		}
	}
	if p.MutedTypes == nil {
		p.MutedTypes = []model.NotificationType{}
	}

	body, err := c.do(ctx, http.MethodPatch, "/notifications/preferences", p)
	if err != nil {
		return model.NotificationPreferences{}, err
	}
	if len(body) == 0 {
		return p, nil
	}
	saved, err := decodeRecord[model.NotificationPreferences](body, "preferences")
	if err != nil {
		return model.NotificationPreferences{}, fmt.Errorf("reading saved preferences: %w", err)
	}
	return saved, nil
}
