package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nhle/giftcard-console/internal/model"
)

// The API answers the same endpoint with several envelopes. Every shape is
// converted to model types right here; nothing past this file sees the
// raw forms.

var errUnrecognized = errors.New("unrecognized response shape")

// listEnvelope is the union of every known list response shape.
type listEnvelope struct {
	Data          json.RawMessage   `json:"data"`
	Items         json.RawMessage   `json:"items"`
	Notifications json.RawMessage   `json:"notifications"`
	Logs          json.RawMessage   `json:"logs"`
	Pagination    *paginationFields `json:"pagination"`

	paginationFields
}

type paginationFields struct {
	Page       *int `json:"page"`
	Limit      *int `json:"limit"`
	Total      *int `json:"total"`
	TotalPages *int `json:"totalPages"`
}

// decodePage converts any list shape into a Page. req supplies the page
// and limit when the response omits them.
func decodePage[T any](raw []byte, req model.Pagination) (model.Page[T], error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return model.Page[T]{}, fmt.Errorf("decoding list: %w", errUnrecognized)
	}

	if raw[0] == '[' {
		var items []T
		if err := json.Unmarshal(raw, &items); err != nil {
			return model.Page[T]{}, fmt.Errorf("decoding list: %w", err)
		}
		return finishPage(items, paginationFields{}, req), nil
	}

	var env listEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return model.Page[T]{}, fmt.Errorf("decoding list: %w", err)
	}

	pag := env.paginationFields
	if env.Pagination != nil {
		pag = mergePagination(*env.Pagination, pag)
	}

	data := bytes.TrimSpace(env.Data)
	switch {
	case len(data) > 0 && data[0] == '[':
		var items []T
		if err := json.Unmarshal(data, &items); err != nil {
			return model.Page[T]{}, fmt.Errorf("decoding list data: %w", err)
		}
		return finishPage(items, pag, req), nil

	case len(data) > 0 && data[0] == '{':
		inner, err := decodePage[T](data, req)
		if err != nil {
			return model.Page[T]{}, err
		}
		return overridePagination(inner, pag), nil
	}

	for _, candidate := range []json.RawMessage{env.Items, env.Notifications, env.Logs} {
		candidate = bytes.TrimSpace(candidate)
		if len(candidate) == 0 || candidate[0] != '[' {
			continue
		}
		var items []T
		if err := json.Unmarshal(candidate, &items); err != nil {
			return model.Page[T]{}, fmt.Errorf("decoding list items: %w", err)
		}
		return finishPage(items, pag, req), nil
	}

	return model.Page[T]{}, fmt.Errorf("decoding list: %w", errUnrecognized)
}

func mergePagination(primary, fallback paginationFields) paginationFields {
	if primary.Page == nil {
		primary.Page = fallback.Page
	}
	if primary.Limit == nil {
		primary.Limit = fallback.Limit
	}
	if primary.Total == nil {
		primary.Total = fallback.Total
	}
	if primary.TotalPages == nil {
		primary.TotalPages = fallback.TotalPages
	}
	return primary
}

// overridePagination applies outer pagination fields over an already
// decoded inner page.
func overridePagination[T any](p model.Page[T], outer paginationFields) model.Page[T] {
	if outer.Page != nil {
		p.Pagination.Page = *outer.Page
	}
	if outer.Limit != nil {
		p.Pagination.Limit = *outer.Limit
	}
	if outer.Total != nil {
		p.Pagination.Total = *outer.Total
	}
	if outer.TotalPages != nil {
		p.Pagination.TotalPages = *outer.TotalPages
	}
	if outer.Total != nil && outer.TotalPages == nil {
		p.Pagination.TotalPages = model.TotalPagesFor(p.Pagination.Total, p.Pagination.Limit)
	}
	return p
}

func finishPage[T any](items []T, pag paginationFields, req model.Pagination) model.Page[T] {
	if items == nil {
		items = []T{}
	}
	out := model.Pagination{Page: req.Page, Limit: req.Limit}
	if pag.Page != nil && *pag.Page > 0 {
		out.Page = *pag.Page
	}
	if pag.Limit != nil && *pag.Limit > 0 {
		out.Limit = *pag.Limit
	}
	if out.Page < 1 {
		out.Page = 1
	}
	if out.Limit < 1 {
		out.Limit = len(items)
	}

	switch {
	case pag.Total != nil:
		out.Total = *pag.Total
	case len(items) > 0:
		// No total: assume everything up to this page is all there is.
		out.Total = (out.Page-1)*out.Limit + len(items)
	}

	if pag.TotalPages != nil && *pag.TotalPages > 0 {
		out.TotalPages = *pag.TotalPages
	} else {
		out.TotalPages = model.TotalPagesFor(out.Total, out.Limit)
	}

	return model.Page[T]{Items: items, Pagination: out}
}

// countEnvelope is the union of every known count response shape.
type countEnvelope struct {
	Count       *int            `json:"count"`
	UnreadCount *int            `json:"unreadCount"`
	Data        json.RawMessage `json:"data"`
}

// decodeCount converts {count}, {unreadCount}, {data:{...}}, {data:n} or
// a bare number into an int.
func decodeCount(raw []byte) (int, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return 0, fmt.Errorf("decoding count: %w", errUnrecognized)
	}

	if raw[0] != '{' {
		var n int
		if err := json.Unmarshal(raw, &n); err != nil {
			return 0, fmt.Errorf("decoding count: %w", err)
		}
		return n, nil
	}

	var env countEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return 0, fmt.Errorf("decoding count: %w", err)
	}
	switch {
	case env.UnreadCount != nil:
		return *env.UnreadCount, nil
	case env.Count != nil:
		return *env.Count, nil
	case len(bytes.TrimSpace(env.Data)) > 0:
		return decodeCount(env.Data)
	}
	return 0, fmt.Errorf("decoding count: %w", errUnrecognized)
}

// decodeRecord unwraps {data:{...}}, {<key>:{...}} or a bare object into
// T. keys lists the named wrappers to try after "data".
func decodeRecord[T any](raw []byte, keys ...string) (T, error) {
	var zero T
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return zero, fmt.Errorf("decoding record: %w", errUnrecognized)
	}

	var wrappers map[string]json.RawMessage
	if err := json.Unmarshal(raw, &wrappers); err != nil {
		return zero, fmt.Errorf("decoding record: %w", err)
	}
	for _, key := range append([]string{"data"}, keys...) {
		inner := bytes.TrimSpace(wrappers[key])
		if len(inner) > 0 && inner[0] == '{' {
			return decodeRecord[T](inner, keys...)
		}
	}

	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		return zero, fmt.Errorf("decoding record: %w", err)
	}
	return out, nil
}

// DecodeNotificationPush decodes the payload of a new_notification event.
func DecodeNotificationPush(raw json.RawMessage) (model.Notification, error) {
	n, err := decodeRecord[model.Notification](raw, "notification")
	if err != nil {
		return model.Notification{}, err
	}
	if n.ID == "" {
		return model.Notification{}, fmt.Errorf("decoding notification push: missing id")
	}
	return n, nil
}

// DecodeActivityPush decodes the payload of a new_activity_log event.
func DecodeActivityPush(raw json.RawMessage) (model.ActivityLog, error) {
	a, err := decodeRecord[model.ActivityLog](raw, "log", "activityLog")
	if err != nil {
		return model.ActivityLog{}, err
	}
	if a.ID == "" {
		return model.ActivityLog{}, fmt.Errorf("decoding activity push: missing id")
	}
	return a, nil
}

// DecodeUnreadCountPush decodes the payload of an unread_count event.
func DecodeUnreadCountPush(raw json.RawMessage) (int, error) {
	return decodeCount(raw)
}
