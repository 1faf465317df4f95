package model

import (
	"fmt"
	"strings"
)

// Role identifies one of the two user classes that own an isolated
// realtime channel.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleMerchant Role = "merchant"
)

// Roles lists every supported role in display order.
var Roles = []Role{RoleAdmin, RoleMerchant}

// Namespace returns the socket namespace scoped to the role.
func (r Role) Namespace() string {
	return "/" + string(r)
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleMerchant
}

// ParseRole converts a case-insensitive role name into a Role.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}

// ConnectionStatus is the observable state of a realtime connection.
type ConnectionStatus string

const (
	ConnectionDisconnected ConnectionStatus = "disconnected"
	ConnectionConnecting   ConnectionStatus = "connecting"
	ConnectionConnected    ConnectionStatus = "connected"
	ConnectionError        ConnectionStatus = "error"
)

// CanReconnect reports whether a manual reconnect affordance should be
// offered for the status.
func (s ConnectionStatus) CanReconnect() bool {
	return s == ConnectionDisconnected || s == ConnectionError
}

// CachedUser is the minimal user object kept next to the access token.
type CachedUser struct {
	ID         string `json:"id"`
	Email      string `json:"email"`
	Name       string `json:"name"`
	Role       Role   `json:"role"`
	MerchantID string `json:"merchantId,omitempty"`
}
