package credential

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/nhle/giftcard-console/internal/logging"
	"github.com/nhle/giftcard-console/internal/model"
)

// Session is the credential cache: tokens plus the minimal user object.
type Session struct {
	AccessToken  string
	RefreshToken string
	User         *model.CachedUser
}

// SaveSession writes every part of sess. An absent user removes the
// cached user entry.
func (s *Store) SaveSession(sess Session) error {
	if err := s.Set(KeyAccessToken, sess.AccessToken); err != nil {
		return err
	}
	if sess.RefreshToken != "" {
		if err := s.Set(KeyRefreshToken, sess.RefreshToken); err != nil {
			return err
		}
	}
	if sess.User == nil {
		return s.Delete(KeyUser)
	}
	data, err := json.Marshal(sess.User)
	if err != nil {
		return fmt.Errorf("marshaling cached user: %w", err)
	}
	return s.Set(KeyUser, string(data))
}

// ClearSession removes the tokens and the cached user.
func (s *Store) ClearSession() error {
	for _, key := range []string{KeyAccessToken, KeyRefreshToken, KeyUser} {
		if err := s.Delete(key); err != nil {
			return err
		}
	}
	return nil
}

// LoadSession reads the credential cache. Missing keys yield empty
// fields. An unparsable cached user is logged and treated as absent.
func (s *Store) LoadSession(logger *zap.Logger) Session {
	logger = logging.OrNop(logger)

	var sess Session
	sess.AccessToken = s.read(KeyAccessToken, logger)
	sess.RefreshToken = s.read(KeyRefreshToken, logger)

	raw := s.read(KeyUser, logger)
	if raw == "" {
		return sess
	}
	var user model.CachedUser
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		logger.Warn("ignoring malformed cached user", zap.Error(err))
		return sess
	}
	sess.User = &user
	return sess
}

func (s *Store) read(key string, logger *zap.Logger) string {
	value, err := s.Get(key)
	if err != nil {
		if !IsNotFound(err) {
			logger.Warn("reading credential failed", zap.String("key", key), zap.Error(err))
		}
		return ""
	}
	return value
}

// AuthContext is the read-only view of the session handed to the
// realtime and fetch layers. It is built once at startup.
type AuthContext struct {
	session Session
	role    model.Role
	hasRole bool
}

// NewAuthContext resolves the session's role and freezes it.
func NewAuthContext(sess Session) *AuthContext {
	ac := &AuthContext{session: sess}
	ac.role, ac.hasRole = resolveRole(sess)
	return ac
}

// LoadAuthContext reads the session from store and wraps it.
func LoadAuthContext(store *Store, logger *zap.Logger) *AuthContext {
	return NewAuthContext(store.LoadSession(logger))
}

// AccessToken returns the bearer token, or "" when signed out.
func (a *AuthContext) AccessToken() string {
	if a == nil {
		return ""
	}
	return a.session.AccessToken
}

// RefreshToken returns the refresh token, or "".
func (a *AuthContext) RefreshToken() string {
	if a == nil {
		return ""
	}
	return a.session.RefreshToken
}

// User returns a copy of the cached user, or nil.
func (a *AuthContext) User() *model.CachedUser {
	if a == nil || a.session.User == nil {
		return nil
	}
	u := *a.session.User
	return &u
}

// Role returns the role the session belongs to.
func (a *AuthContext) Role() (model.Role, bool) {
	if a == nil {
		return "", false
	}
	return a.role, a.hasRole
}

// Authenticated reports whether an access token is present.
func (a *AuthContext) Authenticated() bool {
	return a.AccessToken() != ""
}

// resolveRole prefers the cached user's role and falls back to the role
// claim of the access token. The token is not verified; the server does
// that on every request.
func resolveRole(sess Session) (model.Role, bool) {
	if sess.User != nil && sess.User.Role.Valid() {
		return sess.User.Role, true
	}
	return roleFromToken(sess.AccessToken)
}

func roleFromToken(token string) (model.Role, bool) {
	token = strings.TrimSpace(strings.TrimPrefix(token, "Bearer "))
	if token == "" {
		return "", false
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return "", false
	}
	raw, ok := claims["role"].(string)
	if !ok {
		return "", false
	}
	role, err := model.ParseRole(raw)
	if err != nil {
		return "", false
	}
	return role, true
}
