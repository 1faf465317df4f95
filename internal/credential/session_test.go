package credential

import (
	"testing"

	"github.com/99designs/keyring"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/giftcard-console/internal/model"
)

func newTestStore(items ...keyring.Item) *Store {
	return NewStore(keyring.NewArrayKeyring(items))
}

func signedToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return token
}

func TestSessionRoundTrip(t *testing.T) {
	store := newTestStore()
	user := &model.CachedUser{ID: "u1", Email: "ops@example.com", Role: model.RoleMerchant, MerchantID: "m1"}

	require.NoError(t, store.SaveSession(Session{
		AccessToken:  "access",
		RefreshToken: "refresh",
		User:         user,
	}))

	sess := store.LoadSession(nil)
	assert.Equal(t, "access", sess.AccessToken)
	assert.Equal(t, "refresh", sess.RefreshToken)
	require.NotNil(t, sess.User)
	assert.Equal(t, *user, *sess.User)
}

func TestLoadSessionMissingKeys(t *testing.T) {
	sess := newTestStore().LoadSession(nil)
	assert.Empty(t, sess.AccessToken)
	assert.Empty(t, sess.RefreshToken)
	assert.Nil(t, sess.User)
}

func TestLoadSessionMalformedUserIsCacheMiss(t *testing.T) {
	store := newTestStore(
		keyring.Item{Key: KeyAccessToken, Data: []byte("access")},
		keyring.Item{Key: KeyUser, Data: []byte("{not json")},
	)

	sess := store.LoadSession(nil)
	assert.Equal(t, "access", sess.AccessToken)
	assert.Nil(t, sess.User)
}

func TestClearSession(t *testing.T) {
	store := newTestStore()
	require.NoError(t, store.SaveSession(Session{AccessToken: "a", RefreshToken: "r"}))

	require.NoError(t, store.ClearSession())
	require.NoError(t, store.ClearSession(), "clearing twice must not fail")

	_, err := store.Get(KeyAccessToken)
	assert.True(t, IsNotFound(err))
}

func TestAuthContextRoleFromUser(t *testing.T) {
	ac := NewAuthContext(Session{
		AccessToken: signedToken(t, jwt.MapClaims{"role": "merchant"}),
		User:        &model.CachedUser{ID: "u1", Role: model.RoleAdmin},
	})

	role, ok := ac.Role()
	assert.True(t, ok)
	assert.Equal(t, model.RoleAdmin, role)
	assert.True(t, ac.Authenticated())
}

func TestAuthContextRoleFromTokenClaim(t *testing.T) {
	ac := NewAuthContext(Session{AccessToken: signedToken(t, jwt.MapClaims{"role": "Merchant"})})

	role, ok := ac.Role()
	assert.True(t, ok)
	assert.Equal(t, model.RoleMerchant, role)
}

func TestAuthContextUnresolvableRole(t *testing.T) {
	cases := map[string]Session{
		"opaque token":  {AccessToken: "not-a-jwt"},
		"unknown claim": {AccessToken: signedToken(t, jwt.MapClaims{"role": "customer"})},
		"no token":      {},
	}
	for name, sess := range cases {
		t.Run(name, func(t *testing.T) {
			_, ok := NewAuthContext(sess).Role()
			assert.False(t, ok)
		})
	}
}

func TestAuthContextUserIsCopy(t *testing.T) {
	ac := NewAuthContext(Session{User: &model.CachedUser{Name: "Ana"}})

	u := ac.User()
	u.Name = "changed"

	assert.Equal(t, "Ana", ac.User().Name)
}

func TestNilAuthContext(t *testing.T) {
	var ac *AuthContext
	assert.Empty(t, ac.AccessToken())
	assert.Nil(t, ac.User())
	_, ok := ac.Role()
	assert.False(t, ok)
}
