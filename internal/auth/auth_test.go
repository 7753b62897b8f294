package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTRoundTrip(t *testing.T) {
	m := NewJWTManager("secret", time.Minute)
	token, err := m.GenerateAccessToken("staff-1", "desk@kystlys.no")
	require.NoError(t, err)

	claims, err := m.ParseAndValidate(token)
	require.NoError(t, err)
	assert.Equal(t, "staff-1", claims.StaffID)
	assert.Equal(t, "desk@kystlys.no", claims.Email)

	_, err = NewJWTManager("other", time.Minute).ParseAndValidate(token)
	assert.Error(t, err)

	expired, err := NewJWTManager("secret", -time.Minute).GenerateAccessToken("staff-1", "desk@kystlys.no")
	require.NoError(t, err)
	_, err = m.ParseAndValidate(expired)
	assert.Error(t, err)
}

func TestMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := NewJWTManager("secret", time.Minute)
	token, err := m.GenerateAccessToken("staff-1", "desk@kystlys.no")
	require.NoError(t, err)

	r := gin.New()
	r.GET("/staff", AuthRequired(m), func(c *gin.Context) { c.String(http.StatusOK, GetStaffID(c)) })
	r.GET("/any", OptionalAuth(m), func(c *gin.Context) { c.String(http.StatusOK, "who=%s", GetStaffID(c)) })

	tests := []struct {
		name   string
		path   string
		header string
		code   int
		body   string
	}{
		{"staff with token", "/staff", "Bearer " + token, http.StatusOK, "staff-1"},
		{"staff without token", "/staff", "", http.StatusUnauthorized, ""},
		{"staff with bad scheme", "/staff", "Basic abc", http.StatusUnauthorized, ""},
		{"staff with bad token", "/staff", "Bearer nope", http.StatusUnauthorized, ""},
		{"guest", "/any", "", http.StatusOK, "who="},
		{"guest with bad token", "/any", "Bearer nope", http.StatusOK, "who="},
		{"optional with token", "/any", "Bearer " + token, http.StatusOK, "who=staff-1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.code, w.Code)
			if tt.body != "" {
				assert.Equal(t, tt.body, w.Body.String())
			}
		})
	}
}

func TestJWTRejectsForeignIssuer(t *testing.T) {
	m := NewJWTManager("secret", time.Minute)
	claims := &Claims{
		StaffID: "staff-1",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "someone-else",
			Audience:  jwt.ClaimStrings{audience},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = m.ParseAndValidate(token)
	assert.Error(t, err)
}

func TestBcryptHasher(t *testing.T) {
	h := NewBcryptPasswordHasherWithCost(1)
	hash, err := h.Hash("fyrtårn-2025")
	require.NoError(t, err)

	assert.NoError(t, h.Compare(hash, "fyrtårn-2025"))
	assert.Error(t, h.Compare(hash, "wrong"))
	assert.False(t, h.NeedsRehash(hash))
	assert.True(t, NewBcryptPasswordHasherWithCost(6).NeedsRehash(hash))
	assert.True(t, h.NeedsRehash("not-a-hash"))
}
