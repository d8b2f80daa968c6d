package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/coopsuite/copay/internal/identity"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func actorProbe(t *testing.T, s *Server, extra ...gin.HandlerFunc) (*gin.Engine, *identity.Actor) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	captured := &identity.Actor{}
	engine := gin.New()
	engine.Use(ErrorHandlingMiddleware(), s.ActorContext())

	handlers := append(extra, func(c *gin.Context) {
		if actor, ok := identity.FromContext(c.Request.Context()); ok {
			*captured = actor
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	engine.GET("/probe", handlers...)
	return engine, captured
}

func doProbe(engine *gin.Engine, headers map[string]string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	for key, value := range headers {
		req.Header.Set(key, value)
	}
	engine.ServeHTTP(rec, req)
	return rec
}

func TestActorContextParsesHeaders(t *testing.T) {
	s := &Server{}
	engine, captured := actorProbe(t, s)

	rec := doProbe(engine, map[string]string{
		"X-User-Id":        "7001",
		"X-User-Role":      identity.RoleCooperativeAdmin,
		"X-Cooperative-Id": "100",
	})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(7001), captured.UserID)
	assert.Equal(t, int64(100), captured.CooperativeID)
	assert.Equal(t, identity.RoleCooperativeAdmin, captured.Role)
}

func TestActorContextDefaultsUnknownRoleToMember(t *testing.T) {
	s := &Server{}
	engine, captured := actorProbe(t, s)

	rec := doProbe(engine, map[string]string{
		"X-User-Id":   "7001",
		"X-User-Role": "superuser",
	})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, identity.RoleMember, captured.Role)
}

func TestActorContextPassesAnonymousThrough(t *testing.T) {
	s := &Server{}
	engine, captured := actorProbe(t, s)

	for name, headers := range map[string]map[string]string{
		"no headers":  nil,
		"bad user id": {"X-User-Id": "abc"},
		"zero user":   {"X-User-Id": "0"},
	} {
		t.Run(name, func(t *testing.T) {
			rec := doProbe(engine, headers)
			require.Equal(t, http.StatusOK, rec.Code)
			assert.Zero(t, captured.UserID)
		})
	}
}

func TestRequireActor(t *testing.T) {
	s := &Server{}
	engine, _ := actorProbe(t, s, s.RequireActor())

	rec := doProbe(engine, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doProbe(engine, map[string]string{"X-User-Id": "7001"})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireRole(t *testing.T) {
	s := &Server{}
	engine, _ := actorProbe(t, s, s.RequireRole(identity.RoleCooperativeAdmin, identity.RolePlatformAdmin))

	t.Run("anonymous is unauthorized", func(t *testing.T) {
		rec := doProbe(engine, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("member is forbidden", func(t *testing.T) {
		rec := doProbe(engine, map[string]string{"X-User-Id": "7001"})
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("cooperative admin passes", func(t *testing.T) {
		rec := doProbe(engine, map[string]string{
			"X-User-Id":   "7001",
			"X-User-Role": identity.RoleCooperativeAdmin,
		})
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("platform admin passes", func(t *testing.T) {
		rec := doProbe(engine, map[string]string{
			"X-User-Id":   "7001",
			"X-User-Role": identity.RolePlatformAdmin,
		})
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}
