package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edusuite/school-api/internal/middleware"
	"github.com/edusuite/school-api/internal/models"
)

func testContext(t *testing.T, target string) *gin.Context {
	t.Helper()
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	req, err := http.NewRequest(http.MethodGet, target, nil)
	require.NoError(t, err)
	c.Request = req
	return c
}

func TestPageParamsDefaults(t *testing.T) {
	c := testContext(t, "/students")
	page, size := pageParams(c)
	assert.Equal(t, 1, page)
	assert.Equal(t, 20, size)
}

func TestPageParamsParsesQuery(t *testing.T) {
	c := testContext(t, "/students?page=3&limit=50")
	page, size := pageParams(c)
	assert.Equal(t, 3, page)
	assert.Equal(t, 50, size)
}

func TestPageParamsRejectsGarbage(t *testing.T) {
	c := testContext(t, "/students?page=-2&limit=abc")
	page, size := pageParams(c)
	assert.Equal(t, 1, page)
	assert.Equal(t, 20, size)
}

func TestBoolQuery(t *testing.T) {
	c := testContext(t, "/students?active=true&archived=false&fuzzy=maybe")

	active := boolQuery(c, "active")
	require.NotNil(t, active)
	assert.True(t, *active)

	archived := boolQuery(c, "archived")
	require.NotNil(t, archived)
	assert.False(t, *archived)

	assert.Nil(t, boolQuery(c, "fuzzy"))
	assert.Nil(t, boolQuery(c, "missing"))
}

func TestActorFromContext(t *testing.T) {
	c := testContext(t, "/students")
	assert.Empty(t, actorFromContext(c))

	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "u1", Role: models.RoleAdmin})
	assert.Equal(t, "u1", actorFromContext(c))
}
