package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/clinpath/logbook-api/internal/models"
)

func TestRequireRoles(t *testing.T) {
	gin.SetMode(gin.TestMode)

	run := func(claims *models.JWTClaims, roles ...models.UserRole) (*httptest.ResponseRecorder, bool) {
		recorder := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(recorder)
		c.Request = httptest.NewRequest(http.MethodPost, "/logbooks/lb-1/approve", nil)
		if claims != nil {
			c.Set(ContextUserKey, claims)
		}
		reached := false
		RequireRoles(roles...)(c)
		if !c.IsAborted() {
			reached = true
		}
		return recorder, reached
	}

	recorder, reached := run(&models.JWTClaims{UserID: "super-1", Role: models.RoleSupervisor}, models.RoleSupervisor)
	require.True(t, reached)
	require.Equal(t, http.StatusOK, recorder.Code)

	recorder, reached = run(&models.JWTClaims{UserID: "trainee-1", Role: models.RoleTrainee}, models.RoleSupervisor, models.RoleAdmin)
	require.False(t, reached)
	require.Equal(t, http.StatusForbidden, recorder.Code)

	recorder, reached = run(nil, models.RoleSupervisor)
	require.False(t, reached)
	require.Equal(t, http.StatusUnauthorized, recorder.Code)
}
