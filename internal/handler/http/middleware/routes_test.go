package middleware

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRouteClassifier_Classify(t *testing.T) {
	c := NewRouteClassifier(
		[]string{"/app", "/api/v1/transform"},
		[]string{"/auth"},
	)

	tests := []struct {
		path string
		want RouteClass
	}{
		{"/app", RouteProtected},
		{"/app/dashboard", RouteProtected},
		{"/api/v1/transform/batch", RouteProtected},
		{"/auth/signin", RouteAuthOnly},
		{"/auth/signup", RouteAuthOnly},
		{"/", RoutePublic},
		{"/pricing", RoutePublic},
		{"/api/v1/public", RoutePublic},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Classify(tt.path))
		})
	}
}

func TestRouteClassifier_ProtectedTakesPrecedence(t *testing.T) {
	c := NewRouteClassifier([]string{"/auth/account"}, []string{"/auth"})

	assert.Equal(t, RouteProtected, c.Classify("/auth/account/settings"))
	assert.Equal(t, RouteAuthOnly, c.Classify("/auth/signin"))
}

func TestRouteClassifier_EmptyLists(t *testing.T) {
	c := NewRouteClassifier(nil, nil)
	assert.Equal(t, RoutePublic, c.Classify("/anything"))
}

func TestRouteClass_String(t *testing.T) {
	assert.Equal(t, "protected", RouteProtected.String())
	assert.Equal(t, "auth_only", RouteAuthOnly.String())
	assert.Equal(t, "public", RoutePublic.String())
}
