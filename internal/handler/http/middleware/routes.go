package middleware

import "strings"

// RouteClass drives the guard's redirect policy for a request path.
type RouteClass int

const (
	// RoutePublic paths are reachable regardless of authentication state.
	RoutePublic RouteClass = iota

	// RouteProtected paths require a signed-in session; unauthenticated
	// callers are redirected to the auth entry path.
	RouteProtected

	// RouteAuthOnly paths (sign-in, sign-up) only make sense signed out;
	// authenticated callers are redirected to the app home path.
	RouteAuthOnly
)

// String returns a stable label for logs and metrics.
func (c RouteClass) String() string {
	switch c {
	case RouteProtected:
		return "protected"
	case RouteAuthOnly:
		return "auth_only"
	default:
		return "public"
	}
}

// RouteClassifier classifies request paths by configured prefix lists.
// Protected prefixes take precedence over auth-only prefixes; anything
// matching neither list is public.
type RouteClassifier struct {
	protected []string
	authOnly  []string
}

// NewRouteClassifier creates a classifier from prefix lists.
func NewRouteClassifier(protected, authOnly []string) *RouteClassifier {
	return &RouteClassifier{
		protected: protected,
		authOnly:  authOnly,
	}
}

// Classify returns the RouteClass for the given request path.
func (c *RouteClassifier) Classify(path string) RouteClass {
	for _, prefix := range c.protected {
		if strings.HasPrefix(path, prefix) {
			return RouteProtected
		}
	}
	for _, prefix := range c.authOnly {
		if strings.HasPrefix(path, prefix) {
			return RouteAuthOnly
		}
	}
	return RoutePublic
}
