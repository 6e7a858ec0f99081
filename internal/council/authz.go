package council

import "context"

// Authorizer is the boundary this engine expects an external auth
// collaborator to satisfy: resolving a caller's identity and org
// membership before any Engine method is invoked. Nothing in this
// repository implements it — httpapi's identity extraction is a
// placeholder for whatever sits in front of this service in a real
// deployment.
type Authorizer interface {
	Authorize(ctx context.Context, token string) (orgID, userID string, err error)
}
