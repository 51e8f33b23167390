package service

import (
	"github.com/noah-isme/campus-connect-api/internal/models"
	appErrors "github.com/noah-isme/campus-connect-api/pkg/errors"
)

// authorizeOwner is the single ownership predicate used by every
// resource-scoped mutation: the caller must be the resource's designated
// owner, or hold the admin role.
func authorizeOwner(claims *models.JWTClaims, ownerID string) error {
	if claims == nil {
		return appErrors.ErrUnauthorized
	}
	if claims.Role == models.RoleAdmin {
		return nil
	}
	if claims.UserID != ownerID {
		return appErrors.ErrForbidden
	}
	return nil
}

// requireRole rejects callers whose role is not in the allowed set.
func requireRole(claims *models.JWTClaims, allowed ...models.UserRole) error {
	if claims == nil {
		return appErrors.ErrUnauthorized
	}
	for _, role := range allowed {
		if claims.Role == role {
			return nil
		}
	}
	return appErrors.ErrForbidden
}
