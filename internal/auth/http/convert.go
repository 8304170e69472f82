package http

import (
	"github.com/aussiebroadwan/gatekeeper/internal/auth/domain"
	"github.com/aussiebroadwan/gatekeeper/pkg/authsdk"
)

func toUserResponse(u *domain.User) authsdk.UserResponse {
	roles := u.Roles().Names()
	if roles == nil {
		roles = []string{}
	}
	perms := u.PermissionNames()
	if perms == nil {
		perms = []string{}
	}
	return authsdk.UserResponse{
		ID:               u.ID(),
		Email:            u.Email().String(),
		FirstName:        u.FirstName(),
		LastName:         u.LastName(),
		IsActive:         u.IsActive(),
		TwoFactorEnabled: u.OtpEnabled(),
		Roles:            roles,
		Permissions:      perms,
		LastLoginAt:      u.LastLoginAt(),
		CreatedAt:        u.CreatedAt(),
		UpdatedAt:        u.UpdatedAt(),
	}
}

func toPermissionResponse(p domain.Permission) authsdk.PermissionResponse {
	return authsdk.PermissionResponse{
		ID:          p.ID(),
		Name:        p.Name(),
		Resource:    p.Resource(),
		Action:      string(p.Action()),
		Description: p.Description(),
		CreatedAt:   p.CreatedAt(),
		UpdatedAt:   p.UpdatedAt(),
	}
}

func toRoleResponse(r *domain.Role) authsdk.RoleResponse {
	perms := r.Permissions()
	out := authsdk.RoleResponse{
		ID:          r.ID(),
		Name:        r.Name(),
		Description: r.Description(),
		IsDefault:   r.IsDefault(),
		Permissions: make([]authsdk.PermissionResponse, len(perms)),
		CreatedAt:   r.CreatedAt(),
		UpdatedAt:   r.UpdatedAt(),
	}
	for i, p := range perms {
		out.Permissions[i] = toPermissionResponse(p)
	}
	return out
}

func toFileResponse(f *domain.File, url string) authsdk.FileResponse {
	return authsdk.FileResponse{
		ID:          f.ID,
		OwnerID:     f.OwnerID,
		Name:        f.OriginalName,
		ContentType: f.ContentType,
		Size:        f.Size,
		IsPublic:    f.IsPublic,
		CreatedAt:   f.CreatedAt,
		URL:         url,
	}
}

func toTokenResponse(p *domain.TokenPair) authsdk.TokenResponse {
	return authsdk.TokenResponse{
		AccessToken:  p.AccessToken,
		RefreshToken: p.RefreshToken,
		TokenType:    p.TokenType,
		ExpiresIn:    int(p.ExpiresIn.Seconds()),
	}
}
