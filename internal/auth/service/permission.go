package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/aussiebroadwan/gatekeeper/internal/auth/domain"
	"github.com/aussiebroadwan/gatekeeper/internal/auth/store"
	"github.com/aussiebroadwan/gatekeeper/pkg/slogx"
)

type PermissionService struct {
	Store store.Store
}

func (s *PermissionService) CreatePermission(ctx context.Context, resource, action, description string) (domain.Permission, error) {
	ra, err := domain.NewResourceAction(resource, action)
	if err != nil {
		return domain.Permission{}, err
	}
	p, err := domain.NewPermission(ra, description)
	if err != nil {
		return domain.Permission{}, err
	}

	if _, err := s.Store.Permissions().GetPermissionByName(ctx, p.Name()); err == nil {
		return domain.Permission{}, alreadyExists("permission", p.Name())
	} else if !errors.Is(err, store.ErrNotFound) {
		return domain.Permission{}, err
	}

	if err := s.Store.Permissions().CreatePermission(ctx, p); err != nil {
		return domain.Permission{}, storeErr(err, "permission", p.Name())
	}
	slogx.FromContext(ctx).Info("permission created", slog.String("permission", p.Name()))
	return p, nil
}

func (s *PermissionService) UpdatePermissionDescription(ctx context.Context, id, description string) (domain.Permission, error) {
	p, err := s.GetPermission(ctx, id)
	if err != nil {
		return domain.Permission{}, err
	}
	before := p.Description()
	if err := p.UpdateDescription(description); err != nil {
		return domain.Permission{}, err
	}
	if p.Description() == before {
		return p, nil
	}
	if err := s.Store.Permissions().UpdatePermission(ctx, p); err != nil {
		return domain.Permission{}, storeErr(err, "permission", id)
	}
	return p, nil
}

// DeletePermission also strips it from every role holding it.
func (s *PermissionService) DeletePermission(ctx context.Context, id string) error {
	if err := s.Store.Permissions().DeletePermission(ctx, id); err != nil {
		return storeErr(err, "permission", id)
	}
	slogx.FromContext(ctx).Info("permission deleted", slog.String("permission_id", id))
	return nil
}

func (s *PermissionService) GetPermission(ctx context.Context, id string) (domain.Permission, error) {
	p, err := s.Store.Permissions().GetPermissionByID(ctx, id)
	return p, storeErr(err, "permission", id)
}

func (s *PermissionService) ListPermissions(ctx context.Context) ([]domain.Permission, error) {
	return s.Store.Permissions().ListPermissions(ctx)
}
