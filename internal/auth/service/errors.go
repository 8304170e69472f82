package service

import (
	"errors"
	"fmt"

	"github.com/aussiebroadwan/gatekeeper/internal/auth/domain"
	"github.com/aussiebroadwan/gatekeeper/internal/auth/store"
)

// storeErr translates store sentinels into the domain taxonomy.
func storeErr(err error, entity, key string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrNotFound):
		return domain.NotFound(entity, key)
	case errors.Is(err, store.ErrAlreadyExists):
		return alreadyExists(entity, key)
	}
	return err
}

func alreadyExists(entity, key string) error {
	return fmt.Errorf("%s %q: %w", entity, key, domain.ErrEntityAlreadyExists)
}

func forbidden(reason string) error {
	return fmt.Errorf("%w: %s", domain.ErrForbiddenAction, reason)
}
