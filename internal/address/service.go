package address

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/quenbyco/storefront-backend/pkg/db/models"
	"github.com/quenbyco/storefront-backend/pkg/enums"
	pkgerrors "github.com/quenbyco/storefront-backend/pkg/errors"
	"github.com/quenbyco/storefront-backend/pkg/types"
	"gorm.io/gorm"
)

// TxRunner runs a function inside a database transaction.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service exposes address book management scoped to an identity.
type Service interface {
	Create(ctx context.Context, identity types.Identity, in Input) (models.Address, error)
	List(ctx context.Context, identity types.Identity) ([]models.Address, error)
	Get(ctx context.Context, identity types.Identity, id uuid.UUID) (models.Address, error)
	Delete(ctx context.Context, identity types.Identity, id uuid.UUID) error
}

// ServiceParams groups dependencies for the address service.
type ServiceParams struct {
	DB   TxRunner
	Repo *Repository
}

type service struct {
	db   TxRunner
	repo *Repository
}

// NewService builds an address service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.DB == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tx runner is required")
	}
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "address repo is required")
	}
	return &service{db: params.DB, repo: params.Repo}, nil
}

// Create validates and stores an address. Marking it default clears the
// previous default of the same type in the same transaction.
func (s *service) Create(ctx context.Context, identity types.Identity, in Input) (models.Address, error) {
	if err := identity.Validate(); err != nil {
		return models.Address{}, err
	}
	if err := ValidateInput(in); err != nil {
		return models.Address{}, err
	}
	addrType, err := enums.ParseAddressType(in.Type)
	if err != nil {
		return models.Address{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid address type")
	}

	addr := models.Address{
		UserID:     identity.UserID,
		SessionID:  identity.SessionID,
		Type:       addrType,
		FullName:   in.FullName,
		Line1:      in.Line1,
		Line2:      in.Line2,
		City:       in.City,
		Region:     in.Region,
		PostalCode: in.PostalCode,
		Country:    in.Country,
		Phone:      in.Phone,
		IsDefault:  in.IsDefault,
	}

	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repoTx := s.repo.WithTx(tx)
		if in.IsDefault {
			if err := repoTx.ClearDefault(ctx, identity, addrType); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear previous default")
			}
		}
		return repoTx.Create(ctx, &addr)
	})
	if err != nil {
		return models.Address{}, err
	}
	return addr, nil
}

// List returns the identity's address book.
func (s *service) List(ctx context.Context, identity types.Identity) ([]models.Address, error) {
	if err := identity.Validate(); err != nil {
		return nil, err
	}
	rows, err := s.repo.ListByOwner(ctx, identity)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list addresses")
	}
	return rows, nil
}

// Get returns one of the identity's addresses.
func (s *service) Get(ctx context.Context, identity types.Identity, id uuid.UUID) (models.Address, error) {
	if err := identity.Validate(); err != nil {
		return models.Address{}, err
	}
	addr, err := s.repo.FindByID(ctx, identity, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Address{}, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "address not found")
		}
		return models.Address{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load address")
	}
	return *addr, nil
}

// Delete removes one of the identity's addresses.
func (s *service) Delete(ctx context.Context, identity types.Identity, id uuid.UUID) error {
	if err := identity.Validate(); err != nil {
		return err
	}
	rows, err := s.repo.Delete(ctx, identity, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete address")
	}
	if rows == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "address not found")
	}
	return nil
}

// Snapshot freezes an address row into the denormalized shape stored on
// checkout sessions and orders.
func Snapshot(addr models.Address) types.AddressSnapshot {
	return types.AddressSnapshot{
		FullName:   addr.FullName,
		Line1:      addr.Line1,
		Line2:      addr.Line2,
		City:       addr.City,
		Region:     addr.Region,
		PostalCode: addr.PostalCode,
		Country:    addr.Country,
		Phone:      addr.Phone,
	}
}

// SnapshotInput freezes a validated input without persisting it.
func SnapshotInput(in Input) types.AddressSnapshot {
	return types.AddressSnapshot{
		FullName:   in.FullName,
		Line1:      in.Line1,
		Line2:      in.Line2,
		City:       in.City,
		Region:     in.Region,
		PostalCode: in.PostalCode,
		Country:    in.Country,
		Phone:      in.Phone,
	}
}
