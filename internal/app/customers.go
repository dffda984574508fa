package app

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/sobs/banking-core/internal/domain"
)

// SaveBeneficiary adds a recipient to the caller's address book.
func (s *Service) SaveBeneficiary(ctx context.Context, userID, accountNumber, name, bank string) (*domain.Beneficiary, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	b, err := domain.NewBeneficiary(s.ids.NewID(), userID, accountNumber, name, bank, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.repo.CreateBeneficiary(ctx, b); err != nil {
		return nil, domain.StorageError("create beneficiary", err)
	}
	return b, nil
}

func (s *Service) ListBeneficiaries(ctx context.Context, userID string) ([]domain.Beneficiary, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	list, err := s.repo.FindBeneficiariesByUserID(ctx, userID)
	if err != nil {
		return nil, domain.StorageError("list beneficiaries", err)
	}
	return list, nil
}

func (s *Service) DeleteBeneficiary(ctx context.Context, userID string, id uuid.UUID) error {
	if err := requireUser(userID); err != nil {
		return err
	}
	return domain.StorageError("delete beneficiary", s.repo.DeleteBeneficiary(ctx, userID, id))
}

// UpsertProfile validates and stores the caller's contact details.
func (s *Service) UpsertProfile(ctx context.Context, userID string, p domain.Profile) (*domain.Profile, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	p.UserID = userID
	p.FullName = strings.TrimSpace(p.FullName)
	p.NationalID = strings.TrimSpace(p.NationalID)
	if err := p.Validate(); err != nil {
		return nil, err
	}
	p.UpdatedAt = s.now()
	if err := s.repo.UpsertProfile(ctx, &p); err != nil {
		return nil, domain.StorageError("upsert profile", err)
	}
	return &p, nil
}

func (s *Service) GetProfile(ctx context.Context, userID string) (*domain.Profile, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	p, err := s.repo.FindProfileByUserID(ctx, userID)
	if err != nil {
		return nil, domain.StorageError("find profile", err)
	}
	return p, nil
}
