package services

import (
	"context"
	"fmt"

	"market-ledger/internal/models"
	"market-ledger/internal/repositories"
)

type salesService struct {
	repos repositories.Repositories
}

// NewSalesService creates a new sales history service instance
func NewSalesService(repos repositories.Repositories) SalesService {
	return &salesService{repos: repos}
}

// List returns the sales of one item, oldest first
func (s *salesService) List(ctx context.Context, kind models.Kind, itemID int64) ([]*models.Sale, error) {
	if !kind.IsItem() {
		return nil, fmt.Errorf("%w: %q is not an item kind", ErrValidation, kind)
	}
	sales, err := s.repos.Sales().ListByItem(ctx, kind, itemID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sales: %w", translate(err))
	}
	return sales, nil
}

// ListAll returns every retained sale, oldest first
func (s *salesService) ListAll(ctx context.Context, opts repositories.ListOptions) ([]*models.Sale, error) {
	sales, err := s.repos.Sales().List(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list sales: %w", translate(err))
	}
	return sales, nil
}
