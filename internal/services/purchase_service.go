package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"market-ledger/internal/metrics"
	"market-ledger/internal/models"
	"market-ledger/internal/repositories"
)

// errFundsChanged aborts a purchase transaction when the buyer's stored
// balance no longer covers the price
var errFundsChanged = errors.New("buyer balance changed")

// purchaseService implements the PurchaseService interface
type purchaseService struct {
	repos     repositories.RepositoryManager
	mirrors   *Mirrors
	catalog   *catalog
	locks     *itemLocks
	publisher EventPublisher
	logger    *logrus.Logger
}

// NewPurchaseService creates a new purchase service instance. A nil
// publisher disables item.sold events.
func NewPurchaseService(repos repositories.RepositoryManager, mirrors *Mirrors, locks *itemLocks, publisher EventPublisher, logger *logrus.Logger) PurchaseService {
	if logger == nil {
		logger = logrus.New()
	}
	if locks == nil {
		locks = newItemLocks()
	}
	return &purchaseService{
		repos:     repos,
		mirrors:   mirrors,
		catalog:   newCatalog(repos, mirrors),
		locks:     locks,
		publisher: publisher,
		logger:    logger,
	}
}

// Buy sells the item to the buyer. Rejections (already sold, insufficient
// funds) are returned as outcomes with the item unchanged; errors are
// reserved for missing entities and store faults.
func (s *purchaseService) Buy(ctx context.Context, kind models.Kind, itemID, buyerID int64) (*PurchaseResult, error) {
	ops, err := s.catalog.ops(kind)
	if err != nil {
		return nil, err
	}
	if itemID <= 0 || buyerID <= 0 {
		return nil, fmt.Errorf("%w: item and buyer ids must be positive", ErrValidation)
	}

	unlock := s.locks.lock(kind, itemID)
	defer unlock()

	item, err := ops.get(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("failed to get %s: %w", kind, translate(err))
	}
	listing := item.Base()

	owner, err := s.repos.Profiles().GetByID(ctx, listing.OwnerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get owner: %w", translate(err))
	}
	listing.Owner = owner

	buyer, err := s.repos.Profiles().GetByID(ctx, buyerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get buyer: %w", translate(err))
	}

	if !listing.Available {
		return s.reject(kind, item, OutcomeAlreadySold), nil
	}
	if !buyer.CanAfford(listing.Price) {
		return s.reject(kind, item, OutcomeInsufficientFunds), nil
	}

	sale := models.NewSale(item.Clone(), buyer.ID)

	var buyerAfter, sellerAfter *models.Profile
	err = s.mirrors.Track(func() error {
		err := s.repos.WithTransaction(ctx, func(txCtx context.Context) error {
			if err := ops.transfer(txCtx, itemID, buyer.ID); err != nil {
				return err
			}

			b, err := s.repos.Profiles().GetByID(txCtx, buyer.ID)
			if err != nil {
				return err
			}
			if !b.CanAfford(sale.Price) {
				return errFundsChanged
			}

			if b.ID == sale.SellerID {
				buyerAfter, sellerAfter = b, b
			} else {
				seller, err := s.repos.Profiles().GetByID(txCtx, sale.SellerID)
				if err != nil {
					return err
				}
				b.Balance = b.Balance.Sub(sale.Price)
				seller.Balance = seller.Balance.Add(sale.Price)
				if err := s.repos.Profiles().UpdateBalance(txCtx, b.ID, b.Balance); err != nil {
					return err
				}
				if err := s.repos.Profiles().UpdateBalance(txCtx, seller.ID, seller.Balance); err != nil {
					return err
				}
				buyerAfter, sellerAfter = b, seller
			}

			return s.repos.Sales().Create(txCtx, sale)
		})
		if err != nil {
			return err
		}
		s.applyToMirrors(ops, itemID, buyerAfter, sellerAfter)
		return nil
	})

	switch {
	case errors.Is(err, errFundsChanged):
		return s.reject(kind, item, OutcomeInsufficientFunds), nil
	case repositories.IsConcurrency(err):
		// another process sold it between our read and the conditional update
		if fresh, getErr := ops.get(ctx, itemID); getErr == nil {
			fresh.Base().Owner = nil
			item = fresh
		}
		return s.reject(kind, item, OutcomeAlreadySold), nil
	case err != nil:
		metrics.Purchases.WithLabelValues(string(kind), "error").Inc()
		return nil, fmt.Errorf("purchase failed: %w", translate(err))
	}

	listing.SetOwner(buyerAfter.Clone())
	listing.MarkSold()

	metrics.Purchases.WithLabelValues(string(kind), string(OutcomeSold)).Inc()
	s.logger.WithFields(logrus.Fields{
		"sale_id":   sale.ID,
		"kind":      kind,
		"item_id":   itemID,
		"buyer_id":  buyerAfter.ID,
		"seller_id": sale.SellerID,
		"price":     sale.Price.String(),
	}).Info("Item sold")

	s.publish(sale)

	return &PurchaseResult{Outcome: OutcomeSold, Item: item, Sale: sale}, nil
}

func (s *purchaseService) reject(kind models.Kind, item models.Item, outcome PurchaseOutcome) *PurchaseResult {
	metrics.Purchases.WithLabelValues(string(kind), string(outcome)).Inc()
	s.logger.WithFields(logrus.Fields{
		"kind":    kind,
		"item_id": item.Base().ID,
		"outcome": outcome,
	}).Info("Purchase rejected")
	return &PurchaseResult{Outcome: outcome, Item: item}
}

// applyToMirrors brings cached balances and ownership in line with the
// committed sale
func (s *purchaseService) applyToMirrors(ops itemOps, itemID int64, buyer, seller *models.Profile) {
	ops.mirrorUpdate(itemID, func(item models.Item) {
		l := item.Base()
		l.OwnerID = buyer.ID
		l.Owner = nil
		l.MarkSold()
	})
	for _, p := range []*models.Profile{buyer, seller} {
		balance := p.Balance
		s.mirrors.Profiles.Update(p.ID, func(cached *models.Profile) {
			cached.Balance = balance
			cached.UpdateTimestamp()
		})
	}
}

// publish sends item.sold without blocking the caller. Failures are logged only.
func (s *purchaseService) publish(sale *models.Sale) {
	if s.publisher == nil {
		return
	}
	go func(sale *models.Sale) {
		if err := s.publisher.PublishItemSold(context.Background(), sale); err != nil {
			s.logger.WithError(err).WithField("sale_id", sale.ID).Warn("Failed to publish item.sold event")
		}
	}(sale)
}
