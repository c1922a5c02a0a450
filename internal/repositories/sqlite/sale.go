package sqlite

import (
	"context"
	"database/sql"

	"market-ledger/internal/models"
	"market-ledger/internal/repositories"

	"github.com/sirupsen/logrus"
)

const saleColumns = `id, item_kind, item_id, buyer_id, seller_id, price, snapshot, sold_at`

// SaleRepository implements the SaleRepository interface for SQLite
type SaleRepository struct {
	*BaseRepository[models.Sale]
}

// NewSaleRepository creates a new SQLite sale repository
func NewSaleRepository(db *sql.DB, logger *logrus.Logger) repositories.SaleRepository {
	return &SaleRepository{
		BaseRepository: NewBaseRepository[models.Sale](db, "sales", "sale", logger),
	}
}

// Create records a completed sale together with its item snapshot
func (r *SaleRepository) Create(ctx context.Context, sale *models.Sale) error {
	if sale.Snapshot == nil {
		return repositories.ValidationError("sale", sale.ID, &models.ValidationError{Field: "snapshot", Message: "snapshot is required"})
	}

	snapshot, err := models.EncodeItem(sale.Snapshot)
	if err != nil {
		return repositories.NewRepositoryError("create", "sale", sale.ID, err)
	}

	query := `INSERT INTO sales (` + saleColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = r.executeExec(ctx, "create", query,
		sale.ID,
		string(sale.Kind),
		sale.ItemID,
		sale.BuyerID,
		sale.SellerID,
		sale.Price.String(),
		string(snapshot),
		sale.SoldAt.UTC(),
	)
	if err != nil {
		if repositories.IsDuplicate(err) {
			return repositories.DuplicateError("sale", "id", sale.ID)
		}
		return err
	}
	return nil
}

// ListByItem returns the sales of one item, oldest first
func (r *SaleRepository) ListByItem(ctx context.Context, kind models.Kind, itemID int64) ([]*models.Sale, error) {
	query := `SELECT ` + saleColumns + ` FROM sales WHERE item_kind = ? AND item_id = ? ORDER BY sold_at, rowid`
	return r.query(ctx, "list_by_item", query, string(kind), itemID)
}

// List returns all sales, oldest first
func (r *SaleRepository) List(ctx context.Context, opts repositories.ListOptions) ([]*models.Sale, error) {
	page, args := pageClause(opts)
	return r.query(ctx, "list", `SELECT `+saleColumns+` FROM sales ORDER BY sold_at, rowid`+page, args...)
}

func (r *SaleRepository) query(ctx context.Context, op, query string, args ...interface{}) ([]*models.Sale, error) {
	rows, err := r.executeQuery(ctx, op, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sales []*models.Sale
	for rows.Next() {
		sale := &models.Sale{}
		var snapshot string
		err := rows.Scan(
			&sale.ID,
			&sale.Kind,
			&sale.ItemID,
			&sale.BuyerID,
			&sale.SellerID,
			&sale.Price,
			&snapshot,
			&sale.SoldAt,
		)
		if err != nil {
			return nil, repositories.NewRepositoryError(op, "sale", "", err)
		}
		if sale.Snapshot, err = models.DecodeItem([]byte(snapshot)); err != nil {
			return nil, repositories.NewRepositoryError(op, "sale", sale.ID, err)
		}
		sales = append(sales, sale)
	}

	if err = rows.Err(); err != nil {
		return nil, repositories.NewRepositoryError(op, "sale", "", err)
	}
	return sales, nil
}
