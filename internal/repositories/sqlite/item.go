package sqlite

import (
	"context"
	"fmt"

	"market-ledger/internal/models"
	"market-ledger/internal/repositories"
)

const listingColumns = `id, name, brand, auction, price, weight, owner_id, available, created_at, updated_at`

// itemRepository holds the statements shared by the car and bike tables
type itemRepository[T any] struct {
	*BaseRepository[T]
}

func (r *itemRepository[T]) listingArgs(l *models.Listing) []interface{} {
	return []interface{}{
		l.Name,
		l.Brand,
		boolToInt(l.Auction),
		l.Price.String(),
		l.Weight.String(),
		l.OwnerID,
		boolToInt(l.Available),
		l.CreatedAt.UTC(),
		l.UpdatedAt.UTC(),
	}
}

func listingDest(l *models.Listing) []interface{} {
	return []interface{}{
		&l.ID,
		&l.Name,
		&l.Brand,
		&l.Auction,
		&l.Price,
		&l.Weight,
		&l.OwnerID,
		&l.Available,
		&l.CreatedAt,
		&l.UpdatedAt,
	}
}

// ListIDsByBrand returns the IDs of rows whose brand matches exactly
func (r *itemRepository[T]) ListIDsByBrand(ctx context.Context, brand string) ([]int64, error) {
	// BINARY collation keeps the match case-sensitive
	query := fmt.Sprintf("SELECT id FROM %s WHERE brand = ? COLLATE BINARY ORDER BY id", r.table)

	rows, err := r.executeQuery(ctx, "list_ids_by_brand", query, brand)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, repositories.NewRepositoryError("list_ids_by_brand", r.entity, "", err)
		}
		ids = append(ids, id)
	}

	if err = rows.Err(); err != nil {
		return nil, repositories.NewRepositoryError("list_ids_by_brand", r.entity, "", err)
	}
	return ids, nil
}

// Delete removes an item by ID
func (r *itemRepository[T]) Delete(ctx context.Context, id int64) error {
	return r.deleteByID(ctx, id)
}

// TransferOwnership reassigns an available item and marks it sold
func (r *itemRepository[T]) TransferOwnership(ctx context.Context, id, newOwnerID int64) error {
	if err := r.validateID(id); err != nil {
		return err
	}

	query := fmt.Sprintf(`
		UPDATE %s
		SET owner_id = ?, available = 0, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND available = 1`, r.table)

	result, err := r.executeExec(ctx, "transfer_ownership", query, newOwnerID, id)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return repositories.NewRepositoryError("transfer_ownership", r.entity, formatID(id), err)
	}
	if affected == 1 {
		return nil
	}

	// distinguish a missing row from one sold in the meantime
	if err := r.exists(ctx, "transfer_ownership", id); err != nil {
		return err
	}
	return repositories.ConcurrencyError("transfer_ownership", r.entity, formatID(id))
}
