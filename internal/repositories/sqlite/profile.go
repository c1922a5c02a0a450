package sqlite

import (
	"context"
	"database/sql"

	"market-ledger/internal/models"
	"market-ledger/internal/repositories"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const profileColumns = `id, nick, password, name, surname, age, balance, created_at, updated_at`

// ProfileRepository implements the ProfileRepository interface for SQLite
type ProfileRepository struct {
	*BaseRepository[models.Profile]
}

// NewProfileRepository creates a new SQLite profile repository
func NewProfileRepository(db *sql.DB, logger *logrus.Logger) repositories.ProfileRepository {
	return &ProfileRepository{
		BaseRepository: NewBaseRepository[models.Profile](db, "profiles", "profile", logger),
	}
}

// Create creates a new profile
func (r *ProfileRepository) Create(ctx context.Context, profile *models.Profile) error {
	if err := profile.Validate(); err != nil {
		return repositories.ValidationError("profile", "", err)
	}

	query := `
		INSERT INTO profiles (nick, password, name, surname, age, balance, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	result, err := r.executeExec(ctx, "create", query,
		profile.Nick,
		profile.Password,
		profile.Name,
		profile.Surname,
		profile.Age,
		profile.Balance.String(),
		profile.CreatedAt.UTC(),
		profile.UpdatedAt.UTC(),
	)
	if err != nil {
		if repositories.IsDuplicate(err) {
			return repositories.DuplicateError("profile", "nick", profile.Nick)
		}
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return repositories.NewRepositoryError("create", "profile", "", err)
	}
	profile.ID = id
	return nil
}

// GetByID retrieves a profile by ID
func (r *ProfileRepository) GetByID(ctx context.Context, id int64) (*models.Profile, error) {
	if err := r.validateID(id); err != nil {
		return nil, err
	}

	row := r.executeQueryRow(ctx, "get_by_id", `SELECT `+profileColumns+` FROM profiles WHERE id = ?`, id)
	profile, err := scanProfile(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, repositories.NotFoundError("profile", formatID(id))
		}
		return nil, repositories.NewRepositoryError("get_by_id", "profile", formatID(id), err)
	}
	return profile, nil
}

// GetByNick retrieves a profile by nickname
func (r *ProfileRepository) GetByNick(ctx context.Context, nick string) (*models.Profile, error) {
	row := r.executeQueryRow(ctx, "get_by_nick", `SELECT `+profileColumns+` FROM profiles WHERE nick = ?`, nick)
	profile, err := scanProfile(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, repositories.NotFoundError("profile", nick)
		}
		return nil, repositories.NewRepositoryError("get_by_nick", "profile", nick, err)
	}
	return profile, nil
}

// Reference checks that the profile exists and returns a handle to it
func (r *ProfileRepository) Reference(ctx context.Context, id int64) (models.ProfileRef, error) {
	if err := r.exists(ctx, "reference", id); err != nil {
		return models.ProfileRef{}, err
	}
	return models.ProfileRef{ID: id}, nil
}

// List retrieves profiles in store order
func (r *ProfileRepository) List(ctx context.Context, opts repositories.ListOptions) ([]*models.Profile, error) {
	page, args := pageClause(opts)
	return r.query(ctx, "list", `SELECT `+profileColumns+` FROM profiles ORDER BY id`+page, args...)
}

// FindProfiles returns profiles strictly older than MinAge with a balance
// strictly below MaxBalance, in store order
func (r *ProfileRepository) FindProfiles(ctx context.Context, q repositories.ProfileQuery) ([]*models.Profile, error) {
	query := `
		SELECT ` + profileColumns + `
		FROM profiles
		WHERE age > ?
		ORDER BY id`

	candidates, err := r.query(ctx, "find_profiles", query, q.MinAge)
	if err != nil {
		return nil, err
	}

	// balances are exact decimals stored as text; SQLite would compare them as floats
	profiles := candidates[:0]
	for _, p := range candidates {
		if p.Balance.LessThan(q.MaxBalance) {
			profiles = append(profiles, p)
		}
	}
	return profiles, nil
}

// UpdatePassword replaces the stored credential
func (r *ProfileRepository) UpdatePassword(ctx context.Context, id int64, password string) error {
	if err := r.validateID(id); err != nil {
		return err
	}

	query := `UPDATE profiles SET password = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`
	result, err := r.executeExec(ctx, "update_password", query, password, id)
	if err != nil {
		return err
	}
	return r.checkRowsAffected(result, "update_password", formatID(id))
}

// UpdateBalance sets the balance of a profile
func (r *ProfileRepository) UpdateBalance(ctx context.Context, id int64, balance decimal.Decimal) error {
	if err := r.validateID(id); err != nil {
		return err
	}
	if balance.IsNegative() {
		return repositories.ValidationError("profile", formatID(id), &models.ValidationError{Field: "balance", Message: "balance cannot be negative", Value: balance.String()})
	}

	query := `UPDATE profiles SET balance = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`
	result, err := r.executeExec(ctx, "update_balance", query, balance.String(), id)
	if err != nil {
		return err
	}
	return r.checkRowsAffected(result, "update_balance", formatID(id))
}

func (r *ProfileRepository) query(ctx context.Context, op, query string, args ...interface{}) ([]*models.Profile, error) {
	rows, err := r.executeQuery(ctx, op, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var profiles []*models.Profile
	for rows.Next() {
		profile, err := scanProfile(rows)
		if err != nil {
			return nil, repositories.NewRepositoryError(op, "profile", "", err)
		}
		profiles = append(profiles, profile)
	}

	if err = rows.Err(); err != nil {
		return nil, repositories.NewRepositoryError(op, "profile", "", err)
	}

	return profiles, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanProfile(s scanner) (*models.Profile, error) {
	profile := &models.Profile{}
	err := s.Scan(
		&profile.ID,
		&profile.Nick,
		&profile.Password,
		&profile.Name,
		&profile.Surname,
		&profile.Age,
		&profile.Balance,
		&profile.CreatedAt,
		&profile.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return profile, nil
}
