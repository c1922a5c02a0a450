package sqlite

import (
	"context"
	"database/sql"

	"market-ledger/internal/models"
	"market-ledger/internal/repositories"

	"github.com/sirupsen/logrus"
)

// FrameRepository implements the FrameRepository interface for SQLite
type FrameRepository struct {
	*BaseRepository[models.Frame]
}

// NewFrameRepository creates a new SQLite frame repository
func NewFrameRepository(db *sql.DB, logger *logrus.Logger) repositories.FrameRepository {
	return &FrameRepository{
		BaseRepository: NewBaseRepository[models.Frame](db, "frames", "frame", logger),
	}
}

// Create creates a new frame
func (r *FrameRepository) Create(ctx context.Context, frame *models.Frame) error {
	if err := frame.Validate(); err != nil {
		return repositories.ValidationError("frame", "", err)
	}

	query := `INSERT INTO frames (gear, material, created_at) VALUES (?, ?, ?)`
	result, err := r.executeExec(ctx, "create", query, frame.Gear, string(frame.Material), frame.CreatedAt.UTC())
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return repositories.NewRepositoryError("create", "frame", "", err)
	}
	frame.ID = id
	return nil
}

// GetByID retrieves a frame by ID
func (r *FrameRepository) GetByID(ctx context.Context, id int64) (*models.Frame, error) {
	if err := r.validateID(id); err != nil {
		return nil, err
	}

	row := r.executeQueryRow(ctx, "get_by_id", `SELECT id, gear, material, created_at FROM frames WHERE id = ?`, id)

	frame := &models.Frame{}
	if err := row.Scan(&frame.ID, &frame.Gear, &frame.Material, &frame.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, repositories.NotFoundError("frame", formatID(id))
		}
		return nil, repositories.NewRepositoryError("get_by_id", "frame", formatID(id), err)
	}
	return frame, nil
}

// Reference checks that the frame exists and returns a handle to it
func (r *FrameRepository) Reference(ctx context.Context, id int64) (models.FrameRef, error) {
	if err := r.exists(ctx, "reference", id); err != nil {
		return models.FrameRef{}, err
	}
	return models.FrameRef{ID: id}, nil
}

// List retrieves frames in store order
func (r *FrameRepository) List(ctx context.Context, opts repositories.ListOptions) ([]*models.Frame, error) {
	page, args := pageClause(opts)
	rows, err := r.executeQuery(ctx, "list", `SELECT id, gear, material, created_at FROM frames ORDER BY id`+page, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var frames []*models.Frame
	for rows.Next() {
		frame := &models.Frame{}
		if err := rows.Scan(&frame.ID, &frame.Gear, &frame.Material, &frame.CreatedAt); err != nil {
			return nil, repositories.NewRepositoryError("list", "frame", "", err)
		}
		frames = append(frames, frame)
	}

	if err = rows.Err(); err != nil {
		return nil, repositories.NewRepositoryError("list", "frame", "", err)
	}

	return frames, nil
}
