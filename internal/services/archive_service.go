package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"market-ledger/internal/adapters/storage"
)

// ArchivePrefix is the storage key prefix of inventory archives
const ArchivePrefix = "archives/"

// archiveService implements the ArchiveService interface
type archiveService struct {
	mirrors *Mirrors
	storage storage.FileStorage
	logger  *logrus.Logger
}

// NewArchiveService creates a new archive service instance
func NewArchiveService(mirrors *Mirrors, fileStorage storage.FileStorage, logger *logrus.Logger) ArchiveService {
	if logger == nil {
		logger = logrus.New()
	}
	return &archiveService{mirrors: mirrors, storage: fileStorage, logger: logger}
}

// Save serialises the car and bike mirrors, owners attached, under key. An
// empty key gets a generated one.
func (s *archiveService) Save(ctx context.Context, key string) (*ArchiveInfo, error) {
	if err := ValidateRequest(&ArchiveRequest{Key: key}); err != nil {
		return nil, err
	}
	if key == "" {
		key = fmt.Sprintf("%sinventory-%s.json", ArchivePrefix, uuid.New().String())
	}

	archive := &Archive{
		CreatedAt: time.Now().UTC(),
		Cars:      s.mirrors.Cars.List(),
		Bikes:     s.mirrors.Bikes.List(),
	}
	for _, c := range archive.Cars {
		s.mirrors.hydrate(c)
	}
	for _, b := range archive.Bikes {
		s.mirrors.hydrate(b)
	}

	data, err := json.Marshal(archive)
	if err != nil {
		return nil, fmt.Errorf("failed to encode archive: %w", err)
	}

	if err := s.storage.Store(ctx, key, data, &storage.StoreOptions{
		ContentType: "application/json",
		Overwrite:   true,
	}); err != nil {
		return nil, fmt.Errorf("failed to store archive: %w", err)
	}

	info := &ArchiveInfo{
		Key:   key,
		Cars:  len(archive.Cars),
		Bikes: len(archive.Bikes),
		Size:  int64(len(data)),
	}
	s.logger.WithFields(logrus.Fields{
		"key":   info.Key,
		"cars":  info.Cars,
		"bikes": info.Bikes,
		"size":  info.Size,
	}).Info("Inventory archived")
	return info, nil
}

// Load reads a saved archive. The mirrors are not touched.
func (s *archiveService) Load(ctx context.Context, key string) (*Archive, error) {
	if strings.TrimSpace(key) == "" {
		return nil, fmt.Errorf("%w: archive key is required", ErrValidation)
	}

	data, err := s.storage.Retrieve(ctx, key)
	if err != nil {
		if storage.IsNotFound(err) {
			return nil, fmt.Errorf("%w: archive %s: %w", ErrNotFound, key, err)
		}
		return nil, fmt.Errorf("failed to retrieve archive: %w", err)
	}

	var archive Archive
	if err := json.Unmarshal(data, &archive); err != nil {
		return nil, fmt.Errorf("%w: archive %s is corrupt: %w", ErrValidation, key, err)
	}
	return &archive, nil
}

// List returns the stored archives ordered by key
func (s *archiveService) List(ctx context.Context) ([]storage.FileMetadata, error) {
	files, err := s.storage.List(ctx, ArchivePrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list archives: %w", err)
	}
	return files, nil
}
