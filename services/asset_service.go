package services

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/cppla/postboard/metrics"
	"github.com/cppla/postboard/models"
	"github.com/cppla/postboard/utils"
)

// FileStore persists uploaded bytes. utils.AssetStore is the disk implementation.
type FileStore interface {
	SaveUpload(fh *multipart.FileHeader) (utils.StoredFile, error)
	Remove(filePath string) error
}

// AssetService records uploaded post images and removes the ones nothing references.
type AssetService struct {
	db    *gorm.DB
	store FileStore
	log   *zap.Logger
	grace time.Duration
	now   func() time.Time
}

// NewAssetService creates an AssetService. Unreferenced files are kept for grace before removal.
func NewAssetService(db *gorm.DB, store FileStore, logger *zap.Logger, grace time.Duration) *AssetService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AssetService{db: db, store: store, log: logger, grace: grace, now: utcNow}
}

// WithClock replaces the time source, used by tests.
func (s *AssetService) WithClock(now func() time.Time) *AssetService {
	s.now = now
	return s
}

// Upload stores an image for who. Until a post claims it the asset is pending and expires
// after the grace period.
func (s *AssetService) Upload(ctx context.Context, who Identity, fh *multipart.FileHeader) (models.Asset, error) {
	if err := RequireIdentity(who); err != nil {
		return models.Asset{}, err
	}
	stored, err := s.store.SaveUpload(fh)
	switch {
	case errors.Is(err, utils.ErrNotImage):
		return models.Asset{}, invalidField("image", "must be a JPEG, PNG, GIF or WebP image")
	case errors.Is(err, utils.ErrTooLarge):
		return models.Asset{}, invalidField("image", "is too large")
	case err != nil:
		return models.Asset{}, err
	}

	expire := s.now().Add(s.grace)
	asset := models.Asset{
		UserID:      who.UserID,
		FilePath:    stored.Path,
		URL:         stored.URL,
		ContentType: stored.ContentType,
		Size:        stored.Size,
		ExpireAt:    &expire,
	}
	if err := s.db.WithContext(ctx).Create(&asset).Error; err != nil {
		_ = s.store.Remove(stored.Path)
		return models.Asset{}, fmt.Errorf("record asset: %w", err)
	}
	s.log.Info("asset uploaded", zap.Uint("id", asset.ID), zap.Uint("user_id", who.UserID), zap.String("url", asset.URL))
	return asset, nil
}

// PurgeExpired removes up to limit expired assets, files first, and returns how many rows went.
func (s *AssetService) PurgeExpired(ctx context.Context, limit int) (int, error) {
	if limit <= 0 {
		limit = 100
	}
	var items []models.Asset
	if err := s.db.WithContext(ctx).Where("expire_at IS NOT NULL AND expire_at <= ?", s.now()).
		Order("expire_at").Limit(limit).Find(&items).Error; err != nil {
		return 0, fmt.Errorf("query expired assets: %w", err)
	}
	purged := 0
	for _, it := range items {
		if err := s.store.Remove(it.FilePath); err != nil {
			s.log.Warn("asset file removal failed", zap.Uint("id", it.ID), zap.Error(err))
		}
		// row goes regardless of the file outcome
		if err := s.db.WithContext(ctx).Delete(&models.Asset{}, it.ID).Error; err != nil {
			s.log.Warn("asset row removal failed", zap.Uint("id", it.ID), zap.Error(err))
			continue
		}
		purged++
	}
	metrics.AssetsPurged.Add(float64(purged))
	return purged, nil
}

// StartCleaner runs PurgeExpired every interval until ctx is done.
func (s *AssetService) StartCleaner(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				n, err := s.PurgeExpired(ctx, 100)
				if err != nil {
					s.log.Warn("asset cleaner run failed", zap.Error(err))
					continue
				}
				if n > 0 {
					s.log.Info("asset cleaner purged files", zap.Int("count", n))
				}
			}
		}
	}()
}

// claimAsset attaches the asset at url to a post of userID and stops its expiry.
func claimAsset(tx *gorm.DB, userID uint, url string) error {
	var asset models.Asset
	err := tx.Where("url = ?", url).First(&asset).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return invalidField("image", "must reference an image you uploaded")
	}
	if err != nil {
		return fmt.Errorf("load asset: %w", err)
	}
	if asset.UserID != userID {
		return invalidField("image", "must reference an image you uploaded")
	}
	// a claimed asset belongs to exactly one post
	if asset.ExpireAt == nil {
		return invalidField("image", "is already used by another post")
	}
	if err := tx.Model(&models.Asset{}).Where("id = ?", asset.ID).Update("expire_at", nil).Error; err != nil {
		return fmt.Errorf("claim asset: %w", err)
	}
	return nil
}

// releaseAsset marks the asset at url as unreferenced from expireAt on.
func releaseAsset(tx *gorm.DB, url string, expireAt time.Time) error {
	if url == "" {
		return nil
	}
	if err := tx.Model(&models.Asset{}).Where("url = ?", url).Update("expire_at", expireAt).Error; err != nil {
		return fmt.Errorf("release asset: %w", err)
	}
	return nil
}
