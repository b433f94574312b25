package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cppla/postboard/metrics"
	"github.com/cppla/postboard/models"
	"github.com/cppla/postboard/utils"
)

// PostInput holds the client-editable post fields for creation. Image is the URL of an
// asset previously uploaded by the same user, or empty.
type PostInput struct {
	Title    string `json:"title" validate:"required,max=128"`
	Subtitle string `json:"subtitle" validate:"required,max=256"`
	Body     string `json:"body" validate:"required"`
	Image    string `json:"image"`
}

// PostUpdate is a partial overwrite. ClearImage drops the current image and wins over Image.
type PostUpdate struct {
	Title      *string
	Subtitle   *string
	Body       *string
	Image      *string
	ClearImage bool
}

// PostService implements the post lifecycle with author-gated mutation.
type PostService struct {
	db    *gorm.DB
	log   *zap.Logger
	grace time.Duration
	now   func() time.Time
}

// NewPostService creates a PostService. Images dropped from a post stay on disk for grace.
func NewPostService(db *gorm.DB, logger *zap.Logger, grace time.Duration) *PostService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PostService{db: db, log: logger, grace: grace, now: utcNow}
}

// WithClock replaces the time source, used by tests.
func (s *PostService) WithClock(now func() time.Time) *PostService {
	s.now = now
	return s
}

// List returns one page of posts, newest first.
func (s *PostService) List(ctx context.Context, page int) (Page[models.Post], error) {
	return s.list(s.db.WithContext(ctx).Model(&models.Post{}), page)
}

// ListByAuthor returns one page of the posts written by userID, newest first.
func (s *PostService) ListByAuthor(ctx context.Context, userID uint, page int) (Page[models.Post], error) {
	return s.list(s.db.WithContext(ctx).Model(&models.Post{}).Where("user_id = ?", userID), page)
}

func (s *PostService) list(q *gorm.DB, page int) (Page[models.Post], error) {
	q = q.Order("created_on DESC").Order("id DESC")
	res, err := paginate[models.Post](q, page, models.PostsPerPage, "User")
	if err != nil && !errors.Is(err, ErrNotFound) {
		return res, fmt.Errorf("list posts: %w", err)
	}
	return res, err
}

// Get loads one post with its author.
func (s *PostService) Get(ctx context.Context, id uint) (models.Post, error) {
	return loadPost(s.db.WithContext(ctx), id)
}

// Create stores a new post authored by who.
func (s *PostService) Create(ctx context.Context, who Identity, in PostInput) (models.Post, error) {
	if err := RequireIdentity(who); err != nil {
		return models.Post{}, err
	}
	in.Title = utils.SanitizeLine(in.Title)
	in.Subtitle = utils.SanitizeLine(in.Subtitle)
	in.Body = utils.Sanitize(in.Body)
	if err := validateStruct(in); err != nil {
		return models.Post{}, err
	}

	var post models.Post
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireUser(tx, who.UserID); err != nil {
			return err
		}
		if in.Image != "" {
			if err := claimAsset(tx, who.UserID, in.Image); err != nil {
				return err
			}
		}
		post = models.Post{
			Title:     in.Title,
			Subtitle:  in.Subtitle,
			Body:      in.Body,
			Image:     in.Image,
			UserID:    who.UserID,
			CreatedOn: s.now(),
		}
		if err := tx.Omit(clause.Associations).Create(&post).Error; err != nil {
			return fmt.Errorf("insert post: %w", err)
		}
		var err error
		post, err = loadPost(tx, post.ID)
		return err
	})
	if err != nil {
		return models.Post{}, err
	}
	metrics.ContentMutations.WithLabelValues(models.KindPost, "create").Inc()
	s.log.Info("post created", zap.Uint("id", post.ID), zap.Uint("user_id", who.UserID))
	return post, nil
}

// Update overwrites the given fields of a post owned by who. Author and created_on never change.
func (s *PostService) Update(ctx context.Context, who Identity, id uint, patch PostUpdate) (models.Post, error) {
	if err := RequireIdentity(who); err != nil {
		return models.Post{}, err
	}

	var post models.Post
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := loadPost(tx, id)
		if err != nil {
			return err
		}
		if err := checkOwnerOf(models.KindPost, who, current.UserID); err != nil {
			return err
		}

		next := PostInput{Title: current.Title, Subtitle: current.Subtitle, Body: current.Body, Image: current.Image}
		if patch.Title != nil {
			next.Title = utils.SanitizeLine(*patch.Title)
		}
		if patch.Subtitle != nil {
			next.Subtitle = utils.SanitizeLine(*patch.Subtitle)
		}
		if patch.Body != nil {
			next.Body = utils.Sanitize(*patch.Body)
		}
		switch {
		case patch.ClearImage:
			next.Image = ""
		case patch.Image != nil:
			next.Image = *patch.Image
		}
		if err := validateStruct(next); err != nil {
			return err
		}

		if next.Image != current.Image {
			if next.Image != "" {
				if err := claimAsset(tx, who.UserID, next.Image); err != nil {
					return err
				}
			}
			if err := releaseAsset(tx, current.Image, s.now().Add(s.grace)); err != nil {
				return err
			}
		}

		fields := map[string]interface{}{
			"title":    next.Title,
			"subtitle": next.Subtitle,
			"body":     next.Body,
			"image":    next.Image,
		}
		if err := tx.Model(&models.Post{ID: current.ID}).Omit(clause.Associations).Updates(fields).Error; err != nil {
			return fmt.Errorf("update post: %w", err)
		}
		post, err = loadPost(tx, current.ID)
		return err
	})
	if err != nil {
		return models.Post{}, err
	}
	metrics.ContentMutations.WithLabelValues(models.KindPost, "update").Inc()
	s.log.Info("post updated", zap.Uint("id", post.ID), zap.Uint("user_id", who.UserID))
	return post, nil
}

// Delete removes a post owned by who and schedules its image for removal.
func (s *PostService) Delete(ctx context.Context, who Identity, id uint) error {
	if err := RequireIdentity(who); err != nil {
		return err
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := loadPost(tx, id)
		if err != nil {
			return err
		}
		if err := checkOwnerOf(models.KindPost, who, current.UserID); err != nil {
			return err
		}
		if err := tx.Delete(&models.Post{}, current.ID).Error; err != nil {
			return fmt.Errorf("delete post: %w", err)
		}
		return releaseAsset(tx, current.Image, s.now().Add(s.grace))
	})
	if err != nil {
		return err
	}
	metrics.ContentMutations.WithLabelValues(models.KindPost, "delete").Inc()
	s.log.Info("post deleted", zap.Uint("id", id), zap.Uint("user_id", who.UserID))
	return nil
}

func loadPost(db *gorm.DB, id uint) (models.Post, error) {
	var post models.Post
	if err := db.Preload("User").First(&post, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Post{}, ErrNotFound
		}
		return models.Post{}, fmt.Errorf("load post %d: %w", id, err)
	}
	return post, nil
}
