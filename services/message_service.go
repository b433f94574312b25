package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cppla/postboard/metrics"
	"github.com/cppla/postboard/models"
	"github.com/cppla/postboard/utils"
)

// MessageInput is the complete set of client-editable message fields. It deliberately
// has no author: the author always comes from the caller's Identity.
type MessageInput struct {
	Title   string `json:"title" validate:"required,max=200"`
	Content string `json:"content" validate:"required"`
}

// MessageUpdate is a partial overwrite; nil fields are left untouched.
type MessageUpdate struct {
	Title    *string `json:"title"`
	Content  *string `json:"content"`
	IsActive *bool   `json:"is_active"`
}

// MessageFilter narrows a message listing. The zero value lists everything.
type MessageFilter struct {
	Active   *bool
	AuthorID uint
	// Author matches the author's username exactly.
	Author string
	// Search matches title, content or author username, case-insensitively.
	Search string
	// Date is a created_at bucket: YYYY, YYYY-MM or YYYY-MM-DD.
	Date string
}

// MessageService implements the message board lifecycle with author-gated mutation.
type MessageService struct {
	db  *gorm.DB
	log *zap.Logger
	now func() time.Time
}

// NewMessageService creates a MessageService; a nil logger discards output.
func NewMessageService(db *gorm.DB, logger *zap.Logger) *MessageService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MessageService{db: db, log: logger, now: utcNow}
}

// WithClock replaces the time source, used by tests.
func (s *MessageService) WithClock(now func() time.Time) *MessageService {
	s.now = now
	return s
}

// List returns every matching message, newest first.
func (s *MessageService) List(ctx context.Context, f MessageFilter) ([]models.Message, error) {
	q := s.db.WithContext(ctx).Model(&models.Message{}).
		Joins("JOIN users ON users.id = messages.user_id").
		Preload("User").
		Order("messages.created_at DESC").
		Order("messages.id DESC")

	if f.Active != nil {
		q = q.Where("messages.is_active = ?", *f.Active)
	}
	if f.AuthorID != 0 {
		q = q.Where("messages.user_id = ?", f.AuthorID)
	}
	if name := strings.TrimSpace(f.Author); name != "" {
		q = q.Where("users.username = ?", name)
	}
	if term := strings.TrimSpace(f.Search); term != "" {
		like := "%" + strings.ToLower(term) + "%"
		q = q.Where("LOWER(messages.title) LIKE ? OR LOWER(messages.content) LIKE ? OR LOWER(users.username) LIKE ?", like, like, like)
	}
	if f.Date != "" {
		from, to, err := dateRange(f.Date)
		if err != nil {
			return nil, err
		}
		q = q.Where("messages.created_at >= ? AND messages.created_at < ?", from, to)
	}

	msgs := []models.Message{}
	if err := q.Find(&msgs).Error; err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return msgs, nil
}

// Get loads one message with its author.
func (s *MessageService) Get(ctx context.Context, id uint) (models.Message, error) {
	return loadMessage(s.db.WithContext(ctx), id)
}

// Create stores a new active message authored by who.
func (s *MessageService) Create(ctx context.Context, who Identity, in MessageInput) (models.Message, error) {
	if err := RequireIdentity(who); err != nil {
		return models.Message{}, err
	}
	in.Title = utils.SanitizeLine(in.Title)
	in.Content = utils.Sanitize(in.Content)
	if err := validateStruct(in); err != nil {
		return models.Message{}, err
	}

	var msg models.Message
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireUser(tx, who.UserID); err != nil {
			return err
		}
		now := s.now()
		msg = models.Message{
			Title:     in.Title,
			Content:   in.Content,
			UserID:    who.UserID,
			CreatedAt: now,
			UpdatedAt: now,
			IsActive:  true,
		}
		if err := tx.Omit(clause.Associations).Create(&msg).Error; err != nil {
			return fmt.Errorf("insert message: %w", err)
		}
		var err error
		msg, err = loadMessage(tx, msg.ID)
		return err
	})
	if err != nil {
		return models.Message{}, err
	}
	metrics.ContentMutations.WithLabelValues(models.KindMessage, "create").Inc()
	s.log.Info("message created", zap.Uint("id", msg.ID), zap.Uint("user_id", who.UserID))
	return msg, nil
}

// Update overwrites the given fields of a message owned by who and re-stamps updated_at.
// Setting is_active=false hides the message; true shows it again.
func (s *MessageService) Update(ctx context.Context, who Identity, id uint, patch MessageUpdate) (models.Message, error) {
	if err := RequireIdentity(who); err != nil {
		return models.Message{}, err
	}
	return s.update(ctx, id, patch, func(m models.Message) error {
		return checkOwnerOf(models.KindMessage, who, m.UserID)
	}, who)
}

// AdminUpdate is Update for administrators, without the ownership check.
func (s *MessageService) AdminUpdate(ctx context.Context, who Identity, id uint, patch MessageUpdate) (models.Message, error) {
	if err := RequireAdmin(who); err != nil {
		return models.Message{}, err
	}
	return s.update(ctx, id, patch, func(models.Message) error { return nil }, who)
}

// Delete removes a message owned by who. Deletion is final.
func (s *MessageService) Delete(ctx context.Context, who Identity, id uint) error {
	if err := RequireIdentity(who); err != nil {
		return err
	}
	return s.delete(ctx, id, func(m models.Message) error {
		return checkOwnerOf(models.KindMessage, who, m.UserID)
	}, who)
}

// AdminDelete removes any message on behalf of an administrator.
func (s *MessageService) AdminDelete(ctx context.Context, who Identity, id uint) error {
	if err := RequireAdmin(who); err != nil {
		return err
	}
	return s.delete(ctx, id, func(models.Message) error { return nil }, who)
}

func (s *MessageService) update(ctx context.Context, id uint, patch MessageUpdate, authorize func(models.Message) error, who Identity) (models.Message, error) {
	var msg models.Message
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := loadMessage(tx, id)
		if err != nil {
			return err
		}
		if err := authorize(current); err != nil {
			return err
		}

		next := MessageInput{Title: current.Title, Content: current.Content}
		if patch.Title != nil {
			next.Title = utils.SanitizeLine(*patch.Title)
		}
		if patch.Content != nil {
			next.Content = utils.Sanitize(*patch.Content)
		}
		if err := validateStruct(next); err != nil {
			return err
		}

		// updated_at must move forward even when the clock has not
		stamp := s.now()
		if !stamp.After(current.UpdatedAt) {
			stamp = current.UpdatedAt.Add(time.Millisecond)
		}
		fields := map[string]interface{}{
			"title":      next.Title,
			"content":    next.Content,
			"updated_at": stamp,
		}
		if patch.IsActive != nil {
			fields["is_active"] = *patch.IsActive
		}
		if err := tx.Model(&models.Message{ID: current.ID}).Omit(clause.Associations).Updates(fields).Error; err != nil {
			return fmt.Errorf("update message: %w", err)
		}
		msg, err = loadMessage(tx, current.ID)
		return err
	})
	if err != nil {
		return models.Message{}, err
	}
	metrics.ContentMutations.WithLabelValues(models.KindMessage, "update").Inc()
	s.log.Info("message updated", zap.Uint("id", msg.ID), zap.Uint("user_id", who.UserID), zap.String("state", string(msg.State())))
	return msg, nil
}

func (s *MessageService) delete(ctx context.Context, id uint, authorize func(models.Message) error, who Identity) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := loadMessage(tx, id)
		if err != nil {
			return err
		}
		if err := authorize(current); err != nil {
			return err
		}
		if err := tx.Delete(&models.Message{}, current.ID).Error; err != nil {
			return fmt.Errorf("delete message: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	metrics.ContentMutations.WithLabelValues(models.KindMessage, "delete").Inc()
	s.log.Info("message deleted", zap.Uint("id", id), zap.Uint("user_id", who.UserID))
	return nil
}

func loadMessage(db *gorm.DB, id uint) (models.Message, error) {
	var msg models.Message
	if err := db.Preload("User").First(&msg, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Message{}, ErrNotFound
		}
		return models.Message{}, fmt.Errorf("load message %d: %w", id, err)
	}
	return msg, nil
}

// requireUser makes sure the identity still resolves to a stored user.
func requireUser(db *gorm.DB, userID uint) error {
	var count int64
	if err := db.Model(&models.User{}).Where("id = ?", userID).Count(&count).Error; err != nil {
		return fmt.Errorf("load author: %w", err)
	}
	if count == 0 {
		return ErrUnauthorized
	}
	return nil
}

// dateRange turns a YYYY, YYYY-MM or YYYY-MM-DD bucket into a half-open UTC interval.
func dateRange(bucket string) (time.Time, time.Time, error) {
	layouts := []struct {
		layout string
		next   func(time.Time) time.Time
	}{
		{"2006-01-02", func(t time.Time) time.Time { return t.AddDate(0, 0, 1) }},
		{"2006-01", func(t time.Time) time.Time { return t.AddDate(0, 1, 0) }},
		{"2006", func(t time.Time) time.Time { return t.AddDate(1, 0, 0) }},
	}
	for _, l := range layouts {
		if t, err := time.ParseInLocation(l.layout, bucket, time.UTC); err == nil {
			return t, l.next(t), nil
		}
	}
	return time.Time{}, time.Time{}, invalidField("date", "must be YYYY, YYYY-MM or YYYY-MM-DD")
}

func utcNow() time.Time {
	return time.Now().UTC()
}
