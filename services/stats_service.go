package services

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cppla/postboard/models"
)

// Totals are the board-wide counters.
type Totals struct {
	Users          int64 `json:"user_count"`
	Posts          int64 `json:"post_count"`
	Messages       int64 `json:"message_count"`
	ActiveMessages int64 `json:"active_message_count"`
	ViewsToday     int64 `json:"views_today"`
}

// ObjectStats are the counters of one post or message.
type ObjectStats struct {
	Kind       string `json:"kind"`
	ID         uint   `json:"id"`
	Views      int64  `json:"views"`
	ViewsToday int64  `json:"views_today"`
}

// StatsService records detail views and reports counters.
type StatsService struct {
	db  *gorm.DB
	now func() time.Time
}

func NewStatsService(db *gorm.DB) *StatsService {
	return &StatsService{db: db, now: utcNow}
}

// WithClock replaces the time source, used by tests.
func (s *StatsService) WithClock(now func() time.Time) *StatsService {
	s.now = now
	return s
}

// RecordView adds one view of kind/id to today's bucket.
func (s *StatsService) RecordView(ctx context.Context, kind string, id uint) error {
	now := s.now()
	// atomic upsert, concurrent requests land on the same row
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "date"}, {Name: "kind"}, {Name: "object_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{"count": gorm.Expr("count + 1"), "updated_at": now}),
	}).Create(&models.ContentView{Date: day(now), Kind: kind, ObjectID: id, Count: 1}).Error
	if err != nil {
		return fmt.Errorf("record view: %w", err)
	}
	return nil
}

// Totals counts users, posts, messages and today's views.
func (s *StatsService) Totals(ctx context.Context) (Totals, error) {
	db := s.db.WithContext(ctx)
	var t Totals
	if err := db.Model(&models.User{}).Count(&t.Users).Error; err != nil {
		return Totals{}, fmt.Errorf("count users: %w", err)
	}
	if err := db.Model(&models.Post{}).Count(&t.Posts).Error; err != nil {
		return Totals{}, fmt.Errorf("count posts: %w", err)
	}
	if err := db.Model(&models.Message{}).Count(&t.Messages).Error; err != nil {
		return Totals{}, fmt.Errorf("count messages: %w", err)
	}
	if err := db.Model(&models.Message{}).Where("is_active = ?", true).Count(&t.ActiveMessages).Error; err != nil {
		return Totals{}, fmt.Errorf("count active messages: %w", err)
	}
	if err := db.Model(&models.ContentView{}).Where("date = ?", day(s.now())).
		Select("COALESCE(SUM(count),0)").Scan(&t.ViewsToday).Error; err != nil {
		return Totals{}, fmt.Errorf("sum views: %w", err)
	}
	return t, nil
}

// ObjectStats reports the views of one post or message. Unknown objects are ErrNotFound.
func (s *StatsService) ObjectStats(ctx context.Context, kind string, id uint) (ObjectStats, error) {
	db := s.db.WithContext(ctx)
	var (
		exists int64
		err    error
	)
	switch kind {
	case models.KindPost:
		err = db.Model(&models.Post{}).Where("id = ?", id).Count(&exists).Error
	case models.KindMessage:
		err = db.Model(&models.Message{}).Where("id = ?", id).Count(&exists).Error
	default:
		return ObjectStats{}, fmt.Errorf("unknown kind %q", kind)
	}
	if err != nil {
		return ObjectStats{}, fmt.Errorf("load %s: %w", kind, err)
	}
	if exists == 0 {
		return ObjectStats{}, ErrNotFound
	}

	out := ObjectStats{Kind: kind, ID: id}
	views := db.Model(&models.ContentView{}).Where("kind = ? AND object_id = ?", kind, id)
	if err := views.Session(&gorm.Session{}).Select("COALESCE(SUM(count),0)").Scan(&out.Views).Error; err != nil {
		return ObjectStats{}, fmt.Errorf("sum views: %w", err)
	}
	if err := views.Session(&gorm.Session{}).Where("date = ?", day(s.now())).
		Select("COALESCE(SUM(count),0)").Scan(&out.ViewsToday).Error; err != nil {
		return ObjectStats{}, fmt.Errorf("sum views: %w", err)
	}
	return out, nil
}

func day(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
