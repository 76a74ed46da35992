package catalog

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// Track is the persisted catalog row.
type Track struct {
	gorm.Model

	Ref      string `gorm:"uniqueIndex;not null"`
	Title    string `gorm:"index"`
	Artist   string `gorm:"index"`
	URL      string `gorm:"not null"`
	Duration float64 // seconds
}

// GormResolver resolves song references against the tracks table.
type GormResolver struct {
	db *gorm.DB
}

func NewGormResolver(db *gorm.DB) *GormResolver {
	return &GormResolver{db: db}
}

func (r *GormResolver) Resolve(ctx context.Context, ref string) (Song, error) {
	var t Track
	err := r.db.WithContext(ctx).Where("ref = ?", ref).First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Song{}, ErrSongNotResolvable
	}
	if err != nil {
		return Song{}, err
	}
	return Song{Ref: t.Ref, Title: t.Title, Artist: t.Artist, URL: t.URL, Duration: t.Duration}, nil
}
