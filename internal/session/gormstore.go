package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tunelink/jamsync/internal/catalog"
	"github.com/tunelink/jamsync/internal/clock"
)

// Rows are deliberately normalized: participants and queue entries live in
// their own tables so join/leave/append are targeted row writes, never a
// rewrite of an embedded array (last-writer-wins would lose concurrent
// mutations otherwise).

type sessionRow struct {
	ID              string `gorm:"primaryKey"`
	Name            string
	HostID          string `gorm:"index"`
	CurrentSong     string
	Playing         bool
	Position        float64
	LastUpdated     time.Time
	IsActive        bool `gorm:"index"`
	IsPublic        bool
	MaxParticipants int
	CreatedAt       time.Time
}

func (sessionRow) TableName() string { return "jam_sessions" }

type participantRow struct {
	ID        uint   `gorm:"primaryKey"`
	SessionID string `gorm:"index:idx_session_user,unique"`
	UserID    string `gorm:"index:idx_session_user,unique"`
	JoinedAt  time.Time
}

func (participantRow) TableName() string { return "jam_participants" }

type queueRow struct {
	ID        uint   `gorm:"primaryKey"`
	SessionID string `gorm:"index"`
	SongRef   string
	Position  int
	CreatedAt time.Time
}

func (queueRow) TableName() string { return "jam_queue_entries" }

func forUpdate() clause.Locking { return clause.Locking{Strength: "UPDATE"} }

// GormStore persists sessions in Postgres.
type GormStore struct {
	db      *gorm.DB
	clk     clock.Clock
	catalog catalog.Resolver
}

func NewGormStore(db *gorm.DB, clk clock.Clock, cat catalog.Resolver) *GormStore {
	return &GormStore{db: db, clk: clk, catalog: cat}
}

// Migrate creates or updates the session tables.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&sessionRow{}, &participantRow{}, &queueRow{})
}

func (g *GormStore) Create(ctx context.Context, hostID string, cfg Config) (*Session, error) {
	now := g.clk.Now()
	row := sessionRow{
		ID:              uuid.NewString(),
		Name:            cfg.Name,
		HostID:          hostID,
		IsActive:        true,
		IsPublic:        cfg.IsPublic,
		MaxParticipants: cfg.MaxParticipants,
		LastUpdated:     now,
		CreatedAt:       now,
	}
	err := g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
		return tx.Create(&participantRow{SessionID: row.ID, UserID: hostID, JoinedAt: now}).Error
	})
	if err != nil {
		return nil, err
	}
	return g.Get(ctx, row.ID)
}

func (g *GormStore) Get(ctx context.Context, id string) (*Session, error) {
	var row sessionRow
	err := g.db.WithContext(ctx).First(&row, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var parts []participantRow
	if err := g.db.WithContext(ctx).Where("session_id = ?", id).Order("joined_at, id").Find(&parts).Error; err != nil {
		return nil, err
	}
	var queue []queueRow
	if err := g.db.WithContext(ctx).Where("session_id = ?", id).Order("position, id").Find(&queue).Error; err != nil {
		return nil, err
	}

	s := &Session{
		ID:              row.ID,
		Name:            row.Name,
		HostID:          row.HostID,
		CurrentSong:     row.CurrentSong,
		Playing:         row.Playing,
		Position:        row.Position,
		LastUpdated:     row.LastUpdated,
		IsActive:        row.IsActive,
		IsPublic:        row.IsPublic,
		MaxParticipants: row.MaxParticipants,
		CreatedAt:       row.CreatedAt,
		Queue:           make([]string, 0, len(queue)),
	}
	for _, p := range parts {
		s.Participants = append(s.Participants, Participant{UserID: p.UserID, JoinedAt: p.JoinedAt})
	}
	for _, q := range queue {
		s.Queue = append(s.Queue, q.SongRef)
	}
	return s, nil
}

func (g *GormStore) Join(ctx context.Context, id, userID string) (*Session, error) {
	err := g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row sessionRow
		if err := tx.Clauses(forUpdate()).First(&row, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if !row.IsActive {
			return ErrInactive
		}

		var existing int64
		if err := tx.Model(&participantRow{}).
			Where("session_id = ? AND user_id = ?", id, userID).
			Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return nil // idempotent
		}

		var count int64
		if err := tx.Model(&participantRow{}).Where("session_id = ?", id).Count(&count).Error; err != nil {
			return err
		}
		if count >= int64(row.MaxParticipants) {
			return ErrFull
		}
		return tx.Create(&participantRow{SessionID: id, UserID: userID, JoinedAt: g.clk.Now()}).Error
	})
	if err != nil {
		return nil, err
	}
	return g.Get(ctx, id)
}

func (g *GormStore) Leave(ctx context.Context, id, userID string) error {
	return g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row sessionRow
		if err := tx.Clauses(forUpdate()).First(&row, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		res := tx.Where("session_id = ? AND user_id = ?", id, userID).Delete(&participantRow{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotAParticipant
		}

		var remaining int64
		if err := tx.Model(&participantRow{}).Where("session_id = ?", id).Count(&remaining).Error; err != nil {
			return err
		}
		if userID == row.HostID || remaining == 0 {
			return tx.Model(&sessionRow{}).Where("id = ?", id).
				Updates(map[string]any{"is_active": false, "playing": false}).Error
		}
		return nil
	})
}

func (g *GormStore) End(ctx context.Context, id, userID string) error {
	return g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row sessionRow
		if err := tx.First(&row, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if row.HostID != userID {
			return ErrNotHost
		}
		return tx.Model(&sessionRow{}).Where("id = ?", id).
			Updates(map[string]any{"is_active": false, "playing": false}).Error
	})
}

func (g *GormStore) AppendToQueue(ctx context.Context, id, userID, songRef string) (*Session, error) {
	if _, err := g.catalog.Resolve(ctx, songRef); err != nil {
		return nil, err
	}

	err := g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row sessionRow
		if err := tx.First(&row, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if !row.IsActive {
			return ErrInactive
		}

		var member int64
		if err := tx.Model(&participantRow{}).
			Where("session_id = ? AND user_id = ?", id, userID).
			Count(&member).Error; err != nil {
			return err
		}
		if member == 0 {
			return ErrNotAParticipant
		}

		var next int64
		if err := tx.Model(&queueRow{}).Where("session_id = ?", id).Count(&next).Error; err != nil {
			return err
		}
		return tx.Create(&queueRow{
			SessionID: id,
			SongRef:   songRef,
			Position:  int(next),
			CreatedAt: g.clk.Now(),
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return g.Get(ctx, id)
}

func (g *GormStore) UpdateTransportState(ctx context.Context, id string, upd TransportUpdate) error {
	fields := map[string]any{"last_updated": g.clk.Now()}
	if upd.CurrentSong != nil {
		fields["current_song"] = *upd.CurrentSong
	}
	if upd.Position != nil {
		fields["position"] = *upd.Position
	}
	if upd.Playing != nil {
		fields["playing"] = *upd.Playing
	}
	res := g.db.WithContext(ctx).Model(&sessionRow{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
