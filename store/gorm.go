package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type matchRecord struct {
	ID        string    `gorm:"primaryKey;type:uuid"`
	StartedAt time.Time `gorm:"not null"`
	EndedAt   time.Time `gorm:"not null;index"`
	Players   int       `gorm:"not null"`
	Defender  int       `gorm:"not null"`
	Rounds    int       `gorm:"not null"`
	Status    string    `gorm:"not null"`
	Failed    bool      `gorm:"not null"`
	Reason    string
}

func (matchRecord) TableName() string {
	return "match_records"
}

func OpenPostgres(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	return db, nil
}

type Gorm struct {
	db *gorm.DB
}

// NewGorm creates the match_records table if needed.
func NewGorm(ctx context.Context, db *gorm.DB) (*Gorm, error) {
	if err := db.WithContext(ctx).AutoMigrate(&matchRecord{}); err != nil {
		return nil, fmt.Errorf("migrate match_records: %w", err)
	}
	return &Gorm{db: db}, nil
}

func (g *Gorm) Save(ctx context.Context, r Record) error {
	row := matchRecord{
		ID:        r.ID.String(),
		StartedAt: r.StartedAt,
		EndedAt:   r.EndedAt,
		Players:   r.Players,
		Defender:  r.Defender,
		Rounds:    r.Rounds,
		Status:    r.Status,
		Failed:    r.Failed,
		Reason:    r.Reason,
	}
	return g.db.WithContext(ctx).Create(&row).Error
}

func (g *Gorm) List(ctx context.Context, limit int) ([]Record, error) {
	rows := []matchRecord{}
	query := g.db.WithContext(ctx).
		Clauses(clause.OrderBy{
			Columns: []clause.OrderByColumn{{Column: clause.Column{Name: "ended_at"}, Desc: true}},
		})
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]Record, 0, len(rows))
	for _, row := range rows {
		id, err := uuid.Parse(row.ID)
		if err != nil {
			return nil, fmt.Errorf("match record %q: %w", row.ID, err)
		}
		out = append(out, Record{
			ID:        id,
			StartedAt: row.StartedAt,
			EndedAt:   row.EndedAt,
			Players:   row.Players,
			Defender:  row.Defender,
			Rounds:    row.Rounds,
			Status:    row.Status,
			Failed:    row.Failed,
			Reason:    row.Reason,
		})
	}
	return out, nil
}
