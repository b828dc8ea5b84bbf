package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cloud-wave-best-zizon/stock-tracker/internal/domain"
)

type PostgresUserRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewPostgresUserRepository(db *gorm.DB, logger *zap.Logger) *PostgresUserRepository {
	return &PostgresUserRepository{db: db, logger: logger}
}

// upsertClause refreshes the identity-provider columns when the email
// already exists. Nil name or image keep the stored value.
func upsertClause(u *domain.User) clause.OnConflict {
	cols := []string{"username", "google_id", "updated_at"}
	if u.Name != nil {
		cols = append(cols, "name")
	}
	if u.Image != nil {
		cols = append(cols, "image")
	}
	return clause.OnConflict{
		Columns:   []clause.Column{{Name: "email"}},
		DoUpdates: clause.AssignmentColumns(cols),
	}
}

func (r *PostgresUserRepository) Upsert(ctx context.Context, user *domain.User) (*domain.User, error) {
	row := *user
	if row.ID == "" {
		row.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	row.CreatedAt = now
	row.UpdatedAt = now

	err := r.db.WithContext(ctx).
		Clauses(upsertClause(user)).
		Create(&row).Error
	if err != nil {
		return nil, storageErr(r.logger, "upsert user", err)
	}

	// the insert may have been skipped, read back the stored row
	return r.GetByEmail(ctx, user.Email)
}

func (r *PostgresUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	var user domain.User
	err := r.db.WithContext(ctx).First(&user, "email = ?", email).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, storageErr(r.logger, "get user", err)
	}
	return &user, nil
}
