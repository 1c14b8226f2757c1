package mysql

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/example/marketplace/internal/datamodels/listing"
)

type listingRepo struct {
	db *gorm.DB
}

// NewListingRepository 创建 Listing/Message 仓储
func NewListingRepository(db *gorm.DB) listing.Repository {
	return &listingRepo{db: db}
}

func (r *listingRepo) GetByID(ctx context.Context, id string) (*listing.Listing, error) {
	var l listing.Listing
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&l).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &l, nil
}

func (r *listingRepo) ListByUser(ctx context.Context, userID string) ([]*listing.Listing, error) {
	list := make([]*listing.Listing, 0)
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC, id ASC").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *listingRepo) ListByUserWithMessages(ctx context.Context, userID string) ([]*listing.Listing, error) {
	list := make([]*listing.Listing, 0)
	if err := r.db.WithContext(ctx).
		Preload("Messages", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("created_at ASC, id ASC")
		}).
		Where("user_id = ?", userID).
		Order("created_at ASC, id ASC").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *listingRepo) ListAll(ctx context.Context) ([]*listing.Listing, error) {
	list := make([]*listing.Listing, 0)
	if err := r.db.WithContext(ctx).
		Order("created_at DESC, id DESC").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *listingRepo) Create(ctx context.Context, l *listing.Listing) error {
	return r.db.WithContext(ctx).Create(l).Error
}

func (r *listingRepo) CreateMessage(ctx context.Context, m *listing.Message) error {
	return r.db.WithContext(ctx).Create(m).Error
}

func (r *listingRepo) CountMessages(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&listing.Message{}).Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}
