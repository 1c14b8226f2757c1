package listing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Listing 在售物品，UserID 为发布者身份，创建后不可修改
type Listing struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	Name        string    `gorm:"size:191;not null" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	Price       float64   `gorm:"not null" json:"price"`
	UserID      string    `gorm:"size:64;index;not null" json:"userId"`
	CreatedAt   time.Time `gorm:"index" json:"createdAt"`

	Messages []Message `gorm:"foreignKey:ListingID;constraint:OnDelete:CASCADE" json:"-"`
}

// Message 关于某个 Listing 的留言。FromUserName 是发送时的用户名快照，不随用户改名而变化
type Message struct {
	ID           string    `gorm:"primaryKey;size:36" json:"id"`
	Message      string    `gorm:"type:text;not null" json:"message"`
	ListingID    string    `gorm:"size:36;index;not null" json:"listingId"`
	FromUser     string    `gorm:"size:64;index;not null" json:"fromUser"`
	FromUserName string    `gorm:"size:128;not null" json:"fromUserName"`
	CreatedAt    time.Time `gorm:"index" json:"createdAt"`
}

func (l *Listing) BeforeCreate(tx *gorm.DB) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	return nil
}

func (m *Message) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}

// Repository Listing/Message 仓储接口。
// Create 系列方法原地回填生成的 ID：要么返回 nil 且记录可用，要么返回错误。
type Repository interface {
	// GetByID 按主键查询，不存在时返回 (nil, nil)
	GetByID(ctx context.Context, id string) (*Listing, error)
	ListByUser(ctx context.Context, userID string) ([]*Listing, error)
	// ListByUserWithMessages 查询用户的全部 Listing 并带出关联的 Messages
	ListByUserWithMessages(ctx context.Context, userID string) ([]*Listing, error)
	ListAll(ctx context.Context) ([]*Listing, error)
	Create(ctx context.Context, l *Listing) error

	CreateMessage(ctx context.Context, m *Message) error
	CountMessages(ctx context.Context) (int64, error)
}
