package user

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User 本地用户目录。Login 用于登录，Username 是对外展示的用户名，可以为空
type User struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	Login     string    `gorm:"uniqueIndex;size:64;not null" json:"login"`
	Username  *string   `gorm:"uniqueIndex;size:64" json:"username,omitempty"`
	Password  string    `gorm:"size:255;not null" json:"-"` // bcrypt 哈希
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

// Repository 用户仓储接口
type Repository interface {
	GetByID(ctx context.Context, id string) (*User, error)
	GetByLogin(ctx context.Context, login string) (*User, error)
	Create(ctx context.Context, u *User) error
	ListAll(ctx context.Context) ([]*User, error)
}
