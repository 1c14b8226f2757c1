// Package identity 身份提供方：根据不透明的用户 ID 查询资料（用户名等）。
package identity

import (
	"context"
	"fmt"

	"github.com/example/marketplace/internal/datamodels/user"
)

// UnknownUsername 身份提供方没有用户名记录时使用的占位名
const UnknownUsername = "Unknown"

// Profile 用户资料，Username 可能缺失
type Profile struct {
	ID       string
	Username *string
}

// Provider 身份提供方
type Provider interface {
	GetUser(ctx context.Context, id string) (*Profile, error)
}

// DisplayName 返回资料中的用户名，缺失时返回 UnknownUsername
func DisplayName(p *Profile) string {
	if p == nil || p.Username == nil || *p.Username == "" {
		return UnknownUsername
	}
	return *p.Username
}

// Directory 基于本地用户表的身份提供方
type Directory struct {
	users user.Repository
}

func NewDirectory(users user.Repository) *Directory {
	return &Directory{users: users}
}

// GetUser 用户不存在时返回只有 ID 的资料；仓储错误原样向上抛出
func (d *Directory) GetUser(ctx context.Context, id string) (*Profile, error) {
	u, err := d.users.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("lookup user %s: %w", id, err)
	}
	if u == nil {
		return &Profile{ID: id}, nil
	}
	return &Profile{ID: u.ID, Username: u.Username}, nil
}
