package service

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/example/marketplace/internal/auth"
	"github.com/example/marketplace/internal/config"
	"github.com/example/marketplace/internal/datamodels/user"
)

// RegisterInput 注册入参，Username 可选
type RegisterInput struct {
	Login    string  `json:"login" validate:"required,min=3,max=64"`
	Password string  `json:"password" validate:"required,min=6,max=72"`
	Username *string `json:"username,omitempty" validate:"omitempty,min=1,max=64"`
}

// LoginInput 登录入参
type LoginInput struct {
	Login    string `json:"login" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type UserService struct {
	repo user.Repository
	jwt  *config.JWTConfig
}

func NewUserService(repo user.Repository, jwt *config.JWTConfig) *UserService {
	return &UserService{repo: repo, jwt: jwt}
}

// Register 注册本地用户，密码使用 bcrypt 存储
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*user.User, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	u := &user.User{
		Login:    in.Login,
		Username: in.Username,
		Password: string(hash),
	}
	if err := s.repo.Create(ctx, u); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("%w: %s", ErrLoginTaken, in.Login)
		}
		return nil, err
	}
	return u, nil
}

// Login 登录并返回 JWT
func (s *UserService) Login(ctx context.Context, in LoginInput) (string, error) {
	if err := validateInput(in); err != nil {
		return "", err
	}
	u, err := s.repo.GetByLogin(ctx, in.Login)
	if err != nil {
		return "", err
	}
	if u == nil {
		return "", ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(in.Password)); err != nil {
		return "", ErrInvalidCredentials
	}
	username := ""
	if u.Username != nil {
		username = *u.Username
	}
	return auth.GenerateToken(s.jwt, u.ID, username)
}

// ListAll 后台使用：全部用户
func (s *UserService) ListAll(ctx context.Context) ([]*user.User, error) {
	return s.repo.ListAll(ctx)
}
