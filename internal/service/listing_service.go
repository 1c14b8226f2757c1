package service

import (
	"context"
	"fmt"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/example/marketplace/internal/auth"
	"github.com/example/marketplace/internal/datamodels/listing"
	"github.com/example/marketplace/internal/identity"
)

// RoutingKeyMessageSent 新消息事件的路由键
const RoutingKeyMessageSent = "message.sent"

// GetListingInput get 入参
type GetListingInput struct {
	ListingID *string `json:"listingId" validate:"required"`
}

// CreateListingInput create 入参。没有 userId 字段：所有者只来自登录态
type CreateListingInput struct {
	Name        *string  `json:"name" validate:"required,min=1"`
	Description *string  `json:"description" validate:"present"`
	Price       *float64 `json:"price" validate:"present,finite"`
}

// SendMessageInput sendMessage 入参。没有 fromUser 字段：发送者只来自登录态
type SendMessageInput struct {
	Message   *string `json:"message" validate:"required,min=1"`
	ListingID *string `json:"listingId" validate:"required,min=1"`
}

// MessageSentEvent 消息写入后发布到 MQ 的事件
type MessageSentEvent struct {
	MessageID    string    `json:"message_id"`
	ListingID    string    `json:"listing_id"`
	FromUser     string    `json:"from_user"`
	FromUserName string    `json:"from_user_name"`
	SentAt       time.Time `json:"sent_at"`
}

// EventPublisher 事件发布
type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, payload any) error
}

// ListingService 物品与留言服务
type ListingService struct {
	repo     listing.Repository
	identity identity.Provider
	events   EventPublisher
	log      *zap.Logger
}

// NewListingService events 可以为 nil，此时不发布事件
func NewListingService(repo listing.Repository, idp identity.Provider, events EventPublisher, log *zap.Logger) *ListingService {
	if log == nil {
		log = zap.NewNop()
	}
	return &ListingService{
		repo:     repo,
		identity: idp,
		events:   events,
		log:      log,
	}
}

// Get 按 ID 查询，公开接口；不存在时返回 (nil, nil)
func (s *ListingService) Get(ctx context.Context, sess auth.Session, in GetListingInput) (*listing.Listing, error) {
	if err := validateInput(in); err != nil {
		GetMonitor().RecordRejected()
		return nil, err
	}
	l, err := s.repo.GetByID(ctx, *in.ListingID)
	if err != nil {
		GetMonitor().RecordDBError()
		return nil, err
	}
	return l, nil
}

// List 返回调用方自己的全部 Listing；匿名调用返回空列表且不访问数据库
func (s *ListingService) List(ctx context.Context, sess auth.Session) ([]*listing.Listing, error) {
	if !sess.Authenticated() {
		return []*listing.Listing{}, nil
	}
	list, err := s.repo.ListByUser(ctx, sess.UserID)
	if err != nil {
		GetMonitor().RecordDBError()
		return nil, err
	}
	return list, nil
}

// Create 发布新物品，UserID 强制取登录态
func (s *ListingService) Create(ctx context.Context, sess auth.Session, in CreateListingInput) (*listing.Listing, error) {
	if !sess.Authenticated() {
		GetMonitor().RecordRejected()
		return nil, ErrUnauthorized
	}
	if err := validateInput(in); err != nil {
		GetMonitor().RecordRejected()
		return nil, err
	}

	l := &listing.Listing{
		Name:        *in.Name,
		Description: *in.Description,
		Price:       *in.Price,
		UserID:      sess.UserID,
	}
	if err := s.repo.Create(ctx, l); err != nil {
		GetMonitor().RecordDBError()
		s.log.Error("create listing failed", zap.String("user_id", sess.UserID), zap.Error(err))
		return nil, err
	}
	GetMonitor().RecordListingCreated()
	s.log.Info("listing created", zap.String("listing_id", l.ID), zap.String("user_id", sess.UserID))
	return l, nil
}

// SendMessage 给某个 Listing 留言。发送者用户名在发送时从身份提供方取快照
func (s *ListingService) SendMessage(ctx context.Context, sess auth.Session, in SendMessageInput) (*listing.Message, error) {
	if !sess.Authenticated() {
		GetMonitor().RecordRejected()
		return nil, ErrUnauthorized
	}
	if err := validateInput(in); err != nil {
		GetMonitor().RecordRejected()
		return nil, err
	}

	profile, err := s.identity.GetUser(ctx, sess.UserID)
	if err != nil {
		s.log.Error("resolve sender profile failed", zap.String("user_id", sess.UserID), zap.Error(err))
		return nil, err
	}

	m := &listing.Message{
		Message:      *in.Message,
		ListingID:    *in.ListingID,
		FromUser:     sess.UserID,
		FromUserName: identity.DisplayName(profile),
	}
	if err := s.repo.CreateMessage(ctx, m); err != nil {
		GetMonitor().RecordDBError()
		s.log.Warn("create message failed",
			zap.String("listing_id", m.ListingID), zap.String("user_id", sess.UserID), zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrSendFailed, err)
	}
	GetMonitor().RecordMessageSent()

	s.publishMessageSent(ctx, m)
	return m, nil
}

// publishMessageSent 尽力发布事件，失败只记录日志
func (s *ListingService) publishMessageSent(ctx context.Context, m *listing.Message) {
	if s.events == nil {
		return
	}
	ev := MessageSentEvent{
		MessageID:    m.ID,
		ListingID:    m.ListingID,
		FromUser:     m.FromUser,
		FromUserName: m.FromUserName,
		SentAt:       m.CreatedAt,
	}
	if err := s.events.Publish(ctx, RoutingKeyMessageSent, ev); err != nil {
		GetMonitor().RecordMQError()
		s.log.Warn("publish message.sent failed", zap.String("message_id", m.ID), zap.Error(err))
	}
}

// GetMessages 调用方名下所有 Listing 收到的留言，按查询顺序展开成一个列表
func (s *ListingService) GetMessages(ctx context.Context, sess auth.Session) ([]*listing.Message, error) {
	if !sess.Authenticated() {
		GetMonitor().RecordRejected()
		return nil, ErrUnauthorized
	}
	owned, err := s.repo.ListByUserWithMessages(ctx, sess.UserID)
	if err != nil {
		GetMonitor().RecordDBError()
		return nil, err
	}
	return lo.FlatMap(owned, func(l *listing.Listing, _ int) []*listing.Message {
		return lo.Map(l.Messages, func(m listing.Message, _ int) *listing.Message {
			return &m
		})
	}), nil
}

// ListAll 后台使用：全部 Listing
func (s *ListingService) ListAll(ctx context.Context) ([]*listing.Listing, error) {
	return s.repo.ListAll(ctx)
}

// CountMessages 后台使用：留言总数
func (s *ListingService) CountMessages(ctx context.Context) (int64, error) {
	return s.repo.CountMessages(ctx)
}
