package service

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/example/marketplace/internal/datamodels/listing"
	"github.com/example/marketplace/internal/infra/mq"
)

// Notifier 消费 message.sent 事件，通知 Listing 的所有者有新留言
type Notifier struct {
	repo listing.Repository
	log  *zap.Logger
}

func NewNotifier(repo listing.Repository, log *zap.Logger) *Notifier {
	if log == nil {
		log = zap.NewNop()
	}
	return &Notifier{repo: repo, log: log}
}

// Handle 处理一条事件：格式错误丢弃，数据库错误重新入队
func (n *Notifier) Handle(ctx context.Context, body []byte) mq.Handling {
	var ev MessageSentEvent
	if err := json.Unmarshal(body, &ev); err != nil || ev.ListingID == "" {
		n.log.Warn("invalid message.sent payload", zap.ByteString("body", body))
		GetMonitor().RecordWorkerFailed()
		return mq.Drop
	}

	l, err := n.repo.GetByID(ctx, ev.ListingID)
	if err != nil {
		n.log.Error("load listing for notification failed", zap.String("listing_id", ev.ListingID), zap.Error(err))
		GetMonitor().RecordWorkerFailed()
		return mq.Requeue
	}
	if l == nil {
		n.log.Warn("listing for notification not found", zap.String("listing_id", ev.ListingID))
		GetMonitor().RecordWorkerFailed()
		return mq.Drop
	}

	n.log.Info("new message on listing",
		zap.String("owner_id", l.UserID),
		zap.String("listing_id", l.ID),
		zap.String("listing_name", l.Name),
		zap.String("from_user", ev.FromUser),
		zap.String("from_user_name", ev.FromUserName),
		zap.String("message_id", ev.MessageID),
	)
	GetMonitor().RecordWorkerProcessed()
	return mq.Ack
}
