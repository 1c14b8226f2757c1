package mq

import (
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/example/marketplace/internal/config"
)

// ErrNotConfigured 没有配置 rabbitmq.url
var ErrNotConfigured = errors.New("rabbitmq url is not configured")

var (
	conn    *amqp.Connection
	initErr error
	once    sync.Once
)

// Dial 建立一条新的 AMQP 连接，连接名带上 exchange 方便在管理台区分
func Dial(cfg *config.RabbitMQConfig) (*amqp.Connection, error) {
	if cfg == nil || cfg.URL == "" {
		return nil, ErrNotConfigured
	}
	props := amqp.NewConnectionProperties()
	props.SetClientConnectionName("marketplace:" + cfg.Exchange)

	c, err := amqp.DialConfig(cfg.URL, amqp.Config{
		Heartbeat:  10 * time.Second,
		Locale:     "en_US",
		Properties: props,
	})
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	return c, nil
}

// Init 初始化进程内共享连接，只拨号一次；失败时每次调用都返回同一个错误
func Init(cfg *config.RabbitMQConfig) (*amqp.Connection, error) {
	once.Do(func() {
		conn, initErr = Dial(cfg)
	})
	return conn, initErr
}
