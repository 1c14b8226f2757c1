package mq

import (
	"context"
	"errors"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Handling 消息处理结果
type Handling int

const (
	Ack          Handling = iota // 处理成功
	Drop                         // 消息无法处理，拒绝且不重新入队
	Requeue                      // 暂时失败，重新入队
)

// HandlerFunc 处理单条消息体
type HandlerFunc func(ctx context.Context, body []byte) Handling

// Consume 声明队列并绑定到 exchange，手动确认模式逐条处理，直到 ctx 结束或 channel 关闭
func Consume(ctx context.Context, conn *amqp.Connection, exchange, queue, bindingKey string, handle HandlerFunc) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}
	defer ch.Close()

	if err := ch.ExchangeDeclare(exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange %s: %w", exchange, err)
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue %s: %w", queue, err)
	}
	if err := ch.QueueBind(queue, bindingKey, exchange, false, nil); err != nil {
		return fmt.Errorf("bind queue %s: %w", queue, err)
	}
	if err := ch.Qos(10, 0, false); err != nil {
		return err
	}

	msgs, err := ch.Consume(queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", queue, err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("delivery channel closed")
			}
			if err := settle(d, handle(ctx, d.Body)); err != nil {
				return err
			}
		}
	}
}

func settle(d amqp.Delivery, h Handling) error {
	switch h {
	case Ack:
		return d.Ack(false)
	case Requeue:
		return d.Nack(false, true)
	default:
		return d.Nack(false, false)
	}
}
