package broker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/korsky/hearth/internal/resilience"
)

// Классы операций брокера. Каждый класс владеет своим circuit breaker'ом.
const (
	ClassPublish   = "publish"
	ClassSubscribe = "subscribe"
)

// MessageHandler — обработчик доставленного сообщения.
// Возвращает error, если обработка не удалась (сообщение уйдёт в DLQ).
type MessageHandler func(ctx context.Context, topic string, msg *Message) error

// Client — клиент брокера поверх resilient executor'а.
//
// Publish и регистрация Subscribe проходят через circuit breaker
// своего класса операций. Доставка сообщений уже оформленной подписки
// брейкером не ограничивается — она идёт в собственной горутине.
type Client struct {
	conn   *Connection
	exec   *resilience.Executor
	prefix string
	logger *slog.Logger
}

// NewClient создаёт Client.
func NewClient(conn *Connection, exec *resilience.Executor, prefix string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		conn:   conn,
		exec:   exec,
		prefix: prefix,
		logger: logger,
	}
}

// Prefix возвращает настроенный префикс топиков.
func (c *Client) Prefix() string {
	return c.prefix
}

// Publish публикует сообщение в указанный топик.
//
// Для вызывающего — fire-and-forget: внутри retry и circuit breaker
// класса "publish". Ошибка сериализации payload не учитывается
// брейкером и возвращается сразу.
func (c *Client) Publish(ctx context.Context, topic string, msgType MessageType, payload any) error {
	msg := &Message{
		ID:        uuid.New().String(),
		Type:      msgType,
		Payload:   payload,
		Timestamp: time.Now(),
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	err = c.exec.Execute(ctx, ClassPublish, func(ctx context.Context) error {
		ch := c.conn.Channel()
		if ch == nil {
			return fmt.Errorf("%w: no channel", resilience.ErrConnectionLost)
		}

		pubErr := ch.PublishWithContext(
			ctx,
			string(ExchangeDevices), // exchange
			topic,                   // routing key
			false,
			false,
			amqp.Publishing{
				ContentType:  "application/json",
				DeliveryMode: amqp.Persistent,
				MessageId:    msg.ID,
				Timestamp:    msg.Timestamp,
				Body:         body,
			},
		)
		if pubErr != nil {
			return c.classify(fmt.Errorf("publish to %s: %v", topic, pubErr))
		}

		c.logger.Debug("published message",
			"topic", topic,
			"message_id", msg.ID,
			"type", msg.Type,
		)

		return nil
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}

	return nil
}

// PublishCommand публикует команду устройству.
func (c *Client) PublishCommand(ctx context.Context, cmd CommandPayload) error {
	return c.Publish(ctx, CommandTopic(c.prefix, cmd.DeviceID), MessageTypeCommand, cmd)
}

// registerFunc оформляет подписку и возвращает канал доставки.
type registerFunc func(ctx context.Context) (<-chan amqp.Delivery, error)

// Subscribe регистрирует обработчик для топиков, совпадающих с pattern.
//
// Сама регистрация (declare/bind/consume) защищена брейкером класса
// "subscribe"; при разрыве соединения подписка переоформляется заново
// через тот же брейкер.
func (c *Client) Subscribe(ctx context.Context, pattern string, handler MessageHandler) error {
	register := func(ctx context.Context) (<-chan amqp.Delivery, error) {
		return c.register(ctx, pattern)
	}

	deliveries, err := register(ctx)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", pattern, err)
	}

	c.logger.Info("subscribed", "pattern", pattern)

	go c.deliverLoop(ctx, pattern, deliveries, handler, register)

	return nil
}

// register оформляет подписку (declare/bind/consume) под брейкером
// класса "subscribe".
func (c *Client) register(ctx context.Context, pattern string) (<-chan amqp.Delivery, error) {
	var deliveries <-chan amqp.Delivery

	err := c.exec.Execute(ctx, ClassSubscribe, func(ctx context.Context) error {
		ch := c.conn.Channel()
		if ch == nil {
			return fmt.Errorf("%w: no channel", resilience.ErrConnectionLost)
		}

		// Эксклюзивная очередь подписчика, живёт вместе с соединением
		q, err := ch.QueueDeclare(
			"",    // имя генерируется сервером
			false, // durable
			true,  // delete when unused
			true,  // exclusive
			false, // no-wait
			nil,   // arguments
		)
		if err != nil {
			return c.classify(fmt.Errorf("declare queue: %v", err))
		}

		if err := ch.QueueBind(q.Name, pattern, string(ExchangeDevices), false, nil); err != nil {
			return c.classify(fmt.Errorf("bind %s to %s: %v", q.Name, pattern, err))
		}

		d, err := ch.Consume(
			q.Name, // queue
			"",     // consumer tag (auto-generated)
			false,  // auto-ack (мы ack вручную)
			true,   // exclusive
			false,  // no-local
			false,  // no-wait
			nil,    // args
		)
		if err != nil {
			return c.classify(fmt.Errorf("consume %s: %v", q.Name, err))
		}

		deliveries = d
		return nil
	})
	if err != nil {
		return nil, err
	}

	return deliveries, nil
}

// deliverLoop обрабатывает доставленные сообщения подписки.
// При закрытии канала доставки ждёт переподключения и переоформляет
// подписку (снова под брейкером); неудачная регистрация повторяется
// на каждом следующем переподключении, пока ctx жив.
func (c *Client) deliverLoop(ctx context.Context, pattern string, deliveries <-chan amqp.Delivery, handler MessageHandler, register registerFunc) {
	for {
		select {
		case <-ctx.Done():
			return

		case raw, ok := <-deliveries:
			if !ok {
				c.logger.Warn("deliveries channel closed", "pattern", pattern)

				d, ok := c.resubscribe(ctx, pattern, register)
				if !ok {
					return
				}
				deliveries = d
				continue
			}

			c.handleDelivery(ctx, raw, handler)
		}
	}
}

// resubscribe переоформляет подписку после разрыва. Каждая попытка
// ждёт уведомления о переподключении; ошибка регистрации означает
// ожидание следующего переподключения, а не остановку подписки.
// Возвращает false только при отмене ctx.
func (c *Client) resubscribe(ctx context.Context, pattern string, register registerFunc) (<-chan amqp.Delivery, bool) {
	for {
		select {
		case <-ctx.Done():
			return nil, false
		case <-c.conn.ReconnectNotify():
		}

		deliveries, err := register(ctx)
		if err != nil {
			c.logger.Error("failed to resubscribe", "pattern", pattern, "error", err)
			continue
		}

		c.logger.Info("resubscribed", "pattern", pattern)
		return deliveries, true
	}
}

// handleDelivery обрабатывает одно сообщение.
func (c *Client) handleDelivery(ctx context.Context, raw amqp.Delivery, handler MessageHandler) {
	var msg Message
	if err := json.Unmarshal(raw.Body, &msg); err != nil {
		c.logger.Error("failed to unmarshal message",
			"topic", raw.RoutingKey,
			"error", err,
		)
		// Некорректное сообщение — отклоняем без requeue
		raw.Nack(false, false)
		return
	}

	c.logger.Debug("received message",
		"topic", raw.RoutingKey,
		"message_id", msg.ID,
		"type", msg.Type,
	)

	if err := handler(ctx, raw.RoutingKey, &msg); err != nil {
		c.logger.Error("handler failed",
			"topic", raw.RoutingKey,
			"message_id", msg.ID,
			"error", err,
		)
		raw.Nack(false, false)
		return
	}

	raw.Ack(false)
}

// classify помечает ошибку брокера для учёта брейкером:
// потеря соединения или транзиентная ошибка I/O.
func (c *Client) classify(err error) error {
	if !c.conn.IsConnected() {
		return fmt.Errorf("%w: %v", resilience.ErrConnectionLost, err)
	}

	var amqpErr *amqp.Error
	if errors.As(err, &amqpErr) && amqpErr.Code == amqp.ChannelError {
		return fmt.Errorf("%w: %v", resilience.ErrConnectionLost, err)
	}

	return fmt.Errorf("%w: %v", resilience.ErrTransient, err)
}
