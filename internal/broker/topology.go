package broker

import (
	"context"
	"fmt"
	"strings"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Exchange — тип для имени обменника.
type Exchange string

// Exchanges — имена обменников.
const (
	// ExchangeDevices — topic exchange для команд, подтверждений
	// и состояний устройств. Routing keys иерархические, через точку,
	// с настраиваемым префиксом.
	ExchangeDevices Exchange = "hearth.devices"

	// ExchangeDLQ — dead letter exchange для необработанных сообщений.
	ExchangeDLQ Exchange = "hearth.dlq"
)

// QueueDLQ — очередь мёртвых сообщений.
const QueueDLQ = "dlq.events"

// SetupTopology объявляет обменники и DLQ очередь.
// Очереди подписчиков объявляются при Subscribe (exclusive, auto-delete).
func SetupTopology(ctx context.Context, conn *Connection) error {
	return conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		exchanges := []struct {
			name Exchange
			kind string
		}{
			{ExchangeDevices, "topic"},
			{ExchangeDLQ, "direct"},
		}

		for _, ex := range exchanges {
			err := ch.ExchangeDeclare(
				string(ex.name), // name
				ex.kind,         // type
				true,            // durable
				false,           // auto-deleted
				false,           // internal
				false,           // no-wait
				nil,             // arguments
			)
			if err != nil {
				return fmt.Errorf("declare exchange %s: %w", ex.name, err)
			}
		}

		_, err := ch.QueueDeclare(
			QueueDLQ, // name
			true,     // durable
			false,    // delete when unused
			false,    // exclusive
			false,    // no-wait
			nil,      // arguments
		)
		if err != nil {
			return fmt.Errorf("declare queue %s: %w", QueueDLQ, err)
		}

		if err := ch.QueueBind(QueueDLQ, "events", string(ExchangeDLQ), false, nil); err != nil {
			return fmt.Errorf("bind queue %s: %w", QueueDLQ, err)
		}

		return nil
	})
}

// --- Топики ---
//
// Схема routing keys (prefix настраивается, по умолчанию "hearth"):
//
//	<prefix>.device.<device_id>.command            — команды устройствам
//	<prefix>.device.<device_id>.ack                — подтверждения
//	<prefix>.device.<device_id>.state.<capability> — состояния

// CommandTopic возвращает топик команд устройства.
func CommandTopic(prefix, deviceID string) string {
	return fmt.Sprintf("%s.device.%s.command", prefix, deviceID)
}

// AckTopic возвращает топик подтверждений устройства.
func AckTopic(prefix, deviceID string) string {
	return fmt.Sprintf("%s.device.%s.ack", prefix, deviceID)
}

// StateTopic возвращает топик состояния capability устройства.
func StateTopic(prefix, deviceID, capability string) string {
	return fmt.Sprintf("%s.device.%s.state.%s", prefix, deviceID, capability)
}

// AckPattern возвращает паттерн подписки на все подтверждения.
func AckPattern(prefix string) string {
	return prefix + ".device.*.ack"
}

// StatePattern возвращает паттерн подписки на все состояния.
func StatePattern(prefix string) string {
	return prefix + ".device.*.state.*"
}

// ParseStateTopic извлекает device_id и capability из топика состояния.
// Возвращает false, если топик не соответствует схеме.
func ParseStateTopic(prefix, topic string) (deviceID, capability string, ok bool) {
	parts := strings.Split(topic, ".")
	// <prefix>.device.<id>.state.<capability>
	if len(parts) != 5 || parts[0] != prefix || parts[1] != "device" || parts[3] != "state" {
		return "", "", false
	}
	return parts[2], parts[4], true
}

// ParseAckTopic извлекает device_id из топика подтверждения.
func ParseAckTopic(prefix, topic string) (deviceID string, ok bool) {
	parts := strings.Split(topic, ".")
	if len(parts) != 4 || parts[0] != prefix || parts[1] != "device" || parts[3] != "ack" {
		return "", false
	}
	return parts[2], true
}
