package broker

import (
	"context"
	"fmt"
	"log/slog"
)

// StateSink принимает обновления состояния capability устройств.
// Реализуется реестром устройств.
type StateSink interface {
	ApplyState(deviceID, capability string, value any)
}

// NewStateHandler возвращает обработчик топиков состояния: извлекает
// device_id и capability из топика и наполняет кэш состояний.
func NewStateHandler(prefix string, sink StateSink, logger *slog.Logger) MessageHandler {
	if logger == nil {
		logger = slog.Default()
	}

	return func(ctx context.Context, topic string, msg *Message) error {
		deviceID, capability, ok := ParseStateTopic(prefix, topic)
		if !ok {
			return fmt.Errorf("unexpected state topic %s", topic)
		}

		state, err := ParsePayload[StatePayload](msg)
		if err != nil {
			return err
		}

		sink.ApplyState(deviceID, capability, state.Value)
		return nil
	}
}

// NewAckHandler возвращает обработчик топиков подтверждений.
//
// Успешное подтверждение несёт актуальное состояние устройства после
// команды — оно применяется к кэшу состояний. Отказ устройства
// логируется с request_id для корреляции с историей запросов.
func NewAckHandler(prefix string, sink StateSink, logger *slog.Logger) MessageHandler {
	if logger == nil {
		logger = slog.Default()
	}

	return func(ctx context.Context, topic string, msg *Message) error {
		deviceID, ok := ParseAckTopic(prefix, topic)
		if !ok {
			return fmt.Errorf("unexpected ack topic %s", topic)
		}

		ack, err := ParsePayload[AckPayload](msg)
		if err != nil {
			return err
		}

		if !ack.Success {
			logger.Warn("device rejected command",
				"device_id", deviceID,
				"request_id", ack.RequestID,
				"error", ack.Error,
			)
			return nil
		}

		for capability, value := range ack.State {
			sink.ApplyState(deviceID, capability, value)
		}

		logger.Debug("device acknowledged command",
			"device_id", deviceID,
			"request_id", ack.RequestID,
		)

		return nil
	}
}
