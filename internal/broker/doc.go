// Package broker предоставляет инфраструктуру для работы с брокером
// сообщений.
//
// Структура:
//   - connection.go — управление соединением (reconnect, graceful shutdown)
//   - topology.go   — объявление exchanges, схема топиков
//   - messages.go   — конверт сообщения и payload'ы
//   - client.go     — publish/subscribe через resilient executor
//
// Схема routing keys (префикс настраивается):
//   - <prefix>.device.<id>.command            — команды устройствам
//   - <prefix>.device.<id>.ack                — подтверждения
//   - <prefix>.device.<id>.state.<capability> — состояния устройств
//
// Exchanges:
//   - hearth.devices — topic exchange команд/подтверждений/состояний
//   - hearth.dlq     — dead letter queue
package broker
