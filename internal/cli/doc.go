// Package cli реализует инструмент командной строки Hearth.
//
// # Обзор
//
// CLI — клиентская утилита для взаимодействия с Hearth API.
// Работает через HTTP, не импортирует внутренние пакеты шлюза.
//
// # Ключевые компоненты
//
// ## Client
//
// HTTP-клиент для Hearth API. Инкапсулирует запросы, парсинг ответов
// (DataResponse, ListResponse, ErrorResponse) и чтение SSE-потока
// событий обработки команды.
//
//	client := cli.NewClient("http://localhost:8080")
//	devices, err := client.ListDevices("")
//
// ## Output
//
// Форматирование вывода. Поддерживает два режима:
//   - Таблицы (text/tabwriter) — по умолчанию
//   - JSON (json.MarshalIndent) — с флагом --json
//
// Данные выводятся в stdout, сообщения (Success/Error) — в stderr.
// Это позволяет использовать pipe: hearth devices list --json | jq .
//
// ## Commands
//
// Cobra-команды организованы по ресурсам:
//   - ask: отправка команды со стримингом событий
//   - devices: list, show
//   - history: list, show
//
// Каждая группа создаётся через фабричную функцию (NewAskCmd и т.д.),
// принимающую clientFn и outputFn — замыкания для ленивого создания
// Client и Output после парсинга PersistentFlags.
package cli
