// Package api реализует HTTP границу шлюза.
//
// Команды принимаются асинхронно (202 + отдельный SSE-поток событий)
// или одной связкой через /commands/stream. История и реестр
// отдаются обычным JSON.
package api
