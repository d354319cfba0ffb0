// Package orchestrator управляет жизненным циклом запроса.
//
// Запрос проходит фиксированный конвейер шагов; прогресс отдаётся
// потребителю через ограниченный поток событий со строгим порядком
// и ровно одним терминальным событием. История запросов пишется в
// Postgres, когда репозиторий настроен.
package orchestrator
