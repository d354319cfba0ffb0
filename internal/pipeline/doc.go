// Package pipeline содержит шаги обработки запроса.
//
// Конвейер фиксированный: intent → device → sensor → action → speech.
// Шаги общаются через Context запроса и публикуют события прогресса
// через emit; порядок событий внутри запроса строгий, номера
// проставляет оркестратор.
package pipeline
