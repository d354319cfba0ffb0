// Package resilience реализует circuit breaker и resilient executor
// для операций с брокером сообщений.
//
// Структура:
//   - breaker.go  — конечный автомат closed/open/half_open с retry
//   - executor.go — привязка операций к брейкерам по классам + таймауты
//   - errors.go   — таксономия ошибок и классификатор qualifying failures
//
// Каждый класс операций (publish, subscribe) владеет одним брейкером.
// Все переходы состояний и отказы наблюдаемы через метрики и логи.
package resilience
