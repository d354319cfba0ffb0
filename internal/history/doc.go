// Package history хранит историю запросов в Postgres.
//
// Персистентность опциональна: без БД шлюз работает с отключённой
// историей, nil-репозиторий означает «не записывать».
package history
