// Package config загружает конфигурацию сервиса из YAML файла
// с переопределением через переменные окружения.
//
// Секции:
//   - broker   — адрес брокера, префикс топиков, настройки брейкеров
//   - registry — файл реестра устройств
//   - gateway  — адрес HTTP сервера
//   - pipeline — параметры конвейера (буфер событий)
package config
