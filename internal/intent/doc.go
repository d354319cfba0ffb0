// Package intent описывает границу разбора намерений.
//
// Ядро потребляет структурированный Intent через интерфейс Resolver;
// сам разбор — внешний коллаборатор (LLM-сервис или правила).
// RuleResolver — встроенная реализация на ключевых словах.
package intent
