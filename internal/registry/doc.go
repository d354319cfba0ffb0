// Package registry хранит реестр устройств и зон.
//
// Определения устройств загружаются из YAML файла и для ядра
// неизменяемы (реестром владеет внешняя система). Кэш состояний
// capability наполняется сообщениями с шины и используется шагом
// чтения сенсоров.
package registry
