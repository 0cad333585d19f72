// Package repository содержит общие ошибки хранилищ задач.
// Конкретные реализации лежат в repository/task/*.
package repository

import "errors"

var ErrNotFound = errors.New("задача не найдена")
var ErrUnavailable = errors.New("хранилище недоступно")
var ErrPermissionDenied = errors.New("доступ к чужим данным запрещён")
