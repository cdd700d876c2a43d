package view

import "errors"

var (
	ErrInvalidStoryID = errors.New("invalid story id")

	ErrInvalidViewerID = errors.New("invalid viewer id")

	// ErrDuplicateView: хранилище отклонило повторный просмотр внутри окна
	ErrDuplicateView = errors.New("duplicate view in window")

	ErrViewNotFound = errors.New("view not found")
)
