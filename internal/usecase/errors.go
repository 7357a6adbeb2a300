package usecase

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"peercart/internal/validator"
)

// 画面に返すエラー（ステータスとメッセージ）
type HTTPError struct {
	Status  int
	Message string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%d: %s", e.Status, e.Message)
}

func NewHTTPError(status int, message string) error {
	return &HTTPError{
		Status:  status,
		Message: message,
	}
}

func AsHTTPError(err error) (*HTTPError, bool) {
	var he *HTTPError
	ok := errors.As(err, &he)
	return he, ok
}

// 入力エラーの一覧（フォームにそのまま並べる）
type ValidationErrors = validator.Errors

func AsValidationErrors(err error) (ValidationErrors, bool) {
	var ve ValidationErrors
	ok := errors.As(err, &ve)
	return ve, ok
}

var (
	errUnauthorized = NewHTTPError(http.StatusUnauthorized, "unauthorized")
	errForbidden    = NewHTTPError(http.StatusForbidden, "forbidden")
	errNotFound     = NewHTTPError(http.StatusNotFound, "not found")
)

// DBエラーを画面用の500にする。debugなら元のエラー文も付ける。
func dbError(message string, err error, debug bool) error {
	if debug && err != nil {
		message = message + ": " + err.Error()
	}
	return NewHTTPError(http.StatusInternalServerError, message)
}

// 現在時刻（テストで差し替える）
type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }
