// Package apperr 定义应用统一的错误分类
package apperr

import (
	"errors"
	"net/http"
)

// Kind 错误类别
type Kind string

const (
	KindValidation    Kind = "validation"
	KindAuth          Kind = "auth"
	KindAuthorization Kind = "authorization"
	KindNotFound      Kind = "not_found"
	KindDuplicate     Kind = "duplicate"
	KindAPI           Kind = "api"
	KindConflict      Kind = "conflict"
	KindPartialSignUp Kind = "partial_sign_up"
	KindInternal      Kind = "internal"
)

// 哨兵错误，配合 errors.Is 按类别匹配
var (
	ErrValidation    = &Error{Kind: KindValidation}
	ErrAuth          = &Error{Kind: KindAuth}
	ErrAuthorization = &Error{Kind: KindAuthorization}
	ErrNotFound      = &Error{Kind: KindNotFound}
	ErrDuplicate     = &Error{Kind: KindDuplicate}
	ErrAPI           = &Error{Kind: KindAPI}
	ErrConflict      = &Error{Kind: KindConflict}
	ErrPartialSignUp = &Error{Kind: KindPartialSignUp}
	ErrInternal      = &Error{Kind: KindInternal}
)

// Error 应用错误
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// Is 同类别即视为相等
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

func newError(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Err: cause}
}

func Validation(message string) *Error    { return newError(KindValidation, message, nil) }
func Auth(message string) *Error          { return newError(KindAuth, message, nil) }
func Authorization(message string) *Error { return newError(KindAuthorization, message, nil) }
func NotFound(message string) *Error      { return newError(KindNotFound, message, nil) }
func Duplicate(message string) *Error     { return newError(KindDuplicate, message, nil) }
func Conflict(message string) *Error      { return newError(KindConflict, message, nil) }

// API 上游传输或 HTTP 失败，消息原样透传
func API(message string, cause error) *Error {
	return newError(KindAPI, message, cause)
}

// PartialSignUp 身份已创建但资料文档写入失败
func PartialSignUp(message string, cause error) *Error {
	return newError(KindPartialSignUp, message, cause)
}

// Internal 其他内部错误
func Internal(message string, cause error) *Error {
	return newError(KindInternal, message, cause)
}

// KindOf 返回错误类别，非应用错误视为 internal
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// HTTPStatus 错误类别到 HTTP 状态码的映射
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindAuth:
		return http.StatusUnauthorized
	case KindAuthorization:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindDuplicate, KindConflict:
		return http.StatusConflict
	case KindAPI:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
