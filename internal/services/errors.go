package services

import (
	"errors"
	"fmt"
)

// Kind 错误类别
type Kind string

const (
	KindStore        Kind = "store"
	KindInvalidInput Kind = "invalid_input"
	KindNarrator     Kind = "narrator"
)

// Error 服务层错误，errors.Is 按类别匹配
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

var (
	// ErrStore 世界存储读写失败，操作已整体回滚
	ErrStore = &Error{Kind: KindStore}
	// ErrInvalidInput 请求参数不合法
	ErrInvalidInput = &Error{Kind: KindInvalidInput}
	// ErrNarratorUnavailable 叙事服务调用失败且没有兜底内容
	ErrNarratorUnavailable = &Error{Kind: KindNarrator}
)

func (e *Error) Error() string {
	if e.Err == nil {
		if e.Op == "" {
			return string(e.Kind)
		}
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

func invalidInput(op string, err error) error {
	return &Error{Kind: KindInvalidInput, Op: op, Err: err}
}

// storeFailure 已分类的错误原样返回，其余归为存储失败
func storeFailure(op string, err error) error {
	var svcErr *Error
	if errors.As(err, &svcErr) {
		return err
	}
	return &Error{Kind: KindStore, Op: op, Err: err}
}
