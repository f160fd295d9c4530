package cache

import (
	"errors"
	"fmt"
)

// Op 标识 Retrieve 失败所处的阶段。
type Op string

const (
	OpRead   Op = "read"
	OpFetch  Op = "fetch"
	OpStatus Op = "status"
	OpWrite  Op = "write"
	OpDecode Op = "decode"
)

// RetrieveError 是 Cache 对外暴露的唯一错误类型，调用方可通过 errors.Is
// 匹配 ErrUnexpectedStatus、ErrInvalidUTF8、ErrDigestCollision 等原因。
type RetrieveError struct {
	Op     Op
	Key    string
	Digest string
	Err    error
}

func (e *RetrieveError) Error() string {
	return fmt.Sprintf("cache %s %s: %v", e.Op, e.Key, e.Err)
}

func (e *RetrieveError) Unwrap() error {
	return e.Err
}

// StatusError 记录上游返回的非 2xx 状态码。
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned status %d", e.URL, e.StatusCode)
}

// Is 使 errors.Is(err, ErrUnexpectedStatus) 对所有状态错误成立。
func (e *StatusError) Is(target error) bool {
	return target == ErrUnexpectedStatus
}

// RootError 表示构造时无法创建缓存根目录。该错误不是致命的：
// 返回的 Store 仍然可用，写入时会再次尝试创建目录。
type RootError struct {
	Path string
	Err  error
}

func (e *RootError) Error() string {
	return fmt.Sprintf("create cache root %s: %v", e.Path, e.Err)
}

func (e *RootError) Unwrap() error {
	return e.Err
}

// IsRootError 报告 err 是否为非致命的根目录创建错误。
func IsRootError(err error) bool {
	var rootErr *RootError
	return errors.As(err, &rootErr)
}
