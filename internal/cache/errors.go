package cache

import (
	"errors"
	"fmt"
)

// 错误类别哨兵，配合 errors.Is 判断失败原因。
var (
	ErrDerivationFailed = errors.New("cache path derivation failed")
	ErrNotFound         = errors.New("cache entry not found")
	ErrUnreadable       = errors.New("cache entry not readable")
	ErrIO               = errors.New("cache io failure")
	ErrEmptyContent     = errors.New("cache entry empty")
)

// Error 记录一次失败操作的上下文：操作名、key、推导出的路径与底层错误。
type Error struct {
	Op   string
	Key  string
	Path string
	Kind error
	Err  error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s %q: %v", e.Op, e.Key, e.Kind)
	if e.Path != "" {
		msg += " (" + e.Path + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap 同时暴露类别哨兵与底层 OS 错误，errors.Is 对两者均生效。
func (e *Error) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// KindOf 返回 err 所属的类别哨兵；非缓存错误返回 nil。
func KindOf(err error) error {
	var cerr *Error
	if errors.As(err, &cerr) {
		return cerr.Kind
	}
	return nil
}

func newError(op, key, path string, kind, err error) *Error {
	return &Error{Op: op, Key: key, Path: path, Kind: kind, Err: err}
}
