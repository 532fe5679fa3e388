// Package errcode 定义服务层与 HTTP 层之间约定的错误类型。
//
//   - ErrNotFound：记录不存在，或属于其他用户（两者对调用方不可区分）
//   - *ValidationError：字段级校验失败，按字段聚合错误信息
package errcode

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrNotFound 表示目标记录不存在或不归当前用户所有。
var ErrNotFound = errors.New("not found")

// ValidationError 按字段收集校验错误，对应 HTTP 400。
type ValidationError struct {
	Fields map[string][]string
}

// Invalid 构造只包含一个字段错误的 ValidationError。
func Invalid(field, msg string) *ValidationError {
	v := &ValidationError{}
	v.Add(field, msg)
	return v
}

// Add 追加一个字段错误。
func (v *ValidationError) Add(field, msg string) {
	if v.Fields == nil {
		v.Fields = map[string][]string{}
	}
	v.Fields[field] = append(v.Fields[field], msg)
}

// Has reports whether field carries at least one error.
func (v *ValidationError) Has(field string) bool {
	return len(v.Fields[field]) > 0
}

// Err 在没有任何字段错误时返回 nil，便于 `return v.Err()`。
func (v *ValidationError) Err() error {
	if v == nil || len(v.Fields) == 0 {
		return nil
	}
	return v
}

func (v *ValidationError) Error() string {
	fields := make([]string, 0, len(v.Fields))
	for field := range v.Fields {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, fmt.Sprintf("%s: %s", field, strings.Join(v.Fields[field], "; ")))
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

// AsValidation 提取错误链中的 ValidationError。
func AsValidation(err error) (*ValidationError, bool) {
	var v *ValidationError
	if errors.As(err, &v) {
		return v, true
	}
	return nil, false
}
