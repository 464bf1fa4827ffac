package provider

import (
	"context"
	"fmt"

	"github.com/John-Robertt/scenemeta/internal/contenttype"
	"github.com/John-Robertt/scenemeta/internal/domain"
)

// Provider 把“站点差异”限制在适配器内部；核心流程只依赖这组统一能力。
//
// 约束：
//   - “没有数据”用 (零值, false, nil) 明确表达，而不是返回错误
//   - error 只表示真正的失败（网络、解析、站点拦截等）；调用方对 error 与“没有数据”一视同仁地降级
//   - 不做缓存、不做重试（重试属于 HTTP 层；重新调和由调用方决定）
type Provider interface {
	Name() string
	SearchMetadata(ctx context.Context, subject string) (domain.ResultRecord, bool, error)
	SearchPhotos(ctx context.Context, subject string) (domain.PhotoSet, bool, error)
	SearchMultiple(ctx context.Context, q domain.Query, hints Hints) ([]domain.ResultRecord, error)
}

// Hints 是 SearchMultiple 的可选提示。
type Hints struct {
	// Type 非空时只返回该类别的结果。
	Type contenttype.Type
	// Limit > 0 时限制返回条数。
	Limit int
}

const (
	StageMetadata = "metadata"
	StagePhoto    = "photo"
	StageSearch   = "search"
)

// Error 是 provider 阶段的可追溯错误。
type Error struct {
	Provider string // provider name（小写）
	Stage    string // StageMetadata / StagePhoto / StageSearch
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("provider=%s stage=%s: %v", e.Provider, e.Stage, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// PanicError 表示 provider 调用过程中发生了 panic（已被 recover）。
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string { return fmt.Sprintf("panic: %v", e.Value) }
