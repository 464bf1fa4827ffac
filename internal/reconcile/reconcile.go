// Package reconcile 按 provider 优先级为一个 subject 收集并合并字段。
//
// 约束：
//   - 串行执行，provider 逐个调用，不做并发扇出，不做重试
//   - 单个 provider 的失败（error 或 panic）只影响它自己的贡献
//   - 只有“所有 provider 都没有贡献任何字段”才向外表现为缺失，且仍然是哨兵值而不是错误
package reconcile

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/John-Robertt/scenemeta/internal/domain"
	"github.com/John-Robertt/scenemeta/internal/provider"
	"github.com/John-Robertt/scenemeta/internal/query"
)

const (
	RoleMetadata = "metadata"
	RolePhoto    = "photo"
)

// Logger 是调和器唯一的观测出口（*slog.Logger 直接满足该接口）。
// 生命周期归宿主程序所有。
type Logger interface {
	Log(ctx context.Context, level slog.Level, msg string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Log(context.Context, slog.Level, string, ...any) {}

// Options 是调和器的可选行为。
type Options struct {
	// PhotoShortCircuit 为 true 时，第一个贡献了至少一个图片字段的 photo provider 之后不再继续。
	// 这是部署策略，由配置显式决定（reconcile.photo_short_circuit）。
	PhotoShortCircuit bool
	Logger            Logger
}

// Reconciler 持有启动时构建好的 provider 选择策略。自身无可变状态。
type Reconciler struct {
	policy       provider.Policy
	shortCircuit bool
	log          Logger
}

func New(policy provider.Policy, opts Options) *Reconciler {
	if policy == nil {
		policy = provider.StaticPolicy(provider.Profile{})
	}
	var log Logger = nopLogger{}
	if opts.Logger != nil {
		log = opts.Logger
	}
	return &Reconciler{
		policy:       policy,
		shortCircuit: opts.PhotoShortCircuit,
		log:          log,
	}
}

// ResolveSubject 为一个 subject 合并所有 provider 的贡献。没有任何字段时返回 false。
func (r *Reconciler) ResolveSubject(ctx context.Context, subject string) (domain.ResultRecord, bool) {
	rec, ok, _ := r.ResolveSubjectTrace(ctx, subject)
	return rec, ok
}

// ResolveSubjectTrace 与 ResolveSubject 相同，但额外返回每次 provider 调用的记录（用于解释来源与降级原因）。
//
// 规则：
//   - metadata：按优先级调用，第一个返回非空 metadata 的 provider 胜出，之后的不再调用
//   - photo：按优先级调用，avatar/poster/backdrop/gallery 各自取第一个提供者的值
//   - photo 提供的 poster/backdrop 覆盖 metadata 中的同名字段（photo 是专职角色）
func (r *Reconciler) ResolveSubjectTrace(ctx context.Context, subject string) (domain.ResultRecord, bool, []domain.SourceAttempt) {
	started := time.Now()
	prof := r.policy(subject)
	attempts := make([]domain.SourceAttempt, 0, len(prof.Metadata)+len(prof.Photo))

	var rec domain.ResultRecord
	for _, p := range prof.Metadata {
		name := p.Name()
		m, ok, err := guard(func() (domain.ResultRecord, bool, error) { return p.SearchMetadata(ctx, subject) })
		att := domain.SourceAttempt{Provider: name, Role: RoleMetadata}
		if err != nil {
			att.Err = &provider.Error{Provider: name, Stage: provider.StageMetadata, Err: err}
			attempts = append(attempts, att)
			r.log.Log(ctx, slog.LevelWarn, "provider failed", "subject", subject, "provider", name, "role", RoleMetadata, "error", err)
			continue
		}
		if !ok || m.Empty() {
			attempts = append(attempts, att)
			r.log.Log(ctx, slog.LevelDebug, "provider returned no data", "subject", subject, "provider", name, "role", RoleMetadata)
			continue
		}
		att.Succeeded = true
		att.Fields = m.Fields()
		attempts = append(attempts, att)

		rec = m
		if strings.TrimSpace(rec.Source) == "" {
			rec.Source = name
		}
		break
	}

	var (
		photos      domain.PhotoSet
		photoSource string
	)
	for _, p := range prof.Photo {
		name := p.Name()
		ps, ok, err := guard(func() (domain.PhotoSet, bool, error) { return p.SearchPhotos(ctx, subject) })
		att := domain.SourceAttempt{Provider: name, Role: RolePhoto}
		if err != nil {
			att.Err = &provider.Error{Provider: name, Stage: provider.StagePhoto, Err: err}
			attempts = append(attempts, att)
			r.log.Log(ctx, slog.LevelWarn, "provider failed", "subject", subject, "provider", name, "role", RolePhoto, "error", err)
			continue
		}
		if !ok || ps.Empty() {
			attempts = append(attempts, att)
			r.log.Log(ctx, slog.LevelDebug, "provider returned no data", "subject", subject, "provider", name, "role", RolePhoto)
			continue
		}
		att.Succeeded = true
		att.Fields = mergePhotos(&photos, ps)
		attempts = append(attempts, att)
		if len(att.Fields) > 0 && photoSource == "" {
			photoSource = name
		}
		if len(att.Fields) > 0 && r.shortCircuit {
			break
		}
	}
	applyPhotos(&rec, photos)
	if rec.Source == "" {
		rec.Source = photoSource
	}

	if rec.Empty() {
		r.log.Log(ctx, slog.LevelWarn, "subject unresolved", "subject", subject, "attempts", len(attempts), "elapsed", time.Since(started))
		return domain.ResultRecord{}, false, attempts
	}
	rec.Subject = subject
	r.log.Log(ctx, slog.LevelInfo, "subject resolved", "subject", subject, "source", rec.Source, "fields", len(rec.Fields()), "elapsed", time.Since(started))
	return rec, true, attempts
}

// ResolveBatch 逐个调和 subjects，输出与输入一一对应（长度相同、顺序相同）。
// 没有结果的 subject 输出只带 Subject 的占位记录；单个 subject 的意外失败不会中断整个批次。
func (r *Reconciler) ResolveBatch(ctx context.Context, subjects []string) []domain.ResultRecord {
	out := make([]domain.ResultRecord, 0, len(subjects))
	var resolved int
	for _, s := range subjects {
		rec, ok := r.resolveIsolated(ctx, s)
		if !ok {
			rec = domain.ResultRecord{Subject: s}
		} else {
			resolved++
		}
		out = append(out, rec)
	}
	r.log.Log(ctx, slog.LevelInfo, "batch done", "total", len(subjects), "resolved", resolved, "placeholders", len(subjects)-resolved)
	return out
}

func (r *Reconciler) resolveIsolated(ctx context.Context, subject string) (rec domain.ResultRecord, ok bool) {
	defer func() {
		if v := recover(); v != nil {
			r.log.Log(ctx, slog.LevelError, "subject aborted", "subject", subject, "panic", v)
			rec, ok = domain.ResultRecord{}, false
		}
	}()
	return r.ResolveSubject(ctx, subject)
}

// Search 对原始查询串做分类后，按 metadata 优先级调用 SearchMultiple；
// 第一个返回非空结果的 provider 胜出。
func (r *Reconciler) Search(ctx context.Context, raw string, v query.SiteValidator, hints provider.Hints) (domain.Query, []domain.ResultRecord, []domain.SourceAttempt) {
	q := query.Classify(raw, v)
	prof := r.policy(raw)

	var attempts []domain.SourceAttempt
	for _, p := range prof.Metadata {
		name := p.Name()
		recs, _, err := guard(func() ([]domain.ResultRecord, bool, error) {
			out, err := p.SearchMultiple(ctx, q, hints)
			return out, true, err
		})
		att := domain.SourceAttempt{Provider: name, Role: RoleMetadata}
		if err != nil {
			att.Err = &provider.Error{Provider: name, Stage: provider.StageSearch, Err: err}
			attempts = append(attempts, att)
			r.log.Log(ctx, slog.LevelWarn, "provider failed", "query", raw, "provider", name, "role", RoleMetadata, "error", err)
			continue
		}
		if len(recs) == 0 {
			attempts = append(attempts, att)
			continue
		}
		att.Succeeded = true
		attempts = append(attempts, att)
		for i := range recs {
			if recs[i].Source == "" {
				recs[i].Source = name
			}
		}
		r.log.Log(ctx, slog.LevelInfo, "search resolved", "query", raw, "provider", name, "results", len(recs))
		return q, recs, attempts
	}
	r.log.Log(ctx, slog.LevelWarn, "search unresolved", "query", raw, "attempts", len(attempts))
	return q, nil, attempts
}

// guard 把 provider 调用中的 panic 转换为 *provider.PanicError。
func guard[T any](fn func() (T, bool, error)) (v T, ok bool, err error) {
	defer func() {
		if p := recover(); p != nil {
			var zero T
			v, ok, err = zero, false, &provider.PanicError{Value: p}
		}
	}()
	return fn()
}

// mergePhotos 只填充 dst 中仍为空的字段，返回本次新填充的字段名。
func mergePhotos(dst *domain.PhotoSet, src domain.PhotoSet) []string {
	var filled []string
	if dst.Avatar == "" && src.Avatar != "" {
		dst.Avatar = src.Avatar
		filled = append(filled, "avatar_url")
	}
	if dst.Poster == "" && src.Poster != "" {
		dst.Poster = src.Poster
		filled = append(filled, "poster_url")
	}
	if len(dst.Backdrop) == 0 && len(src.Backdrop) > 0 {
		dst.Backdrop = append([]string(nil), src.Backdrop...)
		filled = append(filled, "backdrop_url")
	}
	if len(dst.Gallery) == 0 && len(src.Gallery) > 0 {
		dst.Gallery = append([]string(nil), src.Gallery...)
		filled = append(filled, "gallery_urls")
	}
	return filled
}

func applyPhotos(rec *domain.ResultRecord, p domain.PhotoSet) {
	if p.Avatar != "" {
		rec.AvatarURL = p.Avatar
	}
	if p.Poster != "" {
		rec.PosterURL = p.Poster
	}
	if len(p.Backdrop) > 0 {
		rec.BackdropURL = p.Backdrop
	}
	if len(p.Gallery) > 0 {
		rec.GalleryURLs = p.Gallery
	}
}
