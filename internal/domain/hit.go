package domain

import (
	"fmt"
	"strings"
)

// Hit 是 provider 返回的一条原始候选（不透明的字段映射）。
// 核心代码只读不写；key 由 provider 决定，下面的常量是约定俗成的公共 key。
type Hit map[string]any

const (
	HitTitle        = "title"
	HitCode         = "code"
	HitDate         = "date"
	HitSeries       = "series"
	HitStudio       = "studio"
	HitURL          = "url"
	HitImage        = "image"
	HitPerformers   = "performers"
	HitTags         = "tags"
	HitCompilation  = "compilation"
	HitPreviewVideo = "preview_video"
	HitOverview     = "overview"
	HitDuration     = "duration"
)

// Has 表示 key 存在且值不是 nil。
func (h Hit) Has(key string) bool {
	v, ok := h[key]
	return ok && v != nil
}

// Str 以字符串形式读取字段；非字符串标量用 fmt 格式化，缺失返回空串。
func (h Hit) Str(key string) string {
	v, ok := h[key]
	if !ok || v == nil {
		return ""
	}
	switch x := v.(type) {
	case string:
		return strings.TrimSpace(x)
	case []string, []any, map[string]any:
		return ""
	default:
		return strings.TrimSpace(fmt.Sprint(x))
	}
}

// Strings 读取列表字段；单个字符串视为一个元素。空白项会被丢弃。
func (h Hit) Strings(key string) []string {
	v, ok := h[key]
	if !ok || v == nil {
		return nil
	}
	var out []string
	add := func(s string) {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	switch x := v.(type) {
	case string:
		add(x)
	case []string:
		for _, s := range x {
			add(s)
		}
	case []any:
		for _, e := range x {
			if s, ok := e.(string); ok {
				add(s)
			}
		}
	}
	return out
}
