package match

import (
	"strings"
	"unicode/utf8"

	"github.com/John-Robertt/scenemeta/internal/domain"
)

// DefaultExcludeKeywords 是默认的“花絮类”关键词：命中的候选基础分从 50 降到 10。
var DefaultExcludeKeywords = []string{
	"bts",
	"behind the scenes",
	"behind-the-scenes",
	"making of",
	"bonus",
}

const (
	scoreExact      = 100.0
	baseNormal      = 50.0
	baseExcluded    = 10.0
	weightContains  = 50.0
	weightContained = 30.0
	weightWords     = 40.0
)

// Score 使用 DefaultExcludeKeywords 计算匹配分。
func Score(search, hit string) float64 {
	return ScoreWith(search, hit, DefaultExcludeKeywords)
}

// ScoreWith 计算 search 与候选标题 hit 的匹配分，范围 [0, 100]，越高越好。
//
// 规则按顺序判断，先命中者生效：
//  1. 忽略大小写与首尾空白后完全相等：100
//  2. 基础分：hit 含排除关键词为 10，否则 50
//  3. search 是 hit 的子串：基础分 + 50 × len(search)/len(hit)
//  4. hit 是 search 的子串：基础分 + 30 × len(hit)/len(search)
//  5. 词集合有交集：基础分 + 40 × |交集|/max(|词集A|, |词集B|)；否则 0
//
// 长度按 rune 计。
func ScoreWith(search, hit string, exclude []string) float64 {
	s := strings.ToLower(strings.TrimSpace(search))
	h := strings.ToLower(strings.TrimSpace(hit))
	if s == h {
		return scoreExact
	}

	base := baseNormal
	if containsAny(h, exclude) {
		base = baseExcluded
	}

	ls, lh := float64(utf8.RuneCountInString(s)), float64(utf8.RuneCountInString(h))
	switch {
	case strings.Contains(h, s):
		return base + weightContains*(ls/lh)
	case strings.Contains(s, h):
		return base + weightContained*(lh/ls)
	}

	ws, wh := wordSet(s), wordSet(h)
	common := 0
	for w := range ws {
		if _, ok := wh[w]; ok {
			common++
		}
	}
	if common == 0 {
		return 0
	}
	return base + weightWords*(float64(common)/float64(max(len(ws), len(wh))))
}

// SelectBest 在 hits 中选出与 search 最匹配的一条（按 hits[i][field] 取标题）。
//
// - 空输入：返回 false
// - 只有一条：直接返回，不计算分数
// - 多条：取最高分；同分取输入顺序中最靠前的一条（结果稳定、可重复）
//
// exclude 为 nil 时使用 DefaultExcludeKeywords。
func SelectBest(hits []domain.Hit, search, field string, exclude []string) (domain.Hit, bool) {
	i := SelectBestIndex(hits, search, field, exclude)
	if i < 0 {
		return nil, false
	}
	return hits[i], true
}

// SelectBestIndex 与 SelectBest 相同，但返回下标（没有候选时为 -1）。
func SelectBestIndex(hits []domain.Hit, search, field string, exclude []string) int {
	switch len(hits) {
	case 0:
		return -1
	case 1:
		return 0
	}
	if exclude == nil {
		exclude = DefaultExcludeKeywords
	}

	best, bestScore := 0, -1.0
	for i, h := range hits {
		sc := ScoreWith(search, h.Str(field), exclude)
		// 严格大于：同分保留先出现者。
		if sc > bestScore {
			best, bestScore = i, sc
		}
	}
	return best
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		k = strings.ToLower(strings.TrimSpace(k))
		if k != "" && strings.Contains(s, k) {
			return true
		}
	}
	return false
}

func wordSet(s string) map[string]struct{} {
	fields := strings.Fields(s)
	m := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		m[f] = struct{}{}
	}
	return m
}
