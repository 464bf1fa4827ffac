package query

import (
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/John-Robertt/scenemeta/internal/domain"
)

// SiteValidator 用于确认候选 series 是否是已知站点。
// 提供了 validator 时，未通过验证的 series 一律不拆分。
type SiteValidator interface {
	Lookup(series string) (domain.Site, bool)
}

// SiteValidatorFunc 让普通函数满足 SiteValidator。
type SiteValidatorFunc func(series string) (domain.Site, bool)

func (f SiteValidatorFunc) Lookup(series string) (domain.Site, bool) { return f(series) }

var videoExts = map[string]struct{}{
	".mp4": {}, ".mkv": {}, ".avi": {}, ".wmv": {}, ".mov": {}, ".m4v": {}, ".flv": {},
	".webm": {}, ".ts": {}, ".m2ts": {}, ".mpg": {}, ".mpeg": {}, ".rmvb": {}, ".iso": {},
}

// IsVideoExt 判断扩展名（带点，大小写不敏感）是否是已知视频扩展名。
func IsVideoExt(ext string) bool {
	_, ok := videoExts[strings.ToLower(ext)]
	return ok
}

// StripVideoExt 去掉结尾的已知视频扩展名（大小写不敏感）；其它扩展名保持原样。
func StripVideoExt(s string) string {
	ext := filepath.Ext(s)
	if ext == "" || ext == s {
		return s
	}
	if !IsVideoExt(ext) {
		return s
	}
	return strings.TrimSuffix(s, ext)
}

// ExtractSeriesTitle 把 "Series-Title" / "Series.Title" 拆成 (series, title)。
//
// 规则：
// - 取 '-' 与 '.' 中位置 > 0 的最早一个作为分隔符
// - series 首字符必须是大写字母；提供了 validator 时还必须通过 Lookup
// - 以 '.' 分隔时，title 中剩余的 '.' 替换为空格
//
// 任何不满足条件的输入都降级为 ("", query)，函数本身不会失败。
func ExtractSeriesTitle(query string, v SiteValidator) (series, title string) {
	s := StripVideoExt(query)

	idx := firstSeparator(s)
	if idx <= 0 {
		return "", query
	}
	sep := s[idx]

	cand := strings.TrimSpace(s[:idx])
	r, _ := utf8.DecodeRuneInString(cand)
	if cand == "" || !unicode.IsUpper(r) || !unicode.IsLetter(r) {
		return "", query
	}
	if v != nil {
		if _, ok := v.Lookup(cand); !ok {
			return "", query
		}
	}

	rest := s[idx+1:]
	if sep == '.' {
		rest = strings.ReplaceAll(rest, ".", " ")
	}
	rest = strings.TrimLeft(rest, "-._ ")
	rest = strings.TrimSpace(rest)
	if rest == "" {
		return "", query
	}
	return cand, rest
}

func firstSeparator(s string) int {
	best := -1
	for _, sep := range []string{"-", "."} {
		// 位置 0 的分隔符不算（例如 ".hidden"），继续找下一个。
		off := 0
		for {
			i := strings.Index(s[off:], sep)
			if i < 0 {
				break
			}
			i += off
			if i > 0 {
				if best < 0 || i < best {
					best = i
				}
				break
			}
			off = i + 1
		}
	}
	return best
}
