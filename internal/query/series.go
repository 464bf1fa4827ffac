package query

import (
	"strings"

	"golang.org/x/text/width"
)

// NormalizeSeries 把 series 名规范化为只含 [a-z0-9] 的比较键。
// 全角字符先折叠为半角（"ＥｖｉｌＡｎｇｅｌ" 与 "EvilAngel" 等价），其余非 ASCII 字符直接丢弃。
func NormalizeSeries(name string) string {
	name = width.Narrow.String(name)
	var b strings.Builder
	b.Grow(len(name))
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c >= 'a' && c <= 'z', c >= '0' && c <= '9':
			b.WriteByte(c)
		case c >= 'A' && c <= 'Z':
			b.WriteByte(c + ('a' - 'A'))
		}
	}
	return b.String()
}

// SeriesMatches 判断两个 series 名是否指向同一 series：
// 规范化后相等，或其中一方是另一方的子串。
//
// 已知取舍：短 series 名会误配包含它的长名（例如 "ts" 与 "tsseduction"），以换取对缩写/部分名的容忍。
func SeriesMatches(a, b string) bool {
	na, nb := NormalizeSeries(a), NormalizeSeries(b)
	if na == "" || nb == "" {
		return false
	}
	return na == nb || strings.Contains(na, nb) || strings.Contains(nb, na)
}
