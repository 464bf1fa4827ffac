package query

import (
	"strings"

	"github.com/John-Robertt/scenemeta/internal/domain"
)

// Classify 把原始查询串分类为日期查询或 series/title 查询。
//
// 日期写法优先；否则按 "Series-Title" 拆分，拆不出 series 时整串即 title。
// 结果满足：Date 与 Title 恰有一个非空（空白输入除外，此时两者都为空）。
func Classify(raw string, v SiteValidator) domain.Query {
	trimmed := strings.TrimSpace(raw)

	if series, d, ok := ParseDateQuery(StripVideoExt(trimmed)); ok {
		return domain.Query{Raw: raw, Series: series, Date: d}
	}

	series, title := ExtractSeriesTitle(trimmed, v)
	if series == "" {
		title = trimmed
	}
	return domain.Query{Raw: raw, Series: series, Title: title}
}
