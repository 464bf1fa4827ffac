package query

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/John-Robertt/scenemeta/internal/domain"
)

// datePattern 是一种可识别的日期查询写法。
// build 负责把子匹配转成日期；日历上不存在的日期返回 ok=false，解析器会继续尝试下一种写法。
type datePattern struct {
	name  string
	re    *regexp.Regexp
	build func(m []string) (series string, d time.Time, ok bool)
}

// 顺序即优先级，不要调整。
var datePatterns = []datePattern{
	{
		name: "series.yy.mm.dd",
		re:   regexp.MustCompile(`^([A-Za-z]+)\.(\d{2})\.(\d{2})\.(\d{2})$`),
		build: func(m []string) (string, time.Time, bool) {
			d, ok := civil(2000+atoi(m[2]), atoi(m[3]), atoi(m[4]))
			return m[1], d, ok
		},
	},
	{
		name: "yy.mm.dd",
		re:   regexp.MustCompile(`^(\d{2})\.(\d{2})\.(\d{2})$`),
		build: func(m []string) (string, time.Time, bool) {
			d, ok := civil(2000+atoi(m[1]), atoi(m[2]), atoi(m[3]))
			return "", d, ok
		},
	},
	{
		name: "yyyy-mm-dd",
		re:   regexp.MustCompile(`^(\d{4})-(\d{1,2})-(\d{1,2})$`),
		build: func(m []string) (string, time.Time, bool) {
			d, ok := civil(atoi(m[1]), atoi(m[2]), atoi(m[3]))
			return "", d, ok
		},
	},
	{
		name: "mm/dd/yyyy",
		re:   regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{4})$`),
		build: func(m []string) (string, time.Time, bool) {
			d, ok := civil(atoi(m[3]), atoi(m[1]), atoi(m[2]))
			return "", d, ok
		},
	},
	{
		name: "yyyy/mm/dd",
		re:   regexp.MustCompile(`^(\d{4})/(\d{1,2})/(\d{1,2})$`),
		build: func(m []string) (string, time.Time, bool) {
			d, ok := civil(atoi(m[1]), atoi(m[2]), atoi(m[3]))
			return "", d, ok
		},
	},
	{
		name: "mon dd, yyyy",
		re:   regexp.MustCompile(`(?i)^(jan|feb|mar|apr|may|jun|jul|aug|sep|sept|oct|nov|dec)\.?\s+(\d{1,2}),?\s+(\d{4})$`),
		build: func(m []string) (string, time.Time, bool) {
			return monthName(m[1][:3], m[2], m[3], "Jan")
		},
	},
	{
		name: "month dd, yyyy",
		re:   regexp.MustCompile(`(?i)^(january|february|march|april|may|june|july|august|september|october|november|december)\s+(\d{1,2}),?\s+(\d{4})$`),
		build: func(m []string) (string, time.Time, bool) {
			return monthName(m[1], m[2], m[3], "January")
		},
	},
}

// ParseDateQuery 识别日期查询（可带 series 前缀）。
//
// 两位年份一律按 2000+YY 处理（不做世纪回卷）。
// 未识别时返回 ("", time.Time{}, false)：调用方应把整串当作普通标题。
func ParseDateQuery(q string) (series string, date time.Time, ok bool) {
	q = strings.TrimSpace(q)
	if q == "" {
		return "", time.Time{}, false
	}
	for _, p := range datePatterns {
		m := p.re.FindStringSubmatch(q)
		if m == nil {
			continue
		}
		s, d, ok := p.build(m)
		if !ok {
			continue
		}
		return s, d, true
	}
	return "", time.Time{}, false
}

// IsDateQuery 等价于 ParseDateQuery 是否得到日期。
func IsDateQuery(q string) bool {
	_, _, ok := ParseDateQuery(q)
	return ok
}

// FormatDateQuery 是 ParseDateQuery 的逆操作：
// 有 series 时输出 normalize(series).YY.MM.DD，否则输出 YYYY-MM-DD。
//
// 注意：series 一律小写输出，因此混合大小写的 series 往返后不再逐字节相同。
func FormatDateQuery(series string, d time.Time) string {
	if n := NormalizeSeries(series); n != "" {
		return n + "." + d.Format("06.01.02")
	}
	return d.Format(domain.DateLayout)
}

// civil 构造 UTC 零点日期；time.Date 会把 2 月 30 日之类“进位”，这里要求各分量原样保留。
func civil(y, m, d int) (time.Time, bool) {
	if m < 1 || m > 12 || d < 1 || d > 31 {
		return time.Time{}, false
	}
	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	if t.Year() != y || int(t.Month()) != m || t.Day() != d {
		return time.Time{}, false
	}
	// 0001-01-01 是 time.Time 的零值，在 Query 中表示“没有日期”。
	if t.IsZero() {
		return time.Time{}, false
	}
	return t, true
}

func monthName(month, day, year, layout string) (string, time.Time, bool) {
	// time.Parse 的月份名匹配不区分大小写。
	t, err := time.Parse(layout, month)
	if err != nil {
		return "", time.Time{}, false
	}
	d, ok := civil(atoi(year), int(t.Month()), atoi(day))
	return "", d, ok
}

func atoi(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return -1
	}
	return n
}
