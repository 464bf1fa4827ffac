package domain

import "time"

// Query 是对一条自由格式查询串的结构化描述（分类结果）。
//
// 约束：
// - Classify 之后 Date 与 Title 恰有一个非空（Series 可以伴随任意一个）
// - 值类型，产生后不再修改
type Query struct {
	Raw    string
	Series string    // 为空表示没有识别出 series
	Title  string    // 为空表示这是日期查询
	Date   time.Time // 零值表示不是日期查询
}

// IsDate 表示该查询是否按日期检索。
func (q Query) IsDate() bool { return !q.Date.IsZero() }

// DateString 返回 YYYY-MM-DD；非日期查询返回空串。
func (q Query) DateString() string {
	if q.Date.IsZero() {
		return ""
	}
	return q.Date.Format(DateLayout)
}

// DateLayout 是 release_date 的统一格式。
const DateLayout = "2006-01-02"
