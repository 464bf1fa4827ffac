package provider

import "unicode"

// Profile 是一次调和要用到的 provider 顺序（按角色分开）。
// 同一个 provider 可以同时出现在两个角色里。
type Profile struct {
	Metadata []Provider
	Photo    []Provider
}

// Policy 把 subject 映射到 provider 顺序。调和器只依赖这个函数，不关心分类规则本身。
type Policy func(subject string) Profile

// StaticPolicy 对所有 subject 返回同一份 Profile。
func StaticPolicy(p Profile) Policy {
	return func(string) Profile { return p }
}

// ScriptPolicy 按文字体系选择 Profile：subject 含 CJK 字符时用 eastern，否则用 western。
func ScriptPolicy(eastern, western Profile) Policy {
	return func(subject string) Profile {
		if HasCJK(subject) {
			return eastern
		}
		return western
	}
}

// cjk 覆盖中日韩统一表意文字、假名、谚文以及全角/半角形式。
var cjk = []*unicode.RangeTable{
	unicode.Han,
	unicode.Hiragana,
	unicode.Katakana,
	unicode.Hangul,
	{R16: []unicode.Range16{
		{Lo: 0x3000, Hi: 0x303f, Stride: 1}, // CJK 标点
		{Lo: 0xff00, Hi: 0xffef, Stride: 1}, // 全角/半角形式
	}},
}

// HasCJK 判断字符串中是否含有 CJK 字符。
func HasCJK(s string) bool {
	for _, r := range s {
		if unicode.IsOneOf(cjk, r) {
			return true
		}
	}
	return false
}
