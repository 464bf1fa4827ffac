package contenttype

import (
	"reflect"

	"github.com/John-Robertt/scenemeta/internal/domain"
)

// Type 是候选的内容类别。
type Type string

const (
	Scene       Type = "scene"
	Compilation Type = "compilation"
	// Movie 只为词表兼容保留：当前没有任何 provider 数据能产生它。
	Movie Type = "movie"
)

// Classify 判断候选是 scene 还是 compilation。
// 只有 compilation 字段存在且不是假值哨兵（"" / "0" / 数值 0 / false）时才是 compilation。
func Classify(h domain.Hit) Type {
	v, ok := h[domain.HitCompilation]
	if !ok || falsy(v) {
		return Scene
	}
	return Compilation
}

// FilterByType 保持输入顺序返回指定类别的候选。
func FilterByType(hits []domain.Hit, t Type) []domain.Hit {
	out := make([]domain.Hit, 0, len(hits))
	for _, h := range hits {
		if Classify(h) == t {
			out = append(out, h)
		}
	}
	return out
}

// StatsByType 统计各类别数量；scene 与 compilation 总是出现在结果里。
func StatsByType(hits []domain.Hit) map[Type]int {
	m := map[Type]int{Scene: 0, Compilation: 0}
	for _, h := range hits {
		m[Classify(h)]++
	}
	return m
}

func falsy(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return x == "" || x == "0"
	case bool:
		return !x
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int() == 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return rv.Uint() == 0
	case reflect.Float32, reflect.Float64:
		return rv.Float() == 0
	}
	return false
}
