package domain

// Site 描述一个已知的 series 站点（SiteValidator 的查询结果）。
type Site struct {
	Name    string
	BaseURL string
}

// PhotoSet 是 photo 角色 provider 的返回值。字段全部可选。
type PhotoSet struct {
	Avatar   string
	Poster   string
	Backdrop []string
	Gallery  []string
}

// Empty 表示没有任何图片字段。
func (p PhotoSet) Empty() bool {
	return p.Avatar == "" && p.Poster == "" && len(p.Backdrop) == 0 && len(p.Gallery) == 0
}

// SourceAttempt 记录一次 provider 调用（仅用于聚合过程的记账/日志，调用结束即丢弃）。
type SourceAttempt struct {
	Provider  string
	Role      string // "metadata" / "photo"
	Succeeded bool
	Fields    []string // 本次调用实际贡献的字段名（JSON 名）
	Err       error
}
