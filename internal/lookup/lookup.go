package lookup

import (
	"strconv"
	"strings"

	"github.com/John-Robertt/scenemeta/internal/contenttype"
	"github.com/John-Robertt/scenemeta/internal/domain"
	"github.com/John-Robertt/scenemeta/internal/match"
	"github.com/John-Robertt/scenemeta/internal/query"
)

// Options 控制候选挑选。零值可用：按 title 字段、默认排除词、不过滤类别。
type Options struct {
	TitleField string
	Exclude    []string
	// Type 非空时先按内容类别过滤（例如只要 scene）。
	Type contenttype.Type
}

func (o Options) titleField() string {
	if strings.TrimSpace(o.TitleField) == "" {
		return domain.HitTitle
	}
	return o.TitleField
}

// Pick 从 provider 返回的候选中挑出与查询对应的一条。
//
//   - 日期查询：只接受日期相同的候选；查询带 series 且候选有 series/studio 时还必须 SeriesMatches。
//     多条满足时取输入顺序中的第一条。
//   - 标题查询：查询带 series 时优先考虑 series 匹配的候选（一条都不匹配则不缩小范围），
//     然后交给 match.SelectBest。
func Pick(q domain.Query, hits []domain.Hit, opts Options) (domain.Hit, bool) {
	if opts.Type != "" {
		hits = contenttype.FilterByType(hits, opts.Type)
	}
	if len(hits) == 0 {
		return nil, false
	}

	if q.IsDate() {
		want := q.DateString()
		for _, h := range hits {
			if HitDate(h) != want {
				continue
			}
			if q.Series != "" {
				if hs := hitSeries(h); hs != "" && !query.SeriesMatches(q.Series, hs) {
					continue
				}
			}
			return h, true
		}
		return nil, false
	}

	if q.Series != "" {
		narrowed := make([]domain.Hit, 0, len(hits))
		for _, h := range hits {
			if query.SeriesMatches(q.Series, hitSeries(h)) {
				narrowed = append(narrowed, h)
			}
		}
		if len(narrowed) > 0 {
			hits = narrowed
		}
	}
	return match.SelectBest(hits, q.Title, opts.titleField(), opts.Exclude)
}

// HitDate 把候选的日期字段规范化为 YYYY-MM-DD；无法识别时返回空串。
func HitDate(h domain.Hit) string {
	raw := h.Str(domain.HitDate)
	if raw == "" {
		return ""
	}
	// 有些站点给的是 "2026-01-17T00:00:00Z" 这种时间戳，只取日期部分。
	if len(raw) > 10 && raw[4] == '-' && raw[10] == 'T' {
		raw = raw[:10]
	}
	_, d, ok := query.ParseDateQuery(raw)
	if !ok {
		return ""
	}
	return d.Format(domain.DateLayout)
}

func hitSeries(h domain.Hit) string {
	if s := h.Str(domain.HitSeries); s != "" {
		return s
	}
	return h.Str(domain.HitStudio)
}

// ToRecord 把一条候选转换为 ResultRecord（source 为 provider 名）。
// 只有 preview_video 字段形状非法时返回错误。
func ToRecord(h domain.Hit, source string) (domain.ResultRecord, error) {
	previews, err := domain.ParsePreviewVideos(h[domain.HitPreviewVideo])
	if err != nil {
		return domain.ResultRecord{}, err
	}

	r := domain.ResultRecord{
		Code:             h.Str(domain.HitCode),
		Title:            h.Str(domain.HitTitle),
		ReleaseDate:      HitDate(h),
		Studio:           h.Str(domain.HitStudio),
		Series:           h.Str(domain.HitSeries),
		Actors:           h.Strings(domain.HitPerformers),
		Genres:           h.Strings(domain.HitTags),
		PosterURL:        h.Str(domain.HitImage),
		PreviewVideoURLs: previews,
		Overview:         h.Str(domain.HitOverview),
		Runtime:          firstInt(h.Str(domain.HitDuration)),
		MediaType:        string(contenttype.Classify(h)),
		Source:           source,
		Website:          h.Str(domain.HitURL),
	}
	if r.ReleaseDate != "" {
		r.Year, _ = strconv.Atoi(r.ReleaseDate[:4])
	}
	return r, nil
}

// firstInt 取字符串中第一段连续数字（"95 min" => 95）。
func firstInt(s string) int {
	start := -1
	for i := 0; i < len(s); i++ {
		if s[i] >= '0' && s[i] <= '9' {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			n, _ := strconv.Atoi(s[start:i])
			return n
		}
	}
	if start < 0 {
		return 0
	}
	n, _ := strconv.Atoi(s[start:])
	return n
}
