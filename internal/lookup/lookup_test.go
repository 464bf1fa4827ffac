package lookup

import (
	"errors"
	"testing"

	"github.com/John-Robertt/scenemeta/internal/contenttype"
	"github.com/John-Robertt/scenemeta/internal/domain"
	"github.com/John-Robertt/scenemeta/internal/query"
)

func TestPick_DateQuery(t *testing.T) {
	hits := []domain.Hit{
		{domain.HitTitle: "wrong day", domain.HitDate: "2026-01-16", domain.HitSeries: "Evil Angel"},
		{domain.HitTitle: "other site", domain.HitDate: "Jan 17, 2026", domain.HitSeries: "Brazzers"},
		{domain.HitTitle: "right", domain.HitDate: "2026-01-17T00:00:00Z", domain.HitStudio: "Evil Angel"},
		{domain.HitTitle: "also right", domain.HitDate: "2026-01-17", domain.HitSeries: "EvilAngel"},
	}
	q := query.Classify("evilangel.26.01.17", nil)

	got, ok := Pick(q, hits, Options{})
	if !ok || got[domain.HitTitle] != "right" {
		t.Fatalf("日期查询应选中第一条同日且 series 匹配的候选，实际 %v", got)
	}

	// 不带 series：同日的第一条即可。
	q = query.Classify("2026-01-17", nil)
	got, ok = Pick(q, hits, Options{})
	if !ok || got[domain.HitTitle] != "other site" {
		t.Fatalf("无 series 的日期查询不符合预期：%v", got)
	}

	q = query.Classify("2020-01-01", nil)
	if _, ok := Pick(q, hits, Options{}); ok {
		t.Fatalf("没有同日候选时应返回 false")
	}
}

func TestPick_TitleQueryPrefersSeries(t *testing.T) {
	hits := []domain.Hit{
		{domain.HitTitle: "Nympho Wars", domain.HitSeries: "Brazzers"},
		{domain.HitTitle: "Nympho Wars Part 2", domain.HitSeries: "Evil Angel"},
	}
	q := query.Classify("EvilAngel-Nympho Wars", nil)
	got, ok := Pick(q, hits, Options{})
	if !ok || got[domain.HitSeries] != "Evil Angel" {
		t.Fatalf("应优先 series 匹配的候选，实际 %v", got)
	}

	// 没有任何 series 匹配：不缩小范围。
	q = query.Classify("Unknown-Nympho Wars", nil)
	got, ok = Pick(q, hits, Options{})
	if !ok || got[domain.HitTitle] != "Nympho Wars" {
		t.Fatalf("无 series 匹配时应按标题挑选，实际 %v", got)
	}
}

func TestPick_TypeFilter(t *testing.T) {
	hits := []domain.Hit{
		{domain.HitTitle: "Nympho Wars", domain.HitCompilation: "1"},
		{domain.HitTitle: "Nympho Wars Extended"},
	}
	q := query.Classify("nympho wars", nil)
	got, ok := Pick(q, hits, Options{Type: contenttype.Scene})
	if !ok || got[domain.HitTitle] != "Nympho Wars Extended" {
		t.Fatalf("过滤 compilation 后应选中 scene，实际 %v", got)
	}
	if _, ok := Pick(q, hits[:1], Options{Type: contenttype.Scene}); ok {
		t.Fatalf("过滤后为空应返回 false")
	}
}

func TestToRecord(t *testing.T) {
	h := domain.Hit{
		domain.HitTitle:        "Nympho Wars",
		domain.HitCode:         "EA-001",
		domain.HitDate:         "01/17/2026",
		domain.HitStudio:       "Evil Angel",
		domain.HitPerformers:   []string{"A", "B"},
		domain.HitTags:         []any{"x"},
		domain.HitImage:        "https://example.test/p.jpg",
		domain.HitDuration:     "95 min",
		domain.HitURL:          "https://example.test/s/1",
		domain.HitPreviewVideo: "https://example.test/v.mp4",
	}
	r, err := ToRecord(h, "site")
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if r.ReleaseDate != "2026-01-17" || r.Year != 2026 || r.Runtime != 95 {
		t.Fatalf("日期/时长转换错误：%+v", r)
	}
	if r.MediaType != string(contenttype.Scene) || r.Source != "site" || r.Website != "https://example.test/s/1" {
		t.Fatalf("来源字段错误：%+v", r)
	}
	if len(r.PreviewVideoURLs) != 1 || r.PreviewVideoURLs[0].Quality != domain.UnknownQuality {
		t.Fatalf("preview video 应带 Unknown 占位：%+v", r.PreviewVideoURLs)
	}
	if len(r.Actors) != 2 || len(r.Genres) != 1 {
		t.Fatalf("列表字段错误：%+v", r)
	}

	h[domain.HitPreviewVideo] = map[string]any{"url": "x"}
	if _, err := ToRecord(h, "site"); !errors.Is(err, domain.ErrInvalidPreviewVideo) {
		t.Fatalf("非法 preview video 应报错，实际 %v", err)
	}
}

func TestFirstInt(t *testing.T) {
	cases := map[string]int{"95 min": 95, "": 0, "abc": 0, "1:30": 1, "x120": 120}
	for in, want := range cases {
		if got := firstInt(in); got != want {
			t.Fatalf("firstInt(%q) = %d，期望 %d", in, got, want)
		}
	}
}
