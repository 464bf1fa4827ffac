package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
)

func TestResultRecord_MarshalJSON_StableShape(t *testing.T) {
	r := ResultRecord{
		Code:  "ABC-123",
		Title: "t",
		PreviewVideoURLs: []PreviewVideo{
			NewPreviewVideo("", "https://example.test/a.mp4"),
		},
	}
	b, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("json.Marshal 失败：%v", err)
	}
	for _, want := range []string{
		`"actors":[]`,
		`"genres":[]`,
		`"backdrop_url":[]`,
		`"preview_video_urls":[{"quality":"Unknown","url":"https://example.test/a.mp4"}]`,
	} {
		if !bytes.Contains(b, []byte(want)) {
			t.Fatalf("输出缺少 %s：%s", want, b)
		}
	}
	if bytes.Contains(b, []byte(`"scenes"`)) {
		t.Fatalf("scenes 为 nil 时不应输出：%s", b)
	}
	if bytes.Contains(b, []byte(`"subject"`)) {
		t.Fatalf("subject 为空时不应输出：%s", b)
	}
}

func TestResultRecord_MarshalJSON_ScenesOnlyWhenNonNil(t *testing.T) {
	r := ResultRecord{Title: "t", Scenes: []ResultRecord{}}
	b, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("json.Marshal 失败：%v", err)
	}
	if !bytes.Contains(b, []byte(`"scenes":[]`)) {
		t.Fatalf("scenes 为空切片（非 nil）时应输出：%s", b)
	}

	r.Scenes = []ResultRecord{{Title: "s1"}}
	b, err = json.Marshal(r)
	if err != nil {
		t.Fatalf("json.Marshal 失败：%v", err)
	}
	if !bytes.Contains(b, []byte(`"title":"s1"`)) {
		t.Fatalf("嵌套 scene 未输出：%s", b)
	}
}

func TestResultRecord_MarshalJSON_RejectsBrokenPreviewVideo(t *testing.T) {
	cases := []PreviewVideo{
		{Quality: "", URL: "https://example.test/a.mp4"},
		{Quality: "720p", URL: ""},
	}
	for _, pv := range cases {
		r := ResultRecord{PreviewVideoURLs: []PreviewVideo{pv}}
		_, err := json.Marshal(r)
		if !errors.Is(err, ErrInvalidPreviewVideo) {
			t.Fatalf("期望 ErrInvalidPreviewVideo，实际 %v（entry=%+v）", err, pv)
		}
	}

	// 嵌套 scene 同样受约束。
	r := ResultRecord{Scenes: []ResultRecord{{PreviewVideoURLs: []PreviewVideo{{URL: "x"}}}}}
	if _, err := json.Marshal(r); !errors.Is(err, ErrInvalidPreviewVideo) {
		t.Fatalf("嵌套 scene 期望 ErrInvalidPreviewVideo，实际 %v", err)
	}
}

func TestParsePreviewVideos(t *testing.T) {
	got, err := ParsePreviewVideos([]any{
		"https://example.test/1.mp4",
		map[string]any{"quality": "1080p", "url": "https://example.test/2.mp4"},
		map[string]any{"quality": nil, "url": "https://example.test/3.mp4"},
	})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	want := []PreviewVideo{
		{Quality: UnknownQuality, URL: "https://example.test/1.mp4"},
		{Quality: "1080p", URL: "https://example.test/2.mp4"},
		{Quality: UnknownQuality, URL: "https://example.test/3.mp4"},
	}
	if len(got) != len(want) {
		t.Fatalf("期望 %d 条，实际 %d：%+v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("第 %d 条不符合预期：%+v", i, got[i])
		}
	}

	bad := []any{
		map[string]any{"url": "https://example.test/1.mp4"},
		map[string]any{"quality": "720p"},
		map[string]any{"quality": 720, "url": "https://example.test/1.mp4"},
		map[string]any{"quality": "720p", "url": 1},
		42,
	}
	for _, b := range bad {
		if _, err := ParsePreviewVideos(b); !errors.Is(err, ErrInvalidPreviewVideo) {
			t.Fatalf("期望 ErrInvalidPreviewVideo，实际 %v（raw=%v）", err, b)
		}
	}
}

func TestPreviewVideo_UnmarshalJSON_Strict(t *testing.T) {
	var r ResultRecord
	err := json.Unmarshal([]byte(`{"preview_video_urls":[{"url":"https://example.test/a.mp4"}]}`), &r)
	if !errors.Is(err, ErrInvalidPreviewVideo) {
		t.Fatalf("缺 quality 应报错，实际 %v", err)
	}
	err = json.Unmarshal([]byte(`{"preview_video_urls":[{"quality":"hd","url":"https://example.test/a.mp4"}]}`), &r)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if r.PreviewVideoURLs[0].Quality != "hd" {
		t.Fatalf("quality 解析错误：%+v", r.PreviewVideoURLs)
	}
}

func TestResultRecord_FieldsAndEmpty(t *testing.T) {
	r := ResultRecord{Subject: "x", Source: "site"}
	if !r.Empty() {
		t.Fatalf("只有 subject/source 时应视为空：%v", r.Fields())
	}
	r.Title = "t"
	r.GalleryURLs = []string{"g"}
	got := r.Fields()
	if len(got) != 2 || got[0] != "title" || got[1] != "gallery_urls" {
		t.Fatalf("Fields 不符合预期：%v", got)
	}
}

func TestHit_Accessors(t *testing.T) {
	h := Hit{
		HitTitle:      "  Nympho Wars ",
		HitDuration:   95,
		HitPerformers: []any{"A", " ", "B", 3},
		HitTags:       "solo",
		"nil":         nil,
	}
	if h.Str(HitTitle) != "Nympho Wars" {
		t.Fatalf("Str 未去空白：%q", h.Str(HitTitle))
	}
	if h.Str(HitDuration) != "95" {
		t.Fatalf("数字应格式化为字符串：%q", h.Str(HitDuration))
	}
	if got := h.Strings(HitPerformers); len(got) != 2 || got[0] != "A" || got[1] != "B" {
		t.Fatalf("Strings 不符合预期：%v", got)
	}
	if got := h.Strings(HitTags); len(got) != 1 || got[0] != "solo" {
		t.Fatalf("单字符串应视为一个元素：%v", got)
	}
	if h.Has("nil") || h.Has("missing") {
		t.Fatalf("nil/缺失字段 Has 应为 false")
	}
}
