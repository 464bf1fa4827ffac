package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// UnknownQuality 是预览视频清晰度未知时的固定占位值（不允许省略 quality）。
const UnknownQuality = "Unknown"

// ErrInvalidPreviewVideo 表示 preview_video_urls 中存在缺 key / 非字符串 / 空值的条目。
var ErrInvalidPreviewVideo = errors.New("invalid preview video entry")

// PreviewVideo 是 {quality, url} 对。
type PreviewVideo struct {
	Quality string `json:"quality"`
	URL     string `json:"url"`
}

// NewPreviewVideo 构造一条预览视频；quality 为空时写入 UnknownQuality。
func NewPreviewVideo(quality, url string) PreviewVideo {
	quality = strings.TrimSpace(quality)
	if quality == "" {
		quality = UnknownQuality
	}
	return PreviewVideo{Quality: quality, URL: strings.TrimSpace(url)}
}

// UnmarshalJSON 与 ParsePreviewVideos 共用同一套校验：两个 key 必须存在且为字符串。
func (p *PreviewVideo) UnmarshalJSON(b []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPreviewVideo, err)
	}
	v, err := parsePreviewVideo(raw)
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// ParsePreviewVideos 把 provider 给出的原始值（通常来自 Hit）转换为 []PreviewVideo。
//
// 接受：
// - 单个字符串 / 字符串列表：视为只有 url，quality=Unknown
// - map 或 map 列表：必须同时含 quality 与 url，且均为字符串（quality 为 null 视为 Unknown）
func ParsePreviewVideos(raw any) ([]PreviewVideo, error) {
	switch x := raw.(type) {
	case nil:
		return nil, nil
	case string:
		if strings.TrimSpace(x) == "" {
			return nil, nil
		}
		return []PreviewVideo{NewPreviewVideo("", x)}, nil
	case []string:
		out := make([]PreviewVideo, 0, len(x))
		for _, s := range x {
			if strings.TrimSpace(s) == "" {
				continue
			}
			out = append(out, NewPreviewVideo("", s))
		}
		return out, nil
	case map[string]any:
		v, err := parsePreviewVideo(x)
		if err != nil {
			return nil, err
		}
		return []PreviewVideo{v}, nil
	case map[string]string:
		m := make(map[string]any, len(x))
		for k, v := range x {
			m[k] = v
		}
		return ParsePreviewVideos(m)
	case []map[string]any:
		out := make([]PreviewVideo, 0, len(x))
		for i, m := range x {
			v, err := parsePreviewVideo(m)
			if err != nil {
				return nil, fmt.Errorf("entry %d: %w", i, err)
			}
			out = append(out, v)
		}
		return out, nil
	case []any:
		out := make([]PreviewVideo, 0, len(x))
		for i, e := range x {
			vs, err := ParsePreviewVideos(e)
			if err != nil {
				return nil, fmt.Errorf("entry %d: %w", i, err)
			}
			out = append(out, vs...)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: unsupported type %T", ErrInvalidPreviewVideo, raw)
	}
}

func parsePreviewVideo(m map[string]any) (PreviewVideo, error) {
	q, ok := m["quality"]
	if !ok {
		return PreviewVideo{}, fmt.Errorf("%w: missing quality", ErrInvalidPreviewVideo)
	}
	u, ok := m["url"]
	if !ok {
		return PreviewVideo{}, fmt.Errorf("%w: missing url", ErrInvalidPreviewVideo)
	}
	us, ok := u.(string)
	if !ok || strings.TrimSpace(us) == "" {
		return PreviewVideo{}, fmt.Errorf("%w: url must be a non-empty string", ErrInvalidPreviewVideo)
	}
	qs := ""
	if q != nil {
		qs, ok = q.(string)
		if !ok {
			return PreviewVideo{}, fmt.Errorf("%w: quality must be a string", ErrInvalidPreviewVideo)
		}
	}
	return NewPreviewVideo(qs, us), nil
}

// ResultRecord 是统一输出实体（对外稳定的 JSON 契约）。
//
// 约束：
// - 返回给调用方后归调用方所有，核心不再持有引用
// - PreviewVideoURLs 每一项都必须是完整的 {quality, url}
// - Scenes 仅在非 nil 时输出
type ResultRecord struct {
	Subject string `json:"subject,omitempty"`

	Code          string   `json:"code"`
	Title         string   `json:"title"`
	OriginalTitle string   `json:"original_title"`
	ReleaseDate   string   `json:"release_date"` // YYYY-MM-DD
	Year          int      `json:"year"`
	Studio        string   `json:"studio"`
	Series        string   `json:"series"`
	Actors        []string `json:"actors"`
	Genres        []string `json:"genres"`

	PosterURL        string         `json:"poster_url"`
	BackdropURL      []string       `json:"backdrop_url"`
	PreviewURLs      []string       `json:"preview_urls"`
	PreviewVideoURLs []PreviewVideo `json:"preview_video_urls"`
	CoverVideoURL    string         `json:"cover_video_url"`

	Overview  string  `json:"overview"`
	Rating    float64 `json:"rating"`
	Runtime   int     `json:"runtime"` // 分钟
	Director  string  `json:"director"`
	Language  string  `json:"language"`
	Country   string  `json:"country"`
	Mosaic    string  `json:"mosaic"`
	MediaType string  `json:"media_type"`
	Source    string  `json:"source"`

	AvatarURL   string   `json:"avatar_url,omitempty"`
	GalleryURLs []string `json:"gallery_urls,omitempty"`
	Website     string   `json:"website,omitempty"`

	Scenes []ResultRecord `json:"scenes,omitempty"`
}

// Validate 检查序列化契约（目前只有 preview_video_urls 的形状约束）。
func (r ResultRecord) Validate() error {
	for i, v := range r.PreviewVideoURLs {
		if strings.TrimSpace(v.URL) == "" {
			return fmt.Errorf("preview_video_urls[%d]: %w: empty url", i, ErrInvalidPreviewVideo)
		}
		if strings.TrimSpace(v.Quality) == "" {
			return fmt.Errorf("preview_video_urls[%d]: %w: empty quality (use %q)", i, ErrInvalidPreviewVideo, UnknownQuality)
		}
	}
	return nil
}

// MarshalJSON 先校验再输出；列表字段统一输出 []（不输出 null），scenes 仅在非 nil 时输出。
func (r ResultRecord) MarshalJSON() ([]byte, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	type plain ResultRecord
	p := plain(r)
	p.Actors = nonNil(p.Actors)
	p.Genres = nonNil(p.Genres)
	p.BackdropURL = nonNil(p.BackdropURL)
	p.PreviewURLs = nonNil(p.PreviewURLs)
	if p.PreviewVideoURLs == nil {
		p.PreviewVideoURLs = []PreviewVideo{}
	}

	// 外层 Scenes 比嵌入字段浅一层，encoding/json 以外层为准。
	out := struct {
		plain
		Scenes *[]ResultRecord `json:"scenes,omitempty"`
	}{plain: p}
	if r.Scenes != nil {
		out.Scenes = &r.Scenes
	}
	return json.Marshal(out)
}

// Fields 返回有值的字段（JSON 名，按输出顺序）。subject/source/website 属于来源标记，不计入。
func (r ResultRecord) Fields() []string {
	var out []string
	add := func(name string, ok bool) {
		if ok {
			out = append(out, name)
		}
	}
	add("code", r.Code != "")
	add("title", r.Title != "")
	add("original_title", r.OriginalTitle != "")
	add("release_date", r.ReleaseDate != "")
	add("year", r.Year != 0)
	add("studio", r.Studio != "")
	add("series", r.Series != "")
	add("actors", len(r.Actors) > 0)
	add("genres", len(r.Genres) > 0)
	add("poster_url", r.PosterURL != "")
	add("backdrop_url", len(r.BackdropURL) > 0)
	add("preview_urls", len(r.PreviewURLs) > 0)
	add("preview_video_urls", len(r.PreviewVideoURLs) > 0)
	add("cover_video_url", r.CoverVideoURL != "")
	add("overview", r.Overview != "")
	add("rating", r.Rating != 0)
	add("runtime", r.Runtime != 0)
	add("director", r.Director != "")
	add("language", r.Language != "")
	add("country", r.Country != "")
	add("mosaic", r.Mosaic != "")
	add("media_type", r.MediaType != "")
	add("avatar_url", r.AvatarURL != "")
	add("gallery_urls", len(r.GalleryURLs) > 0)
	add("scenes", len(r.Scenes) > 0)
	return out
}

// Empty 表示没有任何内容字段。
func (r ResultRecord) Empty() bool { return len(r.Fields()) == 0 }

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
