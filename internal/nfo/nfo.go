package nfo

import (
	"encoding/xml"
	"strconv"
	"strings"

	"github.com/John-Robertt/scenemeta/internal/domain"
)

// DefaultMPAA 不对外暴露配置。
const DefaultMPAA = "XXX"

type movie struct {
	XMLName xml.Name `xml:"movie"`

	Title         string `xml:"title"`
	OriginalTitle string `xml:"originaltitle,omitempty"`
	SortTitle     string `xml:"sorttitle,omitempty"`
	Num           string `xml:"num,omitempty"`
	Plot          string `xml:"plot,omitempty"`

	Studio   string `xml:"studio,omitempty"`
	Set      string `xml:"set,omitempty"`
	Director string `xml:"director,omitempty"`

	Premiered string `xml:"premiered,omitempty"`
	Year      int    `xml:"year,omitempty"`
	Runtime   int    `xml:"runtime,omitempty"`
	Rating    string `xml:"rating,omitempty"`

	MPAA     string `xml:"mpaa,omitempty"`
	Country  string `xml:"country,omitempty"`
	Language string `xml:"language,omitempty"`

	Thumbs []thumb  `xml:"thumb,omitempty"`
	Fanart *fanart  `xml:"fanart,omitempty"`
	Actors []actor  `xml:"actor,omitempty"`
	Genres []string `xml:"genre,omitempty"`
	Tags   []string `xml:"tag,omitempty"`

	Trailer string `xml:"trailer,omitempty"`
	Website string `xml:"website,omitempty"`
	Source  string `xml:"source,omitempty"`
}

type thumb struct {
	Aspect string `xml:"aspect,attr,omitempty"`
	URL    string `xml:",chardata"`
}

type fanart struct {
	Thumbs []thumb `xml:"thumb"`
}

type actor struct {
	Name  string `xml:"name"`
	Thumb string `xml:"thumb,omitempty"`
}

// Encode 把 ResultRecord 转成 Kodi/Jellyfin/Emby 可读取的 NFO（XML）。
//
// 规则：
// - 字段缺失允许为空；列表去空白、去重、保持输入顺序
// - title 为空时依次回退到 code、subject（避免生成空 title）
// - 图片直接写远程 URL：poster 为 thumb，backdrop 为 fanart
// - 第一个 preview video 写为 trailer
func Encode(r domain.ResultRecord) ([]byte, error) {
	code := strings.TrimSpace(r.Code)
	title := strings.TrimSpace(r.Title)
	if title == "" {
		title = code
	}
	if title == "" {
		title = strings.TrimSpace(r.Subject)
	}

	m := movie{
		Title:         title,
		OriginalTitle: strings.TrimSpace(r.OriginalTitle),
		SortTitle:     code,
		Num:           code,
		Plot:          strings.TrimSpace(r.Overview),

		Studio:   strings.TrimSpace(r.Studio),
		Set:      strings.TrimSpace(r.Series),
		Director: strings.TrimSpace(r.Director),

		Premiered: strings.TrimSpace(r.ReleaseDate),
		Year:      r.Year,
		Runtime:   r.Runtime,

		MPAA:     DefaultMPAA,
		Country:  strings.TrimSpace(r.Country),
		Language: strings.TrimSpace(r.Language),

		Genres: normList(r.Genres),

		Website: strings.TrimSpace(r.Website),
		Source:  strings.TrimSpace(r.Source),
	}
	if r.Rating > 0 {
		m.Rating = strconv.FormatFloat(r.Rating, 'f', -1, 64)
	}
	if r.MediaType != "" {
		m.Tags = []string{r.MediaType}
	}
	if p := strings.TrimSpace(r.PosterURL); p != "" {
		m.Thumbs = append(m.Thumbs, thumb{Aspect: "poster", URL: p})
	}
	if bd := normList(r.BackdropURL); len(bd) > 0 {
		m.Fanart = &fanart{}
		for _, u := range bd {
			m.Fanart.Thumbs = append(m.Fanart.Thumbs, thumb{URL: u})
		}
	}
	for _, a := range normList(r.Actors) {
		m.Actors = append(m.Actors, actor{Name: a})
	}
	if len(r.PreviewVideoURLs) > 0 {
		m.Trailer = strings.TrimSpace(r.PreviewVideoURLs[0].URL)
	}

	b, err := xml.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, err
	}
	// 约定：输出带 standalone="yes" 的 XML 头，便于与常见刮削器产物兼容。
	const header = `<?xml version="1.0" encoding="UTF-8" standalone="yes" ?>` + "\n"
	return append([]byte(header), b...), nil
}

func normList(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	m := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, ok := m[s]; ok {
			continue
		}
		m[s] = struct{}{}
		out = append(out, s)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
