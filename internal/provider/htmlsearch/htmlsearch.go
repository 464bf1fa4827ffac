// Package htmlsearch 是通用的“搜索页 + CSS 选择器”站点适配器。
//
// 站点差异全部来自配置（config.SiteConfig）：搜索地址模板、候选节点选择器、各字段选择器。
// 适配器只负责抓取与解析；挑选候选、打分、类别判断都复用 lookup/match/contenttype。
package htmlsearch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/John-Robertt/scenemeta/internal/config"
	"github.com/John-Robertt/scenemeta/internal/contenttype"
	"github.com/John-Robertt/scenemeta/internal/domain"
	"github.com/John-Robertt/scenemeta/internal/lookup"
	"github.com/John-Robertt/scenemeta/internal/provider"
	"github.com/John-Robertt/scenemeta/internal/query"
)

// Options 是适配器的可选依赖。
type Options struct {
	// Exclude 为空时使用 match 的默认排除词。
	Exclude []string
	// Validator 决定查询串里哪些前缀可以当作 series 拆出来。
	Validator query.SiteValidator
}

// Provider 实现 provider.Provider。无可变状态，可并发使用。
type Provider struct {
	site   config.SiteConfig
	client *http.Client
	opts   Options
}

var _ provider.Provider = (*Provider)(nil)

func New(site config.SiteConfig, c *http.Client, opts Options) (*Provider, error) {
	if c == nil {
		return nil, errors.New("http client 不能为空")
	}
	if strings.TrimSpace(site.Name) == "" {
		return nil, errors.New("site.name 不能为空")
	}
	if !strings.Contains(site.SearchURL, "{query}") {
		return nil, fmt.Errorf("site %s: search_url 必须包含 {query}", site.Name)
	}
	if strings.TrimSpace(site.Item) == "" || strings.TrimSpace(site.Title) == "" {
		return nil, fmt.Errorf("site %s: item/title 选择器不能为空", site.Name)
	}
	return &Provider{site: site, client: c, opts: opts}, nil
}

func (p *Provider) Name() string { return p.site.Name }

// SearchMetadata 把 subject 分类后搜索，挑出对应的一条候选并转换为 ResultRecord。
func (p *Provider) SearchMetadata(ctx context.Context, subject string) (domain.ResultRecord, bool, error) {
	h, ok, err := p.pick(ctx, subject)
	if err != nil || !ok {
		return domain.ResultRecord{}, false, err
	}
	rec, err := lookup.ToRecord(h, p.site.Name)
	if err != nil {
		return domain.ResultRecord{}, false, err
	}
	return rec, !rec.Empty(), nil
}

// SearchPhotos 只取挑中候选的图片字段。
func (p *Provider) SearchPhotos(ctx context.Context, subject string) (domain.PhotoSet, bool, error) {
	h, ok, err := p.pick(ctx, subject)
	if err != nil || !ok {
		return domain.PhotoSet{}, false, err
	}
	ps := domain.PhotoSet{Poster: h.Str(domain.HitImage)}
	return ps, !ps.Empty(), nil
}

// SearchMultiple 返回搜索页上的全部候选（按 hints 过滤、截断）。
func (p *Provider) SearchMultiple(ctx context.Context, q domain.Query, hints provider.Hints) ([]domain.ResultRecord, error) {
	hits, err := p.SearchHits(ctx, q)
	if err != nil {
		return nil, err
	}
	if hints.Type != "" {
		hits = contenttype.FilterByType(hits, hints.Type)
	}
	out := make([]domain.ResultRecord, 0, len(hits))
	for _, h := range hits {
		if hints.Limit > 0 && len(out) >= hints.Limit {
			break
		}
		rec, err := lookup.ToRecord(h, p.site.Name)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func (p *Provider) pick(ctx context.Context, subject string) (domain.Hit, bool, error) {
	q := query.Classify(subject, p.opts.Validator)
	hits, err := p.SearchHits(ctx, q)
	if err != nil || len(hits) == 0 {
		return nil, false, err
	}
	h, ok := lookup.Pick(q, hits, lookup.Options{Exclude: p.opts.Exclude})
	return h, ok, nil
}

// SearchHits 抓取搜索页并解析出候选。404 视为没有结果。
func (p *Provider) SearchHits(ctx context.Context, q domain.Query) ([]domain.Hit, error) {
	term := SearchTerm(q)
	if term == "" {
		return nil, nil
	}
	pageURL := strings.ReplaceAll(p.site.SearchURL, "{query}", url.QueryEscape(term))
	b, err := fetchURL(ctx, p.client, pageURL)
	if err != nil {
		if provider.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	base := p.site.BaseURL
	if base == "" {
		base = pageURL
	}
	return Parse(p.site, b, base)
}

// SearchTerm 决定发往站点的搜索词：日期查询用 "series.yy.mm.dd"（无 series 时用 ISO 日期），
// 标题查询只用标题部分。
func SearchTerm(q domain.Query) string {
	if q.IsDate() {
		return query.FormatDateQuery(q.Series, q.Date)
	}
	if t := strings.TrimSpace(q.Title); t != "" {
		return t
	}
	return strings.TrimSpace(q.Raw)
}

// Parse 把搜索页 HTML 解析为候选列表。纯函数：只依赖输入。
// 没有标题的节点会被跳过；链接与图片按 base 解析为绝对地址。
func Parse(site config.SiteConfig, html []byte, base string) ([]domain.Hit, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, err
	}

	var hits []domain.Hit
	doc.Find(site.Item).Each(func(_ int, s *goquery.Selection) {
		title := first(s, site.Title)
		if title == "" {
			return
		}
		h := domain.Hit{domain.HitTitle: title}
		set := func(key, sel string) {
			if v := first(s, sel); v != "" {
				h[key] = v
			}
		}
		set(domain.HitCode, site.Code)
		set(domain.HitDate, site.Date)
		set(domain.HitStudio, site.Studio)
		set(domain.HitSeries, site.Series)
		set(domain.HitDuration, site.Duration)
		if v := first(s, site.URL); v != "" {
			h[domain.HitURL] = resolveURL(base, v)
		}
		if v := first(s, site.Image); v != "" {
			h[domain.HitImage] = resolveURL(base, v)
		}
		if v := first(s, site.PreviewVideo); v != "" {
			h[domain.HitPreviewVideo] = resolveURL(base, v)
		}
		if vs := all(s, site.Performers); len(vs) > 0 {
			h[domain.HitPerformers] = vs
		}
		if vs := all(s, site.Tags); len(vs) > 0 {
			h[domain.HitTags] = vs
		}
		if sel, _ := splitSelector(site.Compilation); sel != "" && s.Find(sel).Length() > 0 {
			h[domain.HitCompilation] = "1"
		}
		hits = append(hits, h)
	})
	return hits, nil
}

// splitSelector 拆分 "sel@attr"；没有 @ 时 attr 为空，表示取文本。
func splitSelector(expr string) (sel, attr string) {
	expr = strings.TrimSpace(expr)
	if i := strings.LastIndex(expr, "@"); i >= 0 {
		return strings.TrimSpace(expr[:i]), strings.TrimSpace(expr[i+1:])
	}
	return expr, ""
}

func value(s *goquery.Selection, attr string) string {
	if attr == "" {
		return normSpace(s.Text())
	}
	v, _ := s.Attr(attr)
	return strings.TrimSpace(v)
}

func first(s *goquery.Selection, expr string) string {
	sel, attr := splitSelector(expr)
	if sel == "" {
		return ""
	}
	return value(s.Find(sel).First(), attr)
}

func all(s *goquery.Selection, expr string) []string {
	sel, attr := splitSelector(expr)
	if sel == "" {
		return nil
	}
	var out []string
	seen := make(map[string]struct{})
	s.Find(sel).Each(func(_ int, n *goquery.Selection) {
		v := value(n, attr)
		if v == "" {
			return
		}
		if _, ok := seen[v]; ok {
			return
		}
		seen[v] = struct{}{}
		out = append(out, v)
	})
	return out
}

func fetchURL(ctx context.Context, c *http.Client, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &provider.HTTPStatusError{URL: u, StatusCode: resp.StatusCode}
	}
	return io.ReadAll(resp.Body)
}

func resolveURL(base, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	b, err := url.Parse(base)
	if err != nil {
		return href
	}
	r, err := url.Parse(href)
	if err != nil {
		return href
	}
	return b.ResolveReference(r).String()
}

func normSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
