package config

import (
	_ "embed"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/John-Robertt/scenemeta/internal/domain"
	"github.com/John-Robertt/scenemeta/internal/match"
	"github.com/John-Robertt/scenemeta/internal/query"
)

const (
	// ErrCodeNotFound 表示显式指定的配置文件不存在。
	ErrCodeNotFound = "config_not_found"
	// ErrCodeInvalid 表示配置文件无法读取/解析，或字段不合法。
	ErrCodeInvalid = "config_invalid"
)

const (
	// DefaultFileName 是未显式指定时在 cwd 下查找的配置文件名（可选）。
	DefaultFileName = "scenemeta.toml"

	DefaultLogLevel  = "info"
	DefaultLogFormat = "console"
	DefaultTimeout   = 20 * time.Second
	DefaultRetryMax  = 2

	ProfileEastern = "eastern"
	ProfileWestern = "western"
)

//go:embed sample_config.toml
var sampleConfig string

// SampleConfig 返回带注释的示例配置。
func SampleConfig() string { return sampleConfig }

// CLIArgs 只包含 CLI 暴露的覆盖项，并保留“是否显式指定”的信息。
type CLIArgs struct {
	ConfigPath string

	LogLevel    string
	LogLevelSet bool

	LogFormat    string
	LogFormatSet bool
}

// FileConfig 对应 scenemeta.toml 的解析结构。
type FileConfig struct {
	Log       LogConfig                `toml:"log"`
	HTTP      HTTPConfig               `toml:"http"`
	Match     MatchConfig              `toml:"match"`
	Reconcile ReconcileConfig          `toml:"reconcile"`
	Profiles  map[string]ProfileConfig `toml:"profiles"`
	Sites     []SiteConfig             `toml:"sites"`
	Series    []SeriesConfig           `toml:"series"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

type HTTPConfig struct {
	ProxyURL       string `toml:"proxy_url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	RetryMax       *int   `toml:"retry_max"`
	// RatePerSecond 是每个站点每秒最多发出的请求数；0 表示不限速。
	RatePerSecond float64 `toml:"rate_per_second"`
}

type MatchConfig struct {
	// ExcludeKeywords 为空时使用内置的花絮类关键词。
	ExcludeKeywords []string `toml:"exclude_keywords"`
}

type ReconcileConfig struct {
	PhotoShortCircuit *bool `toml:"photo_short_circuit"`
}

// ProfileConfig 是某个 subject 类别下各角色的 provider 顺序。
type ProfileConfig struct {
	Metadata []string `toml:"metadata"`
	Photo    []string `toml:"photo"`
}

// SiteConfig 描述一个通用的“搜索页 + CSS 选择器”站点。
// 选择器都相对于 Item 匹配到的节点；Attr 形如 "a@href"（取属性）或 "h3"（取文本）。
type SiteConfig struct {
	Name      string `toml:"name"`
	BaseURL   string `toml:"base_url"`
	SearchURL string `toml:"search_url"` // 必须包含 {query}

	Item         string `toml:"item"`
	Title        string `toml:"title"`
	URL          string `toml:"url"`
	Date         string `toml:"date"`
	Code         string `toml:"code"`
	Studio       string `toml:"studio"`
	Series       string `toml:"series"`
	Image        string `toml:"image"`
	Performers   string `toml:"performers"`
	Tags         string `toml:"tags"`
	Compilation  string `toml:"compilation"` // 节点存在即视为 compilation
	PreviewVideo string `toml:"preview_video"`
	Duration     string `toml:"duration"`
}

// SeriesConfig 是 SiteValidator 的一个已知 series。
type SeriesConfig struct {
	Name    string `toml:"name"`
	BaseURL string `toml:"base_url"`
}

// ProfileNames 是已校验的 provider 名顺序。
type ProfileNames struct {
	Metadata []string
	Photo    []string
}

// EffectiveConfig 是合并并规范化后的最终配置（实现层直接消费，不再做二次默认/优先级判断）。
type EffectiveConfig struct {
	Path string // 实际读取的配置文件；未读取任何文件时为空

	LogLevel  string
	LogFormat string

	ProxyURL      string
	Timeout       time.Duration
	RetryMax      int
	RatePerSecond float64

	ExcludeKeywords   []string
	PhotoShortCircuit bool

	Eastern ProfileNames
	Western ProfileNames

	Sites  []SiteConfig
	Series SeriesCatalog
}

// Error 是配置阶段的结构化错误（带 error_code）。
type Error struct {
	Code string
	Path string
	Err  error
}

func (e *Error) Error() string {
	switch e.Code {
	case ErrCodeNotFound:
		return fmt.Sprintf("%s：未找到配置文件 %q", e.Code, e.Path)
	case ErrCodeInvalid:
		if e.Err != nil {
			return fmt.Sprintf("%s：配置文件 %q 无效：%v", e.Code, e.Path, e.Err)
		}
		return fmt.Sprintf("%s：配置文件 %q 无效", e.Code, e.Path)
	default:
		if e.Err != nil {
			return fmt.Sprintf("%s：%v", e.Code, e.Err)
		}
		return e.Code
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Code 从 error 中提取 error_code；若不是 *Error 则返回空串。
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// LoadEffective 发现并读取配置文件，然后与 CLI 参数合并为最终配置。
//
// 发现规则（固定）：
// 1) CLI 指定了配置路径：必须存在
// 2) 未指定：尝试 <cwd>/scenemeta.toml（可选，不存在则全部使用默认值）
//
// 覆盖优先级：log.level / log.format 为 CLI > 配置 > 默认；其余字段只由配置控制。
func LoadEffective(cwd string, cli CLIArgs) (EffectiveConfig, error) {
	cwdAbs, err := filepath.Abs(cwd)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cwd, Err: err}
	}

	var (
		cfgPath string
		fc      FileConfig
		exists  bool
	)
	if strings.TrimSpace(cli.ConfigPath) != "" {
		cfgPath = absCleanFrom(cwdAbs, cli.ConfigPath)
		fc, exists, err = readFileConfig(cfgPath)
		if err != nil {
			return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
		}
		if !exists {
			return EffectiveConfig{}, &Error{Code: ErrCodeNotFound, Path: cfgPath, Err: os.ErrNotExist}
		}
	} else {
		cfgPath = filepath.Join(cwdAbs, DefaultFileName)
		fc, exists, err = readFileConfig(cfgPath)
		if err != nil {
			return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
		}
	}

	eff, err := merge(cli, fc)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
	}
	if exists {
		eff.Path = cfgPath
	}
	return eff, nil
}

// Parse 解析并校验一份 TOML 配置（不做文件发现，也不合并 CLI）。
func Parse(b []byte) (EffectiveConfig, error) {
	var fc FileConfig
	if err := toml.Unmarshal(b, &fc); err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Err: err}
	}
	eff, err := merge(CLIArgs{}, fc)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Err: err}
	}
	return eff, nil
}

func merge(cli CLIArgs, fc FileConfig) (EffectiveConfig, error) {
	level := pick(cli.LogLevelSet, cli.LogLevel, fc.Log.Level, DefaultLogLevel)
	switch level {
	case "debug", "info", "warn", "error":
	default:
		return EffectiveConfig{}, fmt.Errorf("log.level 只能是 debug/info/warn/error，实际是 %q", level)
	}
	format := pick(cli.LogFormatSet, cli.LogFormat, fc.Log.Format, DefaultLogFormat)
	switch format {
	case "console", "json":
	default:
		return EffectiveConfig{}, fmt.Errorf("log.format 只能是 console/json，实际是 %q", format)
	}

	proxyURL := strings.TrimSpace(fc.HTTP.ProxyURL)
	if proxyURL != "" {
		if err := checkHTTPURL(proxyURL); err != nil {
			return EffectiveConfig{}, fmt.Errorf("http.proxy_url 无效：%w", err)
		}
	}
	timeout := DefaultTimeout
	if fc.HTTP.TimeoutSeconds < 0 {
		return EffectiveConfig{}, fmt.Errorf("http.timeout_seconds 不能为负数")
	}
	if fc.HTTP.TimeoutSeconds > 0 {
		timeout = time.Duration(fc.HTTP.TimeoutSeconds) * time.Second
	}
	retryMax := DefaultRetryMax
	if fc.HTTP.RetryMax != nil {
		retryMax = *fc.HTTP.RetryMax
	}
	// 有界重试：[0, 5]，超出截断。
	if retryMax < 0 {
		retryMax = 0
	}
	if retryMax > 5 {
		retryMax = 5
	}

	if fc.HTTP.RatePerSecond < 0 {
		return EffectiveConfig{}, fmt.Errorf("http.rate_per_second 不能为负数")
	}

	exclude := normList(fc.Match.ExcludeKeywords)
	if len(exclude) == 0 {
		exclude = append([]string(nil), match.DefaultExcludeKeywords...)
	}

	shortCircuit := true
	if fc.Reconcile.PhotoShortCircuit != nil {
		shortCircuit = *fc.Reconcile.PhotoShortCircuit
	}

	sites, err := validateSites(fc.Sites)
	if err != nil {
		return EffectiveConfig{}, err
	}
	names := make([]string, 0, len(sites))
	for _, s := range sites {
		names = append(names, s.Name)
	}

	for k := range fc.Profiles {
		if k != ProfileEastern && k != ProfileWestern {
			return EffectiveConfig{}, fmt.Errorf("未知 profile：%q（只支持 %s/%s）", k, ProfileEastern, ProfileWestern)
		}
	}
	eastern, err := resolveProfile(ProfileEastern, fc.Profiles, names)
	if err != nil {
		return EffectiveConfig{}, err
	}
	western, err := resolveProfile(ProfileWestern, fc.Profiles, names)
	if err != nil {
		return EffectiveConfig{}, err
	}

	catalog := make(SeriesCatalog, 0, len(fc.Series))
	for i, s := range fc.Series {
		name := strings.TrimSpace(s.Name)
		if query.NormalizeSeries(name) == "" {
			return EffectiveConfig{}, fmt.Errorf("series[%d].name 无效：%q", i, s.Name)
		}
		catalog = append(catalog, domain.Site{Name: name, BaseURL: strings.TrimSpace(s.BaseURL)})
	}

	return EffectiveConfig{
		LogLevel:          level,
		LogFormat:         format,
		ProxyURL:          proxyURL,
		Timeout:           timeout,
		RetryMax:          retryMax,
		RatePerSecond:     fc.HTTP.RatePerSecond,
		ExcludeKeywords:   exclude,
		PhotoShortCircuit: shortCircuit,
		Eastern:           eastern,
		Western:           western,
		Sites:             sites,
		Series:            catalog,
	}, nil
}

var siteNameRE = regexp.MustCompile(`^[a-z0-9_]+$`)

func validateSites(in []SiteConfig) ([]SiteConfig, error) {
	out := make([]SiteConfig, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for i, s := range in {
		s.Name = strings.ToLower(strings.TrimSpace(s.Name))
		if !siteNameRE.MatchString(s.Name) {
			return nil, fmt.Errorf("sites[%d].name 非法：%q（只允许 a-z0-9_）", i, s.Name)
		}
		if _, dup := seen[s.Name]; dup {
			return nil, fmt.Errorf("重复的 site：%q", s.Name)
		}
		seen[s.Name] = struct{}{}

		s.SearchURL = strings.TrimSpace(s.SearchURL)
		if !strings.Contains(s.SearchURL, "{query}") {
			return nil, fmt.Errorf("sites[%d].search_url 必须包含 {query}", i)
		}
		if err := checkHTTPURL(strings.ReplaceAll(s.SearchURL, "{query}", "q")); err != nil {
			return nil, fmt.Errorf("sites[%d].search_url 无效：%w", i, err)
		}
		s.BaseURL = strings.TrimSpace(s.BaseURL)
		if s.BaseURL == "" {
			u, _ := url.Parse(strings.ReplaceAll(s.SearchURL, "{query}", "q"))
			s.BaseURL = u.Scheme + "://" + u.Host
		} else if err := checkHTTPURL(s.BaseURL); err != nil {
			return nil, fmt.Errorf("sites[%d].base_url 无效：%w", i, err)
		}
		if strings.TrimSpace(s.Item) == "" || strings.TrimSpace(s.Title) == "" {
			return nil, fmt.Errorf("sites[%d] 缺少必填选择器 item/title", i)
		}
		out = append(out, s)
	}
	return out, nil
}

// resolveProfile 校验 profile 中的名字都已在 [[sites]] 中定义。
// 某个 profile 未配置时：两个角色都按 [[sites]] 的声明顺序使用全部站点。
func resolveProfile(key string, profiles map[string]ProfileConfig, sites []string) (ProfileNames, error) {
	pc, ok := profiles[key]
	if !ok {
		return ProfileNames{
			Metadata: append([]string(nil), sites...),
			Photo:    append([]string(nil), sites...),
		}, nil
	}
	known := make(map[string]struct{}, len(sites))
	for _, s := range sites {
		known[s] = struct{}{}
	}
	check := func(role string, names []string) ([]string, error) {
		out := make([]string, 0, len(names))
		for _, n := range names {
			n = strings.ToLower(strings.TrimSpace(n))
			if _, ok := known[n]; !ok {
				return nil, fmt.Errorf("profiles.%s.%s 引用了未定义的 site：%q", key, role, n)
			}
			out = append(out, n)
		}
		return out, nil
	}
	m, err := check("metadata", pc.Metadata)
	if err != nil {
		return ProfileNames{}, err
	}
	p, err := check("photo", pc.Photo)
	if err != nil {
		return ProfileNames{}, err
	}
	return ProfileNames{Metadata: m, Photo: p}, nil
}

// SeriesCatalog 是配置中的已知 series 列表，实现 query.SiteValidator。
type SeriesCatalog []domain.Site

var _ query.SiteValidator = SeriesCatalog(nil)

// Lookup 返回第一个与 series 匹配（query.SeriesMatches）的条目。
func (c SeriesCatalog) Lookup(series string) (domain.Site, bool) {
	for _, s := range c {
		if query.SeriesMatches(s.Name, series) {
			return s, true
		}
	}
	return domain.Site{}, false
}

func pick(cliSet bool, cliVal, fileVal, def string) string {
	if cliSet {
		return strings.ToLower(strings.TrimSpace(cliVal))
	}
	if v := strings.TrimSpace(fileVal); v != "" {
		return strings.ToLower(v)
	}
	return def
}

func checkHTTPURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" && u.Scheme != "socks5" {
		return fmt.Errorf("不支持的 scheme：%q", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("缺少 host：%q", raw)
	}
	return nil
}

func normList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// absCleanFrom 以 base 为基准，把 p 变为 clean + absolute。
func absCleanFrom(base, p string) string {
	p = filepath.Clean(strings.TrimSpace(p))
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Clean(filepath.Join(base, p))
}

// readFileConfig 读取并解析 TOML 配置文件。
// 返回值 exists 表示该文件是否存在（不存在不算错误）。
func readFileConfig(path string) (fc FileConfig, exists bool, err error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, false, nil
		}
		return FileConfig{}, false, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return FileConfig{}, true, err
	}
	return fc, true, nil
}
