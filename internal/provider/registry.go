package provider

import (
	"fmt"
	"sort"
	"strings"
)

// Registry 是 provider 的只读注册表（按 name 索引），启动时构建一次。
type Registry struct {
	byName map[string]Provider
}

func NewRegistry(providers ...Provider) (Registry, error) {
	byName := make(map[string]Provider, len(providers))
	for _, p := range providers {
		if p == nil {
			return Registry{}, fmt.Errorf("provider 不能为空")
		}
		name := cleanName(p.Name())
		if name == "" {
			return Registry{}, fmt.Errorf("provider.Name 不能为空")
		}
		if _, ok := byName[name]; ok {
			return Registry{}, fmt.Errorf("重复的 provider：%q", name)
		}
		byName[name] = p
	}
	return Registry{byName: byName}, nil
}

func (r Registry) Get(name string) (Provider, bool) {
	if r.byName == nil {
		return nil, false
	}
	p, ok := r.byName[cleanName(name)]
	return p, ok
}

// Names 返回已注册的 provider 名（字典序）。
func (r Registry) Names() []string {
	out := make([]string, 0, len(r.byName))
	for n := range r.byName {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Ordered 按给定顺序解析 provider 列表；任一名字未注册即报错（配置错误应在启动时暴露）。
func (r Registry) Ordered(names []string) ([]Provider, error) {
	out := make([]Provider, 0, len(names))
	seen := make(map[string]struct{}, len(names))
	for _, n := range names {
		key := cleanName(n)
		if _, dup := seen[key]; dup {
			continue
		}
		p, ok := r.Get(key)
		if !ok {
			return nil, fmt.Errorf("provider 未注册：%q", n)
		}
		seen[key] = struct{}{}
		out = append(out, p)
	}
	return out, nil
}

// Profile 按名字构建一个角色档案。
func (r Registry) Profile(metadata, photo []string) (Profile, error) {
	m, err := r.Ordered(metadata)
	if err != nil {
		return Profile{}, fmt.Errorf("metadata：%w", err)
	}
	p, err := r.Ordered(photo)
	if err != nil {
		return Profile{}, fmt.Errorf("photo：%w", err)
	}
	return Profile{Metadata: m, Photo: p}, nil
}

func cleanName(s string) string { return strings.ToLower(strings.TrimSpace(s)) }
