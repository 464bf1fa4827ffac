// Package scan 把媒体目录里的视频文件变成待调和的 subject 列表。
package scan

import (
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/John-Robertt/scenemeta/internal/query"
)

// Video 是一个待调和的视频文件。
type Video struct {
	Path    string // 绝对路径
	RelPath string // 相对扫描根目录
	// Subject 是去掉视频扩展名的文件名，直接作为查询串使用。
	Subject string
}

// Videos 扫描 root 下的视频文件。
//
// 规则：
// - 以 '.' 开头的目录与文件一律跳过（临时文件、隐藏目录）
// - excludeDirs 视为相对 root 的路径（绝对路径按原样处理）
// - 输出按 RelPath 排序，结果稳定
//
// 只做 WalkDir，不读文件内容。
func Videos(root string, excludeDirs []string) ([]Video, error) {
	root, err := filepath.Abs(filepath.Clean(root))
	if err != nil {
		return nil, err
	}
	excluded := buildExcluded(root, excludeDirs)

	var out []Video
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if path != root && (strings.HasPrefix(d.Name(), ".") || isExcluded(path, excluded)) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !query.IsVideoExt(filepath.Ext(d.Name())) {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		out = append(out, Video{
			Path:    path,
			RelPath: rel,
			Subject: query.StripVideoExt(d.Name()),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(out, func(i, j int) bool { return out[i].RelPath < out[j].RelPath })
	return out, nil
}

// Subjects 提取 Subject 列表，顺序与 vs 一致。
func Subjects(vs []Video) []string {
	out := make([]string, 0, len(vs))
	for _, v := range vs {
		out = append(out, v.Subject)
	}
	return out
}

func buildExcluded(root string, excludeDirs []string) []string {
	excluded := make([]string, 0, len(excludeDirs))
	for _, x := range excludeDirs {
		x = strings.TrimSpace(x)
		if x == "" {
			continue
		}
		if !filepath.IsAbs(x) {
			x = filepath.Join(root, x)
		}
		excluded = append(excluded, filepath.Clean(x))
	}
	sort.Strings(excluded)
	return excluded
}

func isExcluded(path string, excluded []string) bool {
	path = filepath.Clean(path)
	for _, base := range excluded {
		if path == base || strings.HasPrefix(path, base+string(filepath.Separator)) {
			return true
		}
	}
	return false
}
