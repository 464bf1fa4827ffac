// Package fsx 负责把导出结果（NFO sidecar）安全地写到磁盘。
package fsx

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
)

// 测试用：可替换以模拟 rename 失败。
var renameFunc = os.Rename

// ErrSidecarExists 表示目标 sidecar 已存在且调用方不允许覆盖。
var ErrSidecarExists = errors.New("sidecar 已存在")

// PathTypeConflictError 表示目标路径存在但不是普通文件（例如是目录）。
type PathTypeConflictError struct {
	Path string
	Got  string
}

func (e *PathTypeConflictError) Error() string {
	return fmt.Sprintf("目标路径类型冲突：%q（期望普通文件，实际 %s）", e.Path, e.Got)
}

func IsPathTypeConflict(err error) bool {
	var e *PathTypeConflictError
	return errors.As(err, &e)
}

// SidecarPath 返回与 media 同目录、同主名的 sidecar 路径：/a/b/x.mp4 + ".nfo" => /a/b/x.nfo。
func SidecarPath(media, ext string) string {
	return media[:len(media)-len(filepath.Ext(media))] + ext
}

// WriteSidecar 原子写入 path（同目录临时文件 + rename）。
//
// overwrite=false 时目标已存在返回 ErrSidecarExists；目标是目录等非普通文件时一律返回 PathTypeConflictError。
func WriteSidecar(path string, data []byte, overwrite bool) error {
	path = filepath.Clean(path)
	if fi, err := os.Lstat(path); err == nil {
		if !fi.Mode().IsRegular() {
			got := "dir"
			if !fi.IsDir() {
				got = fi.Mode().Type().String()
			}
			return &PathTypeConflictError{Path: path, Got: got}
		}
		if !overwrite {
			return fmt.Errorf("%w：%s", ErrSidecarExists, path)
		}
	} else if !os.IsNotExist(err) {
		return err
	}
	return writeAtomic(filepath.Dir(path), filepath.Base(path), data)
}

func writeAtomic(dir, name string, data []byte) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	// 临时文件前缀带 '.'，避免在写入过程中被媒体库扫描到。
	tmp, err := os.CreateTemp(dir, "."+name+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	if err := writeAll(tmp, data); err != nil {
		return err
	}
	if err := tmp.Chmod(0o644); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := renameFunc(tmpName, filepath.Join(dir, name)); err != nil {
		return err
	}
	_ = syncDirBestEffort(dir)
	return nil
}

func writeAll(w io.Writer, b []byte) error {
	for len(b) > 0 {
		n, err := w.Write(b)
		if err != nil {
			return err
		}
		b = b[n:]
	}
	return nil
}

func syncDirBestEffort(dir string) error {
	if runtime.GOOS == "windows" {
		return nil
	}
	f, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Sync()
}
