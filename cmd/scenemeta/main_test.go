package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/John-Robertt/scenemeta/internal/config"
	"github.com/John-Robertt/scenemeta/internal/domain"
)

const sitePage = `<html><body>
<div class="card"><h3>Nympho Wars</h3><span class="studio">Evil Angel</span><span class="date">2026-01-17</span><img src="/p.jpg"></div>
</body></html>`

func writeConfig(t *testing.T, srvURL string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenemeta.toml")
	content := fmt.Sprintf(`
[log]
level = "error"

[[sites]]
name = "local"
base_url = "https://local.test"
search_url = "%s/search?q={query}"
item = "div.card"
title = "h3"
date = "span.date"
studio = "span.studio"
image = "img@src"

[[series]]
name = "Evil Angel"
`, srvURL)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("写入配置失败：%v", err)
	}
	return path
}

func newSiteServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("q") == "Nympho Wars" {
			_, _ = w.Write([]byte(sitePage))
			return
		}
		http.NotFound(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestClassifyCommand_JSON(t *testing.T) {
	srv := newSiteServer(t)
	cfg := writeConfig(t, srv.URL)

	out, _, err := execute(t, "--config", cfg, "classify", "--format", "json", "EvilAngel-Nympho Wars", "Brazzers.26.01.17", "Unknown-Thing")
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	var got []queryOut
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("输出应是 JSON：%v（%s）", err, out)
	}
	if len(got) != 3 {
		t.Fatalf("输出条数不符合预期：%+v", got)
	}
	if got[0].Kind != "title" || got[0].Series != "EvilAngel" || got[0].Title != "Nympho Wars" {
		t.Fatalf("series 校验通过时应拆分：%+v", got[0])
	}
	if got[1].Kind != "date" || got[1].Series != "Brazzers" || got[1].Date != "2026-01-17" {
		t.Fatalf("日期查询不符合预期：%+v", got[1])
	}
	if got[2].Series != "" || got[2].Title != "Unknown-Thing" {
		t.Fatalf("未知 series 不应拆分：%+v", got[2])
	}
}

func TestResolveCommand_JSONKeepsCardinality(t *testing.T) {
	srv := newSiteServer(t)
	cfg := writeConfig(t, srv.URL)

	out, _, err := execute(t, "--config", cfg, "resolve", "--format", "json", "EvilAngel-Nympho Wars", "Nothing Here")
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	var recs []domain.ResultRecord
	if err := json.Unmarshal([]byte(out), &recs); err != nil {
		t.Fatalf("输出应是 JSON：%v（%s）", err, out)
	}
	if len(recs) != 2 {
		t.Fatalf("输出应与输入一一对应：%d", len(recs))
	}
	if recs[0].Title != "Nympho Wars" || recs[0].Source != "local" || recs[0].PosterURL != "https://local.test/p.jpg" {
		t.Fatalf("第一条不符合预期：%+v", recs[0])
	}
	if recs[1].Subject != "Nothing Here" || !recs[1].Empty() {
		t.Fatalf("第二条应为占位记录：%+v", recs[1])
	}
}

func TestResolveCommand_TableAndNFO(t *testing.T) {
	srv := newSiteServer(t)
	cfg := writeConfig(t, srv.URL)

	out, _, err := execute(t, "--config", cfg, "resolve", "-f", "table", "Nympho Wars")
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if !strings.Contains(out, "Nympho Wars") || !strings.Contains(out, "local") {
		t.Fatalf("table 输出不符合预期：%s", out)
	}

	out, _, err = execute(t, "--config", cfg, "resolve", "-f", "nfo", "Nympho Wars")
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if !strings.Contains(out, "<movie>") || !strings.Contains(out, "<title>Nympho Wars</title>") {
		t.Fatalf("nfo 输出不符合预期：%s", out)
	}
}

func TestSearchCommand(t *testing.T) {
	srv := newSiteServer(t)
	cfg := writeConfig(t, srv.URL)

	out, _, err := execute(t, "--config", cfg, "search", "-f", "json", "--type", "scene", "Nympho Wars")
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	var recs []domain.ResultRecord
	if err := json.Unmarshal([]byte(out), &recs); err != nil {
		t.Fatalf("输出应是 JSON：%v（%s）", err, out)
	}
	if len(recs) != 1 || recs[0].MediaType != "scene" {
		t.Fatalf("search 结果不符合预期：%+v", recs)
	}

	if _, _, err := execute(t, "--config", cfg, "search", "--type", "movie", "x"); err == nil {
		t.Fatalf("不支持的 --type 应报错")
	}
}

func TestInitConfigCommand(t *testing.T) {
	out, _, err := execute(t, "init-config")
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if out != config.SampleConfig() {
		t.Fatalf("应原样输出示例配置")
	}
}

func TestResolveCommand_Errors(t *testing.T) {
	if _, _, err := execute(t, "resolve"); err == nil {
		t.Fatalf("没有 subject 时应报错")
	}
	_, _, err := execute(t, "--config", filepath.Join(t.TempDir(), "missing.toml"), "resolve", "x")
	if config.Code(err) != config.ErrCodeNotFound {
		t.Fatalf("显式配置不存在应报 %s，实际 %v", config.ErrCodeNotFound, err)
	}
	srv := newSiteServer(t)
	cfg := writeConfig(t, srv.URL)
	if _, _, err := execute(t, "--config", cfg, "resolve", "-f", "yaml", "x"); err == nil {
		t.Fatalf("未知输出格式应报错")
	}
}

func TestResolveFormat_NonTerminalDefaultsToJSON(t *testing.T) {
	if got := resolveFormat("", &bytes.Buffer{}); got != formatJSON {
		t.Fatalf("非终端默认应为 json，实际 %q", got)
	}
	if got := resolveFormat(" NFO ", &bytes.Buffer{}); got != formatNFO {
		t.Fatalf("显式格式应规范化，实际 %q", got)
	}
}

func TestResolveCommand_DirWritesSidecars(t *testing.T) {
	srv := newSiteServer(t)
	cfg := writeConfig(t, srv.URL)

	lib := t.TempDir()
	for _, name := range []string{"Nympho Wars.mp4", "Nothing Here.mkv"} {
		if err := os.WriteFile(filepath.Join(lib, name), []byte("x"), 0o644); err != nil {
			t.Fatalf("写入文件失败：%v", err)
		}
	}

	out, _, err := execute(t, "--config", cfg, "resolve", "-f", "json", "--dir", lib, "--write-nfo")
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	var recs []domain.ResultRecord
	if err := json.Unmarshal([]byte(out), &recs); err != nil {
		t.Fatalf("输出应是 JSON：%v（%s）", err, out)
	}
	// 按相对路径排序：Nothing Here 在前。
	if len(recs) != 2 || recs[0].Subject != "Nothing Here" || recs[1].Title != "Nympho Wars" {
		t.Fatalf("结果不符合预期：%+v", recs)
	}

	b, err := os.ReadFile(filepath.Join(lib, "Nympho Wars.nfo"))
	if err != nil || !strings.Contains(string(b), "<title>Nympho Wars</title>") {
		t.Fatalf("应写出 nfo：%v %s", err, b)
	}
	if _, err := os.Stat(filepath.Join(lib, "Nothing Here.nfo")); !os.IsNotExist(err) {
		t.Fatalf("没有结果的视频不应写 nfo")
	}

	// 再跑一次：已存在的 nfo 默认跳过，不报错。
	if _, _, err := execute(t, "--config", cfg, "resolve", "-f", "json", "--dir", lib, "--write-nfo"); err != nil {
		t.Fatalf("已存在的 nfo 应跳过：%v", err)
	}
	if _, _, err := execute(t, "--config", cfg, "resolve", "--write-nfo", "x"); err == nil {
		t.Fatalf("--write-nfo 缺少 --dir 应报错")
	}
}
