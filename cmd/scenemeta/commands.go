package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/John-Robertt/scenemeta/internal/config"
	"github.com/John-Robertt/scenemeta/internal/contenttype"
	"github.com/John-Robertt/scenemeta/internal/domain"
	"github.com/John-Robertt/scenemeta/internal/infra/fsx"
	"github.com/John-Robertt/scenemeta/internal/nfo"
	"github.com/John-Robertt/scenemeta/internal/provider"
	"github.com/John-Robertt/scenemeta/internal/query"
	"github.com/John-Robertt/scenemeta/internal/scan"
)

func newClassifyCommand(gf *globalFlags) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "classify <query>...",
		Short: "只做查询分类（日期 / series+标题），不访问网络",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eff, err := gf.loadConfig(cmd)
			if err != nil {
				return err
			}
			var v query.SiteValidator
			if len(eff.Series) > 0 {
				v = eff.Series
			}
			out := make([]domain.Query, 0, len(args))
			for _, raw := range args {
				out = append(out, query.Classify(raw, v))
			}
			return writeQueries(cmd.OutOrStdout(), resolveFormat(format, cmd.OutOrStdout()), out)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "", "输出格式：json/table（默认：终端为 table，否则 json）")
	return cmd
}

func newResolveCommand(gf *globalFlags) *cobra.Command {
	var (
		format    string
		fromStdin bool
		dir       string
		exclude   []string
		writeNFO  bool
		overwrite bool
	)
	cmd := &cobra.Command{
		Use:   "resolve <subject>...",
		Short: "按 provider 优先级调和每个 subject 的元数据与图片",
		Long: "输出与输入一一对应：没有结果的 subject 输出只带 subject 的占位记录。\n" +
			"--stdin 时每行一个 subject（忽略空行）；--dir 时每个视频文件名（去掉扩展名）是一个 subject。",
		RunE: func(cmd *cobra.Command, args []string) error {
			if writeNFO && dir == "" {
				return fmt.Errorf("--write-nfo 需要配合 --dir 使用")
			}
			subjects := append([]string(nil), args...)
			if fromStdin {
				lines, err := readLines(cmd.InOrStdin())
				if err != nil {
					return err
				}
				subjects = append(subjects, lines...)
			}
			var videos []scan.Video
			if dir != "" {
				vs, err := scan.Videos(dir, exclude)
				if err != nil {
					return fmt.Errorf("扫描目录失败：%w", err)
				}
				videos = vs
				subjects = append(subjects, scan.Subjects(vs)...)
			}
			if len(subjects) == 0 {
				return fmt.Errorf("至少需要一个 subject")
			}
			a, err := gf.newApp(cmd)
			if err != nil {
				return err
			}
			recs := a.reconciler.ResolveBatch(cmd.Context(), subjects)
			if writeNFO {
				// 目录中的视频排在 subjects 的末尾。
				off := len(subjects) - len(videos)
				if err := writeSidecars(a, videos, recs[off:], overwrite); err != nil {
					return err
				}
			}
			return writeRecords(cmd.OutOrStdout(), resolveFormat(format, cmd.OutOrStdout()), recs)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "", "输出格式：json/table/nfo（默认：终端为 table，否则 json）")
	cmd.Flags().BoolVar(&fromStdin, "stdin", false, "从 stdin 读取 subject（每行一个）")
	cmd.Flags().StringVar(&dir, "dir", "", "扫描目录下的视频文件作为 subject")
	cmd.Flags().StringSliceVar(&exclude, "exclude", nil, "扫描时跳过的子目录（相对 --dir）")
	cmd.Flags().BoolVar(&writeNFO, "write-nfo", false, "在视频旁写出同名 .nfo（只写有结果的）")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "允许覆盖已存在的 .nfo")
	return cmd
}

// writeSidecars 为每个有结果的视频写出同名 .nfo；已存在且不允许覆盖时跳过并记日志。
func writeSidecars(a *app, videos []scan.Video, recs []domain.ResultRecord, overwrite bool) error {
	var written, skipped int
	for i, v := range videos {
		if recs[i].Empty() {
			skipped++
			continue
		}
		b, err := nfo.Encode(recs[i])
		if err != nil {
			return err
		}
		path := fsx.SidecarPath(v.Path, ".nfo")
		if err := fsx.WriteSidecar(path, b, overwrite); err != nil {
			if errors.Is(err, fsx.ErrSidecarExists) {
				a.log.Info("sidecar exists, skipped", "path", path)
				skipped++
				continue
			}
			return err
		}
		written++
	}
	a.log.Info("sidecars done", "written", written, "skipped", skipped)
	return nil
}

func newSearchCommand(gf *globalFlags) *cobra.Command {
	var (
		format string
		kind   string
		limit  int
	)
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "分类查询串并列出第一个有结果的 provider 的全部候选",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hints := provider.Hints{Limit: limit}
			switch strings.ToLower(strings.TrimSpace(kind)) {
			case "":
			case string(contenttype.Scene):
				hints.Type = contenttype.Scene
			case string(contenttype.Compilation):
				hints.Type = contenttype.Compilation
			default:
				return fmt.Errorf("--type 只能是 scene/compilation，实际是 %q", kind)
			}
			a, err := gf.newApp(cmd)
			if err != nil {
				return err
			}
			q, recs, attempts := a.reconciler.Search(cmd.Context(), args[0], a.validator, hints)
			for _, att := range attempts {
				if att.Err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "provider %s 失败：%v\n", att.Provider, att.Err)
				}
			}
			a.log.Debug("search classified", "query", q.Raw, "series", q.Series, "title", q.Title, "date", q.DateString())
			return writeRecords(cmd.OutOrStdout(), resolveFormat(format, cmd.OutOrStdout()), recs)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "", "输出格式：json/table/nfo（默认：终端为 table，否则 json）")
	cmd.Flags().StringVar(&kind, "type", "", "只返回该类别：scene/compilation")
	cmd.Flags().IntVar(&limit, "limit", 0, "最多返回条数（0 表示不限）")
	return cmd
}

func newInitConfigCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "init-config",
		Short: "输出带注释的示例配置（" + config.DefaultFileName + "）",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := io.WriteString(cmd.OutOrStdout(), config.SampleConfig())
			return err
		},
	}
}

func readLines(r io.Reader) ([]string, error) {
	var out []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if s := strings.TrimSpace(sc.Text()); s != "" {
			out = append(out, s)
		}
	}
	return out, sc.Err()
}
