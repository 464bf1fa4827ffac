package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"

	"github.com/John-Robertt/scenemeta/internal/domain"
	"github.com/John-Robertt/scenemeta/internal/nfo"
)

const (
	formatJSON  = "json"
	formatTable = "table"
	formatNFO   = "nfo"
)

// resolveFormat 决定输出格式：显式指定优先，否则终端用 table、管道用 json。
func resolveFormat(flag string, w io.Writer) string {
	if f := strings.ToLower(strings.TrimSpace(flag)); f != "" {
		return f
	}
	if isTerminal(w) {
		return formatTable
	}
	return formatJSON
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

func writeRecords(w io.Writer, format string, recs []domain.ResultRecord) error {
	switch format {
	case formatJSON:
		if recs == nil {
			recs = []domain.ResultRecord{}
		}
		return writeJSON(w, recs)
	case formatTable:
		rows := make([][]string, 0, len(recs))
		for _, r := range recs {
			rows = append(rows, []string{
				r.Subject,
				r.Title,
				r.ReleaseDate,
				r.Studio,
				strings.Join(r.Actors, ", "),
				r.MediaType,
				r.Source,
			})
		}
		_, err := fmt.Fprintln(w, renderTable(
			[]string{"Subject", "Title", "Date", "Studio", "Actors", "Type", "Source"},
			rows,
		))
		return err
	case formatNFO:
		for i, r := range recs {
			b, err := nfo.Encode(r)
			if err != nil {
				return err
			}
			if i > 0 {
				if _, err := io.WriteString(w, "\n"); err != nil {
					return err
				}
			}
			if _, err := w.Write(append(b, '\n')); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("未知输出格式：%q（json/table/nfo）", format)
	}
}

type queryOut struct {
	Raw    string `json:"raw"`
	Kind   string `json:"kind"`
	Series string `json:"series"`
	Title  string `json:"title"`
	Date   string `json:"date"`
}

func toQueryOut(q domain.Query) queryOut {
	kind := "title"
	if q.IsDate() {
		kind = "date"
	}
	return queryOut{Raw: q.Raw, Kind: kind, Series: q.Series, Title: q.Title, Date: q.DateString()}
}

func writeQueries(w io.Writer, format string, qs []domain.Query) error {
	out := make([]queryOut, 0, len(qs))
	for _, q := range qs {
		out = append(out, toQueryOut(q))
	}
	switch format {
	case formatJSON:
		return writeJSON(w, out)
	case formatTable:
		rows := make([][]string, 0, len(out))
		for i, q := range out {
			rows = append(rows, []string{strconv.Itoa(i + 1), q.Raw, q.Kind, q.Series, q.Title, q.Date})
		}
		_, err := fmt.Fprintln(w, renderTable([]string{"#", "Query", "Kind", "Series", "Title", "Date"}, rows))
		return err
	default:
		return fmt.Errorf("未知输出格式：%q（json/table）", format)
	}
}

func renderTable(headers []string, rows [][]string) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i := range headers {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := 0; i < columns; i++ {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	cfgs := make([]table.ColumnConfig, 0, columns)
	for i := 0; i < columns; i++ {
		cfgs = append(cfgs, table.ColumnConfig{
			Number:      i + 1,
			AlignHeader: text.AlignLeft,
			WidthMax:    48,
		})
	}
	tw.SetColumnConfigs(cfgs)
	return tw.Render()
}
