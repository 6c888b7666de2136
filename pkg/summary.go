package pkg

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// RenderSummary prints the totals of a run followed by one row per failed tile.
func RenderSummary(w io.Writer, result *Result, styled bool) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	if styled {
		tw.SetStyle(table.StyleRounded)
	} else {
		tw.SetStyle(table.StyleDefault)
	}

	tw.SetTitle("Run " + result.RunID)
	tw.AppendHeader(table.Row{"Tiles", "Succeeded", "Skipped", "Failed", "Manifests", "Elapsed", "Avg/tile (ms)"})
	tw.AppendRow(table.Row{
		result.Total,
		result.Succeeded,
		result.Skipped,
		result.Failed,
		strconv.Itoa(result.ManifestsRewritten) + " rewritten",
		result.Elapsed.Round(time.Millisecond).String(),
		result.AverageMillis().StringFixed(1),
	})
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight},
		{Number: 2, Align: text.AlignRight},
		{Number: 3, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
		{Number: 7, Align: text.AlignRight},
	})
	tw.Render()

	failed := result.FailedResults()
	if len(failed) == 0 {
		return
	}

	fw := table.NewWriter()
	fw.SetOutputMirror(w)
	if styled {
		fw.SetStyle(table.StyleRounded)
	} else {
		fw.SetStyle(table.StyleDefault)
	}
	fw.AppendHeader(table.Row{"Tile", "Kind", "Stage", "Error"})
	for _, r := range failed {
		fw.AppendRow(table.Row{r.Path, r.ErrorKind, r.FailedStage, r.Error})
	}
	fw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 4, WidthMax: 80},
	})
	if kinds := result.FailuresByKind(); len(kinds) > 0 {
		footer := ""
		for i, k := range kinds {
			if i > 0 {
				footer += ", "
			}
			footer += fmt.Sprintf("%s: %d", k.Kind, k.Count)
		}
		fw.AppendFooter(table.Row{"", "", "", footer})
	}
	fw.Render()
}
