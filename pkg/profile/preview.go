package profile

import (
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"

	sm "github.com/wdm0006/smudge/pkg/smudge"
)

// DefaultPreviewRows is the number of rows shown by a dataset preview.
const DefaultPreviewRows = 5

var cellEscaper = strings.NewReplacer("|", `\|`, "\r\n", " ", "\n", " ", "\r", " ")

// Preview renders the first n rows as a markdown table with a leading,
// zero-based index column. Nulls render as empty cells. Pipes are escaped and
// line breaks become spaces so each row stays on one line.
func Preview(f *sm.Frame, n int) string {
	if n <= 0 || n > f.Rows() {
		n = f.Rows()
	}
	names := f.Schema().Names()
	cols := make([]sm.Column, len(names))
	for i, name := range names {
		cols[i], _ = f.ColumnByName(name)
	}

	var b strings.Builder
	tw := tablewriter.NewWriter(&b)
	header := []string{""}
	for _, name := range names {
		header = append(header, cellEscaper.Replace(name))
	}
	tw.SetHeader(header)
	tw.SetBorders(tablewriter.Border{Left: true, Top: false, Right: true, Bottom: false})
	tw.SetCenterSeparator("|")
	tw.SetAutoFormatHeaders(false)
	tw.SetAutoWrapText(false)
	tw.SetAlignment(tablewriter.ALIGN_LEFT)
	tw.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	for r := 0; r < n; r++ {
		row := make([]string, 0, len(cols)+1)
		row = append(row, strconv.Itoa(r))
		for _, c := range cols {
			if c.IsNull(r) {
				row = append(row, "")
				continue
			}
			row = append(row, cellEscaper.Replace(sm.FormatValue(c, r)))
		}
		tw.Append(row)
	}
	tw.Render()
	return b.String()
}
