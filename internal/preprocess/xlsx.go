package preprocess

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// flattenWorkbook renders a spreadsheet as one text block: a header line per
// sheet followed by comma-joined non-empty cell values per row, capped at
// cellBudget cells across the whole workbook.
func flattenWorkbook(raw []byte, cellBudget int) (string, error) {
	f, err := xlsx.OpenBinary(raw)
	if err != nil {
		return "", eris.Wrap(err, "preprocess: open xlsx")
	}

	var lines []string
	count := 0
	for _, sheet := range f.Sheets {
		lines = append(lines, "# Sheet: "+sheet.Name)
		for _, row := range sheet.Rows {
			if count >= cellBudget {
				break
			}
			var vals []string
			for _, cell := range row.Cells {
				v := strings.TrimSpace(cell.String())
				if v != "" {
					vals = append(vals, v)
				}
			}
			if len(vals) > 0 {
				lines = append(lines, strings.Join(vals, ", "))
				count += len(vals)
			}
		}
		if count >= cellBudget {
			break
		}
	}

	return strings.Join(lines, "\n"), nil
}
