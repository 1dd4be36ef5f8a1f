package quiz

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// DefaultWorkbookLimit is the number of questions in the published bank;
// rows past it are appendix material.
const DefaultWorkbookLimit = 701

// The first three rows of every sheet are titles; row 4 is the header.
const headerRows = 4

// WorkbookQuestion is one row of the Excel question bank.
type WorkbookQuestion struct {
	Num      int    `json:"num"`
	Chapter  string `json:"chapter"`
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// ParseWorkbook reads every sheet of the question bank. Columns A-C hold
// answer, original number and question text; the sheet name is the chapter.
// Rows without a question are dropped, at most limit rows are kept (limit <= 0
// means DefaultWorkbookLimit) and the result is renumbered from 1.
func ParseWorkbook(r io.Reader, limit int) ([]WorkbookQuestion, error) {
	if limit <= 0 {
		limit = DefaultWorkbookLimit
	}

	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	var out []WorkbookQuestion
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
		}
		if len(rows) <= headerRows {
			continue
		}

		for _, row := range rows[headerRows:] {
			question := strings.TrimSpace(cell(row, 2))
			if question == "" {
				continue
			}
			out = append(out, WorkbookQuestion{
				Num:      len(out) + 1,
				Chapter:  sheet,
				Question: question,
				Answer:   strings.TrimSpace(cell(row, 0)),
			})
			if len(out) == limit {
				return out, nil
			}
		}
	}
	return out, nil
}

// GetRows trims trailing empty cells, so short rows are common.
func cell(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}
