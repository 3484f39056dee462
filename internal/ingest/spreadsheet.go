package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"ticketsmith/internal/services"
	"ticketsmith/internal/tickets"
)

// Column order expected in spreadsheets. The first row is a header and is skipped.
const (
	colIssueType = iota
	colProject
	colSummary
	colEpicID
	colDescription
)

// SpreadsheetOptions selects what to read from a workbook.
type SpreadsheetOptions struct {
	// Sheet names the worksheet to read; empty means the active sheet.
	Sheet string
}

// ReadSpreadsheet loads drafts from an .xlsx workbook or a .csv file.
// Blank rows are skipped; a row missing its issue type, project, or summary
// fails the whole read with an error naming the row.
func ReadSpreadsheet(path string, opts SpreadsheetOptions) ([]tickets.Draft, error) {
	var (
		rows [][]string
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		rows, err = readCSV(path)
	case ".xlsx", ".xlsm":
		rows, err = readWorkbook(path, opts.Sheet)
	default:
		return nil, services.Wrap(services.ErrValidation, "ingest", "spreadsheet",
			fmt.Sprintf("unsupported file type %q (want .xlsx or .csv)", filepath.Ext(path)), nil)
	}
	if err != nil {
		return nil, err
	}
	return draftsFromRows(rows)
}

func readWorkbook(path, sheet string) ([][]string, error) {
	book, err := excelize.OpenFile(path)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "ingest", "spreadsheet", "open "+path, err)
	}
	defer func() { _ = book.Close() }()

	if sheet == "" {
		sheet = book.GetSheetName(book.GetActiveSheetIndex())
	}
	rows, err := book.GetRows(sheet)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "ingest", "spreadsheet", fmt.Sprintf("read sheet %q", sheet), err)
	}
	return rows, nil
}

func readCSV(path string) ([][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "ingest", "spreadsheet", "open "+path, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	var rows [][]string
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, services.Wrap(services.ErrValidation, "ingest", "spreadsheet", "parse "+path, err)
		}
		rows = append(rows, record)
	}
	return rows, nil
}

func draftsFromRows(rows [][]string) ([]tickets.Draft, error) {
	var drafts []tickets.Draft
	for i, row := range rows {
		if i == 0 {
			continue
		}
		rowNumber := i + 1
		if isBlank(row) {
			continue
		}
		draft := tickets.Draft{
			IssueType:   cell(row, colIssueType),
			Project:     cell(row, colProject),
			Summary:     cell(row, colSummary),
			EpicID:      cell(row, colEpicID),
			Description: cell(row, colDescription),
			Row:         rowNumber,
		}
		var missing []string
		if draft.IssueType == "" {
			missing = append(missing, "issue_type")
		}
		if draft.Project == "" {
			missing = append(missing, "project")
		}
		if draft.Summary == "" {
			missing = append(missing, "summary")
		}
		if len(missing) > 0 {
			return nil, services.Wrap(services.ErrValidation, "ingest", "spreadsheet",
				fmt.Sprintf("row %d: missing %s", rowNumber, strings.Join(missing, ", ")), nil)
		}
		drafts = append(drafts, draft)
	}
	return drafts, nil
}

func cell(row []string, idx int) string {
	if idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func isBlank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
