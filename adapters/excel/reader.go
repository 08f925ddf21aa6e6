package excel

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"gobfda/domain/core"
	"gobfda/internal"
)

var logger = internal.DefaultLogger.With("DataReader")

// table is one sheet of a workbook, or a CSV file, with rows keyed by header
type table struct {
	Headers []string
	Rows    []map[string]string
}

// DataReader handles reading Excel and CSV files
type DataReader struct {
	filePath string
	fileType string // "xlsx" or "csv"
}

// NewDataReader creates a new data reader that handles both Excel and CSV files
func NewDataReader(filePath string) *DataReader {
	ext := strings.ToLower(filepath.Ext(filePath))
	fileType := "xlsx"
	if ext == ".csv" {
		fileType = "csv"
	}
	return &DataReader{filePath: filePath, fileType: fileType}
}

// ReadData reads one sheet (ignored for CSV) into structured format
func (r *DataReader) ReadData(sheet string) (*table, error) {
	if _, err := os.Stat(r.filePath); os.IsNotExist(err) {
		return nil, fmt.Errorf("%s file not found: %s", strings.ToUpper(r.fileType), r.filePath)
	}

	switch r.fileType {
	case "csv":
		return r.readCSVData()
	default:
		return r.readExcelData(sheet)
	}
}

func (r *DataReader) readExcelData(sheet string) (*table, error) {
	startTime := time.Now()
	f, err := excelize.OpenFile(r.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}
	logger.Debug("sheet %q read in %.2fms (%d rows)", sheet, float64(time.Since(startTime).Nanoseconds())/1e6, len(rows))

	return r.processRows(rows)
}

func (r *DataReader) readCSVData() (*table, error) {
	file, err := os.Open(r.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV file: %w", err)
	}
	return r.processRows(rows)
}

// processRows converts raw string rows into a table
func (r *DataReader) processRows(rows [][]string) (*table, error) {
	if len(rows) < 2 {
		return nil, fmt.Errorf("%s file must have a header row and at least one data row", strings.ToUpper(r.fileType))
	}

	headers := make([]string, len(rows[0]))
	for i, header := range rows[0] {
		headers[i] = strings.TrimSpace(header)
	}

	dataRows := make([]map[string]string, 0, len(rows)-1)
	for _, row := range rows[1:] {
		rowData := make(map[string]string, len(headers))
		for j, cell := range row {
			if j < len(headers) {
				rowData[headers[j]] = strings.TrimSpace(cell)
			}
		}
		dataRows = append(dataRows, rowData)
	}
	return &table{Headers: headers, Rows: dataRows}, nil
}

// ReadEffectSizes reads the numeric column named column as an empirical
// effect-size distribution. Blank cells are skipped; anything else that is not
// a finite number is a configuration error naming the row.
func (r *DataReader) ReadEffectSizes(sheet, column string) ([]float64, error) {
	data, err := r.ReadData(sheet)
	if err != nil {
		return nil, core.NewConfigError("expected_es", err.Error())
	}
	header, err := pickColumn(data.Headers, column)
	if err != nil {
		return nil, err
	}

	values := make([]float64, 0, len(data.Rows))
	for i, row := range data.Rows {
		cell := row[header]
		if cell == "" {
			continue
		}
		v, err := strconv.ParseFloat(cell, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, core.NewConfigError("expected_es", fmt.Sprintf("row %d of column %q is not a number: %q", i+2, header, cell))
		}
		values = append(values, v)
	}
	if len(values) == 0 {
		return nil, core.NewConfigError("expected_es", fmt.Sprintf("column %q has no values", header))
	}
	logger.Info("read %d effect sizes from %s column %q", len(values), filepath.Base(r.filePath), header)
	return values, nil
}

// ReadEffectSizes reads an effect-size column from the file cfg points at
func ReadEffectSizes(cfg ExcelConfig) ([]float64, error) {
	return NewDataReader(cfg.FilePath).ReadEffectSizes(cfg.Sheet, cfg.Column)
}

func pickColumn(headers []string, column string) (string, error) {
	if column == "" {
		if len(headers) == 1 {
			return headers[0], nil
		}
		return "", core.NewConfigError("column", fmt.Sprintf("sheet has %d columns; name the one holding effect sizes", len(headers)))
	}
	for _, h := range headers {
		if strings.EqualFold(h, strings.TrimSpace(column)) {
			return h, nil
		}
	}
	return "", core.NewConfigError("column", fmt.Sprintf("no column %q among %v", column, headers))
}
