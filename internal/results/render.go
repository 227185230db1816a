package results

// Copyright (C) 2025 The simsweep authors
// SPDX-License-Identifier: BSD-3-Clause

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const geomeanRowLabel = "geomean"

// RenderText writes a fixed-width table of all runs followed by a geomean
// row, with thousands separators for readability.
func (s *Set) RenderText(w io.Writer) error {
	printer := message.NewPrinter(language.English)
	columns := s.columns()
	header := append([]string{"configuration", "status", "attempts", "duration"}, columns...)
	rows := [][]string{header}
	for _, run := range s.Runs {
		row := []string{run.Label, statusString(run), strconv.Itoa(run.Sim.Attempts), run.Sim.Duration.Round(10 * time.Millisecond).String()}
		for _, column := range columns {
			if v, ok := run.value(column); ok && !run.Sim.Failed {
				row = append(row, formatValue(printer, v))
			} else {
				row = append(row, "-")
			}
		}
		rows = append(rows, row)
	}
	geomean := []string{geomeanRowLabel, "", "", ""}
	for _, column := range columns {
		if v, ok := s.Geomean(column); ok {
			geomean = append(geomean, formatValue(printer, v))
		} else {
			geomean = append(geomean, "-")
		}
	}
	rows = append(rows, geomean)

	// size each column to its widest entry
	widths := make([]int, len(header))
	for _, row := range rows {
		for i, cell := range row {
			if len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s\n", s.Benchmark))
	for i := 0; i < len(s.Benchmark); i++ {
		sb.WriteString("=")
	}
	sb.WriteString("\n")
	for rowIdx, row := range rows {
		for i, cell := range row {
			sb.WriteString(fmt.Sprintf("%-*s", widths[i]+3, cell))
		}
		sb.WriteString("\n")
		if rowIdx == 0 {
			for i := range row {
				sb.WriteString(fmt.Sprintf("%-*s", widths[i]+3, strings.Repeat("-", widths[i])))
			}
			sb.WriteString("\n")
		}
	}
	_, err := w.Write([]byte(sb.String()))
	return err
}

// RenderCSV writes one record per run. Values are unformatted so the file
// loads cleanly into spreadsheets and scripts.
func (s *Set) RenderCSV(w io.Writer) error {
	columns := s.columns()
	writer := csv.NewWriter(w)
	header := append([]string{"benchmark", "configuration", "status", "attempts", "duration_s"}, columns...)
	if err := writer.Write(header); err != nil {
		return err
	}
	for _, run := range s.Runs {
		record := []string{s.Benchmark, run.Label, statusString(run), strconv.Itoa(run.Sim.Attempts), strconv.FormatFloat(run.Sim.Duration.Seconds(), 'f', 3, 64)}
		for _, column := range columns {
			if v, ok := run.value(column); ok && !run.Sim.Failed {
				record = append(record, strconv.FormatFloat(v, 'f', -1, 64))
			} else {
				record = append(record, "")
			}
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

const xlsxSheetName = "Sweep"

// WriteXlsx writes the run table to an xlsx workbook at path.
func (s *Set) WriteXlsx(path string) error {
	f := excelize.NewFile()
	_ = f.SetSheetName("Sheet1", xlsxSheetName)
	_ = f.SetColWidth(xlsxSheetName, "A", "A", 30)
	_ = f.SetColWidth(xlsxSheetName, "B", "Z", 18)
	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{
			Bold: true,
		},
	})
	columns := s.columns()
	row := 1
	_ = f.SetCellValue(xlsxSheetName, cellName(1, row), s.Benchmark)
	_ = f.SetCellStyle(xlsxSheetName, cellName(1, row), cellName(1, row), headerStyle)
	row += 2
	header := append([]string{"configuration", "status", "attempts", "duration_s"}, columns...)
	for col, name := range header {
		_ = f.SetCellValue(xlsxSheetName, cellName(col+1, row), name)
		_ = f.SetCellStyle(xlsxSheetName, cellName(col+1, row), cellName(col+1, row), headerStyle)
	}
	row++
	for _, run := range s.Runs {
		_ = f.SetCellValue(xlsxSheetName, cellName(1, row), run.Label)
		_ = f.SetCellValue(xlsxSheetName, cellName(2, row), statusString(run))
		_ = f.SetCellValue(xlsxSheetName, cellName(3, row), run.Sim.Attempts)
		_ = f.SetCellValue(xlsxSheetName, cellName(4, row), run.Sim.Duration.Seconds())
		for i, column := range columns {
			if v, ok := run.value(column); ok && !run.Sim.Failed {
				_ = f.SetCellValue(xlsxSheetName, cellName(5+i, row), v)
			}
		}
		row++
	}
	_ = f.SetCellValue(xlsxSheetName, cellName(1, row), geomeanRowLabel)
	for i, column := range columns {
		if v, ok := s.Geomean(column); ok {
			_ = f.SetCellValue(xlsxSheetName, cellName(5+i, row), v)
		}
	}
	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write xlsx report to buffer: %w", err)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0644)
}

func cellName(col int, row int) (name string) {
	columnName, err := excelize.ColumnNumberToName(col)
	if err != nil {
		return
	}
	name, err = excelize.JoinCellName(columnName, row)
	if err != nil {
		return
	}
	return
}

func statusString(run Run) string {
	if run.Sim.Failed {
		return "failed"
	}
	return "ok"
}

// formatValue renders integral values with thousands separators and
// fractional values with three decimal places.
func formatValue(printer *message.Printer, v float64) string {
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return printer.Sprintf("%d", int64(v))
	}
	return printer.Sprintf("%.3f", v)
}
