package export

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/golfclapp/backoffice/internal/pricing"
)

// XLSXContentType is the media type of WriteXLSX output.
const XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Sheet names used by WriteXLSX.
const (
	SummarySheet  = "Summary"
	CalendarSheet = "Calendar"
)

var weekdays = []string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}

// WriteXLSX writes a workbook for one month of a course: a summary sheet
// with one row per range overlapping the month, and a calendar sheet laid
// out Monday first. Price cells are filled with the range's color.
func WriteXLSX(w io.Writer, mv pricing.MonthView, loc *time.Location) error {
	if loc == nil {
		loc = time.UTC
	}

	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(SummarySheet)
	if err != nil {
		return fmt.Errorf("creating summary sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("removing default sheet: %w", err)
	}

	styles := make(map[string]int)
	fill := func(hex string) (int, error) {
		if id, ok := styles[hex]; ok {
			return id, nil
		}
		id, err := f.NewStyle(&excelize.Style{
			Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{hex}},
			Font: &excelize.Font{Bold: true, Color: "#FFFFFF"},
		})
		if err != nil {
			return 0, fmt.Errorf("creating fill style: %w", err)
		}
		styles[hex] = id
		return id, nil
	}

	if err := writeSummary(f, mv, loc, fill); err != nil {
		return err
	}
	if err := writeCalendar(f, mv, fill); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}

func writeSummary(f *excelize.File, mv pricing.MonthView, loc *time.Location, fill func(string) (int, error)) error {
	sheet := SummarySheet

	f.SetCellValue(sheet, "A1", fmt.Sprintf("%s - %s", mv.Course.Name, mv.Title))
	headers := []string{"Price", "Period", "Start", "End", "ID"}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 2)
		f.SetCellValue(sheet, cell, header)
	}

	for i, item := range mv.Summary {
		row := i + 3
		price := fmt.Sprintf("A%d", row)
		f.SetCellValue(sheet, price, item.Label)
		f.SetCellValue(sheet, fmt.Sprintf("B%d", row), item.Period)
		f.SetCellValue(sheet, fmt.Sprintf("C%d", row), timeCell(item.Range.StartDate, loc))
		f.SetCellValue(sheet, fmt.Sprintf("D%d", row), timeCell(item.Range.EndDate, loc))
		f.SetCellValue(sheet, fmt.Sprintf("E%d", row), item.Range.ID)

		style, err := fill(pricing.ColorForPrice(item.Range.Price).Hex())
		if err != nil {
			return err
		}
		if err := f.SetCellStyle(sheet, price, price, style); err != nil {
			return fmt.Errorf("styling %s: %w", price, err)
		}
	}

	return f.SetColWidth(sheet, "B", "D", 26)
}

func writeCalendar(f *excelize.File, mv pricing.MonthView, fill func(string) (int, error)) error {
	sheet := CalendarSheet
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("creating calendar sheet: %w", err)
	}

	f.SetCellValue(sheet, "A1", mv.Title)
	for i, day := range weekdays {
		cell, _ := excelize.CoordinatesToCellName(i+1, 2)
		f.SetCellValue(sheet, cell, day)
	}

	for i, day := range mv.Days {
		if day.Day == 0 {
			continue
		}
		cell, _ := excelize.CoordinatesToCellName(i%7+1, i/7+3)

		lines := []string{fmt.Sprint(day.Day)}
		for _, ev := range day.Events {
			lines = append(lines, ev.Label)
		}
		f.SetCellValue(sheet, cell, strings.Join(lines, "\n"))

		if len(day.Events) > 0 {
			style, err := fill(pricing.ColorForPrice(day.Events[0].Range.Price).Hex())
			if err != nil {
				return err
			}
			if err := f.SetCellStyle(sheet, cell, cell, style); err != nil {
				return fmt.Errorf("styling %s: %w", cell, err)
			}
		}
	}

	return f.SetColWidth(sheet, "A", "G", 14)
}

func timeCell(ts pricing.Timestamp, loc *time.Location) string {
	if !ts.Valid() {
		return "Invalid Date"
	}
	return ts.In(loc).Format("2006-01-02 15:04")
}
