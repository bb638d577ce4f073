// Package excel loads scheduling input entities from an .xlsx workbook,
// one sheet per entity, for shops that hand schedulers a spreadsheet
// instead of CSV exports.
package excel

import (
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/solderline/smt-scheduler/pkg/domain/entities"
)

// Sheet names the loader expects in the workbook.
const (
	SheetStages   = "Stages"
	SheetLines    = "Lines"
	SheetProducts = "Products"
	SheetRoutings = "Routings"
	SheetCalendar = "Calendar"
)

// Loader reads scheduler input from an .xlsx workbook.
type Loader struct {
	file *excelize.File
}

// Open opens the workbook at filename. Callers must call Close when done.
func Open(filename string) (*Loader, error) {
	f, err := excelize.OpenFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook %s: %w", filename, err)
	}
	return &Loader{file: f}, nil
}

// Close releases the underlying workbook.
func (l *Loader) Close() error {
	return l.file.Close()
}

func (l *Loader) rows(sheet string) ([][]string, error) {
	rows, err := l.file.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheet, err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("sheet %s must have a header and at least one data row", sheet)
	}
	return rows, nil
}

// LoadStages reads the Stages sheet: id, name, order.
func (l *Loader) LoadStages() ([]*entities.Stage, error) {
	rows, err := l.rows(SheetStages)
	if err != nil {
		return nil, err
	}
	var stages []*entities.Stage
	for i, row := range rows[1:] {
		if len(row) < 3 {
			return nil, fmt.Errorf("%s row %d: expected 3 columns, got %d", SheetStages, i+2, len(row))
		}
		id, err := strconv.Atoi(row[0])
		if err != nil {
			return nil, fmt.Errorf("%s row %d: invalid id %q: %w", SheetStages, i+2, row[0], err)
		}
		order, err := strconv.Atoi(row[2])
		if err != nil {
			return nil, fmt.Errorf("%s row %d: invalid order %q: %w", SheetStages, i+2, row[2], err)
		}
		stage, err := entities.NewStage(entities.StageID(id), row[1], order)
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", SheetStages, i+2, err)
		}
		stages = append(stages, stage)
	}
	return stages, nil
}

// LoadLines reads the Lines sheet: id, name, active, max_feeder_slots,
// stage_id, efficiency. One row per (line, supported stage).
func (l *Loader) LoadLines() ([]*entities.Line, error) {
	rows, err := l.rows(SheetLines)
	if err != nil {
		return nil, err
	}
	byID := map[entities.LineID]*entities.Line{}
	var order []entities.LineID
	for i, row := range rows[1:] {
		if len(row) < 6 {
			return nil, fmt.Errorf("%s row %d: expected 6 columns, got %d", SheetLines, i+2, len(row))
		}
		id := entities.LineID(row[0])
		line, ok := byID[id]
		if !ok {
			active, err := strconv.ParseBool(row[2])
			if err != nil {
				return nil, fmt.Errorf("%s row %d: invalid active %q: %w", SheetLines, i+2, row[2], err)
			}
			maxSlots, err := strconv.Atoi(row[3])
			if err != nil {
				return nil, fmt.Errorf("%s row %d: invalid max_feeder_slots %q: %w", SheetLines, i+2, row[3], err)
			}
			line, err = entities.NewLine(id, row[1], active, maxSlots)
			if err != nil {
				return nil, fmt.Errorf("%s row %d: %w", SheetLines, i+2, err)
			}
			byID[id] = line
			order = append(order, id)
		}
		if row[4] != "" {
			stageID, err := strconv.Atoi(row[4])
			if err != nil {
				return nil, fmt.Errorf("%s row %d: invalid stage_id %q: %w", SheetLines, i+2, row[4], err)
			}
			eff, err := decimal.NewFromString(row[5])
			if err != nil {
				return nil, fmt.Errorf("%s row %d: invalid efficiency %q: %w", SheetLines, i+2, row[5], err)
			}
			if err := line.SetCapability(entities.StageID(stageID), eff); err != nil {
				return nil, fmt.Errorf("%s row %d: %w", SheetLines, i+2, err)
			}
		}
	}
	lines := make([]*entities.Line, 0, len(order))
	for _, id := range order {
		lines = append(lines, byID[id])
	}
	return lines, nil
}

// LoadProducts reads the Products sheet: id, name, order_qty, stock_qty,
// release_date, due_date, priority.
func (l *Loader) LoadProducts() ([]*entities.Product, error) {
	rows, err := l.rows(SheetProducts)
	if err != nil {
		return nil, err
	}
	var products []*entities.Product
	for i, row := range rows[1:] {
		if len(row) < 7 {
			return nil, fmt.Errorf("%s row %d: expected 7 columns, got %d", SheetProducts, i+2, len(row))
		}
		orderQty, err := strconv.Atoi(row[2])
		if err != nil {
			return nil, fmt.Errorf("%s row %d: invalid order_qty %q: %w", SheetProducts, i+2, row[2], err)
		}
		stockQty, err := strconv.Atoi(row[3])
		if err != nil {
			return nil, fmt.Errorf("%s row %d: invalid stock_qty %q: %w", SheetProducts, i+2, row[3], err)
		}
		release, err := time.Parse(time.RFC3339, row[4])
		if err != nil {
			return nil, fmt.Errorf("%s row %d: invalid release_date %q: %w", SheetProducts, i+2, row[4], err)
		}
		due, err := time.Parse(time.RFC3339, row[5])
		if err != nil {
			return nil, fmt.Errorf("%s row %d: invalid due_date %q: %w", SheetProducts, i+2, row[5], err)
		}
		priority, err := parsePriority(row[6])
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", SheetProducts, i+2, err)
		}
		product, err := entities.NewProduct(row[0], row[1], orderQty, stockQty, release, due, priority)
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", SheetProducts, i+2, err)
		}
		products = append(products, product)
	}
	return products, nil
}

// LoadRoutings reads the Routings sheet: product_id, stage_id, sequence,
// allowed_lines (pipe-separated), multiplier, fixed_minutes.
func (l *Loader) LoadRoutings(knownStages []*entities.Stage, baseLeadTime, complexity decimal.Decimal) ([]*entities.Routing, error) {
	rows, err := l.rows(SheetRoutings)
	if err != nil {
		return nil, err
	}
	stepsByProduct := map[string][]entities.RoutingStep{}
	var order []string
	for i, row := range rows[1:] {
		if len(row) < 6 {
			return nil, fmt.Errorf("%s row %d: expected 6 columns, got %d", SheetRoutings, i+2, len(row))
		}
		productID := row[0]
		stageID, err := strconv.Atoi(row[1])
		if err != nil {
			return nil, fmt.Errorf("%s row %d: invalid stage_id %q: %w", SheetRoutings, i+2, row[1], err)
		}
		sequence, err := strconv.Atoi(row[2])
		if err != nil {
			return nil, fmt.Errorf("%s row %d: invalid sequence %q: %w", SheetRoutings, i+2, row[2], err)
		}
		multiplier, err := decimal.NewFromString(row[4])
		if err != nil {
			return nil, fmt.Errorf("%s row %d: invalid multiplier %q: %w", SheetRoutings, i+2, row[4], err)
		}
		fixedMinutes, err := strconv.Atoi(row[5])
		if err != nil {
			return nil, fmt.Errorf("%s row %d: invalid fixed_minutes %q: %w", SheetRoutings, i+2, row[5], err)
		}
		if _, ok := stepsByProduct[productID]; !ok {
			order = append(order, productID)
		}
		stepsByProduct[productID] = append(stepsByProduct[productID], entities.RoutingStep{
			StageID:      entities.StageID(stageID),
			Sequence:     sequence,
			AllowedLines: splitLineIDs(row[3]),
			Multiplier:   multiplier,
			FixedMinutes: fixedMinutes,
		})
	}
	stageByID := make(map[entities.StageID]*entities.Stage, len(knownStages))
	for _, st := range knownStages {
		stageByID[st.ID] = st
	}

	routings := make([]*entities.Routing, 0, len(order))
	for _, productID := range order {
		r, err := entities.NewRouting(productID, stepsByProduct[productID], baseLeadTime, complexity, stageByID)
		if err != nil {
			return nil, fmt.Errorf("routings for product %s: %w", productID, err)
		}
		routings = append(routings, r)
	}
	return routings, nil
}

// LoadCalendar reads the Calendar sheet for holidays: date, line_id,
// whole_day, start_minute, end_minute. The sheet is optional; a missing
// sheet yields a calendar with no holidays.
func (l *Loader) LoadCalendar(defaultShift entities.Shift) (*entities.Calendar, error) {
	cal := entities.NewDefaultCalendar(defaultShift)

	rows, err := l.file.GetRows(SheetCalendar)
	if err != nil || len(rows) < 2 {
		return cal, nil
	}
	for i, row := range rows[1:] {
		if len(row) < 5 {
			return nil, fmt.Errorf("%s row %d: expected 5 columns, got %d", SheetCalendar, i+2, len(row))
		}
		date, err := time.Parse("2006-01-02", row[0])
		if err != nil {
			return nil, fmt.Errorf("%s row %d: invalid date %q: %w", SheetCalendar, i+2, row[0], err)
		}
		wholeDay, err := strconv.ParseBool(row[2])
		if err != nil {
			return nil, fmt.Errorf("%s row %d: invalid whole_day %q: %w", SheetCalendar, i+2, row[2], err)
		}
		startMinute, endMinute := 0, 0
		if !wholeDay {
			startMinute, err = strconv.Atoi(row[3])
			if err != nil {
				return nil, fmt.Errorf("%s row %d: invalid start_minute %q: %w", SheetCalendar, i+2, row[3], err)
			}
			endMinute, err = strconv.Atoi(row[4])
			if err != nil {
				return nil, fmt.Errorf("%s row %d: invalid end_minute %q: %w", SheetCalendar, i+2, row[4], err)
			}
		}
		cal.Holidays = append(cal.Holidays, entities.Holiday{
			Date:        date,
			LineID:      entities.LineID(row[1]),
			WholeDay:    wholeDay,
			StartMinute: startMinute,
			EndMinute:   endMinute,
		})
	}
	return cal, nil
}

func splitLineIDs(field string) []entities.LineID {
	if field == "" {
		return nil
	}
	start := 0
	var out []entities.LineID
	for i := 0; i <= len(field); i++ {
		if i == len(field) || field[i] == '|' {
			out = append(out, entities.LineID(field[start:i]))
			start = i + 1
		}
	}
	return out
}

func parsePriority(s string) (entities.PriorityTier, error) {
	switch s {
	case "low":
		return entities.PriorityLow, nil
	case "normal":
		return entities.PriorityNormal, nil
	case "high":
		return entities.PriorityHigh, nil
	case "urgent":
		return entities.PriorityUrgent, nil
	default:
		return 0, fmt.Errorf("unknown priority %q", s)
	}
}

// WriteTemplate creates a blank workbook with the expected sheets and
// header rows, for schedulers who want a starting point to fill in.
func WriteTemplate(filename string) error {
	f := excelize.NewFile()
	headers := map[string][]string{
		SheetStages:   {"id", "name", "order"},
		SheetLines:    {"id", "name", "active", "max_feeder_slots", "stage_id", "efficiency"},
		SheetProducts: {"id", "name", "order_qty", "stock_qty", "release_date", "due_date", "priority"},
		SheetRoutings: {"product_id", "stage_id", "sequence", "allowed_lines", "multiplier", "fixed_minutes"},
		SheetCalendar: {"date", "line_id", "whole_day", "start_minute", "end_minute"},
	}

	first := true
	for _, sheet := range []string{SheetStages, SheetLines, SheetProducts, SheetRoutings, SheetCalendar} {
		if first {
			f.SetSheetName("Sheet1", sheet)
			first = false
		} else if _, err := f.NewSheet(sheet); err != nil {
			return fmt.Errorf("failed to create sheet %s: %w", sheet, err)
		}
		for col, name := range headers[sheet] {
			cell, err := excelize.CoordinatesToCellName(col+1, 1)
			if err != nil {
				return err
			}
			f.SetCellValue(sheet, cell, name)
		}
	}

	if err := f.SaveAs(filename); err != nil {
		return fmt.Errorf("failed to save template %s: %w", filename, err)
	}
	return nil
}
