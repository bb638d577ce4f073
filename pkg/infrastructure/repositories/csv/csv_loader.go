// Package csv loads scheduling input entities from CSV files: one file
// per entity, a validated header row, and row-numbered parse errors.
package csv

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/solderline/smt-scheduler/pkg/domain/entities"
)

// Loader handles loading scheduler input from CSV files.
type Loader struct{}

// NewLoader creates a new CSV loader.
func NewLoader() *Loader {
	return &Loader{}
}

func validateHeader(got, want []string) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range want {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

func readRecords(filename string, minRows int) ([][]string, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", filename, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", filename, err)
	}
	if len(records) < minRows {
		return nil, fmt.Errorf("%s must have a header and at least one data row", filename)
	}
	return records, nil
}

// LoadStages loads stages from a CSV file with header: id,name,order
func (l *Loader) LoadStages(filename string) ([]*entities.Stage, error) {
	records, err := readRecords(filename, 2)
	if err != nil {
		return nil, err
	}
	header := []string{"id", "name", "order"}
	if !validateHeader(records[0], header) {
		return nil, fmt.Errorf("stages CSV header mismatch, expected %v got %v", header, records[0])
	}

	var stages []*entities.Stage
	for i, record := range records[1:] {
		if len(record) != len(header) {
			return nil, fmt.Errorf("stages CSV row %d: expected %d columns, got %d", i+2, len(header), len(record))
		}
		id, err := strconv.Atoi(record[0])
		if err != nil {
			return nil, fmt.Errorf("stages CSV row %d: invalid id %q: %w", i+2, record[0], err)
		}
		order, err := strconv.Atoi(record[2])
		if err != nil {
			return nil, fmt.Errorf("stages CSV row %d: invalid order %q: %w", i+2, record[2], err)
		}
		stage, err := entities.NewStage(entities.StageID(id), record[1], order)
		if err != nil {
			return nil, fmt.Errorf("stages CSV row %d: %w", i+2, err)
		}
		stages = append(stages, stage)
	}
	return stages, nil
}

// LoadLines loads lines from a CSV file with header:
// id,name,active,max_feeder_slots,stage_id,efficiency
// One row per (line, supported stage); a line with no capability rows is
// still created if it appears at least once.
func (l *Loader) LoadLines(filename string) ([]*entities.Line, error) {
	records, err := readRecords(filename, 2)
	if err != nil {
		return nil, err
	}
	header := []string{"id", "name", "active", "max_feeder_slots", "stage_id", "efficiency"}
	if !validateHeader(records[0], header) {
		return nil, fmt.Errorf("lines CSV header mismatch, expected %v got %v", header, records[0])
	}

	byID := map[entities.LineID]*entities.Line{}
	var order []entities.LineID
	for i, record := range records[1:] {
		if len(record) != len(header) {
			return nil, fmt.Errorf("lines CSV row %d: expected %d columns, got %d", i+2, len(header), len(record))
		}
		id := entities.LineID(record[0])
		line, ok := byID[id]
		if !ok {
			active, err := strconv.ParseBool(record[2])
			if err != nil {
				return nil, fmt.Errorf("lines CSV row %d: invalid active %q: %w", i+2, record[2], err)
			}
			maxSlots, err := strconv.Atoi(record[3])
			if err != nil {
				return nil, fmt.Errorf("lines CSV row %d: invalid max_feeder_slots %q: %w", i+2, record[3], err)
			}
			line, err = entities.NewLine(id, record[1], active, maxSlots)
			if err != nil {
				return nil, fmt.Errorf("lines CSV row %d: %w", i+2, err)
			}
			byID[id] = line
			order = append(order, id)
		}
		if record[4] != "" {
			stageID, err := strconv.Atoi(record[4])
			if err != nil {
				return nil, fmt.Errorf("lines CSV row %d: invalid stage_id %q: %w", i+2, record[4], err)
			}
			eff, err := decimal.NewFromString(record[5])
			if err != nil {
				return nil, fmt.Errorf("lines CSV row %d: invalid efficiency %q: %w", i+2, record[5], err)
			}
			if err := line.SetCapability(entities.StageID(stageID), eff); err != nil {
				return nil, fmt.Errorf("lines CSV row %d: %w", i+2, err)
			}
		}
	}

	lines := make([]*entities.Line, 0, len(order))
	for _, id := range order {
		lines = append(lines, byID[id])
	}
	return lines, nil
}

// LoadProducts loads products from a CSV file with header:
// id,name,order_qty,stock_qty,release_date,due_date,priority
// Dates are RFC3339; priority is one of low,normal,high,urgent.
func (l *Loader) LoadProducts(filename string) ([]*entities.Product, error) {
	records, err := readRecords(filename, 2)
	if err != nil {
		return nil, err
	}
	header := []string{"id", "name", "order_qty", "stock_qty", "release_date", "due_date", "priority"}
	if !validateHeader(records[0], header) {
		return nil, fmt.Errorf("products CSV header mismatch, expected %v got %v", header, records[0])
	}

	var products []*entities.Product
	for i, record := range records[1:] {
		if len(record) != len(header) {
			return nil, fmt.Errorf("products CSV row %d: expected %d columns, got %d", i+2, len(header), len(record))
		}
		orderQty, err := strconv.Atoi(record[2])
		if err != nil {
			return nil, fmt.Errorf("products CSV row %d: invalid order_qty %q: %w", i+2, record[2], err)
		}
		stockQty, err := strconv.Atoi(record[3])
		if err != nil {
			return nil, fmt.Errorf("products CSV row %d: invalid stock_qty %q: %w", i+2, record[3], err)
		}
		release, err := time.Parse(time.RFC3339, record[4])
		if err != nil {
			return nil, fmt.Errorf("products CSV row %d: invalid release_date %q: %w", i+2, record[4], err)
		}
		due, err := time.Parse(time.RFC3339, record[5])
		if err != nil {
			return nil, fmt.Errorf("products CSV row %d: invalid due_date %q: %w", i+2, record[5], err)
		}
		priority, err := parsePriority(record[6])
		if err != nil {
			return nil, fmt.Errorf("products CSV row %d: %w", i+2, err)
		}
		product, err := entities.NewProduct(record[0], record[1], orderQty, stockQty, release, due, priority)
		if err != nil {
			return nil, fmt.Errorf("products CSV row %d: %w", i+2, err)
		}
		products = append(products, product)
	}
	return products, nil
}

// LoadRoutings loads routing steps from a CSV file with header:
// product_id,stage_id,sequence,allowed_lines,multiplier,fixed_minutes
// allowed_lines is a pipe-separated list of line ids; rows for the same
// product_id are grouped into one Routing, in file order.
func (l *Loader) LoadRoutings(filename string, knownStages []*entities.Stage, baseLeadTime decimal.Decimal, complexity decimal.Decimal) ([]*entities.Routing, error) {
	records, err := readRecords(filename, 2)
	if err != nil {
		return nil, err
	}
	header := []string{"product_id", "stage_id", "sequence", "allowed_lines", "multiplier", "fixed_minutes"}
	if !validateHeader(records[0], header) {
		return nil, fmt.Errorf("routings CSV header mismatch, expected %v got %v", header, records[0])
	}

	stepsByProduct := map[string][]entities.RoutingStep{}
	var order []string
	for i, record := range records[1:] {
		if len(record) != len(header) {
			return nil, fmt.Errorf("routings CSV row %d: expected %d columns, got %d", i+2, len(header), len(record))
		}
		productID := record[0]
		stageID, err := strconv.Atoi(record[1])
		if err != nil {
			return nil, fmt.Errorf("routings CSV row %d: invalid stage_id %q: %w", i+2, record[1], err)
		}
		sequence, err := strconv.Atoi(record[2])
		if err != nil {
			return nil, fmt.Errorf("routings CSV row %d: invalid sequence %q: %w", i+2, record[2], err)
		}
		multiplier, err := decimal.NewFromString(record[4])
		if err != nil {
			return nil, fmt.Errorf("routings CSV row %d: invalid multiplier %q: %w", i+2, record[4], err)
		}
		fixedMinutes, err := strconv.Atoi(record[5])
		if err != nil {
			return nil, fmt.Errorf("routings CSV row %d: invalid fixed_minutes %q: %w", i+2, record[5], err)
		}
		allowedLines := splitLineIDs(record[3])

		if _, ok := stepsByProduct[productID]; !ok {
			order = append(order, productID)
		}
		stepsByProduct[productID] = append(stepsByProduct[productID], entities.RoutingStep{
			StageID:      entities.StageID(stageID),
			Sequence:     sequence,
			AllowedLines: allowedLines,
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

// LoadCalendar loads a default calendar and its holidays from a CSV file
// with header: date,line_id,whole_day,start_minute,end_minute
// An empty line_id applies the holiday to every line.
func (l *Loader) LoadCalendar(filename string, defaultShift entities.Shift) (*entities.Calendar, error) {
	cal := entities.NewDefaultCalendar(defaultShift)

	file, err := os.Open(filename)
	if os.IsNotExist(err) {
		return cal, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", filename, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", filename, err)
	}
	if len(records) == 0 {
		return cal, nil
	}
	header := []string{"date", "line_id", "whole_day", "start_minute", "end_minute"}
	if !validateHeader(records[0], header) {
		return nil, fmt.Errorf("calendar CSV header mismatch, expected %v got %v", header, records[0])
	}

	for i, record := range records[1:] {
		if len(record) != len(header) {
			return nil, fmt.Errorf("calendar CSV row %d: expected %d columns, got %d", i+2, len(header), len(record))
		}
		date, err := time.Parse("2006-01-02", record[0])
		if err != nil {
			return nil, fmt.Errorf("calendar CSV row %d: invalid date %q: %w", i+2, record[0], err)
		}
		wholeDay, err := strconv.ParseBool(record[2])
		if err != nil {
			return nil, fmt.Errorf("calendar CSV row %d: invalid whole_day %q: %w", i+2, record[2], err)
		}
		startMinute, endMinute := 0, 0
		if !wholeDay {
			startMinute, err = strconv.Atoi(record[3])
			if err != nil {
				return nil, fmt.Errorf("calendar CSV row %d: invalid start_minute %q: %w", i+2, record[3], err)
			}
			endMinute, err = strconv.Atoi(record[4])
			if err != nil {
				return nil, fmt.Errorf("calendar CSV row %d: invalid end_minute %q: %w", i+2, record[4], err)
			}
		}
		cal.Holidays = append(cal.Holidays, entities.Holiday{
			Date:        date,
			LineID:      entities.LineID(record[1]),
			WholeDay:    wholeDay,
			StartMinute: startMinute,
			EndMinute:   endMinute,
		})
	}
	return cal, nil
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
