package curriculum

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/tkdojang/dojang/internal/domain/belt"
	"github.com/tkdojang/dojang/internal/domain/content"
)

// SheetConfig locates curriculum rows in a spreadsheet.
type SheetConfig struct {
	SheetName string // XLSX only; empty means the first sheet
	HeaderRow int    // 1-based row holding column names
}

// DefaultSheetConfig returns the layout curriculum sheets use.
func DefaultSheetConfig() SheetConfig {
	return SheetConfig{HeaderRow: 1}
}

// SheetResult holds the rows a sheet produced. Rows that fail are reported
// in Errors and skipped; the rest still load.
type SheetResult struct {
	Items   []content.Item
	Skipped int
	Errors  []string
}

// sheet columns, matched case-insensitively against the header row
const (
	colID         = "id"
	colKind       = "kind"
	colCategory   = "category"
	colTerm       = "term"
	colRomanized  = "romanized"
	colHangul     = "hangul"
	colDefinition = "definition"
	colBelt       = "belt"
	colMoves      = "moves"
)

var errNoHeader = errors.New("header row not found")

// LoadSheet reads an .xlsx or .csv curriculum sheet at path within fsys.
func LoadSheet(fsys fs.FS, path string, belts *belt.Catalog, cfg SheetConfig) (*SheetResult, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open sheet: %w", err)
	}
	defer f.Close()
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		return DecodeCSV(f, belts, cfg, path)
	}
	return DecodeXLSX(f, belts, cfg, path)
}

// DecodeXLSX reads a workbook from r.
func DecodeXLSX(r io.Reader, belts *belt.Catalog, cfg SheetConfig, source string) (*SheetResult, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook %s: %w", source, err)
	}
	defer f.Close()
	return decodeWorkbook(f, belts, cfg, source)
}

func decodeWorkbook(f *excelize.File, belts *belt.Catalog, cfg SheetConfig, source string) (*SheetResult, error) {
	sheet := cfg.SheetName
	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q of %s: %w", sheet, source, err)
	}
	return decodeRows(rows, belts, cfg, source)
}

// DecodeCSV reads comma-separated rows from r.
func DecodeCSV(r io.Reader, belts *belt.Catalog, cfg SheetConfig, source string) (*SheetResult, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv %s: %w", source, err)
	}
	if len(rows) > 0 && len(rows[0]) > 0 {
		rows[0][0] = strings.TrimPrefix(rows[0][0], "\ufeff")
	}
	return decodeRows(rows, belts, cfg, source)
}

func decodeRows(rows [][]string, belts *belt.Catalog, cfg SheetConfig, source string) (*SheetResult, error) {
	header := cfg.HeaderRow
	if header < 1 {
		header = 1
	}
	if len(rows) < header {
		return nil, fmt.Errorf("%s: %w", source, errNoHeader)
	}
	cols := make(map[string]int)
	for i, name := range rows[header-1] {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{colKind, colTerm, colBelt} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("%s: missing column %q", source, required)
		}
	}

	result := &SheetResult{Errors: make([]string, 0)}
	for i := header; i < len(rows); i++ {
		row := rows[i]
		cell := func(name string) string {
			if idx, ok := cols[name]; ok && idx < len(row) {
				return strings.TrimSpace(row[idx])
			}
			return ""
		}
		if cell(colTerm) == "" && cell(colKind) == "" {
			result.Skipped++
			continue
		}
		it, err := rowItem(cell, belts, source)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: %v", i+1, err))
			continue
		}
		result.Items = append(result.Items, it)
	}
	return result, nil
}

func rowItem(cell func(string) string, belts *belt.Catalog, source string) (content.Item, error) {
	kind, err := content.ParseKind(strings.ReplaceAll(strings.ToLower(cell(colKind)), " ", "_"))
	if err != nil {
		return content.Item{}, err
	}
	rank, err := resolveBelt(belts, cell(colBelt))
	if err != nil {
		return content.Item{}, err
	}
	moves := 0
	if s := cell(colMoves); s != "" {
		if moves, err = strconv.Atoi(s); err != nil || moves < 0 {
			return content.Item{}, fmt.Errorf("moves must be a non-negative number, got %q", s)
		}
	}
	prefix := strings.ReplaceAll(string(kind), "_", "-")
	it := content.Item{
		ID:           contentID(prefix, cell(colID), cell(colTerm)),
		Kind:         kind,
		Category:     firstNonEmpty(cell(colCategory), "general"),
		Term:         cell(colTerm),
		Romanized:    cell(colRomanized),
		Hangul:       cell(colHangul),
		Definition:   cell(colDefinition),
		RequiredRank: rank,
		Moves:        moves,
		Source:       source,
	}
	if err := it.Validate(); err != nil {
		return content.Item{}, err
	}
	return it, nil
}
