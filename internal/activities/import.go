// Package activities reads the ГКЭД activity classifier from the xlsx file
// published by the statistics committee.
package activities

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode"

	"github.com/xuri/excelize/v2"

	"taxledger/internal/models"
)

// The sheet opens with three title rows and a header row.
const skipRows = 4

var ErrNoSheet = errors.New("workbook has no sheets")

// ParseWorkbook reads code, section and name from the first three columns of
// the first sheet and returns the rows FilterRows keeps.
func ParseWorkbook(r io.Reader) ([]models.ActivityCode, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrNoSheet
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	if len(rows) <= skipRows {
		return []models.ActivityCode{}, nil
	}
	return FilterRows(rows[skipRows:]), nil
}

// FilterRows drops rows that are not detailed activity codes: rows with an
// empty cell, upper-case section titles, section letters without digits and
// repeated codes.
func FilterRows(rows [][]string) []models.ActivityCode {
	seen := make(map[string]struct{})
	codes := make([]models.ActivityCode, 0, len(rows))
	for _, row := range rows {
		code, section, name := cell(row, 0), cell(row, 1), cell(row, 2)
		if code == "" || section == "" || name == "" {
			continue
		}
		if isSectionTitle(name) || !hasDigit(code) {
			continue
		}
		if _, dup := seen[code]; dup {
			continue
		}
		seen[code] = struct{}{}
		codes = append(codes, models.ActivityCode{Code: code, Section: section, Name: name})
	}
	return codes
}

func cell(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func isSectionTitle(name string) bool {
	return strings.ToUpper(name) == name && strings.ToLower(name) != name && strings.ContainsAny(name, ", ")
}

func hasDigit(s string) bool {
	return strings.IndexFunc(s, unicode.IsDigit) >= 0
}
