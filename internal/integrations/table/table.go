// Package table adapts CSV tables to the optimizer's domain types and back.
package table

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"reflect"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"cargroup/internal/opt"

	"github.com/mitchellh/mapstructure"
	"github.com/samber/lo"
)

var (
	StudentColumns = []string{"student_id", "license", "gender", "grade"}
	CarColumns     = []string{"car_id", "capacity"}
	OutputColumns  = []string{"student_id", "car_id", "occupancy", "capacity"}
)

// Table is a header-keyed CSV table with whitespace trimmed from every cell.
type Table struct {
	Name    string
	Header  []string
	Records []map[string]any
}

func ReadCSV(r io.Reader, name string) (*Table, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, &opt.SchemaError{Table: name, Reason: "dataset is empty"}
	}
	if err != nil {
		return nil, fmt.Errorf("read %s header: %w", name, err)
	}
	header = lo.Map(header, func(h string, _ int) string { return strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")) })
	t := &Table{Name: name, Header: header}
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		rec := make(map[string]any, len(header))
		for i, h := range header {
			if i < len(row) {
				rec[h] = strings.TrimSpace(row[i])
			} else {
				rec[h] = ""
			}
		}
		t.Records = append(t.Records, rec)
	}
	return t, nil
}

// FromRecords wraps already decoded rows, such as a JSON request body. The
// header is the sorted union of the row keys.
func FromRecords(name string, records []map[string]any) *Table {
	t := &Table{Name: name}
	for _, rec := range records {
		clean := make(map[string]any, len(rec))
		for k, v := range rec {
			k = strings.TrimSpace(k)
			if s, ok := v.(string); ok {
				v = strings.TrimSpace(s)
			}
			clean[k] = v
			if !slices.Contains(t.Header, k) {
				t.Header = append(t.Header, k)
			}
		}
		t.Records = append(t.Records, clean)
	}
	slices.Sort(t.Header)
	return t
}

// ReadFile opens path and reads it as a CSV table.
func ReadFile(path, name string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	defer func() { _ = f.Close() }()
	return ReadCSV(f, name)
}

// Require reports every missing column in one SchemaError.
func (t *Table) Require(cols ...string) error {
	missing := lo.Filter(cols, func(c string, _ int) bool { return !slices.Contains(t.Header, c) })
	if len(missing) > 0 {
		return &opt.SchemaError{Table: t.Name, Reason: "missing columns: " + strings.Join(missing, ", ")}
	}
	return nil
}

// complete reports whether rec has a value in every one of cols. Incomplete
// rows are dropped.
func complete(rec map[string]any, cols []string) bool {
	return lo.EveryBy(cols, func(c string) bool { return rec[c] != nil && rec[c] != "" })
}

type studentRow struct {
	StudentID string `mapstructure:"student_id"`
	License   bool   `mapstructure:"license"`
	Gender    string `mapstructure:"gender"`
	Grade     string `mapstructure:"grade"`
	CarID     string `mapstructure:"car_id"`
}

type carRow struct {
	CarID    string `mapstructure:"car_id"`
	Capacity int    `mapstructure:"capacity"`
}

// Students decodes the students table. An optional car_id column pins a
// student to a car.
func Students(t *Table) ([]opt.Student, error) {
	if err := t.Require(StudentColumns...); err != nil {
		return nil, err
	}
	var out []opt.Student
	for i, rec := range t.Records {
		if !complete(rec, StudentColumns) {
			continue
		}
		var row studentRow
		if err := decode(rec, &row); err != nil {
			return nil, &opt.SchemaError{Table: t.Name, Reason: fmt.Sprintf("row %d: %v", i+1, err)}
		}
		out = append(out, opt.Student{
			ID:         row.StudentID,
			HasLicense: row.License,
			Gender:     row.Gender,
			Grade:      row.Grade,
			CarID:      row.CarID,
		})
	}
	if len(out) == 0 {
		return nil, &opt.SchemaError{Table: t.Name, Reason: "dataset is empty"}
	}
	return out, nil
}

func Cars(t *Table) ([]opt.Car, error) {
	if err := t.Require(CarColumns...); err != nil {
		return nil, err
	}
	var out []opt.Car
	for i, rec := range t.Records {
		if !complete(rec, CarColumns) {
			continue
		}
		var row carRow
		if err := decode(rec, &row); err != nil {
			return nil, &opt.SchemaError{Table: t.Name, Reason: fmt.Sprintf("row %d: %v", i+1, err)}
		}
		out = append(out, opt.Car{ID: row.CarID, Capacity: row.Capacity})
	}
	if len(out) == 0 {
		return nil, &opt.SchemaError{Table: t.Name, Reason: "dataset is empty"}
	}
	return out, nil
}

func decode(rec map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.ComposeDecodeHookFunc(flagHook, wholeNumberHook),
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return dec.Decode(rec)
}

// flagHook accepts yes/no style license flags on top of strconv.ParseBool.
func flagHook(from, to reflect.Type, data any) (any, error) {
	if from.Kind() != reflect.String || to.Kind() != reflect.Bool {
		return data, nil
	}
	switch strings.ToLower(data.(string)) {
	case "y", "yes", "はい", "有":
		return true, nil
	case "n", "no", "いいえ", "無":
		return false, nil
	}
	if _, err := strconv.ParseBool(data.(string)); err != nil {
		return nil, fmt.Errorf("invalid license flag %q", data)
	}
	return data, nil
}

// wholeNumberHook rejects fractional numbers bound for integer fields, which
// weak decoding would otherwise truncate.
func wholeNumberHook(from, to reflect.Type, data any) (any, error) {
	if to.Kind() != reflect.Int {
		return data, nil
	}
	var f float64
	switch from.Kind() {
	case reflect.Float64:
		f = data.(float64)
	case reflect.Float32:
		f = float64(data.(float32))
	default:
		return data, nil
	}
	if f != math.Trunc(f) {
		return nil, fmt.Errorf("%v is not a whole number", f)
	}
	return data, nil
}

// WriteCSV writes the output table with a header row.
func WriteCSV(w io.Writer, rows []opt.Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(OutputColumns); err != nil {
		return err
	}
	for _, r := range rows {
		rec := []string{r.StudentID, r.CarID, strconv.Itoa(r.Occupancy), strconv.Itoa(r.Capacity)}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9_.-]`)

// SanitizeFilename replaces anything outside [a-zA-Z0-9_.-] with '_'.
func SanitizeFilename(name string) string {
	return unsafeChars.ReplaceAllString(name, "_")
}
