package models

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrMissingColumn is matched by every ColumnError.
var ErrMissingColumn = errors.New("missing column")

// ColumnType describes how the cells of a column are interpreted.
type ColumnType int

const (
	ColumnText ColumnType = iota
	ColumnDate
)

func (t ColumnType) String() string {
	switch t {
	case ColumnDate:
		return "date"
	default:
		return "text"
	}
}

// ColumnError reports a required column that the dataset does not carry.
type ColumnError struct {
	Column  string
	Columns []string
}

func (e *ColumnError) Error() string {
	return fmt.Sprintf("column %q not found (have %v)", e.Column, e.Columns)
}

func (e *ColumnError) Is(target error) bool {
	return target == ErrMissingColumn
}

// Dataset is an in-memory table loaded from a CSV artifact.
// Cells are kept as text; Types records columns that have been coerced.
type Dataset struct {
	Columns []string
	Rows    [][]string
	Types   map[string]ColumnType
}

// NewDataset creates an empty Dataset with the given header.
func NewDataset(columns []string) *Dataset {
	return &Dataset{
		Columns: append([]string(nil), columns...),
		Rows:    make([][]string, 0),
		Types:   make(map[string]ColumnType),
	}
}

// Index returns the position of the named column.
func (d *Dataset) Index(name string) (int, error) {
	for i, c := range d.Columns {
		if c == name {
			return i, nil
		}
	}
	return -1, &ColumnError{Column: name, Columns: d.Columns}
}

// TypeOf returns the type recorded for a column, ColumnText if none.
func (d *Dataset) TypeOf(name string) ColumnType {
	if d.Types == nil {
		return ColumnText
	}
	return d.Types[name]
}

// Len returns the number of rows.
func (d *Dataset) Len() int { return len(d.Rows) }

// Derive returns an empty Dataset sharing the header and column types of d.
func (d *Dataset) Derive() *Dataset {
	out := NewDataset(d.Columns)
	for k, v := range d.Types {
		out.Types[k] = v
	}
	return out
}

// Column returns a copy of every cell in the named column.
func (d *Dataset) Column(name string) ([]string, error) {
	idx, err := d.Index(name)
	if err != nil {
		return nil, err
	}
	values := make([]string, len(d.Rows))
	for i, row := range d.Rows {
		if idx < len(row) {
			values[i] = row[idx]
		}
	}
	return values, nil
}

// NullDate is a calendar date that may be absent.
type NullDate struct {
	Time  time.Time
	Valid bool
}

// DateLayout is the canonical rendering of a NullDate.
const DateLayout = "2006-01-02"

// AbsentMarker is how an absent value is written out.
const AbsentMarker = ""

func (d NullDate) String() string {
	if !d.Valid {
		return AbsentMarker
	}
	return d.Time.Format(DateLayout)
}

// Bounds is the closed price interval [Min, Max].
type Bounds struct {
	Min float64
	Max float64
}

// Contains reports whether price lies within the bounds, both ends inclusive.
// NaN is never contained.
func (b Bounds) Contains(price float64) bool {
	if math.IsNaN(price) {
		return false
	}
	return b.Min <= price && price <= b.Max
}
