package services

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"basic-cleaning/models"
)

const (
	// PriceColumn holds the nightly price that bounds are applied to.
	PriceColumn = "price"
	// ReviewColumn holds the date of the most recent review.
	ReviewColumn = "last_review"
)

// dateLayouts are tried in order when coercing a cell to a calendar date.
var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006/01/02",
	"01/02/2006",
}

// absentTokens are spellings of "no value" produced by common CSV exporters.
var absentTokens = map[string]struct{}{
	"":     {},
	"nan":  {},
	"nat":  {},
	"null": {},
	"none": {},
	"na":   {},
}

// Transform is one cleaning operation applied to a Dataset. Apply must not
// modify its input.
type Transform interface {
	Name() string
	Apply(ctx context.Context, ds *models.Dataset) (*models.Dataset, error)
}

// Pipeline runs transforms in order, stopping at the first error.
type Pipeline struct {
	steps []Transform
}

func NewPipeline(steps ...Transform) *Pipeline {
	return &Pipeline{steps: steps}
}

func (p *Pipeline) Add(t Transform) *Pipeline {
	p.steps = append(p.steps, t)
	return p
}

func (p *Pipeline) Run(ctx context.Context, ds *models.Dataset) (*models.Dataset, error) {
	cur := ds
	for _, t := range p.steps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		next, err := t.Apply(ctx, cur)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", t.Name(), err)
		}
		cur = next
	}
	return cur, nil
}

// PriceFilter keeps rows whose price lies within Bounds. Rows with a missing
// or unparseable price are dropped.
type PriceFilter struct {
	Column string
	Bounds models.Bounds
}

func (f PriceFilter) Name() string { return "drop outliers" }

func (f PriceFilter) Apply(_ context.Context, ds *models.Dataset) (*models.Dataset, error) {
	idx, err := ds.Index(f.Column)
	if err != nil {
		return nil, err
	}

	out := ds.Derive()
	for _, row := range ds.Rows {
		price, ok := parsePrice(cell(row, idx))
		if !ok || !f.Bounds.Contains(price) {
			continue
		}
		out.Rows = append(out.Rows, append([]string(nil), row...))
	}
	return out, nil
}

// DateNormalizer rewrites every cell of Column as a canonical calendar date,
// or the absent marker when the cell cannot be read as one.
type DateNormalizer struct {
	Column string
}

func (n DateNormalizer) Name() string { return "convert " + n.Column + " to date" }

func (n DateNormalizer) Apply(_ context.Context, ds *models.Dataset) (*models.Dataset, error) {
	idx, err := ds.Index(n.Column)
	if err != nil {
		return nil, err
	}

	out := ds.Derive()
	out.Types[n.Column] = models.ColumnDate
	out.Rows = make([][]string, 0, len(ds.Rows))
	for _, row := range ds.Rows {
		r := append([]string(nil), row...)
		for len(r) <= idx {
			r = append(r, models.AbsentMarker)
		}
		r[idx] = ParseDate(r[idx]).String()
		out.Rows = append(out.Rows, r)
	}
	return out, nil
}

// Cleaner drops price outliers and coerces the review date column.
type Cleaner struct {
	logger *slog.Logger
}

// NewCleaner creates a Cleaner with the given logger.
func NewCleaner(logger *slog.Logger) *Cleaner {
	return &Cleaner{logger: logger}
}

// Clean returns a new Dataset holding only the rows of ds whose price lies in
// bounds, with the review column coerced to dates. Both required columns are
// checked before any row is touched. ds is left unchanged.
func (c *Cleaner) Clean(ctx context.Context, ds *models.Dataset, bounds models.Bounds) (*models.Dataset, error) {
	for _, col := range []string{PriceColumn, ReviewColumn} {
		if _, err := ds.Index(col); err != nil {
			return nil, err
		}
	}

	p := NewPipeline(
		PriceFilter{Column: PriceColumn, Bounds: bounds},
		DateNormalizer{Column: ReviewColumn},
	)

	c.logger.Info("Drop outliers", "min_price", bounds.Min, "max_price", bounds.Max)
	out, err := p.Run(ctx, ds)
	if err != nil {
		return nil, err
	}

	c.logger.Info("Cleaned dataset",
		"rows_in", ds.Len(), "rows_out", out.Len(), "dropped", ds.Len()-out.Len())
	return out, nil
}

// ParseDate reads s as a calendar date. Values that are empty, spelled as a
// null, or in no known layout yield an invalid NullDate.
func ParseDate(s string) models.NullDate {
	s = strings.TrimSpace(s)
	if _, absent := absentTokens[strings.ToLower(s)]; absent {
		return models.NullDate{}
	}
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		y, m, d := t.Date()
		return models.NullDate{Time: time.Date(y, m, d, 0, 0, 0, 0, time.UTC), Valid: true}
	}
	return models.NullDate{}
}

// parsePrice reads a numeric price cell. ok is false for blanks and
// non-numeric text.
func parsePrice(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func cell(row []string, idx int) string {
	if idx < len(row) {
		return row[idx]
	}
	return ""
}
