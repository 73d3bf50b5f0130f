package services

import (
	"fmt"
	"io"
	"log/slog"
	"math"
	"strings"

	"basic-cleaning/models"
)

// InsightService summarises the effect of a cleaning pass.
type InsightService struct {
	logger *slog.Logger
}

func NewInsightService(logger *slog.Logger) *InsightService {
	return &InsightService{logger: logger}
}

// Generate compares the dataset before and after cleaning. Either may be nil.
func (s *InsightService) Generate(before, after *models.Dataset, bounds models.Bounds) *models.CleanReport {
	report := &models.CleanReport{Bounds: bounds}

	if before != nil {
		report.RowsIn = before.Len()
	}
	if after == nil {
		report.DroppedRows = report.RowsIn
		return report
	}
	report.RowsOut = after.Len()
	report.DroppedRows = report.RowsIn - report.RowsOut

	if dates, err := after.Column(ReviewColumn); err == nil {
		for _, d := range dates {
			if d == models.AbsentMarker {
				report.AbsentDates++
			}
		}
	}

	prices, err := after.Column(PriceColumn)
	if err != nil {
		return report
	}

	var total float64
	var n int
	report.MinPrice = math.Inf(1)
	report.MaxPrice = math.Inf(-1)
	for _, raw := range prices {
		p, ok := parsePrice(raw)
		if !ok {
			continue
		}
		n++
		total += p
		report.MinPrice = math.Min(report.MinPrice, p)
		report.MaxPrice = math.Max(report.MaxPrice, p)
	}

	if n == 0 {
		report.MinPrice, report.MaxPrice = 0, 0
		return report
	}
	report.AveragePrice = round2(total / float64(n))
	report.MinPrice = round2(report.MinPrice)
	report.MaxPrice = round2(report.MaxPrice)

	s.logger.Debug("Cleaning report generated",
		"rows_in", report.RowsIn, "rows_out", report.RowsOut, "absent_dates", report.AbsentDates)
	return report
}

// Print renders the report as a small text block.
func (s *InsightService) Print(w io.Writer, r *models.CleanReport) {
	sep := strings.Repeat("═", 54)
	thin := strings.Repeat("─", 54)

	fmt.Fprintf(w, "\n%s\n", sep)
	fmt.Fprintf(w, "  BASIC CLEANING SUMMARY\n")
	fmt.Fprintf(w, "%s\n\n", sep)

	fmt.Fprintf(w, "  Rows\n")
	fmt.Fprintf(w, "  %s\n", thin)
	fmt.Fprintf(w, "  Rows in            : %d\n", r.RowsIn)
	fmt.Fprintf(w, "  Rows out           : %d\n", r.RowsOut)
	fmt.Fprintf(w, "  Dropped (outliers) : %d\n", r.DroppedRows)
	fmt.Fprintf(w, "  Absent %-11s : %d\n", ReviewColumn, r.AbsentDates)
	fmt.Fprintln(w)

	fmt.Fprintf(w, "  Price [%.2f, %.2f]\n", r.Bounds.Min, r.Bounds.Max)
	fmt.Fprintf(w, "  %s\n", thin)
	if r.RowsOut > 0 {
		fmt.Fprintf(w, "  Average price : %.2f\n", r.AveragePrice)
		fmt.Fprintf(w, "  Minimum price : %.2f\n", r.MinPrice)
		fmt.Fprintf(w, "  Maximum price : %.2f\n", r.MaxPrice)
	} else {
		fmt.Fprintf(w, "  No rows survived the price filter\n")
	}

	fmt.Fprintf(w, "\n%s\n\n", sep)
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
