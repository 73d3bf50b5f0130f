package models

// CleanReport summarises what a cleaning pass did to a dataset.
type CleanReport struct {
	RowsIn       int
	RowsOut      int
	DroppedRows  int
	AbsentDates  int
	MinPrice     float64
	MaxPrice     float64
	AveragePrice float64
	Bounds       Bounds
}
