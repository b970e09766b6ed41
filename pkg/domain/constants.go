package domain

import "math"

// Math constants shared by the flow engine and analysis code.
const (
	Epsilon  = 1e-9
	Infinity = math.MaxFloat64
)

// Reserved station codes for the aggregate supply and demand vertices.
const (
	SuperSourceCode = "__SRC__"
	SuperSinkCode   = "__SINK__"
)

// Utilization thresholds used by reporting.
const (
	CriticalUtilizationThreshold = 0.99
	HighUtilizationThreshold     = 0.90
)

// IsZero reports whether v is zero within Epsilon.
func IsZero(v float64) bool {
	return math.Abs(v) < Epsilon
}

// IsPositive reports whether v is strictly positive beyond Epsilon.
func IsPositive(v float64) bool {
	return v > Epsilon
}
