// Package labs holds the reference range table for common blood tests and the
// flagger that reports out-of-range values found in report text.
package labs

// ReferenceRange is the healthy lower and upper bound for one lab test.
type ReferenceRange struct {
	TestName string
	Low      float64
	High     float64
}

// defaultRanges is ordered; flags are emitted in this order.
var defaultRanges = []ReferenceRange{
	{TestName: "Hemoglobin", Low: 13.0, High: 18.0},
	{TestName: "Hematocrit (PCV)", Low: 42.0, High: 52.0},
	{TestName: "RBC Count", Low: 4.00, High: 6.50},
	{TestName: "MCV", Low: 78.0, High: 94.0},
	{TestName: "MCH", Low: 26.0, High: 31.0},
	{TestName: "MCHC", Low: 31.0, High: 36.0},
	{TestName: "RBC Distribution Width - CV", Low: 11.5, High: 14.5},
	{TestName: "Total Leukocyte Count", Low: 4000, High: 11000},
	{TestName: "Neutrophils", Low: 40, High: 70},
	{TestName: "Lymphocytes", Low: 20, High: 45},
	{TestName: "Eosinophils", Low: 0, High: 6},
	{TestName: "Monocytes", Low: 2, High: 10},
	{TestName: "Basophils", Low: 0, High: 1},
	{TestName: "Platelet Count", Low: 150000, High: 450000},
	{TestName: "Mean Platelet Volume (MPV)", Low: 6.5, High: 9.8},
	{TestName: "PCT", Low: 0.150, High: 0.500},
}

// DefaultRanges returns a copy of the built-in table.
func DefaultRanges() []ReferenceRange {
	out := make([]ReferenceRange, len(defaultRanges))
	copy(out, defaultRanges)
	return out
}

// Lookup finds the range for a test name, ignoring case.
func Lookup(ranges []ReferenceRange, name string) (ReferenceRange, bool) {
	for _, r := range ranges {
		if equalFold(r.TestName, name) {
			return r, true
		}
	}
	return ReferenceRange{}, false
}
