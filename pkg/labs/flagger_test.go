package labs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlagLowHemoglobin(t *testing.T) {
	flags := NewDefaultFlagger().Flag("Complete Blood Count\nHemoglobin 10.0 g/dL\n")

	require.Len(t, flags, 1)
	assert.Equal(t, "Hemoglobin", flags[0].TestName)
	assert.Equal(t, Low, flags[0].Direction)
	assert.Equal(t, 10.0, flags[0].Value)
	assert.Equal(t, 13.0, flags[0].Range.Low)
	assert.Equal(t, 18.0, flags[0].Range.High)
	assert.Equal(t, "Hemoglobin is low (10.0)", flags[0].String())
}

func TestFlagHighPlateletCount(t *testing.T) {
	flags := NewDefaultFlagger().Flag("Platelet Count 500000 /cumm")

	require.Len(t, flags, 1)
	assert.Equal(t, "Platelet Count", flags[0].TestName)
	assert.Equal(t, High, flags[0].Direction)
	assert.Equal(t, "Platelet Count is high (500000.0)", flags[0].String())
}

func TestFlagNoKnownTests(t *testing.T) {
	assert.Empty(t, NewDefaultFlagger().Flag("Serum sodium 140 mmol/L. Patient is well."))
	assert.Empty(t, NewDefaultFlagger().Flag(""))
}

func TestFlagInRangeValues(t *testing.T) {
	text := "Hemoglobin 14.2\nMCV 85\nPlatelet Count 250000"
	assert.Empty(t, NewDefaultFlagger().Flag(text))
}

func TestFlagCaseInsensitive(t *testing.T) {
	flags := NewDefaultFlagger().Flag("HEMOGLOBIN   19.5")
	require.Len(t, flags, 1)
	assert.Equal(t, High, flags[0].Direction)
	assert.Equal(t, 19.5, flags[0].Value)
}

func TestFlagKeepsDuplicates(t *testing.T) {
	text := "Hemoglobin 9.1 (repeat) Hemoglobin 9.4"
	flags := NewDefaultFlagger().Flag(text)

	require.Len(t, flags, 2)
	assert.Equal(t, 9.1, flags[0].Value)
	assert.Equal(t, 9.4, flags[1].Value)
}

func TestFlagNameWithParentheses(t *testing.T) {
	flags := NewDefaultFlagger().Flag("Hematocrit (PCV) 38.0 %\nMean Platelet Volume (MPV) 11.2 fL")

	require.Len(t, flags, 2)
	assert.Equal(t, "Hematocrit (PCV) is low (38.0)", flags[0].String())
	assert.Equal(t, "Mean Platelet Volume (MPV) is high (11.2)", flags[1].String())
}

func TestFlagRequiresNumberDirectlyAfterName(t *testing.T) {
	// "MCH" must not pick up the MCHC value, and a unit between name and
	// value means no match.
	text := "MCHC 38.0\nNeutrophils: 80"
	flags := NewDefaultFlagger().Flag(text)

	require.Len(t, flags, 1)
	assert.Equal(t, "MCHC", flags[0].TestName)
}

func TestFlagOrderFollowsTable(t *testing.T) {
	text := "Platelet Count 90000\nHemoglobin 20"
	flags := NewDefaultFlagger().Flag(text)

	assert.Equal(t, []string{
		"Hemoglobin is high (20.0)",
		"Platelet Count is low (90000.0)",
	}, Messages(flags))
}

func TestCustomRanges(t *testing.T) {
	f := NewFlagger([]ReferenceRange{{TestName: "Ferritin", Low: 30, High: 400}})

	flags := f.Flag("ferritin 12")
	require.Len(t, flags, 1)
	assert.Equal(t, Low, flags[0].Direction)
	assert.Len(t, f.Ranges(), 1)
}

func TestDefaultRangesIsACopy(t *testing.T) {
	ranges := DefaultRanges()
	ranges[0].Low = 0

	r, ok := Lookup(DefaultRanges(), "hemoglobin")
	require.True(t, ok)
	assert.Equal(t, 13.0, r.Low)

	_, ok = Lookup(ranges, "ESR")
	assert.False(t, ok)
}
