package schema

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTruncateNumericPositive(t *testing.T) {
	assert.Equal(t, 100.0, TruncateNumeric(150, 100))
	assert.Equal(t, 0.0, TruncateNumeric(99, 100))
	assert.Equal(t, 200.0, TruncateNumeric(200, 100))
}

func TestTruncateNumericNegative(t *testing.T) {
	assert.Equal(t, -100.0, TruncateNumeric(-50, 100))
	assert.Equal(t, -200.0, TruncateNumeric(-150, 100))
}

func TestTruncateNumericZeroBucket(t *testing.T) {
	assert.Equal(t, 42.0, TruncateNumeric(42, 0))
}

func TestTruncateDatePerUnit(t *testing.T) {
	ts := time.Date(2024, time.March, 15, 13, 45, 30, 0, time.UTC).Unix()

	minute := TruncateDate(float64(ts), UnitMinute)
	assert.Equal(t, time.Date(2024, time.March, 15, 13, 45, 0, 0, time.UTC).Unix(), int64(minute))

	hour := TruncateDate(float64(ts), UnitHour)
	assert.Equal(t, time.Date(2024, time.March, 15, 13, 0, 0, 0, time.UTC).Unix(), int64(hour))

	day := TruncateDate(float64(ts), UnitDay)
	assert.Equal(t, time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC).Unix(), int64(day))

	month := TruncateDate(float64(ts), UnitMonth)
	assert.Equal(t, time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC).Unix(), int64(month))

	year := TruncateDate(float64(ts), UnitYear)
	assert.Equal(t, time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC).Unix(), int64(year))

	decade := TruncateDate(float64(ts), UnitDecade)
	assert.Equal(t, time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC).Unix(), int64(decade))

	century := TruncateDate(float64(ts), UnitCentury)
	assert.Equal(t, time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC).Unix(), int64(century))
}

func TestDefaultAccuracyPerConcreteType(t *testing.T) {
	assert.Len(t, DefaultAccuracy(Integer, "P"), len(DefaultNumericAccuracy))
	assert.Len(t, DefaultAccuracy(Float, "P"), len(DefaultNumericAccuracy))
	assert.Len(t, DefaultAccuracy(Date, "P"), len(DefaultDateAccuracy))
	assert.Len(t, DefaultAccuracy(Time, "P"), len(DefaultTimeAccuracy))
	assert.Len(t, DefaultAccuracy(Geo, "P"), len(DefaultGeoLevels))
	assert.Nil(t, DefaultAccuracy(Text, "P"))
	assert.Nil(t, DefaultAccuracy(Term, "P"))
}

func TestDefaultAccuracyPrefixesAreDistinct(t *testing.T) {
	entries := DefaultAccuracy(Integer, "P")
	seen := make(map[string]bool, len(entries))
	for _, e := range entries {
		assert.False(t, seen[e.Prefix], "duplicate prefix %q", e.Prefix)
		seen[e.Prefix] = true
	}
}

func TestGeoAccuracyValueDecreasesWithLevel(t *testing.T) {
	assert.Greater(t, GeoAccuracyValue(0), GeoAccuracyValue(20))
}
