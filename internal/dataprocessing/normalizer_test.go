package dataprocessing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"erwpulse/pkg/contracts/domain"
)

// resultsRow builds a 61-column results row from sparse cells.
func resultsRow(cells map[int]string) RawRow {
	row := make(RawRow, ColCDRKtYr+1)
	for i, v := range cells {
		row[i] = v
	}
	return row
}

func fullRow() RawRow {
	return resultsRow(map[int]string{
		ColSampleNo:     "S-001",
		ColRiverType:    "perennial",
		ColLatitude:     "25.3",
		ColLongitude:    "83.0",
		ColPH:           "7.8",
		ColAlkalinity:   "2450.5",
		ColCa:           "41.2",
		ColNICB:         "-3.4",
		ColState:        "Uttar Pradesh",
		ColRegion:       "Ganga",
		ColRiverName:    "Varuna",
		ColSource:       "GEMS",
		ColJSteps:       "12",
		ColRockAddition: "0.75",
		ColSuccessFlag:  "1",
		ColOmegaFinal:   "5.0",
		ColCDRTYr:       "1520.25",
		ColCDRKtYr:      "1.52025",
	})
}

func TestNormalizeSample_MapsColumns(t *testing.T) {
	s, ok := NormalizeSampleWithID(fullRow(), BatchContext{Feedstock: "  Calcite ", Threshold: 5}, "id-1")
	require.True(t, ok)

	assert.Equal(t, "id-1", s.ID)
	assert.Equal(t, "calcite", s.Feedstock)
	assert.Equal(t, 5, s.SaturationThreshold)
	assert.Equal(t, "S-001", s.SampleNo)
	assert.Equal(t, "perennial", s.RiverType)
	assert.Equal(t, "Ganga", s.Region)
	assert.Equal(t, "Uttar Pradesh", s.State)
	assert.Equal(t, "Varuna", s.RiverName)
	assert.Equal(t, "GEMS", s.Source)
	assert.Equal(t, domain.Float(25.3), s.Latitude)
	assert.Equal(t, domain.Float(7.8), s.PH)
	assert.Equal(t, domain.Float(-3.4), s.NICB)
	assert.Equal(t, domain.Float(0.75), s.RockAddition)
	assert.Equal(t, domain.Float(1520.25), s.CDRTYr)
	assert.Equal(t, domain.Int(12), s.JSteps)
	assert.Equal(t, domain.Int(1), s.SuccessFlag)

	assert.False(t, s.Mg.Valid)
	assert.False(t, s.KSteps.Valid)
}

func TestNormalizeSample_Rejects(t *testing.T) {
	tests := []struct {
		name string
		row  RawRow
		want bool
	}{
		{name: "complete row", row: fullRow(), want: true},
		{name: "blank sample number", row: resultsRow(map[int]string{ColSampleNo: "  ", ColPH: "7"}), want: false},
		{name: "missing sample number", row: resultsRow(map[int]string{ColPH: "7"}), want: false},
		{name: "section header", row: resultsRow(map[int]string{ColSampleNo: "Northern basins"}), want: false},
		{name: "only latitude", row: resultsRow(map[int]string{ColSampleNo: "1", ColLatitude: "20"}), want: true},
		{name: "only ph", row: resultsRow(map[int]string{ColSampleNo: "1", ColPH: "7"}), want: true},
		{name: "unparseable ph still counts as present", row: resultsRow(map[int]string{ColSampleNo: "1", ColPH: "n/a"}), want: true},
		{name: "short row", row: RawRow{"1"}, want: false},
		{name: "empty row", row: RawRow{}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := NormalizeSample(tt.row, BatchContext{Feedstock: "calcite", Threshold: 5})
			assert.Equal(t, tt.want, ok)
		})
	}
}

func TestNormalizeSample_Idempotent(t *testing.T) {
	row := resultsRow(map[int]string{
		ColSampleNo: "7",
		ColPH:       "NaN",
		ColCa:       "#VALUE!",
		ColCDRTYr:   "1e999",
		ColLatitude: "12.5",
	})
	batch := BatchContext{Feedstock: "basalt", Threshold: 3}

	a, okA := NormalizeSampleWithID(row, batch, "x")
	b, okB := NormalizeSampleWithID(row, batch, "x")
	require.True(t, okA)
	require.True(t, okB)
	assert.Equal(t, a, b)
	assert.Equal(t, domain.NullFloat{}, a.PH)
	assert.Equal(t, domain.NullFloat{}, a.Ca)
	assert.Equal(t, domain.NullFloat{}, a.CDRTYr)
}

func TestNormalizeSample_FreshIDs(t *testing.T) {
	a, _ := NormalizeSample(fullRow(), BatchContext{Feedstock: "calcite"})
	b, _ := NormalizeSample(fullRow(), BatchContext{Feedstock: "calcite"})
	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestNormalizeSummary(t *testing.T) {
	row := RawRow{"Ganga", "0.5", "0.4", "0.1", "0.2", "0.9", "120", "5.1", "5", "0.3", "1500", "bad", "80", "92.5"}
	rec, ok := NormalizeSummary(row, BatchContext{Feedstock: "Calcite", Threshold: 5})
	require.True(t, ok)
	assert.Equal(t, "calcite", rec.Feedstock)
	assert.Equal(t, "Ganga", rec.Region)
	assert.Equal(t, 0.5, rec.AddMean)
	assert.Equal(t, int64(120), rec.NSamples)
	assert.Equal(t, 1500.0, rec.CDRMean)
	assert.Zero(t, rec.CDRTotal)
	assert.Equal(t, int64(80), rec.NWithQ)
	assert.Equal(t, 92.5, rec.SuccessPct)

	_, ok = NormalizeSummary(RawRow{"", "1"}, BatchContext{})
	assert.False(t, ok)
}
