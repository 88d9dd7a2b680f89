package dataprocessing

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"erwpulse/pkg/contracts/domain"
)

func TestRawRow_Float(t *testing.T) {
	tests := []struct {
		name string
		cell string
		want domain.NullFloat
	}{
		{name: "plain", cell: "7.25", want: domain.Float(7.25)},
		{name: "integer", cell: "42", want: domain.Float(42)},
		{name: "surrounding spaces", cell: "  3.5 ", want: domain.Float(3.5)},
		{name: "thousands separator", cell: "1,234.5", want: domain.Float(1234.5)},
		{name: "millions", cell: "-12,345,678", want: domain.Float(-12345678)},
		{name: "decimal comma", cell: "1,5", want: domain.NullFloat{}},
		{name: "ragged groups", cell: "1,2,3", want: domain.NullFloat{}},
		{name: "short group", cell: "12,34.5", want: domain.NullFloat{}},
		{name: "comma in fraction", cell: "1.234,5", want: domain.NullFloat{}},
		{name: "scientific", cell: "1.5E-3", want: domain.Float(0.0015)},
		{name: "zero stays zero", cell: "0", want: domain.Float(0)},
		{name: "negative", cell: "-12.1", want: domain.Float(-12.1)},
		{name: "blank", cell: "", want: domain.NullFloat{}},
		{name: "text", cell: "n/a", want: domain.NullFloat{}},
		{name: "excel error", cell: "#DIV/0!", want: domain.NullFloat{}},
		{name: "nan", cell: "NaN", want: domain.NullFloat{}},
		{name: "infinity", cell: "+Inf", want: domain.NullFloat{}},
		{name: "overflow", cell: "1e400", want: domain.NullFloat{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RawRow{tt.cell}.Float(0))
		})
	}
}

func TestRawRow_Int(t *testing.T) {
	tests := []struct {
		name string
		cell string
		want domain.NullInt
	}{
		{name: "integer", cell: "1", want: domain.Int(1)},
		{name: "zero", cell: "0", want: domain.Int(0)},
		{name: "numeric cell with fraction", cell: "3.9", want: domain.Int(3)},
		{name: "integral float", cell: "2.0", want: domain.Int(2)},
		{name: "blank", cell: "", want: domain.NullInt{}},
		{name: "text", cell: "yes", want: domain.NullInt{}},
		{name: "nan", cell: "NaN", want: domain.NullInt{}},
		{name: "grouped", cell: "1,000", want: domain.Int(1000)},
		{name: "decimal comma", cell: "3,9", want: domain.NullInt{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RawRow{tt.cell}.Int(0))
		})
	}
}

func TestRawRow_OutOfRange(t *testing.T) {
	row := RawRow{"a"}
	assert.Equal(t, "", row.String(5))
	assert.False(t, row.Present(-1))
	assert.False(t, row.Float(60).Valid)
	assert.False(t, row.Int(60).Valid)
}
