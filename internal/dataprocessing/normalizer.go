package dataprocessing

import (
	"strings"

	"github.com/google/uuid"

	"erwpulse/pkg/contracts/domain"
)

// Column positions of the "ERW Results" sheet.
const (
	ColSampleNo     = 0
	ColRiverType    = 1
	ColLatitude     = 2
	ColLongitude    = 3
	ColPH           = 4
	ColAlkalinity   = 5
	ColTempC        = 6
	ColCa           = 7
	ColMg           = 8
	ColNa           = 9
	ColK            = 10
	ColCl           = 11
	ColSO4          = 12
	ColNO3          = 13
	ColSalinity     = 15
	ColKsp          = 17
	ColHCO3         = 20
	ColCO3          = 21
	ColCO2Aq        = 22
	ColDIC          = 23
	ColPCO2         = 24
	ColFCO2         = 25
	ColZPlus        = 27
	ColZMinus       = 28
	ColNICB         = 29
	ColOmegaCalcite = 31
	ColSICalcite    = 32
	ColState        = 34
	ColRegion       = 35
	ColRiverName    = 36
	ColDischarge    = 37
	ColSource       = 38
	ColJSteps       = 40
	ColKSteps       = 41
	ColRockAddition = 42
	ColOmegaFlag    = 43
	ColSuccessFlag  = 44
	ColOmegaFinal   = 47
	ColCaFinal      = 48
	ColAlkFinal     = 50
	ColDICFinal     = 51
	ColPHFinal      = 53
	ColPCO2Final    = 55
	ColDischargeMS  = 57
	ColCDRMolS      = 58
	ColCDRTYr       = 59
	ColCDRKtYr      = 60
)

// Column positions of the "Summary Statistics" sheet.
const (
	SumColRegion      = 0
	SumColAddMean     = 1
	SumColAddMedian   = 2
	SumColAddStd      = 3
	SumColAddMin      = 4
	SumColAddMax      = 5
	SumColNSamples    = 6
	SumColOmegaMean   = 7
	SumColOmegaMedian = 8
	SumColOmegaStd    = 9
	SumColCDRMean     = 10
	SumColCDRTotal    = 11
	SumColNWithQ      = 12
	SumColSuccessPct  = 13
)

// BatchContext identifies the dataset a workbook is loaded into.
type BatchContext struct {
	Feedstock string
	Threshold int
}

// Normalized returns the context with the feedstock name canonicalized.
func (b BatchContext) Normalized() BatchContext {
	b.Feedstock = strings.ToLower(strings.TrimSpace(b.Feedstock))
	return b
}

// Accepts reports whether a results row carries a sample. Rows without a
// sample number, and section rows with no coordinates and no pH, are skipped.
func Accepts(row RawRow) bool {
	if !row.Present(ColSampleNo) {
		return false
	}
	return row.Present(ColLatitude) || row.Present(ColLongitude) || row.Present(ColPH)
}

// NormalizeSample converts a results row into a Sample with a fresh id.
func NormalizeSample(row RawRow, batch BatchContext) (domain.Sample, bool) {
	return NormalizeSampleWithID(row, batch, uuid.NewString())
}

// NormalizeSampleWithID is NormalizeSample with a caller-chosen id. The
// same row and id always produce the same Sample.
func NormalizeSampleWithID(row RawRow, batch BatchContext, id string) (domain.Sample, bool) {
	if !Accepts(row) {
		return domain.Sample{}, false
	}
	batch = batch.Normalized()
	return domain.Sample{
		ID:                  id,
		Feedstock:           batch.Feedstock,
		SaturationThreshold: batch.Threshold,

		SampleNo:  row.String(ColSampleNo),
		RiverType: row.String(ColRiverType),
		Region:    row.String(ColRegion),
		State:     row.String(ColState),
		RiverName: row.String(ColRiverName),
		Source:    row.String(ColSource),

		Latitude:     row.Float(ColLatitude),
		Longitude:    row.Float(ColLongitude),
		PH:           row.Float(ColPH),
		Alkalinity:   row.Float(ColAlkalinity),
		TempC:        row.Float(ColTempC),
		Ca:           row.Float(ColCa),
		Mg:           row.Float(ColMg),
		Na:           row.Float(ColNa),
		K:            row.Float(ColK),
		Cl:           row.Float(ColCl),
		SO4:          row.Float(ColSO4),
		NO3:          row.Float(ColNO3),
		Salinity:     row.Float(ColSalinity),
		Ksp:          row.Float(ColKsp),
		HCO3:         row.Float(ColHCO3),
		CO3:          row.Float(ColCO3),
		CO2Aq:        row.Float(ColCO2Aq),
		DIC:          row.Float(ColDIC),
		PCO2:         row.Float(ColPCO2),
		FCO2:         row.Float(ColFCO2),
		ZPlus:        row.Float(ColZPlus),
		ZMinus:       row.Float(ColZMinus),
		NICB:         row.Float(ColNICB),
		OmegaCalcite: row.Float(ColOmegaCalcite),
		SICalcite:    row.Float(ColSICalcite),
		Discharge:    row.Float(ColDischarge),

		JSteps:       row.Int(ColJSteps),
		KSteps:       row.Int(ColKSteps),
		RockAddition: row.Float(ColRockAddition),
		OmegaFlag:    row.Int(ColOmegaFlag),
		SuccessFlag:  row.Int(ColSuccessFlag),

		OmegaFinal: row.Float(ColOmegaFinal),
		CaFinal:    row.Float(ColCaFinal),
		AlkFinal:   row.Float(ColAlkFinal),
		DICFinal:   row.Float(ColDICFinal),
		PHFinal:    row.Float(ColPHFinal),
		PCO2Final:  row.Float(ColPCO2Final),

		DischargeMS: row.Float(ColDischargeMS),
		CDRMolS:     row.Float(ColCDRMolS),
		CDRTYr:      row.Float(ColCDRTYr),
		CDRKtYr:     row.Float(ColCDRKtYr),
	}, true
}

// NormalizeSummary converts a summary sheet row. The sheet is a finished
// report, so unreadable cells read as 0 rather than null.
func NormalizeSummary(row RawRow, batch BatchContext) (domain.SummaryRecord, bool) {
	if !row.Present(SumColRegion) {
		return domain.SummaryRecord{}, false
	}
	batch = batch.Normalized()
	num := func(i int) float64 { return row.Float(i).OrZero() }
	count := func(i int) int64 {
		if v := row.Int(i); v.Valid {
			return v.Value
		}
		return 0
	}
	return domain.SummaryRecord{
		ID:                  uuid.NewString(),
		Feedstock:           batch.Feedstock,
		SaturationThreshold: batch.Threshold,
		Region:              row.String(SumColRegion),
		AddMean:             num(SumColAddMean),
		AddMedian:           num(SumColAddMedian),
		AddStd:              num(SumColAddStd),
		AddMin:              num(SumColAddMin),
		AddMax:              num(SumColAddMax),
		NSamples:            count(SumColNSamples),
		OmegaMean:           num(SumColOmegaMean),
		OmegaMedian:         num(SumColOmegaMedian),
		OmegaStd:            num(SumColOmegaStd),
		CDRMean:             num(SumColCDRMean),
		CDRTotal:            num(SumColCDRTotal),
		NWithQ:              count(SumColNWithQ),
		SuccessPct:          num(SumColSuccessPct),
	}, true
}
