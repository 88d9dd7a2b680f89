package analytics

import "erwpulse/pkg/contracts/domain"

// MaxProjectionRows bounds the per-sample panels. Rows past it are dropped
// in insertion order.
const MaxProjectionRows = 2000

// MapPoints projects located samples onto the map panel. Samples missing
// either coordinate are skipped and do not count toward MaxProjectionRows.
func MapPoints(samples []domain.Sample) []domain.MapPoint {
	out := make([]domain.MapPoint, 0, min(len(samples), MaxProjectionRows))
	for i := range samples {
		if len(out) == MaxProjectionRows {
			break
		}
		s := &samples[i]
		if !s.Latitude.Valid || !s.Longitude.Valid {
			continue
		}
		out = append(out, domain.MapPoint{
			SampleNo:     s.SampleNo,
			Latitude:     s.Latitude.Value,
			Longitude:    s.Longitude.Value,
			RiverName:    s.RiverName,
			State:        s.State,
			Region:       s.Region,
			CDRTYr:       s.CDRTYr,
			Alkalinity:   s.Alkalinity,
			PH:           s.PH,
			RockAddition: s.RockAddition,
			OmegaFinal:   s.OmegaFinal,
			Ca:           s.Ca,
			Mg:           s.Mg,
			HCO3:         s.HCO3,
			DIC:          s.DIC,
			SICalcite:    s.SICalcite,
		})
	}
	return out
}

// AnalyticsPoints projects the first MaxProjectionRows samples onto the
// chart fields.
func AnalyticsPoints(samples []domain.Sample) []domain.AnalyticsPoint {
	if len(samples) > MaxProjectionRows {
		samples = samples[:MaxProjectionRows]
	}
	out := make([]domain.AnalyticsPoint, 0, len(samples))
	for i := range samples {
		s := &samples[i]
		out = append(out, domain.AnalyticsPoint{
			SampleNo:     s.SampleNo,
			Region:       s.Region,
			State:        s.State,
			RiverName:    s.RiverName,
			Latitude:     s.Latitude,
			Longitude:    s.Longitude,
			PH:           s.PH,
			Alkalinity:   s.Alkalinity,
			DIC:          s.DIC,
			PCO2:         s.PCO2,
			FCO2:         s.FCO2,
			TempC:        s.TempC,
			RockAddition: s.RockAddition,
			CDRTYr:       s.CDRTYr,
			OmegaCalcite: s.OmegaCalcite,
			SICalcite:    s.SICalcite,
			OmegaFinal:   s.OmegaFinal,
			Discharge:    s.Discharge,
			Ca:           s.Ca,
			Mg:           s.Mg,
			Na:           s.Na,
			K:            s.K,
			HCO3:         s.HCO3,
			CO3:          s.CO3,
			CO2Aq:        s.CO2Aq,
			Salinity:     s.Salinity,
			ZPlus:        s.ZPlus,
			ZMinus:       s.ZMinus,
			NICB:         s.NICB,
			Cl:           s.Cl,
			SO4:          s.SO4,
			NO3:          s.NO3,
		})
	}
	return out
}
