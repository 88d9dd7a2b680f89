package domain

// Dashboard response shapes. Every numeric field is always present; nulls
// are resolved to 0 and missing lists to empty slices before they get here.

// OverviewKPI holds the top-line figures for one feedstock and threshold.
// CDR and chemistry averages cover samples with a positive CDR value only;
// TotalSamples and SuccessRate cover every matching sample.
type OverviewKPI struct {
	TotalCDRTYr     float64 `json:"total_cdr_t_yr"`
	AvgCDRTYr       float64 `json:"avg_cdr_t_yr"`
	TotalSamples    int     `json:"total_samples"`
	SamplesWithCDR  int     `json:"samples_with_cdr"`
	AvgPH           float64 `json:"avg_ph"`
	AvgAlkalinity   float64 `json:"avg_alkalinity"`
	AvgRockAddition float64 `json:"avg_rock_addition"`
	AvgOmegaFinal   float64 `json:"avg_omega_final"`
	SuccessRate     float64 `json:"success_rate"`
	Feedstock       string  `json:"feedstock"`
	Threshold       int     `json:"omega_threshold"`
}

// BasinStat is the per-region chemistry rollup.
type BasinStat struct {
	Basin           string  `json:"basin"`
	Count           int     `json:"count"`
	AvgTA           float64 `json:"avg_ta"`
	AvgCa           float64 `json:"avg_ca"`
	AvgMg           float64 `json:"avg_mg"`
	AvgNa           float64 `json:"avg_na"`
	AvgK            float64 `json:"avg_k"`
	AvgHCO3         float64 `json:"avg_hco3"`
	AvgDIC          float64 `json:"avg_dic"`
	AvgPCO2         float64 `json:"avg_pco2"`
	AvgCO2Aq        float64 `json:"avg_co2_aq"`
	AvgPH           float64 `json:"avg_ph"`
	AvgSICalcite    float64 `json:"avg_si_calcite"`
	AvgOmegaCalcite float64 `json:"avg_omega_calcite"`
	TotalCDR        float64 `json:"total_cdr"`
	AvgCDR          float64 `json:"avg_cdr"`
	AvgRockAdd      float64 `json:"avg_rock_add"`
	IonRatio        float64 `json:"ca_mg_ratio"`
}

// NICBQuality is the charge-balance quality breakdown of one region.
type NICBQuality struct {
	Basin       string  `json:"basin"`
	Count       int     `json:"count"`
	Within5     int     `json:"within_5"`
	Within10    int     `json:"within_10"`
	Beyond10    int     `json:"beyond_10"`
	PctWithin5  float64 `json:"pct_within_5"`
	PctWithin10 float64 `json:"pct_within_10"`
	PctBeyond10 float64 `json:"pct_beyond_10"`
}

// RegionCDR is the carbon removal rollup for a region.
type RegionCDR struct {
	Region     string  `json:"region"`
	TotalCDR   float64 `json:"total_cdr"`
	AvgCDR     float64 `json:"avg_cdr"`
	Count      int     `json:"count"`
	AvgPH      float64 `json:"avg_ph"`
	AvgRockAdd float64 `json:"avg_rock_add"`
}

// StateCDR is the carbon removal rollup for a state.
type StateCDR struct {
	State    string  `json:"state"`
	TotalCDR float64 `json:"total_cdr"`
	AvgCDR   float64 `json:"avg_cdr"`
	Count    int     `json:"count"`
}

// RiverCDR is the carbon removal rollup for a river, with the region and
// state of the first sample seen for it.
type RiverCDR struct {
	River    string  `json:"river"`
	TotalCDR float64 `json:"total_cdr"`
	AvgCDR   float64 `json:"avg_cdr"`
	Count    int     `json:"count"`
	Region   string  `json:"region"`
	State    string  `json:"state"`
}

// RegionComparison is one region's row inside a ComparisonResult.
type RegionComparison struct {
	Region      string  `json:"region"`
	TotalCDR    float64 `json:"total_cdr"`
	AvgCDR      float64 `json:"avg_cdr"`
	AvgRockAdd  float64 `json:"avg_rock_add"`
	Count       int     `json:"count"`
	SuccessRate float64 `json:"success_rate"`
}

// ComparisonResult summarizes a feedstock at one saturation threshold.
type ComparisonResult struct {
	Threshold    int                `json:"omega_threshold"`
	TotalCDR     float64            `json:"total_cdr"`
	AvgRockAdd   float64            `json:"avg_rock_add"`
	TotalSamples int                `json:"total_samples"`
	Regions      []RegionComparison `json:"regions"`
}

// Filters lists the selectable regions and states, sorted.
type Filters struct {
	Regions []string `json:"regions"`
	States  []string `json:"states"`
}

// SamplePage is one page of raw samples plus the unpaged total.
type SamplePage struct {
	Samples []Sample `json:"samples"`
	Total   int      `json:"total"`
}

// MapPoint is the projection of a located sample drawn on the map panel.
type MapPoint struct {
	SampleNo     string    `json:"sample_no"`
	Latitude     float64   `json:"latitude"`
	Longitude    float64   `json:"longitude"`
	RiverName    string    `json:"river_name"`
	State        string    `json:"state"`
	Region       string    `json:"region"`
	CDRTYr       NullFloat `json:"cdr_t_yr"`
	Alkalinity   NullFloat `json:"alkalinity"`
	PH           NullFloat `json:"ph"`
	RockAddition NullFloat `json:"rock_addition"`
	OmegaFinal   NullFloat `json:"omega_final"`
	Ca           NullFloat `json:"ca"`
	Mg           NullFloat `json:"mg"`
	HCO3         NullFloat `json:"hco3"`
	DIC          NullFloat `json:"dic"`
	SICalcite    NullFloat `json:"si_calcite"`
}

// AnalyticsPoint is the per-sample projection feeding the scatter charts.
type AnalyticsPoint struct {
	SampleNo     string    `json:"sample_no"`
	Region       string    `json:"region"`
	State        string    `json:"state"`
	RiverName    string    `json:"river_name"`
	Latitude     NullFloat `json:"latitude"`
	Longitude    NullFloat `json:"longitude"`
	PH           NullFloat `json:"ph"`
	Alkalinity   NullFloat `json:"alkalinity"`
	DIC          NullFloat `json:"dic"`
	PCO2         NullFloat `json:"pco2"`
	FCO2         NullFloat `json:"fco2"`
	TempC        NullFloat `json:"temp_c"`
	RockAddition NullFloat `json:"rock_addition"`
	CDRTYr       NullFloat `json:"cdr_t_yr"`
	OmegaCalcite NullFloat `json:"omega_calcite"`
	SICalcite    NullFloat `json:"si_calcite"`
	OmegaFinal   NullFloat `json:"omega_final"`
	Discharge    NullFloat `json:"discharge"`
	Ca           NullFloat `json:"ca"`
	Mg           NullFloat `json:"mg"`
	Na           NullFloat `json:"na"`
	K            NullFloat `json:"k"`
	HCO3         NullFloat `json:"hco3"`
	CO3          NullFloat `json:"co3"`
	CO2Aq        NullFloat `json:"co2_aq"`
	Salinity     NullFloat `json:"salinity"`
	ZPlus        NullFloat `json:"z_plus"`
	ZMinus       NullFloat `json:"z_minus"`
	NICB         NullFloat `json:"nicb"`
	Cl           NullFloat `json:"cl"`
	SO4          NullFloat `json:"so4"`
	NO3          NullFloat `json:"no3"`
}

// UploadResult reports what an ingested workbook contributed.
type UploadResult struct {
	Message        string `json:"message"`
	Feedstock      string `json:"feedstock"`
	Threshold      int    `json:"omega_threshold"`
	SamplesCount   int    `json:"samples_count"`
	SummariesCount int    `json:"summaries_count"`
	Skipped        int    `json:"skipped_rows"`
}
