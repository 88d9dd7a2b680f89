package domain

import "time"

// Sample is one geochemical measurement from an ERW run.
// Samples are immutable once ingested; reloading a workbook appends new ones.
type Sample struct {
	ID                  string `json:"id"`
	Feedstock           string `json:"feedstock"`
	SaturationThreshold int    `json:"omega_threshold"`

	SampleNo  string `json:"sample_no"`
	RiverType string `json:"river_type"`
	Region    string `json:"region"`
	State     string `json:"state"`
	RiverName string `json:"river_name"`
	Source    string `json:"source"`

	Latitude  NullFloat `json:"latitude"`
	Longitude NullFloat `json:"longitude"`

	PH         NullFloat `json:"ph"`
	Alkalinity NullFloat `json:"alkalinity"`
	TempC      NullFloat `json:"temp_c"`
	Ca         NullFloat `json:"ca"`
	Mg         NullFloat `json:"mg"`
	Na         NullFloat `json:"na"`
	K          NullFloat `json:"k"`
	Cl         NullFloat `json:"cl"`
	SO4        NullFloat `json:"so4"`
	NO3        NullFloat `json:"no3"`
	Salinity   NullFloat `json:"salinity"`
	Ksp        NullFloat `json:"ksp"`

	HCO3  NullFloat `json:"hco3"`
	CO3   NullFloat `json:"co3"`
	CO2Aq NullFloat `json:"co2_aq"`
	DIC   NullFloat `json:"dic"`
	PCO2  NullFloat `json:"pco2"`
	FCO2  NullFloat `json:"fco2"`

	ZPlus        NullFloat `json:"z_plus"`
	ZMinus       NullFloat `json:"z_minus"`
	NICB         NullFloat `json:"nicb"`
	OmegaCalcite NullFloat `json:"omega_calcite"`
	SICalcite    NullFloat `json:"si_calcite"`
	Discharge    NullFloat `json:"discharge"`

	JSteps       NullInt   `json:"j_steps"`
	KSteps       NullInt   `json:"k_steps"`
	RockAddition NullFloat `json:"rock_addition"`
	OmegaFlag    NullInt   `json:"omega_flag"`
	SuccessFlag  NullInt   `json:"success_flag"`

	OmegaFinal NullFloat `json:"omega_final"`
	CaFinal    NullFloat `json:"ca_final"`
	AlkFinal   NullFloat `json:"alk_final"`
	DICFinal   NullFloat `json:"dic_final"`
	PHFinal    NullFloat `json:"ph_final"`
	PCO2Final  NullFloat `json:"pco2_final"`

	DischargeMS NullFloat `json:"discharge_ms"`
	CDRMolS     NullFloat `json:"cdr_mol_s"`
	CDRTYr      NullFloat `json:"cdr_t_yr"`
	CDRKtYr     NullFloat `json:"cdr_kt_yr"`
}

// SummaryRecord is a precomputed per-region snapshot read from the
// "Summary Statistics" sheet of a results workbook.
type SummaryRecord struct {
	ID                  string  `json:"id"`
	Feedstock           string  `json:"feedstock"`
	SaturationThreshold int     `json:"omega_threshold"`
	Region              string  `json:"region"`
	AddMean             float64 `json:"add_mean"`
	AddMedian           float64 `json:"add_median"`
	AddStd              float64 `json:"add_std"`
	AddMin              float64 `json:"add_min"`
	AddMax              float64 `json:"add_max"`
	NSamples            int64   `json:"n_samples"`
	OmegaMean           float64 `json:"omega_mean"`
	OmegaMedian         float64 `json:"omega_median"`
	OmegaStd            float64 `json:"omega_std"`
	CDRMean             float64 `json:"cdr_mean"`
	CDRTotal            float64 `json:"cdr_total"`
	NWithQ              int64   `json:"n_with_q"`
	SuccessPct          float64 `json:"success_pct"`
}

// Feedstock is the registry entry for a mineral feedstock that has data loaded.
type Feedstock struct {
	ID                   string    `json:"id"`
	Name                 string    `json:"name"`
	SaturationThresholds []int     `json:"omega_thresholds"`
	SampleCount          int       `json:"sample_count"`
	CreatedAt            time.Time `json:"created_at"`
}

// Register records a loaded batch. Thresholds are append-only and
// deduplicated; the sample count never decreases.
func (f *Feedstock) Register(threshold, samples int) {
	if !f.HasThreshold(threshold) {
		f.SaturationThresholds = append(f.SaturationThresholds, threshold)
	}
	if samples > 0 {
		f.SampleCount += samples
	}
}

// HasThreshold reports whether data for threshold has been loaded.
func (f *Feedstock) HasThreshold(threshold int) bool {
	for _, t := range f.SaturationThresholds {
		if t == threshold {
			return true
		}
	}
	return false
}
