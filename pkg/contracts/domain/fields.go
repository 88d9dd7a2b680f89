package domain

// Field names a Sample attribute using its document key.
type Field string

// Categorical fields.
const (
	FieldFeedstock Field = "feedstock"
	FieldThreshold Field = "omega_threshold"
	FieldSampleNo  Field = "sample_no"
	FieldRiverType Field = "river_type"
	FieldRegion    Field = "region"
	FieldState     Field = "state"
	FieldRiverName Field = "river_name"
	FieldSource    Field = "source"
)

// Numeric fields used by the dashboard panels.
const (
	FieldLatitude     Field = "latitude"
	FieldLongitude    Field = "longitude"
	FieldPH           Field = "ph"
	FieldAlkalinity   Field = "alkalinity"
	FieldCa           Field = "ca"
	FieldMg           Field = "mg"
	FieldNa           Field = "na"
	FieldK            Field = "k"
	FieldHCO3         Field = "hco3"
	FieldDIC          Field = "dic"
	FieldPCO2         Field = "pco2"
	FieldCO2Aq        Field = "co2_aq"
	FieldNICB         Field = "nicb"
	FieldOmegaCalcite Field = "omega_calcite"
	FieldSICalcite    Field = "si_calcite"
	FieldRockAddition Field = "rock_addition"
	FieldOmegaFinal   Field = "omega_final"
	FieldCDRTYr       Field = "cdr_t_yr"
	FieldSuccessFlag  Field = "success_flag"
)

var floatFields = map[Field]func(*Sample) NullFloat{
	"latitude":      func(s *Sample) NullFloat { return s.Latitude },
	"longitude":     func(s *Sample) NullFloat { return s.Longitude },
	"ph":            func(s *Sample) NullFloat { return s.PH },
	"alkalinity":    func(s *Sample) NullFloat { return s.Alkalinity },
	"temp_c":        func(s *Sample) NullFloat { return s.TempC },
	"ca":            func(s *Sample) NullFloat { return s.Ca },
	"mg":            func(s *Sample) NullFloat { return s.Mg },
	"na":            func(s *Sample) NullFloat { return s.Na },
	"k":             func(s *Sample) NullFloat { return s.K },
	"cl":            func(s *Sample) NullFloat { return s.Cl },
	"so4":           func(s *Sample) NullFloat { return s.SO4 },
	"no3":           func(s *Sample) NullFloat { return s.NO3 },
	"salinity":      func(s *Sample) NullFloat { return s.Salinity },
	"ksp":           func(s *Sample) NullFloat { return s.Ksp },
	"hco3":          func(s *Sample) NullFloat { return s.HCO3 },
	"co3":           func(s *Sample) NullFloat { return s.CO3 },
	"co2_aq":        func(s *Sample) NullFloat { return s.CO2Aq },
	"dic":           func(s *Sample) NullFloat { return s.DIC },
	"pco2":          func(s *Sample) NullFloat { return s.PCO2 },
	"fco2":          func(s *Sample) NullFloat { return s.FCO2 },
	"z_plus":        func(s *Sample) NullFloat { return s.ZPlus },
	"z_minus":       func(s *Sample) NullFloat { return s.ZMinus },
	"nicb":          func(s *Sample) NullFloat { return s.NICB },
	"omega_calcite": func(s *Sample) NullFloat { return s.OmegaCalcite },
	"si_calcite":    func(s *Sample) NullFloat { return s.SICalcite },
	"discharge":     func(s *Sample) NullFloat { return s.Discharge },
	"rock_addition": func(s *Sample) NullFloat { return s.RockAddition },
	"omega_final":   func(s *Sample) NullFloat { return s.OmegaFinal },
	"ca_final":      func(s *Sample) NullFloat { return s.CaFinal },
	"alk_final":     func(s *Sample) NullFloat { return s.AlkFinal },
	"dic_final":     func(s *Sample) NullFloat { return s.DICFinal },
	"ph_final":      func(s *Sample) NullFloat { return s.PHFinal },
	"pco2_final":    func(s *Sample) NullFloat { return s.PCO2Final },
	"discharge_ms":  func(s *Sample) NullFloat { return s.DischargeMS },
	"cdr_mol_s":     func(s *Sample) NullFloat { return s.CDRMolS },
	"cdr_t_yr":      func(s *Sample) NullFloat { return s.CDRTYr },
	"cdr_kt_yr":     func(s *Sample) NullFloat { return s.CDRKtYr },
}

var intFields = map[Field]func(*Sample) NullInt{
	"j_steps":      func(s *Sample) NullInt { return s.JSteps },
	"k_steps":      func(s *Sample) NullInt { return s.KSteps },
	"omega_flag":   func(s *Sample) NullInt { return s.OmegaFlag },
	"success_flag": func(s *Sample) NullInt { return s.SuccessFlag },
}

var stringFields = map[Field]func(*Sample) string{
	"feedstock":  func(s *Sample) string { return s.Feedstock },
	"sample_no":  func(s *Sample) string { return s.SampleNo },
	"river_type": func(s *Sample) string { return s.RiverType },
	"region":     func(s *Sample) string { return s.Region },
	"state":      func(s *Sample) string { return s.State },
	"river_name": func(s *Sample) string { return s.RiverName },
	"source":     func(s *Sample) string { return s.Source },
}

// Number returns the numeric value of field. Integer flags are widened to
// float. ok is false when the sample has no numeric field by that name.
func (s *Sample) Number(field Field) (NullFloat, bool) {
	if get, found := floatFields[field]; found {
		return get(s), true
	}
	if get, found := intFields[field]; found {
		v := get(s)
		if !v.Valid {
			return NullFloat{}, true
		}
		return Float(float64(v.Value)), true
	}
	return NullFloat{}, false
}

// Text returns the value of a categorical field.
func (s *Sample) Text(field Field) (string, bool) {
	get, found := stringFields[field]
	if !found {
		return "", false
	}
	return get(s), true
}

// IsNumeric reports whether field names a numeric sample attribute.
func IsNumeric(field Field) bool {
	_, f := floatFields[field]
	_, i := intFields[field]
	return f || i
}

// IsCategorical reports whether field names a string sample attribute.
func IsCategorical(field Field) bool {
	_, ok := stringFields[field]
	return ok
}
