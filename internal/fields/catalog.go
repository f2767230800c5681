// Package fields parses free report text into canonical patient fields.
//
// A static label catalog maps human-readable labels ("BP", "Heart Rate") to
// canonical fields. The parser scans the text for label occurrences in
// document order and reads each value from the window between one label and
// the next. The first value found for a field is authoritative.
package fields

// Field is a canonical field name. Schema fields double as the column names
// of the model row.
type Field string

const (
	PatientID        Field = "PatientID"
	Age              Field = "Age"
	Gender           Field = "Gender"
	BloodGroup       Field = "BloodGroup"
	SystolicBP       Field = "SystolicBP"
	DiastolicBP      Field = "DiastolicBP"
	HeartRate        Field = "HeartRate"
	RespiratoryRate  Field = "RespiratoryRate"
	BodyTemperature  Field = "BodyTemperature"
	SpO2             Field = "SpO2"
	FastingSugar     Field = "FastingSugar"
	RandomSugar      Field = "RandomSugar"
	Glucose          Field = "Glucose"
	Hemoglobin       Field = "Hemoglobin"
	WBCCount         Field = "WBC_Count"
	RBCCount         Field = "RBC_Count"
	PlateletCount    Field = "Platelet_Count"
	BMI              Field = "BMI"
	CholesterolTotal Field = "CholesterolTotal"
	LDL              Field = "LDL"
	HDL              Field = "HDL"
	Triglycerides    Field = "Triglycerides"
	Urea             Field = "Urea"
	Creatinine       Field = "Creatinine"

	// Screening results. Parsed and range-checked, never part of the model row.
	UrineSugar Field = "UrineSugar"
	HIV        Field = "HIV"
	HBsAg      Field = "HBsAg"
	VDRL       Field = "VDRL"
)

// Schema is the model row column order. It is a contract with the trained
// classifier and changes only together with retraining.
var Schema = []Field{
	PatientID, Age, Gender, BloodGroup, SystolicBP, DiastolicBP,
	HeartRate, RespiratoryRate, BodyTemperature, SpO2,
	FastingSugar, RandomSugar, Glucose, Hemoglobin, WBCCount,
	RBCCount, PlateletCount, BMI, CholesterolTotal, LDL, HDL,
	Triglycerides, Urea, Creatinine,
}

var categorical = map[Field]bool{
	PatientID:  true,
	Gender:     true,
	BloodGroup: true,
}

// IsCategorical reports whether f must never be coerced to a number.
func IsCategorical(f Field) bool { return categorical[f] }

// DefaultCatalog is the label registry used by the report pipeline.
func DefaultCatalog() *Builder {
	return NewBuilder().
		Token(PatientID, "PatientID", "Patient ID", "ID").
		Number(Age, "Age", "Patient Age").
		Token(Gender, "Gender", "Sex").
		BloodGroupLabels(BloodGroup, "Blood Group", "BloodGroup", "Bld Group").
		Pair(SystolicBP, SystolicBP, DiastolicBP, SystolicBP, "Blood Pressure", "BP", "Systolic BP", "SystolicBP").
		Pair(DiastolicBP, SystolicBP, DiastolicBP, DiastolicBP, "Diastolic BP", "DiastolicBP").
		Number(HeartRate, "Heart Rate", "HeartRate", "Pulse").
		Number(RespiratoryRate, "Respiratory Rate", "RespiratoryRate", "RR").
		Number(BodyTemperature, "Body Temperature", "Temperature", "Temp").
		Number(SpO2, "SpO2", "Oxygen Saturation", "O2 Saturation").
		Number(FastingSugar, "Fasting Sugar", "FBS", "Fasting Glucose").
		Number(RandomSugar, "Random Sugar", "RBS", "Random Glucose").
		Number(Glucose, "Glucose").
		Pair(Glucose, FastingSugar, RandomSugar, Glucose, "Blood Glucose (Fasting / Random)", "Blood Glucose", "Blood Sugar").
		Number(Hemoglobin, "Hemoglobin", "Haemoglobin", "Hb").
		Number(WBCCount, "WBC Count", "WBC").
		Number(RBCCount, "RBC Count", "RBC").
		Number(PlateletCount, "Platelet Count", "Platelets").
		Number(BMI, "BMI", "Body Mass Index").
		Number(CholesterolTotal, "Total Cholesterol", "Cholesterol Total", "Cholesterol").
		Number(LDL, "LDL").
		Number(HDL, "HDL").
		Number(Triglycerides, "Triglycerides", "TG").
		Number(Urea, "Urea", "Blood Urea").
		Number(Creatinine, "Creatinine", "Serum Creatinine").
		Phrase(UrineSugar, "Urine Sugar").
		Phrase(HIV, "HIV").
		Phrase(HBsAg, "HBsAg").
		Phrase(VDRL, "VDRL")
}
