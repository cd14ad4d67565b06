package model

import "encoding/json"

// Gender is the closed set of values accepted for a patient's gender.
type Gender string

const (
    GenderMale   Gender = "male"
    GenderFemale Gender = "female"
    GenderOthers Gender = "others"
)

// Valid reports whether g is one of the accepted genders.
func (g Gender) Valid() bool {
    switch g {
    case GenderMale, GenderFemale, GenderOthers:
        return true
    }
    return false
}

// Patient is a fully validated patient.  It only exists after ParsePatient
// has accepted every field, so derived metrics computed from it are always
// consistent with its height and weight.
//
// Fields:
//  ID     – store key; never part of the stored record body.
//  Name   – non-empty display name.
//  City   – free-form city name.
//  Age    – years, 0 < age < 120.
//  Gender – male, female or others.
//  Height – metres, > 0.
//  Weight – kilograms, > 0.
type Patient struct {
    ID     string
    Name   string
    City   string
    Age    int
    Gender Gender
    Height float64 // metres
    Weight float64 // kilograms
}

// BMI returns the patient's body-mass index rounded to two decimals.
func (p Patient) BMI() float64 { return BMI(p.Height, p.Weight) }

// Verdict returns the qualitative label for the patient's BMI.
func (p Patient) Verdict() string { return VerdictFor(p.BMI()) }

// Record materialises the stored/returned representation of p.  bmi and
// verdict are computed here and nowhere else.
func (p Patient) Record() Record {
    bmi := p.BMI()
    return Record{
        Name:    p.Name,
        City:    p.City,
        Age:     p.Age,
        Gender:  p.Gender,
        Height:  p.Height,
        Weight:  p.Weight,
        BMI:     bmi,
        Verdict: VerdictFor(bmi),
    }
}

// Record is the JSON body kept under a patient's id in the store and echoed
// back by the API.  Field order matches the backing file layout.
type Record struct {
    Name    string  `json:"name"`
    City    string  `json:"city"`
    Age     int     `json:"age"`
    Gender  Gender  `json:"gender"`
    Height  float64 `json:"height"`
    Weight  float64 `json:"weight"`
    BMI     float64 `json:"bmi"`
    Verdict string  `json:"verdict"`
}

// Fields is an undecoded JSON object keyed by field name.  Request bodies and
// stored records are handled in this form until they pass validation.
type Fields map[string]json.RawMessage

// UpdatableFields lists the fields a partial update may carry, in the order
// validation errors are reported.
var UpdatableFields = []string{"name", "city", "age", "gender", "height", "weight"}

// DecodeFields parses a JSON object into Fields.  Anything other than an
// object (including null) is rejected.
func DecodeFields(data []byte) (Fields, error) {
    var f Fields
    if err := json.Unmarshal(data, &f); err != nil {
        return nil, err
    }
    if f == nil {
        return nil, errNotObject
    }
    return f, nil
}

// Clone returns a shallow copy of f.
func (f Fields) Clone() Fields {
    out := make(Fields, len(f))
    for k, v := range f {
        out[k] = v
    }
    return out
}
