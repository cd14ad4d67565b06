package model

import (
    "encoding/json"
    "testing"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
)

func TestBMI(t *testing.T) {
    tests := []struct {
        name           string
        height, weight float64
        want           float64
    }{
        {"normal", 1.75, 70, 22.86},
        {"heavier", 1.75, 90, 29.39},
        {"short and light", 1.5, 40, 17.78},
        {"zero height", 0, 70, 0},
        {"negative height", -1.8, 70, 0},
    }
    for _, tt := range tests {
        t.Run(tt.name, func(t *testing.T) {
            assert.Equal(t, tt.want, BMI(tt.height, tt.weight))
        })
    }
}

func TestVerdictFor(t *testing.T) {
    tests := []struct {
        bmi  float64
        want string
    }{
        {10, VerdictUnderweight},
        {18.49, VerdictUnderweight},
        {18.5, VerdictNormalWeight},
        {24.89, VerdictNormalWeight},
        // 24.9 <= bmi < 25 is not covered by any band and lands on Obesity.
        {24.9, VerdictObesity},
        {24.99, VerdictObesity},
        {25, VerdictOverweight},
        {29.39, VerdictOverweight},
        {29.89, VerdictOverweight},
        {29.9, VerdictObesity},
        {40, VerdictObesity},
    }
    for _, tt := range tests {
        assert.Equal(t, tt.want, VerdictFor(tt.bmi), "bmi=%v", tt.bmi)
    }
}

func TestPatientRecordDerivesMetrics(t *testing.T) {
    p := Patient{ID: "P001", Name: "Ana", City: "Pune", Age: 30, Gender: GenderFemale, Height: 1.75, Weight: 70}
    rec := p.Record()

    assert.Equal(t, 22.86, rec.BMI)
    assert.Equal(t, VerdictNormalWeight, rec.Verdict)

    out, err := json.Marshal(rec)
    require.NoError(t, err)
    assert.JSONEq(t, `{"name":"Ana","city":"Pune","age":30,"gender":"female","height":1.75,"weight":70,"bmi":22.86,"verdict":"Normal weight"}`, string(out))
    assert.NotContains(t, string(out), "P001")
}

func mustFields(t *testing.T, s string) Fields {
    t.Helper()
    f, err := DecodeFields([]byte(s))
    require.NoError(t, err)
    return f
}

func TestParsePatient(t *testing.T) {
    t.Run("valid", func(t *testing.T) {
        p, err := ParsePatient(mustFields(t, `{"id":"P001","name":"Ana","city":"Pune","age":30,"gender":"female","height":1.75,"weight":70}`))
        require.NoError(t, err)
        assert.Equal(t, Patient{ID: "P001", Name: "Ana", City: "Pune", Age: 30, Gender: GenderFemale, Height: 1.75, Weight: 70}, p)
    })

    t.Run("lax numbers", func(t *testing.T) {
        p, err := ParsePatient(mustFields(t, `{"id":"P002","name":"Raj","city":"Goa","age":"41","gender":"male","height":"1.8","weight":80.0}`))
        require.NoError(t, err)
        assert.Equal(t, 41, p.Age)
        assert.Equal(t, 1.8, p.Height)
        assert.Equal(t, 80.0, p.Weight)
    })

    t.Run("reports every offending field", func(t *testing.T) {
        _, err := ParsePatient(mustFields(t, `{"id":"P003","name":"","age":120,"gender":"robot","height":0,"weight":-2}`))
        var verr *ValidationError
        require.ErrorAs(t, err, &verr)

        got := map[string]string{}
        for _, f := range verr.Fields {
            got[f.Field] = f.Type
        }
        assert.Equal(t, map[string]string{
            "name":   "string_too_short",
            "city":   "missing",
            "age":    "less_than",
            "gender": "literal_error",
            "height": "greater_than",
            "weight": "greater_than",
        }, got)
    })

    t.Run("type errors", func(t *testing.T) {
        _, err := ParsePatient(mustFields(t, `{"id":1,"name":"A","city":"B","age":30.5,"gender":"male","height":true,"weight":"heavy"}`))
        var verr *ValidationError
        require.ErrorAs(t, err, &verr)
        require.Len(t, verr.Fields, 4)
        assert.Equal(t, "string_type", verr.Fields[0].Type)
        assert.Equal(t, "int_from_float", verr.Fields[1].Type)
        assert.Equal(t, "float_type", verr.Fields[2].Type)
        assert.Equal(t, "float_parsing", verr.Fields[3].Type)
        assert.Equal(t, json.RawMessage(`"heavy"`), verr.Fields[3].Input)
    })

    t.Run("age bounds are exclusive", func(t *testing.T) {
        for _, age := range []string{"0", "120", "-1"} {
            _, err := ParsePatient(mustFields(t, `{"id":"x","name":"A","city":"B","age":`+age+`,"gender":"male","height":1.7,"weight":60}`))
            assert.Error(t, err, "age=%s", age)
        }
        for _, age := range []string{"1", "119"} {
            _, err := ParsePatient(mustFields(t, `{"id":"x","name":"A","city":"B","age":`+age+`,"gender":"male","height":1.7,"weight":60}`))
            assert.NoError(t, err, "age=%s", age)
        }
    })
}

func TestParsePatientConstraintMessages(t *testing.T) {
    _, err := ParsePatient(mustFields(t, `{"id":"P009","name":"","city":"X","age":0,"gender":"robot","height":1.7,"weight":0}`))
    var verr *ValidationError
    require.ErrorAs(t, err, &verr)
    assert.Equal(t, []FieldError{
        {Field: "name", Type: "string_too_short", Msg: "String should have at least 1 character", Input: json.RawMessage(`""`)},
        {Field: "age", Type: "greater_than", Msg: "Input should be greater than 0", Input: json.RawMessage(`0`)},
        {Field: "gender", Type: "literal_error", Msg: "Input should be 'male', 'female' or 'others'", Input: json.RawMessage(`"robot"`)},
        {Field: "weight", Type: "greater_than", Msg: "Input should be greater than 0", Input: json.RawMessage(`0`)},
    }, verr.Fields)
}

func TestParsePatientHugeAgeIsOutOfRange(t *testing.T) {
    for _, age := range []string{"1e10", "99999999999999999999", "2147483648"} {
        _, err := ParsePatient(mustFields(t, `{"id":"x","name":"A","city":"B","age":`+age+`,"gender":"male","height":1.7,"weight":60}`))
        var verr *ValidationError
        require.ErrorAs(t, err, &verr, "age=%s", age)
        require.Len(t, verr.Fields, 1)
        assert.Equal(t, "less_than", verr.Fields[0].Type, "age=%s", age)
    }

    _, err := ParsePatient(mustFields(t, `{"id":"x","name":"A","city":"B","age":-1e10,"gender":"male","height":1.7,"weight":60}`))
    var verr *ValidationError
    require.ErrorAs(t, err, &verr)
    assert.Equal(t, "greater_than", verr.Fields[0].Type)
}

func TestParseUpdateChecksOnlyPresentFields(t *testing.T) {
    // name, gender and the numbers are absent, so their zero values are not errors.
    out, err := ParseUpdate(mustFields(t, `{"city":"Rome"}`))
    require.NoError(t, err)
    assert.Equal(t, Fields{"city": json.RawMessage(`"Rome"`)}, out)

    _, err = ParseUpdate(mustFields(t, `{"name":"","height":"tall"}`))
    var verr *ValidationError
    require.ErrorAs(t, err, &verr)
    require.Len(t, verr.Fields, 2)
    assert.Equal(t, "string_too_short", verr.Fields[0].Type)
    assert.Equal(t, "float_parsing", verr.Fields[1].Type)
}

func TestParseUpdate(t *testing.T) {
    t.Run("keeps only updatable fields", func(t *testing.T) {
        out, err := ParseUpdate(mustFields(t, `{"weight":90,"id":"other","bmi":1}`))
        require.NoError(t, err)
        assert.Equal(t, Fields{"weight": json.RawMessage(`90`)}, out)
    })

    t.Run("validates present fields", func(t *testing.T) {
        _, err := ParseUpdate(mustFields(t, `{"age":0,"gender":"x"}`))
        var verr *ValidationError
        require.ErrorAs(t, err, &verr)
        require.Len(t, verr.Fields, 2)
        assert.Equal(t, "age", verr.Fields[0].Field)
        assert.Equal(t, "gender", verr.Fields[1].Field)
    })

    t.Run("null passes through", func(t *testing.T) {
        out, err := ParseUpdate(mustFields(t, `{"city":null}`))
        require.NoError(t, err)
        assert.Equal(t, json.RawMessage(`null`), out["city"])
    })

    t.Run("empty body", func(t *testing.T) {
        out, err := ParseUpdate(Fields{})
        require.NoError(t, err)
        assert.Empty(t, out)
    })
}

func TestDecodeFieldsRejectsNonObjects(t *testing.T) {
    for _, in := range []string{`null`, `[]`, `"x"`, `{`} {
        _, err := DecodeFields([]byte(in))
        assert.Error(t, err, in)
    }
}
