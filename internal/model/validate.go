package model

import (
    "encoding/json"
    "errors"
    "math"
    "reflect"
    "slices"
    "strconv"
    "strings"

    "github.com/go-playground/validator/v10"
)

var errNotObject = errors.New("expected a JSON object")

// FieldError describes one rejected field.  Type and Msg use the same
// vocabulary the API has always returned (missing, greater_than, ...).
type FieldError struct {
    Field string          // field name, e.g. "age"
    Type  string          // machine-readable error kind
    Msg   string          // human-readable message
    Input json.RawMessage // offending value; empty when the field is missing
}

// ValidationError lists every field that failed validation.  Handlers
// translate it into a 422 response.
type ValidationError struct {
    Fields []FieldError
}

func (e *ValidationError) Error() string {
    parts := make([]string, 0, len(e.Fields))
    for _, f := range e.Fields {
        parts = append(parts, f.Field+": "+f.Msg)
    }
    return "validation failed: " + strings.Join(parts, "; ")
}

// candidate holds the loosely decoded body before its constraints are
// checked.  Field order is the order errors are reported in.
type candidate struct {
    ID     string  `json:"id"`
    Name   string  `json:"name" validate:"min=1"`
    City   string  `json:"city"`
    Age    int     `json:"age" validate:"gt=0,lt=120"`
    Gender string  `json:"gender" validate:"oneof=male female others"`
    Height float64 `json:"height" validate:"gt=0"`
    Weight float64 `json:"weight" validate:"gt=0"`
}

var fieldOrder = []string{"id", "name", "city", "age", "gender", "height", "weight"}

var structValidator = newStructValidator()

func newStructValidator() *validator.Validate {
    v := validator.New(validator.WithRequiredStructEnabled())
    // Report fields by their JSON names.
    v.RegisterTagNameFunc(func(f reflect.StructField) string {
        name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
        return name
    })
    return v
}

// ParsePatient validates a complete candidate record, including its id, and
// returns the typed Patient.  All offending fields are reported together.
func ParsePatient(fields Fields) (Patient, error) {
    d := &decoder{fields: fields, decoded: map[string]bool{}}
    c := d.candidate()
    if err := d.check(c); err != nil {
        return Patient{}, err
    }
    return Patient{
        ID:     c.ID,
        Name:   c.Name,
        City:   c.City,
        Age:    c.Age,
        Gender: Gender(c.Gender),
        Height: c.Height,
        Weight: c.Weight,
    }, nil
}

// ParseUpdate validates the fields of a partial update independently and
// returns the subset that may be merged onto a stored record.  Unknown keys
// (including id) are dropped.  An explicit null is accepted here and left for
// ParsePatient to reject once merged.
func ParseUpdate(fields Fields) (Fields, error) {
    updatable := make(Fields, len(UpdatableFields))
    for _, name := range UpdatableFields {
        if raw, ok := fields[name]; ok {
            updatable[name] = raw
        }
    }
    d := &decoder{fields: updatable, partial: true, decoded: map[string]bool{}}
    if err := d.check(d.candidate()); err != nil {
        return nil, err
    }
    return updatable, nil
}

// decoder turns raw fields into a candidate, recording type errors as it
// goes.  Constraint checks are left to the struct validator and only apply
// to fields that decoded cleanly.
type decoder struct {
    fields  Fields
    partial bool            // skip missing fields and nulls
    decoded map[string]bool // fields whose constraints should be checked
    errs    []FieldError
}

func (d *decoder) candidate() candidate {
    c := candidate{
        Name:   d.str("name"),
        City:   d.str("city"),
        Age:    d.integer("age"),
        Gender: d.literal("gender"),
        Height: d.number("height"),
        Weight: d.number("weight"),
    }
    if !d.partial {
        c.ID = d.str("id")
    }
    return c
}

// check runs the struct validator over c and returns every error collected
// so far, ordered by field.
func (d *decoder) check(c candidate) error {
    if err := structValidator.Struct(c); err != nil {
        var verrs validator.ValidationErrors
        if !errors.As(err, &verrs) {
            return err
        }
        for _, fe := range verrs {
            if d.decoded[fe.Field()] {
                d.errs = append(d.errs, constraintError(fe, d.fields[fe.Field()]))
            }
        }
    }
    if len(d.errs) == 0 {
        return nil
    }
    slices.SortStableFunc(d.errs, func(a, b FieldError) int {
        return slices.Index(fieldOrder, a.Field) - slices.Index(fieldOrder, b.Field)
    })
    return &ValidationError{Fields: d.errs}
}

// constraintError maps a validator tag onto the API's error vocabulary.
func constraintError(fe validator.FieldError, input json.RawMessage) FieldError {
    out := FieldError{Field: fe.Field(), Type: fe.Tag(), Input: input}
    switch fe.Tag() {
    case "gt":
        out.Type, out.Msg = "greater_than", "Input should be greater than "+fe.Param()
    case "lt":
        out.Type, out.Msg = "less_than", "Input should be less than "+fe.Param()
    case "min":
        out.Type, out.Msg = "string_too_short", "String should have at least "+fe.Param()+" character"
    case "oneof":
        out.Type, out.Msg = "literal_error", "Input should be 'male', 'female' or 'others'"
    default:
        out.Msg = "Input failed the " + fe.Tag() + " check"
    }
    return out
}

func (d *decoder) fail(field, typ, msg string, input json.RawMessage) {
    d.errs = append(d.errs, FieldError{Field: field, Type: typ, Msg: msg, Input: input})
}

// lookup returns the raw value and whether the caller should go on to decode
// it.  Missing fields are reported unless the decoder is partial.
func (d *decoder) lookup(field string) (json.RawMessage, bool) {
    raw, ok := d.fields[field]
    if !ok {
        if !d.partial {
            d.fail(field, "missing", "Field required", nil)
        }
        return nil, false
    }
    if d.partial && isNull(raw) {
        return nil, false
    }
    return raw, true
}

func (d *decoder) str(field string) string {
    raw, ok := d.lookup(field)
    if !ok {
        return ""
    }
    s, ok := decodeString(raw)
    if !ok {
        d.fail(field, "string_type", "Input should be a valid string", raw)
        return ""
    }
    d.decoded[field] = true
    return s
}

func (d *decoder) literal(field string) string {
    raw, ok := d.lookup(field)
    if !ok {
        return ""
    }
    s, ok := decodeString(raw)
    if !ok {
        d.fail(field, "literal_error", "Input should be 'male', 'female' or 'others'", raw)
        return ""
    }
    d.decoded[field] = true
    return s
}

func (d *decoder) integer(field string) int {
    raw, ok := d.lookup(field)
    if !ok {
        return 0
    }
    n, typ, msg := decodeInt(raw)
    if typ != "" {
        d.fail(field, typ, msg, raw)
        return 0
    }
    d.decoded[field] = true
    return n
}

func (d *decoder) number(field string) float64 {
    raw, ok := d.lookup(field)
    if !ok {
        return 0
    }
    f, typ, msg := decodeFloat(raw)
    if typ != "" {
        d.fail(field, typ, msg, raw)
        return 0
    }
    d.decoded[field] = true
    return f
}

func isNull(raw json.RawMessage) bool {
    return strings.TrimSpace(string(raw)) == "null"
}

func decodeString(raw json.RawMessage) (string, bool) {
    var s string
    if len(raw) == 0 || raw[0] != '"' {
        return "", false
    }
    if err := json.Unmarshal(raw, &s); err != nil {
        return "", false
    }
    return s, true
}

// numberText extracts the literal of a JSON number, or the contents of a JSON
// string holding one.  Booleans, null, objects and arrays are not numbers.
func numberText(raw json.RawMessage) (text string, quoted bool, ok bool) {
    if s, isStr := decodeString(raw); isStr {
        return strings.TrimSpace(s), true, true
    }
    var n json.Number
    if err := json.Unmarshal(raw, &n); err != nil {
        return "", false, false
    }
    return n.String(), false, true
}

// decodeInt accepts integral JSON numbers (30, 30.0) and numeric strings
// ("30").  On failure typ and msg describe the problem.
func decodeInt(raw json.RawMessage) (n int, typ, msg string) {
    text, quoted, ok := numberText(raw)
    if !ok {
        return 0, "int_type", "Input should be a valid integer"
    }
    if i, err := strconv.Atoi(text); err == nil {
        return i, "", ""
    }
    f, err := strconv.ParseFloat(text, 64)
    if err != nil {
        if quoted {
            return 0, "int_parsing", "Input should be a valid integer, unable to parse string as an integer"
        }
        return 0, "int_type", "Input should be a valid integer"
    }
    if f != math.Trunc(f) || math.IsInf(f, 0) {
        return 0, "int_from_float", "Input should be a valid integer, got a number with a fractional part"
    }
    // Integral but out of int range: clamp so the bounds check still applies.
    return int(max(min(f, math.MaxInt32), math.MinInt32)), "", ""
}

// decodeFloat accepts JSON numbers and numeric strings.
func decodeFloat(raw json.RawMessage) (f float64, typ, msg string) {
    text, quoted, ok := numberText(raw)
    if !ok {
        return 0, "float_type", "Input should be a valid number"
    }
    f, err := strconv.ParseFloat(text, 64)
    if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
        if quoted {
            return 0, "float_parsing", "Input should be a valid number, unable to parse string as a number"
        }
        return 0, "float_type", "Input should be a valid number"
    }
    return f, "", ""
}
