package model

import "strconv"

// Verdict labels returned by VerdictFor.
const (
    VerdictUnderweight  = "Underweight"
    VerdictNormalWeight = "Normal weight"
    VerdictOverweight   = "Overweight"
    VerdictObesity      = "Obesity"
)

// BMI computes weight / height² rounded to two decimals.  A non-positive
// height yields 0.
func BMI(height, weight float64) float64 {
    if height <= 0 {
        return 0
    }
    return round2(weight / (height * height))
}

// VerdictFor maps a BMI to its label.  The bands are not contiguous:
// 24.9 <= bmi < 25 falls through to Obesity along with bmi >= 29.9.
func VerdictFor(bmi float64) string {
    switch {
    case bmi < 18.5:
        return VerdictUnderweight
    case bmi >= 18.5 && bmi < 24.9:
        return VerdictNormalWeight
    case bmi >= 25 && bmi < 29.9:
        return VerdictOverweight
    default:
        return VerdictObesity
    }
}

// round2 rounds the exact binary value of v to two decimal places, ties to
// even.
func round2(v float64) float64 {
    r, _ := strconv.ParseFloat(strconv.FormatFloat(v, 'f', 2, 64), 64)
    return r
}
