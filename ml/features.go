package ml

import (
	"encoding/json"
	"fmt"
	"strconv"

	"golang.org/x/text/cases"
)

// NumQuestions is the length of every encoded questionnaire.
const NumQuestions = 10

const (
	answerYes = "yes"
	answerNo  = "no"
)

// Responses maps question keys (A1..A10) to the answer given.
// Non-string JSON values decode to the empty string.
type Responses map[string]string

func (r *Responses) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == nil {
		*r = nil
		return nil
	}
	out := make(Responses, len(raw))
	for key, value := range raw {
		var s string
		if err := json.Unmarshal(value, &s); err == nil {
			out[key] = s
		} else {
			out[key] = ""
		}
	}
	*r = out
	return nil
}

// FeatureVector is the positional A1..A10 encoding of a questionnaire.
type FeatureVector []int

// QuestionKey returns the response key for the i-th question, starting at 1.
func QuestionKey(i int) string {
	return "A" + strconv.Itoa(i)
}

// Encode turns responses into a FeatureVector. Missing answers count as "no"
// and only a case-insensitive "yes" encodes as 1.
func Encode(responses Responses) FeatureVector {
	fold := cases.Fold()
	features := make(FeatureVector, NumQuestions)
	for i := 1; i <= NumQuestions; i++ {
		value, ok := responses[QuestionKey(i)]
		if !ok {
			value = answerNo
		}
		if fold.String(value) == answerYes {
			features[i-1] = 1
		}
	}
	return features
}

// Validate rejects unknown keys and answers other than yes/no. It is only
// applied when strict validation is enabled; Encode itself never fails.
func Validate(responses Responses) error {
	fold := cases.Fold()
	known := make(map[string]bool, NumQuestions)
	for i := 1; i <= NumQuestions; i++ {
		known[QuestionKey(i)] = true
	}
	for key, value := range responses {
		if !known[key] {
			return fmt.Errorf("unknown question %q", key)
		}
		switch fold.String(value) {
		case answerYes, answerNo:
		default:
			return fmt.Errorf("invalid answer %q for %s", value, key)
		}
	}
	return nil
}

func (fv FeatureVector) Floats() []float64 {
	out := make([]float64, len(fv))
	for i, v := range fv {
		out[i] = float64(v)
	}
	return out
}

// Mask packs the vector into a bitmask, A1 in the lowest bit.
func (fv FeatureVector) Mask() uint16 {
	var mask uint16
	for i, v := range fv {
		if v != 0 {
			mask |= 1 << uint(i)
		}
	}
	return mask
}
