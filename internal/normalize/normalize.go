// Package normalize turns the astrology API's response envelopes into one
// canonical models.AlmanacRecord.
//
// The upstream has changed its wire shape across versions without a version
// field, so the shape is detected by probing, in this order:
//
//  1. a top-level "output" string holding JSON, possibly JSON-encoded twice,
//     which decodes to a tithi-only object;
//  2. a flat object with "tithi", "nakshatra", "yoga" and "karana";
//  3. a top-level "output" object (the tithi-only object, already decoded).
//
// Anything else is a decode error. New shapes are not guessed at.
package normalize

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/kjstillabower/panchang-bot/internal/models"
)

// Shape identifies which envelope a response used.
type Shape int

const (
	ShapeUnknown Shape = iota
	ShapeWrappedTithi
	ShapeDoubleWrappedTithi
	ShapeComplete
	ShapeOutputObject
)

func (s Shape) String() string {
	switch s {
	case ShapeWrappedTithi:
		return "wrapped_tithi"
	case ShapeDoubleWrappedTithi:
		return "double_wrapped_tithi"
	case ShapeComplete:
		return "complete"
	case ShapeOutputObject:
		return "output_object"
	default:
		return "unknown"
	}
}

// ErrUnrecognizedShape is wrapped in the decode error when no probe matches.
var ErrUnrecognizedShape = errors.New("unrecognized response shape")

// Yoga and karana are keyed by occurrence; only the first active one is reported.
const primaryOccurrence = "1"

const (
	krishnaLabel = "Waning Moon (Krishna)"
	shuklaLabel  = "Waxing Moon (Shukla)"
)

type object map[string]json.RawMessage

// Normalize decodes raw into an AlmanacRecord. Missing sub-fields become models.NA.
// Every failure is a *models.PipelineError of kind decode.
func Normalize(raw []byte) (models.AlmanacRecord, error) {
	rec, _, err := NormalizeShape(raw)
	return rec, err
}

// NormalizeShape is Normalize that also reports the detected shape.
func NormalizeShape(raw []byte) (models.AlmanacRecord, Shape, error) {
	var top object
	if err := json.Unmarshal(raw, &top); err != nil {
		return models.AlmanacRecord{}, ShapeUnknown, models.NewDecodeError(fmt.Errorf("decode envelope: %w", err))
	}
	if top == nil {
		return models.AlmanacRecord{}, ShapeUnknown, models.NewDecodeError(ErrUnrecognizedShape)
	}

	if out, ok := top["output"]; ok && kindOf(out) == '"' {
		tithi, shape, err := unwrapOutput(out)
		if err != nil {
			return models.AlmanacRecord{}, ShapeUnknown, models.NewDecodeError(err)
		}
		return tithiOnly(tithi), shape, nil
	}

	if top.has("tithi", "nakshatra", "yoga", "karana") {
		return complete(top), ShapeComplete, nil
	}

	if out, ok := top["output"]; ok && kindOf(out) == '{' {
		var tithi object
		if err := json.Unmarshal(out, &tithi); err != nil {
			return models.AlmanacRecord{}, ShapeUnknown, models.NewDecodeError(fmt.Errorf("decode output object: %w", err))
		}
		return tithiOnly(tithi), ShapeOutputObject, nil
	}

	return models.AlmanacRecord{}, ShapeUnknown, models.NewDecodeError(ErrUnrecognizedShape)
}

// unwrapOutput decodes the string in an "output" field. The decoded text may
// itself be a JSON string, which is decoded once more. The result must be an object.
func unwrapOutput(out json.RawMessage) (object, Shape, error) {
	var text string
	if err := json.Unmarshal(out, &text); err != nil {
		return nil, ShapeUnknown, fmt.Errorf("decode output string: %w", err)
	}

	shape := ShapeWrappedTithi
	payload := []byte(strings.TrimSpace(text))
	if kindOf(payload) == '"' {
		var inner string
		if err := json.Unmarshal(payload, &inner); err != nil {
			return nil, ShapeUnknown, fmt.Errorf("decode wrapped output: %w", err)
		}
		payload = []byte(inner)
		shape = ShapeDoubleWrappedTithi
	}

	if kindOf(payload) != '{' {
		return nil, ShapeUnknown, fmt.Errorf("decode output: %w", ErrUnrecognizedShape)
	}
	var obj object
	if err := json.Unmarshal(payload, &obj); err != nil {
		return nil, ShapeUnknown, fmt.Errorf("decode output payload: %w", err)
	}
	return obj, shape, nil
}

func tithiOnly(t object) models.AlmanacRecord {
	rec := models.EmptyRecord()
	rec.Tithi = tithi(t)
	rec.Partial = true
	return rec
}

func complete(top object) models.AlmanacRecord {
	rec := models.EmptyRecord()
	rec.Tithi = tithi(top.object("tithi"))

	n := top.object("nakshatra")
	rec.Nakshatra = models.Nakshatra{
		Name:             titleCase(n.str("name")),
		Number:           n.str("number"),
		StartsAt:         n.str("starts_at"),
		EndsAt:           n.str("ends_at"),
		RemainingPercent: n.str("left_percentage", "left_precentage"),
	}

	rec.Yoga = period(top.object("yoga").object(primaryOccurrence))
	rec.Karana = period(top.object("karana").object(primaryOccurrence))
	rec.Sunrise = top.str("sun_rise")
	rec.Sunset = top.str("sun_set")
	return rec
}

// tithi reads a tithi object. The upstream spells the percentage key
// "left_precentage"; the corrected spelling is accepted too.
func tithi(t object) models.Tithi {
	return models.Tithi{
		Name:             titleCase(t.str("name")),
		Number:           t.str("number"),
		Paksha:           pakshaLabel(t.str("paksha")),
		CompletesAt:      t.str("completes_at"),
		RemainingPercent: t.str("left_precentage", "left_percentage"),
	}
}

func period(p object) models.Period {
	return models.Period{
		Name:        titleCase(p.str("name")),
		Number:      p.str("number"),
		CompletesAt: p.str("completion"),
	}
}

func pakshaLabel(p string) string {
	if p == models.NA {
		return models.NA
	}
	if strings.EqualFold(strings.TrimSpace(p), "krishna") {
		return krishnaLabel
	}
	return shuklaLabel
}

// titleCase capitalizes the first letter of each word. A Caser is not safe for
// concurrent use, so one is built per call.
func titleCase(s string) string {
	if s == models.NA {
		return s
	}
	return cases.Title(language.English).String(s)
}

func (o object) has(keys ...string) bool {
	for _, k := range keys {
		if _, ok := o[k]; !ok {
			return false
		}
	}
	return true
}

// object returns the nested object at key, or an empty object.
func (o object) object(key string) object {
	raw, ok := o[key]
	if !ok || kindOf(raw) != '{' {
		return object{}
	}
	var nested object
	if err := json.Unmarshal(raw, &nested); err != nil {
		return object{}
	}
	return nested
}

// str returns the first present scalar among keys as display text. Strings are
// returned as-is, numbers as their literal JSON text, booleans as true/false.
// Missing, null, empty, object and array values yield models.NA.
func (o object) str(keys ...string) string {
	for _, key := range keys {
		raw, ok := o[key]
		if !ok {
			continue
		}
		switch kindOf(raw) {
		case '"':
			var s string
			if err := json.Unmarshal(raw, &s); err == nil && strings.TrimSpace(s) != "" {
				return s
			}
		case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
			var n json.Number
			dec := json.NewDecoder(bytes.NewReader(raw))
			dec.UseNumber()
			if err := dec.Decode(&n); err == nil {
				return n.String()
			}
		case 't', 'f':
			return string(bytes.TrimSpace(raw))
		}
	}
	return models.NA
}

// kindOf returns the first non-space byte of a JSON value, or 0.
func kindOf(raw []byte) byte {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return 0
	}
	return trimmed[0]
}
