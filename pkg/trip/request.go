// Package trip holds the validated trip request and the aggregated trip result.
package trip

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"tripplanner/pkg/apperr"
)

// DateLayout is the only accepted date format.
const DateLayout = "2006-01-02"

// RawRequest is the untrusted trip request as received from a client.
type RawRequest struct {
	From       string `json:"from"`
	To         string `json:"to"`
	Travellers Number `json:"travellers,omitempty"`
	Start      string `json:"start"`
	End        string `json:"end"`
	Budget     Number `json:"budget,omitempty"`
}

// Number is the text of a numeric field as the client sent it. It decodes
// from any JSON value so a non-numeric entry becomes a field violation
// instead of a malformed body.
type Number string

func (n Number) String() string { return string(n) }

// UnmarshalJSON keeps strings unquoted, maps null to empty and keeps the
// compact text of every other value.
func (n *Number) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*n = Number(s)
		return nil
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, data); err != nil {
		return fmt.Errorf("trip number: %w", err)
	}
	*n = Number(buf.String())
	return nil
}

// Request is a validated trip request. Build it with NewRequest.
type Request struct {
	From       string  `json:"from" validate:"location"`
	To         string  `json:"to" validate:"location"`
	Travellers int     `json:"travellers" validate:"gt=0"`
	Start      string  `json:"start" validate:"isodate"`
	End        string  `json:"end" validate:"isodate"`
	Budget     float64 `json:"budget" validate:"gt=0"`
}

var (
	locationPattern = regexp.MustCompile(`^[a-zA-Z ]+$`)
	datePattern     = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

	validate     *validator.Validate
	validateOnce sync.Once
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		_ = validate.RegisterValidation("location", validLocation)
		_ = validate.RegisterValidation("isodate", validDate)
		validate.RegisterStructValidation(validDateRange, Request{})
	})
	return validate
}

func validLocation(fl validator.FieldLevel) bool {
	return locationPattern.MatchString(fl.Field().String())
}

func validDate(fl validator.FieldLevel) bool {
	_, ok := ParseDate(fl.Field().String())
	return ok
}

// validDateRange requires both dates to be valid and start strictly before end.
func validDateRange(sl validator.StructLevel) {
	r, ok := sl.Current().Interface().(Request)
	if !ok {
		return
	}
	start, okStart := ParseDate(r.Start)
	end, okEnd := ParseDate(r.End)
	if !okStart || !okEnd || !start.Before(end) {
		sl.ReportError(r.Start, "Start", "start", "daterange", "")
	}
}

// ParseDate parses a YYYY-MM-DD calendar date.
func ParseDate(s string) (time.Time, bool) {
	if !datePattern.MatchString(s) {
		return time.Time{}, false
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// NewRequest normalises raw and validates every field.
// Strings are trimmed, travellers defaults to 1 and budget to 0. All violations
// are reported together in one *apperr.ValidationError.
func NewRequest(raw RawRequest) (Request, error) {
	travellers, travellersText := parseTravellers(raw.Travellers)
	budget := parseBudget(raw.Budget)

	req := Request{
		From:       strings.TrimSpace(raw.From),
		To:         strings.TrimSpace(raw.To),
		Travellers: travellers,
		Start:      strings.TrimSpace(raw.Start),
		End:        strings.TrimSpace(raw.End),
		Budget:     budget,
	}

	err := validatorInstance().Struct(req)
	if err == nil {
		return req, nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return Request{}, fmt.Errorf("validate trip request: %w", err)
	}

	type violation struct {
		rank int
		msg  string
	}
	violations := make([]violation, 0, len(verrs))
	for _, fe := range verrs {
		rank, msg := describe(fe, &req, travellersText)
		violations = append(violations, violation{rank, msg})
	}
	sort.SliceStable(violations, func(i, j int) bool { return violations[i].rank < violations[j].rank })

	fields := make([]string, len(violations))
	for i, v := range violations {
		fields[i] = v.msg
	}
	return Request{}, apperr.NewValidationError("Invalid TripRequest", fields)
}

// describe renders one violation and its position in the report.
func describe(fe validator.FieldError, req *Request, travellersText string) (int, string) {
	if fe.Tag() == "daterange" {
		return 5, `Invalid dates: "start" "date must be before "end" date`
	}
	switch fe.StructField() {
	case "From":
		return 0, "Invalid from location: " + req.From
	case "To":
		return 1, "Invalid to location: " + req.To
	case "Travellers":
		return 2, "Invalid travellers: " + travellersText
	case "Start":
		return 3, "Invalid start date: " + req.Start
	case "End":
		return 4, "Invalid end date: " + req.End
	case "Budget":
		return 6, "Budget must be a number greater than 0."
	default:
		return 7, fmt.Sprintf("Invalid %s", fe.Field())
	}
}

// parseTravellers returns the head count and its text for error messages.
// Missing or zero means one traveller. Non-integers are rejected as 0.
func parseTravellers(n Number) (int, string) {
	s := strings.TrimSpace(n.String())
	if s == "" {
		return 1, "1"
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, s
	}
	if f == 0 {
		return 1, "1"
	}
	if f != math.Trunc(f) || f > math.MaxInt32 {
		return 0, s
	}
	return int(f), strconv.Itoa(int(f))
}

// parseBudget returns 0 for a missing or unparseable budget.
func parseBudget(n Number) float64 {
	s := strings.TrimSpace(n.String())
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}
