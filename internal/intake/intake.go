// Package intake validates inbound diagnosis requests and normalises them
// into submissions.
package intake

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/sells-group/ai-diagnosis/internal/catalog"
	"github.com/sells-group/ai-diagnosis/internal/model"
)

// Request is the JSON body posted by the diagnosis form.
type Request struct {
	DiagnosisID      string                     `json:"diagnosisId" validate:"omitempty,max=64"`
	FormType         string                     `json:"formType" validate:"omitempty,oneof=full simplified"`
	CompanyName      string                     `json:"companyName" validate:"required,max=200"`
	Industry         string                     `json:"industry" validate:"max=100"`
	EmployeeCount    string                     `json:"employeeCount" validate:"max=50"`
	AnnualRevenue    string                     `json:"annualRevenue" validate:"max=50"`
	ContactName      string                     `json:"contactName" validate:"max=100"`
	Email            string                     `json:"email" validate:"required,email"`
	Phone            string                     `json:"phone" validate:"max=50"`
	Position         string                     `json:"position" validate:"max=100"`
	Concerns         string                     `json:"concerns" validate:"max=5000"`
	ExpectedBenefits string                     `json:"expectedBenefits" validate:"max=5000"`
	Responses        map[string]json.RawMessage `json:"responses"`
}

// ValidationError lists the rejected fields by JSON name.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, len(names))
	for i, n := range names {
		parts[i] = n + ": " + e.Fields[n]
	}
	return "intake: invalid submission: " + strings.Join(parts, ", ")
}

// Validator checks requests. It is safe for concurrent use.
type Validator struct {
	v   *validator.Validate
	now func() time.Time
}

// NewValidator creates a Validator that reports fields by their JSON name.
func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &Validator{v: v, now: time.Now}
}

// Decode parses a JSON body and normalises it.
func (val *Validator) Decode(body []byte) (model.Submission, error) {
	var req Request
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&req); err != nil {
		return model.Submission{}, &ValidationError{Fields: map[string]string{"body": "invalid json"}}
	}
	return val.Normalize(req)
}

// Normalize validates req and converts it to a Submission. Missing optional
// metadata becomes "unknown" and unparsable answers become 0, which the
// scorer reports as sanitised.
func (val *Validator) Normalize(req Request) (model.Submission, error) {
	trim(&req)
	if err := val.v.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return model.Submission{}, eris.Wrap(err, "intake: validate")
		}
		fields := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			fields[fe.Field()] = fe.Tag()
		}
		return model.Submission{}, &ValidationError{Fields: fields}
	}

	responses, nested := flatten(req.Responses)
	variant := model.VariantFull
	if req.FormType == string(model.VariantSimplified) || (req.FormType == "" && nested) {
		variant = model.VariantSimplified
	}

	id := req.DiagnosisID
	if id == "" {
		id = uuid.NewString()
	}

	return model.Submission{
		ID:      id,
		Variant: variant,
		Company: model.Company{
			Name:          req.CompanyName,
			Industry:      orUnknown(req.Industry),
			EmployeeCount: orUnknown(req.EmployeeCount),
			Revenue:       orUnknown(req.AnnualRevenue),
		},
		Contact: model.Contact{
			Name:     orUnknown(req.ContactName),
			Email:    req.Email,
			Phone:    req.Phone,
			Position: orUnknown(req.Position),
		},
		Concerns:         req.Concerns,
		ExpectedBenefits: req.ExpectedBenefits,
		Responses:        responses,
		SubmittedAt:      val.now().UTC(),
	}, nil
}

func trim(req *Request) {
	for _, s := range []*string{
		&req.DiagnosisID, &req.FormType, &req.CompanyName, &req.Industry, &req.EmployeeCount,
		&req.AnnualRevenue, &req.ContactName, &req.Email, &req.Phone, &req.Position,
		&req.Concerns, &req.ExpectedBenefits,
	} {
		*s = strings.TrimSpace(*s)
	}
	req.Email = strings.ToLower(req.Email)
	req.FormType = strings.ToLower(req.FormType)
}

func orUnknown(s string) string {
	if s == "" {
		return model.Unknown
	}
	return s
}

// flatten converts flat ({"key": 4}) and nested ({"group": {"sub": 4}})
// answers into indicator keys. nested reports whether any group was seen.
func flatten(raw map[string]json.RawMessage) (out map[model.IndicatorKey]int, nested bool) {
	out = make(map[model.IndicatorKey]int, len(raw))
	for k, v := range raw {
		v = bytes.TrimSpace(v)
		if len(v) > 0 && v[0] == '{' {
			var group map[string]json.RawMessage
			if err := json.Unmarshal(v, &group); err != nil {
				continue
			}
			nested = true
			for sub, sv := range group {
				out[catalog.SimplifiedKey(model.Category(k), sub)] = answer(sv)
			}
			continue
		}
		out[model.IndicatorKey(k)] = answer(v)
	}
	return out, nested
}

// answer parses a number or numeric string. Anything else is 0.
func answer(raw json.RawMessage) int {
	var v any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return 0
	}
	var s string
	switch t := v.(type) {
	case json.Number:
		s = t.String()
	case string:
		s = strings.TrimSpace(t)
	default:
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0
	}
	if f > math.MaxInt32 || f < math.MinInt32 {
		return 0
	}
	return int(f)
}

// FieldMessage returns a Korean message for a validator tag.
func FieldMessage(field, tag string) string {
	switch tag {
	case "required":
		return fmt.Sprintf("%s 항목은 필수입니다.", field)
	case "email":
		return "이메일 형식이 올바르지 않습니다."
	default:
		return fmt.Sprintf("%s 항목이 올바르지 않습니다.", field)
	}
}
