package rest

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/SunnyXcode/Ai-Insider-Threat-Detection/internal/domain/errors"
	"github.com/SunnyXcode/Ai-Insider-Threat-Detection/internal/service/insider"
)

// MaxTopN is the largest accepted top_n.
const MaxTopN = 10000

type TopNQuery struct {
	TopN int `query:"top_n" validate:"min=0,max=10000"`
}

type UserQuery struct {
	User string `query:"user" validate:"required,max=256"`
}

type RunsQuery struct {
	Limit int `query:"limit" validate:"min=0"`
}

func parseTopN(r *http.Request, v *validator.Validate) (TopNQuery, error) {
	q := TopNQuery{TopN: insider.DefaultTopN}
	n, err := intParam(r, "top_n", insider.DefaultTopN)
	if err != nil {
		return q, err
	}
	q.TopN = n
	return q, validate(v, q)
}

func parseUser(r *http.Request, v *validator.Validate) (UserQuery, error) {
	q := UserQuery{User: strings.TrimSpace(r.URL.Query().Get("user"))}
	if q.User == "" {
		return q, errors.NewValidationError("MISSING_USER", "query parameter 'user' is required").
			WithDetails(map[string]interface{}{"field": "user"})
	}
	return q, validate(v, q)
}

func parseRuns(r *http.Request, v *validator.Validate) (RunsQuery, error) {
	n, err := intParam(r, "limit", insider.DefaultRunLimit)
	if err != nil {
		return RunsQuery{}, err
	}
	q := RunsQuery{Limit: n}
	return q, validate(v, q)
}

func intParam(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.NewValidationError("INVALID_PARAMETER",
			fmt.Sprintf("query parameter '%s' must be an integer", name)).
			WithDetails(map[string]interface{}{"field": name, "value": raw})
	}
	return n, nil
}

// newValidator reports field names by their query parameter.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		if name := f.Tag.Get("query"); name != "" {
			return name
		}
		return f.Name
	})
	return v
}

func validate(v *validator.Validate, q any) error {
	err := v.Struct(q)
	if err == nil {
		return nil
	}
	var fields validator.ValidationErrors
	if !stderrors.As(err, &fields) || len(fields) == 0 {
		return errors.NewValidationError("INVALID_PARAMETER", err.Error())
	}
	details := make(map[string]interface{}, len(fields))
	for _, fe := range fields {
		details[fe.Field()] = fmt.Sprintf("failed '%s' (%s)", fe.Tag(), fe.Param())
	}
	f := fields[0]
	return errors.NewValidationError("INVALID_PARAMETER",
		fmt.Sprintf("parameter %s failed validation '%s'", f.Field(), f.Tag())).
		WithDetails(details)
}
