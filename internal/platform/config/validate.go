package config

import (
	"errors"
	"fmt"
	"path"
	"reflect"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrInvalid wraps every configuration validation failure.
var ErrInvalid = errors.New("invalid configuration")

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report problems with the YAML field names the operator wrote.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks field constraints and cross-field rules. All problems are
// reported together in one error wrapping ErrInvalid.
func (c *Config) Validate() error {
	var problems []string

	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("%w: %v", ErrInvalid, err)
		}
		for _, fe := range verrs {
			field := strings.TrimPrefix(fe.Namespace(), "Config.")
			problems = append(problems, fmt.Sprintf("%s: failed %q", field, fe.Tag()))
		}
	}

	named := map[string]string{
		"source.col_date":        c.Source.ColDate,
		"source.col_isin":        c.Source.ColISIN,
		"source.col_time":        c.Source.ColTime,
		"source.col_start_price": c.Source.ColStartPrice,
		"source.col_min_price":   c.Source.ColMinPrice,
		"source.col_max_price":   c.Source.ColMaxPrice,
		"source.col_traded_vol":  c.Source.ColTradedVol,
	}
	fields := make([]string, 0, len(named))
	for f := range named {
		fields = append(fields, f)
	}
	slices.Sort(fields)
	for _, f := range fields {
		if col := named[f]; col != "" && !slices.Contains(c.Source.Columns, col) {
			problems = append(problems, fmt.Sprintf("%s: %q is not listed in source.columns", f, col))
		}
	}

	// The ledger is always written as CSV.
	if ext := path.Ext(c.Meta.Key); ext != "" && ext != ".csv" {
		problems = append(problems, fmt.Sprintf("meta.key: extension %q is not .csv", ext))
	}

	if (c.Logging.Output == "file" || c.Logging.Output == "both") && c.Logging.File.Path == "" {
		problems = append(problems, "logging.file.path: required when logging.output is "+c.Logging.Output)
	}

	if c.Lock.Enabled && c.Env.RedisHost == "" {
		problems = append(problems, "lock.enabled: requires REDIS_HOST")
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(problems, "; "))
	}
	return nil
}
