package config

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/ladnerlab/autopepsirf/internal/pipeline"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "thresholds.hdi")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// ValidLogLevels returns the list of valid log levels
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// Validate checks the Config for invalid values and returns all validation errors found
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	errors = append(errors, c.validateTools()...)
	errors = append(errors, c.validateSource()...)
	errors = append(errors, c.validateThresholds()...)
	errors = append(errors, c.validateDeconv()...)
	errors = append(errors, c.validateOutput()...)

	if !slices.Contains(ValidLogLevels(), c.Logging.Level) {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}

	return errors
}

func (c *Config) validateTools() []ValidationError {
	var errors []ValidationError
	if c.Pepsirf.Binary == "" {
		errors = append(errors, ValidationError{Field: "pepsirf.binary", Value: "", Message: "must not be empty"})
	}
	if c.Plot.Binary == "" {
		errors = append(errors, ValidationError{Field: "plot.binary", Value: "", Message: "must not be empty"})
	}
	return errors
}

func (c *Config) validateSource() []ValidationError {
	var set []string
	if c.Source.InferPairs {
		set = append(set, "infer_pairs")
	}
	if c.Source.FlexibleReps {
		set = append(set, "flexible_reps")
	}
	if c.Source.SelfAsSource {
		set = append(set, "self_as_source")
	}
	if c.Source.UserDefined != "" {
		set = append(set, "user_defined")
	}
	if len(set) > 1 {
		return []ValidationError{{
			Field:   "source",
			Value:   strings.Join(set, ", "),
			Message: "source policies are mutually exclusive",
		}}
	}
	return nil
}

func (c *Config) validateThresholds() []ValidationError {
	var errors []ValidationError
	t := c.Thresholds

	for field, v := range map[string]string{
		"thresholds.exact_z":       t.ExactZ,
		"thresholds.exact_cs":      t.ExactCS,
		"thresholds.exact_zenrich": t.ExactZenrich,
	} {
		if !validThresh(v) {
			errors = append(errors, ValidationError{
				Field:   field,
				Value:   v,
				Message: "must be one or two comma-separated numbers",
			})
		}
	}
	if t.HDI < 0 || t.HDI > 1 {
		errors = append(errors, ValidationError{Field: "thresholds.hdi", Value: t.HDI, Message: "must be within [0, 1]"})
	}
	if t.RawConstraint < 0 {
		errors = append(errors, ValidationError{Field: "thresholds.raw_constraint", Value: t.RawConstraint, Message: "must not be negative"})
	}
	if t.Precision < 0 {
		errors = append(errors, ValidationError{Field: "thresholds.precision", Value: t.Precision, Message: "must not be negative"})
	}
	return errors
}

func (c *Config) validateDeconv() []ValidationError {
	var errors []ValidationError
	d := c.Deconv

	if !slices.Contains(pipeline.ScoringStrategies, d.ScoringStrategy) {
		errors = append(errors, ValidationError{
			Field:   "deconv.scoring_strategy",
			Value:   d.ScoringStrategy,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(pipeline.ScoringStrategies, ", ")),
		})
	}
	if d.Threshold < 0 {
		errors = append(errors, ValidationError{Field: "deconv.threshold", Value: d.Threshold, Message: "must not be negative"})
	}
	if d.ScoreTieThreshold < 0 {
		errors = append(errors, ValidationError{Field: "deconv.score_tie_threshold", Value: d.ScoreTieThreshold, Message: "must not be negative"})
	}
	if d.ScoreOverlapThreshold < 0 {
		errors = append(errors, ValidationError{Field: "deconv.score_overlap_threshold", Value: d.ScoreOverlapThreshold, Message: "must not be negative"})
	}
	return errors
}

func (c *Config) validateOutput() []ValidationError {
	if c.Output.TSVBase != "" && c.Output.TSVDir == "" {
		return []ValidationError{{
			Field:   "output.tsv_base",
			Value:   c.Output.TSVBase,
			Message: "requires output.tsv_dir",
		}}
	}
	return nil
}

func validThresh(v string) bool {
	if v == "" {
		return true
	}
	parts := strings.Split(v, ",")
	if len(parts) > 2 {
		return false
	}
	for _, part := range parts {
		if _, err := strconv.ParseFloat(strings.TrimSpace(part), 64); err != nil {
			return false
		}
	}
	return true
}
