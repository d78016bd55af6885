package source

import (
	"strings"

	"github.com/ladnerlab/autopepsirf/internal/errors"
)

// Policy selects how samples are paired with a source.
type Policy int

const (
	// PolicyUnset means no policy was chosen. Deriving with it is an error.
	PolicyUnset Policy = iota
	// InferPairs keeps only source groups with two or more replicates.
	InferPairs
	// FlexibleReplicates keeps every sample, whatever its group size.
	FlexibleReplicates
	// SelfAsSource pairs every sample with itself.
	SelfAsSource
	// UserDefined bypasses derivation in favour of a supplied table.
	UserDefined
)

var policyNames = map[Policy]string{
	InferPairs:         "infer-pairs",
	FlexibleReplicates: "flexible-replicates",
	SelfAsSource:       "self-as-source",
	UserDefined:        "user-defined",
}

func (p Policy) String() string {
	if name, ok := policyNames[p]; ok {
		return name
	}
	return "unset"
}

// ParsePolicy parses a policy name as printed by Policy.String.
func ParsePolicy(s string) (Policy, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	for p, name := range policyNames {
		if name == s {
			return p, nil
		}
	}
	return PolicyUnset, errors.NewConfigError("source_policy", "unknown source policy %q", s)
}

// Flags mirrors the boolean switches of the pipeline entry points. Exactly
// one of them must be set.
type Flags struct {
	InferPairs   bool `mapstructure:"infer_pairs"`
	FlexibleReps bool `mapstructure:"flexible_reps"`
	SelfAsSource bool `mapstructure:"self_as_source"`
	UserDefined  bool `mapstructure:"-"`
}

// Any reports whether at least one flag is set.
func (f Flags) Any() bool {
	return f.InferPairs || f.FlexibleReps || f.SelfAsSource || f.UserDefined
}

// Resolve returns the single policy selected by f.
func (f Flags) Resolve() (Policy, error) {
	var set []Policy
	if f.InferPairs {
		set = append(set, InferPairs)
	}
	if f.FlexibleReps {
		set = append(set, FlexibleReplicates)
	}
	if f.SelfAsSource {
		set = append(set, SelfAsSource)
	}
	if f.UserDefined {
		set = append(set, UserDefined)
	}

	switch len(set) {
	case 0:
		return PolicyUnset, errors.NewConfigError("source", "no source policy set and no user-defined source supplied")
	case 1:
		return set[0], nil
	default:
		names := make([]string, len(set))
		for i, p := range set {
			names[i] = p.String()
		}
		return PolicyUnset, errors.NewConfigError("source", "source policies are mutually exclusive, got %s", strings.Join(names, ", "))
	}
}
