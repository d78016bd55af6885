// Package source derives the (sample, source) table that tells the
// enrichment and plotting tools which samples are replicates of each other.
package source

import (
	"bufio"
	"io"
	"strings"

	"github.com/ladnerlab/autopepsirf/internal/errors"
)

// GroupKey returns the source group key of a sample: everything before the
// last underscore, or the sample itself when it has none.
//
//	GroupKey("VW_100_1X_A") == "VW_100_1X"
func GroupKey(sample string) string {
	if i := strings.LastIndexByte(sample, '_'); i >= 0 {
		return sample[:i]
	}
	return sample
}

// Options controls the negative-control fallback of Derive.
type Options struct {
	// ControlsSupplied is true when negative controls were identified by
	// name, ID prefix or control data.
	ControlsSupplied bool
	// DefaultNegativeControls opts in to treating every sample as a
	// negative control when ControlsSupplied is false.
	DefaultNegativeControls bool
}

// Derivation is the result of one derivation pass.
type Derivation struct {
	Table *Table
	// NegativeControls holds every visited sample when the fallback applied.
	NegativeControls []string
	// NegativeControlsDefaulted is true when all samples were taken as
	// negative controls.
	NegativeControlsDefaulted bool
}

type group struct {
	key     string
	samples []string
}

// groupSamples groups samples by key, keeping first-seen order of keys and
// of samples within each key.
func groupSamples(samples []string) []*group {
	var groups []*group
	index := map[string]*group{}
	for _, s := range samples {
		key := GroupKey(s)
		g, ok := index[key]
		if !ok {
			g = &group{key: key}
			index[key] = g
			groups = append(groups, g)
		}
		g.samples = append(g.samples, s)
	}
	return groups
}

// Derive builds the source table for samples under policy. UserDefined is
// not derivable: callers load the table with LoadTable instead.
func Derive(samples []string, policy Policy, opts Options) (*Derivation, error) {
	for _, s := range samples {
		if s == "" || strings.ContainsAny(s, "\t\r\n") {
			return nil, errors.NewConfigError("samples", "invalid sample identifier %q", s)
		}
	}

	d := &Derivation{Table: &Table{}}
	switch policy {
	case InferPairs, FlexibleReplicates, SelfAsSource:
	case UserDefined:
		return nil, errors.NewConfigError("source", "user-defined source tables are loaded, not derived")
	default:
		return nil, errors.NewConfigError("source", "no source policy set")
	}

	for _, g := range groupSamples(samples) {
		for _, s := range g.samples {
			switch policy {
			case FlexibleReplicates:
				d.Table.Add(s, g.key)
			case SelfAsSource:
				d.Table.Add(s, s)
			case InferPairs:
				if len(g.samples) > 1 {
					d.Table.Add(s, g.key)
				}
			}
		}
	}

	if !opts.ControlsSupplied && opts.DefaultNegativeControls {
		d.NegativeControls = append([]string(nil), samples...)
		d.NegativeControlsDefaulted = len(samples) > 0
	}
	return d, nil
}

// ReadSampleNames reads one sample name per line, as written by
// `pepsirf info --get_samples`. Blank lines are skipped.
func ReadSampleNames(r io.Reader) ([]string, error) {
	var names []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if name := strings.TrimSpace(sc.Text()); name != "" {
			names = append(names, name)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return names, nil
}
