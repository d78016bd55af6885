// Package artifact holds the opaque handles passed between pipeline stages.
// An artifact is a typed reference to a file or directory produced by, or
// fed to, an external pepsirf or plotting action. Nothing in this module
// reads artifact contents except the sample-name list.
package artifact

import (
	"os"

	"github.com/spf13/afero"

	"github.com/ladnerlab/autopepsirf/internal/errors"
)

// Type names the semantic type of an artifact.
type Type string

const (
	RawCounts        Type = "FeatureTable[RawCounts]"
	Normed           Type = "FeatureTable[Normed]"
	NormedDifference Type = "FeatureTable[NormedDifference]"
	NormedDiffRatio  Type = "FeatureTable[NormedDiffRatio]"
	Zscore           Type = "FeatureTable[Zscore]"
	ZscoreNan        Type = "ZscoreNan"
	PeptideBins      Type = "PeptideBins"
	InfoSNPN         Type = "InfoSNPN"
	InfoSumOfProbes  Type = "InfoSumOfProbes"
	EnrichThresh     Type = "EnrichThresh"
	Enrichment       Type = "PairwiseEnrichment"
	PeptideIDList    Type = "PeptideIDList"
	Link             Type = "Link"
	DMP              Type = "DMP"
	DeconvolutionDir Type = "DeconvolutionDir"
	Visualization    Type = "Visualization"
)

// Artifact is a typed handle to a file or directory on disk.
type Artifact struct {
	Type Type   `yaml:"type"`
	Path string `yaml:"path"`
}

// New returns an artifact of the given type at path.
func New(t Type, path string) *Artifact {
	return &Artifact{Type: t, Path: path}
}

// String returns the artifact path, so artifacts can be used directly in
// command lines.
func (a *Artifact) String() string {
	if a == nil {
		return ""
	}
	return a.Path
}

// Import wraps a raw file path as an artifact of type t. The path must
// exist on fs.
func Import(fs afero.Fs, t Type, path string) (*Artifact, error) {
	if _, err := fs.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewIOError("import "+string(t), path, err)
		}
		return nil, errors.NewIOError("stat", path, err)
	}
	return New(t, path), nil
}

// ImportOptional is Import for inputs that may be left unset. An empty
// path yields a nil artifact and no error.
func ImportOptional(fs afero.Fs, t Type, path string) (*Artifact, error) {
	if path == "" {
		return nil, nil
	}
	return Import(fs, t, path)
}
