package snapshot

import (
	"fmt"
	"math"
	"strings"
)

// DefaultBase is the file name base used when an output directory is set
// without one.
const DefaultBase = "aps-output"

// Per-stage snapshot suffixes.
const (
	SuffixColSum      = "_CS.tsv"
	SuffixDiff        = "_SBD.tsv"
	SuffixDiffRatio   = "_SBDR.tsv"
	SuffixSampleNames = "_SN.tsv"
	SuffixReadCounts  = "_RC.tsv"
	SuffixDeconv      = "_deconv"
)

// SourceTableName is the file name of the source table snapshot.
const SourceTableName = "samples_source.tsv"

// EnrichFallbackName names the enrichment snapshot when no exact z
// thresholds were given.
const EnrichFallbackName = "enriched"

// HDIPercent renders an HDI fraction as a whole percentage.
func HDIPercent(hdi float64) int {
	return int(math.Round(hdi * 100))
}

// ZscoreName returns the z score snapshot name, e.g. base_Z-HDI95.tsv.
func ZscoreName(base string, hdi float64) string {
	return fmt.Sprintf("%s_Z-HDI%d.tsv", base, HDIPercent(hdi))
}

// NaNName returns the z score NaN report snapshot name.
func NaNName(base string, hdi float64) string {
	return fmt.Sprintf("%s_Z-HDI%d.nan", base, HDIPercent(hdi))
}

// EnrichName encodes the enrichment thresholds in the snapshot name:
//
//	EnrichName("6,10", "20", 0.95, 300000) == "6-10Z-HDI95_20CS_300000raw"
func EnrichName(exactZ, exactCS string, hdi float64, rawConstraint int) string {
	if strings.TrimSpace(exactZ) == "" {
		return EnrichFallbackName
	}
	name := fmt.Sprintf("%sZ-HDI%d_", joinThresh(exactZ), HDIPercent(hdi))
	if strings.TrimSpace(exactCS) != "" {
		name += joinThresh(exactCS) + "CS_"
	}
	return name + fmt.Sprintf("%draw", rawConstraint)
}

// joinThresh turns "6,10" into "6-10". Only the first two values count.
func joinThresh(thresh string) string {
	parts := strings.Split(thresh, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	if len(parts) > 1 {
		return parts[0] + "-" + parts[1]
	}
	return parts[0]
}
