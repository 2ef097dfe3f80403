package alerts

import (
	"strconv"
	"strings"

	"github.com/scanboard/scanboard/pkg/types"
)

// evalCondition evaluates a rule condition string against an audit summary.
//
// Supported expressions (field operator value):
//
//	errors > 0
//	warnings >= 10
//	successes < 50
//	score < 60
//	scan_errors > 0
//	scan_warnings > 5
//	scan_nodata > 0
//	grade == F
//
// Returns (fires bool, triggering value float64).
// Returns (false, 0) if the expression cannot be parsed or the field is unknown.
func evalCondition(cond string, sum *types.AuditSummary) (bool, float64) {
	parts := strings.Fields(cond)
	if len(parts) != 3 {
		return false, 0
	}
	field, op, rhs := parts[0], parts[1], parts[2]

	if field == "grade" {
		score := float64(summaryScore(sum))
		switch op {
		case "==":
			return types.Grade(uint(score)) == rhs, score
		case "!=":
			return types.Grade(uint(score)) != rhs, score
		}
		return false, 0
	}

	v, ok := numericField(field, sum)
	if !ok {
		return false, 0
	}
	threshold, err := strconv.ParseFloat(rhs, 64)
	if err != nil {
		return false, 0
	}
	return compareFloat(v, op, threshold), v
}

// numericField maps a field name to its value in the summary.
func numericField(field string, sum *types.AuditSummary) (float64, bool) {
	totals := sum.ClusterSummary.Results.Totals
	switch field {
	case "errors":
		return float64(totals.Errors), true
	case "warnings":
		return float64(totals.Warnings), true
	case "successes":
		return float64(totals.Successes), true
	case "score":
		return float64(summaryScore(sum)), true
	case "scan_errors":
		return float64(sum.ScanResults.Errors), true
	case "scan_warnings":
		return float64(sum.ScanResults.Warnings), true
	case "scan_nodata":
		return float64(sum.ScanResults.NoData), true
	default:
		return 0, false
	}
}

// summaryScore prefers the upstream score and falls back to the totals.
func summaryScore(sum *types.AuditSummary) uint {
	if sum.ClusterSummary.Score > 0 {
		return sum.ClusterSummary.Score
	}
	return sum.ClusterSummary.Results.Totals.Score()
}

// compareFloat applies a comparison operator to two float64 values.
func compareFloat(v float64, op string, threshold float64) bool {
	switch op {
	case ">":
		return v > threshold
	case ">=":
		return v >= threshold
	case "<":
		return v < threshold
	case "<=":
		return v <= threshold
	case "==":
		return v == threshold
	case "!=":
		return v != threshold
	default:
		return false
	}
}
