package types

// Score returns the cluster score in the range 0-100. Successes and errors
// weigh twice as much as warnings; an empty summary scores 0.
func (c CountSummary) Score() uint {
	total := c.Successes*2 + c.Warnings + c.Errors*2
	if total == 0 {
		return 0
	}
	return uint(float64(c.Successes*2) / float64(total) * 100)
}

// Score returns the percentage of scanned images that passed. Images without
// scan data are left out of the denominator.
func (s ScanCounts) Score() uint {
	total := s.Successes + s.Warnings + s.Errors
	if total == 0 {
		return 0
	}
	return uint(float64(s.Successes) / float64(total) * 100)
}

// Grade maps a 0-100 score to a letter grade.
func Grade(score uint) string {
	switch {
	case score >= 97:
		return "A+"
	case score >= 93:
		return "A"
	case score >= 90:
		return "A-"
	case score >= 87:
		return "B+"
	case score >= 83:
		return "B"
	case score >= 80:
		return "B-"
	case score >= 77:
		return "C+"
	case score >= 73:
		return "C"
	case score >= 70:
		return "C-"
	case score >= 67:
		return "D+"
	case score >= 63:
		return "D"
	case score >= 60:
		return "D-"
	default:
		return "F"
	}
}
