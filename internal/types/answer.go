package types

// Wire values of recorded answers. These strings are what the existing
// dataset stores, so they never change casing.
const (
	AnswerCompliant     = "COMPLIANT"
	AnswerNonCompliant  = "NON_COMPLIANT"
	AnswerNotApplicable = "NOT_APPLICABLE"
)

// ValidAnswer reports whether s is one of the three recordable answers.
func ValidAnswer(s string) bool {
	switch s {
	case AnswerCompliant, AnswerNonCompliant, AnswerNotApplicable:
		return true
	}
	return false
}

type AnswerCounts struct {
	Compliant     int
	NonCompliant  int
	NotApplicable int
}

func CountAnswers(responses map[string]string) AnswerCounts {
	var counts AnswerCounts
	for _, answer := range responses {
		switch answer {
		case AnswerCompliant:
			counts.Compliant++
		case AnswerNonCompliant:
			counts.NonCompliant++
		case AnswerNotApplicable:
			counts.NotApplicable++
		}
	}
	return counts
}
