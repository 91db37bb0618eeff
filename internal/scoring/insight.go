package scoring

import "fmt"

func bandInsight(overall float64, platform string, risk, protective int) string {
	switch {
	case overall >= 7.5:
		return fmt.Sprintf("Your %s usage patterns show strong digital wellness habits. You demonstrate %d protective factors that support your mental health.", platform, protective)
	case overall >= 5.5:
		return fmt.Sprintf("Your %s usage shows a balanced approach with room for improvement. Focus on addressing the %d risk factors identified in your responses.", platform, risk)
	case overall >= 3.5:
		return fmt.Sprintf("Your %s usage patterns indicate several areas of concern. The %d risk factors suggest it may be impacting your mental wellness more than supporting it.", platform, risk)
	default:
		return fmt.Sprintf("Your %s usage shows significant impact on your mental health. With %d risk factors present, consider implementing boundaries and seeking additional support.", platform, risk)
	}
}

// degradedInsight is used when none of the scored questions were answered.
func degradedInsight(platform string) string {
	return fmt.Sprintf("We don't have enough answers yet to assess your %s usage. Complete the assessment to receive a personalized insight.", platform)
}
