package shared

// CodeAnalysis is the opaque result returned by the external AI
// code-analysis provider: four 0-100 sub-scores, the skill tags the
// analyzer detected, and free-text suggestions. It is untrusted,
// optional input - every consumer must tolerate its absence.
type CodeAnalysis struct {
	// QualityScore rates overall code quality, 0-100.
	QualityScore float64

	// EfficiencyScore rates runtime/memory efficiency, 0-100.
	EfficiencyScore float64

	// CreativityScore rates originality of approach, 0-100.
	CreativityScore float64

	// BestPracticesScore rates idiom and convention adherence, 0-100.
	BestPracticesScore float64

	// DetectedSkills lists the skill tags the analyzer recognized.
	DetectedSkills []SkillID

	// Suggestions carries the analyzer's free-text improvement notes.
	Suggestions []string
}

// AverageScore returns the mean of the four sub-scores.
func (a *CodeAnalysis) AverageScore() float64 {
	return (a.QualityScore + a.EfficiencyScore + a.CreativityScore + a.BestPracticesScore) / 4
}

// HasSkill reports whether the analyzer detected the given skill tag.
func (a *CodeAnalysis) HasSkill(skill SkillID) bool {
	for _, s := range a.DetectedSkills {
		if s == skill {
			return true
		}
	}
	return false
}
