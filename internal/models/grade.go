package models

// GradeLevel is one rung of the CBC grade ladder the school admits into.
type GradeLevel string

const (
	GradeECD GradeLevel = "ECD"
	GradePP1 GradeLevel = "PP1"
	GradePP2 GradeLevel = "PP2"
	Grade1   GradeLevel = "Grade 1"
	Grade2   GradeLevel = "Grade 2"
	Grade3   GradeLevel = "Grade 3"
	Grade4   GradeLevel = "Grade 4"
	Grade5   GradeLevel = "Grade 5"
	Grade6   GradeLevel = "Grade 6"
	Grade7   GradeLevel = "Grade 7"
	Grade8   GradeLevel = "Grade 8"
)

// AllGrades lists the admittable grade levels in ladder order.
var AllGrades = []GradeLevel{
	GradeECD, GradePP1, GradePP2,
	Grade1, Grade2, Grade3, Grade4, Grade5, Grade6, Grade7, Grade8,
}

// Valid reports whether the grade level is admittable.
func (g GradeLevel) Valid() bool {
	for _, grade := range AllGrades {
		if g == grade {
			return true
		}
	}
	return false
}

// GradeSet is a configured set of grade levels, used for the interview
// skip rule.
type GradeSet map[GradeLevel]struct{}

// NewGradeSet builds a set from raw configuration values.
func NewGradeSet(raw []string) GradeSet {
	set := make(GradeSet, len(raw))
	for _, value := range raw {
		set[GradeLevel(value)] = struct{}{}
	}
	return set
}

// Contains reports membership.
func (s GradeSet) Contains(grade GradeLevel) bool {
	_, ok := s[grade]
	return ok
}
