// Package advisors declares optional collaborators the orchestrator may
// consult before model construction. Neither collaborator here is allowed
// to influence the constraint model itself; they exist so a future
// component-grouping or operator-skill feature has a seam to attach to
// without the orchestration package needing to change.
package advisors

import "github.com/solderline/smt-scheduler/pkg/domain/entities"

// ComponentGroupingAdvisor suggests which products could share a feeder
// setup on a line, purely for reporting. The orchestrator never treats its
// output as a constraint.
type ComponentGroupingAdvisor interface {
	// SuggestGroups returns product ids clustered by suggested changeover
	// affinity. An empty result means no suggestion is available.
	SuggestGroups(products []*entities.Product) [][]string
}

// OperatorSkillAdvisor annotates which lines a stage would prefer given
// operator skill coverage, again for reporting only.
type OperatorSkillAdvisor interface {
	// PreferredLines returns line ids ordered by preference for the given
	// stage. An empty result means no preference is expressed.
	PreferredLines(stage entities.StageID, candidates []*entities.Line) []entities.LineID
}

// NoopGroupingAdvisor is the default ComponentGroupingAdvisor: it never
// suggests a grouping.
type NoopGroupingAdvisor struct{}

// SuggestGroups always returns nil.
func (NoopGroupingAdvisor) SuggestGroups(products []*entities.Product) [][]string {
	return nil
}

// NoopOperatorAdvisor is the default OperatorSkillAdvisor: it never
// expresses a line preference.
type NoopOperatorAdvisor struct{}

// PreferredLines always returns nil.
func (NoopOperatorAdvisor) PreferredLines(stage entities.StageID, candidates []*entities.Line) []entities.LineID {
	return nil
}

var (
	_ ComponentGroupingAdvisor = NoopGroupingAdvisor{}
	_ OperatorSkillAdvisor     = NoopOperatorAdvisor{}
)
