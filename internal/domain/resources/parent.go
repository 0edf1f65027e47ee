package resources

import (
	"sort"
	"strings"
)

// ParentType names the kind of row an association hangs off.
type ParentType string

const (
	ParentReport            ParentType = "report"
	ParentNextStep          ParentType = "nextStep"
	ParentGoal              ParentType = "goal"
	ParentGoalTemplate      ParentType = "goalTemplate"
	ParentReportGoal        ParentType = "reportGoal"
	ParentObjective         ParentType = "objective"
	ParentObjectiveTemplate ParentType = "objectiveTemplate"
	ParentReportObjective   ParentType = "reportObjective"

	// ParentSession only owns file attachments.
	ParentSession ParentType = "session"
)

// SourceField names the parent column a link was discovered in.
type SourceField string

const (
	// FieldResource is the explicit, user-entered resource list. Everything
	// else is free text scanned for links.
	FieldResource SourceField = "resource"

	FieldNonECLKCResourcesUsed SourceField = "nonECLKCResourcesUsed"
	FieldECLKCResourcesUsed    SourceField = "ECLKCResourcesUsed"
	FieldContext               SourceField = "context"
	FieldAdditionalNotes       SourceField = "additionalNotes"
	FieldNote                  SourceField = "note"
	FieldName                  SourceField = "name"
	FieldTimeframe             SourceField = "timeframe"
	FieldTitle                 SourceField = "title"
	FieldTTAProvided           SourceField = "ttaProvided"
)

// ParentSpec describes one parent type: which fields it tracks and how it
// takes part in onAR/onApprovedAR propagation.
type ParentSpec struct {
	Type   ParentType
	Fields []SourceField
	// ReportLevel rows are the source of truth for "used on an activity report".
	ReportLevel bool
	// FlagTarget is the parent type whose flags a ReportLevel row drives.
	FlagTarget ParentType
	// CarriesFlags marks parents whose associations hold onAR/onApprovedAR.
	CarriesFlags bool
}

var parentSpecs = map[ParentType]ParentSpec{
	ParentReport: {
		Type:        ParentReport,
		Fields:      []SourceField{FieldNonECLKCResourcesUsed, FieldECLKCResourcesUsed, FieldContext, FieldAdditionalNotes, FieldResource},
		ReportLevel: true,
	},
	ParentNextStep: {
		Type:   ParentNextStep,
		Fields: []SourceField{FieldNote, FieldResource},
	},
	ParentGoal: {
		Type:         ParentGoal,
		Fields:       []SourceField{FieldName, FieldTimeframe, FieldResource},
		CarriesFlags: true,
	},
	ParentGoalTemplate: {
		Type:   ParentGoalTemplate,
		Fields: []SourceField{FieldName, FieldResource},
	},
	ParentReportGoal: {
		Type:        ParentReportGoal,
		Fields:      []SourceField{FieldName, FieldTimeframe, FieldResource},
		ReportLevel: true,
		FlagTarget:  ParentGoal,
	},
	ParentObjective: {
		Type:         ParentObjective,
		Fields:       []SourceField{FieldTitle, FieldResource},
		CarriesFlags: true,
	},
	ParentObjectiveTemplate: {
		Type:   ParentObjectiveTemplate,
		Fields: []SourceField{FieldTitle, FieldResource},
	},
	ParentReportObjective: {
		Type:        ParentReportObjective,
		Fields:      []SourceField{FieldTitle, FieldTTAProvided, FieldResource},
		ReportLevel: true,
		FlagTarget:  ParentObjective,
	},
}

var fileParents = map[ParentType]struct{}{
	ParentReport:            {},
	ParentReportObjective:   {},
	ParentObjective:         {},
	ParentObjectiveTemplate: {},
	ParentSession:           {},
}

// LookupParent returns the spec for a resource-owning parent type.
func LookupParent(t ParentType) (ParentSpec, bool) {
	s, ok := parentSpecs[t]
	return s, ok
}

// ParseParentType accepts the camelCase wire name, case-insensitively.
func ParseParentType(raw string) (ParentType, bool) {
	raw = strings.TrimSpace(raw)
	for t := range parentSpecs {
		if strings.EqualFold(string(t), raw) {
			return t, true
		}
	}
	return "", false
}

// ParentTypes lists resource-owning parent types in a stable order.
func ParentTypes() []ParentType {
	out := make([]ParentType, 0, len(parentSpecs))
	for t := range parentSpecs {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ReportLevelFor returns the report-level parent type that drives flags on target.
func ReportLevelFor(target ParentType) (ParentType, bool) {
	for t, s := range parentSpecs {
		if s.ReportLevel && s.FlagTarget == target && target != "" {
			return t, true
		}
	}
	return "", false
}

// IsFileParent reports whether t may own file attachments.
func IsFileParent(t ParentType) bool {
	_, ok := fileParents[t]
	return ok
}

func (s ParentSpec) Allows(f SourceField) bool {
	for _, allowed := range s.Fields {
		if allowed == f {
			return true
		}
	}
	return false
}
