package domain

import (
	"github.com/yungbote/ttahub-resources-backend/internal/domain/jobs"
	"github.com/yungbote/ttahub-resources-backend/internal/domain/reports"
	"github.com/yungbote/ttahub-resources-backend/internal/domain/resources"
)

type ParentType = resources.ParentType
type SourceField = resources.SourceField
type SourceFields = resources.SourceFields
type ParentSpec = resources.ParentSpec

const (
	ParentReport            = resources.ParentReport
	ParentNextStep          = resources.ParentNextStep
	ParentGoal              = resources.ParentGoal
	ParentGoalTemplate      = resources.ParentGoalTemplate
	ParentReportGoal        = resources.ParentReportGoal
	ParentObjective         = resources.ParentObjective
	ParentObjectiveTemplate = resources.ParentObjectiveTemplate
	ParentReportObjective   = resources.ParentReportObjective
	ParentSession           = resources.ParentSession

	FieldResource              = resources.FieldResource
	FieldNonECLKCResourcesUsed = resources.FieldNonECLKCResourcesUsed
	FieldECLKCResourcesUsed    = resources.FieldECLKCResourcesUsed
	FieldContext               = resources.FieldContext
	FieldAdditionalNotes       = resources.FieldAdditionalNotes
	FieldNote                  = resources.FieldNote
	FieldName                  = resources.FieldName
	FieldTimeframe             = resources.FieldTimeframe
	FieldTitle                 = resources.FieldTitle
	FieldTTAProvided           = resources.FieldTTAProvided

	FileStatusUploaded = resources.FileStatusUploaded
	FileStatusDeleting = resources.FileStatusDeleting
)

var (
	LookupParent    = resources.LookupParent
	ParseParentType = resources.ParseParentType
	ParentTypes     = resources.ParentTypes
	ReportLevelFor  = resources.ReportLevelFor
	IsFileParent    = resources.IsFileParent
	NewSourceFields = resources.NewSourceFields
)

type Resource = resources.Resource
type ResourceAssociation = resources.ResourceAssociation
type File = resources.File
type FileAssociation = resources.FileAssociation

const (
	ReportStatusDraft     = reports.ReportStatusDraft
	ReportStatusSubmitted = reports.ReportStatusSubmitted
	ReportStatusApproved  = reports.ReportStatusApproved
)

type ActivityReport = reports.ActivityReport
type ActivityReportGoal = reports.ActivityReportGoal
type ActivityReportObjective = reports.ActivityReportObjective

const (
	JobStatusQueued    = jobs.StatusQueued
	JobStatusRunning   = jobs.StatusRunning
	JobStatusSucceeded = jobs.StatusSucceeded
	JobStatusFailed    = jobs.StatusFailed
	JobStatusDead      = jobs.StatusDead
)

type JobRun = jobs.JobRun
type JobRunEvent = jobs.JobRunEvent
type JobEventKind = jobs.JobEventKind

const (
	JobEventCreated   = jobs.JobEventCreated
	JobEventRetrying  = jobs.JobEventRetrying
	JobEventDead      = jobs.JobEventDead
	JobEventSucceeded = jobs.JobEventSucceeded
)
