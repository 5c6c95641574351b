// Package domain defines the core domain models for the job search coordinator.
package domain

// TaskStatus represents the outcome status of a processed task.
type TaskStatus string

const (
	TaskStatusSuccess TaskStatus = "success"
	TaskStatusError   TaskStatus = "error"
)

// ErrorKind classifies failures surfaced in task outcomes.
type ErrorKind string

const (
	ErrorKindValidation   ErrorKind = "ValidationError"
	ErrorKindSession      ErrorKind = "SessionError"
	ErrorKindTimeout      ErrorKind = "TimeoutError"
	ErrorKindExtraction   ErrorKind = "ExtractionError"
	ErrorKindPipeline     ErrorKind = "PipelineError"
	ErrorKindTool         ErrorKind = "ToolError"
	ErrorKindUnclassified ErrorKind = "UnclassifiedError"
)

// ApprovalStatus represents the status of a human-in-the-loop approval ticket.
type ApprovalStatus string

const (
	ApprovalStatusPending  ApprovalStatus = "pending"
	ApprovalStatusApproved ApprovalStatus = "approved"
	ApprovalStatusRejected ApprovalStatus = "rejected"
)

// ToolResultStatus represents the status of a tool invocation result.
type ToolResultStatus string

const (
	ToolResultOK       ToolResultStatus = "ok"
	ToolResultPending  ToolResultStatus = "pending"
	ToolResultRejected ToolResultStatus = "rejected"
)
