package domain

// TaskRequest is the inbound A2A task call.
type TaskRequest struct {
	Message   string                 `json:"message"`
	Context   map[string]interface{} `json:"context"`
	SessionID string                 `json:"session_id,omitempty"`
}

// TaskOutcome is the normalized result returned for every task, success or
// failure. Exactly one status; error outcomes set data.error_type.
type TaskOutcome struct {
	Message   string                 `json:"message"`
	Status    TaskStatus             `json:"status"`
	Data      map[string]interface{} `json:"data"`
	SessionID string                 `json:"session_id,omitempty"`
}

// SuccessOutcome builds a success outcome.
func SuccessOutcome(message string, data map[string]interface{}) *TaskOutcome {
	if data == nil {
		data = map[string]interface{}{}
	}
	return &TaskOutcome{Message: message, Status: TaskStatusSuccess, Data: data}
}

// ErrorOutcome builds an error outcome with the given kind.
func ErrorOutcome(kind ErrorKind, message string) *TaskOutcome {
	return &TaskOutcome{
		Message: message,
		Status:  TaskStatusError,
		Data:    map[string]interface{}{"error_type": string(kind)},
	}
}
