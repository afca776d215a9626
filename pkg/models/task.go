package models

// TaskType identifies which specialist worker handles a task.
type TaskType string

const (
	// TaskResearch gathers information via web search and the LLM.
	TaskResearch TaskType = "research"
	// TaskAnalysis extracts insights and a confidence estimate.
	TaskAnalysis TaskType = "analysis"
	// TaskCode generates code in a detected target language.
	TaskCode TaskType = "code"
	// TaskSynthesis merges the other workers' output into one answer.
	TaskSynthesis TaskType = "synthesis"
)

// Valid returns true if the task type is a known value.
func (t TaskType) Valid() bool {
	switch t {
	case TaskResearch, TaskAnalysis, TaskCode, TaskSynthesis:
		return true
	default:
		return false
	}
}

// TaskStatus represents the lifecycle state of an agent task.
type TaskStatus string

const (
	// TaskPending indicates the task has not started.
	TaskPending TaskStatus = "pending"
	// TaskRunning indicates a worker is executing the task.
	TaskRunning TaskStatus = "running"
	// TaskCompleted indicates the worker finished successfully.
	TaskCompleted TaskStatus = "completed"
	// TaskFailed indicates the worker failed.
	TaskFailed TaskStatus = "failed"
)

// Terminal returns true if the status is completed or failed.
func (s TaskStatus) Terminal() bool {
	return s == TaskCompleted || s == TaskFailed
}

// AgentTask is one unit of work within a turn. Tasks are created by the
// decomposer and mutated only by the dispatcher; they live for the duration
// of a single user-message turn.
type AgentTask struct {
	// ID is the unique identifier for this task.
	ID string `json:"id"`
	// Type selects the specialist worker.
	Type TaskType `json:"type"`
	// Input is the text handed to the worker, normally the raw user message.
	Input string `json:"input"`
	// Priority is the 1-based position assigned during decomposition. The
	// synthesis task always carries the highest priority value of its turn.
	Priority int `json:"priority"`
	// Status is the current lifecycle state.
	Status TaskStatus `json:"status"`
	// Result holds the worker's serialized output on success.
	Result string `json:"result,omitempty"`
	// Error holds the failure message when Status is failed.
	Error string `json:"error,omitempty"`
	// StartTime is when execution began, in Unix milliseconds.
	StartTime int64 `json:"startTime,omitempty"`
	// EndTime is when execution settled, in Unix milliseconds.
	EndTime int64 `json:"endTime,omitempty"`
}

// AgentResponse is the common result envelope returned by every specialist
// worker and by the completion service. Workers never return Go errors;
// failures are carried in Error with Success false.
type AgentResponse struct {
	// Success indicates whether the operation produced usable data.
	Success bool `json:"success"`
	// Data is the structured worker output, present on success.
	Data map[string]any `json:"data,omitempty"`
	// Error is the failure message, present when Success is false.
	Error string `json:"error,omitempty"`
	// TokensUsed is the LLM token count for the call, if known.
	TokensUsed int64 `json:"tokensUsed,omitempty"`
	// DurationMs is the wall-clock duration of the call.
	DurationMs int64 `json:"durationMs,omitempty"`
}
