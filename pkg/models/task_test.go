package models

import "testing"

func TestTaskTypeValid(t *testing.T) {
	valid := []TaskType{TaskResearch, TaskAnalysis, TaskCode, TaskSynthesis}
	for _, tt := range valid {
		if !tt.Valid() {
			t.Errorf("TaskType(%q).Valid() = false, want true", tt)
		}
	}
	if TaskType("planner").Valid() {
		t.Error("unknown task type should not be valid")
	}
}

func TestTaskStatusTerminal(t *testing.T) {
	tests := []struct {
		status TaskStatus
		want   bool
	}{
		{TaskPending, false},
		{TaskRunning, false},
		{TaskCompleted, true},
		{TaskFailed, true},
	}
	for _, tc := range tests {
		if got := tc.status.Terminal(); got != tc.want {
			t.Errorf("TaskStatus(%q).Terminal() = %v, want %v", tc.status, got, tc.want)
		}
	}
}

func TestRoleValid(t *testing.T) {
	for _, r := range []Role{RoleUser, RoleAssistant, RoleSystem} {
		if !r.Valid() {
			t.Errorf("Role(%q).Valid() = false, want true", r)
		}
	}
	if Role("bot").Valid() {
		t.Error("unknown role should not be valid")
	}
}
