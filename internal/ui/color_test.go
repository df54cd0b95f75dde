package ui

import (
	"testing"

	"github.com/klauern/docsync/internal/model"
)

func TestStatusFunctions(t *testing.T) {
	DisableColors()
	defer EnableColors()

	tests := map[string]struct {
		fn    func(string) string
		input string
		want  string
	}{
		"success empty":    {StatusSuccess, "", SymbolSuccess},
		"success with msg": {StatusSuccess, "done", SymbolSuccess + " done"},
		"error with msg":   {StatusError, "failed", SymbolError + " failed"},
		"warning with msg": {StatusWarning, "caution", SymbolWarning + " caution"},
		"skipped empty":    {StatusSkipped, "", SymbolSkipped},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			if got := tt.fn(tt.input); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestColorToggle(t *testing.T) {
	initial := IsColorEnabled()
	defer func() {
		if initial {
			EnableColors()
		} else {
			DisableColors()
		}
	}()

	DisableColors()
	if IsColorEnabled() {
		t.Error("expected colors to be disabled")
	}
	EnableColors()
	if !IsColorEnabled() {
		t.Error("expected colors to be enabled")
	}

	Configure(true)
	if IsColorEnabled() {
		t.Error("Configure(true) left colors enabled")
	}
}

func TestAction(t *testing.T) {
	DisableColors()
	defer EnableColors()

	if got := Action(model.ActionPush); got != "[PUSH]" {
		t.Errorf("Action(PUSH) = %q, want [PUSH]", got)
	}
	if got := Action(model.ActionConflict); got != "[CONFLICT]" {
		t.Errorf("Action(CONFLICT) = %q, want [CONFLICT]", got)
	}
}

func TestResult(t *testing.T) {
	DisableColors()
	defer EnableColors()

	tests := map[string]struct {
		res  model.SyncResult
		want string
	}{
		"pushed": {
			res:  model.SyncResult{LocalPath: "a.md", RemoteName: "Docs/a", Action: model.ActionPush, Success: true},
			want: SymbolSuccess + " a.md -> Docs/a",
		},
		"failed": {
			res:  model.SyncResult{LocalPath: "a.md", RemoteName: "Docs/a", Action: model.ActionPush, Error: "boom"},
			want: SymbolError + " a.md -> Docs/a: boom",
		},
		"conflict with note": {
			res:  model.SyncResult{LocalPath: "a.md", RemoteName: "Docs/a", Action: model.ActionConflict, Success: true, Error: "conflict markers written"},
			want: SymbolWarning + " a.md -> Docs/a (conflict markers written)",
		},
		"run level failure": {
			res:  model.SyncResult{Action: model.ActionSkip, Error: "blocked"},
			want: SymbolError + " (run): blocked",
		},
		"skip": {
			res:  model.SyncResult{LocalPath: "a.md", RemoteName: "Docs/a", Action: model.ActionSkip, Success: true},
			want: SymbolSkipped + " a.md -> Docs/a",
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			if got := Result(tt.res); got != tt.want {
				t.Errorf("Result() = %q, want %q", got, tt.want)
			}
		})
	}
}
