package storeerrors

import (
	"errors"
	"testing"
)

func TestStoreError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *StoreError
		want string
	}{
		{
			name: "error without underlying error",
			err:  New(CodeNotFound, "entity not found").WithOp("get"),
			want: "[NOT_FOUND] entity not found (op=get)",
		},
		{
			name: "error with underlying error",
			err:  Wrap(CodeInternal, "test message", errors.New("underlying")).WithOp("sync"),
			want: "[INTERNAL] test message (op=sync): underlying",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStoreError_Unwrap(t *testing.T) {
	underlying := errors.New("underlying error")
	err := Wrap(CodeInternal, "test", underlying)

	if got := err.Unwrap(); got != underlying {
		t.Errorf("Unwrap() = %v, want %v", got, underlying)
	}
}

func TestStoreError_WithDetail(t *testing.T) {
	err := New(CodeValidation, "test")
	err.WithDetail("field", "username").WithDetail("reason", "too short")

	if len(err.Details) != 2 {
		t.Errorf("Details length = %d, want 2", len(err.Details))
	}
	if err.Details["field"] != "username" {
		t.Errorf("Details[field] = %v, want username", err.Details["field"])
	}
}

func TestIsAndAs(t *testing.T) {
	err := NotFound("u1")
	if !Is(err, CodeNotFound) {
		t.Error("Is() = false, want true")
	}
	if Is(err, CodeConflict) {
		t.Error("Is() = true, want false")
	}

	wrapped := errors.Join(errors.New("context"), err)
	if got := As(wrapped); got == nil || got.Code != CodeNotFound {
		t.Errorf("As() = %v, want a NotFound StoreError", got)
	}
}

func TestConflictErr(t *testing.T) {
	err := ConflictErr(map[string]string{"name": "local"}, map[string]string{"name": "remote"}, "version mismatch")
	if err.Code != CodeConflict {
		t.Errorf("Code = %v, want CodeConflict", err.Code)
	}
	if err.Details["local"] == nil || err.Details["remote"] == nil {
		t.Error("ConflictErr should carry both local and remote payloads")
	}
}
