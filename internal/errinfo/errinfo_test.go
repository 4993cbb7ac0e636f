package errinfo

import (
	"errors"
	"fmt"
	"testing"
)

func TestUnauthenticated(t *testing.T) {
	err := Unauthenticated(PhaseProject)
	if err.ErrorCode != CodeUnauthenticated {
		t.Fatalf("expected unauthenticated")
	}
	if len(err.Actions) == 0 || err.Actions[0] != ActionSignIn {
		t.Fatalf("expected sign_in action")
	}
	if err.Detail != "Authentication required" {
		t.Fatalf("unexpected detail %q", err.Detail)
	}
}

func TestAuthHelpers(t *testing.T) {
	if got := InvalidCredentials().Detail; got != "Invalid credentials" {
		t.Fatalf("unexpected invalid credentials detail %q", got)
	}
	if got := EmailTaken().Detail; got != "Email already registered" {
		t.Fatalf("unexpected email taken detail %q", got)
	}
	notFound := ProjectNotFound("p1")
	if notFound.ErrorCode != CodeProjectNotFound || notFound.ProjectID != "p1" {
		t.Fatalf("expected project id to be set")
	}
}

func TestErrorInfoUnwrapsFromWrappedErrors(t *testing.T) {
	wrapped := fmt.Errorf("load project: %w", ValidationFailed(PhaseProject, "name required"))
	var info *ErrorInfo
	if !errors.As(wrapped, &info) {
		t.Fatalf("expected errors.As to find ErrorInfo")
	}
	if info.Error() != "VALIDATION_FAILED: name required" {
		t.Fatalf("unexpected message %q", info.Error())
	}
	if (&ErrorInfo{ErrorCode: CodeToolFailed}).Error() != CodeToolFailed {
		t.Fatalf("expected bare code without detail")
	}
}
