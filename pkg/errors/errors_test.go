package errors

import (
	stderrors "errors"
	"strings"
	"testing"
)

func TestErrorFormatting(t *testing.T) {
	err := New(CodeViewBound, "view already bound").
		WithContext("record_id", "abc")

	msg := err.Error()
	if !strings.Contains(msg, "[VIEW_BOUND]") {
		t.Fatalf("expected code in message, got %q", msg)
	}
	if !strings.Contains(msg, "record_id: abc") {
		t.Fatalf("expected context in message, got %q", msg)
	}
}

func TestWrapNil(t *testing.T) {
	if got := Wrap(nil, CodeStoreRead, "read"); got != nil {
		t.Fatalf("wrapping nil should return nil, got %v", got)
	}
}

func TestUnwrap(t *testing.T) {
	cause := stderrors.New("boom")
	err := Wrap(cause, CodeTransportSend, "send failed")

	if !stderrors.Is(err, cause) {
		t.Fatal("expected errors.Is to find the cause")
	}
	if !strings.Contains(err.Error(), "boom") {
		t.Fatalf("expected cause in message, got %q", err.Error())
	}
}

func TestCodeClasses(t *testing.T) {
	cases := []struct {
		code  Code
		class func(error) bool
	}{
		{CodeDuplicateKind, IsValidation},
		{CodeUnknownAction, IsValidation},
		{CodeViewBound, IsState},
		{CodeMediaUpgrade, IsState},
		{CodeViewDisabled, IsState},
		{CodeTransportEdit, IsTransport},
		{CodeStoreNotFound, IsStore},
	}
	for _, tc := range cases {
		if !tc.class(New(tc.code, "x")) {
			t.Errorf("code %s not recognized by its class predicate", tc.code)
		}
	}

	if IsState(New(CodeDuplicateKind, "x")) {
		t.Error("validation code classified as state")
	}
	if IsTransport(nil) {
		t.Error("nil classified as transport")
	}
}

func TestGetCode(t *testing.T) {
	if got := GetCode(nil); got != "" {
		t.Fatalf("nil error should have empty code, got %q", got)
	}
	if got := GetCode(stderrors.New("plain")); got != CodeInternal {
		t.Fatalf("plain error should map to INTERNAL, got %q", got)
	}
	if !IsCode(New(CodeLockAnomaly, "x"), CodeLockAnomaly) {
		t.Fatal("IsCode failed for matching code")
	}
}
