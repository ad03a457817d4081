package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"
)

func TestCodeOf_Wrapped(t *testing.T) {
	base := New(CodeDuplicateKey, "bill exists for flat %s", "A1")
	wrapped := fmt.Errorf("insert bill: %w", base)

	if got := CodeOf(wrapped); got != CodeDuplicateKey {
		t.Fatalf("CodeOf = %q, want %q", got, CodeDuplicateKey)
	}
	if !Is(wrapped, CodeDuplicateKey) {
		t.Fatalf("Is should see the code through wrapping")
	}
}

func TestWrap_PreservesCause(t *testing.T) {
	cause := stdErrors.New("disk full")
	err := Wrap(CodePersistenceFailure, cause, "commit bill transaction")

	if !stdErrors.Is(err, cause) {
		t.Fatalf("expected cause in chain")
	}
	if got := CodeOf(err); got != CodePersistenceFailure {
		t.Fatalf("CodeOf = %q", got)
	}
}

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		code Code
		want int
	}{
		{CodeInvalidInput, http.StatusBadRequest},
		{CodeNotFound, http.StatusNotFound},
		{CodeDuplicateKey, http.StatusConflict},
		{CodeMisconfiguredTariff, http.StatusUnprocessableEntity},
		{CodePersistenceFailure, http.StatusInternalServerError},
		{Code("UNKNOWN"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := HTTPStatus(tc.code); got != tc.want {
			t.Errorf("HTTPStatus(%s) = %d, want %d", tc.code, got, tc.want)
		}
	}
}

func TestCodeOf_PlainError(t *testing.T) {
	if got := CodeOf(stdErrors.New("plain")); got != "" {
		t.Fatalf("plain errors carry no code, got %q", got)
	}
}
