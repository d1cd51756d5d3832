package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestIsMatchesByCode(t *testing.T) {
	err := WithMetadata(CodeInvalidStatusTransition, "transaction status transition not allowed: approved -> pending",
		map[string]string{"from": "approved", "to": "pending"})
	wrapped := fmt.Errorf("update: %w", err)

	if !errors.Is(wrapped, New(CodeInvalidStatusTransition, "")) {
		t.Error("expected wrapped error to match by code")
	}
	if errors.Is(wrapped, New(CodeImmutableField, "")) {
		t.Error("expected different code not to match")
	}
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		err  error
		kind Kind
	}{
		{New(CodeMissingFields, "missing"), KindValidation},
		{New(CodeSameSchool, "same"), KindValidation},
		{New(CodeEquipmentNotFound, "nf"), KindNotFound},
		{New(CodeApproverRequired, "approver"), KindStateTransition},
		{New(CodeOnlyPendingDeletable, "delete"), KindConflict},
		{New(CodeImmutableField, "immutable"), KindConflict},
		{Wrap(CodeStoreFailure, "db", errors.New("boom")), KindStore},
		{errors.New("plain"), KindStore},
	}

	for _, tt := range tests {
		if got := KindOf(tt.err); got != tt.kind {
			t.Errorf("KindOf(%v) = %q, want %q", tt.err, got, tt.kind)
		}
	}
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		code Code
		want int
	}{
		{CodeInvalidRentalDates, http.StatusBadRequest},
		{CodeTransactionNotFound, http.StatusNotFound},
		{CodeInvalidStatusTransition, http.StatusUnprocessableEntity},
		{CodeOnlyPendingDeletable, http.StatusConflict},
		{CodeStoreFailure, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		if got := HTTPStatus(New(tt.code, "x")); got != tt.want {
			t.Errorf("HTTPStatus(%s) = %d, want %d", tt.code, got, tt.want)
		}
	}
}

func TestWrapUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(CodeStoreFailure, "failed to save transaction", cause)

	if !errors.Is(err, cause) {
		t.Error("expected cause to be reachable through Unwrap")
	}
	if err.Error() != "failed to save transaction: connection refused" {
		t.Errorf("unexpected message %q", err.Error())
	}
}
