package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

func TestMetadataForKnownCodes(t *testing.T) {
	tests := []struct {
		code      Code
		status    int
		publicMsg string
		retryable bool
		detailsOK bool
	}{
		{code: CodeValidation, status: http.StatusBadRequest, publicMsg: "validation failed", detailsOK: true},
		{code: CodeUnauthorized, status: http.StatusUnauthorized, publicMsg: "authentication required"},
		{code: CodeForbidden, status: http.StatusForbidden, publicMsg: "access denied"},
		{code: CodeNotFound, status: http.StatusNotFound, publicMsg: "resource not found"},
		{code: CodeConflict, status: http.StatusConflict, publicMsg: "conflict detected", retryable: true},
		{code: CodeStateConflict, status: http.StatusUnprocessableEntity, publicMsg: "state transition disallowed", detailsOK: true},
		{code: CodeInternal, status: http.StatusInternalServerError, publicMsg: "internal server error", retryable: true},
		{code: CodeDependency, status: http.StatusServiceUnavailable, publicMsg: "dependency unavailable", retryable: true, detailsOK: true},
	}

	for _, tt := range tests {
		meta := MetadataFor(tt.code)
		if meta.HTTPStatus != tt.status {
			t.Fatalf("code %s expected status %d got %d", tt.code, tt.status, meta.HTTPStatus)
		}
		if meta.PublicMessage != tt.publicMsg {
			t.Fatalf("code %s expected public message %q got %q", tt.code, tt.publicMsg, meta.PublicMessage)
		}
		if meta.Retryable != tt.retryable {
			t.Fatalf("code %s expected retryable %v got %v", tt.code, tt.retryable, meta.Retryable)
		}
		if meta.DetailsAllowed != tt.detailsOK {
			t.Fatalf("code %s expected details allowed %v got %v", tt.code, tt.detailsOK, meta.DetailsAllowed)
		}
	}
}

func TestMetadataForUnknownCodeDefaultsToInternal(t *testing.T) {
	meta := MetadataFor("SOMETHING_UNKNOWN")
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("expected internal status, got %d", meta.HTTPStatus)
	}
}

func TestErrorConstructors(t *testing.T) {
	base := New(CodeValidation, "missing foo")
	if base.Code() != CodeValidation {
		t.Fatalf("expected validation code, got %s", base.Code())
	}
	if base.Message() != "missing foo" {
		t.Fatalf("unexpected message %q", base.Message())
	}
	if base.Details() != nil {
		t.Fatalf("details should be nil by default")
	}

	detail := map[string]any{"field": "foo"}
	base.WithDetails(detail)
	if base.Details() == nil {
		t.Fatalf("details should be preserved")
	}

	cause := stdErrors.New("boom")
	wrapped := Wrap(CodeConflict, cause, "ctx")
	if !stdErrors.Is(wrapped, cause) {
		t.Fatalf("Wrap did not preserve cause")
	}
	if wrapped.Code() != CodeConflict {
		t.Fatalf("unexpected code %s", wrapped.Code())
	}
}

func TestAsReturnsTypedError(t *testing.T) {
	err := New(CodeForbidden, "no entry")
	if got := As(err); got == nil || got.Code() != CodeForbidden {
		t.Fatalf("As failed to return typed error")
	}
	if As(nil) != nil {
		t.Fatalf("As(nil) should return nil")
	}
}

func TestReasonRoundTrip(t *testing.T) {
	sentinel := stdErrors.New("already screened")
	err := Wrap(CodeStateConflict, sentinel, "application already screened").WithReason("already_screened")

	wrapped := fmt.Errorf("screen: %w", err)
	if got := ReasonOf(wrapped); got != "already_screened" {
		t.Fatalf("expected reason already_screened, got %q", got)
	}
	if !stdErrors.Is(wrapped, sentinel) {
		t.Fatalf("expected sentinel to survive wrapping")
	}
	if !IsCode(wrapped, CodeStateConflict) {
		t.Fatalf("expected state conflict code")
	}
	if ReasonOf(stdErrors.New("plain")) != "" {
		t.Fatalf("plain errors carry no reason")
	}
}

func TestDumpCollectsChain(t *testing.T) {
	err := fmt.Errorf("outer: %w", Wrap(CodeDependency, stdErrors.New("conn refused"), "redis down"))
	d := Dump(err)
	if d.Code != CodeDependency {
		t.Fatalf("expected dependency code, got %s", d.Code)
	}
	if len(d.Chain) != 3 {
		t.Fatalf("expected 3 chain entries, got %d", len(d.Chain))
	}
}

func TestPostgresDetailsFromEitherDriver(t *testing.T) {
	pgx := fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505", ConstraintName: "uq_trainees_number"})
	d, ok := PostgresDetails(pgx)
	if !ok || d.Code != "23505" || d.Constraint != "uq_trainees_number" {
		t.Fatalf("unexpected pgx details %+v ok=%v", d, ok)
	}

	pqErr := fmt.Errorf("insert: %w", &pq.Error{Code: "23505", Constraint: "uq_users_email"})
	d, ok = PostgresDetails(pqErr)
	if !ok || d.Constraint != "uq_users_email" {
		t.Fatalf("unexpected pq details %+v ok=%v", d, ok)
	}
	if dump := Dump(pqErr); dump.PGCode != "23505" {
		t.Fatalf("expected dump to carry pg code, got %q", dump.PGCode)
	}

	if _, ok := PostgresDetails(stdErrors.New("plain")); ok {
		t.Fatalf("plain errors carry no postgres details")
	}
}

func TestWithReasonKeepsMapDetails(t *testing.T) {
	err := New(CodeValidation, "bad fee").WithDetails(map[string]any{"field": "amount"}).WithReason("amount_negative")
	details, ok := err.Details().(map[string]any)
	if !ok {
		t.Fatalf("expected map details, got %T", err.Details())
	}
	if details["field"] != "amount" || details["reason"] != "amount_negative" {
		t.Fatalf("unexpected details %#v", details)
	}
}
