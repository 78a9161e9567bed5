package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
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
		{code: CodeNotFound, status: http.StatusNotFound, publicMsg: "resource not found"},
		{code: CodeIdempotency, status: http.StatusConflict, publicMsg: "idempotency key reused with different payload"},
		{code: CodeConflict, status: http.StatusConflict, publicMsg: "conflict detected"},
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
	if wrapped.Error() != "CONFLICT: ctx: boom" {
		t.Fatalf("unexpected error text %q", wrapped.Error())
	}

	formatted := Newf(CodeNotFound, "plant %s not found", "P-9")
	if formatted.Message() != "plant P-9 not found" || formatted.Error() != "NOT_FOUND: plant P-9 not found" {
		t.Fatalf("unexpected formatted error %q", formatted.Error())
	}
}

func TestIsRetryable(t *testing.T) {
	if IsRetryable(nil) {
		t.Fatalf("nil error is not retryable")
	}
	if !IsRetryable(stdErrors.New("connection reset")) {
		t.Fatalf("uncoded errors should be retryable")
	}
	if !IsRetryable(fmt.Errorf("ping: %w", New(CodeDependency, "db down"))) {
		t.Fatalf("dependency errors should be retryable")
	}
	if IsRetryable(New(CodeInvalidHarvestPrecondition, "not growing")) {
		t.Fatalf("rule violations are not retryable")
	}
}

func TestExposeMessage(t *testing.T) {
	if !MetadataFor(CodeValidation).ExposeMessage {
		t.Fatalf("validation messages should be exposed")
	}
	if MetadataFor(CodeInternal).ExposeMessage || MetadataFor(CodeDependency).ExposeMessage {
		t.Fatalf("server-side messages must stay hidden")
	}
}

func TestAsReturnsTypedError(t *testing.T) {
	err := fmt.Errorf("lookup: %w", New(CodeNotFound, "no entry"))
	if got := As(err); got == nil || got.Code() != CodeNotFound {
		t.Fatalf("As failed to return typed error")
	}
	if As(nil) != nil {
		t.Fatalf("As(nil) should return nil")
	}
}

func TestMetadataForPlantRuleCodes(t *testing.T) {
	codes := []Code{
		CodeInactivePlant,
		CodePlantScheduledForDestruction,
		CodeInvalidHarvestPrecondition,
		CodeInvalidCurePrecondition,
		CodeInvalidConvertPrecondition,
		CodePlantNotActive,
		CodeTransactionNoLongerReversible,
	}
	for _, code := range codes {
		meta := MetadataFor(code)
		if meta.HTTPStatus != http.StatusUnprocessableEntity {
			t.Fatalf("code %s expected 422 got %d", code, meta.HTTPStatus)
		}
		if meta.Retryable {
			t.Fatalf("code %s should not be retryable", code)
		}
		if !meta.DetailsAllowed {
			t.Fatalf("code %s should expose details", code)
		}
	}
}

func TestIsCodeWalksWrappedChain(t *testing.T) {
	inner := New(CodeInvalidCurePrecondition, "Plant P-1 must be in Drying state for cure.")
	outer := fmt.Errorf("submit: %w", inner)
	if !IsCode(outer, CodeInvalidCurePrecondition) {
		t.Fatalf("expected IsCode to find wrapped code")
	}
	if IsCode(outer, CodeInactivePlant) {
		t.Fatalf("unexpected code match")
	}
	if IsCode(nil, CodeInactivePlant) {
		t.Fatalf("nil error must not match")
	}
}

func TestDumpCollectsPostgresDetail(t *testing.T) {
	pgErr := &pgconn.PgError{Code: PGUniqueViolation, ConstraintName: "idx_items_code", TableName: "items", Message: "duplicate key value"}
	err := Wrap(CodeConflict, fmt.Errorf("insert item: %w", pgErr), "item code already issued")

	dump := Dump(err)
	if dump.Code != CodeConflict {
		t.Fatalf("expected conflict code, got %s", dump.Code)
	}
	if dump.Postgres.Constraint != "idx_items_code" || PGCode(err) != PGUniqueViolation {
		t.Fatalf("expected postgres detail, got %+v", dump.Postgres)
	}
	if len(dump.Chain) < 3 {
		t.Fatalf("expected wrapped chain, got %v", dump.Chain)
	}

	fields := dump.Fields()
	if fields["pg_table"] != "items" {
		t.Fatalf("expected pg_table field, got %v", fields["pg_table"])
	}
	if _, ok := fields["pg_column"]; ok {
		t.Fatalf("empty postgres fields should be omitted")
	}
}

func TestDumpPlainError(t *testing.T) {
	dump := Dump(stdErrors.New("boom"))
	if dump.Code != "" || dump.Postgres.Code != "" {
		t.Fatalf("unexpected dump %+v", dump)
	}
	if dump.Fields()["error"] != "boom" {
		t.Fatalf("expected top message in fields")
	}
	if Dump(nil).TopMessage != "" {
		t.Fatalf("nil error should dump empty")
	}
}
