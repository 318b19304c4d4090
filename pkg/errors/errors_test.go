package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

func TestMetadataTable(t *testing.T) {
	cases := map[Code]Metadata{
		CodeValidation:         {HTTPStatus: http.StatusBadRequest, PublicMessage: "validation failed", DetailsAllowed: true, ExposeMessage: true},
		CodeUnauthorized:       {HTTPStatus: http.StatusUnauthorized, PublicMessage: "authentication required", ExposeMessage: true},
		CodeHospitalUnassigned: {HTTPStatus: http.StatusForbidden, PublicMessage: "user not assigned to a hospital", ExposeMessage: true},
		CodeStateConflict:      {HTTPStatus: http.StatusUnprocessableEntity, PublicMessage: "state transition disallowed", DetailsAllowed: true, ExposeMessage: true},
		CodeIdempotency:        {HTTPStatus: http.StatusConflict, PublicMessage: "idempotency key reused", DetailsAllowed: true, ExposeMessage: true},
		CodeInternal:           {HTTPStatus: http.StatusInternalServerError, PublicMessage: "internal server error", Retryable: true},
		CodeDependency:         {HTTPStatus: http.StatusServiceUnavailable, PublicMessage: "dependency unavailable", Retryable: true, DetailsAllowed: true},
	}
	for code, want := range cases {
		if got := MetadataFor(code); got != want {
			t.Fatalf("%s: got %+v want %+v", code, got, want)
		}
	}
	if got := MetadataFor("SOMETHING_UNKNOWN"); got != MetadataFor(CodeInternal) {
		t.Fatalf("unknown code should map to internal, got %+v", got)
	}
}

func TestWrapKeepsCause(t *testing.T) {
	cause := stdErrors.New("boom")
	wrapped := Wrap(CodeConflict, cause, "email already registered").WithDetails(map[string]any{"field": "email"})
	if !stdErrors.Is(wrapped, cause) {
		t.Fatalf("Wrap did not preserve cause")
	}
	if wrapped.Code() != CodeConflict || wrapped.Message() != "email already registered" || wrapped.Details() == nil {
		t.Fatalf("unexpected wrapped error %+v", wrapped)
	}
	var nilErr *Error
	if nilErr.Code() != CodeInternal || nilErr.WithDetails("x") != nil {
		t.Fatalf("nil receiver should be safe")
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

func TestIsCode(t *testing.T) {
	err := fmt.Errorf("outer: %w", New(CodeHospitalUnassigned, "User not assigned to a hospital"))
	if !IsCode(err, CodeHospitalUnassigned) {
		t.Fatalf("expected wrapped code to match")
	}
	if IsCode(err, CodeNotFound) {
		t.Fatalf("did not expect NOT_FOUND to match")
	}
	if IsCode(stdErrors.New("plain"), CodeInternal) {
		t.Fatalf("plain errors carry no code")
	}
}

func TestInspectCollectsChainAndPostgres(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "shifts_user_date_key", TableName: "shifts"}
	err := Wrap(CodeConflict, fmt.Errorf("insert shift: %w", pgErr), "shift already exists")

	tr := Inspect(err)
	if tr.Code != CodeConflict {
		t.Fatalf("expected conflict code, got %s", tr.Code)
	}
	if len(tr.Chain) != 3 {
		t.Fatalf("expected 3 chain entries, got %v", tr.Chain)
	}
	if tr.Postgres == nil || tr.Postgres.Constraint != "shifts_user_date_key" {
		t.Fatalf("expected postgres constraint, got %+v", tr.Postgres)
	}
	fields := tr.Fields()
	if fields["pg_code"] != "23505" || fields["pg_table"] != "shifts" {
		t.Fatalf("unexpected fields %v", fields)
	}
	if _, ok := fields["pg_column"]; ok {
		t.Fatalf("empty postgres fields must be omitted")
	}
}

func TestInspectRecognisesLibPQ(t *testing.T) {
	err := fmt.Errorf("goose up: %w", &pq.Error{Code: "42P07", Message: "relation exists"})
	tr := Inspect(err)
	if tr.Postgres == nil || tr.Postgres.Code != "42P07" {
		t.Fatalf("expected lib/pq error to be recognised, got %+v", tr.Postgres)
	}
	if tr.Code != "" {
		t.Fatalf("untyped error should carry no code, got %s", tr.Code)
	}
	if Inspect(nil).Chain != nil {
		t.Fatalf("nil error should produce an empty trace")
	}
}

func TestPublicMessageAndDetails(t *testing.T) {
	exposed := New(CodeStateConflict, "exchange already answered").WithDetails(map[string]string{"status": "accepted"})
	if got := exposed.PublicMessage(); got != "exchange already answered" {
		t.Fatalf("unexpected public message %q", got)
	}
	if exposed.PublicDetails() == nil {
		t.Fatalf("state conflict details should be public")
	}

	hidden := Wrap(CodeInternal, stdErrors.New("pq: connection reset"), "load exchanges").WithDetails("secret")
	if got := hidden.PublicMessage(); got != "internal server error" {
		t.Fatalf("internal message leaked: %q", got)
	}
	if hidden.PublicDetails() != nil {
		t.Fatalf("internal details leaked")
	}

	if got := New(CodeForbidden, "").PublicMessage(); got != "access denied" {
		t.Fatalf("empty message should fall back, got %q", got)
	}
}

func TestErrorStringIncludesCause(t *testing.T) {
	err := Wrap(CodeDependency, stdErrors.New("dial tcp: refused"), "publish event")
	if got := err.Error(); got != "DEPENDENCY_ERROR: publish event: dial tcp: refused" {
		t.Fatalf("unexpected error string %q", got)
	}
	if got := Newf(CodeNotFound, "shift %d", 7).Error(); got != "NOT_FOUND: shift 7" {
		t.Fatalf("unexpected error string %q", got)
	}
}
