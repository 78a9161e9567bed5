package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestIsUniqueViolation(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		constraint string
		want       bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "postgres", err: errors.New(`ERROR: duplicate key value violates unique constraint "idx_items_code"`), want: true},
		{name: "sqlite", err: errors.New("UNIQUE constraint failed: items.code"), want: true},
		{name: "named match", err: errors.New("UNIQUE constraint failed: items.code"), constraint: "items.code", want: true},
		{name: "named miss", err: errors.New("UNIQUE constraint failed: plants.code"), constraint: "items.code", want: false},
		{name: "other", err: errors.New("connection reset"), want: false},
		{name: "pg code", err: fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505", ConstraintName: "idx_items_code"}), want: true},
		{name: "pg constraint", err: &pgconn.PgError{Code: "23505", ConstraintName: "idx_items_code"}, constraint: "idx_items_code", want: true},
		{name: "pg other constraint", err: &pgconn.PgError{Code: "23505", ConstraintName: "idx_plants_code"}, constraint: "idx_items_code", want: false},
		{name: "pg fk", err: &pgconn.PgError{Code: "23503", Message: "duplicate key value"}, want: false},
	}

	for _, tc := range cases {
		if got := IsUniqueViolation(tc.err, tc.constraint); got != tc.want {
			t.Fatalf("%s: expected %v got %v", tc.name, tc.want, got)
		}
	}
}
