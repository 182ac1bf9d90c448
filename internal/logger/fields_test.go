package logger

import (
	"testing"

	"go.uber.org/zap"
)

func TestStringFieldsSkipsEmptyEntries(t *testing.T) {
	t.Parallel()

	fields := StringFields(
		StringField{Key: "  ", Value: "ignored"},
		StringField{Key: FieldProvider, Value: " heuristic "},
		StringField{Key: FieldModel, Value: ""},
	)

	if len(fields) != 1 {
		t.Fatalf("expected exactly one field, got %d", len(fields))
	}

	expected := zap.String(FieldProvider, "heuristic")
	if !fields[0].Equals(expected) {
		t.Fatalf("unexpected field: %+v", fields[0])
	}
}

func TestPairFields(t *testing.T) {
	t.Parallel()

	fields := PairFields("u1", "u2")
	if len(fields) != 2 {
		t.Fatalf("expected two fields, got %d", len(fields))
	}
	if !fields[0].Equals(zap.String(FieldViewer, "u1")) {
		t.Fatalf("unexpected viewer field: %+v", fields[0])
	}
	if !fields[1].Equals(zap.String(FieldTarget, "u2")) {
		t.Fatalf("unexpected target field: %+v", fields[1])
	}
}
