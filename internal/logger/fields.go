package logger

import (
	"strings"

	"go.uber.org/zap"
)

const (
	// FieldViewer is the structured log field key for the viewing user id.
	FieldViewer = "viewer_id"
	// FieldTarget is the structured log field key for the viewed user id.
	FieldTarget = "target_id"
	// FieldProvider is the structured log field key for the bio analysis provider.
	FieldProvider = "analysis_provider"
	// FieldModel is the structured log field key for the model identifier.
	FieldModel = "analysis_model"
	// FieldDynamic is the structured log field key for a dynamic relationship id.
	FieldDynamic = "dynamic_id"
	// FieldWindow is the structured log field key for a first-window id.
	FieldWindow = "window_id"
)

// StringField describes a string-valued structured logging field.
type StringField struct {
	Key   string
	Value string
}

// StringFields converts the provided key/value pairs into zap fields, trimming
// whitespace and omitting entries with empty keys or values.
func StringFields(fields ...StringField) []zap.Field {
	result := make([]zap.Field, 0, len(fields))
	for _, field := range fields {
		key := strings.TrimSpace(field.Key)
		if key == "" {
			continue
		}

		value := strings.TrimSpace(field.Value)
		if value == "" {
			continue
		}

		result = append(result, zap.String(key, value))
	}
	return result
}

// PairFields returns the standard viewer/target fields used across the
// matching pipeline so log lines stay greppable by pair.
func PairFields(viewerID, targetID string) []zap.Field {
	return StringFields(
		StringField{Key: FieldViewer, Value: viewerID},
		StringField{Key: FieldTarget, Value: targetID},
	)
}
