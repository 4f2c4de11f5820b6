// internal/common/validation/schema_test.go
package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateTurnInput(t *testing.T) {
	tests := []struct {
		name     string
		input    map[string]interface{}
		valid    bool
		wantCode string
	}{
		{
			name:  "minimal",
			input: map[string]interface{}{"profileId": "p-1", "input": "hi"},
			valid: true,
		},
		{
			name:  "empty input allowed",
			input: map[string]interface{}{"profileId": "p-1", "input": ""},
			valid: true,
		},
		{
			name: "full payload",
			input: map[string]interface{}{
				"profileId":   "user@example.com",
				"screen":      "program",
				"input":       "show me the tactic",
				"situational": map[string]interface{}{"brandName": "Acme", "currentDay": 3},
				"progress":    map[string]interface{}{"completedDays": []interface{}{1, 2}},
			},
			valid: true,
		},
		{
			name:     "missing profile",
			input:    map[string]interface{}{"input": "hi"},
			wantCode: "REQUIRED_FIELD_MISSING",
		},
		{
			name:     "unknown screen",
			input:    map[string]interface{}{"profileId": "p", "input": "hi", "screen": "settings"},
			wantCode: "INVALID_ENUM_VALUE",
		},
		{
			name:     "profile with slash",
			input:    map[string]interface{}{"profileId": "../etc", "input": "hi"},
			wantCode: "PATTERN_MISMATCH",
		},
		{
			name:     "negative day",
			input:    map[string]interface{}{"profileId": "p", "input": "hi", "situational": map[string]interface{}{"currentDay": -1}},
			wantCode: "OUT_OF_RANGE",
		},
		{
			name:     "input not a string",
			input:    map[string]interface{}{"profileId": "p", "input": 42},
			wantCode: "INVALID_TYPE",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := ValidateTurnInput(tt.input)
			require.NotNil(t, res)
			assert.Equal(t, tt.valid, res.Valid, res.Error())
			if tt.wantCode != "" {
				require.NotEmpty(t, res.Errors)
				codes := make([]string, 0, len(res.Errors))
				for _, e := range res.Errors {
					codes = append(codes, e.Code)
				}
				assert.Contains(t, codes, tt.wantCode)
			}
		})
	}
}

func TestSchema_ValidateBytes(t *testing.T) {
	s := MustCompile(`{"type":"object","required":["text"],"properties":{"text":{"type":"string","minLength":1}}}`)

	assert.True(t, s.ValidateBytes([]byte(`{"text":"hello"}`)).Valid)

	res := s.ValidateBytes([]byte(`{"text":""}`))
	assert.False(t, res.Valid)
	assert.Equal(t, "INVALID_LENGTH", res.Errors[0].Code)

	res = s.ValidateBytes([]byte(`not json`))
	assert.False(t, res.Valid)
	assert.Equal(t, "MALFORMED_DOCUMENT", res.Errors[0].Code)
}

func TestCompile_Invalid(t *testing.T) {
	_, err := Compile(`{"type": 12}`)
	assert.Error(t, err)
	assert.Panics(t, func() { MustCompile(`{`) })
}
