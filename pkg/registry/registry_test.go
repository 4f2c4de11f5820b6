// pkg/registry/registry_test.go
package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `{
  "version": "2",
  "screens": {
    "advisor": {
      "flow": ["greeting", "pitchHelp"],
      "rules": [
        {"intent": "greeting", "class": "greeting", "keywords": ["hi"]},
        {"intent": "pitchHelp", "class": "flow", "keywords": ["pitch", "slogan"]}
      ]
    }
  },
  "messages": {"stuck.intro": "Round and round on %s."}
}`

func TestLoadRegistry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.json")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o600))

	reg, err := LoadRegistry(path)
	require.NoError(t, err)
	assert.Equal(t, "2", reg.Version)
	require.Contains(t, reg.Screens, "advisor")
	assert.Len(t, reg.Screens["advisor"].Rules, 2)
	assert.Equal(t, "Round and round on %s.", reg.Messages["stuck.intro"])
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"not json", `{`},
		{"missing version", `{"screens":{}}`},
		{"bad class", `{"version":"1","screens":{"advisor":{"rules":[{"intent":"x","class":"urgent","keywords":["a"]}]}}}`},
		{"empty keywords", `{"version":"1","screens":{"advisor":{"rules":[{"intent":"x","class":"flow","keywords":[]}]}}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			assert.Error(t, err)
		})
	}
}

func TestLoadRegistry_MissingFile(t *testing.T) {
	_, err := LoadRegistry(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}
