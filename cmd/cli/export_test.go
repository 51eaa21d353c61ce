package cli

import (
	"bytes"
	"encoding/base64"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/micuatri/calendarlink/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseExportRequest(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantItems int
		wantFrom  string
		wantTitle string
	}{
		{
			name: "yaml document",
			input: `
from: 2025-03-01
items:
  - externalKey: "schedule:1"
    title: Algebra
    start: 2025-03-03T08:00:00
    end: 2025-03-03T10:00:00
    category: Class
`,
			wantItems: 1,
			wantFrom:  "2025-03-01",
			wantTitle: "Algebra",
		},
		{
			name:      "json document",
			input:     `{"items":[{"source":"schedule","sourceId":"2","title":"Physics","start":"2025-03-04T08:00:00Z","end":"2025-03-04T09:00:00Z"}]}`,
			wantItems: 1,
			wantTitle: "Physics",
		},
		{
			name: "bare list",
			input: `
- title: One
  externalKey: a
- title: Two
  externalKey: b
`,
			wantItems: 2,
			wantTitle: "One",
		},
		{
			name:      "empty file",
			input:     "",
			wantItems: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			request, err := parseExportRequest([]byte(tt.input))
			require.NoError(t, err)

			assert.Len(t, request.Items, tt.wantItems)
			assert.Equal(t, tt.wantFrom, request.From)
			if tt.wantTitle != "" {
				assert.Equal(t, tt.wantTitle, request.Items[0].Title)
			}
		})
	}
}

func TestParseExportRequest_Invalid(t *testing.T) {
	_, err := parseExportRequest([]byte("items: [unterminated"))
	assert.Error(t, err)
}

func TestLoadExportRequest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "items.yaml")
	require.NoError(t, os.WriteFile(path, []byte("items:\n  - title: Lab\n    externalKey: lab:1\n"), 0o600))

	request, err := loadExportRequest(path)
	require.NoError(t, err)
	require.Len(t, request.Items, 1)
	assert.Equal(t, "lab:1", request.Items[0].ExternalKey)

	_, err = loadExportRequest(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "failed to read batch file")
}

func TestPrintSummary(t *testing.T) {
	var out bytes.Buffer

	printSummary(&out, domain.ExportSummary{
		Created: 2,
		Updated: 1,
		Failed:  1,
		Errors:  []string{"item 3 lab:1: validation failed"},
	})

	assert.Contains(t, out.String(), "Created: 2")
	assert.Contains(t, out.String(), "Updated: 1")
	assert.Contains(t, out.String(), "Failed:  1")
	assert.Contains(t, out.String(), "item 3 lab:1")
}

func TestKeygenCommand(t *testing.T) {
	var out bytes.Buffer

	cmd := NewRootCommand()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"keygen"})

	require.NoError(t, cmd.Execute())

	key, err := base64.StdEncoding.DecodeString(strings.TrimSpace(out.String()))
	require.NoError(t, err)
	assert.Len(t, key, 32)
}
