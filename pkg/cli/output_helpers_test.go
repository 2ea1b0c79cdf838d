package cli

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateOutputFormat(t *testing.T) {
	tests := []struct {
		name    string
		output  string
		wantErr bool
	}{
		{name: "empty ok", output: "", wantErr: false},
		{name: "text ok", output: "text", wantErr: false},
		{name: "json ok", output: "json", wantErr: false},
		{name: "table rejected", output: "table", wantErr: true},
		{name: "yaml rejected", output: "yaml", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateOutputFormat(tt.output)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestPrintJSON_KeepsQueryOperators(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, PrintJSON(&buf, map[string]string{"queryIn": "SELECT * FROM t WHERE a > 1 && b < 2"}))

	assert.Contains(t, buf.String(), "a > 1 && b < 2")
	assert.Contains(t, buf.String(), "\n  \"queryIn\"")
}

func TestPrintJSONLine(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printJSONLine(&buf, json.RawMessage(`{"jobId": "j-1",  "stage": "IN_PROGRESS"}`)))
	assert.Equal(t, "{\"jobId\":\"j-1\",\"stage\":\"IN_PROGRESS\"}\n", buf.String())
}
