/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

package changeset

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/acronis/go-carpet/change"
)

func TestFormatFromPath(t *testing.T) {
	tests := []struct {
		path   string
		want   DocumentFormat
		wantOK bool
	}{
		{path: "ChangeSet.json", want: FormatJSON, wantOK: true},
		{path: "dir/ChangeSet.XML", want: FormatXML, wantOK: true},
		{path: "changes.yml", want: FormatYAML, wantOK: true},
		{path: "changes.yaml", want: FormatYAML, wantOK: true},
		{path: "1-create.sql"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, ok := FormatFromPath(tt.path)
			require.Equal(t, tt.wantOK, ok)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestEncodeDocument_XML(t *testing.T) {
	task, err := change.NewScriptTask("create users", 1, "CREATE TABLE users (id INT)", "")
	require.NoError(t, err)
	c, err := change.New("1.0.0", task)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, EncodeDocument(&buf, FormatXML, []*change.Change{c}))
	out := buf.String()
	require.True(t, strings.HasPrefix(out, "<changeList>"))
	require.Contains(t, out, `<task type="ScriptTask">`)
	require.Contains(t, out, "<version>1.0.0</version>")
	require.NotContains(t, out, "<delimiter>")

	changes, err := DecodeDocument(strings.NewReader(out), FormatXML, nil)
	require.NoError(t, err)
	require.Len(t, changes, 1)
	require.Equal(t, []string{"CREATE TABLE users (id INT)"}, changes[0].Tasks()[0].Statements())
}
