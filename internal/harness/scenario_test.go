package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalScenario = `
name: minimal
description: "smallest valid scenario"
inline:
  name: tiny
  root:
    id: r
steps:
  - action: start
assertions:
  - type: suspend_balanced
`

func TestParseScenario_Minimal(t *testing.T) {
	s, err := ParseScenario([]byte(minimalScenario))
	require.NoError(t, err)

	assert.Equal(t, "minimal", s.Name)
	require.NotNil(t, s.Inline)
	assert.Equal(t, "r", s.Inline.Root.ID)
	assert.Equal(t, []Step{{Action: StepStart}}, s.Steps)
}

func TestLoadScenario_ResolvesCoursePath(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/randomise_restores.yaml")
	require.NoError(t, err)

	assert.Equal(t, filepath.Join("testdata", "courses", "quiz.yaml"), s.Course)
	assert.Nil(t, s.Inline)
	require.Len(t, s.Steps, 4)
	assert.Equal(t, []string{"2"}, s.Steps[0].IDs)
}

func TestLoadScenario_MissingCourse(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s.yaml")
	body := `
name: x
description: "d"
course: nowhere.yaml
steps: [{action: start}]
assertions: [{type: suspend_balanced}]
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "course not found")
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario("testdata/scenarios/missing.yaml")
	assert.Error(t, err)
}

func TestParseScenario_RejectsUnknownFields(t *testing.T) {
	_, err := ParseScenario([]byte(minimalScenario + "assertion: []\n"))
	assert.Error(t, err)
}

func TestParseScenario_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "missing name",
			yaml:    `{description: d, inline: {name: n, root: {id: r}}, steps: [{action: start}], assertions: [{type: suspend_balanced}]}`,
			wantErr: "name is required",
		},
		{
			name:    "both course and inline",
			yaml:    `{name: x, description: d, course: c.yaml, inline: {name: n, root: {id: r}}, steps: [{action: start}], assertions: [{type: suspend_balanced}]}`,
			wantErr: "exactly one of course and inline",
		},
		{
			name:    "no course",
			yaml:    `{name: x, description: d, steps: [{action: start}], assertions: [{type: suspend_balanced}]}`,
			wantErr: "exactly one of course and inline",
		},
		{
			name:    "bad window",
			yaml:    `{name: x, description: d, window: soon, inline: {name: n, root: {id: r}}, steps: [{action: start}], assertions: [{type: suspend_balanced}]}`,
			wantErr: "window must be a positive duration",
		},
		{
			name:    "no steps",
			yaml:    `{name: x, description: d, inline: {name: n, root: {id: r}}, steps: [], assertions: [{type: suspend_balanced}]}`,
			wantErr: "steps list is required",
		},
		{
			name:    "unknown action",
			yaml:    `{name: x, description: d, inline: {name: n, root: {id: r}}, steps: [{action: jump}], assertions: [{type: suspend_balanced}]}`,
			wantErr: `unknown action "jump"`,
		},
		{
			name:    "set_available without value",
			yaml:    `{name: x, description: d, inline: {name: n, root: {id: r}}, steps: [{action: set_available, node: r}], assertions: [{type: suspend_balanced}]}`,
			wantErr: "value is required",
		},
		{
			name:    "trigger with unknown event",
			yaml:    `{name: x, description: d, inline: {name: n, root: {id: r}}, steps: [{action: trigger, node: r, event: explode}], assertions: [{type: suspend_balanced}]}`,
			wantErr: "unknown trigger event",
		},
		{
			name:    "advance without duration",
			yaml:    `{name: x, description: d, inline: {name: n, root: {id: r}}, steps: [{action: advance}], assertions: [{type: suspend_balanced}]}`,
			wantErr: "non-negative duration",
		},
		{
			name:    "save_state without namespace",
			yaml:    `{name: x, description: d, inline: {name: n, root: {id: r}}, steps: [{action: start}], assertions: [{type: save_state, node: r}]}`,
			wantErr: "node and namespace are required",
		},
		{
			name:    "absent with expect",
			yaml:    `{name: x, description: d, inline: {name: n, root: {id: r}}, steps: [{action: start}], assertions: [{type: save_state, node: r, namespace: tags, absent: true, expect: ["1"]}]}`,
			wantErr: "absent and expect are exclusive",
		},
		{
			name:    "trace_count without event",
			yaml:    `{name: x, description: d, inline: {name: n, root: {id: r}}, steps: [{action: start}], assertions: [{type: trace_count, count: 1}]}`,
			wantErr: "event is required",
		},
		{
			name:    "unknown assertion",
			yaml:    `{name: x, description: d, inline: {name: n, root: {id: r}}, steps: [{action: start}], assertions: [{type: final_state}]}`,
			wantErr: `unknown assertion type "final_state"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
