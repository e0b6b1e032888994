package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGolden_TagsExternalToggle(t *testing.T) {
	result := runFile(t, "testdata/scenarios/tags_external_toggle.yaml")
	require.NoError(t, AssertGolden(t, "tags_external_toggle", result))
}

func TestMarshalTrace_OmitsEmptyFields(t *testing.T) {
	yes := true
	got, err := MarshalTrace("s", []TraceEvent{
		{Seq: 1, Type: "suspend_begin"},
		{Seq: 2, Type: "availability", Node: "a", Kind: "tags", Pass: "pass-1", Available: &yes},
		{Seq: 3, Type: "setup_error", Node: "p", Error: "boom"},
	})
	require.NoError(t, err)

	assert.Equal(t,
		`{"scenario_name":"s","trace":[`+
			`{"seq":1,"type":"suspend_begin"},`+
			`{"available":true,"kind":"tags","node":"a","pass":"pass-1","seq":2,"type":"availability"},`+
			`{"error":"boom","node":"p","seq":3,"type":"setup_error"}]}`,
		string(got))
}

func TestMarshalTrace_Empty(t *testing.T) {
	got, err := MarshalTrace("empty", []TraceEvent{})
	require.NoError(t, err)
	assert.Equal(t, `{"scenario_name":"empty","trace":[]}`, string(got))
}
