package templates

import (
	"bytes"
	"html/template"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethereum-optimism/infra/op-citest/types"
)

func TestGetTemplateFunc(t *testing.T) {
	funcs := GetTemplateFunc()

	formatDuration := funcs["formatDuration"].(func(time.Duration) string)
	assert.Equal(t, "250ms", formatDuration(250*time.Millisecond))
	assert.Equal(t, "1.5s", formatDuration(1500*time.Millisecond+300*time.Microsecond))

	statusText := funcs["getStatusText"].(func(types.BatchStatus) string)
	assert.Equal(t, "pass", statusText(types.BatchStatusPassed))
	assert.Equal(t, "fail", statusText(types.BatchStatusFailed))
	assert.Equal(t, "unknown", statusText(types.BatchStatus("bogus")))

	overall := funcs["getOverallStatus"].(func(int) types.BatchStatus)
	assert.Equal(t, types.BatchStatusPassed, overall(0))
	assert.Equal(t, types.BatchStatusFailed, overall(2))
}

func TestTemplateFuncsInTemplate(t *testing.T) {
	tmpl, err := template.New("t").Funcs(GetTemplateFunc()).
		Parse(`<td class="{{getStatusClass .Status}}">{{formatDuration .Duration}}</td>`)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, tmpl.Execute(&buf, types.BatchResult{Status: types.BatchStatusFailed, Duration: 2 * time.Second}))
	assert.Equal(t, `<td class="fail">2s</td>`, buf.String())
}
