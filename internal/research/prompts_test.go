package research

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/compintel/internal/schema"
)

func TestResearchPrompt(t *testing.T) {
	t.Parallel()

	s := schema.Default()
	p := researchPrompt("Acme Corp", "We sell widgets.", s)

	assert.Contains(t, p, `"Acme Corp"`)
	assert.Contains(t, p, "We sell widgets.")
	assert.Contains(t, p, "- website:")
	assert.Contains(t, p, "- Direct:")

	// System-generated fields are never requested from the model.
	for _, name := range []string{"- id:", "- created_at:", "- last_updated:"} {
		assert.NotContains(t, p, name)
	}
}

func TestUpdatePromptEmbedsPriorRecord(t *testing.T) {
	t.Parallel()

	prior := `{"competitor_name": "Acme Corp", "description": "Makes widgets."}`
	p := updatePrompt("Acme Corp", "", prior, schema.Default())
	assert.Contains(t, p, prior)
	assert.Contains(t, p, `"updated_record"`)
	assert.Contains(t, p, `"change_summary"`)
}

func TestDiscoverPrompt(t *testing.T) {
	t.Parallel()

	t.Run("lists tracked names", func(t *testing.T) {
		t.Parallel()
		p := discoverPrompt("ctx", 30, []string{"Acme Corp", "Globex"})
		assert.Contains(t, p, "last 30 days")
		assert.Contains(t, p, "- Acme Corp\n- Globex")
	})

	t.Run("empty tracked set", func(t *testing.T) {
		t.Parallel()
		p := discoverPrompt("ctx", 30, nil)
		assert.Contains(t, p, "(none tracked yet)")
	})
}

func TestDigestPromptNumbersSummaries(t *testing.T) {
	t.Parallel()

	p := digestPrompt("ctx", []string{"Acme: expanded", "Globex: raised a round"})
	idx1 := strings.Index(p, "1. Acme: expanded")
	idx2 := strings.Index(p, "2. Globex: raised a round")
	assert.Greater(t, idx1, -1)
	assert.Greater(t, idx2, idx1)
}
