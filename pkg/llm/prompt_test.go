package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestExpand substitutes every bound placeholder.
func TestExpand(t *testing.T) {
	out, err := Expand("Score these {reviews} from the {perspective} perspective.",
		map[string]string{"reviews": "3 reviews", "perspective": "quality"})

	require.NoError(t, err)
	assert.Equal(t, "Score these 3 reviews from the quality perspective.", out)
}

// TestExpand_UnboundPlaceholder fails and names the missing key.
func TestExpand_UnboundPlaceholder(t *testing.T) {
	_, err := Expand("Hello {name}, you are {role}.", map[string]string{"name": "x"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "role")
}

// TestExpand_LeavesNonPlaceholdersAlone ignores braces that are not
// identifiers, such as literal JSON in the template.
func TestExpand_LeavesNonPlaceholdersAlone(t *testing.T) {
	template := `Respond with {"score": 1} for {item}.`

	out, err := Expand(template, map[string]string{"item": "this", "score": "unused"})

	require.NoError(t, err)
	assert.Equal(t, `Respond with {"score": 1} for this.`, out)
}

// TestMustExpand_Panics panics on unbound placeholders.
func TestMustExpand_Panics(t *testing.T) {
	assert.Panics(t, func() {
		MustExpand("{missing}", nil)
	})
	assert.Equal(t, "ok", MustExpand("{v}", map[string]string{"v": "ok"}))
}
