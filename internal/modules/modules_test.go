package modules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/blogbuilder/internal/foundation/errors"
)

func TestLookup(t *testing.T) {
	for _, name := range Names() {
		t.Run(name, func(t *testing.T) {
			m, err := Lookup(name)
			require.NoError(t, err)
			assert.Equal(t, name, m.Name())
		})
	}
	assert.Equal(t, []string{"disqus", "highlight", "latex"}, Names())
}

func TestLookupUnknown(t *testing.T) {
	_, err := Lookup("pygments")
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryConfig))
	assert.Contains(t, err.Error(), "pygments")
}

func TestLookupReturnsFreshInstances(t *testing.T) {
	a, err := Lookup("highlight")
	require.NoError(t, err)
	b, err := Lookup("highlight")
	require.NoError(t, err)
	assert.NotSame(t, a, b)
}
