package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/epigenicai/genagent/types"
)

func TestGraphRejectsDuplicateStage(t *testing.T) {
	g := NewGraph()
	require.NoError(t, g.Add(&Stage{ID: "a"}))
	err := g.Add(&Stage{ID: "a"})
	assert.Equal(t, types.ErrInvalidInput, types.CodeOf(err))
}

func TestGraphRejectsMissingID(t *testing.T) {
	g := NewGraph()
	err := g.Add(&Stage{})
	assert.Equal(t, types.ErrInvalidInput, types.CodeOf(err))
}

func TestGraphValidateUnknownDependency(t *testing.T) {
	g := NewGraph()
	require.NoError(t, g.Add(&Stage{ID: "a", DependsOn: []string{"ghost"}}))
	err := g.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ghost")
}

func TestGraphValidateDetectsCycle(t *testing.T) {
	g := NewGraph()
	require.NoError(t, g.Add(&Stage{ID: "a", DependsOn: []string{"c"}}))
	require.NoError(t, g.Add(&Stage{ID: "b", DependsOn: []string{"a"}}))
	require.NoError(t, g.Add(&Stage{ID: "c", DependsOn: []string{"b"}}))
	err := g.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cycle")
}

func TestGraphValidateAcceptsDiamond(t *testing.T) {
	g := NewGraph()
	require.NoError(t, g.Add(&Stage{ID: "root"}))
	require.NoError(t, g.Add(&Stage{ID: "left", DependsOn: []string{"root"}}))
	require.NoError(t, g.Add(&Stage{ID: "right", DependsOn: []string{"root"}}))
	require.NoError(t, g.Add(&Stage{ID: "join", DependsOn: []string{"left", "right"}}))
	assert.NoError(t, g.Validate())
	assert.Equal(t, []string{"root", "left", "right", "join"}, g.Stages())
}
