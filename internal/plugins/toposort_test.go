package plugins

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTopoSort_Simple(t *testing.T) {
	result, err := TopoSort([]string{"c", "b", "a"}, map[string][]string{
		"a": {"b", "c"},
		"b": {"c"},
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, result)
}

func TestTopoSort_AfterConstraints(t *testing.T) {
	result, err := TopoSort([]string{"c", "b", "a"}, nil, map[string][]string{
		"b": {"a"},
		"c": {"b"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, result)
}

func TestTopoSort_KeepsInputOrder(t *testing.T) {
	names := []string{"search", "toc", "highlight", "sharing"}
	result, err := TopoSort(names, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, names, result)

	// only the constrained plugin moves
	result, err = TopoSort(names, nil, map[string][]string{"search": {"sharing"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"toc", "highlight", "sharing", "search"}, result)
}

func TestTopoSort_UnknownNamesIgnored(t *testing.T) {
	result, err := TopoSort([]string{"a", "b"}, map[string][]string{"a": {"missing"}},
		map[string][]string{"b": {"other"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, result)
}

func TestTopoSort_Duplicates(t *testing.T) {
	result, err := TopoSort([]string{"a", "b", "a"}, map[string][]string{"b": {"a", "a"}}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a"}, result)
}

func TestTopoSort_Cycle(t *testing.T) {
	result, err := TopoSort([]string{"a", "b", "c"}, map[string][]string{
		"a": {"b"},
		"b": {"c"},
		"c": {"a"},
	}, nil)
	require.Error(t, err)
	assert.Nil(t, result)
	assert.Contains(t, err.Error(), "[a b c]")
}
