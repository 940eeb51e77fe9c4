package domain

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lookupFrom(recipes map[string]*Recipe) RecipeLookup {
	return func(id string) (*Recipe, error) {
		return recipes[id], nil
	}
}

func TestAncestorChain(t *testing.T) {
	t.Run("walks origin links to the root", func(t *testing.T) {
		root := &Recipe{Record: Record{ID: "rcp-root"}}
		fork1 := &Recipe{Record: Record{ID: "rcp-f1"}, OriginRecipeID: "rcp-root"}
		fork2 := &Recipe{Record: Record{ID: "rcp-f2"}, OriginRecipeID: "rcp-f1"}

		chain, err := AncestorChain(fork2, lookupFrom(map[string]*Recipe{
			"rcp-root": root,
			"rcp-f1":   fork1,
		}))

		require.NoError(t, err)
		assert.Equal(t, []string{"rcp-f2", "rcp-f1", "rcp-root"}, chain)
	})

	t.Run("stops at missing origin", func(t *testing.T) {
		orphan := &Recipe{Record: Record{ID: "rcp-a"}, OriginRecipeID: "rcp-gone"}

		chain, err := AncestorChain(orphan, lookupFrom(map[string]*Recipe{}))

		require.NoError(t, err)
		assert.Equal(t, []string{"rcp-a"}, chain)
	})

	t.Run("breaks origin cycles", func(t *testing.T) {
		a := &Recipe{Record: Record{ID: "rcp-a"}, OriginRecipeID: "rcp-b"}
		b := &Recipe{Record: Record{ID: "rcp-b"}, OriginRecipeID: "rcp-a"}

		chain, err := AncestorChain(a, lookupFrom(map[string]*Recipe{
			"rcp-a": a,
			"rcp-b": b,
		}))

		require.NoError(t, err)
		assert.Equal(t, []string{"rcp-a", "rcp-b"}, chain)
	})

	t.Run("bounds the walk depth", func(t *testing.T) {
		recipes := make(map[string]*Recipe)
		for i := 0; i < 40; i++ {
			r := &Recipe{Record: Record{ID: fmt.Sprintf("rcp-%d", i)}}
			if i < 39 {
				r.OriginRecipeID = fmt.Sprintf("rcp-%d", i+1)
			}
			recipes[r.ID] = r
		}

		chain, err := AncestorChain(recipes["rcp-0"], lookupFrom(recipes))

		require.NoError(t, err)
		assert.Len(t, chain, maxAncestorDepth)
	})

	t.Run("lookup error aborts the walk", func(t *testing.T) {
		start := &Recipe{Record: Record{ID: "rcp-a"}, OriginRecipeID: "rcp-b"}

		_, err := AncestorChain(start, func(string) (*Recipe, error) {
			return nil, fmt.Errorf("lookup failed")
		})

		assert.Error(t, err)
	})
}
