package domain

// maxAncestorDepth bounds the origin-chain walk. The origin graph is a
// forest by construction, but the walk never trusts that blindly.
const maxAncestorDepth = 16

// RecipeLookup resolves a recipe by ID. It returns nil when the recipe
// does not exist.
type RecipeLookup func(id string) (*Recipe, error)

// AncestorChain walks the origin links of a recipe, starting at the recipe
// itself, and returns the IDs encountered in order. The walk stops at a
// recipe with no origin, at maxAncestorDepth, or on the first repeated ID.
func AncestorChain(start *Recipe, lookup RecipeLookup) ([]string, error) {
	visited := make(map[string]bool, 4)
	chain := make([]string, 0, 4)

	current := start
	for depth := 0; current != nil && depth < maxAncestorDepth; depth++ {
		if visited[current.ID] {
			break
		}
		visited[current.ID] = true
		chain = append(chain, current.ID)

		if current.OriginRecipeID == "" {
			break
		}

		next, err := lookup(current.OriginRecipeID)
		if err != nil {
			return nil, err
		}
		current = next
	}

	return chain, nil
}
