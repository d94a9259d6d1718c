// Package agents resolves free-text agent names to roster identities.
package agents

import (
	"context"
	"sort"
	"strings"

	"github.com/callcoach/callcoach-core/internal/models"
	"github.com/callcoach/callcoach-core/internal/repo"
)

// minSimilarity is the floor under which a fuzzy match is treated as no
// match. Callers handle nil as "ask the user to clarify".
const minSimilarity = 0.45

// Resolver fuzzy-matches names against the agent roster. Resolution is
// deterministic: highest score wins, ties break alphabetically on the
// agent name, then on id.
type Resolver struct {
	roster repo.RosterStore
}

func NewResolver(roster repo.RosterStore) *Resolver {
	return &Resolver{roster: roster}
}

// ResolveByName returns the best roster match for name, or (nil, nil) when
// nothing scores above the floor. It never returns an error for "no match".
func (r *Resolver) ResolveByName(ctx context.Context, name string) (*models.Agent, error) {
	return r.resolve(ctx, name, nil)
}

// ResolveByNameScoped behaves like ResolveByName but only considers agents
// whose id is in allowedIDs, so a caller can never resolve their way to an
// agent outside their scope.
func (r *Resolver) ResolveByNameScoped(ctx context.Context, name string, allowedIDs []string) (*models.Agent, error) {
	allowed := make(map[string]struct{}, len(allowedIDs))
	for _, id := range allowedIDs {
		allowed[id] = struct{}{}
	}
	return r.resolve(ctx, name, allowed)
}

func (r *Resolver) resolve(ctx context.Context, name string, allowed map[string]struct{}) (*models.Agent, error) {
	needle := normalize(name)
	if needle == "" {
		return nil, nil
	}

	roster, err := r.roster.AllAgents(ctx)
	if err != nil {
		return nil, err
	}

	type candidate struct {
		agent *models.Agent
		score float64
	}
	var candidates []candidate
	for _, a := range roster {
		if !a.Active {
			continue
		}
		if allowed != nil {
			if _, ok := allowed[a.ID]; !ok {
				continue
			}
		}
		score := nameSimilarity(needle, normalize(a.Name))
		if score >= minSimilarity {
			candidates = append(candidates, candidate{agent: a, score: score})
		}
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		if candidates[i].agent.Name != candidates[j].agent.Name {
			return candidates[i].agent.Name < candidates[j].agent.Name
		}
		return candidates[i].agent.ID < candidates[j].agent.ID
	})
	return candidates[0].agent, nil
}

// nameSimilarity scores needle against a full agent name in [0,1].
// Exact and token-exact matches rank above prefixes, which rank above
// bigram similarity, so "Sarah" resolves to "Sarah Chen" before it
// resolves to "Sara Hall".
func nameSimilarity(needle, full string) float64 {
	if needle == full {
		return 1.0
	}
	for _, token := range strings.Fields(full) {
		if needle == token {
			return 0.95
		}
	}
	for _, token := range strings.Fields(full) {
		if strings.HasPrefix(token, needle) {
			return 0.8
		}
	}
	if strings.Contains(full, needle) {
		return 0.7
	}
	return diceCoefficient(needle, full)
}

// diceCoefficient is the Sørensen–Dice bigram similarity of two strings.
func diceCoefficient(a, b string) float64 {
	ab := bigrams(a)
	bb := bigrams(b)
	if len(ab) == 0 || len(bb) == 0 {
		return 0
	}
	overlap := 0
	for g, n := range ab {
		if m, ok := bb[g]; ok {
			if m < n {
				overlap += m
			} else {
				overlap += n
			}
		}
	}
	total := 0
	for _, n := range ab {
		total += n
	}
	for _, n := range bb {
		total += n
	}
	return 2.0 * float64(overlap) / float64(total)
}

func bigrams(s string) map[string]int {
	grams := make(map[string]int)
	runes := []rune(s)
	for i := 0; i+1 < len(runes); i++ {
		grams[string(runes[i:i+2])]++
	}
	return grams
}

func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(strings.TrimSpace(s))), " ")
}
