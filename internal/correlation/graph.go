// Package correlation builds the offline correlation graph that powers
// cross-market arbitrage detection (§4.4). It has no direct analog in the
// teacher repo — mselser95-polymarket-arb only discovers and trades single
// markets — so the detectors here are grounded directly in the
// specification's three pairwise rules, built in the idiom of the
// teacher's other "pure function over metadata" packages (discovery,
// arbitrage) rather than any one file.
package correlation

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/mselser95/predmarket-arb/pkg/types"
)

// EdgeKind is the closed sum of correlation relationships.
type EdgeKind int

const (
	KindParent EdgeKind = iota
	KindSibling
	KindOpposite
	KindDependent
)

func (k EdgeKind) String() string {
	switch k {
	case KindParent:
		return "Parent"
	case KindSibling:
		return "Sibling"
	case KindOpposite:
		return "Opposite"
	case KindDependent:
		return "Dependent"
	default:
		return "Unknown"
	}
}

// Edge is an undirected-in-storage, semantically-directed relationship
// between two markets. For Parent edges, MarketA is the parent.
type Edge struct {
	MarketA  string
	MarketB  string
	Kind     EdgeKind
	Strength float64
}

// Graph is a flat vector of edges plus an O(1) adjacency index — an arena,
// not a pointer graph (§9 design notes), and acyclic by construction since
// it is rebuilt wholesale at startup.
type Graph struct {
	edges     []Edge
	adjacency map[string][]int // market_id -> indices into edges
}

// Build constructs the graph once from the full market catalog, grouping
// by event_id and evaluating every pair in a group against the three
// detectors in priority order (price-threshold, sports-bracket, sibling
// fallback) per §4.4.
func Build(markets []types.Market) *Graph {
	g := &Graph{adjacency: make(map[string][]int)}

	groups := make(map[string][]types.Market)
	for _, m := range markets {
		if m.EventID == "" {
			continue
		}
		groups[m.EventID] = append(groups[m.EventID], m)
	}

	for _, group := range groups {
		sort.Slice(group, func(i, j int) bool { return group[i].ID < group[j].ID })
		for i := 0; i < len(group); i++ {
			for j := i + 1; j < len(group); j++ {
				if edge, ok := detectEdge(group[i], group[j]); ok {
					g.addEdge(edge)
				}
			}
		}
	}

	return g
}

func (g *Graph) addEdge(e Edge) {
	idx := len(g.edges)
	g.edges = append(g.edges, e)
	g.adjacency[e.MarketA] = append(g.adjacency[e.MarketA], idx)
	g.adjacency[e.MarketB] = append(g.adjacency[e.MarketB], idx)
}

// Edges returns every edge in the graph.
func (g *Graph) Edges() []Edge {
	return g.edges
}

// Related returns the ids of markets with an edge to marketID, O(1) via
// the adjacency index.
func (g *Graph) Related(marketID string) []string {
	idxs := g.adjacency[marketID]
	out := make([]string, 0, len(idxs))
	for _, idx := range idxs {
		e := g.edges[idx]
		if e.MarketA == marketID {
			out = append(out, e.MarketB)
		} else {
			out = append(out, e.MarketA)
		}
	}
	return out
}

// detectEdge evaluates the three detectors in priority order and returns
// the first match.
func detectEdge(a, b types.Market) (Edge, bool) {
	if edge, ok := priceThresholdEdge(a, b); ok {
		return edge, true
	}
	if edge, ok := sportsBracketEdge(a, b); ok {
		return edge, true
	}
	return siblingEdge(a, b)
}

var dollarAmount = regexp.MustCompile(`\$([0-9][0-9,]*)(k|K)?`)

// parseDollar extracts the first dollar amount in s, expanding a trailing
// "k"/"K" suffix to thousands. Returns (0, false) if none is found.
func parseDollar(s string) (float64, bool) {
	m := dollarAmount.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	numeric := strings.ReplaceAll(m[1], ",", "")
	v, err := strconv.ParseFloat(numeric, 64)
	if err != nil {
		return 0, false
	}
	if strings.EqualFold(m[2], "k") {
		v *= 1000
	}
	return v, true
}

var aboveWords = []string{"reach", "hit", "above"}
var belowWords = []string{"dip", "fall", "below", "drop"}

func containsAny(s string, words []string) bool {
	lower := strings.ToLower(s)
	for _, w := range words {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}

// priceThresholdEdge implements detector 1 (§4.4): both questions name a
// dollar amount and use the same above/below phrasing; the edge direction
// follows from the phrasing and the relative thresholds.
func priceThresholdEdge(a, b types.Market) (Edge, bool) {
	amountA, okA := parseDollar(a.Question)
	amountB, okB := parseDollar(b.Question)
	if !okA || !okB {
		return Edge{}, false
	}

	aAbove, bAbove := containsAny(a.Question, aboveWords), containsAny(b.Question, aboveWords)
	aBelow, bBelow := containsAny(a.Question, belowWords), containsAny(b.Question, belowWords)

	switch {
	case aAbove && bAbove:
		if amountA < amountB {
			return Edge{MarketA: a.ID, MarketB: b.ID, Kind: KindParent, Strength: 0.95}, true
		}
		if amountB < amountA {
			return Edge{MarketA: b.ID, MarketB: a.ID, Kind: KindParent, Strength: 0.95}, true
		}
	case aBelow && bBelow:
		if amountA > amountB {
			return Edge{MarketA: a.ID, MarketB: b.ID, Kind: KindParent, Strength: 0.95}, true
		}
		if amountB > amountA {
			return Edge{MarketA: b.ID, MarketB: a.ID, Kind: KindParent, Strength: 0.95}, true
		}
	}
	return Edge{}, false
}

var sportsParentWords = []string{"championship", "final", "winner", "win"}
var sportsChildWords = []string{"semifinal", "quarter", "round", "game"}

var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "will": true, "to": true, "of": true,
	"in": true, "on": true, "for": true, "is": true, "be": true, "at": true,
	"and": true, "or": true, "win": true, "by": true, "vs": true,
}

func significantWords(s string) map[string]bool {
	out := make(map[string]bool)
	for _, w := range strings.Fields(strings.ToLower(s)) {
		w = strings.Trim(w, ".,?!\"'()")
		if w == "" || stopWords[w] {
			continue
		}
		out[w] = true
	}
	return out
}

func sharedWordCount(a, b map[string]bool) int {
	count := 0
	for w := range a {
		if b[w] {
			count++
		}
	}
	return count
}

// sportsBracketEdge implements detector 2 (§4.4).
func sportsBracketEdge(a, b types.Market) (Edge, bool) {
	aIsParent := containsAny(a.Question, sportsParentWords) && !containsAny(a.Question, sportsChildWords)
	bIsChild := containsAny(b.Question, sportsChildWords)
	bIsParent := containsAny(b.Question, sportsParentWords) && !containsAny(b.Question, sportsChildWords)
	aIsChild := containsAny(a.Question, sportsChildWords)

	wordsA := significantWords(a.Question)
	wordsB := significantWords(b.Question)
	if sharedWordCount(wordsA, wordsB) < 2 {
		return Edge{}, false
	}

	if aIsParent && bIsChild {
		return Edge{MarketA: a.ID, MarketB: b.ID, Kind: KindParent, Strength: 0.8}, true
	}
	if bIsParent && aIsChild {
		return Edge{MarketA: b.ID, MarketB: a.ID, Kind: KindParent, Strength: 0.8}, true
	}
	return Edge{}, false
}

// siblingEdge implements detector 3 (§4.4): the fallback when no directed
// relationship is found but the questions still clearly discuss the same
// event.
func siblingEdge(a, b types.Market) (Edge, bool) {
	wordsA := significantWords(a.Question)
	wordsB := significantWords(b.Question)
	if sharedWordCount(wordsA, wordsB) < 3 {
		return Edge{}, false
	}
	return Edge{MarketA: a.ID, MarketB: b.ID, Kind: KindSibling, Strength: 0.6}, true
}
