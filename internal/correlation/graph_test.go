package correlation

import (
	"testing"

	"github.com/mselser95/predmarket-arb/pkg/types"
)

func market(id, eventID, question string) types.Market {
	return types.Market{ID: id, EventID: eventID, Question: question}
}

// TestPriceThresholdParentChild is scenario S4's setup: "reach $100k" and
// "reach $150k" form a Parent edge with the lower threshold as parent.
func TestPriceThresholdParentChild(t *testing.T) {
	a := market("a", "evt1", "Will BTC reach $100k by end of year?")
	b := market("b", "evt1", "Will BTC reach $150k by end of year?")

	g := Build([]types.Market{a, b})
	edges := g.Edges()
	if len(edges) != 1 {
		t.Fatalf("expected 1 edge, got %d", len(edges))
	}
	if edges[0].Kind != KindParent {
		t.Fatalf("expected Parent edge, got %s", edges[0].Kind)
	}
	if edges[0].MarketA != "a" {
		t.Fatalf("expected lower threshold (a) to be parent, got %s", edges[0].MarketA)
	}
}

func TestPriceThresholdBelowPhrasing(t *testing.T) {
	a := market("a", "evt1", "Will ETH drop below $2k?")
	b := market("b", "evt1", "Will ETH drop below $1k?")

	g := Build([]types.Market{a, b})
	edges := g.Edges()
	if len(edges) != 1 || edges[0].Kind != KindParent {
		t.Fatalf("expected one Parent edge, got %+v", edges)
	}
	if edges[0].MarketA != "a" {
		t.Fatalf("expected higher threshold (a, $2k) to be parent for below-phrasing, got %s", edges[0].MarketA)
	}
}

func TestSportsBracket(t *testing.T) {
	a := market("a", "evt1", "Will Team Alpha win the championship final?")
	b := market("b", "evt1", "Will Team Alpha win the semifinal game?")

	g := Build([]types.Market{a, b})
	edges := g.Edges()
	if len(edges) != 1 || edges[0].Kind != KindParent || edges[0].Strength != 0.8 {
		t.Fatalf("expected sports-bracket Parent edge at strength 0.8, got %+v", edges)
	}
}

func TestSiblingFallback(t *testing.T) {
	a := market("a", "evt1", "Will the president sign the infrastructure bill?")
	b := market("b", "evt1", "Will the president veto the infrastructure bill?")

	g := Build([]types.Market{a, b})
	edges := g.Edges()
	if len(edges) != 1 || edges[0].Kind != KindSibling {
		t.Fatalf("expected Sibling edge, got %+v", edges)
	}
}

func TestNoEdgeAcrossDifferentEvents(t *testing.T) {
	a := market("a", "evt1", "Will BTC reach $100k?")
	b := market("b", "evt2", "Will BTC reach $150k?")

	g := Build([]types.Market{a, b})
	if len(g.Edges()) != 0 {
		t.Fatalf("expected no edges across different events")
	}
}

func TestRelatedAdjacency(t *testing.T) {
	a := market("a", "evt1", "Will BTC reach $100k by end of year?")
	b := market("b", "evt1", "Will BTC reach $150k by end of year?")
	c := market("c", "evt1", "unrelated topic entirely no shared words")

	g := Build([]types.Market{a, b, c})
	related := g.Related("a")
	if len(related) != 1 || related[0] != "b" {
		t.Fatalf("expected a related only to b, got %v", related)
	}
	if len(g.Related("c")) != 0 {
		t.Fatalf("expected c to have no relations")
	}
}
