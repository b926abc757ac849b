package core

import (
	"testing"

	"github.com/jurisrank/jurisapi/internal/model"
)

func testResolver() *PolicyResolver {
	tiers := map[model.Tier]model.QuotaPolicy{
		model.TierDefault: {
			RequestsPerHour:   100,
			RequestsPerMinute: 10,
			RequestsPerDay:    500,
			BurstAllowance:    10,
		},
		model.TierPremium: {
			RequestsPerHour:   5000,
			RequestsPerMinute: 200,
			BurstAllowance:    50,
		},
	}
	endpoints := map[string]model.QuotaPolicy{
		"/api/v1/analysis/constitutional": {
			RequestsPerHour:   50,
			RequestsPerMinute: 5,
		},
	}
	return NewPolicyResolver(tiers, endpoints)
}

func TestResolve_EndpointMinimum(t *testing.T) {
	p := testResolver()

	eff := p.Resolve(model.TierPremium, "/api/v1/analysis/constitutional")
	if eff.RequestsPerHour != 50 {
		t.Fatalf("hourly = %d, want 50 (override is tighter)", eff.RequestsPerHour)
	}
	if eff.RequestsPerMinute != 5 {
		t.Fatalf("minute = %d, want 5", eff.RequestsPerMinute)
	}
}

func TestResolve_NoOverride(t *testing.T) {
	p := testResolver()

	eff := p.Resolve(model.TierDefault, "/api/v1/unlisted")
	want := p.tiers[model.TierDefault]
	if eff != want {
		t.Fatalf("effective = %+v, want tier policy %+v", eff, want)
	}
}

func TestResolve_AbsentFieldsSkipMin(t *testing.T) {
	p := testResolver()

	// Premium has no daily limit and the override has none either; the
	// effective policy must keep "no limit" rather than clamping to zero.
	eff := p.Resolve(model.TierPremium, "/api/v1/analysis/constitutional")
	if eff.RequestsPerDay != 0 {
		t.Fatalf("daily = %d, want 0 (no constraint)", eff.RequestsPerDay)
	}

	// Default tier has a daily limit; the override without one must not
	// erase it.
	eff = p.Resolve(model.TierDefault, "/api/v1/analysis/constitutional")
	if eff.RequestsPerDay != 500 {
		t.Fatalf("daily = %d, want 500 from tier policy", eff.RequestsPerDay)
	}
}

func TestResolve_InvariantNeverAboveTier(t *testing.T) {
	p := testResolver()

	for _, tier := range []model.Tier{model.TierDefault, model.TierPremium} {
		base := p.tiers[tier]
		eff := p.Resolve(tier, "/api/v1/analysis/constitutional")
		if eff.RequestsPerHour > base.RequestsPerHour {
			t.Fatalf("tier %s: effective hourly %d exceeds tier hourly %d",
				tier, eff.RequestsPerHour, base.RequestsPerHour)
		}
	}
}

func TestResolve_UnknownTierFallsBack(t *testing.T) {
	p := testResolver()

	eff := p.Resolve(model.Tier("mystery"), "/api/v1/unlisted")
	if eff != p.tiers[model.TierDefault] {
		t.Fatalf("unknown tier should resolve to default policy, got %+v", eff)
	}
}

func TestResolve_Memoized(t *testing.T) {
	p := testResolver()

	first := p.Resolve(model.TierDefault, "/api/v1/analysis/constitutional")
	second := p.Resolve(model.TierDefault, "/api/v1/analysis/constitutional")
	if first != second {
		t.Fatal("repeated resolution must return the identical policy")
	}

	p.mu.RLock()
	cached := len(p.cache)
	p.mu.RUnlock()
	if cached != 1 {
		t.Fatalf("cache size = %d, want 1", cached)
	}
}

func TestMinLimit(t *testing.T) {
	cases := []struct {
		a, b, want int
	}{
		{0, 0, 0},
		{10, 0, 10},
		{0, 10, 10},
		{10, 5, 5},
		{5, 10, 5},
	}
	for _, c := range cases {
		if got := minLimit(c.a, c.b); got != c.want {
			t.Errorf("minLimit(%d, %d) = %d, want %d", c.a, c.b, got, c.want)
		}
	}
}
