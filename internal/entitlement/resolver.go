package entitlement

import (
	"strings"

	"syndicate/internal/asset"
	"syndicate/internal/config"
	"syndicate/internal/services"
)

// Decision maps every known partner identifier to its eligibility for one
// asset. It is computed once at the start of an execution and never
// re-evaluated mid-flight.
type Decision map[string]bool

// Resolver decides which partners may process an asset. Implementations must
// be pure functions of the asset: no side effects, no external calls.
type Resolver interface {
	Resolve(a asset.Asset) (Decision, error)
	// Partners returns the full set of known partner identifiers in a
	// stable order. Every Decision contains exactly these keys.
	Partners() []string
}

// PolicyResolver applies the statically configured per-partner policy. The
// interface leaves room for per-asset rules (territory, content type); the
// reference policy does not vary by asset.
type PolicyResolver struct {
	partners []string
	policy   map[string]bool
}

// NewPolicyResolver builds a resolver from the configured partner set.
func NewPolicyResolver(partners []config.Partner) *PolicyResolver {
	names := make([]string, 0, len(partners))
	policy := make(map[string]bool, len(partners))
	for _, partner := range partners {
		names = append(names, partner.Name)
		policy[partner.Name] = partner.Entitled
	}
	return &PolicyResolver{partners: names, policy: policy}
}

func (r *PolicyResolver) Partners() []string {
	out := make([]string, len(r.partners))
	copy(out, r.partners)
	return out
}

func (r *PolicyResolver) Resolve(a asset.Asset) (Decision, error) {
	if strings.TrimSpace(a.ID) == "" {
		return nil, services.Wrap(services.ErrValidation, "entitlement", "resolve", "asset id is required", nil)
	}
	decision := make(Decision, len(r.partners))
	for _, partner := range r.partners {
		decision[partner] = r.policy[partner]
	}
	return decision, nil
}
