package auth

// Tag labels a protected resource or route. Requests carry one or more tags;
// a principal needs a grant for at least one of them.
type Tag string

const (
	TagClient    Tag = "client"
	TagProvider  Tag = "provider"
	TagAdmin     Tag = "admin"
	TagReview    Tag = "review"
	TagProposals Tag = "proposals"
	TagContent   Tag = "content"
)

// Redirect targets returned by RequireOrRedirect.
const (
	RedirectLogin        = "/login"
	RedirectUnauthorized = "/unauthorized"
)

// defaultGrants maps each tag to the roles allowed to reach it. Account-type
// matching for the client/provider tags happens before this table is
// consulted, so those rows only list roles granted regardless of account type.
var defaultGrants = map[Tag][]Role{
	TagClient:    {RoleAdmin},
	TagProvider:  {RoleAdmin},
	TagAdmin:     {RoleAdmin},
	TagReview:    {RoleAdmin, RoleReviewer},
	TagProposals: {RoleAdmin, RoleProposalManager},
	TagContent:   {RoleAdmin, RoleWriter},
}

// Resolver answers "may principal P act on tag T". It is a pure function of
// its static grant table; construction is the only mutation.
type Resolver struct {
	grants map[Tag][]Role
}

// NewResolver builds a resolver with the built-in grant table.
func NewResolver() *Resolver {
	return NewResolverWithGrants(defaultGrants)
}

// NewResolverWithGrants builds a resolver from an explicit table. The table is
// copied; later mutation of the argument has no effect.
func NewResolverWithGrants(grants map[Tag][]Role) *Resolver {
	copied := make(map[Tag][]Role, len(grants))
	for tag, roles := range grants {
		rs := make([]Role, len(roles))
		copy(rs, roles)
		copied[tag] = rs
	}
	return &Resolver{grants: copied}
}

// Can reports whether the principal may act on the tag. Resolution order:
// account-type direct match first, then role-table membership, then deny.
func (r *Resolver) Can(p Principal, tag Tag) bool {
	switch tag {
	case TagClient:
		if p.AccountType == AccountClient || p.AccountType == AccountBoth {
			return true
		}
	case TagProvider:
		if p.AccountType == AccountProvider || p.AccountType == AccountBoth {
			return true
		}
	}
	for _, role := range r.grants[tag] {
		if p.Role == role {
			return true
		}
	}
	return false
}

// Decision is the outcome of a route guard check.
type Decision struct {
	Allowed    bool
	RedirectTo string
}

// Allow is the positive guard decision.
var Allow = Decision{Allowed: true}

// RequireOrRedirect gates access to a route protected by the given tags.
// An absent principal redirects to login; a present principal denied for
// every tag redirects to the unauthorized page. Pure and synchronous so it
// can run inside rendering or dispatch paths.
func (r *Resolver) RequireOrRedirect(p *Principal, tags ...Tag) Decision {
	if p == nil {
		return Decision{RedirectTo: RedirectLogin}
	}
	for _, tag := range tags {
		if r.Can(*p, tag) {
			return Allow
		}
	}
	return Decision{RedirectTo: RedirectUnauthorized}
}
