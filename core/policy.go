package core

// Roles. A user holds exactly one.
const (
	RoleStudent   = "student"
	RoleLecturer  = "lecturer"
	RoleSecretary = "secretary"
	RoleAdmin     = "admin"
)

var AllRoles = []string{RoleStudent, RoleLecturer, RoleSecretary, RoleAdmin}

// Principal identifies the authenticated caller. It is passed explicitly into
// every service call that needs authorization; there is no ambient session state.
type Principal struct {
	ID   string
	Role string
}

func (p Principal) IsAdmin() bool     { return p.Role == RoleAdmin }
func (p Principal) IsLecturer() bool  { return p.Role == RoleLecturer }
func (p Principal) IsStudent() bool   { return p.Role == RoleStudent }
func (p Principal) IsSecretary() bool { return p.Role == RoleSecretary }

// IsAuthenticated reports whether the Principal identifies a real user.
func (p Principal) IsAuthenticated() bool { return p.ID != "" && p.Role != "" }

// Resources and actions of the access policy.
const (
	ResourceDefense = "defense"
	ResourceGroup   = "group"
	ResourceTopic   = "topic"
	ResourceScore   = "score"
	ResourceUser    = "user"

	ActionRead   = "read"
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
	ActionJoin   = "join"
)

type (
	// AccessRule allows the listed roles; when AllowOwner is set the rule also
	// allows the caller when they own the target resource (a lecturer editing
	// their own topic, their own score row, ...).
	AccessRule struct {
		Roles      []string
		AllowOwner bool
	}

	// AccessPolicy maps resource -> action -> rule. A missing entry denies:
	// the gate fails closed.
	AccessPolicy map[string]map[string]AccessRule
)

// DefaultPolicy is the authorization table. Mutations on defenses are
// admin-only; topics and groups also allow the owning lecturer (self-service);
// score entry allows the assigned lecturer; reads allow anyone authenticated.
func DefaultPolicy() AccessPolicy {
	readAny := AccessRule{Roles: AllRoles}
	adminOnly := AccessRule{Roles: []string{RoleAdmin}}
	adminOrOwner := AccessRule{Roles: []string{RoleAdmin}, AllowOwner: true}

	return AccessPolicy{
		ResourceDefense: {
			ActionRead:   readAny,
			ActionCreate: adminOnly,
			ActionUpdate: adminOnly,
			ActionDelete: adminOnly,
		},
		ResourceGroup: {
			ActionRead:   readAny,
			ActionCreate: adminOrOwner,
			ActionUpdate: adminOrOwner,
			ActionDelete: adminOnly,
			ActionJoin:   {Roles: []string{RoleStudent}},
		},
		ResourceTopic: {
			ActionRead:   readAny,
			ActionCreate: adminOrOwner,
			ActionUpdate: adminOrOwner,
			ActionDelete: adminOnly,
		},
		ResourceScore: {
			ActionRead:   readAny,
			ActionUpdate: adminOrOwner,
		},
		ResourceUser: {
			ActionRead:   adminOnly,
			ActionCreate: adminOnly,
			ActionUpdate: adminOrOwner,
			ActionDelete: adminOnly,
		},
	}
}

// Allows applies the policy for a Principal acting on a resource. ownerIDs,
// when given, are the user IDs owning the target; they only matter for rules
// with AllowOwner set.
func (pol AccessPolicy) Allows(p Principal, resource, action string, ownerIDs ...string) bool {
	if !p.IsAuthenticated() {
		return false
	}
	actions, ok := pol[resource]
	if !ok {
		return false
	}
	rule, ok := actions[action]
	if !ok {
		return false
	}
	for _, role := range rule.Roles {
		if p.Role == role {
			return true
		}
	}
	if rule.AllowOwner {
		for _, id := range ownerIDs {
			if id != "" && id == p.ID {
				return true
			}
		}
	}
	return false
}
