// Package policy is the single place where role-based access is decided.
// Routes and services ask Allow instead of carrying their own role lists.
package policy

import "github.com/iliyamo/hotel-reservation/internal/model"

type Resource string

const (
	Rooms         Resource = "rooms"
	Bookings      Resource = "bookings"
	Drafts        Resource = "drafts"
	Tickets       Resource = "tickets"
	Notifications Resource = "notifications"
	Profile       Resource = "profile"
	Users         Resource = "users" // account provisioning, admin only
)

type Action string

const (
	Read   Action = "read"
	Create Action = "create"
	Update Action = "update"
	Pay    Action = "pay"
)

type rule map[Resource]map[Action]bool

func actions(as ...Action) map[Action]bool {
	m := make(map[Action]bool, len(as))
	for _, a := range as {
		m[a] = true
	}
	return m
}

var rules = map[string]rule{
	model.RoleGuest: {
		Rooms:    actions(Read),
		Drafts:   actions(Read, Create, Update, Pay),
		Bookings: actions(Read),
		Profile:  actions(Read),
	},
	model.RoleStaff: {
		Rooms:         actions(Read),
		Tickets:       actions(Read, Create, Update),
		Notifications: actions(Read, Update),
		Profile:       actions(Read),
	},
}

// Allow reports whether the identity may perform action on resource.
// Admins may do everything; unknown roles may do nothing.
func Allow(who model.Identity, res Resource, act Action) bool {
	if who.UserID == 0 {
		return false
	}
	if who.Role == model.RoleAdmin {
		return true
	}
	r, ok := rules[who.Role]
	if !ok {
		return false
	}
	return r[res][act]
}
