package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/iliyamo/hotel-reservation/internal/model"
)

func TestAllow(t *testing.T) {
	guest := model.Identity{UserID: 1, Role: model.RoleGuest}
	staff := model.Identity{UserID: 2, Role: model.RoleStaff}
	admin := model.Identity{UserID: 3, Role: model.RoleAdmin}

	cases := []struct {
		who  model.Identity
		res  Resource
		act  Action
		want bool
	}{
		{guest, Drafts, Pay, true},
		{guest, Bookings, Read, true},
		{guest, Tickets, Read, false},
		{guest, Notifications, Update, false},
		{staff, Tickets, Update, true},
		{staff, Notifications, Read, true},
		{staff, Drafts, Pay, false},
		{admin, Tickets, Create, true},
		{admin, Drafts, Pay, true},
		{admin, Users, Create, true},
		{staff, Users, Create, false},
		{guest, Users, Create, false},
		{model.Identity{UserID: 4, Role: "owner"}, Rooms, Read, false},
		{model.Identity{Role: model.RoleAdmin}, Rooms, Read, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Allow(tc.who, tc.res, tc.act), "%s %s %s", tc.who.Role, tc.res, tc.act)
	}
}
