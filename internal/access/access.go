// Package access decides what a viewer may see and edit. It is a pure function of
// the viewer's role (and ownership, for listings); enforcement lives in the data layer.
package access

import (
	"github.com/vikasavnish/listinghub/internal/models"
)

// IntentKind is something the UI may offer.
type IntentKind int

const (
	BrowseListings IntentKind = iota
	EditListing
	EditListingStatus
	NavAddListing
	NavAdminDashboard
	ManageFavorites
)

type Intent struct {
	Kind    IntentKind
	Listing *models.Listing // for EditListing
}

// Decision is the outcome for one intent.
type Decision struct {
	Visible  bool `json:"visible"`
	Editable bool `json:"editable"`
}

var (
	hidden   = Decision{}
	readOnly = Decision{Visible: true}
	editable = Decision{Visible: true, Editable: true}
)

// Decide returns the decision for viewer, which is nil when signed out.
func Decide(viewer *models.User, in Intent) Decision {
	if viewer == nil {
		switch in.Kind {
		case BrowseListings:
			return readOnly
		default:
			return hidden
		}
	}

	switch in.Kind {
	case BrowseListings, ManageFavorites:
		return editable
	case EditListing:
		if in.Listing == nil {
			return hidden
		}
		if in.Listing.AgentID == viewer.ID {
			return editable
		}
		return byRole(viewer.Role, readOnly, readOnly, readOnly, editable)
	case EditListingStatus:
		return byRole(viewer.Role, readOnly, readOnly, readOnly, editable)
	case NavAddListing:
		return byRole(viewer.Role, hidden, hidden, editable, editable)
	case NavAdminDashboard:
		return byRole(viewer.Role, hidden, hidden, hidden, editable)
	default:
		return hidden
	}
}

// byRole picks one decision per role. Unknown roles get nothing.
func byRole(r models.Role, buyer, investor, agent, admin Decision) Decision {
	switch r {
	case models.RoleBuyer:
		return buyer
	case models.RoleInvestor:
		return investor
	case models.RoleAgent:
		return agent
	case models.RoleAdmin:
		return admin
	default:
		return hidden
	}
}

// Allowed is shorthand for an editable decision.
func Allowed(viewer *models.User, in Intent) bool {
	return Decide(viewer, in).Editable
}

// Tab is a bottom-navigation entry of the mobile layout.
type Tab string

const (
	TabMap       Tab = "map"
	TabSearch    Tab = "search"
	TabAdd       Tab = "add"
	TabFavorites Tab = "favorites"
	TabProfile   Tab = "profile"
	TabAdmin     Tab = "admin"
)

// Tabs lists the navigation entries for viewer in display order.
func Tabs(viewer *models.User) []Tab {
	if viewer == nil {
		// favourites is shown and prompts sign-in when opened
		return []Tab{TabMap, TabSearch, TabFavorites, TabProfile}
	}
	tabs := []Tab{TabMap, TabSearch}
	if Decide(viewer, Intent{Kind: NavAddListing}).Visible {
		tabs = append(tabs, TabAdd)
	}
	tabs = append(tabs, TabFavorites, TabProfile)
	if Decide(viewer, Intent{Kind: NavAdminDashboard}).Visible {
		tabs = append(tabs, TabAdmin)
	}
	return tabs
}
