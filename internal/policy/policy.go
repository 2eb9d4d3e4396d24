// Package policy decides whether a principal may perform an action.
// Actions fall into three tiers: reads are open to everyone, writes need
// an authenticated principal and administration needs the ADMIN role.
// Ownership rules (only the proposer may delete a proposal) depend on
// stored rows and are enforced by the service layer.
package policy

import "github.com/iliyamo/film-festival/internal/model"

// Tier is the access level an action requires.
type Tier int

const (
	Anonymous Tier = iota
	Authenticated
	Admin
)

// Action names one protected operation.
type Action string

const (
	ReadFilms       Action = "films:read"
	ReadEvents      Action = "events:read"
	ReadGenres      Action = "genres:read"
	ReadOwnActivity Action = "me:read"

	ProposeFilm         Action = "films:propose"
	DeleteProposal      Action = "films:delete"
	VoteFilm            Action = "films:vote"
	RateFilm            Action = "films:rate"
	ProposeFilmToEvent  Action = "events:propose"
	VoteEventFilm       Action = "event_films:vote"
	DeleteEventProposal Action = "event_films:delete"

	MarkWatched Action = "films:watch"
	CreateEvent Action = "events:create"
	UpdateEvent Action = "events:update"
	DeleteEvent Action = "events:delete"
)

var tiers = map[Action]Tier{
	ReadFilms:       Anonymous,
	ReadEvents:      Anonymous,
	ReadGenres:      Anonymous,
	ReadOwnActivity: Authenticated,

	ProposeFilm:         Authenticated,
	DeleteProposal:      Authenticated,
	VoteFilm:            Authenticated,
	RateFilm:            Authenticated,
	ProposeFilmToEvent:  Authenticated,
	VoteEventFilm:       Authenticated,
	DeleteEventProposal: Authenticated,

	MarkWatched: Admin,
	CreateEvent: Admin,
	UpdateEvent: Admin,
	DeleteEvent: Admin,
}

// TierOf returns the tier action requires. Unknown actions require Admin.
func TierOf(action Action) Tier {
	if t, ok := tiers[action]; ok {
		return t
	}
	return Admin
}

// Principal is the authenticated caller. A nil *Principal is anonymous.
type Principal struct {
	UserID uint64
	Role   string
}

// IsAdmin reports whether p carries the ADMIN role.
func (p *Principal) IsAdmin() bool {
	return p != nil && p.Role == model.RoleAdmin
}

// Decision is the outcome of Authorize.
type Decision int

const (
	Allow Decision = iota
	// DenyUnauthenticated means the caller must sign in first.
	DenyUnauthenticated
	// DenyForbidden means the caller is signed in but lacks the role.
	DenyForbidden
)

// Allowed reports whether d permits the action.
func (d Decision) Allowed() bool { return d == Allow }

func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case DenyUnauthenticated:
		return "unauthenticated"
	default:
		return "forbidden"
	}
}

// Authorize decides whether user may perform action on subject. The
// subject is accepted for callers that have one at hand; the tiers do
// not inspect it.
func Authorize(action Action, subject any, user *Principal) Decision {
	_ = subject
	switch TierOf(action) {
	case Anonymous:
		return Allow
	case Authenticated:
		if user == nil {
			return DenyUnauthenticated
		}
		return Allow
	default:
		if user == nil {
			return DenyUnauthenticated
		}
		if !user.IsAdmin() {
			return DenyForbidden
		}
		return Allow
	}
}
