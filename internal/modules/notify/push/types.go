package push

import "github.com/gagikpog/meme-navigator/internal/models"

// TargetMode selects the audience base for a push dispatch.
type TargetMode string

const (
	// TargetEveryone starts from every live subscription.
	TargetEveryone TargetMode = "everyone"
	// TargetRoles starts from subscriptions whose owner has one of the
	// filter's roles.
	TargetRoles TargetMode = "roles"
)

// Filter narrows the audience of a dispatch. Allow lists (UserIDs,
// SessionIDs) further restrict the base audience; exclude lists always win
// over any allow rule.
type Filter struct {
	Mode              TargetMode
	Roles             []models.Role
	UserIDs           []string
	SessionIDs        []string
	ExcludeUserIDs    []string
	ExcludeSessionIDs []string
}

// Everyone is the unrestricted audience.
func Everyone() Filter { return Filter{Mode: TargetEveryone} }

// ForRoles targets subscriptions owned by users with any of the given roles.
func ForRoles(roles ...models.Role) Filter {
	return Filter{Mode: TargetRoles, Roles: roles}
}

// ExcludingUser returns a copy of the filter that drops all of the user's
// subscriptions, typically the actor who triggered the event.
func (f Filter) ExcludingUser(userID string) Filter {
	if userID == "" {
		return f
	}
	f.ExcludeUserIDs = append(append([]string{}, f.ExcludeUserIDs...), userID)
	return f
}

// Message is the payload shown by the service worker.
type Message struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	URL   string `json:"url,omitempty"`
	Icon  string `json:"icon,omitempty"`
	Tag   string `json:"tag,omitempty"`
}

// Stats summarizes a dispatch run.
type Stats struct {
	Targets int `json:"targets"`
	Sent    int `json:"sent"`
	Failed  int `json:"failed"`
	Pruned  int `json:"pruned"`
}
