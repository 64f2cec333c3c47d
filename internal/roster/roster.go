// Package roster supplies the user set and role policy for weekly goals.
// The roster is an external policy input: it decides who appears on the
// leaderboard and which roles are excluded from having a weekly goal at all.
package roster

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// User is one roster entry.
type User struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
	Role string `yaml:"role"`
}

// Roster lists the known users and the roles excluded from weekly goals.
type Roster struct {
	Users         []User   `yaml:"users"`
	ExcludedRoles []string `yaml:"excluded_roles"`

	excluded map[string]struct{}
	byID     map[string]User
}

// Load reads a roster YAML file.
func Load(path string) (*Roster, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read roster: %w", err)
	}
	var r Roster
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parse roster: %w", err)
	}
	r.index()
	return &r, nil
}

func (r *Roster) index() {
	r.excluded = make(map[string]struct{}, len(r.ExcludedRoles))
	for _, role := range r.ExcludedRoles {
		r.excluded[role] = struct{}{}
	}
	r.byID = make(map[string]User, len(r.Users))
	for _, u := range r.Users {
		r.byID[u.ID] = u
	}
}

// AllowGoal reports whether a user may hold a weekly goal. Users absent from
// the roster are allowed; exclusion is strictly role-based.
func (r *Roster) AllowGoal(userID string) bool {
	u, ok := r.byID[userID]
	if !ok {
		return true
	}
	_, excluded := r.excluded[u.Role]
	return !excluded
}

// EligibleUsers returns the ids of all roster users whose role is not
// excluded, in roster order.
func (r *Roster) EligibleUsers() []string {
	out := make([]string, 0, len(r.Users))
	for _, u := range r.Users {
		if _, excluded := r.excluded[u.Role]; !excluded {
			out = append(out, u.ID)
		}
	}
	return out
}

// Permissive is the policy used when no roster file is configured: every
// user may hold a goal and the leaderboard has no default user set.
type Permissive struct{}

// AllowGoal implements the service policy.
func (Permissive) AllowGoal(userID string) bool { return true }

// EligibleUsers implements the service policy.
func (Permissive) EligibleUsers() []string { return nil }
