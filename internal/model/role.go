package model

import (
	"database/sql/driver"
	"fmt"

	"github.com/lib/pq"
)

// Role is one entry of the fixed role vocabulary shared with the identity provider.
type Role string

const (
	RoleAdmin     Role = "Admin"
	RolePhysician Role = "Physician"
	RolePatient   Role = "Patient"
)

// AllRoles lists the vocabulary in a stable order.
var AllRoles = []Role{RoleAdmin, RolePhysician, RolePatient}

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RolePhysician, RolePatient:
		return true
	}
	return false
}

// RoleSet is a set of roles stored as a postgres TEXT[] column. A user
// may hold none of them (not yet provisioned) or several.
type RoleSet []Role

// ParseRoles keeps the known roles from raw claim values and drops the rest.
func ParseRoles(values []string) RoleSet {
	var set RoleSet
	for _, v := range values {
		set = set.Add(Role(v))
	}
	return set
}

func (s RoleSet) Has(role Role) bool {
	for _, r := range s {
		if r == role {
			return true
		}
	}
	return false
}

// Add returns s with role included. Unknown roles are ignored.
func (s RoleSet) Add(role Role) RoleSet {
	if !role.Valid() || s.Has(role) {
		return s
	}
	return append(s, role)
}

// Missing returns the roles of s that other does not hold.
func (s RoleSet) Missing(other RoleSet) RoleSet {
	var out RoleSet
	for _, r := range s {
		if !other.Has(r) {
			out = append(out, r)
		}
	}
	return out
}

// Equal reports set equality, ignoring order.
func (s RoleSet) Equal(other RoleSet) bool {
	return len(s.Missing(other)) == 0 && len(other.Missing(s)) == 0
}

func (s RoleSet) Strings() []string {
	out := make([]string, len(s))
	for i, r := range s {
		out[i] = string(r)
	}
	return out
}

func (s RoleSet) Value() (driver.Value, error) {
	return pq.StringArray(s.Strings()).Value()
}

func (s *RoleSet) Scan(src interface{}) error {
	var arr pq.StringArray
	if err := arr.Scan(src); err != nil {
		return fmt.Errorf("scan roles: %w", err)
	}
	*s = ParseRoles(arr)
	return nil
}
