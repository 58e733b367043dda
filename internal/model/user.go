package model

import (
	"encoding/json"
	"time"
)

// User is a person known to the system. Admin, physician and patient are
// roles of the same record.
type User struct {
	ID           int64     `json:"id" db:"id"`
	FirstName    string    `json:"first_name" db:"first_name"`
	LastName     string    `json:"last_name" db:"last_name"`
	EmailAddress string    `json:"email_address" db:"email_address"`
	Roles        RoleSet   `json:"roles" db:"roles"`
	Pending      bool      `json:"pending" db:"pending"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// MarshalJSON adds the per-role booleans the web client reads.
func (u User) MarshalJSON() ([]byte, error) {
	type plain User
	roles := u.Roles
	if roles == nil {
		roles = RoleSet{}
	}
	p := plain(u)
	p.Roles = roles
	return json.Marshal(struct {
		plain
		IsAdmin     bool `json:"is_admin"`
		IsPhysician bool `json:"is_physician"`
		IsPatient   bool `json:"is_patient"`
	}{
		plain:       p,
		IsAdmin:     u.Roles.Has(RoleAdmin),
		IsPhysician: u.Roles.Has(RolePhysician),
		IsPatient:   u.Roles.Has(RolePatient),
	})
}

// UserPatch lists the user columns an update may touch.
type UserPatch struct {
	FirstName    *string `json:"first_name" binding:"omitempty,min=1,max=100"`
	LastName     *string `json:"last_name" binding:"omitempty,max=100"`
	EmailAddress *string `json:"email_address" binding:"omitempty,email"`
}

func (p UserPatch) Empty() bool {
	return p.FirstName == nil && p.LastName == nil && p.EmailAddress == nil
}

func (p UserPatch) Apply(u *User) {
	if p.FirstName != nil {
		u.FirstName = *p.FirstName
	}
	if p.LastName != nil {
		u.LastName = *p.LastName
	}
	if p.EmailAddress != nil {
		u.EmailAddress = *p.EmailAddress
	}
}

// PatientPhysician binds a patient to their single physician.
type PatientPhysician struct {
	PatientID   int64 `json:"patient_id" db:"patient_id"`
	PhysicianID int64 `json:"physician_id" db:"physician_id"`
}
