package model

import "strconv"

type (
	MemberID  int64
	ContentID int64
)

// Role of the caller, supplied by the identity collaborator.
type Role string

const (
	RoleMember        Role = "member"
	RoleModerator     Role = "moderator"
	RoleAdministrator Role = "administrator"
)

// Actor is the role-tagged identity performing an operation.
type Actor struct {
	ID   MemberID `json:"id"`
	Role Role     `json:"role"`
}

// IsModerator - true for moderators.
func (a Actor) IsModerator() bool {
	return a.Role == RoleModerator
}

// IsAdministrator - true for administrators.
func (a Actor) IsAdministrator() bool {
	return a.Role == RoleAdministrator
}

// IsStaff - true for moderators and administrators.
func (a Actor) IsStaff() bool {
	return a.IsModerator() || a.IsAdministrator()
}

// ToInt64 - get the member ID.
func (id MemberID) ToInt64() int64 {
	return int64(id)
}

// ToString - get the member ID.
func (id MemberID) ToString() string {
	return strconv.FormatInt(int64(id), 10)
}

// ToInt64 - get the content ID.
func (id ContentID) ToInt64() int64 {
	return int64(id)
}
