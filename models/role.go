package models

// SessionRole: уровень привилегий администратора в текущей сессии.
type SessionRole string

const (
	RoleLimited  SessionRole = "LIMITED"
	RoleAbsolute SessionRole = "ABSOLUTE"
)

func (r SessionRole) Valid() bool {
	switch r {
	case RoleLimited, RoleAbsolute:
		return true
	default:
		return false
	}
}

// Allows reports whether r satisfies the required tier.
func (r SessionRole) Allows(required SessionRole) bool {
	if !r.Valid() {
		return false
	}
	if required == RoleAbsolute {
		return r == RoleAbsolute
	}
	return true
}
