package session

// Roles known to the backend. A user carries exactly one.
const (
	RoleAdmin             = "admin"
	RoleTeacher           = "teacher"
	RoleMaintenanceOffice = "maintenance_office"
)

var AllRoles = []string{RoleAdmin, RoleTeacher, RoleMaintenanceOffice}

func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

func (u User) IsTeacher() bool {
	return u.Role == RoleTeacher
}
