package role

import "slices"

type Name string

const (
	User    Name = "user"
	Trainer Name = "trainer"
	Admin   Name = "admin"
)

type Permission string

const (
	ViewSchedules Permission = "view_schedules"
	BookClasses   Permission = "book_classes"
	ManageClasses Permission = "manage_classes"
	ViewStudents  Permission = "view_students"
	ManageUsers   Permission = "manage_users"
	AdminPanel    Permission = "admin_panel"
)

type Role struct {
	Level       int          `json:"level"`
	Name        Name         `json:"name"`
	Permissions []Permission `json:"permissions"`
}

// FromLevel maps an access level to its role. Levels outside 0..2 fall back
// to the level-0 role.
func FromLevel(level int) Role {
	switch level {
	case 1:
		return Role{
			Level:       1,
			Name:        Trainer,
			Permissions: []Permission{ViewSchedules, ManageClasses, ViewStudents},
		}
	case 2:
		return Role{
			Level:       2,
			Name:        Admin,
			Permissions: []Permission{ViewSchedules, ManageClasses, ViewStudents, ManageUsers, AdminPanel},
		}
	default:
		return Role{
			Level:       0,
			Name:        User,
			Permissions: []Permission{ViewSchedules, BookClasses},
		}
	}
}

func (r Role) Has(p Permission) bool {
	return slices.Contains(r.Permissions, p)
}

func (r Role) IsAdmin() bool {
	return r.Level == 2
}

func (r Role) IsTrainer() bool {
	return r.Level >= 1
}
