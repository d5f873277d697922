package user

import "strings"

// Roles
const (
	// Admin
	RoleAdmin          = "admin:"
	RoleAdminOwner     = "admin:owner"
	RoleAdminPrincipal = "admin:principal"

	// Teacher
	RoleTeacher = "teacher:"

	// Student
	RoleStudent = "student:"
)

var (
	AdminRoles   = []string{RoleAdmin, RoleAdminOwner, RoleAdminPrincipal}
	TeacherRoles = []string{RoleTeacher}
	StudentRoles = []string{RoleStudent}
	AllRoles     = getAllRoles()

	rolePriorities = map[string]int{
		// Admins: 30 - 21
		RoleAdminOwner:     30,
		RoleAdminPrincipal: 29,
		RoleAdmin:          21,

		// Teachers: 20 - 11
		RoleTeacher: 11,

		// Students: 10 - 1
		RoleStudent: 1,
	}

	Roles = []Role{
		{Name: "Student", Value: RoleStudent},
		{Name: "Teacher", Value: RoleTeacher},
		{Name: "Admin", Value: RoleAdmin},
		{Name: "Admin Principal", Value: RoleAdminPrincipal},
		{Name: "Admin Owner", Value: RoleAdminOwner},
	}
)

func getAllRoles() []string {
	all := make([]string, 0, 5)
	all = append(all, AdminRoles...)
	all = append(all, TeacherRoles...)
	all = append(all, StudentRoles...)
	return all
}

func RolePriority(role string) int {
	return rolePriorities[role]
}

func MaxRolePriority(roles []string) int {
	var max int
	for _, role := range roles {
		if RolePriority(role) > max {
			max = RolePriority(role)
		}
	}
	return max
}

type Role struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Principal is the already-authenticated caller of a scheduling operation.
// Identity and session issuance live in a separate service; this system only
// ever sees the claims it forwarded.
type Principal struct {
	ID       string   `json:"id"`
	Username string   `json:"username"`
	Email    string   `json:"email"`
	SchoolID string   `json:"school_id"`
	Roles    []string `json:"roles"`
}

func (p *Principal) RoleStartsWith(prefix string) bool {
	for _, role := range p.Roles {
		if strings.HasPrefix(role, prefix) {
			return true
		}
	}
	return false
}

func (p *Principal) IsAdmin() bool {
	return p.RoleStartsWith(RoleAdmin)
}

func (p *Principal) IsTeacher() bool {
	return p.RoleStartsWith(RoleTeacher)
}

func (p *Principal) IsStudent() bool {
	return p.RoleStartsWith(RoleStudent)
}

// CanManageSchedule reports whether the principal may administer the timetable
// of the given school. Only admins scoped to that same school qualify.
func (p *Principal) CanManageSchedule(schoolID string) bool {
	return p.IsAdmin() && p.SchoolID != "" && p.SchoolID == schoolID
}

// CanViewSchool reports whether the principal may read the given school's
// timetable. Any authenticated member of the school qualifies.
func (p *Principal) CanViewSchool(schoolID string) bool {
	return p.SchoolID != "" && p.SchoolID == schoolID
}
