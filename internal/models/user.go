package models

// User is a registered account. Users own and contribute to projects through the
// project_owners and project_contributors join tables.
type User struct {
	BaseModel

	Username  string `gorm:"uniqueIndex;not null;size:64" json:"username"`
	Email     string `gorm:"uniqueIndex;not null;size:255" json:"email"`
	Password  string `gorm:"not null" json:"-"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`

	ProjectsOwned       []Project `gorm:"many2many:project_owners;" json:"projects_owned,omitempty"`
	ProjectsContributed []Project `gorm:"many2many:project_contributors;" json:"projects_contributed,omitempty"`
}

// DisplayName returns the user's full name, falling back to the username.
func (u *User) DisplayName() string {
	if u == nil {
		return ""
	}
	switch {
	case u.FirstName != "" && u.LastName != "":
		return u.FirstName + " " + u.LastName
	case u.FirstName != "":
		return u.FirstName
	default:
		return u.Username
	}
}

// Matches reports whether identifier equals the user's id or username exactly.
func (u *User) Matches(identifier string) bool {
	if u == nil || identifier == "" {
		return false
	}
	return u.ID == identifier || u.Username == identifier
}
