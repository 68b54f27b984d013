package models

import "time"

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleTrainee    UserRole = "TRAINEE"
	RoleSupervisor UserRole = "SUPERVISOR"
	RoleAdmin      UserRole = "ADMIN"
)

// User represents an application user stored in the users table.
type User struct {
	ID           string     `db:"id" json:"id"`
	Email        string     `db:"email" json:"email"`
	PasswordHash string     `db:"password_hash" json:"-"`
	FullName     string     `db:"full_name" json:"full_name"`
	Role         UserRole   `db:"role" json:"role"`
	Active       bool       `db:"active" json:"active"`
	LastLogin    *time.Time `db:"last_login" json:"last_login,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// Actor is the explicit acting-user context carried into every workflow
// operation. Services never reach into ambient session state.
type Actor struct {
	ID   string
	Role UserRole
}

// IsSupervisor reports whether the actor holds the supervisor role.
func (a Actor) IsSupervisor() bool { return a.Role == RoleSupervisor }

// IsAdmin reports whether the actor holds the admin role.
func (a Actor) IsAdmin() bool { return a.Role == RoleAdmin }

// SupervisorAssignment links a trainee to their assigned supervisor.
type SupervisorAssignment struct {
	ID           string    `db:"id" json:"id"`
	TraineeID    string    `db:"trainee_id" json:"trainee_id"`
	SupervisorID string    `db:"supervisor_id" json:"supervisor_id"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}
