package auth

// Auth actions multiplexed over POST /auth.
const (
	ActionLogin    = "login"
	ActionRegister = "register"
	ActionLogout   = "logout"
)

// ActionRequest is the body of POST /auth: an action discriminator plus the
// union of the fields each action reads.
type ActionRequest struct {
	Action          string `json:"action"`
	Username        string `json:"username"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}
