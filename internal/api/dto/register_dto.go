package dto

// RegisterRequest payload for local signup. DateOfBirth uses YYYY-MM-DD.
type RegisterRequest struct {
	Email        string `json:"email"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	Password     string `json:"password"`
	DateOfBirth  string `json:"date_of_birth"`
	IsSubscribed bool   `json:"is_subscribed"`
}

// ResendRequest payload for re-sending the verification email.
type ResendRequest struct {
	Email string `json:"email"`
}
