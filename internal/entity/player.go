package entity

type Player struct {
	Name string `json:"name"`
	Mark string `json:"mark,omitempty"`
}

type User struct {
	Username     string `json:"username"`
	PasswordHash string `json:"-"`
}
