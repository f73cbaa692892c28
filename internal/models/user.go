package models

import "time"

type User struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"-"`
	Gender   string `json:"gender"`

	// Profile is the relative path of the avatar image, e.g. "Female/3.png".
	Profile string `json:"profile"`

	CreatedAt time.Time `json:"createdAt"`
}

// PublicUser is the subset of User shown to other users.
type PublicUser struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Profile   string    `json:"profile"`
	CreatedAt time.Time `json:"createdAt"`
}

// Public strips credentials and private fields.
func (u *User) Public() PublicUser {
	return PublicUser{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Profile:   u.Profile,
		CreatedAt: u.CreatedAt,
	}
}
