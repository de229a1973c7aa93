// Package models defines the records persisted by the contact book.
package models

import "strings"

// User is a registered account. Users are never modified or deleted.
// Password is kept in clear text; the book offers no real security.
type User struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Session identifies the logged-in user.
type Session struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
}

// FindUserByEmail returns the first user whose email matches
// case-insensitively.
func FindUserByEmail(users []User, email string) (User, bool) {
	for _, u := range users {
		if strings.EqualFold(u.Email, email) {
			return u, true
		}
	}
	return User{}, false
}
