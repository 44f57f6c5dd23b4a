package domain

import "strings"

// User est l'utilisateur de la session courante (profil complet).
type User struct {
	ID             int64   `json:"id"`
	Username       string  `json:"username"`
	Email          string  `json:"email"`
	FirstName      string  `json:"first_name,omitempty"`
	LastName       string  `json:"last_name,omitempty"`
	ProfilePicture *string `json:"profile_picture,omitempty"`
	Bio            *string `json:"bio,omitempty"`
}

// UserSummary est la projection du graphe d'abonnements affichée dans les listes.
type UserSummary struct {
	ID             int64   `json:"id"`
	Username       string  `json:"username"`
	FirstName      string  `json:"first_name,omitempty"`
	LastName       string  `json:"last_name,omitempty"`
	ProfilePicture *string `json:"profile_picture,omitempty"`
	Bio            *string `json:"bio,omitempty"`
	FollowersCount int     `json:"followers_count"`
	FollowingCount int     `json:"following_count"`
	FollowedByMe   bool    `json:"followed_by_me"`
}

// Initial sert d'avatar de secours.
func (u *User) Initial() string {
	return initial(u.Username)
}

func (u *UserSummary) Initial() string {
	return initial(u.Username)
}

// FullName concatène prénom et nom, vide si aucun des deux.
func (u *UserSummary) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

func initial(username string) string {
	if username == "" {
		return "U"
	}
	return strings.ToUpper(string([]rune(username)[:1]))
}

// OwnedBy indique si l'auteur (id ou username) correspond à l'utilisateur.
func OwnedBy(u *User, authorID int64, authorUsername string) bool {
	if u == nil {
		return false
	}
	return authorID == u.ID || (authorUsername != "" && authorUsername == u.Username)
}

// Str retourne la valeur pointée ou "".
func Str(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
