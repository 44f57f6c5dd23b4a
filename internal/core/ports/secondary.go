package ports

import (
	"context"
	"io"

	"github.com/jupiterclapton/cenackle/client/internal/core/domain"
)

// --- DRIVEN (Ce dont le client a besoin) ---

// --- INPUTS (Command Pattern) ---

type RegisterCmd struct {
	Email           string `json:"email"`
	Username        string `json:"username"`
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"password_confirm"`
}

type LoginCmd struct {
	EmailOrUsername string `json:"email_or_username"`
	Password        string `json:"password"`
}

// Upload est un fichier à envoyer en multipart.
type Upload struct {
	Filename string
	Content  io.Reader
}

// UpdateProfileCmd : pointeur nil = champ non modifié.
type UpdateProfileCmd struct {
	FirstName      *string
	LastName       *string
	Email          *string
	Username       *string
	Bio            *string
	ProfilePicture *Upload
}

type ChangePasswordCmd struct {
	OldPassword        string `json:"old_password"`
	NewPassword        string `json:"new_password"`
	NewPasswordConfirm string `json:"new_password_confirm"`
}

type CreatePostCmd struct {
	Content string
	Image   *Upload
}

type ListPostsParams struct {
	Ordering string
	Search   string
}

// --- BACKEND REST ---

// AuthAPI couvre les endpoints /auth/.
type AuthAPI interface {
	Register(ctx context.Context, cmd RegisterCmd) error
	Login(ctx context.Context, cmd LoginCmd) (*domain.User, error)
	Logout(ctx context.Context) error
	Profile(ctx context.Context) (*domain.User, error)
	UpdateProfile(ctx context.Context, cmd UpdateProfileCmd) (*domain.User, error)
	CheckAuth(ctx context.Context) error
	ChangePassword(ctx context.Context, cmd ChangePasswordCmd) error

	ListUsers(ctx context.Context) ([]domain.UserSummary, error)
	UserDetail(ctx context.Context, userID int64) (*domain.UserSummary, error)
	Follow(ctx context.Context, userID int64) error
	Unfollow(ctx context.Context, userID int64) error
	Following(ctx context.Context, userID int64) ([]domain.UserSummary, error)
	Followers(ctx context.Context, userID int64) ([]domain.UserSummary, error)
}

// PostsAPI couvre les endpoints /posts/.
type PostsAPI interface {
	List(ctx context.Context, params ListPostsParams) ([]domain.Post, error)
	Feed(ctx context.Context) ([]domain.Post, error)
	Create(ctx context.Context, cmd CreatePostCmd) (*domain.Post, error)
	Get(ctx context.Context, postID int64) (*domain.Post, error)
	Delete(ctx context.Context, postID int64) error

	Like(ctx context.Context, postID int64) error
	Unlike(ctx context.Context, postID int64) error
	Retweet(ctx context.Context, postID int64) error
	Unretweet(ctx context.Context, postID int64) error

	Comments(ctx context.Context, postID int64) ([]domain.Comment, error)
	AddComment(ctx context.Context, postID int64, content string) (*domain.Comment, error)
	DeleteComment(ctx context.Context, commentID int64) error
}

// --- MESSAGERIE (BROKER) ---

// SessionEventPublisher notifie les autres composants locaux des transitions de session.
type SessionEventPublisher interface {
	PublishSessionStarted(ctx context.Context, user *domain.User) error
	PublishSessionExpired(ctx context.Context, userID int64) error
}

// --- NAVIGATION ---

// Navigator effectue la navigation "dure" vers le point d'entrée de login.
type Navigator interface {
	Navigate(target string)
}

// --- PERSISTANCE DE SESSION ---

// CSRFResetter est implémenté par la passerelle HTTP (cache du jeton).
type CSRFResetter interface {
	ResetCSRF()
}

// SessionPersister sauvegarde/efface les cookies de session entre deux exécutions.
type SessionPersister interface {
	Persist(ctx context.Context) error
	Clear(ctx context.Context) error
}

// --- MÉTRIQUES ---

// SessionMetrics est implémenté par telemetry.Metrics.
type SessionMetrics interface {
	ObserveProbe(trigger string, ok bool)
	IncExpirations()
}
