package httpapi

import (
	"context"
	"fmt"
	"net/http"

	"github.com/jupiterclapton/cenackle/client/internal/core/domain"
	"github.com/jupiterclapton/cenackle/client/internal/core/ports"
)

// AuthClient implémente ports.AuthAPI. Aucun cache : chaque appel = un endpoint.
type AuthClient struct {
	gw *Gateway
}

var _ ports.AuthAPI = (*AuthClient)(nil)

func NewAuthClient(gw *Gateway) *AuthClient {
	return &AuthClient{gw: gw}
}

func (c *AuthClient) Register(ctx context.Context, cmd ports.RegisterCmd) error {
	_, err := c.gw.Do(ctx, Request{Method: http.MethodPost, Path: "/auth/register/", JSON: cmd})
	return err
}

func (c *AuthClient) Login(ctx context.Context, cmd ports.LoginCmd) (*domain.User, error) {
	resp, err := c.gw.Do(ctx, Request{Method: http.MethodPost, Path: "/auth/login/", JSON: cmd})
	if err != nil {
		return nil, err
	}
	return decodeUserEnvelope(resp)
}

func (c *AuthClient) Logout(ctx context.Context) error {
	_, err := c.gw.Do(ctx, Request{Method: http.MethodPost, Path: "/auth/logout/"})
	return err
}

func (c *AuthClient) Profile(ctx context.Context) (*domain.User, error) {
	resp, err := c.gw.Do(ctx, Request{Method: http.MethodGet, Path: "/auth/profile/"})
	if err != nil {
		return nil, err
	}
	var u domain.User
	if err := resp.Decode(&u); err != nil {
		return nil, fmt.Errorf("decode profile: %w", err)
	}
	return &u, nil
}

// UpdateProfile envoie du multipart seulement si une photo est jointe.
func (c *AuthClient) UpdateProfile(ctx context.Context, cmd ports.UpdateProfileCmd) (*domain.User, error) {
	fields := profileFields(cmd)

	req := Request{Method: http.MethodPatch, Path: "/auth/profile/"}
	if cmd.ProfilePicture != nil {
		form := NewMultipart()
		for _, f := range fields {
			form.Field(f[0], f[1])
		}
		form.File("profile_picture", cmd.ProfilePicture)
		req.Form = form
	} else {
		payload := make(map[string]string, len(fields))
		for _, f := range fields {
			payload[f[0]] = f[1]
		}
		req.JSON = payload
	}

	resp, err := c.gw.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	return decodeUserEnvelope(resp)
}

func (c *AuthClient) CheckAuth(ctx context.Context) error {
	_, err := c.gw.Do(ctx, Request{Method: http.MethodGet, Path: "/auth/check-auth/"})
	return err
}

func (c *AuthClient) ChangePassword(ctx context.Context, cmd ports.ChangePasswordCmd) error {
	_, err := c.gw.Do(ctx, Request{Method: http.MethodPost, Path: "/auth/change-password/", JSON: cmd})
	return err
}

// --- GRAPHE D'ABONNEMENTS ---

func (c *AuthClient) ListUsers(ctx context.Context) ([]domain.UserSummary, error) {
	return c.userList(ctx, "/auth/users/")
}

func (c *AuthClient) UserDetail(ctx context.Context, userID int64) (*domain.UserSummary, error) {
	resp, err := c.gw.Do(ctx, Request{Method: http.MethodGet, Path: fmt.Sprintf("/auth/users/%d/", userID)})
	if err != nil {
		return nil, err
	}
	var u domain.UserSummary
	if err := resp.Decode(&u); err != nil {
		return nil, fmt.Errorf("decode user %d: %w", userID, err)
	}
	return &u, nil
}

func (c *AuthClient) Follow(ctx context.Context, userID int64) error {
	_, err := c.gw.Do(ctx, Request{Method: http.MethodPost, Path: fmt.Sprintf("/auth/follow/%d/", userID)})
	return err
}

func (c *AuthClient) Unfollow(ctx context.Context, userID int64) error {
	_, err := c.gw.Do(ctx, Request{Method: http.MethodDelete, Path: fmt.Sprintf("/auth/follow/%d/", userID)})
	return err
}

func (c *AuthClient) Following(ctx context.Context, userID int64) ([]domain.UserSummary, error) {
	return c.userList(ctx, fmt.Sprintf("/auth/%d/following/", userID))
}

func (c *AuthClient) Followers(ctx context.Context, userID int64) ([]domain.UserSummary, error) {
	return c.userList(ctx, fmt.Sprintf("/auth/%d/followers/", userID))
}

func (c *AuthClient) userList(ctx context.Context, path string) ([]domain.UserSummary, error) {
	resp, err := c.gw.Do(ctx, Request{Method: http.MethodGet, Path: path})
	if err != nil {
		return nil, err
	}
	return decodeList[domain.UserSummary](resp)
}

// --- HELPERS ---

// decodeUserEnvelope accepte {"user": {...}} ou l'utilisateur directement.
func decodeUserEnvelope(resp *Response) (*domain.User, error) {
	var envelope struct {
		User *domain.User `json:"user"`
	}
	if err := resp.Decode(&envelope); err != nil {
		return nil, fmt.Errorf("decode user: %w", err)
	}
	if envelope.User != nil {
		return envelope.User, nil
	}

	var u domain.User
	if err := resp.Decode(&u); err != nil {
		return nil, fmt.Errorf("decode user: %w", err)
	}
	if u.ID == 0 && u.Username == "" {
		return nil, fmt.Errorf("decode user: %w", domain.ErrNotFound)
	}
	return &u, nil
}

func profileFields(cmd ports.UpdateProfileCmd) [][2]string {
	var fields [][2]string
	add := func(name string, v *string) {
		if v != nil {
			fields = append(fields, [2]string{name, *v})
		}
	}
	add("first_name", cmd.FirstName)
	add("last_name", cmd.LastName)
	add("email", cmd.Email)
	add("username", cmd.Username)
	add("bio", cmd.Bio)
	return fields
}
