package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/jupiterclapton/cenackle/client/internal/core/domain"
	"github.com/jupiterclapton/cenackle/client/internal/core/ports"
)

// PostsClient implémente ports.PostsAPI.
type PostsClient struct {
	gw *Gateway
}

var _ ports.PostsAPI = (*PostsClient)(nil)

func NewPostsClient(gw *Gateway) *PostsClient {
	return &PostsClient{gw: gw}
}

func (c *PostsClient) List(ctx context.Context, params ports.ListPostsParams) ([]domain.Post, error) {
	q := url.Values{}
	if params.Ordering != "" {
		q.Set("ordering", params.Ordering)
	}
	if params.Search != "" {
		q.Set("search", params.Search)
	}
	return c.postList(ctx, Request{Method: http.MethodGet, Path: "/posts/posts/", Query: q})
}

func (c *PostsClient) Feed(ctx context.Context) ([]domain.Post, error) {
	return c.postList(ctx, Request{Method: http.MethodGet, Path: "/posts/posts/feed/"})
}

// Create : multipart quand il y a une image, sinon JSON avec image: null.
func (c *PostsClient) Create(ctx context.Context, cmd ports.CreatePostCmd) (*domain.Post, error) {
	req := Request{Method: http.MethodPost, Path: "/posts/posts/"}
	if cmd.Image != nil {
		req.Form = NewMultipart().Field("content", cmd.Content).File("image", cmd.Image)
	} else {
		req.JSON = map[string]any{"content": cmd.Content, "image": nil}
	}

	resp, err := c.gw.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	// Certains backends ne renvoient rien d'exploitable ; le feed sera rechargé
	if len(resp.JSON) == 0 {
		return nil, nil
	}
	var p domain.Post
	if err := resp.Decode(&p); err != nil {
		return nil, fmt.Errorf("decode created post: %w", err)
	}
	return &p, nil
}

func (c *PostsClient) Get(ctx context.Context, postID int64) (*domain.Post, error) {
	resp, err := c.gw.Do(ctx, Request{Method: http.MethodGet, Path: postPath(postID, "")})
	if err != nil {
		return nil, err
	}
	var p domain.Post
	if err := resp.Decode(&p); err != nil {
		return nil, fmt.Errorf("decode post %d: %w", postID, err)
	}
	return &p, nil
}

func (c *PostsClient) Delete(ctx context.Context, postID int64) error {
	return c.call(ctx, http.MethodDelete, postPath(postID, ""))
}

func (c *PostsClient) Like(ctx context.Context, postID int64) error {
	return c.call(ctx, http.MethodPost, postPath(postID, "like/"))
}

func (c *PostsClient) Unlike(ctx context.Context, postID int64) error {
	return c.call(ctx, http.MethodDelete, postPath(postID, "unlike/"))
}

func (c *PostsClient) Retweet(ctx context.Context, postID int64) error {
	return c.call(ctx, http.MethodPost, postPath(postID, "retweet/"))
}

func (c *PostsClient) Unretweet(ctx context.Context, postID int64) error {
	return c.call(ctx, http.MethodDelete, postPath(postID, "unretweet/"))
}

// --- COMMENTAIRES ---

func (c *PostsClient) Comments(ctx context.Context, postID int64) ([]domain.Comment, error) {
	resp, err := c.gw.Do(ctx, Request{Method: http.MethodGet, Path: postPath(postID, "comments/")})
	if err != nil {
		return nil, err
	}
	return decodeList[domain.Comment](resp)
}

func (c *PostsClient) AddComment(ctx context.Context, postID int64, content string) (*domain.Comment, error) {
	resp, err := c.gw.Do(ctx, Request{
		Method: http.MethodPost,
		Path:   postPath(postID, "comments/"),
		JSON:   map[string]string{"content": content},
	})
	if err != nil {
		return nil, err
	}
	var cm domain.Comment
	if err := resp.Decode(&cm); err != nil {
		return nil, fmt.Errorf("decode comment: %w", err)
	}
	return &cm, nil
}

func (c *PostsClient) DeleteComment(ctx context.Context, commentID int64) error {
	return c.call(ctx, http.MethodDelete, fmt.Sprintf("/posts/comments/%d/", commentID))
}

// --- HELPERS ---

func (c *PostsClient) call(ctx context.Context, method, path string) error {
	_, err := c.gw.Do(ctx, Request{Method: method, Path: path})
	return err
}

func (c *PostsClient) postList(ctx context.Context, req Request) ([]domain.Post, error) {
	resp, err := c.gw.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	return decodeList[domain.Post](resp)
}

func postPath(postID int64, action string) string {
	return fmt.Sprintf("/posts/posts/%d/%s", postID, action)
}
