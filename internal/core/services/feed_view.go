package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/jupiterclapton/cenackle/client/internal/core/domain"
	"github.com/jupiterclapton/cenackle/client/internal/core/ports"
)

// ConfirmFunc est demandé avant une suppression de post. false = annulation.
type ConfirmFunc func(ctx context.Context, post domain.Post) bool

// FeedSnapshot est une copie de l'état de la vue, sûre à lire hors verrou.
type FeedSnapshot struct {
	Posts    []domain.Post
	Users    []domain.UserSummary
	Comments map[int64][]domain.Comment
	Open     map[int64]bool
	Loading  bool
	Posting  bool
	Err      string

	Commenting      map[int64]bool
	DeletingComment map[int64]bool
	DeletingPost    map[int64]bool
	Following       map[int64]bool
	Liking          map[int64]bool
	Retweeting      map[int64]bool
}

type feedState struct {
	posts    []domain.Post
	users    []domain.UserSummary
	comments map[int64][]domain.Comment
	open     map[int64]bool
	loading  bool
	posting  bool
	err      string

	commenting      map[int64]bool
	deletingComment map[int64]bool
	deletingPost    map[int64]bool
	following       map[int64]bool
	liking          map[int64]bool
	retweeting      map[int64]bool
}

// FeedView est le conteneur d'état du fil d'actualité.
// Le verrou n'est jamais tenu pendant un appel réseau.
type FeedView struct {
	posts   ports.PostsAPI
	auth    ports.AuthAPI
	session ports.SessionShell
	confirm ConfirmFunc

	mu    sync.Mutex
	state feedState
}

var _ ports.FeedLoader = (*FeedView)(nil)

func NewFeedView(posts ports.PostsAPI, auth ports.AuthAPI, session ports.SessionShell, confirm ConfirmFunc) *FeedView {
	if confirm == nil {
		confirm = func(context.Context, domain.Post) bool { return true }
	}
	return &FeedView{
		posts:   posts,
		auth:    auth,
		session: session,
		confirm: confirm,
		state: feedState{
			comments:        map[int64][]domain.Comment{},
			open:            map[int64]bool{},
			commenting:      map[int64]bool{},
			deletingComment: map[int64]bool{},
			deletingPost:    map[int64]bool{},
			following:       map[int64]bool{},
			liking:          map[int64]bool{},
			retweeting:      map[int64]bool{},
		},
	}
}

// --- CHARGEMENT ---

func (v *FeedView) Load(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "feed.load")
	defer span.End()

	v.mu.Lock()
	v.state.loading = true
	v.mu.Unlock()

	posts, err := v.posts.Feed(ctx)

	v.mu.Lock()
	defer v.mu.Unlock()
	v.state.loading = false
	if err != nil {
		span.RecordError(err)
		v.state.err = err.Error()
		return fmt.Errorf("load feed: %w", err)
	}
	v.state.posts = posts
	v.state.err = ""
	return nil
}

// LoadUsers charge les suggestions d'utilisateurs, sans l'utilisateur courant.
func (v *FeedView) LoadUsers(ctx context.Context) error {
	users, err := v.auth.ListUsers(ctx)
	if err != nil {
		return v.fail(fmt.Errorf("load users: %w", err))
	}

	me := v.session.CurrentUser()
	filtered := make([]domain.UserSummary, 0, len(users))
	for _, u := range users {
		if me != nil && u.ID == me.ID {
			continue
		}
		filtered = append(filtered, u)
	}

	v.mu.Lock()
	v.state.users = filtered
	v.mu.Unlock()
	return nil
}

// --- PUBLICATION ---

func (v *FeedView) SubmitPost(ctx context.Context, cmd ports.CreatePostCmd) error {
	if _, err := v.requireUser("post"); err != nil {
		return err
	}
	cmd.Content = strings.TrimSpace(cmd.Content)
	if cmd.Content == "" && cmd.Image == nil {
		return domain.ErrEmptyPost
	}

	v.mu.Lock()
	if v.state.posting {
		v.mu.Unlock()
		return domain.ErrBusy
	}
	v.state.posting = true
	v.mu.Unlock()
	defer func() {
		v.mu.Lock()
		v.state.posting = false
		v.mu.Unlock()
	}()

	ctx, span := tracer.Start(ctx, "feed.submit_post")
	defer span.End()

	if _, err := v.posts.Create(ctx, cmd); err != nil {
		span.RecordError(err)
		return v.fail(fmt.Errorf("create post: %w", err))
	}
	return v.Load(ctx)
}

// --- LIKE / RETWEET (mutation puis re-fetch autoritaire) ---

func (v *FeedView) ToggleLike(ctx context.Context, postID int64) error {
	return v.togglePost(ctx, postID, "like posts", v.state.liking,
		func(p domain.Post) bool { return p.LikedByMe },
		v.posts.Like, v.posts.Unlike,
		func(p *domain.Post, on bool) {
			p.LikedByMe = on
			p.LikesCount = bump(p.LikesCount, on)
		})
}

func (v *FeedView) ToggleRetweet(ctx context.Context, postID int64) error {
	return v.togglePost(ctx, postID, "retweet", v.state.retweeting,
		func(p domain.Post) bool { return p.RetweetedByMe },
		v.posts.Retweet, v.posts.Unretweet,
		func(p *domain.Post, on bool) {
			p.RetweetedByMe = on
			p.RetweetsCount = bump(p.RetweetsCount, on)
		})
}

type postAction func(ctx context.Context, postID int64) error

func (v *FeedView) togglePost(ctx context.Context, postID int64, action string, busy map[int64]bool,
	current func(domain.Post) bool, on, off postAction, delta func(*domain.Post, bool)) error {

	if _, err := v.requireUser(action); err != nil {
		return err
	}
	post, ok := v.post(postID)
	if !ok {
		return domain.ErrNotFound
	}
	if !v.acquire(busy, postID) {
		return domain.ErrBusy
	}
	defer v.release(busy, postID)

	ctx, span := tracer.Start(ctx, "feed.toggle", trace.WithAttributes(
		attribute.String("feed.action", action),
		attribute.Int64("post.id", postID),
	))
	defer span.End()

	was := current(post)
	call := on
	if was {
		call = off
	}
	if err := call(ctx, postID); err != nil {
		span.RecordError(err)
		return v.fail(err)
	}

	fresh, err := v.posts.Get(ctx, postID)
	if err != nil || fresh == nil {
		// Le backend a accepté la mutation : on applique le delta local faute de mieux
		slog.Warn("Post re-fetch failed, applying local delta", "post_id", postID, "error", err)
		v.updatePost(postID, func(p *domain.Post) { delta(p, !was) })
		return nil
	}
	v.updatePost(postID, func(p *domain.Post) { *p = *fresh })
	return nil
}

// --- COMMENTAIRES ---

// ToggleComments ouvre/ferme un fil de commentaires ; chargement à la première ouverture.
func (v *FeedView) ToggleComments(ctx context.Context, postID int64) error {
	v.mu.Lock()
	v.state.open[postID] = !v.state.open[postID]
	opened := v.state.open[postID]
	_, loaded := v.state.comments[postID]
	v.mu.Unlock()

	if !opened || loaded {
		return nil
	}
	return v.loadComments(ctx, postID)
}

func (v *FeedView) loadComments(ctx context.Context, postID int64) error {
	comments, err := v.posts.Comments(ctx, postID)
	if err != nil {
		return v.fail(fmt.Errorf("load comments: %w", err))
	}
	v.mu.Lock()
	v.state.comments[postID] = comments
	v.mu.Unlock()
	return nil
}

// SubmitComment ajoute le commentaire en tête du cache et incrémente le compteur local.
func (v *FeedView) SubmitComment(ctx context.Context, postID int64, text string) error {
	if _, err := v.requireUser("comment"); err != nil {
		return err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return domain.ErrEmptyComment
	}
	if !v.acquire(v.state.commenting, postID) {
		return domain.ErrBusy
	}
	defer v.release(v.state.commenting, postID)

	ctx, span := tracer.Start(ctx, "feed.submit_comment", trace.WithAttributes(attribute.Int64("post.id", postID)))
	defer span.End()

	comment, err := v.posts.AddComment(ctx, postID, text)
	if err != nil {
		span.RecordError(err)
		return v.fail(fmt.Errorf("add comment: %w", err))
	}

	v.mu.Lock()
	v.state.comments[postID] = append([]domain.Comment{*comment}, v.state.comments[postID]...)
	v.state.open[postID] = true
	v.mu.Unlock()
	v.updatePost(postID, func(p *domain.Post) { p.CommentsCount++ })
	return nil
}

// DeleteComment retire le commentaire et décrémente le compteur, jamais sous zéro.
func (v *FeedView) DeleteComment(ctx context.Context, postID, commentID int64) error {
	if _, err := v.requireUser("delete comments"); err != nil {
		return err
	}
	if !v.acquire(v.state.deletingComment, commentID) {
		return domain.ErrBusy
	}
	defer v.release(v.state.deletingComment, commentID)

	if err := v.posts.DeleteComment(ctx, commentID); err != nil {
		return v.fail(fmt.Errorf("delete comment: %w", err))
	}

	v.mu.Lock()
	cached := v.state.comments[postID]
	kept := make([]domain.Comment, 0, len(cached))
	for _, c := range cached {
		if c.ID != commentID {
			kept = append(kept, c)
		}
	}
	if _, ok := v.state.comments[postID]; ok {
		v.state.comments[postID] = kept
	}
	v.mu.Unlock()
	v.updatePost(postID, func(p *domain.Post) { p.CommentsCount = max(0, p.CommentsCount-1) })
	return nil
}

// --- SUPPRESSION DE POST ---

func (v *FeedView) DeletePost(ctx context.Context, postID int64) error {
	if _, err := v.requireUser("delete posts"); err != nil {
		return err
	}
	post, ok := v.post(postID)
	if !ok {
		post = domain.Post{ID: postID}
	}
	if !v.confirm(ctx, post) {
		return domain.ErrCancelled
	}
	if !v.acquire(v.state.deletingPost, postID) {
		return domain.ErrBusy
	}
	defer v.release(v.state.deletingPost, postID)

	if err := v.posts.Delete(ctx, postID); err != nil {
		return v.fail(fmt.Errorf("delete post: %w", err))
	}

	v.mu.Lock()
	kept := make([]domain.Post, 0, len(v.state.posts))
	for _, p := range v.state.posts {
		if p.ID != postID {
			kept = append(kept, p)
		}
	}
	v.state.posts = kept
	delete(v.state.comments, postID)
	delete(v.state.open, postID)
	v.mu.Unlock()
	return nil
}

// --- ABONNEMENTS ---

// ToggleFollow suit/ne suit plus, puis recharge l'utilisateur. Si le re-fetch échoue,
// on applique le delta local (followed_by_me inversé, followers_count ± 1).
func (v *FeedView) ToggleFollow(ctx context.Context, userID int64) error {
	if _, err := v.requireUser("follow users"); err != nil {
		return err
	}
	if !v.acquire(v.state.following, userID) {
		return domain.ErrBusy
	}
	defer v.release(v.state.following, userID)

	ctx, span := tracer.Start(ctx, "feed.toggle_follow", trace.WithAttributes(attribute.Int64("user.id", userID)))
	defer span.End()

	target, ok := v.user(userID)
	if !ok {
		fetched, err := v.auth.UserDetail(ctx, userID)
		if err != nil {
			return v.fail(fmt.Errorf("load user: %w", err))
		}
		target = *fetched
		v.mu.Lock()
		v.state.users = append(v.state.users, target)
		v.mu.Unlock()
	}

	was := target.FollowedByMe
	var err error
	if was {
		err = v.auth.Unfollow(ctx, userID)
	} else {
		err = v.auth.Follow(ctx, userID)
	}
	if err != nil {
		span.RecordError(err)
		return v.fail(err)
	}

	fresh, err := v.auth.UserDetail(ctx, userID)
	if err != nil || fresh == nil {
		slog.Warn("User re-fetch failed, applying local delta", "user_id", userID, "error", err)
		v.updateUser(userID, func(u *domain.UserSummary) {
			u.FollowedByMe = !was
			u.FollowersCount = bump(u.FollowersCount, !was)
		})
		return nil
	}
	v.updateUser(userID, func(u *domain.UserSummary) { *u = *fresh })
	return nil
}

// CanDelete : l'utilisateur courant est-il l'auteur ?
func (v *FeedView) CanDelete(authorID int64, authorUsername string) bool {
	return domain.OwnedBy(v.session.CurrentUser(), authorID, authorUsername)
}

// --- ÉTAT ---

func (v *FeedView) Snapshot() FeedSnapshot {
	v.mu.Lock()
	defer v.mu.Unlock()

	comments := make(map[int64][]domain.Comment, len(v.state.comments))
	for id, cs := range v.state.comments {
		comments[id] = append([]domain.Comment(nil), cs...)
	}
	return FeedSnapshot{
		Posts:           append([]domain.Post(nil), v.state.posts...),
		Users:           append([]domain.UserSummary(nil), v.state.users...),
		Comments:        comments,
		Open:            copySet(v.state.open),
		Loading:         v.state.loading,
		Posting:         v.state.posting,
		Err:             v.state.err,
		Commenting:      copySet(v.state.commenting),
		DeletingComment: copySet(v.state.deletingComment),
		DeletingPost:    copySet(v.state.deletingPost),
		Following:       copySet(v.state.following),
		Liking:          copySet(v.state.liking),
		Retweeting:      copySet(v.state.retweeting),
	}
}

// --- HELPERS ---

func (v *FeedView) requireUser(action string) (*domain.User, error) {
	u := v.session.CurrentUser()
	if u == nil {
		err := fmt.Errorf("sign in to %s: %w", action, domain.ErrNotAuthenticated)
		v.setErr(err.Error())
		return nil, err
	}
	return u, nil
}

func (v *FeedView) fail(err error) error {
	var apiErr *domain.APIError
	msg := err.Error()
	if errors.As(err, &apiErr) {
		msg = apiErr.Error()
	}
	v.setErr(msg)
	return err
}

func (v *FeedView) setErr(msg string) {
	v.mu.Lock()
	v.state.err = msg
	v.mu.Unlock()
}

func (v *FeedView) acquire(set map[int64]bool, id int64) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if set[id] {
		return false
	}
	set[id] = true
	return true
}

func (v *FeedView) release(set map[int64]bool, id int64) {
	v.mu.Lock()
	delete(set, id)
	v.mu.Unlock()
}

func (v *FeedView) post(postID int64) (domain.Post, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, p := range v.state.posts {
		if p.ID == postID {
			return p, true
		}
	}
	return domain.Post{}, false
}

func (v *FeedView) updatePost(postID int64, fn func(*domain.Post)) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for i := range v.state.posts {
		if v.state.posts[i].ID == postID {
			fn(&v.state.posts[i])
			return
		}
	}
}

func (v *FeedView) user(userID int64) (domain.UserSummary, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, u := range v.state.users {
		if u.ID == userID {
			return u, true
		}
	}
	return domain.UserSummary{}, false
}

func (v *FeedView) updateUser(userID int64, fn func(*domain.UserSummary)) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for i := range v.state.users {
		if v.state.users[i].ID == userID {
			fn(&v.state.users[i])
			return
		}
	}
}

func bump(n int, up bool) int {
	if up {
		return n + 1
	}
	return max(0, n-1)
}

func copySet(src map[int64]bool) map[int64]bool {
	out := make(map[int64]bool, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}
