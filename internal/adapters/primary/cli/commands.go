package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jupiterclapton/cenackle/client/internal/core/domain"
	"github.com/jupiterclapton/cenackle/client/internal/core/ports"
)

// --- SESSION ---

func (a *App) cmdLogin(ctx context.Context, args []string) error {
	fs := a.flags("login")
	password := fs.String("password", os.Getenv("CENACKLE_PASSWORD"), "password (prompted when empty)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return fmt.Errorf("%w: login [-password pw] <email|username>", ErrUsage)
	}
	if *password == "" {
		pw, err := a.prompt("Password: ")
		if err != nil {
			return fmt.Errorf("read password: %w", err)
		}
		*password = pw
	}

	user, err := a.Login.Submit(ctx, fs.Arg(0), *password)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.Out, "Signed in as %s (#%d)\n", user.Username, user.ID)
	return nil
}

func (a *App) cmdLogout(ctx context.Context, args []string) error {
	if err := a.Session.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.Out, "Signed out")
	return nil
}

func (a *App) cmdRegister(ctx context.Context, args []string) error {
	fs := a.flags("register")
	var cmd ports.RegisterCmd
	fs.StringVar(&cmd.Email, "email", "", "email address")
	fs.StringVar(&cmd.Username, "username", "", "username")
	fs.StringVar(&cmd.FirstName, "first-name", "", "first name")
	fs.StringVar(&cmd.LastName, "last-name", "", "last name")
	fs.StringVar(&cmd.Password, "password", os.Getenv("CENACKLE_PASSWORD"), "password (prompted when empty)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cmd.PasswordConfirm = cmd.Password
	if cmd.Password == "" {
		var err error
		if cmd.Password, err = a.prompt("Password: "); err != nil {
			return fmt.Errorf("read password: %w", err)
		}
		if cmd.PasswordConfirm, err = a.prompt("Confirm password: "); err != nil {
			return fmt.Errorf("read password: %w", err)
		}
	}

	user, err := a.Register.Submit(ctx, cmd)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.Out, "Welcome %s, you are signed in\n", user.Username)
	return nil
}

func (a *App) cmdWhoami(ctx context.Context, args []string) error {
	user := a.Session.CurrentUser()
	if user == nil {
		fmt.Fprintln(a.Out, "Not signed in")
		return nil
	}
	renderUser(a.Out, user)
	return nil
}

// --- POSTS ---

func (a *App) cmdFeed(ctx context.Context, args []string) error {
	if err := a.Feed.Load(ctx); err != nil {
		return err
	}
	a.renderPosts(a.Feed.Snapshot().Posts)
	return nil
}

func (a *App) cmdPosts(ctx context.Context, args []string) error {
	fs := a.flags("posts")
	var params ports.ListPostsParams
	fs.StringVar(&params.Search, "search", "", "full-text search")
	fs.StringVar(&params.Ordering, "ordering", "", "ordering field, e.g. -created_at")
	if err := fs.Parse(args); err != nil {
		return err
	}

	posts, err := a.Posts.List(ctx, params)
	if err != nil {
		return err
	}
	a.renderPosts(posts)
	return nil
}

func (a *App) cmdPost(ctx context.Context, args []string) error {
	fs := a.flags("post")
	image := fs.String("image", "", "path of an image to attach")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cmd := ports.CreatePostCmd{Content: strings.Join(fs.Args(), " ")}
	if *image != "" {
		f, err := os.Open(*image)
		if err != nil {
			return fmt.Errorf("open image: %w", err)
		}
		defer f.Close()
		cmd.Image = &ports.Upload{Filename: filepath.Base(*image), Content: f}
	}

	if err := a.Feed.SubmitPost(ctx, cmd); err != nil {
		if errors.Is(err, domain.ErrEmptyPost) {
			return fmt.Errorf("%w: nothing to post", ErrUsage)
		}
		return err
	}
	fmt.Fprintln(a.Out, "Posted")
	a.renderPosts(a.Feed.Snapshot().Posts)
	return nil
}

func (a *App) cmdDelete(ctx context.Context, args []string) error {
	fs := a.flags("delete")
	yes := fs.Bool("yes", false, "do not ask for confirmation")
	if err := fs.Parse(args); err != nil {
		return err
	}
	postID, err := parseID(fs.Args(), 0, "post id")
	if err != nil {
		return err
	}
	if err := a.Feed.Load(ctx); err != nil {
		return err
	}
	if p, ok := findPost(a.Feed.Snapshot().Posts, postID); ok && !a.Feed.CanDelete(p.Author, p.AuthorUsername) {
		return fmt.Errorf("post %d belongs to %s", postID, p.AuthorUsername)
	}

	a.assumeYes = *yes
	defer func() { a.assumeYes = false }()
	if err := a.Feed.DeletePost(ctx, postID); err != nil {
		return err
	}
	fmt.Fprintf(a.Out, "Deleted post %d\n", postID)
	return nil
}

func (a *App) cmdLike(ctx context.Context, args []string) error {
	return a.togglePost(ctx, args, a.Feed.ToggleLike)
}

func (a *App) cmdRetweet(ctx context.Context, args []string) error {
	return a.togglePost(ctx, args, a.Feed.ToggleRetweet)
}

func (a *App) togglePost(ctx context.Context, args []string, toggle func(context.Context, int64) error) error {
	postID, err := parseID(args, 0, "post id")
	if err != nil {
		return err
	}
	if err := a.Feed.Load(ctx); err != nil {
		return err
	}
	if err := toggle(ctx, postID); err != nil {
		return err
	}
	if p, ok := findPost(a.Feed.Snapshot().Posts, postID); ok {
		a.renderPosts([]domain.Post{p})
	}
	return nil
}

// --- COMMENTAIRES ---

func (a *App) cmdComments(ctx context.Context, args []string) error {
	postID, err := parseID(args, 0, "post id")
	if err != nil {
		return err
	}
	if err := a.openComments(ctx, postID); err != nil {
		return err
	}
	a.renderComments(a.Feed.Snapshot().Comments[postID])
	return nil
}

func (a *App) cmdComment(ctx context.Context, args []string) error {
	postID, err := parseID(args, 0, "post id")
	if err != nil {
		return err
	}
	if err := a.openComments(ctx, postID); err != nil {
		return err
	}
	if err := a.Feed.SubmitComment(ctx, postID, strings.Join(args[1:], " ")); err != nil {
		return err
	}
	snap := a.Feed.Snapshot()
	if p, ok := findPost(snap.Posts, postID); ok {
		fmt.Fprintf(a.Out, "Commented (%d comments)\n", p.CommentsCount)
	}
	return nil
}

func (a *App) cmdUncomment(ctx context.Context, args []string) error {
	postID, err := parseID(args, 0, "post id")
	if err != nil {
		return err
	}
	commentID, err := parseID(args, 1, "comment id")
	if err != nil {
		return err
	}
	if err := a.openComments(ctx, postID); err != nil {
		return err
	}
	if err := a.Feed.DeleteComment(ctx, postID, commentID); err != nil {
		return err
	}
	fmt.Fprintf(a.Out, "Deleted comment %d\n", commentID)
	return nil
}

// openComments charge le fil puis ouvre les commentaires du post.
func (a *App) openComments(ctx context.Context, postID int64) error {
	if err := a.Feed.Load(ctx); err != nil {
		return err
	}
	if a.Feed.Snapshot().Open[postID] {
		return nil
	}
	return a.Feed.ToggleComments(ctx, postID)
}

// --- UTILISATEURS ---

func (a *App) cmdUsers(ctx context.Context, args []string) error {
	if err := a.Feed.LoadUsers(ctx); err != nil {
		return err
	}
	a.renderUsers(a.Feed.Snapshot().Users)
	return nil
}

func (a *App) cmdFollow(ctx context.Context, args []string) error {
	userID, err := parseID(args, 0, "user id")
	if err != nil {
		return err
	}
	if err := a.Feed.LoadUsers(ctx); err != nil {
		return err
	}
	if err := a.Feed.ToggleFollow(ctx, userID); err != nil {
		return err
	}
	for _, u := range a.Feed.Snapshot().Users {
		if u.ID == userID {
			a.renderUsers([]domain.UserSummary{u})
		}
	}
	return nil
}

func (a *App) cmdUser(ctx context.Context, args []string) error {
	userID, err := parseID(args, 0, "user id")
	if err != nil {
		return err
	}
	user, err := a.Users.Load(ctx, userID)
	if err != nil {
		return err
	}
	a.renderUsers([]domain.UserSummary{*user})
	if bio := domain.Str(user.Bio); bio != "" {
		fmt.Fprintf(a.Out, "\n%s\n", bio)
	}
	return nil
}

func (a *App) cmdFollowing(ctx context.Context, args []string) error {
	return a.listGraph(ctx, args, a.Auth.Following)
}

func (a *App) cmdFollowers(ctx context.Context, args []string) error {
	return a.listGraph(ctx, args, a.Auth.Followers)
}

func (a *App) listGraph(ctx context.Context, args []string, list func(context.Context, int64) ([]domain.UserSummary, error)) error {
	var userID int64
	if len(args) > 0 {
		id, err := parseID(args, 0, "user id")
		if err != nil {
			return err
		}
		userID = id
	} else {
		me := a.Session.CurrentUser()
		if me == nil {
			return domain.ErrNotAuthenticated
		}
		userID = me.ID
	}

	users, err := list(ctx, userID)
	if err != nil {
		return err
	}
	a.renderUsers(users)
	return nil
}

// --- PROFIL ---

func (a *App) cmdProfile(ctx context.Context, args []string) error {
	fs := a.flags("profile")
	firstName := fs.String("first-name", "", "first name")
	lastName := fs.String("last-name", "", "last name")
	bio := fs.String("bio", "", "bio")
	picture := fs.String("picture", "", "path of a new profile picture")
	if err := fs.Parse(args); err != nil {
		return err
	}

	// Seuls les drapeaux explicitement passés sont envoyés
	var cmd ports.UpdateProfileCmd
	set := 0
	fs.Visit(func(f *flag.Flag) {
		set++
		switch f.Name {
		case "first-name":
			cmd.FirstName = firstName
		case "last-name":
			cmd.LastName = lastName
		case "bio":
			cmd.Bio = bio
		}
	})

	if set == 0 {
		if err := a.Profile.Load(ctx); err != nil {
			return err
		}
		snap := a.Profile.Snapshot()
		renderUser(a.Out, snap.User)
		fmt.Fprintf(a.Out, "\nFollowing (%d)\n", len(snap.Following))
		a.renderUsers(snap.Following)
		return nil
	}

	if *picture != "" {
		f, err := os.Open(*picture)
		if err != nil {
			return fmt.Errorf("open picture: %w", err)
		}
		defer f.Close()
		cmd.ProfilePicture = &ports.Upload{Filename: filepath.Base(*picture), Content: f}
	}

	user, err := a.Profile.Save(ctx, cmd)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.Out, "Profile updated")
	renderUser(a.Out, user)
	return nil
}

func (a *App) cmdPasswd(ctx context.Context, args []string) error {
	fs := a.flags("passwd")
	var cmd ports.ChangePasswordCmd
	fs.StringVar(&cmd.OldPassword, "old", "", "current password (prompted when empty)")
	fs.StringVar(&cmd.NewPassword, "new", "", "new password (prompted when empty)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var err error
	if cmd.OldPassword == "" {
		if cmd.OldPassword, err = a.prompt("Current password: "); err != nil {
			return err
		}
	}
	cmd.NewPasswordConfirm = cmd.NewPassword
	if cmd.NewPassword == "" {
		if cmd.NewPassword, err = a.prompt("New password: "); err != nil {
			return err
		}
		if cmd.NewPasswordConfirm, err = a.prompt("Confirm new password: "); err != nil {
			return err
		}
	}

	if err := a.Profile.ChangePassword(ctx, cmd); err != nil {
		return err
	}
	fmt.Fprintln(a.Out, "Password changed")
	return nil
}

// --- WATCH ---

func (a *App) cmdWatch(ctx context.Context, args []string) error {
	if a.Watch == nil {
		return errors.New("watch mode is not available")
	}
	return a.Watch(ctx)
}

func findPost(posts []domain.Post, id int64) (domain.Post, bool) {
	for _, p := range posts {
		if p.ID == id {
			return p, true
		}
	}
	return domain.Post{}, false
}
