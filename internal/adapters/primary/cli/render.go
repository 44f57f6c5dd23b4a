package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/jupiterclapton/cenackle/client/internal/core/domain"
)

// now est remplaçable dans les tests.
var now = time.Now

func (a *App) renderPosts(posts []domain.Post) {
	if len(posts) == 0 {
		fmt.Fprintln(a.Out, "No posts yet")
		return
	}
	tw := tabwriter.NewWriter(a.Out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tAUTHOR\tWHEN\tLIKES\tRT\tCOMMENTS\tCONTENT")
	for _, p := range posts {
		content := oneLine(p.Content)
		if img := a.mediaURL(p.Image); img != "" {
			content = strings.TrimSpace(content + " [" + img + "]")
		}
		fmt.Fprintf(tw, "%d\t@%s\t%s\t%s\t%s\t%d\t%s\n",
			p.ID, p.AuthorUsername, domain.TimeAgo(p.CreatedAt, now()),
			mark(p.LikesCount, p.LikedByMe), mark(p.RetweetsCount, p.RetweetedByMe),
			p.CommentsCount, content)
	}
	tw.Flush()
}

func (a *App) renderComments(comments []domain.Comment) {
	if len(comments) == 0 {
		fmt.Fprintln(a.Out, "No comments")
		return
	}
	tw := tabwriter.NewWriter(a.Out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tAUTHOR\tWHEN\tCOMMENT")
	for _, c := range comments {
		fmt.Fprintf(tw, "%d\t@%s\t%s\t%s\n", c.ID, c.AuthorUsername, domain.TimeAgo(c.CreatedAt, now()), oneLine(c.Content))
	}
	tw.Flush()
}

func (a *App) renderUsers(users []domain.UserSummary) {
	if len(users) == 0 {
		fmt.Fprintln(a.Out, "No users")
		return
	}
	tw := tabwriter.NewWriter(a.Out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tUSERNAME\tNAME\tFOLLOWERS\tFOLLOWING\tFOLLOWED")
	for _, u := range users {
		followed := ""
		if u.FollowedByMe {
			followed = "yes"
		}
		fmt.Fprintf(tw, "%d\t@%s\t%s\t%d\t%d\t%s\n", u.ID, u.Username, u.FullName(), u.FollowersCount, u.FollowingCount, followed)
	}
	tw.Flush()
}

func renderUser(w io.Writer, u *domain.User) {
	if u == nil {
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "ID\t%d\n", u.ID)
	fmt.Fprintf(tw, "Username\t@%s\n", u.Username)
	fmt.Fprintf(tw, "Email\t%s\n", u.Email)
	if name := strings.TrimSpace(u.FirstName + " " + u.LastName); name != "" {
		fmt.Fprintf(tw, "Name\t%s\n", name)
	}
	if bio := domain.Str(u.Bio); bio != "" {
		fmt.Fprintf(tw, "Bio\t%s\n", oneLine(bio))
	}
	tw.Flush()
}

// mark suffixe le compteur d'une étoile quand l'utilisateur a déjà agi.
func mark(n int, mine bool) string {
	if mine {
		return fmt.Sprintf("%d*", n)
	}
	return fmt.Sprintf("%d", n)
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
