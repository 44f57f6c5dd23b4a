package cli

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/jupiterclapton/cenackle/client/internal/core/domain"
	"github.com/jupiterclapton/cenackle/client/internal/core/ports"
	"github.com/jupiterclapton/cenackle/client/internal/core/services"
)

var ErrUsage = errors.New("usage")

// App regroupe les vues pilotées par la ligne de commande.
type App struct {
	Session  *services.SessionService
	Feed     *services.FeedView
	Profile  *services.ProfileView
	Login    *services.LoginView
	Register *services.RegisterView
	Users    *services.UserPublicView

	Auth  ports.AuthAPI
	Posts ports.PostsAPI

	// MediaURL résout les chemins d'images relatifs au backend.
	MediaURL func(path string) string
	// Watch est fourni par main : moniteur de session, poller, surface de contrôle.
	Watch func(ctx context.Context) error

	Out io.Writer
	In  io.Reader

	inMu      sync.Mutex
	in        *bufio.Reader
	assumeYes bool
}

type command struct {
	usage string
	run   func(ctx context.Context, args []string) error
}

func (a *App) commands() map[string]command {
	return map[string]command{
		"login":     {"login [-password pw] <email|username>", a.cmdLogin},
		"logout":    {"logout", a.cmdLogout},
		"register":  {"register -email e -username u [-first-name f] [-last-name l] [-password pw]", a.cmdRegister},
		"whoami":    {"whoami", a.cmdWhoami},
		"feed":      {"feed", a.cmdFeed},
		"posts":     {"posts [-search q] [-ordering field]", a.cmdPosts},
		"post":      {"post [-image path] <text...>", a.cmdPost},
		"delete":    {"delete [-yes] <post-id>", a.cmdDelete},
		"like":      {"like <post-id>", a.cmdLike},
		"retweet":   {"retweet <post-id>", a.cmdRetweet},
		"comments":  {"comments <post-id>", a.cmdComments},
		"comment":   {"comment <post-id> <text...>", a.cmdComment},
		"uncomment": {"uncomment <post-id> <comment-id>", a.cmdUncomment},
		"users":     {"users", a.cmdUsers},
		"follow":    {"follow <user-id>", a.cmdFollow},
		"user":      {"user <user-id>", a.cmdUser},
		"following": {"following [user-id]", a.cmdFollowing},
		"followers": {"followers [user-id]", a.cmdFollowers},
		"profile":   {"profile [-first-name f] [-last-name l] [-bio b] [-picture path]", a.cmdProfile},
		"passwd":    {"passwd [-old pw] [-new pw]", a.cmdPasswd},
		"watch":     {"watch", a.cmdWatch},
	}
}

// Run exécute une commande : args[0] est le nom de la commande.
func (a *App) Run(ctx context.Context, args []string) error {
	cmds := a.commands()
	if len(args) == 0 {
		a.usage(cmds)
		return ErrUsage
	}
	cmd, ok := cmds[args[0]]
	if !ok {
		a.usage(cmds)
		return fmt.Errorf("%w: unknown command %q", ErrUsage, args[0])
	}
	return cmd.run(ctx, args[1:])
}

func (a *App) usage(cmds map[string]command) {
	names := make([]string, 0, len(cmds))
	for name := range cmds {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintln(a.Out, "Usage: cenackle <command> [flags]")
	fmt.Fprintln(a.Out)
	for _, name := range names {
		fmt.Fprintf(a.Out, "  %s\n", cmds[name].usage)
	}
}

// Confirm est le hook de confirmation de la vue Feed.
func (a *App) Confirm(ctx context.Context, post domain.Post) bool {
	if a.assumeYes {
		return true
	}
	snippet := post.Content
	if len([]rune(snippet)) > 40 {
		snippet = string([]rune(snippet)[:40]) + "…"
	}
	answer, err := a.prompt(fmt.Sprintf("Delete post %d %q? [y/N] ", post.ID, snippet))
	if err != nil {
		return false
	}
	answer = strings.ToLower(answer)
	return answer == "y" || answer == "yes"
}

// --- HELPERS ---

func (a *App) flags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.Out)
	return fs
}

func (a *App) prompt(label string) (string, error) {
	a.inMu.Lock()
	defer a.inMu.Unlock()
	if a.in == nil {
		if a.In == nil {
			return "", io.EOF
		}
		a.in = bufio.NewReader(a.In)
	}
	fmt.Fprint(a.Out, label)
	line, err := a.in.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func parseID(args []string, i int, what string) (int64, error) {
	if len(args) <= i {
		return 0, fmt.Errorf("%w: missing %s", ErrUsage, what)
	}
	id, err := strconv.ParseInt(args[i], 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid %s %q", ErrUsage, what, args[i])
	}
	return id, nil
}

func (a *App) mediaURL(p *string) string {
	if p == nil || a.MediaURL == nil {
		return domain.Str(p)
	}
	return a.MediaURL(*p)
}
