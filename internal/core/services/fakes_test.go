package services

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/jupiterclapton/cenackle/client/internal/core/domain"
	"github.com/jupiterclapton/cenackle/client/internal/core/ports"
)

// fakeAPI est un backend en mémoire qui implémente AuthAPI et PostsAPI.
type fakeAPI struct {
	mu    sync.Mutex
	calls []string

	me       *domain.User
	posts    []*domain.Post
	comments map[int64][]domain.Comment
	users    map[int64]*domain.UserSummary
	nextID   int64

	checkErr       error
	failGet        bool
	failUserDetail bool
	fail           map[string]error
	// gates bloque une opération jusqu'à fermeture du canal ; entered signale l'entrée.
	gates   map[string]chan struct{}
	entered chan string
}

var (
	_ ports.AuthAPI  = (*fakeAPI)(nil)
	_ ports.PostsAPI = (*fakeAPI)(nil)
)

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		me:       &domain.User{ID: 1, Username: "ana", Email: "ana@example.com"},
		comments: map[int64][]domain.Comment{},
		users:    map[int64]*domain.UserSummary{},
		nextID:   100,
		fail:     map[string]error{},
		gates:    map[string]chan struct{}{},
		entered:  make(chan string, 16),
	}
}

func (f *fakeAPI) addPost(p domain.Post) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := p
	f.posts = append(f.posts, &cp)
}

func (f *fakeAPI) addUser(u domain.UserSummary) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := u
	f.users[u.ID] = &cp
}

func (f *fakeAPI) record(op string) error {
	f.mu.Lock()
	f.calls = append(f.calls, op)
	gate := f.gates[op]
	err := f.fail[op]
	f.mu.Unlock()

	if gate != nil {
		f.entered <- op
		<-gate
	}
	return err
}

func (f *fakeAPI) count(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == op {
			n++
		}
	}
	return n
}

func (f *fakeAPI) callLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeAPI) find(id int64) *domain.Post {
	for _, p := range f.posts {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func forbidden() error {
	return &domain.APIError{Status: http.StatusForbidden, Body: `{"detail":"Authentication credentials were not provided."}`}
}

// --- AuthAPI ---

func (f *fakeAPI) Register(ctx context.Context, cmd ports.RegisterCmd) error {
	if err := f.record("register"); err != nil {
		return err
	}
	f.mu.Lock()
	f.me = &domain.User{ID: 7, Username: cmd.Username, Email: cmd.Email}
	f.mu.Unlock()
	return nil
}

func (f *fakeAPI) Login(ctx context.Context, cmd ports.LoginCmd) (*domain.User, error) {
	if err := f.record("login"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	u := *f.me
	return &u, nil
}

func (f *fakeAPI) Logout(ctx context.Context) error { return f.record("logout") }

func (f *fakeAPI) Profile(ctx context.Context) (*domain.User, error) {
	if err := f.record("profile"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	u := *f.me
	return &u, nil
}

func (f *fakeAPI) UpdateProfile(ctx context.Context, cmd ports.UpdateProfileCmd) (*domain.User, error) {
	if err := f.record("update_profile"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if cmd.Bio != nil {
		bio := *cmd.Bio
		f.me.Bio = &bio
	}
	if cmd.FirstName != nil {
		f.me.FirstName = *cmd.FirstName
	}
	u := *f.me
	return &u, nil
}

func (f *fakeAPI) CheckAuth(ctx context.Context) error {
	if err := f.record("check_auth"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.checkErr
}

func (f *fakeAPI) ChangePassword(ctx context.Context, cmd ports.ChangePasswordCmd) error {
	return f.record("change_password")
}

func (f *fakeAPI) ListUsers(ctx context.Context) ([]domain.UserSummary, error) {
	if err := f.record("list_users"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []domain.UserSummary{{ID: f.me.ID, Username: f.me.Username}}
	for _, u := range f.users {
		out = append(out, *u)
	}
	return out, nil
}

func (f *fakeAPI) UserDetail(ctx context.Context, userID int64) (*domain.UserSummary, error) {
	if err := f.record("user_detail"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failUserDetail {
		return nil, &domain.APIError{Status: http.StatusInternalServerError}
	}
	u, ok := f.users[userID]
	if !ok {
		return nil, &domain.APIError{Status: http.StatusNotFound, Body: `{"detail":"Not found."}`}
	}
	cp := *u
	return &cp, nil
}

func (f *fakeAPI) Follow(ctx context.Context, userID int64) error {
	if err := f.record("follow"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[userID]; ok && !u.FollowedByMe {
		u.FollowedByMe = true
		u.FollowersCount++
	}
	return nil
}

func (f *fakeAPI) Unfollow(ctx context.Context, userID int64) error {
	if err := f.record("unfollow"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[userID]; ok && u.FollowedByMe {
		u.FollowedByMe = false
		u.FollowersCount--
	}
	return nil
}

func (f *fakeAPI) Following(ctx context.Context, userID int64) ([]domain.UserSummary, error) {
	if err := f.record("following"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.UserSummary
	for _, u := range f.users {
		if u.FollowedByMe {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (f *fakeAPI) Followers(ctx context.Context, userID int64) ([]domain.UserSummary, error) {
	return nil, f.record("followers")
}

// --- PostsAPI ---

func (f *fakeAPI) List(ctx context.Context, params ports.ListPostsParams) ([]domain.Post, error) {
	if err := f.record("list"); err != nil {
		return nil, err
	}
	return f.snapshot(), nil
}

func (f *fakeAPI) Feed(ctx context.Context) ([]domain.Post, error) {
	if err := f.record("feed"); err != nil {
		return nil, err
	}
	return f.snapshot(), nil
}

func (f *fakeAPI) snapshot() []domain.Post {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.Post, 0, len(f.posts))
	for _, p := range f.posts {
		out = append(out, *p)
	}
	return out
}

func (f *fakeAPI) Create(ctx context.Context, cmd ports.CreatePostCmd) (*domain.Post, error) {
	if err := f.record("create"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	p := &domain.Post{ID: f.nextID, Author: f.me.ID, AuthorUsername: f.me.Username, Content: cmd.Content, CreatedAt: time.Now()}
	f.posts = append([]*domain.Post{p}, f.posts...)
	cp := *p
	return &cp, nil
}

func (f *fakeAPI) Get(ctx context.Context, postID int64) (*domain.Post, error) {
	if err := f.record("get"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failGet {
		return nil, &domain.APIError{Status: http.StatusBadGateway}
	}
	p := f.find(postID)
	if p == nil {
		return nil, &domain.APIError{Status: http.StatusNotFound}
	}
	cp := *p
	return &cp, nil
}

func (f *fakeAPI) Delete(ctx context.Context, postID int64) error {
	if err := f.record("delete"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.posts[:0]
	for _, p := range f.posts {
		if p.ID != postID {
			kept = append(kept, p)
		}
	}
	f.posts = kept
	return nil
}

func (f *fakeAPI) Like(ctx context.Context, postID int64) error {
	return f.mutate("like", postID, func(p *domain.Post) { p.LikedByMe = true; p.LikesCount++ })
}

func (f *fakeAPI) Unlike(ctx context.Context, postID int64) error {
	return f.mutate("unlike", postID, func(p *domain.Post) { p.LikedByMe = false; p.LikesCount-- })
}

func (f *fakeAPI) Retweet(ctx context.Context, postID int64) error {
	return f.mutate("retweet", postID, func(p *domain.Post) { p.RetweetedByMe = true; p.RetweetsCount++ })
}

func (f *fakeAPI) Unretweet(ctx context.Context, postID int64) error {
	return f.mutate("unretweet", postID, func(p *domain.Post) { p.RetweetedByMe = false; p.RetweetsCount-- })
}

func (f *fakeAPI) mutate(op string, postID int64, fn func(*domain.Post)) error {
	if err := f.record(op); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if p := f.find(postID); p != nil {
		fn(p)
	}
	return nil
}

func (f *fakeAPI) Comments(ctx context.Context, postID int64) ([]domain.Comment, error) {
	if err := f.record("comments"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.Comment{}, f.comments[postID]...), nil
}

func (f *fakeAPI) AddComment(ctx context.Context, postID int64, content string) (*domain.Comment, error) {
	if err := f.record("add_comment"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	c := domain.Comment{ID: f.nextID, Author: f.me.ID, AuthorUsername: f.me.Username, Post: postID, Content: content}
	f.comments[postID] = append([]domain.Comment{c}, f.comments[postID]...)
	return &c, nil
}

func (f *fakeAPI) DeleteComment(ctx context.Context, commentID int64) error {
	return f.record("delete_comment")
}

// --- Session, navigation, événements ---

// fakeShell enveloppe un Monitor comme le ferait SessionService.
type fakeShell struct {
	monitor *Monitor
	logged  int
}

func (s *fakeShell) CurrentUser() *domain.User { return s.monitor.User() }

func (s *fakeShell) OnLogged(ctx context.Context, u *domain.User) error {
	s.logged++
	s.monitor.SetUser(u)
	return nil
}

func (s *fakeShell) Refresh(u *domain.User) { s.monitor.SetUser(u) }

type recordingNavigator struct {
	mu      sync.Mutex
	targets []string
	done    chan struct{}
}

func newNavigator() *recordingNavigator {
	return &recordingNavigator{done: make(chan struct{}, 16)}
}

func (n *recordingNavigator) Navigate(target string) {
	n.mu.Lock()
	n.targets = append(n.targets, target)
	n.mu.Unlock()
	n.done <- struct{}{}
}

func (n *recordingNavigator) Targets() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.targets...)
}

type recordingPublisher struct {
	mu      sync.Mutex
	started []int64
	expired []int64
}

func (p *recordingPublisher) PublishSessionStarted(ctx context.Context, u *domain.User) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.started = append(p.started, u.ID)
	return nil
}

func (p *recordingPublisher) PublishSessionExpired(ctx context.Context, userID int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.expired = append(p.expired, userID)
	return nil
}

func (p *recordingPublisher) Expired() []int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]int64(nil), p.expired...)
}

type countingMetrics struct {
	mu          sync.Mutex
	probes      map[string]int
	expirations int
}

func (m *countingMetrics) ObserveProbe(trigger string, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.probes == nil {
		m.probes = map[string]int{}
	}
	key := trigger + "/ok"
	if !ok {
		key = trigger + "/failed"
	}
	m.probes[key]++
}

func (m *countingMetrics) IncExpirations() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.expirations++
}

type fakeStore struct {
	persisted, cleared int
}

func (s *fakeStore) Persist(ctx context.Context) error { s.persisted++; return nil }
func (s *fakeStore) Clear(ctx context.Context) error   { s.cleared++; return nil }

type fakeCSRF struct{ resets int }

func (c *fakeCSRF) ResetCSRF() { c.resets++ }

// harness câble une vue Feed sur le faux backend avec une session ouverte.
type harness struct {
	api   *fakeAPI
	mon   *Monitor
	shell *fakeShell
	feed  *FeedView
}

func newHarness(signedIn bool) *harness {
	api := newFakeAPI()
	mon := NewSessionMonitor(api, &recordingPublisher{}, newNavigator(), nil, "/login", time.Hour)
	if signedIn {
		mon.SetUser(api.me)
	}
	shell := &fakeShell{monitor: mon}
	return &harness{
		api:   api,
		mon:   mon,
		shell: shell,
		feed:  NewFeedView(api, api, shell, nil),
	}
}
