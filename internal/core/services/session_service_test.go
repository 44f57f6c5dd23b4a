package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jupiterclapton/cenackle/client/internal/core/domain"
	"github.com/jupiterclapton/cenackle/client/internal/core/ports"
)

type sessionFixture struct {
	api   *fakeAPI
	mon   *Monitor
	pub   *recordingPublisher
	store *fakeStore
	csrf  *fakeCSRF
	svc   *SessionService
}

func newSessionFixture() *sessionFixture {
	api := newFakeAPI()
	pub := &recordingPublisher{}
	mon := NewSessionMonitor(api, pub, newNavigator(), nil, "/login", time.Hour)
	store := &fakeStore{}
	csrf := &fakeCSRF{}
	return &sessionFixture{
		api: api, mon: mon, pub: pub, store: store, csrf: csrf,
		svc: NewSessionService(api, mon, csrf, store, pub),
	}
}

func TestBootstrap(t *testing.T) {
	f := newSessionFixture()
	u, err := f.svc.Bootstrap(context.Background())
	if err != nil || u == nil || u.ID != 1 {
		t.Fatalf("Bootstrap = %+v, %v", u, err)
	}
	if f.mon.State() != domain.Authenticated {
		t.Fatal("expected authenticated")
	}

	f = newSessionFixture()
	f.api.fail["profile"] = forbidden()
	u, err = f.svc.Bootstrap(context.Background())
	if err != nil || u != nil {
		t.Fatalf("Bootstrap without session = %+v, %v", u, err)
	}
	if f.mon.State() != domain.Anonymous {
		t.Fatal("expected anonymous")
	}

	f = newSessionFixture()
	f.api.fail["profile"] = errors.New("dial tcp: connection refused")
	if _, err := f.svc.Bootstrap(context.Background()); err == nil {
		t.Fatal("transport failure should surface")
	}
}

func TestLoginViewHandsUserToSession(t *testing.T) {
	f := newSessionFixture()
	view := NewLoginView(f.api, f.svc)

	if _, err := view.Submit(context.Background(), "  ", "pw"); !errors.Is(err, domain.ErrMissingLogin) {
		t.Fatalf("blank login: err = %v", err)
	}
	if f.api.count("login") != 0 {
		t.Fatal("blank login issued a request")
	}

	u, err := view.Submit(context.Background(), " ana ", "pw")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if f.svc.CurrentUser() == nil || f.svc.CurrentUser().ID != u.ID {
		t.Fatal("session user not set")
	}
	if view.Err() != "" {
		t.Fatalf("Err = %q", view.Err())
	}
	if f.store.persisted != 1 || len(f.pub.started) != 1 {
		t.Fatalf("persisted=%d started=%v", f.store.persisted, f.pub.started)
	}
}

func TestLoginViewKeepsRawError(t *testing.T) {
	f := newSessionFixture()
	f.api.fail["login"] = &domain.APIError{Status: 400, Body: `{"non_field_errors":["Invalid credentials"]}`}
	view := NewLoginView(f.api, f.svc)

	if _, err := view.Submit(context.Background(), "ana", "bad"); !domain.IsStatus(err, 400) {
		t.Fatalf("err = %v", err)
	}
	if view.Err() != `{"non_field_errors":["Invalid credentials"]}` {
		t.Fatalf("Err = %q", view.Err())
	}
	if f.svc.CurrentUser() != nil {
		t.Fatal("failed login must not open a session")
	}
}

func TestLogoutClearsLocalStateEvenOnBackendFailure(t *testing.T) {
	f := newSessionFixture()
	f.mon.SetUser(f.api.me)
	f.api.fail["logout"] = forbidden()

	if err := f.svc.Logout(context.Background()); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if f.svc.CurrentUser() != nil {
		t.Fatal("user not cleared")
	}
	if f.csrf.resets != 1 || f.store.cleared != 1 {
		t.Fatalf("csrf resets=%d store clears=%d", f.csrf.resets, f.store.cleared)
	}
}

func TestRegisterView(t *testing.T) {
	cases := []struct {
		name string
		cmd  ports.RegisterCmd
		want error
	}{
		{"missing email", ports.RegisterCmd{Username: "bob", Password: "a", PasswordConfirm: "a"}, domain.ErrMissingFields},
		{"missing confirm", ports.RegisterCmd{Email: "b@x.io", Username: "bob", Password: "a"}, domain.ErrMissingFields},
		{"mismatch", ports.RegisterCmd{Email: "b@x.io", Username: "bob", Password: "a", PasswordConfirm: "b"}, domain.ErrPasswordMismatch},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newSessionFixture()
			_, err := NewRegisterView(f.api, f.svc).Submit(context.Background(), tc.cmd)
			if !errors.Is(err, tc.want) {
				t.Fatalf("err = %v, want %v", err, tc.want)
			}
			if n := len(f.api.callLog()); n != 0 {
				t.Fatalf("requests issued: %v", f.api.callLog())
			}
		})
	}

	f := newSessionFixture()
	view := NewRegisterView(f.api, f.svc)
	u, err := view.Submit(context.Background(), ports.RegisterCmd{
		Email: " bob@x.io ", Username: "bob", Password: "pw", PasswordConfirm: "pw",
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if u.Username != "bob" || f.svc.CurrentUser() == nil {
		t.Fatalf("user = %+v", u)
	}
	want := []string{"register", "login", "check_auth"}
	got := f.api.callLog()
	if len(got) != len(want) {
		t.Fatalf("calls = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("calls = %v, want %v", got, want)
		}
	}
}

func TestRegisterViewFailsWhenSessionNotConfirmed(t *testing.T) {
	f := newSessionFixture()
	f.api.checkErr = forbidden()
	_, err := NewRegisterView(f.api, f.svc).Submit(context.Background(), ports.RegisterCmd{
		Email: "b@x.io", Username: "bob", Password: "pw", PasswordConfirm: "pw",
	})
	if !domain.IsStatus(err, 403) {
		t.Fatalf("err = %v", err)
	}
	if f.svc.CurrentUser() != nil {
		t.Fatal("session opened without confirmation")
	}
}

func TestProfileView(t *testing.T) {
	f := newSessionFixture()
	f.mon.SetUser(f.api.me)
	f.api.addUser(domain.UserSummary{ID: 2, Username: "bob", FollowedByMe: true})
	f.api.addUser(domain.UserSummary{ID: 3, Username: "eve"})
	view := NewProfileView(f.api, f.svc)
	ctx := context.Background()

	if err := view.Load(ctx); err != nil {
		t.Fatalf("Load: %v", err)
	}
	s := view.Snapshot()
	if s.User == nil || len(s.Following) != 1 || s.Following[0].ID != 2 {
		t.Fatalf("snapshot = %+v", s)
	}

	bio := "gopher"
	u, err := view.Save(ctx, ports.UpdateProfileCmd{Bio: &bio})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if domain.Str(u.Bio) != "gopher" || domain.Str(f.svc.CurrentUser().Bio) != "gopher" {
		t.Fatal("session user not refreshed after save")
	}

	err = view.ChangePassword(ctx, ports.ChangePasswordCmd{OldPassword: "a", NewPassword: "b", NewPasswordConfirm: "c"})
	if !errors.Is(err, domain.ErrPasswordMismatch) {
		t.Fatalf("err = %v", err)
	}
	if f.api.count("change_password") != 0 {
		t.Fatal("mismatched passwords issued a request")
	}
}

func TestUserPublicView(t *testing.T) {
	f := newSessionFixture()
	f.api.addUser(domain.UserSummary{ID: 2, Username: "bob", FollowersCount: 3})
	view := NewUserPublicView(f.api)

	u, err := view.Load(context.Background(), 2)
	if err != nil || u.Username != "bob" {
		t.Fatalf("Load = %+v, %v", u, err)
	}
	if _, err := view.Load(context.Background(), 99); !domain.IsStatus(err, 404) {
		t.Fatalf("err = %v", err)
	}
	cached, loading, msg := view.Snapshot()
	if cached == nil || cached.ID != 2 || loading || msg == "" {
		t.Fatalf("snapshot = %+v %v %q", cached, loading, msg)
	}
}
