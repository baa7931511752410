package session

import (
	"reflect"
	"testing"
)

func TestDecide(t *testing.T) {
	tests := []struct {
		name         string
		state        State
		segments     []string
		wantRedirect string
		wantOK       bool
	}{
		{"unknown on protected", StateUnknown, []string{"profile", "profile"}, "", false},
		{"unknown on login", StateUnknown, []string{"auth", "login"}, "", false},
		{"unknown on root", StateUnknown, []string{}, "", false},
		{"authenticated on login", StateAuthenticated, []string{"auth", "login"}, DashboardPath, true},
		{"authenticated on signup", StateAuthenticated, []string{"auth", "signup"}, DashboardPath, true},
		{"authenticated on root", StateAuthenticated, []string{}, DashboardPath, true},
		{"authenticated on empty segment", StateAuthenticated, []string{""}, DashboardPath, true},
		{"authenticated on protected", StateAuthenticated, []string{"course", "dashboard"}, "", false},
		{"anonymous on profile", StateAnonymous, []string{"profile", "profile"}, EntryPath, true},
		{"anonymous on payment", StateAnonymous, []string{"payment", "payment"}, EntryPath, true},
		{"anonymous on login", StateAnonymous, []string{"auth", "login"}, "", false},
		{"anonymous on root", StateAnonymous, nil, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			redirect, ok := Decide(tt.state, tt.segments)
			if redirect != tt.wantRedirect || ok != tt.wantOK {
				t.Errorf("Decide() = %q, %v; want %q, %v", redirect, ok, tt.wantRedirect, tt.wantOK)
			}
		})
	}
}

func TestDecide_IsIdempotent(t *testing.T) {
	segments := []string{"course", "play"}
	r1, ok1 := Decide(StateAnonymous, segments)
	r2, ok2 := Decide(StateAnonymous, segments)
	if r1 != r2 || ok1 != ok2 {
		t.Error("decision must depend only on state and path")
	}
	// リダイレクト先で再判定してもリダイレクトしない
	if _, ok := Decide(StateAnonymous, SegmentsFromPath(r1)); ok {
		t.Error("entry path must not redirect an anonymous user again")
	}
	if _, ok := Decide(StateAuthenticated, SegmentsFromPath(DashboardPath)); ok {
		t.Error("dashboard must not redirect an authenticated user again")
	}
}

func TestSegmentsFromPath(t *testing.T) {
	tests := []struct {
		path string
		want []string
	}{
		{"/", []string{}},
		{"", []string{}},
		{"/auth/login", []string{"auth", "login"}},
		{"/course/dashboard/", []string{"course", "dashboard"}},
		{"//profile//profile", []string{"profile", "profile"}},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := SegmentsFromPath(tt.path); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("SegmentsFromPath(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}
