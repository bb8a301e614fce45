package session

import (
	"errors"
	"testing"
)

func TestStateValidate(t *testing.T) {
	tests := []struct {
		name    string
		state   State
		wantErr bool
	}{
		{name: "loading", state: Loading()},
		{name: "unauthenticated", state: Unauthenticated()},
		{name: "authenticated", state: Authenticated("tok", &UserInfo{ID: "u1"})},
		{name: "authenticated without user", state: Authenticated("tok", nil)},
		{name: "authenticated empty token", state: Authenticated("", nil), wantErr: true},
		{name: "unauthenticated with token", state: State{Status: StatusUnauthenticated, AccessToken: "x"}, wantErr: true},
		{name: "unknown", state: State{Status: "weird"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.state.Validate(); (err != nil) != tt.wantErr {
				t.Fatalf("Validate() err=%v wantErr=%v", err, tt.wantErr)
			}
		})
	}
}

func TestStateNeverReturnsToLoading(t *testing.T) {
	for _, s := range []State{Loading(), Unauthenticated(), Authenticated("t", nil)} {
		if s.CanTransition(StatusLoading) {
			t.Fatalf("%s should not transition to loading", s.Status)
		}
		if !s.CanTransition(StatusAuthenticated) || !s.CanTransition(StatusUnauthenticated) {
			t.Fatalf("%s should reach settled states", s.Status)
		}
	}
}

func TestAuthErrorMessage(t *testing.T) {
	err := error(&AuthError{Status: 401, Message: "Invalid password"})
	if err.Error() != "Invalid password" {
		t.Fatalf("unexpected message %q", err.Error())
	}
	var ae *AuthError
	if !errors.As(err, &ae) || ae.Status != 401 {
		t.Fatalf("expected AuthError with status")
	}
	if (&AuthError{Status: 500}).Error() == "" {
		t.Fatalf("expected fallback message")
	}
}

func TestSignupInputValidate(t *testing.T) {
	ok := SignupInput{LoginID: "club01", Password: "pw", Email: "a@b.c"}
	if err := ok.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := (SignupInput{Password: "pw", Email: "a@b.c"}).Validate(); err == nil {
		t.Fatalf("expected missing user_id error")
	}
	if err := (Credentials{Email: " "}).Validate(); err == nil {
		t.Fatalf("expected missing credentials error")
	}
}
