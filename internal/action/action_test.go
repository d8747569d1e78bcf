package action

import "testing"

func TestLogoutArgsWithSessionID(t *testing.T) {
	t.Setenv("XDG_SESSION_ID", "3")
	args := logoutArgs()
	if len(args) != 2 || args[0] != "terminate-session" || args[1] != "3" {
		t.Fatalf("expected [terminate-session 3], got %v", args)
	}
}

func TestLogoutArgsWithoutSessionID(t *testing.T) {
	t.Setenv("XDG_SESSION_ID", "")
	args := logoutArgs()
	if len(args) != 1 || args[0] != "terminate-session" {
		t.Fatalf("expected [terminate-session], got %v", args)
	}
}
