package main

import "testing"

func TestParseUsers(t *testing.T) {
	creds, err := parseUsers("u-1:admin@example.com:$2a$10$hash; u-2:ops@example.com:$2a$10$other;")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(creds) != 2 {
		t.Fatalf("len = %d, want 2", len(creds))
	}
	if creds[0].UserID != "u-1" || creds[0].Email != "admin@example.com" || creds[0].PasswordHash != "$2a$10$hash" {
		t.Fatalf("first credential = %+v", creds[0])
	}
	if creds[1].UserID != "u-2" {
		t.Fatalf("second credential = %+v", creds[1])
	}
}

func TestParseUsersEmpty(t *testing.T) {
	creds, err := parseUsers("   ")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if creds != nil {
		t.Fatalf("expected nil, got %v", creds)
	}
}

func TestParseUsersMalformed(t *testing.T) {
	if _, err := parseUsers("u-1:admin@example.com"); err == nil {
		t.Fatal("malformed entry accepted")
	}
}
