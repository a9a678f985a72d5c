package main

import (
	"testing"
)

func TestLoginPayload(t *testing.T) {
	payload := loginPayload("user1", "Alice")
	if payload["userId"] != "user1" {
		t.Errorf("Expected userId user1, got %s", payload["userId"])
	}
	if payload["displayName"] != "Alice" {
		t.Errorf("Expected displayName Alice, got %s", payload["displayName"])
	}
}

func TestLoginPayload_DisplayNameFallsBackToUserID(t *testing.T) {
	payload := loginPayload("user1", "")
	if payload["displayName"] != "user1" {
		t.Errorf("Expected displayName to fall back to the user id, got %q", payload["displayName"])
	}
}
