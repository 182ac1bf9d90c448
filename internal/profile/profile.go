// Package profile holds the user profile document and browser-session
// identity shared by the matching engines.
package profile

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/impression-social/impression-engine/internal/store"
)

// UserProfile is the authenticated user's own profile document as the UI
// layer persists it.
type UserProfile struct {
	UserID  string   `json:"user_id"`
	Name    string   `json:"name"`
	Bio     string   `json:"bio"`
	Intents []string `json:"intents"`
	Age     int      `json:"age"`
	Email   string   `json:"email,omitempty"`
}

// Save persists the profile under its document key.
func Save(s store.Store, p *UserProfile) error {
	if p == nil || p.UserID == "" {
		return fmt.Errorf("profile with user id is required")
	}
	return s.Set(store.ProfileKey(p.UserID), p)
}

// Load returns the stored profile for the given user, or nil when absent.
func Load(s store.Store, userID string) (*UserProfile, error) {
	var p UserProfile
	ok, err := s.Get(store.ProfileKey(userID), &p)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return &p, nil
}

// Session returns the stored session identifier, creating one on first use.
// All behavioral vectors recorded in a run share this identifier.
func Session(s store.Store) (string, error) {
	var id string
	ok, err := s.Get(store.KeySession, &id)
	if err != nil {
		return "", err
	}
	if ok && id != "" {
		return id, nil
	}

	id = "sess_" + uuid.NewString()
	if err := s.Set(store.KeySession, id); err != nil {
		return "", err
	}
	return id, nil
}
