package newsapp

import (
	persist "github.com/goliatone/go-persistedstate"
	"github.com/goliatone/go-persistedstate/internal/hydrate"
	"github.com/goliatone/go-persistedstate/store"
)

const (
	// UserKey is the storage key of the whole user store.
	UserKey = "user-store"
	// DefaultBio is shown until the user writes one.
	DefaultBio = "This is my profile"
)

// UserInfo is the profile returned by the login endpoint.
type UserInfo struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Nickname string `json:"nickname,omitempty"`
	Avatar   string `json:"avatar,omitempty"`
	Bio      string `json:"bio,omitempty"`
}

func userDefinition() store.Definition {
	return store.Definition{
		ID: UserStoreID,
		State: func() map[string]any {
			return map[string]any{
				"userInfo": nil,
				"token":    "",
				"isLogin":  false,
				"userBio":  DefaultBio,
			}
		},
		Options: map[string]any{
			persist.OptionKey: persist.Config{Key: UserKey},
		},
	}
}

// UserStore holds the signed-in session.
type UserStore struct {
	store *store.Store
}

// SetSession records a successful login.
func (u *UserStore) SetSession(info UserInfo, token string) error {
	encoded, err := hydrate.Encode(info)
	if err != nil {
		return err
	}
	u.store.Update(func(draft map[string]any) {
		draft["userInfo"] = encoded
		draft["token"] = token
		draft["isLogin"] = true
	})
	return nil
}

// Logout clears the session. The local bio survives.
func (u *UserStore) Logout() {
	u.store.Update(func(draft map[string]any) {
		draft["userInfo"] = nil
		draft["token"] = ""
		draft["isLogin"] = false
	})
}

// LoginStatus reports whether a session is active.
func (u *UserStore) LoginStatus() bool {
	ok, _ := field[bool](u.store, "isLogin")
	return ok
}

// Token returns the session token, empty when logged out.
func (u *UserStore) Token() string {
	token, _ := field[string](u.store, "token")
	return token
}

// UserInfo returns the profile, nil when logged out.
func (u *UserStore) UserInfo() (*UserInfo, error) {
	return field[*UserInfo](u.store, "userInfo")
}

// Bio prefers the profile bio over the local one.
func (u *UserStore) Bio() string {
	if info, err := u.UserInfo(); err == nil && info != nil && info.Bio != "" {
		return info.Bio
	}
	bio, _ := field[string](u.store, "userBio")
	return bio
}

// SetBio updates the profile bio of the signed-in user.
func (u *UserStore) SetBio(bio string) error {
	if u.Token() == "" {
		return ErrNotLoggedIn
	}
	u.store.Update(func(draft map[string]any) {
		info, ok := draft["userInfo"].(map[string]any)
		if !ok {
			draft["userBio"] = bio
			return
		}
		info["bio"] = bio
	})
	return nil
}

// Store returns the underlying store.
func (u *UserStore) Store() *store.Store {
	return u.store
}
