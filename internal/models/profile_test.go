package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }

func TestUserProfile_NeedsPhoneBinding(t *testing.T) {
	tests := []struct {
		name    string
		profile UserProfile
		want    bool
	}{
		{name: "no phone", profile: UserProfile{ID: "u1"}, want: true},
		{name: "phone not verified", profile: UserProfile{ID: "u1", Phone: "13800138000"}, want: true},
		{name: "verified flag without phone", profile: UserProfile{ID: "u1", IsPhoneVerified: true}, want: true},
		{name: "phone verified", profile: UserProfile{ID: "u1", Phone: "13800138000", IsPhoneVerified: true}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.profile.NeedsPhoneBinding())
		})
	}
}

func TestUserProfile_Merge(t *testing.T) {
	original := UserProfile{
		ID:          "u1",
		Nickname:    "wx user",
		Avatar:      "https://cdn.example.com/a.png",
		OAuthOpenID: "openid-1",
		IsActive:    true,
	}

	merged := original.Merge(ProfilePatch{
		Phone:           strPtr("13800138000"),
		IsPhoneVerified: boolPtr(true),
	})

	// Исходный снимок не изменился
	assert.Empty(t, original.Phone)
	assert.False(t, original.IsPhoneVerified)

	assert.Equal(t, "u1", merged.ID)
	assert.Equal(t, "13800138000", merged.Phone)
	assert.True(t, merged.IsPhoneVerified)
	assert.Equal(t, "wx user", merged.Nickname)
	assert.Equal(t, "openid-1", merged.OAuthOpenID)
	assert.True(t, merged.IsActive)
	assert.False(t, merged.NeedsPhoneBinding())
}

func TestUserProfile_PatchOverwritesEverything(t *testing.T) {
	base := UserProfile{ID: "u1", Nickname: "old", Email: "old@example.com", IsActive: true}
	fresh := UserProfile{ID: "ignored", Nickname: "new", Phone: "13900139000", IsPhoneVerified: true}

	merged := base.Merge(fresh.Patch())

	assert.Equal(t, "u1", merged.ID, "ID is never patched")
	assert.Equal(t, "new", merged.Nickname)
	assert.Empty(t, merged.Email)
	assert.False(t, merged.IsActive)
	assert.Equal(t, "13900139000", merged.Phone)
}

func TestUserProfile_DisplayName(t *testing.T) {
	assert.Equal(t, "nick", UserProfile{Nickname: "nick", FullName: "Full"}.DisplayName())
	assert.Equal(t, "Full", UserProfile{FullName: "Full", Phone: "138"}.DisplayName())
	assert.Equal(t, "138", UserProfile{Phone: "138"}.DisplayName())
	assert.Equal(t, "OAuth user", UserProfile{}.DisplayName())
}

func TestUserProfile_DecodeNulls(t *testing.T) {
	// Сервер отдает null для отсутствующих полей
	raw := `{"id":"u1","email":null,"phone":null,"is_active":true,"is_superuser":false,
		"full_name":null,"nickname":"n","avatar":null,"oauth_openid":"o","oauth_unionid":null,
		"is_phone_verified":false}`

	var p UserProfile
	require.NoError(t, json.Unmarshal([]byte(raw), &p))

	assert.Equal(t, "u1", p.ID)
	assert.Empty(t, p.Phone)
	assert.Equal(t, "o", p.OAuthOpenID)
	assert.True(t, p.NeedsPhoneBinding())
}

func TestUser_Profile(t *testing.T) {
	u := &User{ID: "u1", Phone: "13800138000", IsPhoneVerified: true, PasswordHash: "secret", IsActive: true}

	p := u.Profile()
	assert.Equal(t, "u1", p.ID)
	assert.Equal(t, "13800138000", p.Phone)
	assert.True(t, u.IsPhoneBound())

	data, err := json.Marshal(u)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "secret")
}
