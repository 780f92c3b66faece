package models

// UserProfile представляет публичный профиль пользователя, который отдает сервер
// авторизации (GET /auth/me, POST /auth/bind-phone, POST /auth/oauth/login).
// Значение неизменяемое: частичные обновления применяются через Merge и
// возвращают новый снимок.
type UserProfile struct {
	ID              string `json:"id"`                      // UUID пользователя
	Email           string `json:"email,omitempty"`         // email (legacy вход), пусто если нет
	Phone           string `json:"phone,omitempty"`         // номер телефона, пусто если не привязан
	FullName        string `json:"full_name,omitempty"`     // полное имя
	Nickname        string `json:"nickname,omitempty"`      // отображаемое имя
	Avatar          string `json:"avatar,omitempty"`        // URL аватара
	OAuthOpenID     string `json:"oauth_openid,omitempty"`  // идентификатор у OAuth провайдера
	OAuthUnionID    string `json:"oauth_unionid,omitempty"` // кросс-приложенческий идентификатор провайдера
	IsActive        bool   `json:"is_active"`
	IsSuperuser     bool   `json:"is_superuser"`
	IsPhoneVerified bool   `json:"is_phone_verified"`
}

// ProfilePatch is a partial profile update. Nil fields are left untouched by Merge.
type ProfilePatch struct {
	Email           *string
	Phone           *string
	FullName        *string
	Nickname        *string
	Avatar          *string
	OAuthOpenID     *string
	OAuthUnionID    *string
	IsActive        *bool
	IsSuperuser     *bool
	IsPhoneVerified *bool
}

// NeedsPhoneBinding reports whether the account still has to attach a verified phone.
func (p UserProfile) NeedsPhoneBinding() bool {
	return p.Phone == "" || !p.IsPhoneVerified
}

// Merge returns a copy of p with every non-nil patch field applied.
// ID is never patched.
func (p UserProfile) Merge(patch ProfilePatch) UserProfile {
	merged := p
	mergeString(&merged.Email, patch.Email)
	mergeString(&merged.Phone, patch.Phone)
	mergeString(&merged.FullName, patch.FullName)
	mergeString(&merged.Nickname, patch.Nickname)
	mergeString(&merged.Avatar, patch.Avatar)
	mergeString(&merged.OAuthOpenID, patch.OAuthOpenID)
	mergeString(&merged.OAuthUnionID, patch.OAuthUnionID)
	mergeBool(&merged.IsActive, patch.IsActive)
	mergeBool(&merged.IsSuperuser, patch.IsSuperuser)
	mergeBool(&merged.IsPhoneVerified, patch.IsPhoneVerified)
	return merged
}

// Patch converts a full profile into a patch that overwrites every mutable field.
// Используется после bind-phone: сервер возвращает профиль целиком.
func (p UserProfile) Patch() ProfilePatch {
	return ProfilePatch{
		Email:           &p.Email,
		Phone:           &p.Phone,
		FullName:        &p.FullName,
		Nickname:        &p.Nickname,
		Avatar:          &p.Avatar,
		OAuthOpenID:     &p.OAuthOpenID,
		OAuthUnionID:    &p.OAuthUnionID,
		IsActive:        &p.IsActive,
		IsSuperuser:     &p.IsSuperuser,
		IsPhoneVerified: &p.IsPhoneVerified,
	}
}

// DisplayName returns the best human-readable name for the profile.
func (p UserProfile) DisplayName() string {
	switch {
	case p.Nickname != "":
		return p.Nickname
	case p.FullName != "":
		return p.FullName
	case p.Phone != "":
		return p.Phone
	default:
		return "OAuth user"
	}
}

func mergeString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

func mergeBool(dst *bool, src *bool) {
	if src != nil {
		*dst = *src
	}
}
