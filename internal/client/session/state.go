package session

import (
	"github.com/iudanet/gophgate/internal/models"
)

// State is an immutable snapshot of the client session.
//
// Invariants, enforced on every transition:
//   - IsAuthenticated == (Token != "")
//   - NeedBindPhone implies User != nil
type State struct {
	User            *models.UserProfile // nil until a profile is known
	Token           string              // bearer token, "" when anonymous
	IsAuthenticated bool
	NeedBindPhone   bool
	IsLoading       bool // rehydration in flight
}

// normalize восстанавливает производные поля после изменения
func (s *State) normalize() {
	s.IsAuthenticated = s.Token != ""
	if s.User == nil {
		s.NeedBindPhone = false
	}
}

// clone возвращает копию, не разделяющую профиль с оригиналом
func (s State) clone() State {
	s.User = cloneProfile(s.User)
	return s
}

func (s State) equal(other State) bool {
	if s.Token != other.Token ||
		s.IsAuthenticated != other.IsAuthenticated ||
		s.NeedBindPhone != other.NeedBindPhone ||
		s.IsLoading != other.IsLoading {
		return false
	}
	if s.User == nil || other.User == nil {
		return s.User == other.User
	}
	return *s.User == *other.User
}

func cloneProfile(p *models.UserProfile) *models.UserProfile {
	if p == nil {
		return nil
	}
	cp := *p
	return &cp
}
