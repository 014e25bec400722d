package services

import (
	"errors"

	"golang.org/x/crypto/bcrypt"

	"backoffice/internal/domain"
	"backoffice/internal/repos"
)

var ErrBadCreds = errors.New("invalid email or password")

// compared against when the email is unknown so both failures cost one bcrypt run
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("no-such-user"), bcrypt.DefaultCost)

type AuthService struct {
	Users *repos.UserRepo
}

// Login checks the credentials and binds sid to the user.
func (s *AuthService) Login(sid, email, password string) (*domain.User, error) {
	u, err := s.Users.ByEmail(email)
	if errors.Is(err, domain.ErrNotFound) {
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return nil, ErrBadCreds
	}
	if err != nil {
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.Hash), []byte(password)) != nil {
		return nil, ErrBadCreds
	}
	if err := s.Users.BindSession(sid, u.ID); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *AuthService) Logout(sid string) error {
	return s.Users.UnbindSession(sid)
}

// CurrentActor resolves the session into the actor passed to every service
// call. Anonymous or unknown sessions give the zero Actor.
func (s *AuthService) CurrentActor(sid string) (domain.Actor, *domain.User) {
	if sid == "" {
		return domain.Actor{}, nil
	}
	u, err := s.Users.SessionUser(sid)
	if err != nil {
		return domain.Actor{}, nil
	}
	return domain.ActorFor(u), u
}
