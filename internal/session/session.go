package session

import (
	"context"
	"net/http"
	"net/url"

	"github.com/go-resty/resty/v2"
)

// Session is an authenticated http context, it only exists once a challenge
// answer has been accepted by the remote validator.
type Session struct {
	Http *resty.Client
	// Attempts is how many acquisition attempts it took to obtain this session.
	Attempts int
}

// Cookies returns the cookies the session would send to u.
func (s *Session) Cookies(u *url.URL) []*http.Cookie {
	jar := s.Http.GetClient().Jar
	if jar == nil {
		return nil
	}
	return jar.Cookies(u)
}

// Source produces fresh sessions.
type Source interface {
	Acquire(ctx context.Context) (*Session, error)
}
