package session

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sedar-crawler/internal/captcha"
	"sedar-crawler/internal/captcha/captchatest"
	"sedar-crawler/internal/components/telemetry"
	"sedar-crawler/internal/httpclient"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// challengeServer imitates the remote repository: every GET of the challenge
// page starts a new numbered session (cookie), every image of that page
// "contains" one character and CheckCode.do validates answers.
type challengeServer struct {
	*httptest.Server

	images []string
	// accept decides whether the n-th submission (1-indexed) is accepted.
	accept func(n int, code string) bool
	noForm bool

	lock        sync.Mutex
	challenges  int
	submissions []string
	// sessions that got their answer accepted
	accepted map[string]bool
}

func newChallengeServer(images []string, accept func(n int, code string) bool) *challengeServer {
	s := &challengeServer{images: images, accept: accept, accepted: map[string]bool{}}
	mux := http.NewServeMux()
	mux.HandleFunc("/GetFile.do", s.challenge)
	mux.HandleFunc("/captcha/", s.image)
	mux.HandleFunc("/CheckCode.do", s.check)
	s.Server = httptest.NewServer(mux)
	return s
}

func (s *challengeServer) challenge(w http.ResponseWriter, r *http.Request) {
	s.lock.Lock()
	s.challenges++
	id := s.challenges
	s.lock.Unlock()

	http.SetCookie(w, &http.Cookie{Name: "JSESSIONID", Value: fmt.Sprint(id), Path: "/"})

	page := strings.Builder{}
	page.WriteString("<html><body><p>Please enter the code</p>")
	for i := range s.images {
		fmt.Fprintf(&page, `<img src="captcha/%d.jpg">`, i)
	}
	if !s.noForm {
		page.WriteString(`<form method="post" action="/CheckCode.do"><input name="code"></form>`)
	}
	page.WriteString("</body></html>")
	w.Write([]byte(page.String()))
}

func (s *challengeServer) image(w http.ResponseWriter, r *http.Request) {
	var idx int
	_, err := fmt.Sscanf(r.URL.Path, "/captcha/%d.jpg", &idx)
	if err != nil || idx >= len(s.images) {
		http.NotFound(w, r)
		return
	}
	w.Write([]byte(s.images[idx]))
}

func (s *challengeServer) check(w http.ResponseWriter, r *http.Request) {
	code := r.FormValue("code")

	s.lock.Lock()
	s.submissions = append(s.submissions, code)
	n := len(s.submissions)
	s.lock.Unlock()

	if !s.accept(n, code) {
		w.Write([]byte("The code you entered did not match. Please try again."))
		return
	}
	cookie, err := r.Cookie("JSESSIONID")
	if err == nil {
		s.lock.Lock()
		s.accepted[cookie.Value] = true
		s.lock.Unlock()
	}
	w.Write([]byte("Thank you."))
}

func (s *challengeServer) stats() (challenges int, submissions []string) {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.challenges, append([]string{}, s.submissions...)
}

func (s *challengeServer) isAccepted(session string) bool {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.accepted[session]
}

func (s *challengeServer) acceptedCount() int {
	s.lock.Lock()
	defer s.lock.Unlock()
	return len(s.accepted)
}

func acceptLength(length int) func(int, string) bool {
	return func(_ int, code string) bool {
		return len(code) == length
	}
}

func newTestAcquirer(t *testing.T, srv *challengeServer, retry RetryPolicy) (Acquirer, *captchatest.ContentRecognizer) {
	tel := telemetry.NewRecorder(t)
	recognizer := &captchatest.ContentRecognizer{}
	solver := captcha.NewSolver(&captchatest.CopyEnhancer{}, recognizer, tel)

	acquirer, err := NewAcquirer(
		httpclient.NewFactory(httpclient.Options{}, tel),
		solver,
		AcquirerOptions{
			ChallengeUrl: srv.URL + "/GetFile.do?lang=EN&docClass=13&fileName=/foo",
			Retry:        retry,
		},
		tel,
	)
	require.NoError(t, err)
	return acquirer, recognizer
}

func TestAcquireFirstAttempt(t *testing.T) {
	srv := newChallengeServer([]string{"K", "7", "q", "Z"}, acceptLength(4))
	defer srv.Close()

	acquirer, recognizer := newTestAcquirer(t, srv, RetryPolicy{})

	sess, err := acquirer.Acquire(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, sess.Attempts)
	require.Equal(t, 4, recognizer.Calls)

	challenges, submissions := srv.stats()
	require.Equal(t, 1, challenges)
	require.Equal(t, []string{"K7qZ"}, submissions)

	base, err := url.Parse(srv.URL)
	require.NoError(t, err)
	cookies := sess.Cookies(base)
	require.Len(t, cookies, 1)
	require.True(t, srv.isAccepted(cookies[0].Value))
}

func TestAcquireNeverSubmitsIncompleteAnswers(t *testing.T) {
	// the third image recognizes as nothing
	srv := newChallengeServer([]string{"K", "7", " ", "Z"}, acceptLength(4))
	defer srv.Close()

	acquirer, _ := newTestAcquirer(t, srv, RetryPolicy{MaxAttempts: 3})

	_, err := acquirer.Acquire(context.Background())
	require.ErrorIs(t, err, ErrAttemptsExhausted)

	challenges, submissions := srv.stats()
	require.Equal(t, 3, challenges)
	require.Empty(t, submissions)
}

func TestAcquireRejectsMergedGlyphs(t *testing.T) {
	// two characters recognized in one image make the answer too long
	srv := newChallengeServer([]string{"K", "7q", "Z"}, func(int, string) bool { return true })
	defer srv.Close()

	acquirer, _ := newTestAcquirer(t, srv, RetryPolicy{MaxAttempts: 2})

	_, err := acquirer.Acquire(context.Background())
	require.ErrorIs(t, err, ErrAttemptsExhausted)

	_, submissions := srv.stats()
	require.Empty(t, submissions)
}

func TestAcquireRetriesRejectedAnswers(t *testing.T) {
	srv := newChallengeServer([]string{"A", "B", "C"}, func(n int, _ string) bool { return n >= 3 })
	defer srv.Close()

	acquirer, _ := newTestAcquirer(t, srv, RetryPolicy{})

	sess, err := acquirer.Acquire(context.Background())
	require.NoError(t, err)
	require.Equal(t, 3, sess.Attempts)

	challenges, submissions := srv.stats()
	require.Equal(t, 3, challenges)
	require.Len(t, submissions, 3)

	// the returned session is the one that saw the accepted response
	base, err := url.Parse(srv.URL)
	require.NoError(t, err)
	cookies := sess.Cookies(base)
	require.Len(t, cookies, 1)
	require.Equal(t, "3", cookies[0].Value)
	require.Equal(t, 1, srv.acceptedCount())
	require.True(t, srv.isAccepted("3"))
}

func TestAcquireRetriesMissingForm(t *testing.T) {
	srv := newChallengeServer([]string{"A"}, acceptLength(1))
	srv.noForm = true
	defer srv.Close()

	acquirer, _ := newTestAcquirer(t, srv, RetryPolicy{MaxAttempts: 2})

	_, err := acquirer.Acquire(context.Background())
	require.ErrorIs(t, err, ErrAttemptsExhausted)

	challenges, submissions := srv.stats()
	require.Equal(t, 2, challenges)
	require.Empty(t, submissions)
}

func TestAcquireRetriesTransportErrors(t *testing.T) {
	srv := newChallengeServer([]string{"A"}, acceptLength(1))
	srv.Close()

	acquirer, _ := newTestAcquirer(t, srv, RetryPolicy{MaxAttempts: 2})

	_, err := acquirer.Acquire(context.Background())
	require.ErrorIs(t, err, ErrAttemptsExhausted)
}

func TestAcquireStopsWhenCancelled(t *testing.T) {
	srv := newChallengeServer([]string{"A", " "}, acceptLength(2))
	defer srv.Close()

	acquirer, _ := newTestAcquirer(t, srv, RetryPolicy{Delay: time.Hour})

	ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond*200)
	defer cancel()

	_, err := acquirer.Acquire(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	challenges, _ := srv.stats()
	require.Equal(t, 1, challenges)
}
