package session

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sedar-crawler/internal/captcha"
	"sedar-crawler/internal/components/assert"
	"sedar-crawler/internal/components/telemetry"
	"sedar-crawler/internal/httpclient"
	"sedar-crawler/pkg/htmlutil"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	report_acquirer_fetch_challenge = "acquirer.fetch-challenge"
	report_acquirer_solve           = "acquirer.solve"
	report_acquirer_submit          = "acquirer.submit"
	report_acquirer_attempt         = "acquirer.attempt"
)

var (
	ErrNoForm            = errors.New("session: challenge page has no response form")
	ErrNoImages          = errors.New("session: challenge page has no images")
	ErrIncomplete        = errors.New("session: candidate does not have one character per image")
	ErrRejected          = errors.New("session: answer rejected")
	ErrAttemptsExhausted = errors.New("session: acquisition attempts exhausted")
)

// Solver is the part of captcha.Solver the acquirer depends on.
type Solver interface {
	Solve(ctx context.Context, client *resty.Client, images []string) (captcha.Candidate, error)
}

// RetryPolicy controls the wait between failed acquisition attempts.
type RetryPolicy struct {
	Delay time.Duration
	// MaxAttempts <= 0 means attempts are unbounded.
	MaxAttempts int
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{Delay: time.Second * 15}
}

// Challenge is what a single challenge page asks for.
type Challenge struct {
	Endpoint *url.URL
	Images   []string
	Response *url.URL
}

type AcquirerOptions struct {
	ChallengeUrl string
	// AnswerField is the form field the answer is posted as.
	AnswerField string
	// FailureMarker is the phrase in the response body that means the answer was wrong.
	FailureMarker string
	Retry         RetryPolicy
}

// Acquirer runs the challenge/response protocol until the remote validator
// accepts an answer.
type Acquirer struct {
	newClient    httpclient.Factory
	solver       Solver
	challengeUrl *url.URL
	opts         AcquirerOptions
	tel          telemetry.API
}

func NewAcquirer(newClient httpclient.Factory, solver Solver, opts AcquirerOptions, tel telemetry.API) (Acquirer, error) {
	assert.NotNil(newClient)
	assert.NotNil(solver)
	assert.NotNil(tel)
	assert.NotEmptyStr(opts.ChallengeUrl)

	challengeUrl, err := url.Parse(opts.ChallengeUrl)
	if err != nil {
		return Acquirer{}, err
	}
	if opts.AnswerField == "" {
		opts.AnswerField = "code"
	}
	if opts.FailureMarker == "" {
		opts.FailureMarker = "did not match"
	}

	return Acquirer{
		newClient:    newClient,
		solver:       solver,
		challengeUrl: challengeUrl,
		opts:         opts,
		tel:          telemetry.NewScopedAPI("session", tel),
	}, nil
}

// Acquire returns a session whose challenge answer was accepted. Every failure
// (network, parsing, incomplete or rejected answers) is reported and retried
// after the policy delay. It only returns an error when ctx is done or the
// policy's attempt bound is reached.
func (a Acquirer) Acquire(ctx context.Context) (*Session, error) {
	a.tel.ReportDebug("trying to break challenge")

	for attempt := 1; ; attempt++ {
		if a.opts.Retry.MaxAttempts > 0 && attempt > a.opts.Retry.MaxAttempts {
			return nil, fmt.Errorf("%w after %d attempts", ErrAttemptsExhausted, a.opts.Retry.MaxAttempts)
		}

		client, err := a.attempt(ctx)
		if err == nil {
			a.tel.ReportDebug("challenge accepted", attempt)
			a.tel.ReportCount(report_acquirer_attempt, int64(attempt))
			return &Session{Http: client, Attempts: attempt}, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		a.tel.ReportWarning(report_acquirer_attempt, err, attempt)

		if a.opts.Retry.Delay <= 0 {
			continue
		}
		timer := time.NewTimer(a.opts.Retry.Delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

// attempt returns the client only if it observed an accepted submission.
func (a Acquirer) attempt(ctx context.Context) (*resty.Client, error) {
	client, err := a.newClient()
	if err != nil {
		return nil, err
	}

	challenge, err := a.fetchChallenge(ctx, client)
	if err != nil {
		return nil, err
	}

	candidate, err := a.solver.Solve(ctx, client, challenge.Images)
	if err != nil {
		a.tel.ReportWarning(report_acquirer_solve, err)
		return nil, err
	}
	if !candidate.Complete(len(challenge.Images)) {
		a.tel.ReportDebug("wrong length guess", candidate.Text(), len(challenge.Images))
		return nil, ErrIncomplete
	}

	a.tel.ReportDebug("guessed challenge", candidate.Text())
	err = a.submit(ctx, client, challenge, candidate.Text())
	if err != nil {
		return nil, err
	}
	return client, nil
}

func (a Acquirer) fetchChallenge(ctx context.Context, client *resty.Client) (Challenge, error) {
	endpoint := a.challengeUrl.String()

	res, err := client.R().
		SetContext(ctx).
		Get(endpoint)
	if err != nil {
		a.tel.ReportWarning(report_acquirer_fetch_challenge, fmt.Errorf("fetch: %w", err), endpoint)
		return Challenge{}, err
	}
	doc, err := htmlutil.ParseDocument(a.challengeUrl, res.Body())
	if err != nil {
		a.tel.ReportWarning(report_acquirer_fetch_challenge, fmt.Errorf("parse: %w", err), endpoint)
		return Challenge{}, err
	}

	images := htmlutil.ResolveAll(a.challengeUrl, doc.Find("img"), "src")
	if len(images) == 0 {
		a.tel.ReportWarning(report_acquirer_fetch_challenge, ErrNoImages, endpoint)
		return Challenge{}, ErrNoImages
	}
	response, ok := htmlutil.ResolveAttr(a.challengeUrl, doc.Find("form[action]").First(), "action")
	if !ok {
		a.tel.ReportWarning(report_acquirer_fetch_challenge, ErrNoForm, endpoint)
		return Challenge{}, ErrNoForm
	}

	challenge := Challenge{
		Endpoint: a.challengeUrl,
		Images:   make([]string, len(images)),
		Response: response,
	}
	for i, img := range images {
		challenge.Images[i] = img.String()
	}
	return challenge, nil
}

func (a Acquirer) submit(ctx context.Context, client *resty.Client, challenge Challenge, answer string) error {
	endpoint := challenge.Response.String()

	res, err := client.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			a.opts.AnswerField: answer,
		}).
		Post(endpoint)
	if err != nil {
		a.tel.ReportWarning(report_acquirer_submit, fmt.Errorf("submit: %w", err), endpoint)
		return err
	}
	if strings.Contains(res.String(), a.opts.FailureMarker) {
		a.tel.ReportDebug("answer rejected", answer)
		return ErrRejected
	}
	return nil
}
