package captcha

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sedar-crawler/internal/components/assert"
	"sedar-crawler/internal/components/telemetry"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/go-resty/resty/v2"
)

const (
	report_solver_fetch_image = "solver.fetch-image"
	report_solver_recognize   = "solver.recognize"
)

// Candidate is the answer assembled from a challenge, one fragment per image
// in image order. A fragment is empty when the recognizer produced nothing.
type Candidate struct {
	Fragments []string
}

func (c Candidate) Text() string {
	return strings.Join(c.Fragments, "")
}

// Missing returns how many images produced no glyph.
func (c Candidate) Missing() int {
	n := 0
	for _, f := range c.Fragments {
		if f == "" {
			n++
		}
	}
	return n
}

// Complete reports whether the candidate can be submitted for a challenge of
// `images` images: no image is missing and the text is exactly one character
// per image.
func (c Candidate) Complete(images int) bool {
	return len(c.Fragments) == images &&
		c.Missing() == 0 &&
		utf8.RuneCountInString(c.Text()) == images
}

// Solver turns challenge image urls into a Candidate.
type Solver struct {
	enhancer   Enhancer
	recognizer Recognizer
	tel        telemetry.API
}

func NewSolver(enhancer Enhancer, recognizer Recognizer, tel telemetry.API) Solver {
	assert.NotNil(enhancer)
	assert.NotNil(recognizer)
	assert.NotNil(tel)

	return Solver{
		enhancer:   enhancer,
		recognizer: recognizer,
		tel:        telemetry.NewScopedAPI("captcha", tel),
	}
}

// Solve fetches every image with client (so the challenge cookies are kept),
// then enhances and recognizes it. It validates completion only, never
// correctness: a fragment is kept (possibly empty) for every image. Failing
// to fetch any image aborts the whole solve.
func (s Solver) Solve(ctx context.Context, client *resty.Client, images []string) (Candidate, error) {
	dir, err := os.MkdirTemp("", "captcha-*")
	if err != nil {
		return Candidate{}, err
	}
	defer os.RemoveAll(dir)

	candidate := Candidate{Fragments: make([]string, 0, len(images))}
	for i, src := range images {
		raw := filepath.Join(dir, strconv.Itoa(i)+".jpg")
		err := s.fetchImage(ctx, client, src, raw)
		if err != nil {
			return Candidate{}, err
		}

		fragment, err := s.recognize(ctx, raw)
		if errors.Is(err, ErrNoGlyph) {
			s.tel.ReportWarning(report_solver_recognize, err, src)
			fragment = ""
		} else if err != nil {
			s.tel.ReportBroken(report_solver_recognize, err, src)
			return Candidate{}, err
		}
		candidate.Fragments = append(candidate.Fragments, fragment)
	}

	s.tel.ReportDebug("solved challenge", candidate.Text(), len(images))
	return candidate, nil
}

func (s Solver) fetchImage(ctx context.Context, client *resty.Client, src, dest string) error {
	res, err := client.R().
		SetContext(ctx).
		Get(src)
	if err != nil {
		s.tel.ReportWarning(report_solver_fetch_image, fmt.Errorf("fetch: %w", err), src)
		return err
	}
	if res.IsError() {
		err := fmt.Errorf("fetch challenge image %s: status %s", src, res.Status())
		s.tel.ReportWarning(report_solver_fetch_image, err)
		return err
	}
	return os.WriteFile(dest, res.Body(), 0600)
}

func (s Solver) recognize(ctx context.Context, raw string) (string, error) {
	enhanced, err := s.enhancer.Enhance(ctx, raw)
	if err != nil {
		return "", fmt.Errorf("enhance: %w", err)
	}
	defer os.Remove(enhanced)

	return s.recognizer.Recognize(ctx, enhanced)
}
