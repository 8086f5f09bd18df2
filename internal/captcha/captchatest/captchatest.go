// Package captchatest provides in-process stand-ins for the enhancement and
// OCR tools.
package captchatest

import (
	"context"
	"os"
	"sedar-crawler/internal/captcha"
	"strings"
	"sync"
)

// CopyEnhancer "enhances" an image by copying it to a new temp file and
// remembers every path it handed out.
type CopyEnhancer struct {
	lock    sync.Mutex
	Outputs []string
}

func (e *CopyEnhancer) Enhance(ctx context.Context, imagePath string) (string, error) {
	contents, err := os.ReadFile(imagePath)
	if err != nil {
		return "", err
	}
	out, err := os.CreateTemp("", "captchatest-enhanced-*.jpg")
	if err != nil {
		return "", err
	}
	defer out.Close()
	_, err = out.Write(contents)
	if err != nil {
		return "", err
	}

	e.lock.Lock()
	defer e.lock.Unlock()
	e.Outputs = append(e.Outputs, out.Name())
	return out.Name(), nil
}

// ContentRecognizer "recognizes" an image as its own trimmed file contents, so
// a test server controls the guess by choosing the image bytes. An image whose
// contents are blank yields captcha.ErrNoGlyph.
type ContentRecognizer struct {
	lock  sync.Mutex
	Calls int
}

func (r *ContentRecognizer) Recognize(ctx context.Context, imagePath string) (string, error) {
	r.lock.Lock()
	r.Calls++
	r.lock.Unlock()

	contents, err := os.ReadFile(imagePath)
	if err != nil {
		return "", err
	}
	text := strings.TrimSpace(string(contents))
	if text == "" {
		return "", captcha.ErrNoGlyph
	}
	return text, nil
}
