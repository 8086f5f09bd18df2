package captcha

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sedar-crawler/internal/components/telemetry"
	"strconv"
	"strings"
)

const report_recognizer_recognize = "recognizer.recognize"

// ErrNoGlyph means the recognizer produced nothing usable for an image. It is
// a recoverable outcome, the solver keeps an empty fragment in its place.
var ErrNoGlyph = errors.New("captcha: no glyph recognized")

// Recognizer turns one enhanced image into a short trimmed text guess.
type Recognizer interface {
	Recognize(ctx context.Context, imagePath string) (string, error)
}

// Tesseract recognizes glyphs by running the tesseract binary in single word
// page segmentation mode.
type Tesseract struct {
	bin      string
	language string
	psm      int
	tel      telemetry.API
}

// NewTesseract locates the tesseract binary among candidates (or $PATH).
func NewTesseract(candidates []string, language string, psm int, tel telemetry.API) (Tesseract, error) {
	bin, err := lookupBinary("tesseract", candidates...)
	if err != nil {
		return Tesseract{}, err
	}
	if language == "" {
		language = "eng"
	}
	if psm <= 0 {
		psm = 8
	}
	return Tesseract{bin: bin, language: language, psm: psm, tel: tel}, nil
}

func (t Tesseract) Recognize(ctx context.Context, imagePath string) (string, error) {
	dir, err := os.MkdirTemp("", "captcha-ocr-*")
	if err != nil {
		return "", err
	}
	defer os.RemoveAll(dir)

	// tesseract appends .txt to the output base itself
	outBase := filepath.Join(dir, "result")
	cmd := exec.CommandContext(
		ctx, t.bin,
		imagePath, outBase,
		"-l", t.language,
		"--psm", strconv.Itoa(t.psm),
	)
	err = cmd.Run()
	if err != nil {
		t.tel.ReportWarning(report_recognizer_recognize, fmt.Errorf("tesseract: %w", err), imagePath)
		return "", ErrNoGlyph
	}

	contents, err := os.ReadFile(outBase + ".txt")
	if err != nil {
		t.tel.ReportWarning(report_recognizer_recognize, fmt.Errorf("read result: %w", err), imagePath)
		return "", ErrNoGlyph
	}
	text := strings.TrimSpace(string(contents))
	if text == "" {
		return "", ErrNoGlyph
	}
	return text, nil
}
