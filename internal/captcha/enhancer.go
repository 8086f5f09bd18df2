package captcha

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sedar-crawler/internal/components/telemetry"
)

const report_enhancer_enhance = "enhancer.enhance"

// Enhancer prepares a raw challenge image for recognition. Enhance never
// modifies its input and always returns the path of a new file that the
// caller owns.
type Enhancer interface {
	Enhance(ctx context.Context, imagePath string) (string, error)
}

// fixed filter chain, not runtime-tunable
var enhanceArgs = []string{
	"-contrast", "-contrast", "-contrast",
	"-contrast", "-contrast", "-contrast",
	"-modulate", "120",
	"-sharpen", "0x1.0",
	"-antialias",
	"-despeckle", "-despeckle", "-despeckle",
	"-despeckle", "-despeckle", "-despeckle",
}

// GraphicsMagick enhances images with `gm convert`.
type GraphicsMagick struct {
	bin string
	tel telemetry.API
}

// NewGraphicsMagick locates the gm binary among candidates (or $PATH).
func NewGraphicsMagick(candidates []string, tel telemetry.API) (GraphicsMagick, error) {
	bin, err := lookupBinary("gm", candidates...)
	if err != nil {
		return GraphicsMagick{}, err
	}
	return GraphicsMagick{bin: bin, tel: tel}, nil
}

// Enhance runs the filter chain. When gm fails the warning is reported and an
// unenhanced copy of the input is returned instead.
func (g GraphicsMagick) Enhance(ctx context.Context, imagePath string) (string, error) {
	out, err := os.CreateTemp("", "captcha-enhanced-*.jpg")
	if err != nil {
		return "", err
	}
	outPath := out.Name()
	out.Close()

	args := append([]string{"convert"}, enhanceArgs...)
	args = append(args, imagePath, outPath)
	cmd := exec.CommandContext(ctx, g.bin, args...)
	err = cmd.Run()
	if err == nil {
		return outPath, nil
	}

	g.tel.ReportWarning(report_enhancer_enhance, fmt.Errorf("gm convert: %w", err), imagePath)
	err = copyFile(imagePath, outPath)
	if err != nil {
		os.Remove(outPath)
		return "", err
	}
	return outPath, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	_, err = io.Copy(out, in)
	if err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
