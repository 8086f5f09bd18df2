package textutil

import (
	"regexp"
	"runtime"
	"strings"
	"unicode"

	"github.com/gosimple/slug"
	"golang.org/x/text/unicode/norm"
)

// AttributeKey turns a free-form label ("Stock Symbol:") into a column-like
// key ("stock_symbol").
func AttributeKey(label string) string {
	return strings.Trim(strings.ReplaceAll(slug.Make(label), "-", "_"), "_")
}

var filenameStrip = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

var windowsDeviceNames = map[string]bool{
	"CON": true, "AUX": true, "COM1": true, "COM2": true, "COM3": true,
	"COM4": true, "LPT1": true, "LPT2": true, "LPT3": true, "PRN": true, "NUL": true,
}

// SecureFilename reduces name to a flat ascii file name that is safe to join
// onto a directory, the same way werkzeug's secure_filename does on the
// running OS: path separators become underscores, anything outside
// [A-Za-z0-9_.-] is dropped and leading/trailing dots and underscores are
// trimmed. The result may be empty.
func SecureFilename(name string) string {
	return secureFilename(name, runtime.GOOS == "windows")
}

// secureFilename only treats a backslash as a separator on windows, on posix
// it is stripped like any other punctuation. Device names are only reserved
// on windows.
func secureFilename(name string, windows bool) string {
	decomposed := norm.NFKD.String(name)
	ascii := strings.Builder{}
	for _, r := range decomposed {
		if r <= unicode.MaxASCII {
			ascii.WriteRune(r)
		}
	}

	separators := posixSeparators
	if windows {
		separators = windowsSeparators
	}
	flat := separators.Replace(ascii.String())
	flat = strings.Join(strings.Fields(flat), "_")
	flat = filenameStrip.ReplaceAllString(flat, "")
	flat = strings.Trim(flat, "._")

	if !windows {
		return flat
	}
	stem := strings.ToUpper(strings.SplitN(flat, ".", 2)[0])
	if windowsDeviceNames[stem] {
		flat = "_" + flat
	}
	return flat
}

var (
	posixSeparators   = strings.NewReplacer("/", " ")
	windowsSeparators = strings.NewReplacer("/", " ", "\\", " ")
)
