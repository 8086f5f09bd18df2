package documents

import (
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"sedar-crawler/pkg/textutil"
	"strings"
)

var ErrUnaddressable = errors.New("documents: url does not name a filing document")

const filingsSegment = "/filings/"

// LocalPath maps a submission url onto <root>/<filing id>/<document id>/<name>.
// The layout is shared with every previous run's download tree, so it must not
// change.
func LocalPath(root, submissionUrl string) (string, error) {
	_, tail, found := strings.Cut(submissionUrl, filingsSegment)
	if !found {
		return "", fmt.Errorf("%w: %s", ErrUnaddressable, submissionUrl)
	}
	parts := strings.SplitN(tail, "/", 3)
	if len(parts) != 3 {
		return "", fmt.Errorf("%w: %s", ErrUnaddressable, submissionUrl)
	}
	filingId, docId, rest := parts[0], parts[1], parts[2]

	unquoted, err := url.PathUnescape(rest)
	if err != nil {
		unquoted = rest
	}
	name := textutil.SecureFilename(unquoted)
	if name == "" || !safeSegment(filingId) || !safeSegment(docId) {
		return "", fmt.Errorf("%w: %s", ErrUnaddressable, submissionUrl)
	}

	return filepath.Join(root, filingId, docId, name), nil
}

func safeSegment(segment string) bool {
	return segment != "" &&
		segment != "." &&
		segment != ".." &&
		!strings.ContainsAny(segment, `/\`)
}
