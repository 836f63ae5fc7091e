package screen

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ErrUnsupportedResume is returned by ReadResume for files that are neither
// PDF nor plain text.
var ErrUnsupportedResume = errors.New("screen: resume must be a .pdf or .txt file")

// maxResumeText caps the text sent to the interviewer.
const maxResumeText = 32 << 10

// ReadResume extracts the plain text of a resume file.
func ReadResume(path string) (string, error) {
	var (
		text string
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		text, err = readPDF(path)
	case ".txt", ".md":
		var b []byte
		b, err = os.ReadFile(path)
		text = string(b)
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedResume, filepath.Base(path))
	}
	if err != nil {
		return "", fmt.Errorf("screen: read resume: %w", err)
	}
	text = strings.Join(strings.Fields(text), " ")
	if len(text) > maxResumeText {
		text = strings.ToValidUTF8(text[:maxResumeText], "")
	}
	return text, nil
}

func readPDF(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	plain, err := r.GetPlainText()
	if err != nil {
		return "", err
	}
	b, err := io.ReadAll(plain)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
