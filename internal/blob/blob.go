package blob

import (
	"bytes"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
)

// MaxScreenshotSize is the largest accepted screenshot in bytes.
const MaxScreenshotSize = 5 << 20

var (
	ErrTooLarge        = fmt.Errorf("file size too large, maximum size: %dMB", MaxScreenshotSize>>20)
	ErrUnsupportedType = errors.New("invalid file type, allowed types: image/jpeg, image/png, image/webp, image/gif")
	ErrEmpty           = errors.New("no file provided")
)

var allowedTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

// Object describes a stored file.
type Object struct {
	URL         string `json:"url"`
	Filename    string `json:"filename"`
	ContentType string `json:"-"`
	Size        int64  `json:"-"`
}

// LocalStore keeps screenshots on the local filesystem below Root and exposes
// them under URLPrefix.
type LocalStore struct {
	Root      string
	URLPrefix string
	now       func() time.Time
}

// NewLocalStore creates the screenshot directory below root.
func NewLocalStore(root, urlPrefix string) (*LocalStore, error) {
	if root == "" {
		return nil, fmt.Errorf("upload directory must not be empty")
	}
	if err := os.MkdirAll(filepath.Join(root, "screenshots"), 0o755); err != nil {
		return nil, fmt.Errorf("create upload directory: %w", err)
	}
	return &LocalStore{Root: root, URLPrefix: strings.TrimRight(urlPrefix, "/"), now: time.Now}, nil
}

// PutScreenshot validates and stores an image uploaded by userID. The content
// type is sniffed from the data, never taken from the client.
func (s *LocalStore) PutScreenshot(userID string, r io.Reader) (Object, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxScreenshotSize+1))
	if err != nil {
		return Object{}, fmt.Errorf("read upload: %w", err)
	}
	if len(data) == 0 {
		return Object{}, ErrEmpty
	}
	if len(data) > MaxScreenshotSize {
		return Object{}, ErrTooLarge
	}

	mtype := mimetype.Detect(data)
	ext, ok := allowedTypes[baseType(mtype.String())]
	if !ok {
		return Object{}, ErrUnsupportedType
	}

	suffix, err := randomSuffix()
	if err != nil {
		return Object{}, err
	}
	name := fmt.Sprintf("%s-%d-%s%s", userID, s.now().UnixMilli(), suffix, ext)
	dst := filepath.Join(s.Root, "screenshots", name)
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return Object{}, fmt.Errorf("write upload: %w", err)
	}

	return Object{
		URL:         path.Join(s.URLPrefix, "screenshots", name),
		Filename:    name,
		ContentType: baseType(mtype.String()),
		Size:        int64(len(data)),
	}, nil
}

// Sniff reports the detected content type of data.
func Sniff(data []byte) string {
	return baseType(mimetype.Detect(data).String())
}

func baseType(t string) string {
	if i := strings.IndexByte(t, ';'); i >= 0 {
		t = t[:i]
	}
	return strings.TrimSpace(t)
}

const alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

func randomSuffix() (string, error) {
	raw := make([]byte, 11)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("random name: %w", err)
	}
	var b bytes.Buffer
	for _, v := range raw {
		b.WriteByte(alphabet[int(v)%len(alphabet)])
	}
	return b.String(), nil
}
