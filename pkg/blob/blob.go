// Package blob stores named byte blobs on a filesystem and moves them in
// and out of buffer.Buffer values.
package blob

import (
	iofs "io/fs"
	"path"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/klauspost/compress/zstd"
	"github.com/rawbytedev/songbird/internal/logutil"
	"github.com/rawbytedev/songbird/pkg/buffer"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

var (
	// ErrNotFound is returned when a name does not resolve to a stored blob.
	ErrNotFound = errors.New("blob not found")
	// ErrInvalidName is returned for empty names or names escaping the store.
	ErrInvalidName = errors.New("invalid blob name")
)

// Storage is the blob contract the containers rely on.
type Storage interface {
	// Load returns the full contents of name.
	Load(name string) ([]byte, error)
	// Save replaces the contents of name with data.
	Save(name string, data []byte) error
	// Size returns the stored size of name in bytes.
	Size(name string) (int64, error)
}

type options struct {
	logger   *zap.Logger
	compress bool
}

// Option configures an FSStore.
type Option func(*options)

// WithLogger sets the logger used for store activity.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithCompression stores blobs zstd-compressed. Size then reports the
// compressed size.
func WithCompression(enabled bool) Option {
	return func(o *options) {
		o.compress = enabled
	}
}

// FSStore implements Storage on an afero filesystem.
type FSStore struct {
	fs     afero.Fs
	logger *zap.Logger
	enc    *zstd.Encoder
	dec    *zstd.Decoder
}

var _ Storage = (*FSStore)(nil)

// NewFSStore returns a store rooted at the top of fs.
func NewFSStore(fs afero.Fs, opts ...Option) (*FSStore, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	s := &FSStore{fs: fs, logger: logutil.Adjust(o.logger)}
	if o.compress {
		enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
		if err != nil {
			return nil, errors.Wrap(err, "creating zstd encoder")
		}
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return nil, errors.Wrap(err, "creating zstd decoder")
		}
		s.enc, s.dec = enc, dec
	}
	return s, nil
}

// OpenDir returns a store keeping blobs under the OS directory root,
// creating it if needed.
func OpenDir(root string, opts ...Option) (*FSStore, error) {
	osfs := afero.NewOsFs()
	if err := osfs.MkdirAll(root, 0o755); err != nil {
		return nil, errors.Wrapf(err, "creating store root %s", root)
	}
	return NewFSStore(afero.NewBasePathFs(osfs, root), opts...)
}

// Load implements Storage.
func (s *FSStore) Load(name string) ([]byte, error) {
	p, err := cleanName(name)
	if err != nil {
		return nil, err
	}
	data, err := afero.ReadFile(s.fs, p)
	if err != nil {
		if errors.Is(err, iofs.ErrNotExist) {
			return nil, errors.Wrapf(ErrNotFound, "%s", name)
		}
		return nil, errors.Wrapf(err, "loading %s", name)
	}
	if s.dec != nil {
		data, err = s.dec.DecodeAll(data, nil)
		if err != nil {
			return nil, errors.Wrapf(err, "decompressing %s", name)
		}
	}
	s.logger.Debug("blob loaded", zap.String("name", p), zap.Int("bytes", len(data)))
	return data, nil
}

// Save implements Storage. The blob is written beside its final name and
// renamed into place so readers never observe a partial blob.
func (s *FSStore) Save(name string, data []byte) error {
	p, err := cleanName(name)
	if err != nil {
		return err
	}
	if dir := path.Dir(p); dir != "." {
		if err := s.fs.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrapf(err, "creating directory for %s", name)
		}
	}
	stored := data
	if s.enc != nil {
		stored = s.enc.EncodeAll(data, nil)
	}
	tmp := p + ".tmp"
	if err := afero.WriteFile(s.fs, tmp, stored, 0o644); err != nil {
		return errors.Wrapf(err, "writing %s", name)
	}
	if err := s.fs.Rename(tmp, p); err != nil {
		_ = s.fs.Remove(tmp)
		return errors.Wrapf(err, "saving %s", name)
	}
	s.logger.Debug("blob saved", zap.String("name", p),
		zap.Int("bytes", len(data)), zap.Int("stored", len(stored)))
	return nil
}

// Size implements Storage.
func (s *FSStore) Size(name string) (int64, error) {
	p, err := cleanName(name)
	if err != nil {
		return 0, err
	}
	fi, err := s.fs.Stat(p)
	if err != nil {
		if errors.Is(err, iofs.ErrNotExist) {
			return 0, errors.Wrapf(ErrNotFound, "%s", name)
		}
		return 0, errors.Wrapf(err, "stat %s", name)
	}
	if fi.IsDir() {
		return 0, errors.Wrapf(ErrNotFound, "%s is a directory", name)
	}
	return fi.Size(), nil
}

// Close releases the compression codecs.
func (s *FSStore) Close() error {
	if s.dec != nil {
		s.dec.Close()
	}
	if s.enc != nil {
		return s.enc.Close()
	}
	return nil
}

// LoadBuffer loads name into a fresh buffer with the read cursor at 0.
func LoadBuffer(s Storage, name string) (*buffer.Buffer, error) {
	data, err := s.Load(name)
	if err != nil {
		return nil, err
	}
	return buffer.FromBytes(data)
}

// SaveBuffer stores every written byte of buf under name. The read cursor
// is ignored.
func SaveBuffer(s Storage, name string, buf *buffer.Buffer) error {
	return s.Save(name, buf.Bytes())
}

func cleanName(name string) (string, error) {
	p := path.Clean(strings.ReplaceAll(name, "\\", "/"))
	p = strings.TrimPrefix(p, "/")
	if name == "" || p == "." || p == ".." || strings.HasPrefix(p, "../") {
		return "", errors.Wrapf(ErrInvalidName, "%q", name)
	}
	return p, nil
}
