package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"papergraph/config"
	"papergraph/logger"

	"github.com/google/uuid"
	storage_go "github.com/supabase-community/storage-go"
	"github.com/supabase-community/supabase-go"
)

var ErrInvalidKey = errors.New("storage: invalid object key")

// ObjectStore keeps uploaded PDFs. Put returns the URL the viewer should load.
type ObjectStore interface {
	Put(ctx context.Context, key, contentType string, r io.Reader) (string, error)
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

// ObjectKey builds "<user>/<uuid>-<file>" so keys never collide.
func ObjectKey(userID, fileName string) string {
	return path.Join(userID, uuid.NewString()+"-"+fileName)
}

// New picks Supabase Storage when credentials are configured and the local
// directory store otherwise.
func New(conf config.Configuration, log *logger.Logger) (ObjectStore, error) {
	if conf.Supabase.URL != "" && conf.Supabase.ServiceKey != "" {
		client, err := supabase.NewClient(conf.Supabase.URL, conf.Supabase.ServiceKey, nil)
		if err != nil {
			return nil, fmt.Errorf("storage: supabase client: %w", err)
		}
		log.Info("object storage: supabase", "bucket", conf.Supabase.Bucket)
		return &Supabase{client: client.Storage, bucket: conf.Supabase.Bucket}, nil
	}
	log.Info("object storage: local", "dir", conf.Storage.LocalDir)
	return NewLocal(conf.Storage.LocalDir, conf.Storage.PublicBaseURL)
}

type Supabase struct {
	client *storage_go.Client
	bucket string
}

func (s *Supabase) Put(_ context.Context, key, contentType string, r io.Reader) (string, error) {
	upsert := false
	if _, err := s.client.UploadFile(s.bucket, key, r, storage_go.FileOptions{
		ContentType: &contentType,
		Upsert:      &upsert,
	}); err != nil {
		return "", fmt.Errorf("storage: upload %s: %w", key, err)
	}
	return s.client.GetPublicUrl(s.bucket, key).SignedURL, nil
}

func (s *Supabase) Get(_ context.Context, key string) ([]byte, error) {
	b, err := s.client.DownloadFile(s.bucket, key)
	if err != nil {
		return nil, fmt.Errorf("storage: download %s: %w", key, err)
	}
	return b, nil
}

func (s *Supabase) Delete(_ context.Context, key string) error {
	if _, err := s.client.RemoveFile(s.bucket, []string{key}); err != nil {
		return fmt.Errorf("storage: remove %s: %w", key, err)
	}
	return nil
}

// Local writes objects below Dir; BaseURL is where the router serves them.
type Local struct {
	Dir     string
	BaseURL string
}

func NewLocal(dir, baseURL string) (*Local, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: create %s: %w", dir, err)
	}
	return &Local{Dir: dir, BaseURL: strings.TrimRight(baseURL, "/")}, nil
}

func (l *Local) resolve(key string) (string, error) {
	clean := path.Clean("/" + key)
	if key == "" || clean == "/" || strings.Contains(key, "..") {
		return "", ErrInvalidKey
	}
	return filepath.Join(l.Dir, filepath.FromSlash(clean)), nil
}

func (l *Local) Put(ctx context.Context, key, _ string, r io.Reader) (string, error) {
	dst, err := l.resolve(key)
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", err
	}
	f, err := os.Create(dst)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(dst)
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", err
	}

	segments := strings.Split(key, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return l.BaseURL + "/" + strings.Join(segments, "/"), nil
}

func (l *Local) Get(_ context.Context, key string) ([]byte, error) {
	src, err := l.resolve(key)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(src)
}

func (l *Local) Delete(_ context.Context, key string) error {
	dst, err := l.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(dst); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
