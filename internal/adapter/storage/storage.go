package storage

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/afero"
	"github.com/zeebo/blake3"
	"go.uber.org/zap"
)

var (
	ErrEmptyFilename = errors.New("filename is empty")
	ErrFileTooLarge  = errors.New("file exceeds the maximum upload size")
	ErrInvalidPath   = errors.New("invalid document path")
)

// StoredDocument 已保存的附件
type StoredDocument struct {
	Path   string // 相对 media root 的路径
	Digest string // blake3 十六进制
	Size   int64
}

// DocumentStore 资源申请附件存储
type DocumentStore interface {
	Save(projectID int64, filename string, r io.Reader) (*StoredDocument, error)
	Open(relPath string) (afero.File, error)
	Delete(relPath string) error
}

type fsStore struct {
	fs      afero.Fs
	maxSize int64
	logger  *zap.Logger
}

// NewDocumentStore 以 root 为根目录的附件存储
func NewDocumentStore(root string, maxSize int64, logger *zap.Logger) (DocumentStore, error) {
	base := afero.NewOsFs()
	if err := base.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("创建附件目录失败: %w", err)
	}
	return NewFsDocumentStore(afero.NewBasePathFs(base, root), maxSize, logger), nil
}

// NewFsDocumentStore 指定文件系统, 测试中使用内存文件系统
func NewFsDocumentStore(fs afero.Fs, maxSize int64, logger *zap.Logger) DocumentStore {
	return &fsStore{fs: fs, maxSize: maxSize, logger: logger}
}

// CleanFilename 去掉目录部分与首尾空白
func CleanFilename(filename string) (string, error) {
	filename = strings.ReplaceAll(filename, `\`, "/")
	filename = path.Base(filename)
	filename = strings.TrimSpace(filename)
	if filename == "" || filename == "." || filename == "/" || filename == ".." {
		return "", ErrEmptyFilename
	}
	return filename, nil
}

func (s *fsStore) Save(projectID int64, filename string, r io.Reader) (*StoredDocument, error) {
	name, err := CleanFilename(filename)
	if err != nil {
		return nil, err
	}

	dir := path.Join("allocation_documents", fmt.Sprint(projectID))
	if err := s.fs.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("创建目录失败: %w", err)
	}
	rel := path.Join(dir, uuid.NewString()[:8]+"_"+name)

	f, err := s.fs.OpenFile(rel, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("创建文件失败: %w", err)
	}

	hasher := blake3.New()
	src := r
	if s.maxSize > 0 {
		src = io.LimitReader(r, s.maxSize+1)
	}
	size, err := io.Copy(io.MultiWriter(f, hasher), src)
	closeErr := f.Close()
	if err == nil {
		err = closeErr
	}
	if err == nil && s.maxSize > 0 && size > s.maxSize {
		err = ErrFileTooLarge
	}
	if err != nil {
		_ = s.fs.Remove(rel)
		return nil, err
	}

	doc := &StoredDocument{Path: rel, Digest: hex.EncodeToString(hasher.Sum(nil)), Size: size}
	s.logger.Info("附件已保存", zap.String("path", rel), zap.Int64("size", size), zap.String("digest", doc.Digest))
	return doc, nil
}

func (s *fsStore) Open(relPath string) (afero.File, error) {
	clean, err := s.clean(relPath)
	if err != nil {
		return nil, err
	}
	return s.fs.Open(clean)
}

func (s *fsStore) Delete(relPath string) error {
	clean, err := s.clean(relPath)
	if err != nil {
		return err
	}
	if err := s.fs.Remove(clean); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// clean 拒绝越出根目录的路径
func (s *fsStore) clean(relPath string) (string, error) {
	clean := path.Clean("/" + filepath.ToSlash(relPath))[1:]
	if clean == "" || clean != filepath.ToSlash(relPath) {
		return "", ErrInvalidPath
	}
	return clean, nil
}
