package storage

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"mime"
	"net/http"
	"os"
	"path/filepath"

	"ifcserver/config"
)

// StorageSpecificAPI is implemented by every backend. All other operations
// work on the local copy of a file, which is GetFullPath(path).
type StorageSpecificAPI interface {
	GetFullPath(path string) string
	EnsureDirExists(dir string) error
	// EnsureLocalFile makes the local copy available, e.g. downloads it from S3
	EnsureLocalFile(path string) error
	// ReleaseLocalFile drops a local copy that is not the primary one
	ReleaseLocalFile(path string)
	// UpdateRemoteFile uploads the local copy to the primary location
	UpdateRemoteFile(path, mimeType string) error
	DeleteRemoteFile(path string) error
}

type StorageAPI interface {
	StorageSpecificAPI

	Name() string
	GetSize(path string) int64
	GetFreeSpace() uint64
	Save(path string, reader io.Reader) (int64, error)
	Load(path string, writer io.Writer) (int64, error)
	Serve(path, downloadName string, request *http.Request, writer http.ResponseWriter)
	Delete(path string) error
}

type Storage struct {
	specifics StorageSpecificAPI
	name      string
	localDir  string // where local copies live, used for free space checks
}

var defaultStorage StorageAPI

// Init sets up the storage picked by config: S3 if S3_BUCKET is set, disk otherwise
func Init() {
	if config.S3_BUCKET != "" {
		s3Storage, err := NewS3Storage(S3Config{
			Bucket:    config.S3_BUCKET,
			Region:    config.S3_REGION,
			Endpoint:  config.S3_ENDPOINT,
			Prefix:    config.S3_PREFIX,
			AccessKey: config.S3_ACCESS_KEY,
			SecretKey: config.S3_SECRET_KEY,
			TmpDir:    config.TMP_DIR,
		})
		if err != nil {
			panic(err)
		}
		defaultStorage = s3Storage
	} else {
		diskStorage, err := NewDiskStorage(config.STORAGE_DIR)
		if err != nil {
			panic(err)
		}
		defaultStorage = diskStorage
	}
	log.Printf("Storage: %s", defaultStorage.Name())
}

func Default() StorageAPI {
	if defaultStorage == nil {
		panic("no storage available")
	}
	return defaultStorage
}

// Remove deletes both the primary and the local copy of a file
func Remove(s StorageAPI, path string) error {
	if err := s.DeleteRemoteFile(path); err != nil {
		return fmt.Errorf("delete remote %s: %w", path, err)
	}
	if err := s.Delete(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func (s *Storage) Name() string {
	return s.name
}

func (s *Storage) GetFreeSpace() uint64 {
	return freeSpace(s.localDir)
}

//
// NOTE: All the functions below work on a local file
//

func (s *Storage) GetSize(path string) int64 {
	fi, err := os.Stat(s.GetFullPath(path))
	if err != nil {
		return -1
	}
	return fi.Size()
}

func (s *Storage) Save(path string, reader io.Reader) (int64, error) {
	fileName := s.GetFullPath(path)
	if err := s.EnsureDirExists(filepath.Dir(fileName)); err != nil {
		return 0, err
	}
	file, err := os.Create(fileName)
	if err != nil {
		return 0, err
	}
	result, err := io.Copy(file, reader)
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	return result, err
}

func (s *Storage) Load(path string, writer io.Writer) (int64, error) {
	file, err := os.Open(s.GetFullPath(path))
	if err != nil {
		return 0, err
	}
	defer file.Close()
	return io.Copy(writer, file)
}

func (s *Storage) Serve(path, downloadName string, request *http.Request, writer http.ResponseWriter) {
	if downloadName != "" {
		writer.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": downloadName}))
	}
	http.ServeFile(writer, request, s.GetFullPath(path))
}

func (s *Storage) Delete(path string) error {
	return os.Remove(s.GetFullPath(path))
}

//
// Proxy methods
//

func (s *Storage) GetFullPath(path string) string {
	return s.specifics.GetFullPath(path)
}
func (s *Storage) EnsureDirExists(dir string) error {
	return s.specifics.EnsureDirExists(dir)
}
func (s *Storage) EnsureLocalFile(path string) error {
	return s.specifics.EnsureLocalFile(path)
}
func (s *Storage) ReleaseLocalFile(path string) {
	s.specifics.ReleaseLocalFile(path)
}
func (s *Storage) UpdateRemoteFile(path, mimeType string) error {
	return s.specifics.UpdateRemoteFile(path, mimeType)
}
func (s *Storage) DeleteRemoteFile(path string) error {
	return s.specifics.DeleteRemoteFile(path)
}
