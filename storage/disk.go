package storage

import (
	"os"
	"path/filepath"
	"sync"
)

// DiskStorage keeps files under BasePath, the local copy is the primary one
type DiskStorage struct {
	Storage
	// BasePath is a directory (usually mount point of a disk) that is writable by the current process
	BasePath  string
	dirs      map[string]bool
	dirsMutex sync.Mutex
}

func NewDiskStorage(basePath string) (*DiskStorage, error) {
	if err := os.MkdirAll(basePath, 0777); err != nil {
		return nil, err
	}
	result := &DiskStorage{
		BasePath: basePath,
		Storage: Storage{
			name:     "disk " + basePath,
			localDir: basePath,
		},
		dirs: make(map[string]bool, 10),
	}
	result.specifics = result
	return result, nil
}

func (s *DiskStorage) GetFullPath(path string) string {
	return filepath.Join(s.BasePath, path)
}

func (s *DiskStorage) EnsureDirExists(dir string) error {
	s.dirsMutex.Lock()
	defer s.dirsMutex.Unlock()

	if ok := s.dirs[dir]; ok {
		return nil
	}
	if err := os.MkdirAll(dir, 0777); err != nil {
		return err
	}
	s.dirs[dir] = true
	return nil
}

func (s *DiskStorage) EnsureLocalFile(path string) error {
	_, err := os.Stat(s.GetFullPath(path))
	return err
}

func (s *DiskStorage) ReleaseLocalFile(path string) {}

func (s *DiskStorage) UpdateRemoteFile(path, mimeType string) error {
	return nil
}

func (s *DiskStorage) DeleteRemoteFile(path string) error {
	return nil
}
