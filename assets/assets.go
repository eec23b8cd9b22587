// Package assets resolves per-language pipeline resources (subword merge
// tables, sentencepiece models) from a local cache directory, downloading
// them on miss. Downloads go to a temporary file and are renamed into place
// atomically, guarded by a file lock so that several server processes sharing
// one cache directory do not download the same resource twice.
package assets

import (
	"io"
	"math/rand"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// DefaultDirCreationPerm is used when creating cache directories.
const DefaultDirCreationPerm = os.FileMode(0755)

// Store is a file cache keyed by resource name, backed by an HTTP base URL.
type Store struct {
	dir    string
	client *http.Client
}

// NewStore creates a Store over the given cache directory.
func NewStore(dir string) *Store {
	return &Store{dir: dir, client: http.DefaultClient}
}

// WithClient replaces the HTTP client used for downloads.
func (s *Store) WithClient(client *http.Client) *Store {
	s.client = client
	return s
}

// Path returns where the named resource lives (or would live) in the cache.
func (s *Store) Path(name string) string {
	return filepath.Join(s.dir, name)
}

// HasResource reports whether the named resource is already cached.
func (s *Store) HasResource(name string) bool {
	_, err := os.Stat(s.Path(name))
	return err == nil
}

// Resolve returns the local path of the named resource, downloading it from
// url first when it is not cached yet. A resource already present is trusted
// and returned immediately.
func (s *Store) Resolve(name, url string) (string, error) {
	filePath := s.Path(name)
	if s.HasResource(name) {
		return filePath, nil
	}

	if err := os.MkdirAll(filepath.Dir(filePath), DefaultDirCreationPerm); err != nil {
		return "", errors.Wrapf(err, "failed to create directory for resource %q", name)
	}

	lockPath := filePath + ".lock"
	var mainErr error
	errLock := execOnFileLock(lockPath, func() {
		if s.HasResource(name) {
			// Some concurrent other process already downloaded the resource.
			return
		}
		mainErr = s.download(url, filePath)
		if mainErr != nil {
			return
		}
		if err := os.Remove(lockPath); err != nil {
			klog.Warningf("error removing lock file %q: %+v", lockPath, err)
		}
	})
	if mainErr != nil {
		return "", mainErr
	}
	if errLock != nil {
		return "", errors.WithMessagef(errLock, "while locking %q to download %q", lockPath, url)
	}
	return filePath, nil
}

// download fetches url into filePath via a temporary file and atomic rename.
func (s *Store) download(url, filePath string) error {
	tmpPath := filePath + ".downloading"
	tmpFile, err := os.Create(tmpPath)
	if err != nil {
		return errors.Wrapf(err, "creating temporary file for download in %q", tmpPath)
	}
	var tmpFileClosed bool
	defer func() {
		// On any error path, drop the unfinished temporary file.
		if !tmpFileClosed {
			if err := tmpFile.Close(); err != nil {
				klog.Warningf("failed closing temporary file %q: %v", tmpPath, err)
			}
			if err := os.Remove(tmpPath); err != nil {
				klog.Warningf("failed removing temporary file %q: %v", tmpPath, err)
			}
		}
	}()

	resp, err := s.client.Get(url)
	if err != nil {
		return errors.Wrapf(err, "while downloading %q", url)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("downloading %q: unexpected status %s", url, resp.Status)
	}
	if _, err := io.Copy(tmpFile, resp.Body); err != nil {
		return errors.Wrapf(err, "while downloading %q to %q", url, tmpPath)
	}

	tmpFileClosed = true
	if err := tmpFile.Close(); err != nil {
		return errors.Wrapf(err, "failed to close temporary download file %q", tmpPath)
	}
	if err := os.Rename(tmpPath, filePath); err != nil {
		return errors.Wrapf(err, "failed to move downloaded file %q to %q", tmpPath, filePath)
	}
	klog.V(1).Infof("downloaded resource %q to %q", url, filePath)
	return nil
}

// execOnFileLock opens (or creates) lockPath, locks it and executes fn. When
// the lock is held elsewhere it polls with a 1 to 2 second period until the
// lock is acquired. The lock file is not removed here; fn may remove it when
// no further callers for the same lockPath are expected.
func execOnFileLock(lockPath string, fn func()) (err error) {
	fileLock := flock.New(lockPath)
	for {
		locked, err := fileLock.TryLock()
		if err != nil {
			return errors.Wrapf(err, "while trying to lock %q", lockPath)
		}
		if locked {
			break
		}
		time.Sleep(time.Millisecond * time.Duration(1000+rand.Intn(1000)))
	}

	// Unlock in a deferred function so it happens even if fn panics.
	defer func() {
		if unlockErr := fileLock.Unlock(); unlockErr != nil {
			if err == nil {
				err = errors.Wrapf(unlockErr, "unlocking file %q", lockPath)
			} else {
				klog.Warningf("error unlocking file %q: %v", lockPath, unlockErr)
			}
		}
	}()

	fn()
	return
}
