// Package fsutil holds the small set of filesystem helpers the job
// store builds on: directory existence checks and a write-temp-then-
// rename primitive that every durable write in this module goes
// through, so a reader can never observe a torn or partially written
// file (spec invariant: a record is never partially visible).
package fsutil

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// IsDirExist returns true if path exists and is a directory. It returns
// an error if path exists but is not a directory, or is inaccessible.
func IsDirExist(dirPath string) (bool, error) {
	if dirPath == "" {
		return false, nil
	}
	fi, err := os.Stat(dirPath)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, errors.Wrapf(err, "unable to access directory: %s", dirPath)
	}
	if !fi.IsDir() {
		return false, errors.Errorf("expected a directory: %s", dirPath)
	}
	return true, nil
}

// EnsureDir creates dirPath (and parents) if it does not already exist.
func EnsureDir(dirPath string) error {
	ok, err := IsDirExist(dirPath)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}
	return errors.Wrapf(os.MkdirAll(dirPath, 0755), "unable to create directory: %s", dirPath)
}

// WriteFileAtomic writes data to a temp file in the same directory as
// finalPath, fdatasyncs it, then renames it over finalPath. The temp name
// includes a random UUID suffix so two concurrent writers targeting the
// same finalPath (e.g. a submit retry racing a scheduler rewrite) never
// collide on the temp name itself.
func WriteFileAtomic(finalPath string, data []byte) error {
	dir := filepath.Dir(finalPath)
	tmpPath := filepath.Join(dir, filepath.Base(finalPath)+".tmp-"+uuid.NewString())

	f, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return errors.Wrapf(err, "create temp file: %s", tmpPath)
	}

	if _, err = f.Write(data); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return errors.Wrapf(err, "write temp file: %s", tmpPath)
	}

	// best effort durability; a failure here does not make the write
	// incorrect, only less durable against a concurrent power loss
	_ = unix.Fdatasync(int(f.Fd()))

	if err = f.Close(); err != nil {
		os.Remove(tmpPath)
		return errors.Wrapf(err, "close temp file: %s", tmpPath)
	}

	if err = os.Rename(tmpPath, finalPath); err != nil {
		os.Remove(tmpPath)
		return errors.Wrapf(err, "rename %s to %s", tmpPath, finalPath)
	}
	return nil
}

// WriteJSONAtomic pretty-prints src as two-space-indented JSON and writes
// it atomically to jsonPath.
func WriteJSONAtomic(jsonPath string, src interface{}) error {
	data, err := json.MarshalIndent(src, "", "  ")
	if err != nil {
		return errors.Wrap(err, "json marshal")
	}
	return WriteFileAtomic(jsonPath, data)
}

// ReadJSON decodes the JSON file at jsonPath into dst. It returns
// ok=false (no error) if the file does not exist.
func ReadJSON(jsonPath string, dst interface{}) (ok bool, err error) {
	data, err := os.ReadFile(jsonPath)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, errors.Wrapf(err, "read %s", jsonPath)
	}
	if len(data) == 0 {
		return false, nil
	}
	if err = json.Unmarshal(data, dst); err != nil {
		return false, errors.Wrapf(err, "decode json %s", jsonPath)
	}
	return true, nil
}

// FileExist reports whether path exists (any type).
func FileExist(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// RemoveStaleTemp deletes every file in dir whose name contains ".tmp"
// (WriteFileAtomic's "*.tmp-<uuid>" temp files among them), i.e. files
// left behind by a writer that crashed between create and rename.
func RemoveStaleTemp(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.Wrapf(err, "read dir %s", dir)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		for i := 0; i+4 <= len(name); i++ {
			if name[i:i+4] == ".tmp" {
				_ = os.Remove(filepath.Join(dir, name))
				break
			}
		}
	}
	return nil
}
