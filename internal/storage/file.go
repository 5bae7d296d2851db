/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	applog "canvasboard/internal/log"

	"github.com/fsnotify/fsnotify"
)

// BackupsDirName holds timestamped copies of the slot file, next to it.
const BackupsDirName = "backups"

// DefaultMaxBackups is how many slot backups FileStore keeps.
const DefaultMaxBackups = 10

// FileStore keeps all keys in one JSON object file. Every Set rewrites the file
// through a temp file and rename, after copying the previous version into
// backups/. A file that fails to parse is recovered from the newest backup.
type FileStore struct {
	path       string
	MaxBackups int

	mu        sync.Mutex
	closed    bool
	lastWrite [sha256.Size]byte
}

// OpenFile prepares a file store at path. The file itself is created on first Set.
func OpenFile(path string) (*FileStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("slot path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create slot dir: %w", err)
	}
	return &FileStore{path: path, MaxBackups: DefaultMaxBackups}, nil
}

// Path returns the slot file path.
func (f *FileStore) Path() string { return f.path }

func (f *FileStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil, false, ErrClosed
	}
	m, err := f.read()
	if err != nil {
		return nil, false, err
	}
	v, ok := m[key]
	if !ok {
		return nil, false, nil
	}
	return []byte(v), true, nil
}

func (f *FileStore) Set(_ context.Context, key string, value []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrClosed
	}
	m, err := f.read()
	if err != nil {
		applog.WithComponent("storage").Warn("slot file unreadable, starting fresh", slog.String("path", f.path), slog.Any("err", err))
		m = map[string]string{}
	}
	m[key] = string(value)
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal slot: %w", err)
	}
	data = append(data, '\n')

	if _, statErr := os.Stat(f.path); statErr == nil {
		if err := f.backup(); err != nil {
			return fmt.Errorf("backup slot: %w", err)
		}
	}

	dir := filepath.Dir(f.path)
	temp := filepath.Join(dir, fmt.Sprintf(".%s.tmp-%d-%d", filepath.Base(f.path), os.Getpid(), rand.Int()))
	if err := writeFileSync(temp, data); err != nil {
		_ = os.Remove(temp)
		return fmt.Errorf("write temp slot: %w", err)
	}
	if err := os.Rename(temp, f.path); err != nil {
		_ = os.Remove(temp)
		return fmt.Errorf("replace slot: %w", err)
	}
	f.lastWrite = sha256.Sum256(data)
	return nil
}

func (f *FileStore) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}

func (f *FileStore) read() (map[string]string, error) {
	b, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read slot: %w", err)
	}
	m, perr := parseSlot(b)
	if perr == nil {
		return m, nil
	}
	m, berr := f.latestBackup()
	if berr != nil {
		return nil, fmt.Errorf("parse slot: %w; backup attempt: %v", perr, berr)
	}
	applog.WithComponent("storage").Warn("slot file corrupt, recovered from backup", slog.String("path", f.path))
	return m, nil
}

func parseSlot(b []byte) (map[string]string, error) {
	m := map[string]string{}
	if len(strings.TrimSpace(string(b))) == 0 {
		return m, nil
	}
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return m, nil
}

func (f *FileStore) backupDir() string { return filepath.Join(filepath.Dir(f.path), BackupsDirName) }

func (f *FileStore) backups() ([]string, error) {
	ents, err := os.ReadDir(f.backupDir())
	if err != nil {
		return nil, err
	}
	prefix := filepath.Base(f.path) + "."
	var out []string
	for _, e := range ents {
		name := e.Name()
		if strings.HasPrefix(name, prefix) && strings.HasSuffix(name, ".bak") {
			out = append(out, filepath.Join(f.backupDir(), name))
		}
	}
	sort.Strings(out) // timestamp in name yields lexicographic order
	return out, nil
}

// backup copies the current slot file into backups/ and prunes old copies.
func (f *FileStore) backup() error {
	stamp := time.Now().Format("20060102-150405.000000")
	bpath := filepath.Join(f.backupDir(), fmt.Sprintf("%s.%s.bak", filepath.Base(f.path), stamp))
	if err := copyFile(f.path, bpath); err != nil {
		return err
	}
	keep := f.MaxBackups
	if keep <= 0 {
		return nil
	}
	all, err := f.backups()
	if err != nil {
		return nil
	}
	for len(all) > keep {
		_ = os.Remove(all[0])
		all = all[1:]
	}
	return nil
}

func (f *FileStore) latestBackup() (map[string]string, error) {
	all, err := f.backups()
	if err != nil {
		return nil, fmt.Errorf("read backups dir: %w", err)
	}
	for i := len(all) - 1; i >= 0; i-- {
		b, err := os.ReadFile(all[i])
		if err != nil {
			continue
		}
		if m, err := parseSlot(b); err == nil {
			return m, nil
		}
	}
	return nil, errors.New("no usable backups found")
}

// Watch calls fn when the slot file is changed by another process. Events are
// debounced; writes made through this store do not trigger fn. The returned
// stop function (also triggered by ctx) ends the watch.
func (f *FileStore) Watch(ctx context.Context, fn func()) (stop func(), err error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	// watch the directory: rename-over replaces the file's inode
	if err := watcher.Add(filepath.Dir(f.path)); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("watch slot dir: %w", err)
	}
	l := applog.WithOperation(applog.WithComponent("storage"), "watch").With(slog.String("path", f.path))
	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	target := filepath.Clean(f.path)

	go func() {
		defer close(done)
		defer watcher.Close()
		var timer *time.Timer
		defer func() {
			if timer != nil {
				timer.Stop()
			}
		}()
		fire := func() {
			if runCtx.Err() != nil || !f.changedExternally() {
				return
			}
			l.Debug("slot changed on disk")
			fn()
		}
		for {
			select {
			case <-runCtx.Done():
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != target || ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				if timer != nil {
					timer.Stop()
				}
				timer = time.AfterFunc(50*time.Millisecond, fire)
			case werr, ok := <-watcher.Errors:
				if !ok {
					return
				}
				l.Error("fsnotify error", slog.Any("err", werr))
			}
		}
	}()
	return func() {
		cancel()
		<-done
	}, nil
}

func (f *FileStore) changedExternally() bool {
	b, err := os.ReadFile(f.path)
	if err != nil {
		return false
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return sha256.Sum256(b) != f.lastWrite
}

// writeFileSync writes data to a file, ensures it is flushed to disk.
func writeFileSync(path string, data []byte) (err error) {
	fh, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := fh.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := fh.Write(data); err != nil {
		return err
	}
	return fh.Sync()
}

// copyFile copies a file from src to dst (overwrites dst if exists).
func copyFile(src, dst string) (err error) {
	sf, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := sf.Close(); err == nil {
			err = cerr
		}
	}()
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	df, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := df.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := io.Copy(df, sf); err != nil {
		return err
	}
	return df.Sync()
}
