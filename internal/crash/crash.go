/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package crash turns a host panic into a report file plus an autosave of the
// board layout.
package crash

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"time"

	applog "canvasboard/internal/log"
	"canvasboard/internal/storage"
	"canvasboard/internal/version"
)

// exitFn is used to allow testing of Recover without terminating the test process.
var exitFn = os.Exit

// Snapshotter is the editor state as seen by Recover.
type Snapshotter interface {
	// Snapshot encodes the current layout.
	Snapshot() ([]byte, error)
	// DataDir is where the slot lives; "" means the OS temp dir.
	DataDir() string
}

// Recover captures a panic, logs it with its stack, writes a report file and
// an autosave of the layout (if st is not nil), then exits with code 2.
//
// Usage: defer crash.Recover(state)
func Recover(st Snapshotter) {
	if r := recover(); r != nil {
		handle(st, r, debug.Stack())
	}
}

func handle(st Snapshotter, r any, stack []byte) {
	l := applog.WithComponent("crash")
	l.Error("panic recovered", slog.Any("panic", r), slog.String("stack", string(stack)))

	reportPath, err := writeReport(st, r, stack)
	if err != nil {
		l.Error("crash report failed", slog.Any("err", err))
	}
	if st != nil {
		if path, err := autosave(st); err != nil {
			l.Error("autosave crash snapshot failed", slog.Any("err", err))
		} else {
			l.Info("autosave crash snapshot written", slog.String("path", path))
		}
	}

	if _, err := fmt.Fprintf(os.Stderr, "A fatal error occurred. A crash report was saved to: %s\n", reportPath); err != nil {
		l.Error("failed to write crash message to stderr", slog.Any("err", err))
	}
	if _, err := fmt.Fprintf(os.Stderr, "Version: %s\nOS/Arch: %s/%s\n", version.String(), runtime.GOOS, runtime.GOARCH); err != nil {
		l.Error("failed to write version info to stderr", slog.Any("err", err))
	}
	exitFn(2)
}

// reportDir is the backups dir next to the slot, or the OS temp dir.
func reportDir(st Snapshotter) string {
	if st != nil {
		if root := st.DataDir(); root != "" {
			dir := filepath.Join(root, storage.BackupsDirName)
			if err := os.MkdirAll(dir, 0o755); err == nil {
				return dir
			}
		}
	}
	return os.TempDir()
}

func writeReport(st Snapshotter, panicVal any, stack []byte) (string, error) {
	stamp := time.Now().Format("20060102-150405")
	path := filepath.Join(reportDir(st), fmt.Sprintf("crash-%s.log", stamp))

	var buf bytes.Buffer
	_, _ = fmt.Fprintf(&buf, "Canvasboard Crash Report\n")
	_, _ = fmt.Fprintf(&buf, "Timestamp: %s\n", time.Now().Format(time.RFC3339))
	_, _ = fmt.Fprintf(&buf, "Version: %s\n", version.String())
	_, _ = fmt.Fprintf(&buf, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	if st != nil && st.DataDir() != "" {
		_, _ = fmt.Fprintf(&buf, "DataDir: %s\n", st.DataDir())
	}
	_, _ = fmt.Fprintf(&buf, "\nPanic: %v\n\n", panicVal)
	_, _ = fmt.Fprintf(&buf, "Stack:\n%s\n", string(stack))

	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return path, err
	}
	defer func() {
		if err := f.Close(); err != nil {
			applog.WithComponent("crash").Error("failed to close crash report file", slog.Any("err", err), slog.String("path", path))
		}
	}()
	if _, err := f.Write(buf.Bytes()); err != nil {
		return path, err
	}
	_ = f.Sync()
	return path, nil
}

// autosave writes the layout next to the report. The file holds the same JSON
// array as the slot value.
func autosave(st Snapshotter) (string, error) {
	data, err := st.Snapshot()
	if err != nil {
		return "", fmt.Errorf("encode snapshot: %w", err)
	}
	stamp := time.Now().Format("20060102-150405")
	path := filepath.Join(reportDir(st), fmt.Sprintf("autosave-%s.json", stamp))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write autosave: %w", err)
	}
	return path, nil
}
