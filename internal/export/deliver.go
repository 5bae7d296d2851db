/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	applog "canvasboard/internal/log"
)

// Sink is one delivery channel for a generated document.
type Sink interface {
	Deliver(ctx context.Context, doc Document) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, doc Document) error

func (f SinkFunc) Deliver(ctx context.Context, doc Document) error { return f(ctx, doc) }

// Deliver hands doc to every sink in order. A failing sink does not stop the
// others; all failures are returned joined.
func Deliver(ctx context.Context, doc Document, sinks ...Sink) error {
	l := applog.WithOperation(applog.WithComponent("export"), "deliver").With(
		slog.String("file", doc.Filename), slog.Int("bytes", len(doc.Body)))
	var errs []error
	for _, s := range sinks {
		if s == nil {
			continue
		}
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if err := s.Deliver(ctx, doc); err != nil {
			l.Warn("sink failed", slog.Any("err", err))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// FileSink writes the document into Dir (the download channel). Name, when
// set, replaces the document's filename; its extension follows the document's.
type FileSink struct {
	Dir  string
	Name string

	written string
}

func (s *FileSink) Deliver(_ context.Context, doc Document) error {
	name := doc.Filename
	if n := strings.TrimSpace(s.Name); n != "" {
		name = filepath.Base(n)
		if ext := filepath.Ext(doc.Filename); ext != "" {
			name = withExt(name, ext)
		}
	}
	if name == "" {
		name = DefaultFilename
	}
	path := filepath.Join(s.Dir, name)
	if s.Dir != "" {
		if err := os.MkdirAll(s.Dir, 0o755); err != nil {
			return fmt.Errorf("ensure export dir: %w", err)
		}
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".export-*")
	if err != nil {
		return fmt.Errorf("create temp export: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(doc.Body); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write export: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close export: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace export: %w", err)
	}
	s.written = path
	return nil
}

// Path returns the file written by the last delivery.
func (s *FileSink) Path() string { return s.written }

// WriterSink copies the document body to W.
type WriterSink struct{ W io.Writer }

func (s WriterSink) Deliver(_ context.Context, doc Document) error {
	_, err := s.W.Write(doc.Body)
	return err
}

// ViewerSink shows the document right away: it writes a temporary copy and
// hands it to Open, which defaults to the platform's file opener.
type ViewerSink struct {
	Open func(ctx context.Context, path string) error
	// Dir for the temporary copy; empty means the OS temp dir.
	Dir string
}

func (s ViewerSink) Deliver(ctx context.Context, doc Document) error {
	f, err := os.CreateTemp(s.Dir, "canvas-view-*"+filepath.Ext(doc.Filename))
	if err != nil {
		return fmt.Errorf("create view copy: %w", err)
	}
	if _, err := f.Write(doc.Body); err != nil {
		_ = f.Close()
		return fmt.Errorf("write view copy: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close view copy: %w", err)
	}
	open := s.Open
	if open == nil {
		open = OpenWithSystem
	}
	return open(ctx, f.Name())
}

// OpenWithSystem opens path with the desktop's default application.
func OpenWithSystem(ctx context.Context, path string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "windows":
		cmd = exec.CommandContext(ctx, "rundll32", "url.dll,FileProtocolHandler", path)
	case "darwin":
		cmd = exec.CommandContext(ctx, "open", path)
	default:
		cmd = exec.CommandContext(ctx, "xdg-open", path)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("open viewer: %w", err)
	}
	go func() { _ = cmd.Wait() }()
	return nil
}
