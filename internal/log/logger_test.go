/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package log

import (
	"bufio"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// TestInitAndStructuredLoggingToFile verifies that Init with a file handler writes JSON logs
// and that static and contextual attributes are present.
func TestInitAndStructuredLoggingToFile(t *testing.T) {
	fpath := filepath.Join(t.TempDir(), "canvasboard.json")

	Init(Options{Level: "debug", Format: "json", File: fpath, Writer: &strings.Builder{}})
	t.Cleanup(func() { _ = Close() })

	l := WithComponent("board")
	l = WithOperation(l, "drop")
	ctx := ContextWith(context.Background(), slog.String("session", "s1"))
	l.InfoContext(ctx, "item created", slog.String("kind", "note"))

	if err := Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	b, err := os.ReadFile(fpath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}

	scanner := bufio.NewScanner(strings.NewReader(string(b)))
	var last string
	for scanner.Scan() {
		if s := strings.TrimSpace(scanner.Text()); s != "" {
			last = s
		}
	}
	if last == "" {
		t.Fatalf("no log lines found")
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(last), &m); err != nil {
		t.Fatalf("unmarshal json log: %v", err)
	}

	if m["app"] != "canvasboard" {
		t.Fatalf("missing app attr: %v", m["app"])
	}
	if _, ok := m["ver"].(string); !ok {
		t.Fatalf("missing ver attr")
	}
	if m["component"] != "board" {
		t.Fatalf("component attr mismatch: %v", m["component"])
	}
	if m["op"] != "drop" {
		t.Fatalf("op attr mismatch: %v", m["op"])
	}
	if m["session"] != "s1" {
		t.Fatalf("context attr missing: %v", m["session"])
	}
	if m["msg"] != "item created" {
		t.Fatalf("msg mismatch: %v", m["msg"])
	}
}

func TestConsoleWriterReceivesPrettyLine(t *testing.T) {
	var sb strings.Builder
	Init(Options{Level: "info", Writer: &sb})
	t.Cleanup(func() { Init(Options{Writer: &strings.Builder{}}) })

	WithComponent("persist").Warn("snapshot ignored", slog.String("reason", "bad json"))
	out := sb.String()
	for _, want := range []string{"WRN", "snapshot ignored", "component=persist", "reason=bad json", "app=canvasboard"} {
		if !strings.Contains(out, want) {
			t.Fatalf("console output %q missing %q", out, want)
		}
	}

	sb.Reset()
	WithComponent("persist").Debug("hidden")
	if sb.Len() != 0 {
		t.Fatalf("debug record should be filtered at info level: %q", sb.String())
	}
}

func TestContextWithAccumulates(t *testing.T) {
	ctx := ContextWith(context.Background(), slog.Int("a", 1))
	ctx = ContextWith(ctx, slog.Int("b", 2))
	attrs := attrsFromContext(ctx)
	if len(attrs) != 2 || attrs[0].Key != "a" || attrs[1].Key != "b" {
		t.Fatalf("unexpected attrs: %v", attrs)
	}
	if attrsFromContext(context.Background()) != nil {
		t.Fatalf("empty context should carry no attrs")
	}
}
