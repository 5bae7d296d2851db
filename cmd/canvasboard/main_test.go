/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"bytes"
	"encoding/json"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"canvasboard/internal/config"
)

func setupHome(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv(config.EnvConfigDir, dir)
	t.Setenv(config.EnvLogLevel, "error")
	t.Setenv(config.EnvExportOpen, "0")
	return dir
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return runWithInput(t, "", args...)
}

func runWithInput(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := run(t, args...)
	require.NoError(t, err, "canvasboard %s", strings.Join(args, " "))
	return out
}

func TestVersion(t *testing.T) {
	setupHome(t)
	assert.Contains(t, mustRun(t, "version"), "Canvasboard")
}

func TestAddListShowClear(t *testing.T) {
	dir := setupHome(t)

	assert.Contains(t, mustRun(t, "add", "note", "Buy milk", "--left", "40px", "--top", "60px"), "note at 40px, 60px")
	assert.Contains(t, mustRun(t, "drop", "text", "--x", "10", "--y", "20"), "text at 10px, 20px")
	assert.Contains(t, mustRun(t, "drop", "sticker"), "Nothing dropped")
	assert.FileExists(t, filepath.Join(dir, "canvas.json"))

	list := mustRun(t, "list")
	lines := strings.Split(strings.TrimSpace(list), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[1], "Buy milk")
	assert.Contains(t, lines[2], "Editable Text")

	mustRun(t, "edit", "1", "Hello")
	var recs []map[string]any
	require.NoError(t, json.Unmarshal([]byte(mustRun(t, "show")), &recs))
	require.Len(t, recs, 2)
	assert.Equal(t, "note", recs[0]["kind"])
	assert.Equal(t, "Hello", recs[1]["content"])
	assert.Equal(t, "20px", recs[1]["top"])

	assert.Contains(t, mustRun(t, "clear"), "Removed 2 item(s)")
	assert.Len(t, strings.Split(strings.TrimSpace(mustRun(t, "list")), "\n"), 1)
}

func TestAddRejectsBadInput(t *testing.T) {
	setupHome(t)
	_, err := run(t, "add", "sticker", "x")
	assert.Error(t, err)
	_, err = run(t, "add", "note", "x", "--left", "ten")
	assert.Error(t, err)
	_, err = run(t, "add", "image")
	assert.Error(t, err)
	_, err = run(t, "edit", "5", "x")
	assert.Error(t, err)
}

func TestImageUpload(t *testing.T) {
	dir := setupHome(t)
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 3, 2))))
	file := filepath.Join(dir, "pic.png")
	require.NoError(t, os.WriteFile(file, buf.Bytes(), 0o600))

	assert.Contains(t, mustRun(t, "image", file), "Added image")
	assert.Contains(t, mustRun(t, "list"), "(png 3x2)")

	empty := filepath.Join(dir, "empty.png")
	require.NoError(t, os.WriteFile(empty, nil, 0o600))
	assert.Contains(t, mustRun(t, "image", empty), "nothing added")
}

func TestExport(t *testing.T) {
	dir := setupHome(t)
	mustRun(t, "add", "note", "Buy milk", "--left", "40px", "--top", "60px")

	out := filepath.Join(dir, "out")
	assert.Contains(t, mustRun(t, "export", "--out", out, "--bg-color", "#ffcc00"), "canvas.html")
	page, err := os.ReadFile(filepath.Join(out, "canvas.html"))
	require.NoError(t, err)
	assert.Contains(t, string(page), "Buy milk")
	assert.Contains(t, string(page), "#ffcc00")

	mustRun(t, "export", "--out", out, "--format", "png")
	assert.FileExists(t, filepath.Join(out, "canvas.png"))
	assert.Contains(t, mustRun(t, "export", "--out", out, "--format", "pdf", "--name", "board"), "board.pdf")
	assert.FileExists(t, filepath.Join(out, "board.pdf"))

	pdf := mustRun(t, "export", "--stdout", "--format", "pdf")
	assert.True(t, strings.HasPrefix(pdf, "%PDF"))

	_, err = run(t, "export", "--format", "svg")
	assert.Error(t, err)
}
