//go:build fyne && cgo

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package ui

import (
	"context"
	"fmt"
	"image/color"
	"io"
	"log/slog"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/driver/desktop"
	fstorage "fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/widget"

	"canvasboard/internal/config"
	"canvasboard/internal/crash"
	"canvasboard/internal/drag"
	"canvasboard/internal/editor"
	"canvasboard/internal/export"
	applog "canvasboard/internal/log"
	"canvasboard/internal/version"
)

var imageExts = []string{".png", ".jpg", ".jpeg", ".gif", ".webp", ".bmp"}

// Run starts the desktop editor and blocks until its window is closed.
func Run(cfg config.AppConfig) error {
	l := applog.WithComponent("ui")
	l.Info("starting UI", slog.String("version", version.String()))

	st, err := editor.New(editor.Options{Config: cfg})
	if err != nil {
		return fmt.Errorf("open editor: %w", err)
	}
	defer st.Close()
	defer crash.Recover(st)

	a := app.NewWithID("canvasboard")
	w := a.NewWindow("Canvasboard")
	prefs := a.Preferences()
	winW, winH := clampWindow(prefs.IntWithFallback("window.width", 1200), prefs.IntWithFallback("window.height", 800))
	w.Resize(fyne.NewSize(float32(winW), float32(winH)))

	status := widget.NewLabel("Ready")
	sf := &surface{}

	view := newBoardView(st.Board(), sf, func(id string) { editItem(w, st, sf, id) })
	st.Board().SetRenderer(view)
	if err := st.Init(context.Background()); err != nil {
		return err
	}
	st.Bind(sf)

	drop := func(dataType string, abs fyne.Position) {
		view.syncOrigin()
		sf.drop(dataType, drag.Point{X: float64(abs.X), Y: float64(abs.Y)})
	}
	palette := container.NewHBox(
		newPaletteChip("Text", "text", drop),
		newPaletteChip("Note", "note", drop),
	)

	// report shows done, or the handler failure fn caused
	report := func(done string, fn func()) {
		if err := sf.run(fn); err != nil {
			status.SetText("Failed: " + err.Error())
			return
		}
		status.SetText(done)
	}

	readImage := func(title string, apply func([]byte)) {
		open := dialog.NewFileOpen(func(rc fyne.URIReadCloser, err error) {
			if err != nil || rc == nil {
				return
			}
			defer rc.Close()
			data, err := io.ReadAll(rc)
			if err != nil {
				l.Warn("read image failed", slog.Any("err", err))
				status.SetText("Could not read " + rc.URI().Name())
				return
			}
			report(title+": "+rc.URI().Name(), func() { apply(data) })
		}, w)
		open.SetFilter(fstorage.NewExtensionFileFilter(imageExts))
		open.Show()
	}

	imageBtn := widget.NewButton("Image…", func() {
		readImage("Image added", func(data []byte) { sf.upload(data) })
	})
	bgColorBtn := widget.NewButton("Background color", func() {
		picker := dialog.NewColorPicker("Background", "Pick a board color", func(c color.Color) {
			sf.bgColor(hexColor(c))
		}, w)
		picker.Advanced = true
		picker.Show()
	})
	bgImageBtn := widget.NewButton("Background image…", func() {
		readImage("Background", func(data []byte) { sf.bgImage(data) })
	})

	save := func() { report("Saved", sf.save) }

	formats := widget.NewSelect([]string{string(export.FormatHTML), string(export.FormatPDF), string(export.FormatPNG)}, nil)
	formats.SetSelected(string(export.FormatHTML))
	exportBtn := widget.NewButton("Export", func() {
		format := formats.Selected
		report("Exported "+format, func() { sf.export(format) })
	})

	toolbar := container.NewHBox(
		palette,
		widget.NewSeparator(),
		imageBtn, bgColorBtn, bgImageBtn,
		widget.NewSeparator(),
		widget.NewButton("Save", save),
		widget.NewButton("Load", func() { report("Loaded", sf.load) }),
		widget.NewButton("Clear", func() {
			st.Clear()
			status.SetText("Cleared")
		}),
		widget.NewSeparator(),
		formats, exportBtn,
	)

	c := w.Canvas()
	c.AddShortcut(&desktop.CustomShortcut{KeyName: fyne.KeyS, Modifier: fyne.KeyModifierShortcutDefault}, func(fyne.Shortcut) { save() })

	w.SetContent(container.NewBorder(toolbar, status, nil, nil, container.NewScroll(container.NewCenter(view))))

	w.SetCloseIntercept(func() {
		sz := w.Canvas().Size()
		prefs.SetInt("window.width", int(sz.Width))
		prefs.SetInt("window.height", int(sz.Height))
		w.Close()
	})

	w.ShowAndRun()
	l.Info("UI closed")
	return nil
}

// editItem opens the content editor for a text or note. The item holds focus
// while the dialog is open so it cannot be dragged.
func editItem(w fyne.Window, st *editor.State, sf *surface, id string) {
	it, err := st.Board().Find(id)
	if err != nil {
		return
	}
	entry := widget.NewMultiLineEntry()
	entry.SetText(it.Content())
	entry.Wrapping = fyne.TextWrapWord
	sf.focus(id, true)
	d := dialog.NewCustomConfirm("Edit "+it.Kind().String(), "Apply", "Cancel", entry, func(ok bool) {
		if ok {
			sf.edit(id, entry.Text)
		}
		sf.focus(id, false)
	}, w)
	d.Resize(fyne.NewSize(360, 220))
	d.Show()
}
