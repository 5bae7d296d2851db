/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package export renders a board scene into standalone documents and delivers
// them. A document is generated once per export; every delivery channel (the
// system viewer, a download file, an HTTP response) receives the same bytes.
//
// HTML is the primary format: a self-contained page with the surface as a
// sized container and one absolutely positioned element per item, text items
// editable again. PDF and PNG renderings of the same scene are also available.
package export

import (
	"fmt"
	"path/filepath"
	"strings"

	"canvasboard/internal/board"
)

// DefaultFilename is the download name of an HTML export.
const DefaultFilename = "canvas.html"

// Format selects an exporter.
type Format string

const (
	FormatHTML Format = "html"
	FormatPDF  Format = "pdf"
	FormatPNG  Format = "png"
)

// ParseFormat accepts html, pdf or png (any case); empty means html.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatHTML, nil
	case FormatHTML, FormatPDF, FormatPNG:
		return f, nil
	}
	return "", fmt.Errorf("unknown export format %q", s)
}

// Document is one generated export.
type Document struct {
	Filename    string
	ContentType string
	Body        []byte
}

// Render produces a document for scene in format. A non-empty filename
// replaces the default one; its extension is adjusted to the format.
func Render(scene board.Scene, format Format, filename string) (Document, error) {
	var (
		doc Document
		err error
	)
	switch format {
	case FormatHTML, "":
		doc, err = HTML(scene)
	case FormatPDF:
		doc, err = PDF(scene)
	case FormatPNG:
		doc, err = PNG(scene)
	default:
		return Document{}, fmt.Errorf("unknown export format %q", format)
	}
	if err != nil {
		return Document{}, err
	}
	if name := strings.TrimSpace(filename); name != "" {
		doc.Filename = withExt(filepath.Base(name), filepath.Ext(doc.Filename))
	}
	return doc, nil
}

func withExt(name, ext string) string {
	return strings.TrimSuffix(name, filepath.Ext(name)) + ext
}
