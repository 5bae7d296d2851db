/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"bytes"
	"fmt"
	"strings"

	"canvasboard/internal/board"
	"canvasboard/internal/item"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// PageTitle is the <title> of exported pages.
const PageTitle = "Exported Canvas"

const pageCSS = `
body { margin: 0; padding: 0; font-family: Arial, sans-serif; }
.canvas {
  position: relative;
  background-size: cover;
  border: 2px dashed #ccc;
}
.canvas-item {
  position: absolute;
  word-wrap: break-word;
  border: 1px solid black;
  background-color: rgba(255, 255, 255, 0.8);
  max-width: 150px;
}
.canvas-item[contenteditable="true"] {
  outline: none;
  cursor: text;
  min-width: 50px;
  min-height: 20px;
}
img.canvas-item { height: auto; }
`

// HTML renders scene as a standalone page.
func HTML(scene board.Scene) (Document, error) {
	root := &html.Node{Type: html.DocumentNode}
	root.AppendChild(&html.Node{Type: html.DoctypeNode, Data: "html"})

	page := element(atom.Html, attr("lang", "en"))
	root.AppendChild(page)

	head := element(atom.Head)
	head.AppendChild(element(atom.Meta, attr("charset", "UTF-8")))
	head.AppendChild(element(atom.Meta, attr("name", "viewport"), attr("content", "width=device-width, initial-scale=1.0")))
	title := element(atom.Title)
	title.AppendChild(text(PageTitle))
	head.AppendChild(title)
	style := element(atom.Style)
	style.AppendChild(text(pageCSS))
	head.AppendChild(style)
	page.AppendChild(head)

	body := element(atom.Body)
	page.AppendChild(body)
	canvas := element(atom.Div, attr("class", "canvas"), attr("style", containerStyle(scene)))
	body.AppendChild(canvas)
	for _, d := range scene.Items {
		canvas.AppendChild(itemNode(d))
	}

	var buf bytes.Buffer
	if err := html.Render(&buf, root); err != nil {
		return Document{}, fmt.Errorf("render html: %w", err)
	}
	buf.WriteByte('\n')
	return Document{Filename: DefaultFilename, ContentType: "text/html; charset=utf-8", Body: buf.Bytes()}, nil
}

func containerStyle(scene board.Scene) string {
	bg := scene.Background.Color
	if bg == "" {
		bg = "white"
	}
	img := "none"
	if scene.Background.Image != "" {
		img = `url("` + cssURL(scene.Background.Image) + `")`
	}
	return declarations(
		"width", fmt.Sprintf("%dpx", scene.Width),
		"height", fmt.Sprintf("%dpx", scene.Height),
		"background-color", bg,
		"background-image", img,
		"background-size", "cover",
	)
}

func itemNode(d item.Descriptor) *html.Node {
	ap := item.AppearanceOf(d.Kind)
	decl := []string{
		"position", "absolute",
		"left", d.Position.Left.String(),
		"top", d.Position.Top.String(),
	}
	if ap.Background != "" {
		decl = append(decl, "background-color", ap.Background)
	}
	if ap.Padding != "" {
		decl = append(decl, "padding", ap.Padding)
	}
	if ap.Radius != "" {
		decl = append(decl, "border-radius", ap.Radius)
	}
	if ap.MaxWidth != "" {
		decl = append(decl, "max-width", ap.MaxWidth)
	}
	attrs := []html.Attribute{
		attr("class", "canvas-item"),
		attr("data-kind", d.Kind.String()),
		attr("style", declarations(decl...)),
	}
	if d.Kind == item.Image {
		attrs = append(attrs, attr("src", d.ImageSource), attr("alt", ""))
		return element(atom.Img, attrs...)
	}
	if ap.Editable {
		attrs = append(attrs, attr("contenteditable", "true"))
	}
	n := element(atom.Div, attrs...)
	n.AppendChild(text(d.Content))
	return n
}

func element(a atom.Atom, attrs ...html.Attribute) *html.Node {
	return &html.Node{Type: html.ElementNode, DataAtom: a, Data: a.String(), Attr: attrs}
}

func attr(k, v string) html.Attribute { return html.Attribute{Key: k, Val: v} }

func text(s string) *html.Node { return &html.Node{Type: html.TextNode, Data: s} }

// declarations joins property/value pairs into an inline style.
func declarations(kv ...string) string {
	var b strings.Builder
	for i := 0; i+1 < len(kv); i += 2 {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(kv[i])
		b.WriteString(": ")
		b.WriteString(kv[i+1])
		b.WriteByte(';')
	}
	return b.String()
}

// cssURL escapes characters that would end a quoted CSS url().
func cssURL(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", "", "\r", "")
	return r.Replace(s)
}
