/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package persist maps the live item collection to and from the snapshot kept
// under a single well-known key in a storage.Store. A snapshot is a JSON array
// of {kind, content, left, top, src} records. Absent or malformed snapshots
// restore nothing and leave the surface as it was.
package persist

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"canvasboard/internal/item"
	applog "canvasboard/internal/log"
	"canvasboard/internal/storage"

	gojsonschema "github.com/xeipuuv/gojsonschema"
)

// Key is the slot that holds the canvas snapshot.
const Key = "canvasState"

//go:embed snapshot.schema.json
var schemaBytes []byte

var schema = mustSchema()

func mustSchema() *gojsonschema.Schema {
	s, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(schemaBytes))
	if err != nil {
		panic(fmt.Sprintf("snapshot schema: %v", err))
	}
	return s
}

// ErrMalformed wraps every reason a snapshot cannot be restored.
var ErrMalformed = errors.New("malformed snapshot")

// Record is one persisted item.
type Record struct {
	Kind    string  `json:"kind"`
	Content *string `json:"content"`
	Left    string  `json:"left"`
	Top     string  `json:"top"`
	Src     *string `json:"src"`
}

// UnmarshalJSON also accepts "type" in place of "kind", the tag used by
// snapshots written before kind was carried explicitly.
func (r *Record) UnmarshalJSON(b []byte) error {
	var aux struct {
		Kind    string  `json:"kind"`
		Type    string  `json:"type"`
		Content *string `json:"content"`
		Left    string  `json:"left"`
		Top     string  `json:"top"`
		Src     *string `json:"src"`
	}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	kind := aux.Kind
	if kind == "" {
		kind = aux.Type
	}
	*r = Record{Kind: kind, Content: aux.Content, Left: aux.Left, Top: aux.Top, Src: aux.Src}
	return nil
}

// Source is anything with items to snapshot.
type Source interface {
	Descriptors() []item.Descriptor
}

// Target is anything that can be restored from a snapshot.
type Target interface {
	Restore([]item.Descriptor) error
}

// RecordOf converts a descriptor. Content is null for images and src is null
// for everything else.
func RecordOf(d item.Descriptor) Record {
	r := Record{Kind: d.Kind.String(), Left: d.Position.Left.String(), Top: d.Position.Top.String()}
	if d.Kind == item.Image {
		src := d.ImageSource
		r.Src = &src
	} else {
		content := d.Content
		r.Content = &content
	}
	return r
}

// Descriptor converts a record back, validating kind and lengths.
func (r Record) Descriptor() (item.Descriptor, error) {
	kind, err := item.ParseKind(r.Kind)
	if err != nil {
		return item.Descriptor{}, err
	}
	pos, err := item.ParsePosition(r.Left, r.Top)
	if err != nil {
		return item.Descriptor{}, err
	}
	d := item.Descriptor{Kind: kind, Position: pos}
	if kind == item.Image {
		if r.Src != nil {
			d.ImageSource = *r.Src
		}
	} else if r.Content != nil {
		d.Content = *r.Content
	}
	if _, err := item.FromDescriptor(d); err != nil {
		return item.Descriptor{}, err
	}
	return d, nil
}

// Encode serializes the source's items in order.
func Encode(src Source) ([]byte, error) {
	descs := src.Descriptors()
	recs := make([]Record, 0, len(descs))
	for _, d := range descs {
		recs = append(recs, RecordOf(d))
	}
	data, err := json.Marshal(recs)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return data, nil
}

// Decode validates data against the snapshot schema and returns its records.
// A JSON null decodes to nil records and no error.
func Decode(data []byte) ([]Record, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%w: empty", ErrMalformed)
	}
	if bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}
	res, err := schema.Validate(gojsonschema.NewBytesLoader(trimmed))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if !res.Valid() {
		msg := "schema violation"
		if errs := res.Errors(); len(errs) > 0 {
			msg = errs[0].String()
		}
		return nil, fmt.Errorf("%w: %s", ErrMalformed, msg)
	}
	var recs []Record
	if err := json.Unmarshal(trimmed, &recs); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return recs, nil
}

// Descriptors decodes data all the way to item descriptors.
func Descriptors(data []byte) ([]item.Descriptor, error) {
	recs, err := Decode(data)
	if err != nil {
		return nil, err
	}
	descs := make([]item.Descriptor, 0, len(recs))
	for i, r := range recs {
		d, err := r.Descriptor()
		if err != nil {
			return nil, fmt.Errorf("%w: record %d: %v", ErrMalformed, i, err)
		}
		descs = append(descs, d)
	}
	return descs, nil
}

// Save writes the snapshot, overwriting any previous one.
func Save(ctx context.Context, src Source, st storage.Store) error {
	data, err := Encode(src)
	if err != nil {
		return err
	}
	if err := st.Set(ctx, Key, data); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	applog.WithComponent("persist").Debug("snapshot saved", slog.Int("bytes", len(data)))
	return nil
}

// Load restores the snapshot into dst and reports whether anything was
// restored. An absent or malformed snapshot leaves dst untouched and is not an
// error; only storage failures are returned.
func Load(ctx context.Context, dst Target, st storage.Store) (bool, error) {
	l := applog.WithOperation(applog.WithComponent("persist"), "load")
	data, ok, err := st.Get(ctx, Key)
	if err != nil {
		return false, fmt.Errorf("load snapshot: %w", err)
	}
	if !ok {
		l.Debug("no saved snapshot")
		return false, nil
	}
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return false, nil
	}
	descs, err := Descriptors(data)
	if err != nil {
		l.Warn("ignoring malformed snapshot", slog.Any("err", err))
		return false, nil
	}
	if err := dst.Restore(descs); err != nil {
		l.Warn("ignoring unrestorable snapshot", slog.Any("err", err))
		return false, nil
	}
	l.Debug("snapshot restored", slog.Int("items", len(descs)))
	return true, nil
}
