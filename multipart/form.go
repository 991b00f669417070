// Copyright 2025 The R-Server Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package multipart

import (
	"errors"
	"os"
)

// FileEntry describes one uploaded file: the client-supplied name, the
// randomized temp file basename, its full path, size in bytes and declared
// content type. The temp file is owned by the request; the server removes it
// once the request completes.
type FileEntry struct {
	Name    string
	TmpName string
	Path    string
	Size    int64
	Type    string
}

// FileEntryCollection holds the uploads of a file field that appeared more
// than once, as parallel slices indexed together. Index i across all five
// slices describes one upload.
type FileEntryCollection struct {
	Names    []string
	TmpNames []string
	Paths    []string
	Sizes    []int64
	Types    []string
}

// Len returns the number of entries in the collection.
func (c *FileEntryCollection) Len() int {
	return len(c.Paths)
}

// Entry materializes the i-th upload as a FileEntry.
func (c *FileEntryCollection) Entry(i int) FileEntry {
	return FileEntry{
		Name:    c.Names[i],
		TmpName: c.TmpNames[i],
		Path:    c.Paths[i],
		Size:    c.Sizes[i],
		Type:    c.Types[i],
	}
}

// append adds one upload to the collection.
func (c *FileEntryCollection) append(e FileEntry) {
	c.Names = append(c.Names, e.Name)
	c.TmpNames = append(c.TmpNames, e.TmpName)
	c.Paths = append(c.Paths, e.Path)
	c.Sizes = append(c.Sizes, e.Size)
	c.Types = append(c.Types, e.Type)
}

// PartHeaders carries the parsed headers of one part while its body is
// consumed: whether the part is a file upload, the client file name, the
// form field name, the transfer encoding and content type.
type PartHeaders struct {
	IsFile    bool
	FileName  string
	FieldName string
	Encoding  string
	Type      string
}

// Form is the decoded result of a multipart body: plain field values plus
// uploaded files keyed by field name.
type Form struct {
	values      map[string][]string
	order       []string
	files       map[string]*FileEntry
	collections map[string]*FileEntryCollection
}

func newForm() *Form {
	return &Form{
		values:      make(map[string][]string),
		files:       make(map[string]*FileEntry),
		collections: make(map[string]*FileEntryCollection),
	}
}

// Value returns the first value of a field, or "".
func (f *Form) Value(name string) string {
	if vs := f.values[name]; len(vs) > 0 {
		return vs[0]
	}
	return ""
}

// Values returns every value of a field in the order the parts appeared.
func (f *Form) Values(name string) []string {
	return f.values[name]
}

// FieldNames returns the field names in first-appearance order.
func (f *Form) FieldNames() []string {
	out := make([]string, len(f.order))
	copy(out, f.order)
	return out
}

// File returns the upload for a file field that appeared exactly once. For
// repeated fields it returns false; use [Form.Files].
func (f *Form) File(name string) (*FileEntry, bool) {
	e, ok := f.files[name]
	return e, ok
}

// Files returns the collection for a file field that appeared more than
// once. For single-occurrence fields it returns false; use [Form.File].
func (f *Form) Files(name string) (*FileEntryCollection, bool) {
	c, ok := f.collections[name]
	return c, ok
}

// addValue records one plain field part. Repeats append, never overwrite.
func (f *Form) addValue(name, value string) {
	if _, seen := f.values[name]; !seen {
		f.order = append(f.order, name)
	}
	f.values[name] = append(f.values[name], value)
}

// addFile records one file part. The second occurrence of a name promotes
// the stored FileEntry into a FileEntryCollection.
func (f *Form) addFile(name string, e FileEntry) {
	if col, ok := f.collections[name]; ok {
		col.append(e)
		return
	}

	if prev, ok := f.files[name]; ok {
		col := &FileEntryCollection{}
		col.append(*prev)
		col.append(e)
		delete(f.files, name)
		f.collections[name] = col
		return
	}

	f.files[name] = &e
}

// Cleanup removes every temp file the form owns. It is safe to call more
// than once; missing files are not an error.
func (f *Form) Cleanup() error {
	var errs []error

	remove := func(path string) {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
	}

	for _, e := range f.files {
		remove(e.Path)
	}
	for _, c := range f.collections {
		for _, p := range c.Paths {
			remove(p)
		}
	}

	return errors.Join(errs...)
}
