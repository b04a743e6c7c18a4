package files

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"iter"
	"slices"
	"strings"
)

// FileList is an insertion ordered set of Files keyed by name.
//
// Adding stores a copy of the given File, so one File can be added to many
// lists without them sharing state. Entries returned by Get and All are the
// stored ones, so flag changes made through them (such as marking a file
// executable) stick.
type FileList struct {
	order []string
	byKey map[string]*File
}

// NewFileList returns a list holding copies of fs.
func NewFileList(fs ...*File) (*FileList, error) {
	fl := &FileList{byKey: make(map[string]*File)}
	for _, f := range fs {
		if err := fl.Add(f); err != nil {
			return nil, err
		}
	}
	return fl, nil
}

func newFileList(capacity int) *FileList {
	return &FileList{order: make([]string, 0, capacity), byKey: make(map[string]*File, capacity)}
}

func (fl *FileList) init() {
	if fl.byKey == nil {
		fl.byKey = make(map[string]*File)
	}
}

func (fl *FileList) Len() int { return len(fl.order) }

func (fl *FileList) Has(name string) bool {
	_, ok := fl.byKey[name]
	return ok
}

// Get returns the entry stored under name, or nil.
func (fl *FileList) Get(name string) *File {
	return fl.byKey[name]
}

// All iterates the entries in list order.
func (fl *FileList) All() iter.Seq[*File] {
	return func(yield func(*File) bool) {
		for _, name := range fl.order {
			if !yield(fl.byKey[name]) {
				return
			}
		}
	}
}

// Files returns the entries in list order.
func (fl *FileList) Files() []*File {
	out := make([]*File, 0, len(fl.order))
	for _, name := range fl.order {
		out = append(out, fl.byKey[name])
	}
	return out
}

// Names returns the entry names in list order.
func (fl *FileList) Names() []string {
	return slices.Clone(fl.order)
}

// Add stores a copy of f. When the name is already present the two entries
// are merged: directories never conflict, anything else has to be equal.
func (fl *FileList) Add(f *File) error {
	fl.init()
	if err := CheckName(f.name); err != nil {
		return err
	}
	if existing, ok := fl.byKey[f.name]; ok {
		merged, err := mergeFiles(existing, f)
		if err != nil {
			return err
		}
		if merged != existing {
			fl.byKey[f.name] = merged.Copy()
		}
		return nil
	}
	fl.order = append(fl.order, f.name)
	fl.byKey[f.name] = f.Copy()
	return nil
}

// AddFile adds a regular file entry.
func (fl *FileList) AddFile(name, path string, executable bool) error {
	f, err := NewFile(name, path, false, executable)
	if err != nil {
		return err
	}
	return fl.Add(f)
}

// AddDirectory adds a directory entry.
func (fl *FileList) AddDirectory(name, path string) error {
	f, err := NewFile(name, path, true, false)
	if err != nil {
		return err
	}
	return fl.Add(f)
}

// Remove deletes the entry stored under name, if any.
func (fl *FileList) Remove(name string) {
	if _, ok := fl.byKey[name]; !ok {
		return
	}
	delete(fl.byKey, name)
	fl.order = slices.DeleteFunc(fl.order, func(n string) bool { return n == name })
}

func (fl *FileList) Clear() {
	fl.order = nil
	fl.byKey = make(map[string]*File)
}

// Copy returns a deep copy of the list.
func (fl *FileList) Copy() *FileList {
	out := newFileList(len(fl.order))
	for _, name := range fl.order {
		out.order = append(out.order, name)
		out.byKey[name] = fl.byKey[name].Copy()
	}
	return out
}

// Equal reports whether both lists hold equal entries in the same order.
func (fl *FileList) Equal(o *FileList) bool {
	if !slices.Equal(fl.order, o.order) {
		return false
	}
	for _, name := range fl.order {
		if !fl.byKey[name].Equal(o.byKey[name]) {
			return false
		}
	}
	return true
}

// replace swaps the content for entries, which must have unique names.
func (fl *FileList) replace(entries []*File) {
	fl.order = make([]string, 0, len(entries))
	fl.byKey = make(map[string]*File, len(entries))
	for _, f := range entries {
		fl.order = append(fl.order, f.name)
		fl.byKey[f.name] = f
	}
}

// Sort orders the entries by name, which places every directory before
// its contents.
func (fl *FileList) Sort() {
	slices.Sort(fl.order)
}

// FilterNone drops every phantom entry.
func (fl *FileList) FilterNone() {
	kept := make([]*File, 0, len(fl.order))
	for f := range fl.All() {
		if !f.Phantom() {
			kept = append(kept, f)
		}
	}
	fl.replace(kept)
}

// FilterEmpty drops directories that do not contain any kept entry. The
// result is sorted.
func (fl *FileList) FilterEmpty() {
	sorted := fl.Files()
	slices.SortFunc(sorted, func(a, b *File) int { return strings.Compare(b.name, a.name) })

	needed := make(map[string]bool)
	kept := make([]*File, 0, len(sorted))
	for _, f := range sorted {
		if !f.Directory || needed[f.name] {
			kept = append(kept, f)
			needed[parentDir(f.name)] = true
		}
	}
	slices.Reverse(kept)
	fl.replace(kept)
}

// AddMissingDirectories inserts a phantom directory for every ancestor
// implied by an entry but not present, then sorts the list.
func (fl *FileList) AddMissingDirectories() {
	entries := fl.Files()
	required := make(map[string]bool)
	for _, f := range entries {
		for name := f.name; strings.Contains(name, "/"); {
			name = parentDir(name)
			required[name] = true
		}
	}
	for name := range required {
		if !fl.Has(name) {
			entries = append(entries, &File{name: name, Directory: true})
		}
	}
	slices.SortFunc(entries, func(a, b *File) int { return strings.Compare(a.name, b.name) })
	fl.replace(entries)
}

// Merge combines lists into a new list with the same merge rule as Add.
func Merge(lists ...*FileList) (*FileList, error) {
	out := newFileList(0)
	for _, l := range lists {
		if l == nil {
			continue
		}
		for f := range l.All() {
			if err := out.Add(f); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

// SplitByPrefix returns the entries whose name starts with prefix and the
// rest, as two new lists.
func (fl *FileList) SplitByPrefix(prefix string) (yes, no *FileList) {
	yes, no = newFileList(0), newFileList(0)
	for f := range fl.All() {
		if strings.HasPrefix(f.name, prefix) {
			yes.order = append(yes.order, f.name)
			yes.byKey[f.name] = f.Copy()
		} else {
			no.order = append(no.order, f.name)
			no.byKey[f.name] = f.Copy()
		}
	}
	return yes, no
}

// Reprefix renames every entry starting with old so that it starts with
// new instead. Entries whose new name would be empty are dropped. The list
// is left untouched when a new name is invalid or collides.
func (fl *FileList) Reprefix(old, new string) error {
	renamed := make([]*File, 0, len(fl.order))
	for f := range fl.All() {
		name := f.name
		if strings.HasPrefix(name, old) {
			name = new + name[len(old):]
			if name == "" {
				continue
			}
			if err := CheckName(name); err != nil {
				return fmt.Errorf("reprefix %q -> %q: %w", old, new, err)
			}
		}
		c := f.Copy()
		c.name = name
		renamed = append(renamed, c)
	}
	out := newFileList(len(renamed))
	for _, f := range renamed {
		if err := out.Add(f); err != nil {
			return fmt.Errorf("reprefix %q -> %q: %w", old, new, err)
		}
	}
	fl.order, fl.byKey = out.order, out.byKey
	return nil
}

// PrependDirectory moves every entry under dir and adds dir itself as a
// phantom directory in front.
func (fl *FileList) PrependDirectory(dir string) error {
	root, err := NewFile(dir, "", true, false)
	if err != nil {
		return err
	}
	entries := make([]*File, 0, len(fl.order)+1)
	entries = append(entries, root)
	for f := range fl.All() {
		name := dir + "/" + f.name
		if err := CheckName(name); err != nil {
			return err
		}
		c := f.Copy()
		c.name = name
		entries = append(entries, c)
	}
	fl.replace(entries)
	return nil
}

// Hash returns a hex digest of the list that only depends on entry names,
// flags and file contents, never on list order.
func (fl *FileList) Hash() (string, error) {
	sorted := fl.Files()
	slices.SortFunc(sorted, func(a, b *File) int { return strings.Compare(a.name, b.name) })

	h := sha256.New()
	for _, f := range sorted {
		fmt.Fprintf(h, "(%s, %s, %s)", pyQuote(f.name), pyBool(f.Directory), pyBool(f.Executable))
		if f.Phantom() || f.Directory {
			continue
		}
		sum, err := HashFile(f.Path, DefaultHashMethod)
		if err != nil {
			return "", fmt.Errorf("hash %s: %w", f.name, err)
		}
		h.Write([]byte(sum))
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func (fl *FileList) String() string {
	parts := make([]string, 0, len(fl.order))
	for f := range fl.All() {
		parts = append(parts, f.String())
	}
	return "<FileList [" + strings.Join(parts, ", ") + "]>"
}

// parentDir returns everything before the last slash, or "" for top-level
// names.
func parentDir(name string) string {
	i := strings.LastIndexByte(name, '/')
	if i < 0 {
		return ""
	}
	return name[:i]
}

func pyBool(b bool) string {
	if b {
		return "True"
	}
	return "False"
}

// pyQuote renders s the way the tuple text in hashes has always been
// rendered, so digests stay comparable with earlier builds.
func pyQuote(s string) string {
	quote := "'"
	if strings.Contains(s, "'") && !strings.Contains(s, `"`) {
		quote = `"`
	}
	var b strings.Builder
	b.WriteString(quote)
	for _, r := range s {
		switch {
		case r == '\\':
			b.WriteString(`\\`)
		case string(r) == quote:
			b.WriteString(`\` + quote)
		case r == '\n':
			b.WriteString(`\n`)
		case r == '\t':
			b.WriteString(`\t`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteString(quote)
	return b.String()
}
