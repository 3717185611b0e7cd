package printing

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"
)

// Font is a TrueType font registered on every canvas
type Font struct {
	Family string
	Style  string
	Path   string
	Data   []byte
}

// FontSet is the ordered list of fonts a document declares
type FontSet struct {
	fs    afero.Fs
	fonts []Font
	seen  map[string]bool
}

// NewFontSet creates an empty font set that reads from the OS filesystem
func NewFontSet() *FontSet {
	return NewFontSetWithFs(afero.NewOsFs())
}

// NewFontSetWithFs creates an empty font set that reads font files from fsys
func NewFontSetWithFs(fsys afero.Fs) *FontSet {
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	return &FontSet{fs: fsys, seen: make(map[string]bool)}
}

// Fonts returns the registered fonts in declaration order
func (s *FontSet) Fonts() []Font {
	if s == nil {
		return nil
	}
	return s.fonts
}

// Clone returns a copy that can be extended without affecting s.
// Font data is shared.
func (s *FontSet) Clone() *FontSet {
	if s == nil {
		return NewFontSet()
	}
	clone := NewFontSetWithFs(s.fs)
	clone.fonts = append(clone.fonts, s.fonts...)
	for key := range s.seen {
		clone.seen[key] = true
	}
	return clone
}

// Len returns the number of registered fonts
func (s *FontSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.fonts)
}

// UseFont reads the font file at path and registers it.
// The family and style are derived from the file name: "Quicksand-Bold.ttf"
// registers family "quicksand" with style "B".
func (s *FontSet) UseFont(path string) error {
	data, err := afero.ReadFile(s.fs, path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrFontNotFound, path)
		}
		return NewRenderError(ErrCodeFontNotFound, "failed to read font file", err)
	}

	family, style := fontNameFromFile(path)
	key := family + ":" + style
	if s.seen[key] {
		return nil
	}
	s.seen[key] = true

	s.fonts = append(s.fonts, Font{
		Family: family,
		Style:  style,
		Path:   path,
		Data:   data,
	})
	return nil
}

// UseFontsDir registers every .ttf file in dir, in file name order
func (s *FontSet) UseFontsDir(dir string) error {
	entries, err := afero.ReadDir(s.fs, dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: directory %s", ErrFontNotFound, dir)
		}
		return NewRenderError(ErrCodeFontNotFound, "failed to read fonts directory", err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(entry.Name()), ".ttf") {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		if err := s.UseFont(filepath.Join(dir, name)); err != nil {
			return err
		}
	}
	return nil
}

func fontNameFromFile(path string) (family, style string) {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	base = strings.ToLower(base)

	family, variant, found := strings.Cut(base, "-")
	if !found {
		return base, ""
	}

	switch variant {
	case "regular", "normal", "":
		return family, ""
	case "bold":
		return family, "B"
	case "italic", "oblique":
		return family, "I"
	case "bolditalic", "boldoblique":
		return family, "BI"
	default:
		// Weights such as light or medium have no fpdf style, so they become their own family
		return base, ""
	}
}
