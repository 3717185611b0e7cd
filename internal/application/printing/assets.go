package printing

import (
	"embed"
	"io/fs"
)

//go:embed templates
var templates embed.FS

//go:embed translations
var translations embed.FS

// Templates returns the bundled document templates
func Templates() fs.FS {
	sub, err := fs.Sub(templates, "templates")
	if err != nil {
		panic(err)
	}
	return sub
}

// Translations returns the bundled message catalogs
func Translations() fs.FS {
	sub, err := fs.Sub(translations, "translations")
	if err != nil {
		panic(err)
	}
	return sub
}
