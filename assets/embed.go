package assets

import (
	"embed"
	"io"
	"io/fs"
)

//go:embed dictionary.txt
var dictionary embed.FS

//go:embed sql/*.sql
var migrations embed.FS

// Dictionary opens the bundled default word list.
func Dictionary() (io.ReadCloser, error) {
	return dictionary.Open("dictionary.txt")
}

// Migrations exposes the bundled SQL migrations rooted at sql/.
func Migrations() fs.FS {
	sub, err := fs.Sub(migrations, "sql")
	if err != nil {
		// sql/ is embedded at build time; Sub only fails on an invalid path.
		panic(err)
	}
	return sub
}
