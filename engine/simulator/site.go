package simulator

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// siteContent is the static-content injection for a worker with a sitePath:
// a manifest from request path to content-store key, the content store
// itself, and sniffed MIME types for files outside the fixed table.
type siteContent struct {
	manifest map[string]string
	content  *memoryStore
	types    map[string]string
}

// loadSite walks the site directory and builds its content injection. Keys
// are the slash-separated paths relative to the directory root.
func loadSite(fsys afero.Fs, dir string) (*siteContent, error) {
	site := &siteContent{
		manifest: make(map[string]string),
		content:  newMemoryStore(),
		types:    make(map[string]string),
	}
	mimeTable := MimeTypes()
	err := afero.Walk(fsys, dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		data, err := afero.ReadFile(fsys, path)
		if err != nil {
			return err
		}
		site.manifest[key] = key
		site.content.put(key, string(data))
		ext := strings.ToLower(filepath.Ext(key))
		if _, known := mimeTable[ext]; !known && len(data) > 0 {
			site.types[key] = sniffContentType(data)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load site directory %s: %w", dir, err)
	}
	return site, nil
}
