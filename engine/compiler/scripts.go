package compiler

import (
	"embed"
	"fmt"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"

	"github.com/edgesim/edgesim/engine/simulator"
)

//go:embed scripts/*.tmpl
var scriptFS embed.FS

var scriptTemplates = template.Must(
	template.New("scripts").Funcs(sprig.TxtFuncMap()).ParseFS(scriptFS, "scripts/*.tmpl"),
)

// Binding names the router script uses to reach its two downstream workers.
const (
	routerStoreBinding  = "STORE"
	routerOriginBinding = "ORIGIN"
)

func renderScript(name string, data any) (string, error) {
	var sb strings.Builder
	if err := scriptTemplates.ExecuteTemplate(&sb, name, data); err != nil {
		return "", fmt.Errorf("failed to render script template %s: %w", name, err)
	}
	return sb.String(), nil
}

// StubScript returns the no-op handler back-filled onto workers that declare
// bindings but no executable body.
func StubScript() (string, error) {
	return renderScript("stub.js.tmpl", nil)
}

// DefaultMockScript returns the diagnostic 404 handler synthesized for a
// service binding target the caller supplied no mock for.
func DefaultMockScript(service string) (string, error) {
	return renderScript("mock404.js.tmpl", map[string]any{"Service": service})
}

// StoreScript returns the asset-store worker body: manifest lookup with
// index.html fallbacks and MIME resolution.
func StoreScript() (string, error) {
	return renderScript("store.js.tmpl", map[string]any{"MimeTypes": simulator.MimeTypes()})
}

// RouterScript returns the router worker body: try the store first, fall
// through to the origin worker on a 404.
func RouterScript() (string, error) {
	return renderScript("router.js.tmpl", map[string]any{
		"StoreBinding":  routerStoreBinding,
		"OriginBinding": routerOriginBinding,
	})
}
