package http

import (
	"embed"
	"io/fs"
	stdhttp "net/http"

	"github.com/rotisserie/eris"
)

//go:embed static
var staticFiles embed.FS

func newStaticAssetHandler() (stdhttp.Handler, error) {
	assets, err := fs.Sub(staticFiles, "static")
	if err != nil {
		return nil, eris.Wrap(err, "preparing static assets filesystem")
	}

	return stdhttp.StripPrefix("/static/", stdhttp.FileServer(stdhttp.FS(assets))), nil
}
