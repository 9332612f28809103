package api

import (
	"fmt"
	"net/http"

	scalargo "github.com/bdpiprava/scalar-go"
)

// Docs renders the OpenAPI document found in specDir.
func Docs(specDir, title string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			WriteNotFound(w, "No route for "+r.URL.Path, r.URL.Path)
			return
		}

		html, err := scalargo.NewV2(
			scalargo.WithSpecDir(specDir),
			scalargo.WithMetaDataOpts(
				scalargo.WithTitle(title),
			),
		)
		if err != nil {
			WriteInternalServerError(w, err, r.URL.Path)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, html)
	}
}
