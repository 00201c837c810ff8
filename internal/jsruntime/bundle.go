package jsruntime

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	esbuild "github.com/evanw/esbuild/pkg/api"
)

//go:embed runtime.js
var rawSource string

var (
	minifyOnce sync.Once
	minified   string
	minifyErr  error
)

// Source returns the embedded bridge runtime shim, minified via esbuild's
// Transform API the first time it's requested and cached thereafter —
// the same minification pass the teacher's bundler ran over worker
// scripts, applied here to one self-contained file instead of a bundled
// entry point (the shim has no imports, so Bundle/resolve is unnecessary).
func Source() (string, error) {
	minifyOnce.Do(func() {
		result := esbuild.Transform(rawSource, esbuild.TransformOptions{
			Loader:            esbuild.LoaderJS,
			Target:            esbuild.ES2020,
			MinifyWhitespace:  true,
			MinifyIdentifiers: true,
			MinifySyntax:      true,
		})
		if len(result.Errors) > 0 {
			var msgs []string
			for _, e := range result.Errors {
				msgs = append(msgs, e.Text)
			}
			minifyErr = fmt.Errorf("minifying bridge runtime shim: %s", strings.Join(msgs, "; "))
			return
		}
		minified = string(result.Code)
	})
	return minified, minifyErr
}
