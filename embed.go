package mapty

import "embed"

// WebFS holds the built frontend served at /.
//
//go:embed web/dist
var WebFS embed.FS
