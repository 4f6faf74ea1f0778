package main

import "embed"

// embeddedFrontend is the built-in theme: raymond layouts under frontend/templates/{website,ebook}
// and static files under frontend/assets. build --theme replaces it with a folder of the same shape.
//
//go:embed frontend
var embeddedFrontend embed.FS
