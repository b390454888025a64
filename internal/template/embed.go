package template

import (
	"embed"
	"io/fs"
)

// builtinModels embeds the template files shipped with replus.
//
//go:embed builtin
var builtinModels embed.FS

// BuiltinFS returns the embedded template files, rooted at the model
// directory so it can be handed straight to NewLoader.
func BuiltinFS() fs.FS {
	sub, err := fs.Sub(builtinModels, "builtin")
	if err != nil {
		// fs.Sub only fails on an invalid path literal.
		panic(err)
	}
	return sub
}
