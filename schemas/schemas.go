// Package schemas embeds the JSON Schemas shipped with the module.
package schemas

import _ "embed"

// Config is the JSON Schema for generation config files.
//
//go:embed config.schema.json
var Config string
