package requirement

import _ "embed"

//go:embed builtin.yaml
var builtinYAML []byte
