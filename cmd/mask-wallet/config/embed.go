package config

import _ "embed"

//go:embed defaults.yaml
var EmbeddedConfigYAML []byte
