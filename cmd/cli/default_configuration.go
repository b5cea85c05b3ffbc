package cli

import _ "embed"

//go:embed default_config.yaml
var defaultConfigurationBytes []byte

// EmbeddedDefaultConfiguration returns a copy of the baked-in default
// configuration together with its format identifier. Callers receive a copy
// so the embedded bytes stay pristine across application instances.
func EmbeddedDefaultConfiguration() ([]byte, string) {
	configurationCopy := make([]byte, len(defaultConfigurationBytes))
	copy(configurationCopy, defaultConfigurationBytes)
	return configurationCopy, configurationTypeConstant
}
