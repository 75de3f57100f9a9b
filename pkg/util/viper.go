package util

import (
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of the environment variables read by the command line tool.
const EnvPrefix = "EC2D"

// InitViper sets up prefixed env var handling for the viper of the command line tool, so a flag such as
// --max-cloud-requests may also be given as EC2D_MAX_CLOUD_REQUESTS.
func InitViper(v *viper.Viper) {
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.SetEnvPrefix(EnvPrefix)
	v.SetTypeByDefaultValue(true)
	v.AutomaticEnv()
}

// NewEnvViper returns a viper which only sees the given environment variables, keyed by option name.
// Unlike InitViper no prefix is applied, the variable names are used exactly as given.
func NewEnvViper(bindings map[string]string) *viper.Viper {
	v := viper.New()
	for key, env := range bindings {
		_ = v.BindEnv(key, env) // Only fails without arguments
	}
	return v
}
