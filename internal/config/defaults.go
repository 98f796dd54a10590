package config

const (
	defaultStateDir        = "~/.local/share/astropipe/state"
	defaultLogDir          = "~/.local/share/astropipe/logs"
	defaultCommandPipe     = "/tmp/siril_command.in"
	defaultResponsePipe    = "/tmp/siril_command.out"
	defaultRequiredVersion = "1.3.6"
	defaultExtension       = "fit"
	defaultConnectTimeout  = 10
	defaultSirilConfigDir  = "~/.config/siril"
	defaultLogFormat       = "console"
	defaultLogLevel        = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir: defaultStateDir,
			LogDir:   defaultLogDir,
		},
		Siril: Siril{
			CommandPipe:     defaultCommandPipe,
			ResponsePipe:    defaultResponsePipe,
			RequiredVersion: defaultRequiredVersion,
			Extension:       defaultExtension,
			Force32Bit:      true,
			ConnectTimeout:  defaultConnectTimeout,
			ConfigDir:       defaultSirilConfigDir,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
