package device

import (
	"fmt"

	"github.com/spf13/viper"
)

// Config holds device paths and I/O settings
type Config struct {
	DevinfoPath      string            `mapstructure:"devinfo_path"`
	BootAPath        string            `mapstructure:"boot_a_path"`
	BootBPath        string            `mapstructure:"boot_b_path"`
	DefaultBlockSize uint32            `mapstructure:"default_block_size"`
	SlotSuffix       string            `mapstructure:"slot_suffix"`
	DeviceAliases    map[string]string `mapstructure:"device_aliases"`
	TraceBytes       bool              `mapstructure:"trace_bytes"`
	ProcRoot         string            `mapstructure:"proc_root"`
}

// SetDefaults registers the default configuration values on v
func SetDefaults(v *viper.Viper) {
	v.SetDefault("devinfo_path", "/dev/block/by-name/devinfo")
	v.SetDefault("boot_a_path", "/dev/block/by-name/boot_a")
	v.SetDefault("boot_b_path", "/dev/block/by-name/boot_b")
	v.SetDefault("default_block_size", 512)
	v.SetDefault("slot_suffix", "")
	v.SetDefault("device_aliases", map[string]string{})
	v.SetDefault("trace_bytes", false)
	v.SetDefault("proc_root", "/proc")
}

// LoadConfig loads configuration using Viper. When configFile is empty the standard
// locations are searched for bootctl-config.yaml; a missing file is not an error.
func LoadConfig(v *viper.Viper, configFile string) (*Config, error) {
	if v == nil {
		v = viper.GetViper()
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("bootctl-config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("$HOME/.bootctl")
		v.AddConfigPath("/etc/bootctl")
	}

	SetDefaults(v)

	// Allow environment variables
	v.SetEnvPrefix("BOOTCTL")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || configFile != "" {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return &config, nil
}
