package session

import (
	"fmt"

	"github.com/Gathouria/Adopt-Skin/internal/platform/config"
)

// Config holds the mod settings.
type Config struct {
	StrayAnimals          bool `env:"ADOPTSKIN_STRAY_ANIMALS" envDefault:"true"`
	WildHorses            bool `env:"ADOPTSKIN_WILD_HORSES" envDefault:"true"`
	DetailedConsoleOutput bool `env:"ADOPTSKIN_DETAILED_CONSOLE_OUTPUT" envDefault:"false"`
	DebuggingMode         bool `env:"ADOPTSKIN_DEBUGGING_MODE" envDefault:"false"`
	StrayChance           int  `env:"ADOPTSKIN_STRAY_CHANCE" envDefault:"60"`
	WildHorseChance       int  `env:"ADOPTSKIN_WILD_HORSE_CHANCE" envDefault:"15"`
}

// LoadConfig reads Config from the process environment.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := config.ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadConfigMap reads Config from settings, keyed by variable name.
func LoadConfigMap(settings map[string]string) (Config, error) {
	var cfg Config
	if err := config.ParseEnvMap(&cfg, settings); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the spawn chances are percentages.
func (c Config) Validate() error {
	if c.StrayChance < 0 || c.StrayChance > 100 {
		return fmt.Errorf("stray chance must be between 0 and 100, got %d", c.StrayChance)
	}
	if c.WildHorseChance < 0 || c.WildHorseChance > 100 {
		return fmt.Errorf("wild horse chance must be between 0 and 100, got %d", c.WildHorseChance)
	}
	return nil
}
