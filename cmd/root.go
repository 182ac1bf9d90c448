package cmd

import (
	"log"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	app = "impression-engine"
)

type Config struct {
	Store    *StoreConfig     `mapstructure:"store"`
	Engine   *EngineConfig    `mapstructure:"engine"`
	AI       *AIConfig        `mapstructure:"ai"`
	Profiles []*ProfileConfig `mapstructure:"profiles"`
	Views    []*ViewConfig    `mapstructure:"views"`
}

type StoreConfig struct {
	Driver string       `mapstructure:"driver"`
	Redis  *RedisConfig `mapstructure:"redis"`
}

type RedisConfig struct {
	Addr string `mapstructure:"addr"`
}

type EngineConfig struct {
	ResonanceThreshold float64 `mapstructure:"resonance-threshold"`
	MatchThreshold     float64 `mapstructure:"match-threshold"`
	CooldownHours      int     `mapstructure:"cooldown-hours"`
	WindowHours        int     `mapstructure:"window-hours"`
	MaxVectors         int     `mapstructure:"max-vectors"`
	VectorMaxAgeHours  int     `mapstructure:"vector-max-age-hours"`
	MinAnalysisDelayMS int     `mapstructure:"min-analysis-delay-ms"`
	MaxAnalysisDelayMS int     `mapstructure:"max-analysis-delay-ms"`
}

type AIConfig struct {
	Provider string        `mapstructure:"provider"`
	Gemini   *GeminiConfig `mapstructure:"gemini"`
}

type GeminiConfig struct {
	APIKeyFile   string `mapstructure:"api-key-file"`
	Model        string `mapstructure:"model"`
	MaxRetries   int    `mapstructure:"max-retries"`
	MaxLogLength int    `mapstructure:"max-log-length"`
}

type ProfileConfig struct {
	UserID  string   `mapstructure:"user-id"`
	Name    string   `mapstructure:"name"`
	Bio     string   `mapstructure:"bio"`
	Intents []string `mapstructure:"intents"`
	Age     int      `mapstructure:"age"`
	Email   string   `mapstructure:"email"`
}

type ViewConfig struct {
	ViewerID           string  `mapstructure:"viewer-id"`
	TargetID           string  `mapstructure:"target-id"`
	DwellMS            int     `mapstructure:"dwell-ms"`
	ScrollReversals    int     `mapstructure:"scroll-reversals"`
	ScrollEvents       int     `mapstructure:"scroll-events"`
	AvgScrollIntensity float64 `mapstructure:"avg-scroll-intensity"`
	LastAction         string  `mapstructure:"last-action"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "impression-engine is a cli for driving the Impression matching core against seeded profiles",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	if err := viper.BindEnv("ai.gemini.api-key-file", "GEMINI_API_KEY_FILE"); err != nil {
		log.Fatalf("binding GEMINI_API_KEY_FILE environment variable: %v", err)
	}

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is impression-engine.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func initConfig() {
	// Config needed only for run command now. If there is no config, we can skip initialization
	if runCmd.CalledAs() == "" {
		return
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app + ".yaml")
	}

	// We can't proceed if the config file parsed with error.
	if err := viper.ReadInConfig(); err != nil {
		log.Fatal(err)
	}
}

func getConfig() (*Config, error) {
	var config *Config
	err := viper.Unmarshal(&config)
	if err != nil {
		return config, err
	}

	return config, nil
}
