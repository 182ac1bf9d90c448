package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/impression-social/impression-engine/internal/behavior"
	"github.com/impression-social/impression-engine/internal/bio"
	"github.com/impression-social/impression-engine/internal/bio/gemini"
	"github.com/impression-social/impression-engine/internal/dynamics"
	"github.com/impression-social/impression-engine/internal/logger"
	"github.com/impression-social/impression-engine/internal/match"
	"github.com/impression-social/impression-engine/internal/profile"
	"github.com/impression-social/impression-engine/internal/secrets"
	"github.com/impression-social/impression-engine/internal/store"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	PromptShowMatches  = "Show matches for a user"
	PromptShowDynamics = "Show dynamics for a user"
	PromptShowUnits    = "Show unit profiles for a user"
	PromptCreateUnit   = "Create a unit profile from an active dynamic"
	PromptStateToFile  = "Dump engine state to file"
	PromptExit         = "Exit"
	PromptBack         = "back"
)

var errExit = errors.New("exit requested")

var prompt = promptui.Select{
	Label: "What next?",
	Items: []string{PromptShowMatches, PromptShowDynamics, PromptShowUnits, PromptCreateUnit, PromptStateToFile, PromptExit},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Seed profiles, replay views through the match pipeline and explore the results",
	Run: func(cmd *cobra.Command, _ []string) {
		run(cmd)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().BoolP("non-interactive", "n", false, "replay the configured views and exit without the action prompt")
}

// run is the main command for the cli.
func run(cmd *cobra.Command) {
	ctx := context.Background()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Info("starting the impression-engine", zap.String("version", version))

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(config, "", "  ")
	logger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	if config == nil {
		logger.Fatal("config is required")
	}

	if len(config.Profiles) < 2 {
		logger.Fatal("at least two profiles are required under the profiles key to match anyone")
	}

	s, err := buildStore(ctx, config.Store)
	if err != nil {
		logger.Fatal("building the store", zap.Error(err))
	}

	detector, dynamicsEngine := buildEngines(ctx, config, s, logger)

	if err := seedProfiles(s, config.Profiles); err != nil {
		logger.Fatal("seeding profiles", zap.Error(err))
	}
	logger.Info("seeded profiles", zap.Int("count", len(config.Profiles)))

	replayViews(ctx, config, s, detector, logger)

	if cmd.Flag("non-interactive").Value.String() == "true" {
		logger.Info("exiting", zap.String("reason", "non-interactive mode"))
		return
	}

	for {
		_, action, err := prompt.Run()
		if err != nil {
			logger.Fatal("exiting", zap.Error(err))
		}

		if err := handleAction(action, s, detector, dynamicsEngine, config, logger); err != nil {
			if errors.Is(err, errExit) {
				return
			}
			logger.Fatal("exiting", zap.Error(err))
		}
	}
}

func buildStore(ctx context.Context, cfg *StoreConfig) (store.Store, error) {
	driver := "memory"
	if cfg != nil && cfg.Driver != "" {
		driver = strings.TrimSpace(strings.ToLower(cfg.Driver))
	}

	switch driver {
	case "memory":
		return store.NewMemory(), nil
	case "redis":
		if cfg == nil || cfg.Redis == nil || cfg.Redis.Addr == "" {
			return nil, errors.New("store.redis.addr is required for the redis driver")
		}
		return store.NewRedis(ctx, cfg.Redis.Addr)
	default:
		return nil, fmt.Errorf("unsupported store driver: %s", driver)
	}
}

func buildEngines(ctx context.Context, config *Config, s store.Store, logger *zap.Logger) (*match.Detector, *dynamics.Engine) {
	engineCfg := config.Engine
	if engineCfg == nil {
		engineCfg = &EngineConfig{}
	}

	cache := bio.NewCache(s)
	analyzer, err := buildAnalyzer(ctx, config.AI, cache, engineCfg, logger)
	if err != nil {
		logger.Fatal("building the bio analyzer", zap.Error(err))
	}

	behaviorEngine := behavior.NewEngine(s, logger, behavior.Config{
		ResonanceThreshold: engineCfg.ResonanceThreshold,
		MaxVectors:         engineCfg.MaxVectors,
		MaxVectorAge:       time.Duration(engineCfg.VectorMaxAgeHours) * time.Hour,
	})

	dynamicsEngine := dynamics.NewEngine(s, logger, dynamics.Config{
		WindowHours: engineCfg.WindowHours,
	})

	detector := match.NewDetector(behaviorEngine, analyzer, cache, dynamicsEngine, s, logger, match.Config{
		MatchThreshold: engineCfg.MatchThreshold,
		Cooldown:       time.Duration(engineCfg.CooldownHours) * time.Hour,
	})

	return detector, dynamicsEngine
}

func buildAnalyzer(ctx context.Context, cfg *AIConfig, cache *bio.Cache, engineCfg *EngineConfig, log *zap.Logger) (bio.Analyzer, error) {
	provider := "heuristic"
	if cfg != nil && cfg.Provider != "" {
		provider = strings.TrimSpace(strings.ToLower(cfg.Provider))
	}

	switch provider {
	case "heuristic":
		return bio.NewEngine(cache, log, bio.Config{
			MinDelay: time.Duration(engineCfg.MinAnalysisDelayMS) * time.Millisecond,
			MaxDelay: time.Duration(engineCfg.MaxAnalysisDelayMS) * time.Millisecond,
		}), nil
	case "gemini":
		if cfg.Gemini == nil {
			return nil, errors.New("gemini configuration is required when the gemini provider is selected")
		}

		apiKey, err := secrets.Load(secrets.Source{
			Name: "gemini api key",
			Env:  "GEMINI_API_KEY",
			File: cfg.Gemini.APIKeyFile,
		})
		if err != nil {
			return nil, fmt.Errorf("%w (set ai.gemini.api-key-file, GEMINI_API_KEY_FILE or GEMINI_API_KEY)", err)
		}

		genLogger := log.With(
			zap.String(logger.FieldProvider, "gemini"),
			zap.String(logger.FieldModel, cfg.Gemini.Model),
			zap.Int("ai_retry_attempts", cfg.Gemini.MaxRetries),
		)

		generator, err := gemini.NewGenerator(ctx, apiKey, cfg.Gemini.Model, cfg.Gemini.MaxRetries, genLogger)
		if err != nil {
			return nil, err
		}

		return gemini.NewAnalyzer(generator, cache, log, cfg.Gemini.MaxLogLength), nil
	default:
		return nil, fmt.Errorf("unsupported ai provider: %s", cfg.Provider)
	}
}

func seedProfiles(s store.Store, profiles []*ProfileConfig) error {
	for _, p := range profiles {
		if err := profile.Save(s, &profile.UserProfile{
			UserID:  p.UserID,
			Name:    p.Name,
			Bio:     p.Bio,
			Intents: p.Intents,
			Age:     p.Age,
			Email:   p.Email,
		}); err != nil {
			return err
		}
	}
	return nil
}

func replayViews(ctx context.Context, config *Config, s store.Store, detector *match.Detector, logger *zap.Logger) {
	for _, view := range config.Views {
		viewer, err := profile.Load(s, view.ViewerID)
		if err == nil && viewer == nil {
			err = fmt.Errorf("unknown viewer %s", view.ViewerID)
		}
		if err != nil {
			logger.Warn("skipping view", zap.Error(err))
			continue
		}

		target, err := profile.Load(s, view.TargetID)
		if err == nil && target == nil {
			err = fmt.Errorf("unknown target %s", view.TargetID)
		}
		if err != nil {
			logger.Warn("skipping view", zap.Error(err))
			continue
		}

		result := detector.ProcessProfileView(ctx, viewer, target, behavior.RawSignals{
			DwellMS:            view.DwellMS,
			ScrollReversals:    view.ScrollReversals,
			ScrollEvents:       view.ScrollEvents,
			AvgScrollIntensity: view.AvgScrollIntensity,
			LastAction:         view.LastAction,
		})

		if result == nil {
			logger.Info("view processed, no match yet",
				zap.String("viewer_id", view.ViewerID),
				zap.String("target_id", view.TargetID),
			)
			continue
		}

		logger.Info("view processed",
			zap.String("viewer_id", view.ViewerID),
			zap.String("target_id", view.TargetID),
			zap.Bool("is_match", result.IsMatch),
			zap.Float64("match_score", result.MatchScore),
			zap.String("dynamic_label", string(result.DynamicLabel)),
			zap.Strings("reasoning", result.Reasoning),
		)
	}
}

func handleAction(action string, s store.Store, detector *match.Detector, dynamicsEngine *dynamics.Engine, config *Config, logger *zap.Logger) error {
	switch action {
	case PromptShowMatches:
		userID, err := selectUser(config)
		if err != nil {
			return err
		}
		matches, err := detector.UserMatches(userID)
		if err != nil {
			return err
		}
		pretty, _ := json.MarshalIndent(matches, "", "  ")
		logger.Info(string(pretty), zap.Int("matches count", len(matches)))
		return nil
	case PromptShowDynamics:
		userID, err := selectUser(config)
		if err != nil {
			return err
		}
		userDynamics, err := dynamicsEngine.UserDynamics(userID)
		if err != nil {
			return err
		}
		pretty, _ := json.MarshalIndent(userDynamics, "", "  ")
		logger.Info(string(pretty), zap.Int("dynamics count", len(userDynamics)))

		for _, d := range userDynamics {
			extensions, err := dynamicsEngine.WindowExtensions(d.DynamicID)
			if err != nil {
				return err
			}
			for _, extension := range extensions {
				logger.Info("window extension",
					zap.String("dynamic_id", d.DynamicID),
					zap.Int("additional_hours", extension.AdditionalHours),
					zap.String("new_expiry", extension.NewExpiry),
				)
			}
		}
		return nil
	case PromptShowUnits:
		userID, err := selectUser(config)
		if err != nil {
			return err
		}
		units, err := dynamicsEngine.UserUnitProfiles(userID)
		if err != nil {
			return err
		}
		pretty, _ := json.MarshalIndent(units, "", "  ")
		logger.Info(string(pretty), zap.Int("units count", len(units)))
		return nil
	case PromptCreateUnit:
		return createUnit(dynamicsEngine, config, logger)
	case PromptStateToFile:
		filename, err := dumpState(s)
		if err != nil {
			return fmt.Errorf("dump state to file: %w", err)
		}
		logger.Info("dumping state to file", zap.String("filename", filename))
		return nil
	case PromptExit:
		logger.Info("exiting", zap.String("reason", "got exit from prompt"))
		return errExit
	default:
		return fmt.Errorf("invalid action: %s", action)
	}
}

func createUnit(dynamicsEngine *dynamics.Engine, config *Config, logger *zap.Logger) error {
	userID, err := selectUser(config)
	if err != nil {
		return err
	}

	userDynamics, err := dynamicsEngine.UserDynamics(userID)
	if err != nil {
		return err
	}

	items := make([]string, 0)
	for _, d := range userDynamics {
		if d.Status != dynamics.StatusActive {
			continue
		}
		items = append(items, fmt.Sprintf("%s %s / %s", d.DynamicID, d.DynamicType, strings.Join(d.Users, " + ")))
	}
	if len(items) == 0 {
		logger.Info("no active dynamics to evolve", zap.String("user_id", userID))
		return nil
	}

	dynamicPrompt := promptui.Select{
		Label: "Choose a dynamic and press ENTER",
		Items: append(items, PromptBack),
	}

	_, selected, err := dynamicPrompt.Run()
	if err != nil {
		return err
	}
	if selected == PromptBack {
		return nil
	}

	dynamicID := strings.Split(selected, " ")[0]
	unit, err := dynamicsEngine.CreateUnitProfile(dynamicID, dynamics.UnitData{}, userID)
	if err != nil {
		return err
	}
	if unit == nil {
		logger.Info("dynamic is not active anymore", zap.String("dynamic_id", dynamicID))
		return nil
	}

	logger.Info("unit profile created",
		zap.String("unit_id", unit.UnitID),
		zap.String("unit_name", unit.UnitName),
		zap.String("unit_type", unit.UnitType),
	)
	return nil
}

func selectUser(config *Config) (string, error) {
	items := make([]string, 0, len(config.Profiles))
	for _, p := range config.Profiles {
		items = append(items, p.UserID)
	}

	userPrompt := promptui.Select{
		Label: "Choose a user and press ENTER",
		Items: items,
	}

	_, userID, err := userPrompt.Run()
	return userID, err
}

// dumpState writes every stored document to a temp file as one JSON object
// keyed by document key.
func dumpState(s store.Store) (string, error) {
	keys, err := s.Keys("")
	if err != nil {
		return "", err
	}

	state := make(map[string]json.RawMessage, len(keys))
	for _, key := range keys {
		var doc json.RawMessage
		if _, err := s.Get(key, &doc); err != nil {
			return "", err
		}
		state[key] = doc
	}

	pretty, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return "", err
	}

	file, err := os.CreateTemp("", app+"-state-*.json")
	if err != nil {
		return "", err
	}
	defer file.Close()

	if _, err := file.Write(pretty); err != nil {
		return "", err
	}
	return file.Name(), nil
}
