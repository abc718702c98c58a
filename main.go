// Package main provides the entry point for the vocalize CLI.
package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	gap "github.com/muesli/go-app-paths"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/vocalize-ai/vocalize/internal/audioio"
	"github.com/vocalize-ai/vocalize/internal/modelcache"
	"github.com/vocalize-ai/vocalize/internal/synthrt"
	"github.com/vocalize-ai/vocalize/tts"
	"github.com/vocalize-ai/vocalize/tts/voice"
)

var (
	// Version as provided by goreleaser.
	Version = ""
	// CommitSHA as provided by goreleaser.
	CommitSHA = ""

	configFile string
	debug      bool

	voiceID    string
	speedFlag  float32
	pitchFlag  float32
	outputPath string
	playFlag   bool
	chunkSize  int

	rootCmd = &cobra.Command{
		Use:              "vocalize",
		Short:            "Neural text-to-speech on the CLI",
		SilenceErrors:    false,
		SilenceUsage:     true,
		TraverseChildren: true,
	}

	speakCmd = &cobra.Command{
		Use:     "speak [TEXT]",
		Short:   "Synthesize text to audio",
		Example: "vocalize speak \"hello world\" -o hello.wav\nvocalize speak - < notes.txt --play",
		Args:    cobra.MaximumNArgs(1),
		RunE:    runSpeak,
	}

	voicesCmd = &cobra.Command{
		Use:   "voices",
		Short: "List available voices",
		Args:  cobra.NoArgs,
		RunE:  runVoices,
	}

	modelsCmd = &cobra.Command{
		Use:   "models",
		Short: "List known models and cache usage",
		Args:  cobra.NoArgs,
		RunE:  runModels,
	}

	modelsRemoveCmd = &cobra.Command{
		Use:   "remove MODEL",
		Short: "Delete a model from the local cache",
		Args:  cobra.ExactArgs(1),
		RunE:  runModelsRemove,
	}
)

// textFromArg reads the text to speak from the argument, or from stdin when
// the argument is "-" or absent.
func textFromArg(args []string) (string, error) {
	if len(args) == 1 && args[0] != "-" {
		return args[0], nil
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("unable to read stdin: %w", err)
	}
	return string(data), nil
}

// tokenize maps text to model token IDs. This is a character-level stand-in
// for a phonemizer; it keeps IDs stable per rune and collapses runs of
// whitespace to a single pause token.
func tokenize(text string) []int64 {
	text = strings.TrimSpace(text)
	tokens := make([]int64, 0, len(text))
	pause := false
	for _, r := range text {
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' {
			if !pause && len(tokens) > 0 {
				tokens = append(tokens, 0)
				pause = true
			}
			continue
		}
		pause = false
		tokens = append(tokens, int64(r)%512)
	}
	return tokens
}

// loadConfig merges defaults, the config file and VOCALIZE_* environment
// variables, then applies command-line overrides.
func loadConfig() (tts.Config, error) {
	cfg, err := tts.FromEnv()
	if err != nil {
		return tts.Config{}, err
	}
	if v := viper.GetString("model"); v != "" {
		cfg.Model = v
	}
	if v := viper.GetString("cache_dir"); v != "" {
		cfg.CacheDir = v
	}
	if v := viper.GetInt("pool_size"); v != 0 {
		cfg.PoolSize = v
	}
	if v := viper.GetInt("chunk_size"); v != 0 {
		cfg.ChunkSize = v
	}
	if viper.GetBool("debug") {
		cfg.Debug = true
	}
	if debug {
		cfg.Debug = true
	}
	if err := cfg.Validate(); err != nil {
		return tts.Config{}, err
	}
	return cfg, nil
}

func newManager(cfg tts.Config) (*modelcache.Manager, error) {
	root := cfg.CacheDir
	if root == "" {
		var err error
		root, err = modelcache.DefaultRoot()
		if err != nil {
			return nil, err
		}
	}
	return modelcache.NewManager(root,
		modelcache.WithMaxAttempts(cfg.DownloadAttempts),
		modelcache.WithAttemptTimeout(cfg.DownloadTimeout),
	)
}

func newEngine(cfg tts.Config) (*tts.Engine, error) {
	cache, err := newManager(cfg)
	if err != nil {
		return nil, err
	}
	return tts.NewEngine(cfg, cache, synthrt.NewFactory(log.Default()))
}

func runSpeak(cmd *cobra.Command, args []string) error {
	text, err := textFromArg(args)
	if err != nil {
		return err
	}
	tokens := tokenize(text)
	if len(tokens) == 0 {
		return fmt.Errorf("nothing to speak")
	}
	if len(tokens) > tts.MaxTokens {
		log.Warn("input too long, truncating", "tokens", len(tokens), "max", tts.MaxTokens)
		tokens = tokens[:tts.MaxTokens]
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	engine, err := newEngine(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = engine.Close() }()

	ctx := cmd.Context()
	req, err := engine.NewRequest(ctx, voiceID, tokens)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("speed") {
		req.Speed = speedFlag
	}
	if cmd.Flags().Changed("pitch") {
		req.Pitch = pitchFlag
	}
	if cmd.Flags().Changed("chunk-size") {
		req.ChunkSize = chunkSize
	}

	if playFlag {
		player, err := audioio.NewPlayer(req.Voice.SampleRate, log.Default())
		if err != nil {
			return err
		}
		chunks, errs := engine.SynthesizeStream(ctx, req)
		return player.PlayStream(ctx, chunks, errs)
	}

	samples, err := engine.Synthesize(ctx, req)
	if err != nil {
		return err
	}

	settings := audioio.DefaultSettings()
	settings.SampleRate = req.Voice.SampleRate
	writer, err := audioio.NewWriter(audioio.WithSettings(settings))
	if err != nil {
		return err
	}
	if err := writer.WriteAuto(samples, outputPath); err != nil {
		return err
	}
	duration := tts.AudioChunk{Samples: samples, SampleRate: req.Voice.SampleRate}.Duration()
	fmt.Printf("Wrote %s (%s of audio)\n", outputPath, duration.Round(10*time.Millisecond))
	return nil
}

func runVoices(*cobra.Command, []string) error {
	registry := voice.NewRegistry()
	for _, v := range registry.List() {
		marker := " "
		if v.ID == voice.DefaultVoiceID {
			marker = "*"
		}
		fmt.Printf("%s %-10s %-8s %-6s %-14s %s\n", marker, v.ID, v.Language, v.Gender, v.Style, v.Name)
	}
	return nil
}

func runModels(*cobra.Command, []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	manager, err := newManager(cfg)
	if err != nil {
		return err
	}
	for _, m := range manager.Catalog().List() {
		var total int64
		for _, f := range m.Files {
			total += f.Size
		}
		fmt.Printf("%-12s %-8s %-10s %s\n", m.ID, m.Version, humanize.Bytes(uint64(total)), m.Name)
	}
	if size, err := manager.Size(); err == nil && size > 0 {
		fmt.Printf("\ncache: %s on disk\n", humanize.Bytes(uint64(size)))
	}
	return nil
}

func runModelsRemove(_ *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	manager, err := newManager(cfg)
	if err != nil {
		return err
	}
	if err := manager.Remove(args[0]); err != nil {
		return err
	}
	fmt.Println("Removed", args[0])
	return nil
}

func setupLog() {
	log.SetOutput(os.Stderr)
	log.SetReportTimestamp(false)
	if debug || viper.GetBool("debug") {
		log.SetLevel(log.DebugLevel)
	} else {
		log.SetLevel(log.WarnLevel)
	}
}

func main() {
	setupLog()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	tryLoadConfigFromDefaultPlaces()
	if len(CommitSHA) >= 7 {
		vt := rootCmd.VersionTemplate()
		rootCmd.SetVersionTemplate(vt[:len(vt)-1] + " (" + CommitSHA[0:7] + ")\n")
	}
	if Version == "" {
		Version = "unknown (built from source)"
	}
	rootCmd.Version = Version
	rootCmd.InitDefaultCompletionCmd()

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", fmt.Sprintf("config file (default %s)", viper.GetViper().ConfigFileUsed()))
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	speakCmd.Flags().StringVarP(&voiceID, "voice", "v", voice.DefaultVoiceID, "voice to synthesize with")
	speakCmd.Flags().Float32VarP(&speedFlag, "speed", "s", 1.0, "speaking rate multiplier")
	speakCmd.Flags().Float32VarP(&pitchFlag, "pitch", "p", 0.0, "pitch adjustment")
	speakCmd.Flags().StringVarP(&outputPath, "output", "o", "out.wav", "output audio file")
	speakCmd.Flags().BoolVar(&playFlag, "play", false, "play through the audio device instead of writing a file")
	speakCmd.Flags().IntVar(&chunkSize, "chunk-size", 0, "token window for streaming (0 = single shot)")

	_ = viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))

	viper.SetDefault("model", "kokoro")
	viper.SetDefault("cache_dir", "")
	viper.SetDefault("pool_size", 0)
	viper.SetDefault("chunk_size", 0)
	viper.SetDefault("debug", false)

	modelsCmd.AddCommand(modelsRemoveCmd)
	rootCmd.AddCommand(speakCmd, voicesCmd, modelsCmd, configCmd)
}

func tryLoadConfigFromDefaultPlaces() {
	scope := gap.NewScope(gap.User, "vocalize")
	dirs, err := scope.ConfigDirs()
	if err != nil {
		fmt.Println("Could not find configuration directory.")
		os.Exit(1)
	}

	if c := os.Getenv("XDG_CONFIG_HOME"); c != "" {
		dirs = append([]string{filepath.Join(c, "vocalize")}, dirs...)
	}
	if c := os.Getenv("VOCALIZE_CONFIG_HOME"); c != "" {
		dirs = append([]string{c}, dirs...)
	}

	for _, v := range dirs {
		viper.AddConfigPath(v)
	}

	viper.SetConfigName("vocalize")
	viper.SetConfigType("yaml")
	viper.SetEnvPrefix("vocalize")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Warn("Could not parse configuration file", "err", err)
		}
	}

	if used := viper.ConfigFileUsed(); used != "" {
		log.Debug("Using configuration file", "path", used)
		return
	}

	configFile = filepath.Join(dirs[0], "vocalize.yml")
}
