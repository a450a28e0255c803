package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the application configuration
type Config struct {
	BaseURL  string        `mapstructure:"base_url"`
	Output   string        `mapstructure:"output"`
	Format   string        `mapstructure:"format"`
	Debounce time.Duration `mapstructure:"debounce"`

	Log struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"`
	} `mapstructure:"log"`

	Highlight struct {
		Style string `mapstructure:"style"`
	} `mapstructure:"highlight"`

	Diagram struct {
		Concurrency int           `mapstructure:"concurrency"`
		CacheSize   int           `mapstructure:"cache_size"`
		Timeout     time.Duration `mapstructure:"timeout"`
	} `mapstructure:"diagram"`

	PlantUML struct {
		Server string `mapstructure:"server"`
		Jar    string `mapstructure:"jar"`
		Java   string `mapstructure:"java"`
	} `mapstructure:"plantuml"`

	Mermaid struct {
		Command string   `mapstructure:"command"`
		Args    []string `mapstructure:"args"`
	} `mapstructure:"mermaid"`

	Colors struct {
		Title    string `mapstructure:"title"`
		Cursor   string `mapstructure:"cursor"`
		Selected string `mapstructure:"selected"`
		Dim      string `mapstructure:"dim"`
		Border   string `mapstructure:"border"`
	} `mapstructure:"colors"`
}

// C is the global config instance
var C Config

// envKeyReplacer maps nested keys to env names, log.level -> MDSLIDES_LOG_LEVEL
var envKeyReplacer = strings.NewReplacer(".", "_")

// SetDefaults registers the default value of every key
func SetDefaults() {
	viper.SetDefault("base_url", "")
	viper.SetDefault("output", "")     // stdout
	viper.SetDefault("format", "json") // json or html
	viper.SetDefault("debounce", 300*time.Millisecond)
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "console")
	viper.SetDefault("highlight.style", "github")
	viper.SetDefault("diagram.concurrency", 4)
	viper.SetDefault("diagram.cache_size", 256)
	viper.SetDefault("diagram.timeout", 10*time.Second)
	viper.SetDefault("plantuml.server", "") // empty uses the local jar
	viper.SetDefault("plantuml.jar", "")
	viper.SetDefault("plantuml.java", "java")
	viper.SetDefault("mermaid.command", "mmdc")
	viper.SetDefault("mermaid.args", []string{})
	viper.SetDefault("colors.title", "33") // ANSI code or 256-color index
	viper.SetDefault("colors.cursor", "212")
	viper.SetDefault("colors.selected", "236")
	viper.SetDefault("colors.dim", "241")
	viper.SetDefault("colors.border", "240")
}

// Init initializes configuration with viper. file overrides the search path
// when non-empty.
func Init(file string) error {
	SetDefaults()

	if file != "" {
		viper.SetConfigFile(file)
	} else {
		viper.SetConfigName("mdslides")
		viper.SetConfigType("yaml")

		if home, err := os.UserHomeDir(); err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "mdslides"))
			viper.AddConfigPath(home)
		}
		viper.AddConfigPath(".")
	}

	viper.SetEnvPrefix("MDSLIDES")
	viper.SetEnvKeyReplacer(envKeyReplacer)
	viper.AutomaticEnv()

	// Try to read config, but don't fail if not found or malformed
	_ = viper.ReadInConfig()

	return viper.Unmarshal(&C)
}

// GetBaseURL returns the directory URL relative images resolve against
func GetBaseURL() string {
	return viper.GetString("base_url")
}

// GetOutput returns the build output path, empty for stdout
func GetOutput() string {
	return expandTilde(viper.GetString("output"))
}

// GetFormat returns the build output format
func GetFormat() string {
	return viper.GetString("format")
}

// GetDebounce returns the watch debounce interval
func GetDebounce() time.Duration {
	return viper.GetDuration("debounce")
}

// GetLogLevel returns the zerolog level name
func GetLogLevel() string {
	return viper.GetString("log.level")
}

// GetLogFormat returns console or json
func GetLogFormat() string {
	return viper.GetString("log.format")
}

// GetHighlightStyle returns the chroma style name
func GetHighlightStyle() string {
	return viper.GetString("highlight.style")
}

// GetDiagramConcurrency returns the number of diagrams rendered at once
func GetDiagramConcurrency() int {
	return viper.GetInt("diagram.concurrency")
}

// GetDiagramCacheSize returns the number of rendered diagrams kept
func GetDiagramCacheSize() int {
	return viper.GetInt("diagram.cache_size")
}

// GetDiagramTimeout returns the per-diagram render timeout
func GetDiagramTimeout() time.Duration {
	return viper.GetDuration("diagram.timeout")
}

// GetPlantUMLServer returns the PlantUML server URL
func GetPlantUMLServer() string {
	return viper.GetString("plantuml.server")
}

// GetPlantUMLJar returns the path of plantuml.jar
func GetPlantUMLJar() string {
	return expandTilde(viper.GetString("plantuml.jar"))
}

// GetPlantUMLJava returns the java executable
func GetPlantUMLJava() string {
	return viper.GetString("plantuml.java")
}

// GetMermaidCommand returns the mermaid-cli executable
func GetMermaidCommand() string {
	return viper.GetString("mermaid.command")
}

// GetMermaidArgs returns extra mermaid-cli arguments
func GetMermaidArgs() []string {
	return viper.GetStringSlice("mermaid.args")
}

// GetColorTitle returns the slide title color
func GetColorTitle() string {
	return viper.GetString("colors.title")
}

// GetColorCursor returns the list cursor color
func GetColorCursor() string {
	return viper.GetString("colors.cursor")
}

// GetColorSelected returns the selected row background
func GetColorSelected() string {
	return viper.GetString("colors.selected")
}

// GetColorDim returns the color of secondary text
func GetColorDim() string {
	return viper.GetString("colors.dim")
}

// GetColorBorder returns the preview border color
func GetColorBorder() string {
	return viper.GetString("colors.border")
}

// SetOutput sets output path at runtime
func SetOutput(path string) {
	viper.Set("output", path)
	C.Output = path
}

// SetFormat sets output format at runtime
func SetFormat(format string) {
	viper.Set("format", format)
	C.Format = format
}

// SetBaseURL sets the base URL at runtime
func SetBaseURL(url string) {
	viper.Set("base_url", url)
	C.BaseURL = url
}

// SetLogLevel sets the log level at runtime
func SetLogLevel(level string) {
	viper.Set("log.level", level)
	C.Log.Level = level
}

// expandTilde expands ~ to the user's home directory
func expandTilde(path string) string {
	if len(path) == 0 {
		return path
	}
	if path[0] == '~' {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}
