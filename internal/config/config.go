package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DropboxConfig names the environment variables holding the Dropbox app credentials.
type DropboxConfig struct {
	AppKeyEnv       string `yaml:"app_key_env"`
	AppSecretEnv    string `yaml:"app_secret_env"`
	RefreshTokenEnv string `yaml:"refresh_token_env"`
	TimeoutSecs     int    `yaml:"timeout_secs"`
}

// LocalStorageConfig roots remote folder paths in a local directory.
type LocalStorageConfig struct {
	Root string `yaml:"root"`
}

// StorageConfig selects where grant and project files come from and where results go.
type StorageConfig struct {
	Type    string              `yaml:"type"`
	Local   *LocalStorageConfig `yaml:"local,omitempty"`
	Dropbox *DropboxConfig      `yaml:"dropbox,omitempty"`
}

// FoldersConfig holds remote folder names and local working directories.
type FoldersConfig struct {
	RemoteRoot     string `yaml:"remote_root"`
	RemoteProjects string `yaml:"remote_projects"`
	WorkDir        string `yaml:"work_dir"`
	ProjectsDir    string `yaml:"projects_dir"`
	SummaryDir     string `yaml:"summary_dir"`
}

// FiltersConfig points at optional name-list files restricting which files are processed.
type FiltersConfig struct {
	GrantListFile   string `yaml:"grant_list_file"`
	ProjectListFile string `yaml:"project_list_file"`
}

// OpenAIConfig configures an OpenAI-compatible chat completion backend.
type OpenAIConfig struct {
	BaseURL     string `yaml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Model       string `yaml:"model"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// GeminiConfig configures the Google Gemini backend.
type GeminiConfig struct {
	APIKeyEnv string `yaml:"api_key_env"`
	Model     string `yaml:"model"`
}

// OllamaConfig configures a local model server.
type OllamaConfig struct {
	BaseURL     string `yaml:"base_url"`
	Model       string `yaml:"model"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// InferenceConfig selects and configures the answer-producing backend.
type InferenceConfig struct {
	Type            string        `yaml:"type"`
	MaxOutputTokens int           `yaml:"max_output_tokens"`
	MaxRetries      int           `yaml:"max_retries"`
	OpenAI          *OpenAIConfig `yaml:"openai,omitempty"`
	Gemini          *GeminiConfig `yaml:"gemini,omitempty"`
	Ollama          *OllamaConfig `yaml:"ollama,omitempty"`
}

// SegmenterConfig bounds grant corpus segments.
type SegmenterConfig struct {
	MaxChars int `yaml:"max_chars"`
}

// SummarizerConfig configures running, per-archetype and corpus summaries.
type SummarizerConfig struct {
	MaxSentences       int  `yaml:"max_sentences"`
	CompactEvery       int  `yaml:"compact_every"`
	CorpusPresummarize bool `yaml:"corpus_presummarize"`
	ChunkChars         int  `yaml:"chunk_chars"`
}

// MergeConfig configures the cross-project merge.
type MergeConfig struct {
	Strategy string `yaml:"strategy"`
	Label    string `yaml:"label"`
}

// MetricsConfig enables the Prometheus textfile written at the end of a run.
type MetricsConfig struct {
	Textfile string `yaml:"textfile"`
}

// LoggingConfig configures process logging (not the audit log).
type LoggingConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Storage    StorageConfig    `yaml:"storage"`
	Folders    FoldersConfig    `yaml:"folders"`
	Filters    FiltersConfig    `yaml:"filters"`
	Inference  InferenceConfig  `yaml:"inference"`
	Segmenter  SegmenterConfig  `yaml:"segmenter"`
	Summarizer SummarizerConfig `yaml:"summarizer"`
	Merge      MergeConfig      `yaml:"merge"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return defaultConfig(), nil
		}
		return nil, err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	applyConfigDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &cfg, nil
}

// LoadDefault tries ./grantalign.yaml first, then ~/.config/grantalign/config.yaml.
// If neither exists, it writes defaults to ~/.config/grantalign/config.yaml and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "grantalign.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := defaultConfig()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate rejects selections no component can serve.
func (c *AppConfig) Validate() error {
	switch c.Storage.Type {
	case "local", "dropbox":
	default:
		return fmt.Errorf("unknown storage type %q", c.Storage.Type)
	}
	switch c.Inference.Type {
	case "openai", "gemini", "ollama":
	default:
		return fmt.Errorf("unknown inference type %q", c.Inference.Type)
	}
	switch c.Merge.Strategy {
	case "line", "single":
	default:
		return fmt.Errorf("unknown merge strategy %q", c.Merge.Strategy)
	}
	return nil
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "grantalign", "config.yaml"), nil
}

func defaultConfig() *AppConfig {
	cfg := &AppConfig{
		Storage:   StorageConfig{Type: "local"},
		Inference: InferenceConfig{Type: "ollama"},
	}
	applyConfigDefaults(cfg)
	return cfg
}

func applyConfigDefaults(cfg *AppConfig) {
	if cfg.Storage.Type == "" {
		cfg.Storage.Type = "local"
	}
	switch cfg.Storage.Type {
	case "local":
		if cfg.Storage.Local == nil {
			cfg.Storage.Local = &LocalStorageConfig{}
		}
		if cfg.Storage.Local.Root == "" {
			cfg.Storage.Local.Root = "remote"
		}
	case "dropbox":
		if cfg.Storage.Dropbox == nil {
			cfg.Storage.Dropbox = &DropboxConfig{}
		}
		d := cfg.Storage.Dropbox
		if d.AppKeyEnv == "" {
			d.AppKeyEnv = "DROPBOX_APP_KEY"
		}
		if d.AppSecretEnv == "" {
			d.AppSecretEnv = "DROPBOX_APP_SECRET"
		}
		if d.RefreshTokenEnv == "" {
			d.RefreshTokenEnv = "DROPBOX_REFRESH_TOKEN"
		}
		if d.TimeoutSecs == 0 {
			d.TimeoutSecs = 60
		}
	}

	f := &cfg.Folders
	if f.RemoteRoot == "" {
		f.RemoteRoot = "/GrantAlignTool"
	}
	if f.RemoteProjects == "" {
		f.RemoteProjects = "Projects"
	}
	if f.WorkDir == "" {
		f.WorkDir = "pdfs"
	}
	if f.ProjectsDir == "" {
		f.ProjectsDir = "Projects"
	}
	if f.SummaryDir == "" {
		f.SummaryDir = "summary"
	}

	if cfg.Filters.GrantListFile == "" {
		cfg.Filters.GrantListFile = "grant_pages.txt"
	}
	if cfg.Filters.ProjectListFile == "" {
		cfg.Filters.ProjectListFile = "file_list.txt"
	}

	inf := &cfg.Inference
	if inf.Type == "" {
		inf.Type = "ollama"
	}
	if inf.MaxOutputTokens == 0 {
		inf.MaxOutputTokens = 250
	}
	if inf.MaxRetries == 0 {
		inf.MaxRetries = 3
	}
	switch inf.Type {
	case "openai":
		if inf.OpenAI == nil {
			inf.OpenAI = &OpenAIConfig{}
		}
		if inf.OpenAI.BaseURL == "" {
			inf.OpenAI.BaseURL = "https://api.openai.com/v1"
		}
		if inf.OpenAI.APIKeyEnv == "" {
			inf.OpenAI.APIKeyEnv = "OPENAI_API_KEY"
		}
		if inf.OpenAI.Model == "" {
			inf.OpenAI.Model = "gpt-4o-mini"
		}
		if inf.OpenAI.TimeoutSecs == 0 {
			inf.OpenAI.TimeoutSecs = 60
		}
	case "gemini":
		if inf.Gemini == nil {
			inf.Gemini = &GeminiConfig{}
		}
		if inf.Gemini.APIKeyEnv == "" {
			inf.Gemini.APIKeyEnv = "GEMINI_API_KEY"
		}
		if inf.Gemini.Model == "" {
			inf.Gemini.Model = "gemini-2.0-flash"
		}
	case "ollama":
		if inf.Ollama == nil {
			inf.Ollama = &OllamaConfig{}
		}
		if inf.Ollama.BaseURL == "" {
			inf.Ollama.BaseURL = "http://localhost:11434"
		}
		if inf.Ollama.Model == "" {
			inf.Ollama.Model = "orca-mini:3b"
		}
		if inf.Ollama.TimeoutSecs == 0 {
			inf.Ollama.TimeoutSecs = 120
		}
	}

	if cfg.Segmenter.MaxChars == 0 {
		cfg.Segmenter.MaxChars = 5000
	}
	s := &cfg.Summarizer
	if s.MaxSentences == 0 {
		s.MaxSentences = 10
	}
	if s.CompactEvery == 0 {
		s.CompactEvery = 10
	}
	if s.ChunkChars == 0 {
		s.ChunkChars = 6000
	}
	if cfg.Merge.Strategy == "" {
		cfg.Merge.Strategy = "line"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
}
