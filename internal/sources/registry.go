package sources

import (
	"embed"
	"fmt"
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

//go:embed config/sources.yaml
var sourcesYAML embed.FS

// Registry holds the configuration for all opportunity sources.
type Registry struct {
	Sources []SourceConfig `yaml:"sources"`
}

// FetchConfig defines HTTP fetching configuration for a source.
type FetchConfig struct {
	TimeoutSeconds int     `yaml:"timeout_seconds,omitempty"` // Default: 30
	MaxRetries     int     `yaml:"max_retries,omitempty"`     // Default: 3
	RateLimitRPS   float64 `yaml:"rate_limit_rps,omitempty"`  // Requests per second, default: 1.0
}

// SelectorConfig defines CSS selectors for the generic HTML board kind.
type SelectorConfig struct {
	Container   string `yaml:"container,omitempty"` // CSS selector for the list item wrapper
	Link        string `yaml:"link,omitempty"`
	Title       string `yaml:"title,omitempty"`
	Description string `yaml:"description,omitempty"`
	Agency      string `yaml:"agency,omitempty"`
}

// SourceConfig defines a single opportunity source.
type SourceConfig struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	Kind     string `yaml:"kind"` // "sample", "uganda_sample", "samgov", "remotive", "html_board"
	BaseURL  string `yaml:"base_url,omitempty"`
	APIKey   string `yaml:"api_key,omitempty"`
	Disabled bool   `yaml:"disabled,omitempty"`

	Fetch     FetchConfig    `yaml:"fetch,omitempty"`
	Selectors SelectorConfig `yaml:"selectors,omitempty"`
	MaxPages  int            `yaml:"max_pages,omitempty"`
}

// LoadRegistry reads the source configuration from path, or from the
// embedded sources.yaml when path is empty. Environment variables inside
// the YAML (e.g. ${SAM_GOV_API_KEY}) are expanded.
func LoadRegistry(path string) (*Registry, error) {
	var data []byte
	var err error
	if path != "" {
		data, err = os.ReadFile(path)
	} else {
		data, err = sourcesYAML.ReadFile("config/sources.yaml")
	}
	if err != nil {
		return nil, err
	}

	expanded := os.ExpandEnv(string(data))

	var reg Registry
	if err := yaml.Unmarshal([]byte(expanded), &reg); err != nil {
		return nil, err
	}
	return &reg, nil
}

// Build instantiates the enabled sources in registry order. Registry
// order is load-bearing: the collector concatenates results in this
// order so deduplication is reproducible.
func (r *Registry) Build(log *zap.Logger) ([]Source, error) {
	var built []Source
	for _, cfg := range r.Sources {
		if cfg.Disabled {
			continue
		}
		switch cfg.Kind {
		case "sample":
			built = append(built, NewSampleSource(log))
		case "uganda_sample":
			built = append(built, NewUgandaSampleSource(log))
		case "samgov":
			built = append(built, NewSAMGovSource(cfg, log))
		case "remotive":
			built = append(built, NewRemotiveSource(cfg, log))
		case "html_board":
			built = append(built, NewHTMLBoardSource(cfg, log))
		default:
			return nil, fmt.Errorf("unknown source kind %q for %q", cfg.Kind, cfg.ID)
		}
	}
	return built, nil
}
