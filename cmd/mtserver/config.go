package main

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/nmtkit/go-constrained/assets"
	"github.com/nmtkit/go-constrained/pipeline"
	"github.com/nmtkit/go-constrained/subword"
	"github.com/nmtkit/go-constrained/tokenizer"
)

// Config is the server configuration: which languages get a tokenizer and
// subword model, and which language pairs are served.
type Config struct {
	Listen    string                    `yaml:"listen"`
	CacheDir  string                    `yaml:"cache_dir"`
	Languages map[string]LanguageConfig `yaml:"languages"`
	Pairs     []PairConfig              `yaml:"pairs"`
}

// LanguageConfig describes the preprocessing assets of one language.
type LanguageConfig struct {
	// TokenizerCommand launches the external tokenizer, e.g.
	// ["tokenizer.perl", "-l", "de", "-no-escape", "1", "-q", "-", "-b"].
	TokenizerCommand []string `yaml:"tokenizer_command"`

	// SubwordCodes names a BPE merge-table resource in the cache directory;
	// SubwordCodesURL is where to fetch it on cache miss.
	SubwordCodes    string `yaml:"subword_codes"`
	SubwordCodesURL string `yaml:"subword_codes_url"`

	// SentencePieceModel is a local model path used instead of BPE codes.
	SentencePieceModel string `yaml:"sentencepiece_model"`
}

// PairConfig declares one served language pair and the model backing it.
type PairConfig struct {
	Source string `yaml:"source"`
	Target string `yaml:"target"`
	Model  string `yaml:"model"`
}

// LoadConfig reads and validates a YAML config file.
func LoadConfig(path string) (*Config, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading config %q", path)
	}
	var cfg Config
	if err := yaml.Unmarshal(content, &cfg); err != nil {
		return nil, errors.Wrapf(err, "parsing config %q", path)
	}
	if cfg.Listen == "" {
		cfg.Listen = "127.0.0.1:5007"
	}
	if cfg.CacheDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, errors.Wrap(err, "resolving home directory for cache")
		}
		cfg.CacheDir = filepath.Join(home, ".cache", "mtserver")
	}
	if len(cfg.Pairs) == 0 {
		return nil, errors.Errorf("config %q declares no language pairs", path)
	}
	return &cfg, nil
}

// buildEngine assembles the pipeline engine from the configuration: one
// tokenizer adapter per language, one model per pair.
func buildEngine(cfg *Config) (*pipeline.Engine, error) {
	store := assets.NewStore(cfg.CacheDir)
	engine := pipeline.NewEngine()

	for lang, lc := range cfg.Languages {
		adapter, err := buildAdapter(lang, lc, store)
		if err != nil {
			return nil, errors.WithMessagef(err, "configuring language %q", lang)
		}
		engine.RegisterProcessor(lang, adapter)
	}

	for _, pc := range cfg.Pairs {
		pair := pipeline.LangPair{Source: pc.Source, Target: pc.Target}
		switch pc.Model {
		case "passthrough", "":
			pt := pipeline.NewPassthrough()
			engine.RegisterModel(pair, pt, pt)
		default:
			return nil, errors.Errorf("unknown model %q for pair %s-%s", pc.Model, pc.Source, pc.Target)
		}
	}
	return engine, nil
}

func buildAdapter(lang string, lc LanguageConfig, store *assets.Store) (*tokenizer.Adapter, error) {
	if len(lc.TokenizerCommand) == 0 {
		return nil, errors.New("tokenizer_command is required")
	}
	svc, err := tokenizer.StartProcess(lc.TokenizerCommand[0], lc.TokenizerCommand[1:]...)
	if err != nil {
		return nil, err
	}

	var opts []tokenizer.AdapterOption
	switch {
	case lc.SentencePieceModel != "":
		seg, err := subword.NewSentencePieceSegmenter(lc.SentencePieceModel)
		if err != nil {
			return nil, err
		}
		opts = append(opts, tokenizer.WithSegmenter(seg))
	case lc.SubwordCodes != "":
		codesPath := lc.SubwordCodes
		if lc.SubwordCodesURL != "" {
			codesPath, err = store.Resolve(lc.SubwordCodes, lc.SubwordCodesURL)
			if err != nil {
				return nil, err
			}
		}
		table, err := subword.TableFromFile(codesPath)
		if err != nil {
			return nil, err
		}
		opts = append(opts, tokenizer.WithSegmenter(subword.NewSegmenter(table)))
	}
	return tokenizer.NewAdapter(lang, svc, opts...), nil
}
