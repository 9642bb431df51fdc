package runtimeinit

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"snapnote/src/clipboard"
	"snapnote/src/config"
	"snapnote/src/llm"
	"snapnote/src/logutil"
	"snapnote/src/notes"
	"snapnote/src/notification"
	"snapnote/src/ocr"
)

var ErrConfig = errors.New("configuration error")

const pingTimeout = 10 * time.Second

type Options struct {
	LoadOptions  config.LoadOptions
	SetupLogging func(bool)
	// Ping checks the API before returning.
	Ping bool
	// ShowBlockingError reports startup failures in a modal dialog.
	ShowBlockingError bool
	// NeedClipboard initializes the system clipboard.
	NeedClipboard bool
}

// Runtime is everything the binaries share after startup.
type Runtime struct {
	Config    *config.Config
	LLM       *llm.Client
	Clipboard clipboard.Service
	Notes     *notes.FileStore
}

// Pipeline builds the recognition pipeline over rt's collaborators.
func (rt *Runtime) Pipeline() *ocr.Pipeline {
	return ocr.NewPipeline(rt.LLM, rt.LLM, rt.Notes, rt.Config.TargetLanguage)
}

func Bootstrap(opts Options) (*Runtime, error) {
	rt, err := bootstrap(opts)
	if err != nil && opts.ShowBlockingError {
		notification.ShowBlockingError("SnapNote failed to start", err.Error())
	}
	return rt, err
}

func bootstrap(opts Options) (*Runtime, error) {
	cfg, err := config.LoadWithOptions(opts.LoadOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if opts.SetupLogging != nil {
		opts.SetupLogging(cfg.EnableFileLogging)
	}

	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: OPENROUTER_API_KEY is required. Checked key file %s and OPENROUTER_API_KEY env var", ErrConfig, cfg.APIKeyPath)
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("%w: MODEL is required. Please set it in your .env file", ErrConfig)
	}
	log.Printf("Configuration loaded: model=%s translate_model=%s key=%s", cfg.Model, cfg.TranslateModel, logutil.RedactKey(cfg.APIKey))

	client := llm.New(llm.Config{
		APIKey:         cfg.APIKey,
		Model:          cfg.Model,
		TranslateModel: cfg.TranslateModel,
		Providers:      cfg.Providers,
		BaseURL:        cfg.BaseURL,
		Timeout:        time.Duration(cfg.OCRDeadlineSec) * time.Second,
	})
	if opts.Ping {
		ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
		defer cancel()
		if err := client.Ping(ctx); err != nil {
			return nil, fmt.Errorf("startup check failed: %w", err)
		}
		log.Printf("LLM ping succeeded")
	}

	rt := &Runtime{
		Config: cfg,
		LLM:    client,
		Notes:  notes.NewFileStore(cfg.NotesPath),
	}
	if opts.NeedClipboard {
		if err := clipboard.Init(); err != nil {
			return nil, fmt.Errorf("failed to initialize clipboard: %w", err)
		}
		rt.Clipboard = clipboard.System{}
	}
	return rt, nil
}
