package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"snapnote/src/config"
	"snapnote/src/logutil"
	"snapnote/src/runtimeinit"
)

const (
	maxFileSizeMB = 10
	maxFileSize   = maxFileSizeMB * 1024 * 1024
)

var pngMagic = []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a}

var (
	ErrEmptyInput = errors.New("input file is empty")
	ErrTooLarge   = fmt.Errorf("input file exceeds maximum size of %d MB", maxFileSizeMB)
	ErrNotPNG     = errors.New("input is not a valid PNG file (invalid magic number)")
)

type cliOptions struct {
	filePath   string
	jsonOutput bool
	verbose    bool
	apiKeyPath string
	translate  bool
	language   string
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	return runWithArgs(normalizeLegacyArgs(os.Args), os.Stdin, os.Stdout, os.Stderr)
}

func runWithArgs(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		args = []string{"ocr-tool"}
	}

	opts := &cliOptions{}
	cmd := newRootCmd(opts, stdin, stdout, stderr)
	cmd.SetArgs(args[1:])
	return cmd.Execute()
}

func newRootCmd(opts *cliOptions, stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "ocr-tool",
		Short:         "Recognize and optionally translate text in a PNG",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithOptions(*opts, stdin, stdout, stderr)
		},
	}

	cmd.Flags().StringVar(&opts.filePath, "file", "", "Path to PNG file (use '-' for stdin)")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Output results as JSON")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "Verbose output to stderr")
	cmd.Flags().StringVar(&opts.apiKeyPath, "api-key-path", "", "Path to API key file (highest precedence)")
	cmd.Flags().BoolVar(&opts.translate, "translate", false, "Translate the recognized text")
	cmd.Flags().StringVar(&opts.language, "lang", "", "Target language for --translate (default TARGET_LANGUAGE)")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

type verboseLogger struct {
	w  io.Writer
	on bool
}

func (v verboseLogger) Printf(format string, args ...any) {
	if v.on {
		fmt.Fprintf(v.w, "[verbose] "+format+"\n", args...)
	}
}

func runWithOptions(opts cliOptions, stdin io.Reader, stdout, stderr io.Writer) error {
	// Configure logging BEFORE any other operations.
	if opts.verbose {
		log.SetOutput(stderr)
	} else {
		log.SetOutput(io.Discard)
	}
	vlog := verboseLogger{w: stderr, on: opts.verbose}
	vlog.Printf("Starting OCR tool")

	rt, err := runtimeinit.Bootstrap(runtimeinit.Options{
		LoadOptions: config.LoadOptions{APIKeyPathOverride: opts.apiKeyPath},
	})
	if err != nil {
		return err
	}
	cfg := rt.Config
	vlog.Printf("Config loaded: Model=%s TranslateModel=%s", cfg.Model, cfg.TranslateModel)
	vlog.Printf("Effective API key path: %s (key %s)", cfg.APIKeyPath, logutil.RedactKey(cfg.APIKey))

	imageData, err := readInput(opts.filePath, stdin)
	if err != nil {
		return err
	}
	vlog.Printf("Read %d bytes", len(imageData))
	if err := validatePNG(imageData); err != nil {
		return err
	}
	vlog.Printf("PNG validation passed")

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.OCRDeadlineSec)*time.Second)
	defer cancel()

	startTime := time.Now()
	text, err := rt.LLM.QueryVision(ctx, imageData)
	if err != nil {
		vlog.Printf("OCR failed after %v: %v", time.Since(startTime), err)
		return fmt.Errorf("OCR failed: %w", err)
	}
	vlog.Printf("OCR extracted %d characters: %s", len(text), logutil.Sanitize(text, 0))

	result := OCRResult{Text: text, Source: opts.filePath, CharCount: len(text)}
	if opts.translate {
		lang := strings.TrimSpace(opts.language)
		if lang == "" {
			lang = cfg.TargetLanguage
		}
		translated, err := rt.LLM.Translate(ctx, text, lang)
		if err != nil {
			return fmt.Errorf("translation failed: %w", err)
		}
		vlog.Printf("Translated into %s (%d characters)", lang, len(translated))
		result.Translation = translated
		result.Language = lang
	}
	result.Duration = time.Since(startTime).Seconds()
	result.Timestamp = time.Now().UTC().Format(time.RFC3339)

	return outputResult(stdout, result, opts.jsonOutput)
}

func readInput(filePath string, stdin io.Reader) ([]byte, error) {
	var data []byte
	var err error
	if filePath == "-" {
		data, err = io.ReadAll(io.LimitReader(stdin, maxFileSize+1))
		if err != nil {
			return nil, fmt.Errorf("failed to read from stdin: %w", err)
		}
	} else {
		data, err = os.ReadFile(filePath)
		if err != nil {
			return nil, fmt.Errorf("failed to read file %s: %w", filePath, err)
		}
	}
	if len(data) == 0 {
		return nil, ErrEmptyInput
	}
	if len(data) > maxFileSize {
		return nil, ErrTooLarge
	}
	return data, nil
}

func validatePNG(data []byte) error {
	if len(data) < len(pngMagic) || !bytes.Equal(data[:len(pngMagic)], pngMagic) {
		return ErrNotPNG
	}
	return nil
}

func normalizeLegacyArgs(args []string) []string {
	if len(args) == 0 {
		return args
	}
	long := []string{"file", "json", "verbose", "api-key-path", "translate", "lang"}
	normalized := make([]string, len(args))
	copy(normalized, args)
	for i := 1; i < len(normalized); i++ {
		arg := normalized[i]
		for _, name := range long {
			if arg == "-"+name || strings.HasPrefix(arg, "-"+name+"=") {
				normalized[i] = "-" + arg
				break
			}
		}
	}
	return normalized
}

type OCRResult struct {
	Text        string  `json:"text"`
	Translation string  `json:"translation,omitempty"`
	Language    string  `json:"language,omitempty"`
	Source      string  `json:"source"`
	Timestamp   string  `json:"timestamp"`
	Duration    float64 `json:"duration_seconds"`
	CharCount   int     `json:"character_count"`
}

func outputResult(w io.Writer, result OCRResult, jsonOutput bool) error {
	if jsonOutput {
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(result); err != nil {
			return fmt.Errorf("failed to encode JSON output: %w", err)
		}
		return nil
	}
	if result.Translation != "" {
		_, err := fmt.Fprintf(w, "%s\n\n%s", result.Text, result.Translation)
		return err
	}
	_, err := fmt.Fprint(w, result.Text)
	return err
}
