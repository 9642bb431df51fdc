package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"snapnote/src/config"
)

var tinyPNG = append(append([]byte{}, pngMagic...), 0x00)

func TestValidatePNG(t *testing.T) {
	tests := []struct {
		name    string
		data    []byte
		wantErr bool
	}{
		{"ValidPNG", tinyPNG, false},
		{"InvalidMagic", []byte{0x00, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a}, true},
		{"TooShort", []byte{0x89, 'P', 'N', 'G'}, true},
		{"Empty", []byte{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validatePNG(tt.data)
			if (err != nil) != tt.wantErr {
				t.Errorf("validatePNG() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestReadInput(t *testing.T) {
	if _, err := readInput("-", strings.NewReader("")); !errors.Is(err, ErrEmptyInput) {
		t.Fatalf("empty stdin = %v", err)
	}
	data, err := readInput("-", bytes.NewReader(tinyPNG))
	if err != nil || !bytes.Equal(data, tinyPNG) {
		t.Fatalf("stdin = %v, %v", data, err)
	}
	if _, err := readInput(filepath.Join(t.TempDir(), "missing.png"), nil); err == nil {
		t.Fatal("expected error for missing file")
	}
	big := io.LimitReader(zeroReader{}, maxFileSize+10)
	if _, err := readInput("-", big); !errors.Is(err, ErrTooLarge) {
		t.Fatalf("oversized stdin = %v", err)
	}
}

type zeroReader struct{}

func (zeroReader) Read(p []byte) (int, error) {
	clear(p)
	return len(p), nil
}

func TestNewRootCmdParsesFlags(t *testing.T) {
	opts := &cliOptions{}
	cmd := newRootCmd(opts, nil, io.Discard, io.Discard)
	if err := cmd.ParseFlags([]string{"--file", "x.png", "--translate", "--lang", "German", "--json", "-v"}); err != nil {
		t.Fatalf("ParseFlags: %v", err)
	}
	if opts.filePath != "x.png" || !opts.translate || opts.language != "German" || !opts.jsonOutput || !opts.verbose {
		t.Fatalf("opts = %+v", opts)
	}
}

func TestNormalizeLegacyArgs(t *testing.T) {
	got := normalizeLegacyArgs([]string{"ocr-tool", "-file", "a.png", "-lang=German", "-v", "--json"})
	want := []string{"ocr-tool", "--file", "a.png", "--lang=German", "-v", "--json"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %q, want %q", got, want)
		}
	}
}

func fakeOpenRouter(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Model string `json:"model"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		content := "Hello world"
		if req.Model == "translator" {
			content = "Hallo Welt"
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]string{"content": content}}},
		})
	}))
}

func setupEnv(t *testing.T, baseURL string) {
	t.Helper()
	t.Setenv(config.APIKeyPathEnvVar, filepath.Join(t.TempDir(), "missing"))
	t.Setenv("OPENROUTER_API_KEY", "test-key")
	t.Setenv("OPENROUTER_BASE_URL", baseURL)
	t.Setenv("MODEL", "vision")
	t.Setenv("TRANSLATE_MODEL", "translator")
}

func TestRunPlainAndTranslate(t *testing.T) {
	srv := fakeOpenRouter(t)
	defer srv.Close()
	setupEnv(t, srv.URL)

	path := filepath.Join(t.TempDir(), "in.png")
	if err := os.WriteFile(path, tinyPNG, 0o600); err != nil {
		t.Fatal(err)
	}

	var stdout, stderr bytes.Buffer
	if err := runWithArgs([]string{"ocr-tool", "--file", path}, nil, &stdout, &stderr); err != nil {
		t.Fatalf("run: %v", err)
	}
	if stdout.String() != "Hello world" {
		t.Fatalf("stdout = %q", stdout.String())
	}
	if stderr.Len() != 0 {
		t.Fatalf("stderr without -v = %q", stderr.String())
	}

	stdout.Reset()
	args := []string{"ocr-tool", "--file", "-", "--translate", "--lang", "German", "--json", "-v"}
	if err := runWithArgs(args, bytes.NewReader(tinyPNG), &stdout, &stderr); err != nil {
		t.Fatalf("run: %v", err)
	}
	var result OCRResult
	if err := json.Unmarshal(stdout.Bytes(), &result); err != nil {
		t.Fatalf("json: %v\n%s", err, stdout.String())
	}
	if result.Text != "Hello world" || result.Translation != "Hallo Welt" || result.Language != "German" || result.Source != "-" {
		t.Fatalf("result = %+v", result)
	}
	if !strings.Contains(stderr.String(), "[verbose]") {
		t.Fatal("expected verbose output on stderr")
	}
}

func TestRunRejectsNonPNG(t *testing.T) {
	srv := fakeOpenRouter(t)
	defer srv.Close()
	setupEnv(t, srv.URL)

	var stdout bytes.Buffer
	err := runWithArgs([]string{"ocr-tool", "--file", "-"}, strings.NewReader("GIF89a"), &stdout, io.Discard)
	if !errors.Is(err, ErrNotPNG) {
		t.Fatalf("err = %v, want ErrNotPNG", err)
	}
	if stdout.Len() != 0 {
		t.Fatalf("stdout on error = %q", stdout.String())
	}
}
