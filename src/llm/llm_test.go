package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
)

func chatServer(t *testing.T, status int, body string, seen *ChatRequest) (*httptest.Server, *int32) {
	t.Helper()
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer k" {
			t.Errorf("Authorization = %q", got)
		}
		if seen != nil {
			if err := json.NewDecoder(r.Body).Decode(seen); err != nil {
				t.Errorf("decode request: %v", err)
			}
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func TestMissingCredentialsFailFast(t *testing.T) {
	srv, calls := chatServer(t, 200, `{}`, nil)
	c := New(Config{Model: "m", BaseURL: srv.URL})
	if _, err := c.QueryVision(context.Background(), []byte{1}); !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("QueryVision err = %v", err)
	}
	if _, err := c.Translate(context.Background(), "x", "French"); !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("Translate err = %v", err)
	}
	if err := c.Ping(context.Background()); !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("Ping err = %v", err)
	}
	if _, err := New(Config{APIKey: "k", BaseURL: srv.URL}).QueryVision(context.Background(), []byte{1}); !errors.Is(err, ErrMissingModel) {
		t.Fatalf("missing model err = %v", err)
	}
	if n := atomic.LoadInt32(calls); n != 0 {
		t.Fatalf("network attempted %d times", n)
	}
}

func TestQueryVisionSendsDataURI(t *testing.T) {
	var seen ChatRequest
	srv, _ := chatServer(t, 200, `{"choices":[{"message":{"content":"Hello\nworld</image>"}}]}`, &seen)
	c := New(Config{APIKey: "k", Model: "vision", BaseURL: srv.URL, Providers: []string{"a", "b"}})

	text, err := c.QueryVision(context.Background(), []byte{0x89, 'P', 'N', 'G'})
	if err != nil {
		t.Fatalf("QueryVision: %v", err)
	}
	if text != "Hello\nworld" {
		t.Fatalf("text = %q", text)
	}
	if seen.Model != "vision" || len(seen.Messages) != 1 || len(seen.Messages[0].Content) != 2 {
		t.Fatalf("request = %+v", seen)
	}
	img := seen.Messages[0].Content[1]
	if img.Type != "image_url" || !strings.HasPrefix(img.ImageURL.URL, "data:image/png;base64,") {
		t.Fatalf("image content = %+v", img)
	}
	if seen.Provider == nil || len(seen.Provider.Order) != 2 || *seen.Provider.AllowFallbacks {
		t.Fatalf("provider preferences = %+v", seen.Provider)
	}
}

func TestQueryVisionNoText(t *testing.T) {
	srv, _ := chatServer(t, 200, `{"choices":[{"message":{"content":"NO_TEXT_FOUND"}}]}`, nil)
	_, err := New(Config{APIKey: "k", Model: "m", BaseURL: srv.URL}).QueryVision(context.Background(), []byte{1})
	if !errors.Is(err, ErrNoText) {
		t.Fatalf("err = %v, want ErrNoText", err)
	}
}

func TestFailuresAreTerminal(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"api error body", 401, `{"error":{"message":"bad key","type":"auth","code":401}}`, "bad key"},
		{"bare status", 503, `upstream down`, "status 503"},
		{"malformed json", 200, `{"choices":`, "decode"},
		{"no choices", 200, `{"choices":[]}`, "no choices"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, calls := chatServer(t, tt.status, tt.body, nil)
			_, err := New(Config{APIKey: "k", Model: "m", BaseURL: srv.URL}).QueryVision(context.Background(), []byte{1})
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("err = %v, want containing %q", err, tt.want)
			}
			if n := atomic.LoadInt32(calls); n != 1 {
				t.Fatalf("calls = %d, want exactly one attempt", n)
			}
		})
	}
}

func TestTranslate(t *testing.T) {
	var seen ChatRequest
	srv, _ := chatServer(t, 200, `{"choices":[{"message":{"content":"  Bonjour  "}}]}`, &seen)
	c := New(Config{APIKey: "k", Model: "vision", TranslateModel: "text", BaseURL: srv.URL + "/"})
	out, err := c.Translate(context.Background(), "Hello", "French")
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if out != "Bonjour" {
		t.Fatalf("out = %q", out)
	}
	if seen.Model != "text" {
		t.Fatalf("model = %q, want translate model", seen.Model)
	}
	if p := seen.Messages[0].Content[0].Text; !strings.Contains(p, "French") || !strings.HasSuffix(p, "Hello") {
		t.Fatalf("prompt = %q", p)
	}
	if _, err := c.Translate(context.Background(), "   ", "French"); !errors.Is(err, ErrEmptyInput) {
		t.Fatalf("blank text err = %v", err)
	}
}

func TestContextCancelled(t *testing.T) {
	srv, _ := chatServer(t, 200, `{"choices":[{"message":{"content":"x"}}]}`, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(Config{APIKey: "k", Model: "m", BaseURL: srv.URL}).QueryVision(ctx, []byte{1})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestPing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`{"data":[]}`))
	}))
	defer srv.Close()
	if err := New(Config{APIKey: "k", BaseURL: srv.URL}).Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}
}
