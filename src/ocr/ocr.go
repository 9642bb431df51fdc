// Package ocr tracks recognition result views and builds the recognition,
// translation and export jobs that run on the worker pool. It owns no
// goroutines: completions are applied by the caller on the event loop.
package ocr

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"

	"github.com/google/uuid"

	"snapnote/src/notes"
)

// Phase is the state of one asynchronous result.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseLoading
	PhaseSuccess
	PhaseError
)

func (p Phase) String() string {
	switch p {
	case PhaseLoading:
		return "loading"
	case PhaseSuccess:
		return "success"
	case PhaseError:
		return "error"
	default:
		return "idle"
	}
}

// Result is a loading, success or error value.
type Result struct {
	Phase Phase
	Text  string
	Err   string
}

func loading() Result            { return Result{Phase: PhaseLoading} }
func success(text string) Result { return Result{Phase: PhaseSuccess, Text: text} }
func failure(err error) Result   { return Result{Phase: PhaseError, Err: err.Error()} }
func (r Result) Loading() bool   { return r.Phase == PhaseLoading }
func (r Result) Succeeded() bool { return r.Phase == PhaseSuccess }

var (
	ErrUnknownView    = errors.New("result view not found")
	ErrNotRecognized  = errors.New("no recognized text yet")
	ErrExportInFlight = errors.New("export already in progress")
)

// Kind identifies a job.
type Kind int

const (
	KindRecognize Kind = iota
	KindTranslate
	KindExport
)

func (k Kind) String() string {
	switch k {
	case KindTranslate:
		return "translate"
	case KindExport:
		return "export"
	default:
		return "recognize"
	}
}

// Recognizer extracts text from a PNG.
type Recognizer interface {
	QueryVision(ctx context.Context, png []byte) (string, error)
}

// Translator renders text in another language.
type Translator interface {
	Translate(ctx context.Context, text, lang string) (string, error)
}

// View is one recognition result window.
type View struct {
	ID          string
	PNG         []byte
	Recognition Result
	Translation Result
	Language    string
	Export      Result
	// NoteID is set after a successful export.
	NoteID string

	generation int
}

// Generation returns the current translation generation.
func (v *View) Generation() int { return v.generation }

// Job is a unit of work for the worker pool.
type Job struct {
	Kind       Kind
	ViewID     string
	Generation int
	Run        func(ctx context.Context) (string, error)
}

// Completion is the outcome of a Job, applied on the event loop.
type Completion struct {
	Kind       Kind
	ViewID     string
	Generation int
	Text       string
	Err        error
}

// Complete pairs a job with its result.
func (j Job) Complete(text string, err error) Completion {
	return Completion{Kind: j.Kind, ViewID: j.ViewID, Generation: j.Generation, Text: text, Err: err}
}

// Pipeline holds the open views.
type Pipeline struct {
	rec   Recognizer
	tr    Translator
	store notes.Store
	lang  string
	views map[string]*View
}

// NewPipeline wires the remote services and the note store.
func NewPipeline(rec Recognizer, tr Translator, store notes.Store, lang string) *Pipeline {
	if lang == "" {
		lang = "English"
	}
	return &Pipeline{rec: rec, tr: tr, store: store, lang: lang, views: make(map[string]*View)}
}

// Open creates a view in the loading state and returns its recognition job.
func (p *Pipeline) Open(png []byte) (*View, Job) {
	v := &View{ID: uuid.NewString(), PNG: png, Recognition: loading(), Language: p.lang}
	p.views[v.ID] = v
	job := Job{
		Kind:   KindRecognize,
		ViewID: v.ID,
		Run: func(ctx context.Context) (string, error) {
			return p.rec.QueryVision(ctx, png)
		},
	}
	return v, job
}

// Get returns an open view.
func (p *Pipeline) Get(id string) (*View, bool) {
	v, ok := p.views[id]
	return v, ok
}

// Len returns the number of open views.
func (p *Pipeline) Len() int { return len(p.views) }

// IDs lists the open views in id order.
func (p *Pipeline) IDs() []string {
	ids := make([]string, 0, len(p.views))
	for id := range p.views {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Close forgets a view. Later completions for it are dropped.
func (p *Pipeline) Close(id string) bool {
	if _, ok := p.views[id]; !ok {
		return false
	}
	delete(p.views, id)
	return true
}

// Translate starts a translation of the recognized text. Re-invoking it
// supersedes any translation still in flight.
func (p *Pipeline) Translate(id string) (Job, error) {
	v, ok := p.views[id]
	if !ok {
		return Job{}, ErrUnknownView
	}
	if !v.Recognition.Succeeded() {
		return Job{}, ErrNotRecognized
	}
	v.generation++
	v.Translation = loading()
	text, lang := v.Recognition.Text, v.Language
	return Job{
		Kind:       KindTranslate,
		ViewID:     id,
		Generation: v.generation,
		Run: func(ctx context.Context) (string, error) {
			return p.tr.Translate(ctx, text, lang)
		},
	}, nil
}

// Export starts writing the recognized text to a note.
func (p *Pipeline) Export(id string) (Job, error) {
	v, ok := p.views[id]
	if !ok {
		return Job{}, ErrUnknownView
	}
	if !v.Recognition.Succeeded() {
		return Job{}, ErrNotRecognized
	}
	if v.Export.Loading() {
		return Job{}, ErrExportInFlight
	}
	v.Export = loading()
	in := notes.NoteInput{
		Title:   notes.TitleFromText(v.Recognition.Text, 60),
		Content: v.Recognition.Text,
		Tags:    []string{"ocr"},
		Images:  []string{},
	}
	return Job{
		Kind:   KindExport,
		ViewID: id,
		Run: func(ctx context.Context) (string, error) {
			if err := ctx.Err(); err != nil {
				return "", err
			}
			n, err := p.store.CreateNote(in)
			if err != nil {
				return "", fmt.Errorf("failed to save note: %w", err)
			}
			return n.ID, nil
		},
	}, nil
}

// Apply folds a completion into its view. It returns the view and true when
// the completion was current; completions for closed views or superseded
// translations are dropped.
func (p *Pipeline) Apply(c Completion) (*View, bool) {
	v, ok := p.views[c.ViewID]
	if !ok {
		log.Printf("ocr: dropping %s result for closed view %s", c.Kind, c.ViewID)
		return nil, false
	}
	switch c.Kind {
	case KindRecognize:
		if !v.Recognition.Loading() {
			return nil, false
		}
		v.Recognition = resultOf(c)
	case KindTranslate:
		if c.Generation != v.generation || !v.Translation.Loading() {
			log.Printf("ocr: dropping stale translation gen %d (current %d) for view %s", c.Generation, v.generation, c.ViewID)
			return nil, false
		}
		v.Translation = resultOf(c)
	case KindExport:
		if !v.Export.Loading() {
			return nil, false
		}
		v.Export = resultOf(c)
		if c.Err == nil {
			v.NoteID = c.Text
		}
	}
	return v, true
}

func resultOf(c Completion) Result {
	if c.Err != nil {
		return failure(c.Err)
	}
	return success(c.Text)
}
