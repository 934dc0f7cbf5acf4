package pipeline

import (
	"errors"
	"fmt"
	"time"

	"papergraph/config"
	"papergraph/graphdb"
	"papergraph/logger"
	"papergraph/storage"
	"papergraph/tools"
)

type Options struct {
	Model          string
	ChatModel      string
	MaxInputTokens int
	ExcerptChars   int
	ChatHistory    int
	SyncDebounce   time.Duration
	// SyncQueue is set when a worker drains queued graph syncs.
	SyncQueue bool
}

func OptionsFromConfig(conf config.Configuration) Options {
	return Options{
		Model:          conf.LLM.Model,
		ChatModel:      conf.LLM.ChatModel,
		MaxInputTokens: conf.LLM.MaxInputTokens,
		ExcerptChars:   conf.LLM.ExcerptChars,
		ChatHistory:    conf.LLM.ChatHistory,
		SyncDebounce:   time.Duration(conf.Sync.DebounceSeconds) * time.Second,
		SyncQueue:      conf.SyncEnabled(),
	}
}

// Pipeline wires the stages an upload goes through. LLM may be nil when no
// provider is configured; every LLM-backed call then fails with
// tools.ErrLLMNotConfigured.
type Pipeline struct {
	LLM       tools.Completer
	Extractor tools.TextExtractor
	Store     storage.ObjectStore
	Graph     *graphdb.Syncer
	Opts      Options
	Log       *logger.Logger
}

func New(llm tools.Completer, extractor tools.TextExtractor, store storage.ObjectStore, graph *graphdb.Syncer, opts Options, log *logger.Logger) *Pipeline {
	if log == nil {
		log = logger.Nop()
	}
	if graph == nil {
		graph = graphdb.NewSyncer(nil, 0, log)
	}
	if extractor == nil {
		extractor = tools.PDFExtractor{}
	}
	return &Pipeline{LLM: llm, Extractor: extractor, Store: store, Graph: graph, Opts: opts, Log: log}
}

func (p *Pipeline) completer() (tools.Completer, error) {
	if p.LLM == nil {
		return nil, tools.ErrLLMNotConfigured
	}
	return p.LLM, nil
}

// StageError tells which upload stage failed.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string { return fmt.Sprintf("%s: %v", e.Stage, e.Err) }
func (e *StageError) Unwrap() error { return e.Err }

func stageErr(stage string, err error) error {
	return &StageError{Stage: stage, Err: err}
}

// Stage returns the failing stage of err or "" when err is not a StageError.
func Stage(err error) string {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage
	}
	return ""
}
