package pipeline

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/canto-cli/canto/internal/catalog"
	"github.com/canto-cli/canto/internal/models"
	"github.com/canto-cli/canto/internal/ops"
	"github.com/rs/zerolog"
)

// MinIdleTimeout is the floor on the idle-timeout so the monitor can never
// busy-loop.
const MinIdleTimeout = time.Second

// DefaultIdleTimeout applies when no idle-timeout is configured.
const DefaultIdleTimeout = 30 * time.Second

// Stats summarizes one pipeline run.
type Stats struct {
	Items  int
	Errors int
	// SignalCode is non-zero when a signal stopped the stream early.
	SignalCode int
}

// Runner owns the batch loop and the shared catalog connection. Exactly two
// tasks run during processing: the worker (read, dispatch, write, strictly
// one item at a time in input order) and the idle monitor. Both coordinate
// through mu; the monitor only ever touches the connection, never an
// in-flight handler call, because the worker holds mu for the whole of each
// dispatch.
type Runner struct {
	client      catalog.Client
	dispatcher  *ops.Dispatcher
	log         zerolog.Logger
	idleTimeout time.Duration
	pretty      bool
	unbuffered  bool

	// implicitOp applies to bare targets; envelopes name their own.
	implicitOp string

	mu       sync.Mutex
	lastUsed time.Time
	done     chan struct{}
}

// Config configures a pipeline run.
type Config struct {
	Client      catalog.Client
	Logger      zerolog.Logger
	IdleTimeout time.Duration
	ImplicitOp  string
	// DefaultArgs applies to bare targets, which carry no arguments of
	// their own.
	DefaultArgs *models.Arguments
	Pretty      bool
	Unbuffered  bool
}

// NewRunner validates the configuration and builds a runner.
func NewRunner(cfg Config) (*Runner, error) {
	if cfg.IdleTimeout == 0 {
		cfg.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.IdleTimeout < MinIdleTimeout {
		return nil, fmt.Errorf("idle timeout %s is below the minimum %s", cfg.IdleTimeout, MinIdleTimeout)
	}
	log := cfg.Logger.With().Str("component", "pipeline").Logger()
	dispatcher := ops.NewDispatcher(cfg.Client, cfg.Logger)
	if cfg.DefaultArgs != nil {
		dispatcher.SetDefaultArguments(cfg.DefaultArgs)
	}
	return &Runner{
		client:      cfg.Client,
		dispatcher:  dispatcher,
		log:         log,
		idleTimeout: cfg.IdleTimeout,
		pretty:      cfg.Pretty,
		unbuffered:  cfg.Unbuffered,
		implicitOp:  cfg.ImplicitOp,
		done:        make(chan struct{}),
	}, nil
}

// Run consumes the input stream to exhaustion (or until a signal) and emits
// one JSON value per parsed item, in input order. Item-level failures are
// embedded into their item and do not stop the stream; only connection and
// stream I/O failures are fatal.
func (r *Runner) Run(ctx context.Context, in io.Reader, out io.Writer, sig *SignalState) (*Stats, error) {
	reader := NewItemReader(in, r.log)
	writer := bufio.NewWriter(out)
	stats := &Stats{}

	r.mu.Lock()
	r.lastUsed = time.Now()
	r.mu.Unlock()
	go r.monitor()
	defer func() {
		close(r.done)
		r.mu.Lock()
		if r.client.Connected() {
			if err := r.client.Disconnect(); err != nil {
				r.log.Warn().Err(err).Msg("failed to close catalog connection")
			}
		}
		r.mu.Unlock()
	}()

	for {
		if sig != nil {
			if code := sig.ExitCode(); code != 0 {
				r.log.Info().Int("exit_code", code).Msg("stopping on signal")
				stats.SignalCode = code
				break
			}
		}

		raw, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return stats, fmt.Errorf("failed to read input stream: %w", err)
		}
		stats.Items++

		item, parseErr := models.ParseWorkItem(raw)
		if parseErr != nil {
			stats.Errors++
			if err := r.emit(writer, errorValue(parseErr)); err != nil {
				return stats, err
			}
			continue
		}

		result, itemErr, fatal := r.process(ctx, item)
		if fatal != nil {
			// Connection failures are not embedded per-item; there may be
			// nothing meaningful to embed into. Log and abort the stream.
			r.log.Error().Err(fatal).Msg("abandoning stream")
			return stats, fatal
		}
		if itemErr != nil {
			stats.Errors++
		}
		if err := r.emit(writer, outputValue(item, result, itemErr)); err != nil {
			return stats, err
		}
	}

	if err := writer.Flush(); err != nil {
		return stats, fmt.Errorf("failed to flush output stream: %w", err)
	}
	r.log.Info().Int("items", stats.Items).Int("errors", stats.Errors).Msg("stream complete")
	return stats, nil
}

// process dispatches one item while holding the connection lock, opening
// the connection first if the idle monitor closed it (or it was never
// opened). A connection failure here is pipeline-fatal, returned as the
// third value; handler failures are item-local, returned as the second.
func (r *Runner) process(ctx context.Context, item *models.WorkItem) (interface{}, *models.CantoError, error) {
	r.mu.Lock()
	defer func() {
		r.lastUsed = time.Now()
		r.mu.Unlock()
	}()

	if !r.client.Connected() {
		if err := r.client.Connect(ctx); err != nil {
			return nil, nil, connectionFailure(err)
		}
		r.log.Debug().Msg("opened catalog connection")
	}
	result, itemErr := r.dispatcher.Dispatch(ctx, item, r.implicitOp)
	return result, itemErr, nil
}

// ConnectionError marks a failure to establish or maintain the shared
// session; the pipeline treats it as fatal to the remaining stream.
type ConnectionError struct {
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("catalog connection failed: %v", e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

func connectionFailure(err error) *ConnectionError {
	return &ConnectionError{Err: err}
}

// emit serializes one output value, optionally pretty and flushed per item.
func (r *Runner) emit(w *bufio.Writer, value interface{}) error {
	enc := json.NewEncoder(w)
	if r.pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(value); err != nil {
		return fmt.Errorf("failed to write output stream: %w", err)
	}
	if r.unbuffered {
		if err := w.Flush(); err != nil {
			return fmt.Errorf("failed to flush output stream: %w", err)
		}
	}
	return nil
}

// outputValue merges a dispatch outcome back into its work item. Envelopes
// carry the result (or error) home inside the envelope; bare targets emit
// the handler result alone, or the bare target with the error embedded.
func outputValue(item *models.WorkItem, result interface{}, itemErr *models.CantoError) interface{} {
	if item.Envelope != nil {
		env := item.Envelope
		env.Err = itemErr
		if itemErr == nil && result != nil {
			if raw, err := json.Marshal(result); err == nil {
				env.Result = raw
			} else {
				env.Err = &models.CantoError{Code: catalog.CodeInternal,
					Message: fmt.Sprintf("failed to serialize result: %v", err)}
			}
		}
		return env
	}

	if itemErr != nil {
		return map[string]interface{}{
			"collection":  item.Bare.Collection,
			"data_object": item.Bare.DataObject,
			"error":       itemErr,
		}
	}
	return result
}

func errorValue(err error) interface{} {
	return map[string]interface{}{
		"error": &models.CantoError{Code: catalog.CodeInvalidArgument, Message: err.Error()},
	}
}

// monitor closes the shared connection once it has been idle for the
// configured timeout. It takes the same lock the worker holds around each
// dispatch, so it can never close the connection under an in-flight call; a
// long idle gap instead closes the connection proactively, and the worker
// transparently reopens it for the next item that needs one.
func (r *Runner) monitor() {
	for {
		r.mu.Lock()
		idle := time.Since(r.lastUsed)
		wait := r.idleTimeout - idle
		if wait <= 0 {
			if r.client.Connected() {
				if err := r.client.Disconnect(); err != nil {
					r.log.Warn().Err(err).Msg("idle disconnect failed")
				} else {
					r.log.Debug().Dur("idle", idle).Msg("closed idle catalog connection")
				}
			}
			wait = r.idleTimeout
		}
		r.mu.Unlock()

		select {
		case <-r.done:
			return
		case <-time.After(wait):
		}
	}
}
