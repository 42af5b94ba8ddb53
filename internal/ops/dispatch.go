package ops

import (
	"context"
	"fmt"

	"github.com/canto-cli/canto/internal/catalog"
	"github.com/canto-cli/canto/internal/models"
	"github.com/canto-cli/canto/internal/query"
	"github.com/rs/zerolog"
)

// Handler processes one work item against the catalog and returns a
// JSON-serializable result.
type Handler func(ctx context.Context, d *Dispatcher, item *models.WorkItem, flags *Flags) (interface{}, error)

var handlers = map[string]Handler{
	models.OpList:      handleList,
	models.OpChmod:     handleChmod,
	models.OpChecksum:  handleChecksum,
	models.OpMetaQuery: handleMetaQuery,
	models.OpMetaMod:   handleMetaMod,
	models.OpGet:       handleGet,
	models.OpPut:       handlePut,
	models.OpMove:      handleMove,
	models.OpRemove:    handleRemove,
	models.OpMkColl:    handleMkColl,
	models.OpRmColl:    handleRmColl,
}

// Dispatcher resolves operation names to handlers and carries the shared
// collaborators handlers need.
type Dispatcher struct {
	client   catalog.Client
	search   *query.Orchestrator
	log      zerolog.Logger
	defaults *models.Arguments
}

// NewDispatcher creates a dispatcher over a catalog client.
func NewDispatcher(client catalog.Client, log zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		client: client,
		search: query.NewOrchestrator(client, log),
		log:    log.With().Str("component", "dispatch").Logger(),
	}
}

// SetDefaultArguments installs arguments applied to bare targets, which
// carry none of their own. Envelopes always use their embedded arguments.
func (d *Dispatcher) SetDefaultArguments(args *models.Arguments) {
	d.defaults = args
}

// Dispatch routes one work item. Bare targets apply implicitOp; envelopes
// name their own operation. A failure is returned as an embeddable error
// record, never as a Go panic or a fatal condition: only the pipeline
// decides what ends the stream.
func (d *Dispatcher) Dispatch(ctx context.Context, item *models.WorkItem, implicitOp string) (interface{}, *models.CantoError) {
	opName := implicitOp
	if item.Envelope != nil && item.Envelope.Operation != "" {
		opName = item.Envelope.Operation
	}
	if opName == "" {
		return nil, itemError(fmt.Errorf("work item names no operation and none is implied"))
	}

	handler, ok := handlers[opName]
	if !ok {
		return nil, itemError(fmt.Errorf("unrecognized operation %q", opName))
	}

	target := item.GetTarget()
	if target == nil {
		return nil, itemError(fmt.Errorf("work item has no target"))
	}
	if err := target.Validate(); err != nil {
		return nil, itemError(err)
	}

	if item.Bare != nil && d.defaults != nil {
		item.Defaults = d.defaults
	}
	flags, err := ParseFlags(item.Args())
	if err != nil {
		return nil, itemError(err)
	}

	d.log.Debug().Str("operation", opName).Str("path", target.Path()).Msg("dispatching work item")
	result, err := handler(ctx, d, item, flags)
	if err != nil {
		return nil, itemError(err)
	}
	return result, nil
}

// itemError converts a handler failure to the embeddable error record,
// preserving the catalog's own code when the failure originated there.
func itemError(err error) *models.CantoError {
	return &models.CantoError{Code: catalog.ErrorCode(err), Message: err.Error()}
}

// resolveExisting resolves a target's path and requires it to exist. A path
// that exists but classifies as neither a collection nor a data object is a
// fatal classification error from the catalog itself.
func (d *Dispatcher) resolveExisting(ctx context.Context, t *models.Target) (*catalog.PathInfo, error) {
	info, err := d.client.ResolvePath(ctx, t.Path())
	if err != nil {
		return nil, err
	}
	if !info.Exists {
		return nil, catalog.NewError(catalog.CodeItemNotFound, "path %q does not exist", t.Path())
	}
	return info, nil
}

// pathResult is the minimal result object for an operation on one path.
func pathResult(info *catalog.PathInfo) map[string]interface{} {
	result := map[string]interface{}{query.LabelCollection: info.Collection}
	if info.Kind == catalog.KindDataObject {
		result[query.LabelDataObject] = info.Name
	}
	return result
}
