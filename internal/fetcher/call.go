package fetcher

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/helixir/metasearch-service/internal/domain"
	"github.com/helixir/metasearch-service/internal/observability"
	"github.com/helixir/metasearch-service/internal/papersources"
)

// outcome is the settled result of one adapter call.
type outcome struct {
	provider domain.Provider
	records  []papersources.RawRecord
	err      error
	duration time.Duration
}

// panicError reports an adapter that panicked.
type panicError struct {
	value any
	stack []byte
}

func (e *panicError) Error() string {
	return fmt.Sprintf("adapter panicked: %v", e.value)
}

// call runs q against one adapter in isolation: it gets its own timeout,
// goes through the provider's circuit breaker, and a panic inside the
// adapter becomes a failed outcome.
func (f *SourceFetcher) call(ctx context.Context, a papersources.Adapter, q domain.SearchQuery) outcome {
	p := a.Provider()
	op := papersources.OpFor(q.Type)

	ctx, span := f.tracer.Start(ctx, "adapter."+op, trace.WithAttributes(
		attribute.String("provider", string(p)),
	))
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, f.opts.AdapterTimeout)
	defer cancel()

	logger := observability.WithProviderContext(observability.LoggerFromContext(ctx, f.logger), string(p), op)
	out := outcome{provider: p}

	start := time.Now()
	exec := func() error {
		records, err := invoke(ctx, a, q)
		if err != nil {
			return err
		}
		out.records = records
		return nil
	}
	var err error
	if f.breakers != nil {
		err = f.breakers.Execute(p, exec)
	} else {
		err = exec()
	}
	out.duration = time.Since(start)

	if err != nil {
		var adapterErr *domain.AdapterError
		if errors.As(err, &adapterErr) {
			out.err = err
		} else {
			out.err = domain.NewAdapterError(p, op, err)
		}

		kind := errorType(err)
		f.metrics.RecordProviderFailure(string(p), op, kind, out.duration.Seconds())
		span.RecordError(err)
		span.SetStatus(codes.Error, kind)

		ev := logger.Warn().Err(err).Str("error_type", kind).Dur("duration", out.duration)
		var panicErr *panicError
		if errors.As(err, &panicErr) {
			ev = ev.Bytes("stack", panicErr.stack)
		}
		ev.Msg("paper source failed")
		return out
	}

	f.metrics.RecordProviderSuccess(string(p), op, len(out.records), out.duration.Seconds())
	span.SetAttributes(attribute.Int("records", len(out.records)))
	logger.Debug().
		Int("records", len(out.records)).
		Dur("duration", out.duration).
		Msg("paper source responded")
	return out
}

// invoke dispatches q to the adapter and extracts its records, converting
// a panic into an error.
func invoke(ctx context.Context, a papersources.Adapter, q domain.SearchQuery) (records []papersources.RawRecord, err error) {
	defer func() {
		if r := recover(); r != nil {
			records = nil
			err = &panicError{value: r, stack: debug.Stack()}
		}
	}()

	resp := papersources.Run(ctx, a, q)
	if !resp.Success {
		if resp.Err == nil {
			return nil, errors.New("unsuccessful response without error")
		}
		return nil, resp.Err
	}
	return papersources.ExtractRecords(a, resp.Data), nil
}
