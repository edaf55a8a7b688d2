package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/helixir/metasearch-service/internal/domain"
	"github.com/helixir/metasearch-service/internal/fetcher"
	"github.com/helixir/metasearch-service/internal/observability"
)

// streamSearch handles GET /api/v1/search/stream (SSE).
//
// Headers are written lazily on the first event, so a query rejected
// before any event still gets a plain JSON 400. The stream is closed right
// after the done event.
func (s *Server) streamSearch(w http.ResponseWriter, r *http.Request) {
	q, err := parseStreamQuery(r)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	rc := http.NewResponseController(w)
	started := false

	emit := func(ev fetcher.Event) error {
		if !started {
			// Set SSE headers.
			w.Header().Set("Content-Type", "text/event-stream")
			w.Header().Set("Cache-Control", "no-cache")
			w.Header().Set("Connection", "keep-alive")
			w.Header().Set("X-Accel-Buffering", "no")
			w.WriteHeader(http.StatusOK)

			// The server write timeout would otherwise cut long sessions.
			if err := rc.SetWriteDeadline(time.Time{}); err != nil && !errors.Is(err, http.ErrNotSupported) {
				logger := observability.LoggerFromContext(r.Context(), s.logger)
				logger.Debug().Err(err).Msg("clear write deadline")
			}
			started = true
		}
		return sendSSEEvent(w, rc, ev)
	}

	err = s.searcher.Stream(r.Context(), q, emit)
	if err == nil {
		return
	}
	if !started {
		s.writeDomainError(w, r, err)
		return
	}

	logger := observability.LoggerFromContext(r.Context(), s.logger)
	if errors.Is(err, domain.ErrCancelled) {
		logger.Debug().Err(err).Msg("stream closed by client")
		return
	}
	logger.Error().Err(err).Msg("stream failed")
}

// sendSSEEvent writes a single SSE event and flushes it.
func sendSSEEvent(w http.ResponseWriter, rc *http.ResponseController, ev fetcher.Event) error {
	data, err := json.Marshal(ev.Payload)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", ev.Kind, err)
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Kind, data); err != nil {
		return err
	}
	return rc.Flush()
}

// parseStreamQuery builds a query from the stream URL parameters:
// query, type, limit, year_from, year_to, open_access and providers
// (comma separated or repeated).
func parseStreamQuery(r *http.Request) (domain.SearchQuery, error) {
	params := r.URL.Query()

	q := domain.SearchQuery{
		Query: params.Get("query"),
		Type:  domain.QueryType(strings.ToLower(params.Get("type"))),
	}

	var err error
	if q.Limit, err = intParam(params.Get("limit"), "limit"); err != nil {
		return domain.SearchQuery{}, err
	}
	if q.Filters.YearFrom, err = intParam(params.Get("year_from"), "year_from"); err != nil {
		return domain.SearchQuery{}, err
	}
	if q.Filters.YearTo, err = intParam(params.Get("year_to"), "year_to"); err != nil {
		return domain.SearchQuery{}, err
	}

	if v := params.Get("open_access"); v != "" {
		if q.Filters.OpenAccessOnly, err = strconv.ParseBool(v); err != nil {
			return domain.SearchQuery{}, domain.NewInvalidQueryError("open_access", "must be a boolean")
		}
	}

	var names []string
	for _, v := range params["providers"] {
		for _, name := range strings.Split(v, ",") {
			if name = strings.TrimSpace(name); name != "" {
				names = append(names, name)
			}
		}
	}
	if q.Filters.Providers, err = parseProviders(names); err != nil {
		return domain.SearchQuery{}, err
	}

	return q, nil
}

func intParam(v, name string) (int, error) {
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, domain.NewInvalidQueryError(name, "must be a non-negative integer")
	}
	return n, nil
}
