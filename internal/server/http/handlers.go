package httpserver

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/helixir/metasearch-service/internal/domain"
	"github.com/helixir/metasearch-service/internal/observability"
)

const maxRequestBodySize = 1 << 20 // 1 MB limit for request bodies

// search handles POST /api/v1/search.
func (s *Server) search(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if !s.decode(w, r, &req) {
		return
	}

	q, err := req.toQuery()
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	res, err := s.searcher.Search(r.Context(), q)
	if err != nil {
		s.logFailure(r, err, "search failed")
		s.writeDomainError(w, r, err)
		return
	}

	s.writeJSON(w, r, http.StatusOK, res)
}

// resolve handles POST /api/v1/resolve.
func (s *Server) resolve(w http.ResponseWriter, r *http.Request) {
	var req resolveRequest
	if !s.decode(w, r, &req) {
		return
	}

	src, err := s.searcher.Resolve(r.Context(), req.Identifier)
	if err != nil {
		s.logFailure(r, err, "resolve failed")
		s.writeDomainError(w, r, err)
		return
	}

	s.writeJSON(w, r, http.StatusOK, src)
}

// listProviders handles GET /api/v1/providers. Providers are listed in
// fan-out order.
func (s *Server) listProviders(w http.ResponseWriter, r *http.Request) {
	var states map[domain.Provider]string
	if s.breakers != nil {
		states = s.breakers.States()
	}

	resp := listProvidersResponse{Providers: []providerResponse{}}
	for _, a := range s.registry.All() {
		p := providerResponse{
			Provider: string(a.Provider()),
			Name:     a.Name(),
			Enabled:  a.IsEnabled(),
			Circuit:  states[a.Provider()],
		}
		if p.Enabled {
			resp.Enabled++
		}
		resp.Providers = append(resp.Providers, p)
	}

	s.writeJSON(w, r, http.StatusOK, resp)
}

// decode reads and validates a JSON request body into v, writing a 400
// response and returning false on failure.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	defer r.Body.Close()
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBodySize))
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, "failed to read request body")
		return false
	}

	if err := json.Unmarshal(body, v); err != nil {
		s.writeError(w, r, http.StatusBadRequest, "invalid JSON request body")
		return false
	}

	if err := s.validate.Struct(v); err != nil {
		s.writeError(w, r, http.StatusBadRequest, validationMessage(err))
		return false
	}
	return true
}

// logFailure logs unexpected handler errors. Client errors are not logged.
func (s *Server) logFailure(r *http.Request, err error, msg string) {
	if errors.Is(err, domain.ErrInvalidQuery) || errors.Is(err, domain.ErrNotFound) {
		return
	}
	logger := observability.LoggerFromContext(r.Context(), s.logger)
	logger.Error().Err(err).Msg(msg)
}

// writeDomainError maps domain errors to HTTP status codes. Provider
// details never reach the client.
func (s *Server) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	if err == nil {
		return
	}

	var iqe *domain.InvalidQueryError
	var ve *domain.ValidationError

	switch {
	case errors.As(err, &iqe):
		s.writeError(w, r, http.StatusBadRequest, iqe.Error())
	case errors.As(err, &ve):
		s.writeError(w, r, http.StatusBadRequest, ve.Error())
	case errors.Is(err, domain.ErrInvalidQuery):
		s.writeError(w, r, http.StatusBadRequest, "invalid query")
	case errors.Is(err, domain.ErrNotFound):
		s.writeError(w, r, http.StatusNotFound, "source not found")
	case errors.Is(err, domain.ErrRateLimited):
		s.writeError(w, r, http.StatusTooManyRequests, "rate limited")
	case errors.Is(err, domain.ErrCancelled):
		s.writeError(w, r, http.StatusConflict, "operation cancelled")
	default:
		s.writeError(w, r, http.StatusInternalServerError, "internal server error")
	}
}
