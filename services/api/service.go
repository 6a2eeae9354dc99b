package api

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/chainbound/bolt-relay/common"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	uberatomic "go.uber.org/atomic"
	"golang.org/x/time/rate"
)

const (
	// Router paths
	pathStatus = "/eth/v1/builder/status"

	pathSubmitConstraints = "/constraints/v1/builder/constraints"
	pathDelegate          = "/constraints/v1/builder/delegate"
	pathRevoke            = "/constraints/v1/builder/revoke"

	pathGetConstraints = "/constraints/v1/relay/constraints/{slot:[0-9]+}"
	pathVerifyProofs   = "/constraints/v1/relay/proofs/{slot:[0-9]+}"

	pathMetrics = "/metrics"

	RateLimitIntervalDefault = 10 * time.Millisecond
	RateLimitBurstDefault    = 100
)

var ErrServerAlreadyStarted = errors.New("server was already started")

type ServiceOpts struct {
	Log        *logrus.Entry
	ListenAddr string
	API        *ConstraintsAPI

	// Limiter throttles every route but the status and metrics endpoints.
	Limiter *rate.Limiter
}

// Service serves the ConstraintsAPI over HTTP.
type Service struct {
	opts ServiceOpts
	log  *logrus.Entry
	api  *ConstraintsAPI

	limiter *rate.Limiter

	srv        *http.Server
	srvStarted uberatomic.Bool
	srvStopped uberatomic.Bool
}

func NewService(opts ServiceOpts) (*Service, error) {
	if opts.API == nil {
		return nil, ErrMissingStore
	}

	log := opts.Log
	if log == nil {
		log = common.NewBoltLogger("API")
	}

	limiter := opts.Limiter
	if limiter == nil {
		limiter = rate.NewLimiter(rate.Every(RateLimitIntervalDefault), RateLimitBurstDefault)
	}

	return &Service{
		opts:    opts,
		log:     log,
		api:     opts.API,
		limiter: limiter,
	}, nil
}

func (s *Service) getRouter() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc(pathStatus, s.handleStatus).Methods(http.MethodGet)
	r.Handle(pathMetrics, promhttp.Handler()).Methods(http.MethodGet)

	limited := r.NewRoute().Subrouter()
	limited.Use(s.rateLimit)
	limited.HandleFunc(pathSubmitConstraints, s.handleSubmitConstraints).Methods(http.MethodPost)
	limited.HandleFunc(pathDelegate, s.handleDelegate).Methods(http.MethodPost)
	limited.HandleFunc(pathRevoke, s.handleRevoke).Methods(http.MethodPost)
	limited.HandleFunc(pathGetConstraints, s.handleGetConstraints).Methods(http.MethodGet)
	limited.HandleFunc(pathVerifyProofs, s.handleVerifyProofs).Methods(http.MethodPost)

	return r
}

// StartServer serves until the server is shut down.
func (s *Service) StartServer() error {
	if s.srvStarted.Swap(true) {
		return ErrServerAlreadyStarted
	}

	s.srv = &http.Server{
		Addr:    s.opts.ListenAddr,
		Handler: s.getRouter(),

		ReadTimeout:       5 * time.Second,
		ReadHeaderTimeout: 2 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	s.log.WithField("listenAddr", s.opts.ListenAddr).Info("starting constraints API server")
	err := s.srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops accepting requests and waits for the detached store writes.
func (s *Service) Shutdown(ctx context.Context) error {
	s.srvStopped.Store(true)
	if s.srv != nil {
		if err := s.srv.Shutdown(ctx); err != nil {
			return err
		}
	}

	done := make(chan struct{})
	go func() {
		s.api.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Service) RespondError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	resp := HTTPErrorResp{code, message}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.log.WithField("response", resp).WithError(err).Error("Couldn't write error response")
		http.Error(w, "", http.StatusInternalServerError)
	}
}

func (s *Service) RespondOK(w http.ResponseWriter, response any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		s.log.WithField("response", response).WithError(err).Error("Couldn't write OK response")
		http.Error(w, "", http.StatusInternalServerError)
	}
}

func (s *Service) respondAPIError(w http.ResponseWriter, err error) {
	s.RespondError(w, errorStatus(err), err.Error())
}

func (s *Service) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if !s.limiter.Allow() {
			s.RespondError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, req)
	})
}

// readBody reads at most one byte more than MaxRequestBodySize so oversized
// bodies are rejected by the decoder instead of silently truncated.
func (s *Service) readBody(req *http.Request) ([]byte, error) {
	var reader io.Reader = req.Body
	if req.Header.Get("Content-Encoding") == "gzip" {
		gz, err := gzip.NewReader(req.Body)
		if err != nil {
			return nil, err
		}
		defer gz.Close()
		reader = gz
	}
	return io.ReadAll(io.LimitReader(reader, MaxRequestBodySize+1))
}

func parseSlot(req *http.Request) (uint64, error) {
	return strconv.ParseUint(mux.Vars(req)["slot"], 10, 64)
}

func (s *Service) handleStatus(w http.ResponseWriter, req *http.Request) {
	if s.srvStopped.Load() {
		s.RespondError(w, http.StatusServiceUnavailable, "server is shutting down")
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Service) handleSubmitConstraints(w http.ResponseWriter, req *http.Request) {
	s.handleSubmission(w, req, s.api.SubmitConstraints)
}

func (s *Service) handleDelegate(w http.ResponseWriter, req *http.Request) {
	s.handleSubmission(w, req, s.api.Delegate)
}

func (s *Service) handleRevoke(w http.ResponseWriter, req *http.Request) {
	s.handleSubmission(w, req, s.api.Revoke)
}

func (s *Service) handleSubmission(w http.ResponseWriter, req *http.Request, submit func(context.Context, []byte, string) error) {
	body, err := s.readBody(req)
	if err != nil {
		s.log.WithError(err).Warn("could not read body")
		s.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := submit(req.Context(), body, req.Header.Get("Content-Type")); err != nil {
		s.respondAPIError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Service) handleGetConstraints(w http.ResponseWriter, req *http.Request) {
	slot, err := parseSlot(req)
	if err != nil {
		s.RespondError(w, http.StatusBadRequest, "invalid slot")
		return
	}

	constraints, err := s.api.GetConstraints(req.Context(), slot)
	if err != nil {
		s.respondAPIError(w, err)
		return
	}
	if constraints == nil {
		constraints = []*common.ConstraintsWithProofData{}
	}
	s.RespondOK(w, constraints)
}

func (s *Service) handleVerifyProofs(w http.ResponseWriter, req *http.Request) {
	slot, err := parseSlot(req)
	if err != nil {
		s.RespondError(w, http.StatusBadRequest, "invalid slot")
		return
	}

	body, err := s.readBody(req)
	if err != nil {
		s.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	payload := new(BidWithInclusionProofs)
	if err := decodeJSON(body, payload); err != nil {
		s.RespondError(w, http.StatusBadRequest, newAPIError(ErrDecode, err).Error())
		return
	}

	if err := s.api.VerifyBidInclusionProofs(req.Context(), slot, payload.Bid, payload.Proofs); err != nil {
		s.respondAPIError(w, err)
		return
	}
	s.RespondOK(w, NilResponse)
}
