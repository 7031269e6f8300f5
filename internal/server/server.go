// Package server exposes pricing, Greeks and implied volatility over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/contactkeval/option-greeks/internal/config"
	"github.com/contactkeval/option-greeks/internal/logger"
	"github.com/contactkeval/option-greeks/internal/metrics"
	"github.com/contactkeval/option-greeks/internal/pricing"
)

type Server struct {
	defaults config.DefaultsConfig
	solver   pricing.SolverOptions
	metrics  *metrics.Collector
	router   *gin.Engine
}

// New builds the router. A nil collector disables /metrics and
// request instrumentation.
func New(cfg config.Config, m *metrics.Collector) (*Server, error) {
	solver, err := cfg.Solver.Options()
	if err != nil {
		return nil, err
	}
	if _, err := pricing.ParseKind(cfg.Defaults.Kind); err != nil {
		return nil, err
	}

	s := &Server{defaults: cfg.Defaults, solver: solver, metrics: m, router: gin.New()}
	s.router.Use(gin.Recovery())
	if m != nil {
		s.router.Use(m.Middleware())
		s.router.GET("/metrics", gin.WrapH(m.Handler()))
	}
	s.router.GET("/health", s.health)

	api := s.router.Group("/api/v1/options")
	{
		api.POST("/price", s.price)
		api.POST("/greeks", s.greeks)
		api.POST("/implied-vol", s.impliedVol)
	}
	return s, nil
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.router, ReadHeaderTimeout: 5 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// OptionRequest describes one European option. Rate, dividend and kind
// fall back to the configured defaults when omitted.
type OptionRequest struct {
	Spot       float64  `json:"spot"`
	Strike     float64  `json:"strike"`
	Expiry     float64  `json:"expiry"` // years
	Volatility float64  `json:"volatility"`
	Rate       *float64 `json:"rate"`
	Dividend   *float64 `json:"dividend"`
	Kind       string   `json:"kind"`
}

// GreeksRequest adds optional extra sensitivities, each named by one
// variable (first order) or two (second order), e.g. ["S","sigma"].
type GreeksRequest struct {
	OptionRequest
	Sensitivities [][]string `json:"sensitivities"`
}

// ImpliedVolRequest inverts MarketPrice; Volatility is ignored.
type ImpliedVolRequest struct {
	OptionRequest
	MarketPrice *float64         `json:"market_price"`
	Solver      *SolverOverrides `json:"solver"`
}

// SolverOverrides replaces individual configured solver options for one call.
type SolverOverrides struct {
	InitialGuess  *float64 `json:"initial_guess"`
	Tolerance     *float64 `json:"tolerance"`
	MaxIterations *int     `json:"max_iterations"`
	Policy        *string  `json:"policy"`
}

type errorResponse struct {
	Error  string                    `json:"error"`
	Kind   string                    `json:"kind"`
	Result *pricing.ImpliedVolResult `json:"result,omitempty"`
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) price(c *gin.Context) {
	var req OptionRequest
	if !bind(c, &req) {
		return
	}
	p, err := s.params(req)
	if err != nil {
		fail(c, err, nil)
		return
	}
	v, err := pricing.Price(p)
	if err != nil {
		fail(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{"price": v})
}

func (s *Server) greeks(c *gin.Context) {
	var req GreeksRequest
	if !bind(c, &req) {
		return
	}
	p, err := s.params(req.OptionRequest)
	if err != nil {
		fail(c, err, nil)
		return
	}
	g, err := pricing.Greeks(p)
	if err != nil {
		fail(c, err, nil)
		return
	}

	resp := gin.H{"greeks": g}
	if len(req.Sensitivities) > 0 {
		extra := make(map[string]float64, len(req.Sensitivities))
		for _, wrt := range req.Sensitivities {
			v, err := sensitivity(p, wrt)
			if err != nil {
				fail(c, err, nil)
				return
			}
			extra[strings.Join(wrt, ",")] = v
		}
		resp["sensitivities"] = extra
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) impliedVol(c *gin.Context) {
	var req ImpliedVolRequest
	if !bind(c, &req) {
		return
	}
	if req.MarketPrice == nil {
		fail(c, &pricing.ParameterError{Name: "market_price", Reason: "required"}, nil)
		return
	}
	p, err := s.params(req.OptionRequest)
	if err != nil {
		fail(c, err, nil)
		return
	}
	opts, err := s.solverOptions(req.Solver)
	if err != nil {
		fail(c, err, nil)
		return
	}

	res, err := pricing.ImpliedVolatility(p, *req.MarketPrice, opts)
	if s.metrics != nil {
		s.metrics.ObserveSolve(pricing.ErrorKind(err), res.Iterations)
	}
	if err != nil {
		var partial *pricing.ImpliedVolResult
		if res.Iterations > 0 {
			partial = &res
		}
		fail(c, err, partial)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) params(req OptionRequest) (pricing.OptionParameters, error) {
	kindName := req.Kind
	if kindName == "" {
		kindName = s.defaults.Kind
	}
	kind, err := pricing.ParseKind(kindName)
	if err != nil {
		return pricing.OptionParameters{}, err
	}
	p := pricing.OptionParameters{
		Spot:       req.Spot,
		Strike:     req.Strike,
		Expiry:     req.Expiry,
		Volatility: req.Volatility,
		Rate:       s.defaults.RiskFreeRate,
		Dividend:   s.defaults.DividendYield,
		Kind:       kind,
	}
	if req.Rate != nil {
		p.Rate = *req.Rate
	}
	if req.Dividend != nil {
		p.Dividend = *req.Dividend
	}
	return p, nil
}

func (s *Server) solverOptions(o *SolverOverrides) (pricing.SolverOptions, error) {
	opts := s.solver
	if o == nil {
		return opts, nil
	}
	if o.InitialGuess != nil {
		opts.InitialGuess = *o.InitialGuess
	}
	if o.Tolerance != nil {
		opts.Tolerance = *o.Tolerance
	}
	if o.MaxIterations != nil {
		opts.MaxIterations = *o.MaxIterations
	}
	if o.Policy != nil {
		policy, err := pricing.ParseDomainPolicy(*o.Policy)
		if err != nil {
			return opts, &pricing.ParameterError{Name: "policy", Reason: err.Error()}
		}
		opts.Policy = policy
	}
	return opts, nil
}

func sensitivity(p pricing.OptionParameters, wrt []string) (float64, error) {
	switch len(wrt) {
	case 1:
		return pricing.Derivative(p, pricing.Variable(wrt[0]))
	case 2:
		return pricing.SecondDerivative(p, pricing.Variable(wrt[0]), pricing.Variable(wrt[1]))
	default:
		return 0, &pricing.ParameterError{
			Name: "sensitivities", Value: float64(len(wrt)),
			Reason: "each entry names one or two variables",
		}
	}
}

func bind(c *gin.Context, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error(), Kind: pricing.ErrorKind(pricing.ErrInvalidParameter)})
		return false
	}
	return true
}

func fail(c *gin.Context, err error, partial *pricing.ImpliedVolResult) {
	kind := pricing.ErrorKind(err)
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logger.Errorf("%s %s: %v", c.Request.Method, c.FullPath(), err)
	} else {
		logger.Debugf("%s %s: %v", c.Request.Method, c.FullPath(), err)
	}
	c.JSON(status, errorResponse{Error: err.Error(), Kind: kind, Result: partial})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, pricing.ErrInvalidParameter),
		errors.Is(err, pricing.ErrUnsupportedOptionKind),
		errors.Is(err, pricing.ErrUnsupportedDerivativeVariable):
		return http.StatusBadRequest
	case errors.Is(err, pricing.ErrNonConvergent),
		errors.Is(err, pricing.ErrOutOfDomain):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
