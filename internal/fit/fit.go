// Package fit ranks registered prototypes by how well they match an
// expression over a population of stored states.
package fit

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/danielpatrickdp/exprdiag/internal/blocker"
	"github.com/danielpatrickdp/exprdiag/internal/constraint"
	"github.com/danielpatrickdp/exprdiag/internal/expression"
	"github.com/danielpatrickdp/exprdiag/internal/prototype"
	"github.com/danielpatrickdp/exprdiag/internal/regime"
	"github.com/danielpatrickdp/exprdiag/internal/state"
	"go.uber.org/zap"
)

// #region service
// Service computes leaderboards and memoizes them by a structural hash of
// the expression, options and population. Safe for concurrent use.
type Service struct {
	config      Config
	registry    *prototype.Registry
	constraints *constraint.Analyzer
	logger      *zap.Logger

	mu    sync.Mutex
	cache map[string]*Leaderboard
}

// NewService creates a fit service. A nil logger discards output.
func NewService(config Config, registry *prototype.Registry, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		config:      config,
		registry:    registry,
		constraints: constraint.NewAnalyzer(registry.Model(), logger),
		logger:      logger,
		cache:       make(map[string]*Leaderboard),
	}
}

// Clear drops every memoized leaderboard.
func (s *Service) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache = make(map[string]*Leaderboard)
}

// Size is the number of memoized leaderboards.
func (s *Service) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.cache)
}

// #endregion service

// #region analyze
// AnalyzeAllPrototypeFit scores every candidate prototype over contexts.
// The population is the contexts inside the regime (declared, else inferred)
// or all contexts when there is none. Repeated calls with structurally equal
// inputs return the memoized leaderboard, which callers must not modify.
func (s *Service) AnalyzeAllPrototypeFit(e *expression.Expression, contexts []state.PsychState, opts Options) (*Leaderboard, error) {
	r := opts.Regime
	if r == nil {
		inferred, err := regime.InferFromExpression(s.registry.Model(), e)
		if err != nil {
			return nil, fmt.Errorf("infer regime: %w", err)
		}
		r = inferred
	}
	implied := expression.ComputeImpliedPrototype(e)
	threshold := s.threshold(opts, implied)

	key := s.key(e, contexts, opts.Filter, r, threshold)
	s.mu.Lock()
	if lb, ok := s.cache[key]; ok {
		s.mu.Unlock()
		s.logger.Debug("fit cache hit", zap.String("expression", e.ID))
		return lb, nil
	}
	s.mu.Unlock()

	lb := s.compute(e, contexts, opts.Filter, r, implied, threshold)

	s.mu.Lock()
	if prev, ok := s.cache[key]; ok {
		lb = prev
	} else {
		s.cache[key] = lb
	}
	s.mu.Unlock()
	return lb, nil
}

func (s *Service) threshold(opts Options, implied expression.Implied) float64 {
	if opts.Threshold != nil {
		return *opts.Threshold
	}
	if ref := implied.Reference; ref != nil && ref.Operator.Lower() && ref.Threshold > 0 {
		return ref.Threshold
	}
	return s.config.DefaultThreshold
}

func (s *Service) compute(e *expression.Expression, contexts []state.PsychState, f prototype.Filter, r *regime.Regime, implied expression.Implied, threshold float64) *Leaderboard {
	lb := &Leaderboard{
		ExpressionID: e.ID,
		Implied:      implied,
		Threshold:    threshold,
		Population:   PopulationGlobal,
		Regime:       r.String(),
	}
	population := contexts
	if r != nil {
		lb.Population = PopulationInRegime
		lb.RegimeInferred = r.Inferred
		population = make([]state.PsychState, 0, len(contexts))
		for _, ps := range contexts {
			if r.Contains(ps) {
				population = append(population, ps)
			}
		}
	}
	lb.PopulationSize = len(population)

	if f == (prototype.Filter{}) {
		f = prototype.Filter{HasEmotions: implied.HasEmotions, HasSexualStates: implied.HasSexualStates}
	}
	bounds := r.Bounds()
	for _, p := range s.registry.GetAllPrototypes(f) {
		entry := s.score(p, population, threshold)
		entry.Conflicts = s.constraints.AnalyzeAxisConstraints(p, bounds).Conflicts
		entry.IsReference = implied.Reference != nil && implied.Reference.PrototypeID == p.ID
		lb.Entries = append(lb.Entries, entry)
	}

	sort.SliceStable(lb.Entries, func(i, j int) bool {
		a, b := lb.Entries[i], lb.Entries[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		return a.PrototypeID < b.PrototypeID
	})
	for i := range lb.Entries {
		lb.Entries[i].Rank = i + 1
	}

	s.logger.Debug("prototype fit computed",
		zap.String("expression", e.ID),
		zap.String("population", lb.Population),
		zap.Int("population_size", lb.PopulationSize),
		zap.Int("candidates", len(lb.Entries)))
	return lb
}

func (s *Service) score(p *prototype.Prototype, population []state.PsychState, threshold float64) Entry {
	entry := Entry{PrototypeID: p.ID, Type: p.Type}
	values := make([]float64, 0, len(population))
	for _, ps := range population {
		if !p.GatePasses(ps) {
			values = append(values, 0)
			continue
		}
		entry.GatePassCount++
		v := p.Intensity(ps)
		values = append(values, v)
		if v >= threshold {
			entry.AboveCount++
		}
	}
	if n := len(population); n > 0 {
		entry.GatePassRate = float64(entry.GatePassCount) / float64(n)
		entry.PAboveThreshold = float64(entry.AboveCount) / float64(n)
	}
	sort.Float64s(values)
	entry.P10 = blocker.Quantile(values, 0.10)
	entry.P50 = blocker.Quantile(values, 0.50)
	entry.P90 = blocker.Quantile(values, 0.90)

	reach := 1.0
	if threshold > 0 {
		reach = math.Min(1, entry.P90/threshold)
	}
	entry.Score = s.config.GateWeight*entry.GatePassRate +
		s.config.AboveWeight*entry.PAboveThreshold +
		s.config.P90Weight*reach
	return entry
}

// #endregion analyze

// #region cache-key
// key hashes everything the leaderboard depends on. Contexts are hashed by
// value so that re-loaded snapshots hit the same entry.
func (s *Service) key(e *expression.Expression, contexts []state.PsychState, f prototype.Filter, r *regime.Regime, threshold float64) string {
	h := sha256.New()
	var parts []string
	for _, n := range e.Nodes {
		parts = append(parts, n.ID+"|"+n.Kind.String()+"|"+n.Raw)
	}
	fmt.Fprintf(h, "%s\n%s\n%v|%v|%v|%v\n",
		e.ID, strings.Join(parts, "\n"), f.HasEmotions, f.HasSexualStates,
		threshold, r != nil && r.Inferred)
	for _, name := range r.Axes() {
		iv, _ := r.Interval(name)
		fmt.Fprintf(h, "%s:%v:%v\n", name, iv.Lo, iv.Hi)
	}

	names := s.registry.Model().All()
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, uint64(len(contexts)))
	h.Write(buf)
	for _, ps := range contexts {
		for _, a := range names {
			v, _ := ps.Raw(a.Name)
			binary.LittleEndian.PutUint64(buf, math.Float64bits(v))
			h.Write(buf)
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}

// #endregion cache-key
