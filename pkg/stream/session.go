package stream

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/go-logr/logr"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/l7mp/scorenet/pkg/score"
	"github.com/l7mp/scorenet/pkg/util"
)

type options struct {
	logger     logr.Logger
	registerer prometheus.Registerer
}

// Option configures a session factory.
type Option func(*options)

// WithLogger sets the logger of the factory and its sessions.
func WithLogger(log logr.Logger) Option { return func(o *options) { o.logger = log } }

// WithRegisterer registers the network metrics of the sessions on the registerer.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) { o.registerer = reg }
}

// SessionFactory builds independent sessions for one set of constraints. The constraints are
// validated when the factory is created, so configuration errors surface before solving.
type SessionFactory[S score.Score[S]] struct {
	provider    ConstraintProvider[S]
	cfg         Config
	opts        options
	constraints []string
	log         logr.Logger
}

// NewSessionFactory validates the config and the constraints.
func NewSessionFactory[S score.Score[S]](provider ConstraintProvider[S], cfg Config, opts ...Option) (*SessionFactory[S], error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger.GetSink() == nil {
		o.logger = logr.Discard()
	}
	if provider == nil {
		return nil, newConfigError("", "nil constraint provider")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	f := &SessionFactory[S]{provider: provider, cfg: cfg, opts: o, log: o.logger.WithName("session-factory")}
	// a dry run: nothing is registered
	b, _, err := f.build(options{logger: logr.Discard()}, false)
	if err != nil {
		return nil, err
	}
	f.constraints = util.Map(func(n *ScoringNode[S]) string { return n.constraint }, b.scoring)
	slices.Sort(f.constraints)

	f.log.V(2).Info("session factory created", "constraints", len(f.constraints), "nodes", len(b.nodes),
		"environment-mode", cfg.EnvironmentMode)
	return f, nil
}

// Constraints returns the constraint names in ascending order.
func (f *SessionFactory[S]) Constraints() []string { return f.constraints }

func (f *SessionFactory[S]) build(opts options, fullAssert bool) (*Builder[S], *Network, error) {
	b := newBuilder[S](f.cfg, fullAssert, opts.logger.WithName("builder"))
	if err := f.provider(b); err != nil {
		return nil, nil, fmt.Errorf("constraint provider failed: %w", err)
	}
	net, err := b.build(opts)
	if err != nil {
		return nil, nil, err
	}
	return b, net, nil
}

// NewSession builds a new network with an empty working solution.
func (f *SessionFactory[S]) NewSession() (*Session[S], error) {
	return f.newSession(f.opts, f.cfg.fullAssert())
}

func (f *SessionFactory[S]) newSession(opts options, fullAssert bool) (*Session[S], error) {
	id := uuid.New().String()
	opts.logger = opts.logger.WithName("session").WithValues("session", id)
	b, net, err := f.build(opts, fullAssert)
	if err != nil {
		return nil, err
	}
	s := &Session[S]{
		id:         id,
		factory:    f,
		net:        net,
		acc:        b.acc,
		scoring:    b.scoring,
		fullAssert: fullAssert,
		log:        opts.logger,
	}
	s.log.V(4).Info("session created", "nodes", len(b.nodes))
	return s, nil
}

// Session is the working-solution side of a network: it receives fact changes, flushes them and
// exposes the score. A session is not safe for concurrent use.
type Session[S score.Score[S]] struct {
	id         string
	factory    *SessionFactory[S]
	net        *Network
	acc        *ScoreAccumulator[S]
	scoring    []*ScoringNode[S]
	fullAssert bool
	log        logr.Logger
}

// ID returns the unique session id.
func (s *Session[S]) ID() string { return s.id }

// Network returns the network of the session.
func (s *Session[S]) Network() *Network { return s.net }

// Insert adds a fact to the working solution. The change takes effect at the next flush.
func (s *Session[S]) Insert(fact any) error { return s.net.Insert(fact) }

// Update notifies the session that a fact was modified in place.
func (s *Session[S]) Update(fact any) error { return s.net.Update(fact) }

// Retract removes a fact from the working solution.
func (s *Session[S]) Retract(fact any) error { return s.net.Retract(fact) }

// Flush propagates the pending changes. In FULL_ASSERT mode the resulting score is verified
// against a from-scratch calculation.
func (s *Session[S]) Flush() error {
	if err := s.net.Flush(); err != nil {
		return err
	}
	if s.fullAssert {
		return s.assertScore()
	}
	return nil
}

// Score returns the score as of the last flush.
func (s *Session[S]) Score() S { return s.acc.Score() }

// CalculateScore flushes and returns the score.
func (s *Session[S]) CalculateScore() (S, error) {
	if err := s.Flush(); err != nil {
		var zero S
		return zero, err
	}
	return s.acc.Score(), nil
}

// MatchCount returns the number of live constraint matches.
func (s *Session[S]) MatchCount() int { return s.acc.MatchCount() }

// Recalculate discards all derived state and computes the score from scratch: every fact is
// retracted and flushed, the accumulator is reset and the facts are inserted again.
func (s *Session[S]) Recalculate() (S, error) {
	var zero S
	if err := s.Flush(); err != nil {
		return zero, err
	}
	facts := s.net.facts()
	s.log.V(4).Info("full recalculation", "facts", len(facts))

	for _, f := range facts {
		if err := s.net.Retract(f); err != nil {
			return zero, err
		}
	}
	if err := s.net.Flush(); err != nil {
		return zero, err
	}
	if s.acc.MatchCount() != 0 || !s.acc.Score().IsZero() {
		s.log.Info("score not zero after retracting every fact", "score", s.acc.Score().String(),
			"matches", s.acc.MatchCount())
	}
	s.acc.reset()
	for _, n := range s.scoring {
		n.reset()
	}

	for _, f := range facts {
		if err := s.net.Insert(f); err != nil {
			return zero, err
		}
	}
	return s.CalculateScore()
}

// assertScore compares the working score with the score of a fresh session holding the same
// facts.
func (s *Session[S]) assertScore() error {
	fresh, err := s.factory.newSession(options{logger: logr.Discard()}, false)
	if err != nil {
		return err
	}
	for _, f := range s.net.facts() {
		if err := fresh.Insert(f); err != nil {
			return err
		}
	}
	expected, err := fresh.CalculateScore()
	if err != nil {
		return err
	}
	if working := s.acc.Score(); working.Compare(expected) != 0 {
		err := &ScoreCorruptionError{Working: working.String(), FromScratch: expected.String()}
		s.log.Error(err, "score corruption")
		return err
	}
	return nil
}

// ConstraintMatchTotals returns the match count and score of every constraint, by name.
func (s *Session[S]) ConstraintMatchTotals() []ConstraintMatchTotal[S] {
	ret := make([]ConstraintMatchTotal[S], 0, len(s.scoring))
	for _, n := range s.scoring {
		ret = append(ret, n.Total())
	}
	slices.SortFunc(ret, func(a, b ConstraintMatchTotal[S]) int { return cmp.Compare(a.Constraint, b.Constraint) })
	return ret
}

// Justifications returns the live constraint matches, sorted by constraint. It returns nil
// unless constraint matching is enabled in the config.
func (s *Session[S]) Justifications() []ConstraintMatch[S] {
	if !s.factory.cfg.ConstraintMatchEnabled {
		return nil
	}
	ret := []ConstraintMatch[S]{}
	for _, n := range s.scoring {
		ret = append(ret, n.Justifications()...)
	}
	sortMatches(ret)
	return ret
}
