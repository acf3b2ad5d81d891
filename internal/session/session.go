// Package session runs "pick names" rounds: it presents a sampled batch,
// tracks which names the user chose, and on submit turns the choice into
// rating updates against a single group opponent.
package session

import (
	"context"
	stderrors "errors"
	"slices"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/hpungsan/cradle/internal/errors"
	"github.com/hpungsan/cradle/internal/name"
	"github.com/hpungsan/cradle/internal/rating"
	"github.com/hpungsan/cradle/internal/sampler"
)

const (
	DefaultMaxSelections = 5
	DefaultRoundSize     = 10

	// defaultParallelism bounds concurrent rating writes during Submit.
	defaultParallelism = 4
)

// State is the round lifecycle.
type State int

const (
	Idle State = iota
	Presenting
	Submitted
)

func (s State) String() string {
	switch s {
	case Presenting:
		return "presenting"
	case Submitted:
		return "submitted"
	default:
		return "idle"
	}
}

// Store is the part of the name store a session needs.
type Store interface {
	// Population returns every name in category as one consistent snapshot.
	Population(ctx context.Context, category name.Category) ([]name.Name, error)

	// Evaluate atomically replaces the stored rating of id with next(current)
	// and counts one evaluation. Returns the record as written.
	Evaluate(ctx context.Context, id string, next func(current int) int) (*name.Name, error)
}

// Round is a snapshot of the names on screen.
type Round struct {
	Category      name.Category `json:"category"`
	State         string        `json:"state"`
	Presented     []name.Name   `json:"presented"`
	Chosen        []name.Name   `json:"chosen"`
	MaxSelections int           `json:"max_selections"`
}

// Outcome is the result of one name's rating update.
type Outcome struct {
	ID      string `json:"id"`
	Text    string `json:"text"`
	Winner  bool   `json:"winner"`
	Before  int    `json:"before"`
	After   int    `json:"after,omitempty"`
	Updated bool   `json:"updated"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

// SubmitResult reports every name's outcome. Failures never hide successes.
type SubmitResult struct {
	GroupRating int       `json:"group_rating"`
	Outcomes    []Outcome `json:"outcomes"`
	Updated     int       `json:"updated"`
	Failed      int       `json:"failed"`
}

// Session is the state machine for one category. It is safe for concurrent use.
type Session struct {
	store       Store
	category    name.Category
	sampler     *sampler.Sampler
	calc        rating.Calculator
	maxSelect   int
	roundSize   int
	parallelism int
	log         zerolog.Logger

	mu        sync.Mutex
	state     State
	presented []name.Name
	chosen    []name.Name
}

// Option configures a Session.
type Option func(*Session)

// WithSampler sets the sampler used by Load.
func WithSampler(s *sampler.Sampler) Option {
	return func(sess *Session) { sess.sampler = s }
}

// WithCalculator sets the rating calculator used by Submit.
func WithCalculator(c rating.Calculator) Option {
	return func(sess *Session) { sess.calc = c }
}

// WithMaxSelections caps how many names can be chosen per round.
func WithMaxSelections(n int) Option {
	return func(sess *Session) {
		if n > 0 {
			sess.maxSelect = n
		}
	}
}

// WithRoundSize sets how many names a round presents.
func WithRoundSize(n int) Option {
	return func(sess *Session) {
		if n > 0 {
			sess.roundSize = n
		}
	}
}

// WithParallelism bounds concurrent store writes during Submit.
func WithParallelism(n int) Option {
	return func(sess *Session) {
		if n > 0 {
			sess.parallelism = n
		}
	}
}

// WithLogger sets the logger for persistence failures.
func WithLogger(l zerolog.Logger) Option {
	return func(sess *Session) { sess.log = l }
}

// New returns an idle session for category.
func New(store Store, category name.Category, opts ...Option) *Session {
	s := &Session{
		store:       store,
		category:    category,
		calc:        rating.Default(),
		maxSelect:   DefaultMaxSelections,
		roundSize:   DefaultRoundSize,
		parallelism: defaultParallelism,
		log:         zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.sampler == nil {
		s.sampler = sampler.New(nil)
	}
	s.log = s.log.With().Str("category", string(category)).Logger()
	return s
}

// Category returns the category this session rates.
func (s *Session) Category() name.Category { return s.category }

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Load samples a fresh round and discards any current choices.
// On success the session is Presenting. Returns CONFLICT while a round is
// being submitted; Submit loads the next round itself.
func (s *Session) Load(ctx context.Context) (*Round, error) {
	if s.State() == Submitted {
		return nil, errSubmitting()
	}
	return s.load(ctx, false)
}

func errSubmitting() error {
	return errors.NewConflict("round is being submitted")
}

// load installs a freshly sampled round. Only the submit that owns the
// Submitted state may replace its round.
func (s *Session) load(ctx context.Context, submitting bool) (*Round, error) {
	population, err := s.store.Population(ctx, s.category)
	if err != nil {
		return nil, err
	}
	picked := s.sampler.SelectRound(population, s.roundSize)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Submitted && !submitting {
		return nil, errSubmitting()
	}
	s.presented = picked
	s.chosen = nil
	s.state = Presenting
	return s.snapshot(), nil
}

// Round returns a copy of the current round.
func (s *Session) Round() *Round {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

func (s *Session) snapshot() *Round {
	return &Round{
		Category:      s.category,
		State:         s.state.String(),
		Presented:     append([]name.Name{}, s.presented...),
		Chosen:        append([]name.Name{}, s.chosen...),
		MaxSelections: s.maxSelect,
	}
}

// Select moves id from presented to chosen.
// It is a no-op returning false when the cap is reached, id is not presented,
// or no round is being presented.
func (s *Session) Select(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Presenting || len(s.chosen) >= s.maxSelect {
		return false
	}
	i := indexOf(s.presented, id)
	if i < 0 {
		return false
	}
	s.chosen = append(s.chosen, s.presented[i])
	s.presented = slices.Delete(s.presented, i, i+1)
	return true
}

// Deselect moves id from chosen back to presented. No-op returning false otherwise.
func (s *Session) Deselect(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Presenting {
		return false
	}
	i := indexOf(s.chosen, id)
	if i < 0 {
		return false
	}
	s.presented = append(s.presented, s.chosen[i])
	s.chosen = slices.Delete(s.chosen, i, i+1)
	return true
}

func indexOf(names []name.Name, id string) int {
	return slices.IndexFunc(names, func(n name.Name) bool { return n.ID == id })
}

type update struct {
	n        name.Name
	winner   bool
	opponent int
}

// plan computes the opponent of every name in the round.
// Chosen names are winners; everything still presented is a loser.
func (s *Session) plan(winners, losers []name.Name) (int, []update) {
	if len(winners)+len(losers) == 0 {
		return 0, nil
	}
	group := rating.GroupRating(name.Ratings(winners), name.Ratings(losers))

	updates := make([]update, 0, len(winners)+len(losers))
	for _, n := range winners {
		updates = append(updates, update{n: n, winner: true, opponent: group})
	}
	for _, n := range losers {
		updates = append(updates, update{n: n, winner: false, opponent: group})
	}
	return group, updates
}

// Submit applies the round's rating updates and loads the next round.
//
// Each name is written through Store.Evaluate, concurrently and in no
// particular order. A failed write is reported in its Outcome and does not
// stop the others. The returned error is non-nil only when the round could
// not be submitted at all or the next round could not be loaded; in the
// latter case the result is still returned and the session is Idle.
func (s *Session) Submit(ctx context.Context) (*SubmitResult, error) {
	s.mu.Lock()
	switch s.state {
	case Idle:
		s.mu.Unlock()
		return nil, errors.NewConflict("no round loaded")
	case Submitted:
		s.mu.Unlock()
		return nil, errSubmitting()
	}
	winners := append([]name.Name{}, s.chosen...)
	losers := append([]name.Name{}, s.presented...)
	s.state = Submitted
	s.mu.Unlock()

	group, updates := s.plan(winners, losers)
	result := &SubmitResult{
		GroupRating: group,
		Outcomes:    make([]Outcome, len(updates)),
	}

	var g errgroup.Group
	g.SetLimit(s.parallelism)
	for i, u := range updates {
		g.Go(func() error {
			result.Outcomes[i] = s.apply(ctx, u)
			return nil
		})
	}
	_ = g.Wait()

	for _, o := range result.Outcomes {
		if o.Updated {
			result.Updated++
		} else {
			result.Failed++
		}
	}

	if _, err := s.load(ctx, true); err != nil {
		s.mu.Lock()
		s.state = Idle
		s.presented, s.chosen = nil, nil
		s.mu.Unlock()
		return result, err
	}
	return result, nil
}

func (s *Session) apply(ctx context.Context, u update) Outcome {
	out := Outcome{ID: u.n.ID, Text: u.n.Text, Winner: u.winner, Before: u.n.Rating}

	before := u.n.Rating
	next := func(current int) int {
		before = current
		if u.winner {
			w, _ := s.calc.UpdateRatings(current, u.opponent)
			return w
		}
		_, l := s.calc.UpdateRatings(u.opponent, current)
		return l
	}

	written, err := s.store.Evaluate(ctx, u.n.ID, next)
	if err != nil {
		out.Code, out.Message = string(errors.CodeOf(err)), err.Error()
		var cErr *errors.CradleError
		if stderrors.As(err, &cErr) {
			out.Message = cErr.Message
		}
		s.log.Error().Err(err).Str("id", u.n.ID).Str("text", u.n.Text).Msg("rating update failed")
		return out
	}

	out.Before = before
	out.After = written.Rating
	out.Updated = true
	return out
}
