// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package voting implements a deadline and quorum voting engine whose passed
// votes execute a batch of encoded calls
package voting

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"

	"github.com/blinklabs-io/gavel/chain"
)

// Choice is a ballot option
type Choice uint8

const (
	ChoiceNone    Choice = 0
	ChoiceAgainst Choice = 1
	ChoiceFor     Choice = 2
)

func (c Choice) String() string {
	switch c {
	case ChoiceAgainst:
		return "against"
	case ChoiceFor:
		return "for"
	default:
		return "none"
	}
}

// Status is the derived state of a vote
type Status uint8

const (
	StatusNotProposed Status = iota
	StatusOpen
	StatusPassed
	StatusRejected
	StatusEnacted
)

func (s Status) String() string {
	switch s {
	case StatusOpen:
		return "open"
	case StatusPassed:
		return "passed"
	case StatusRejected:
		return "rejected"
	case StatusEnacted:
		return "enacted"
	default:
		return "not proposed"
	}
}

// WeightSource provides historical voting weights and delegation. Weights of
// an account include the weights of the accounts delegating to it
type WeightSource interface {
	chain.Contract
	VotingWeightAt(account chain.Principal, block uint64) (*uint256.Int, error)
	TotalVotingWeightAt(block uint64) (*uint256.Int, error)
	DelegateAt(account chain.Principal, block uint64) (chain.Principal, error)
}

// Action is one encoded call executed by enactment
type Action = chain.ActionTuple

// Config holds the constructor parameters
type Config struct {
	// Owner may change parameters, besides the engine itself. Nil means only
	// the engine itself, through enactment
	Owner chain.Principal
	// ProposerACL is nil for anyone, chain.OnePrincipal for anyone with weight,
	// or a single principal
	ProposerACL chain.Principal
	EnacterACL  chain.Principal
	// Source is the address of the WeightSource, usually a group or token
	Source       chain.Principal
	VoteDeadline uint64
	EnactDelay   uint64
	// Quorum is a fraction of the total weight scaled by 2^256. Nil means no quorum
	Quorum  *uint256.Int
	Metrics *Metrics
}

// Vote is the recorded state of a proposal
type Vote struct {
	ID            common.Hash
	RationaleHash common.Hash
	ActionsHash   common.Hash
	Proposer      chain.Principal
	ProposedAt    uint64
	Deadline      uint64
	EnactAfter    uint64
	TotalWeight   uint256.Int
	Required      uint256.Int
	Against       uint256.Int
	For           uint256.Int
	Enacted       bool
}

type ballot struct {
	choice       Choice
	contribution uint256.Int
}

type proposal struct {
	vote    Vote
	ballots map[chain.Principal]ballot
	// subtracted is the weight of each account already cast by its delegators
	subtracted map[chain.Principal]uint256.Int
}

type Engine struct {
	address      chain.Principal
	chain        *chain.Chain
	owner        chain.Principal
	proposerACL  chain.Principal
	enacterACL   chain.Principal
	source       chain.Principal
	voteDeadline uint64
	enactDelay   uint64
	quorum       uint256.Int
	proposals    map[common.Hash]*proposal
	metrics      *Metrics
	dispatcher   *chain.Dispatcher
}

// New constructs a voting engine in the deploying frame
func New(ctx *chain.Context, cfg Config) (*Engine, error) {
	e := &Engine{
		address:      ctx.Self(),
		chain:        ctx.Chain(),
		owner:        cfg.Owner,
		proposerACL:  cfg.ProposerACL,
		enacterACL:   cfg.EnacterACL,
		source:       cfg.Source,
		voteDeadline: cfg.VoteDeadline,
		enactDelay:   cfg.EnactDelay,
		proposals:    make(map[common.Hash]*proposal),
		metrics:      cfg.Metrics,
	}
	if cfg.Quorum != nil {
		e.quorum.Set(cfg.Quorum)
	}
	if _, err := e.weightSource(); err != nil {
		return nil, err
	}
	e.dispatcher = e.newDispatcher()
	return e, nil
}

func (e *Engine) Address() chain.Principal {
	return e.address
}

func (e *Engine) Owner() chain.Principal {
	return e.owner
}

func (e *Engine) ProposerACL() chain.Principal {
	return e.proposerACL
}

func (e *Engine) EnacterACL() chain.Principal {
	return e.enacterACL
}

func (e *Engine) Source() chain.Principal {
	return e.source
}

func (e *Engine) VoteDeadline() uint64 {
	return e.voteDeadline
}

func (e *Engine) EnactDelay() uint64 {
	return e.enactDelay
}

func (e *Engine) RequiredQuorum() *uint256.Int {
	return new(uint256.Int).Set(&e.quorum)
}

func (e *Engine) weightSource() (WeightSource, error) {
	source, err := chain.ContractAs[WeightSource](e.chain, e.source)
	if err != nil {
		return nil, chain.NewExternalCallError(e.source, err)
	}
	return source, nil
}

// ActionsHash returns the keccak hash of the ABI encoding of actions
func ActionsHash(actions []Action) (common.Hash, error) {
	data, err := chain.PackActions(actions)
	if err != nil {
		return common.Hash{}, err
	}
	return crypto.Keccak256Hash(data), nil
}

// VoteID returns the identifier of the vote for a rationale and action batch
func VoteID(rationaleHash, actionsHash common.Hash) common.Hash {
	return crypto.Keccak256Hash(rationaleHash[:], actionsHash[:])
}

// checkACL applies an access control policy to the caller
func (e *Engine) checkACL(ctx *chain.Context, acl chain.Principal) error {
	switch {
	case chain.IsNil(acl):
		return nil
	case acl == chain.OnePrincipal:
		source, err := e.weightSource()
		if err != nil {
			return err
		}
		w, err := source.VotingWeightAt(ctx.Caller(), ctx.Block())
		if err != nil {
			return chain.NewExternalCallError(e.source, err)
		}
		if w.IsZero() {
			return ErrNotAuthorized
		}
		return nil
	case ctx.Caller() == acl:
		return nil
	default:
		return ErrNotAuthorized
	}
}

// Propose opens a vote on an action batch identified by its hash
func (e *Engine) Propose(ctx *chain.Context, rationaleHash, actionsHash common.Hash) (common.Hash, error) {
	id := VoteID(rationaleHash, actionsHash)
	err := ctx.Invoke(e.address, func(frame *chain.Context) error {
		if err := e.checkACL(frame, e.proposerACL); err != nil {
			return err
		}
		if _, ok := e.proposals[id]; ok {
			return ErrAlreadyProposed
		}
		source, err := e.weightSource()
		if err != nil {
			return err
		}
		block := frame.Block()
		total, err := source.TotalVotingWeightAt(block)
		if err != nil {
			return chain.NewExternalCallError(e.source, err)
		}
		p := &proposal{
			vote: Vote{
				ID:            id,
				RationaleHash: rationaleHash,
				ActionsHash:   actionsHash,
				Proposer:      frame.Caller(),
				ProposedAt:    block,
				Deadline:      block + e.voteDeadline,
				EnactAfter:    block + e.enactDelay,
			},
			ballots:    make(map[chain.Principal]ballot),
			subtracted: make(map[chain.Principal]uint256.Int),
		}
		p.vote.TotalWeight.Set(total)
		p.vote.Required.Set(RequiredWeight(total, &e.quorum))
		chain.StoreMap(frame.Journal(), e.proposals, id, p)
		frame.Emit(
			"Proposal",
			chain.Indexed("voteId", id),
			chain.Indexed("proposer", frame.Caller()),
			chain.Data("rationaleHash", rationaleHash),
			chain.Data("actionsHash", actionsHash),
		)
		if e.metrics != nil {
			frame.OnCommit(e.metrics.proposals.Inc)
		}
		return nil
	})
	if err != nil {
		return common.Hash{}, err
	}
	return id, nil
}

// CastVote records the caller's choice. The caller's weight at the proposal
// block counts, minus the weight of delegators that voted themselves
func (e *Engine) CastVote(ctx *chain.Context, id common.Hash, choice Choice) error {
	return ctx.Invoke(e.address, func(frame *chain.Context) error {
		if choice != ChoiceAgainst && choice != ChoiceFor {
			return ErrInvalidChoice
		}
		p, ok := e.proposals[id]
		if !ok {
			return ErrVoteNotFound
		}
		if frame.Block() >= p.vote.Deadline {
			return ErrDeadlinePassed
		}
		voter := frame.Caller()
		j := frame.Journal()
		if prev, voted := p.ballots[voter]; voted {
			if prev.choice == choice {
				return ErrAlreadyVoted
			}
			// Switch the voter's current contribution to the other counter
			e.subCount(j, p, prev.choice, &prev.contribution)
			e.addCount(j, p, choice, &prev.contribution)
			chain.StoreMap(j, p.ballots, voter, ballot{choice: choice, contribution: prev.contribution})
		} else {
			source, err := e.weightSource()
			if err != nil {
				return err
			}
			w, err := source.VotingWeightAt(voter, p.vote.ProposedAt)
			if err != nil {
				return chain.NewExternalCallError(e.source, err)
			}
			sub := p.subtracted[voter]
			contribution := chain.SaturatingSub(w, &sub)
			if w.IsZero() {
				return ErrNoWeight
			}
			e.addCount(j, p, choice, contribution)
			chain.StoreMap(j, p.ballots, voter, ballot{choice: choice, contribution: *contribution})
			if err := e.propagate(frame, source, p, voter, contribution); err != nil {
				return err
			}
		}
		frame.Emit(
			"Vote",
			chain.Indexed("voteId", id),
			chain.Indexed("voter", voter),
			chain.Data("choice", uint8(choice)),
		)
		if e.metrics != nil {
			frame.OnCommit(e.metrics.votes.WithLabelValues(choice.String()).Inc)
		}
		return nil
	})
}

// propagate removes a fresh contribution from the delegates of voter: unvoted
// delegates remember it for later, the first delegate that voted gives it up
func (e *Engine) propagate(
	ctx *chain.Context,
	source WeightSource,
	p *proposal,
	voter chain.Principal,
	contribution *uint256.Int,
) error {
	j := ctx.Journal()
	current := voter
	for {
		next, err := source.DelegateAt(current, p.vote.ProposedAt)
		if err != nil {
			return chain.NewExternalCallError(e.source, err)
		}
		if chain.IsNil(next) || next == voter {
			return nil
		}
		sub := p.subtracted[next]
		chain.StoreMap(j, p.subtracted, next, *new(uint256.Int).Add(&sub, contribution))
		if b, voted := p.ballots[next]; voted {
			e.subCount(j, p, b.choice, contribution)
			remaining := chain.SaturatingSub(&b.contribution, contribution)
			chain.StoreMap(j, p.ballots, next, ballot{choice: b.choice, contribution: *remaining})
			return nil
		}
		current = next
	}
}

func (e *Engine) counter(p *proposal, choice Choice) *uint256.Int {
	if choice == ChoiceFor {
		return &p.vote.For
	}
	return &p.vote.Against
}

func (e *Engine) addCount(j *chain.Journal, p *proposal, choice Choice, amount *uint256.Int) {
	counter := e.counter(p, choice)
	chain.Store(j, counter, *new(uint256.Int).Add(counter, amount))
}

func (e *Engine) subCount(j *chain.Journal, p *proposal, choice Choice, amount *uint256.Int) {
	counter := e.counter(p, choice)
	chain.Store(j, counter, *chain.SaturatingSub(counter, amount))
}

// Enact executes the actions of a passed vote, in order. Any failing action
// reverts the whole enactment
func (e *Engine) Enact(ctx *chain.Context, rationaleHash common.Hash, actions []Action) error {
	return ctx.Invoke(e.address, func(frame *chain.Context) error {
		if err := e.checkACL(frame, e.enacterACL); err != nil {
			return err
		}
		actionsHash, err := ActionsHash(actions)
		if err != nil {
			return err
		}
		id := VoteID(rationaleHash, actionsHash)
		p, ok := e.proposals[id]
		if !ok {
			return ErrVoteNotFound
		}
		if p.vote.Enacted {
			return ErrAlreadyEnacted
		}
		if frame.Block() < p.vote.EnactAfter {
			return ErrTooEarly
		}
		if !p.vote.For.Gt(&p.vote.Against) {
			return ErrNotPassed
		}
		if p.vote.For.Lt(&p.vote.Required) {
			return ErrQuorumNotReached
		}
		chain.Store(frame.Journal(), &p.vote.Enacted, true)
		frame.Emit("Enaction", chain.Indexed("voteId", id))
		for _, action := range actions {
			if _, err := frame.Call(action.Target, action.Data); err != nil {
				return chain.NewExternalCallError(action.Target, err)
			}
		}
		if e.metrics != nil {
			frame.OnCommit(e.metrics.enactions.Inc)
		}
		return nil
	})
}

// Vote returns a copy of the recorded vote
func (e *Engine) Vote(id common.Hash) (Vote, bool) {
	p, ok := e.proposals[id]
	if !ok {
		return Vote{}, false
	}
	return p.vote, true
}

// VoteCounts returns the against and for counters
func (e *Engine) VoteCounts(id common.Hash) (against, inFavor *uint256.Int) {
	p, ok := e.proposals[id]
	if !ok {
		return new(uint256.Int), new(uint256.Int)
	}
	return new(uint256.Int).Set(&p.vote.Against), new(uint256.Int).Set(&p.vote.For)
}

// BallotOf returns the choice cast by voter
func (e *Engine) BallotOf(id common.Hash, voter chain.Principal) Choice {
	p, ok := e.proposals[id]
	if !ok {
		return ChoiceNone
	}
	return p.ballots[voter].choice
}

// Status derives the state of a vote at the current block
func (e *Engine) Status(id common.Hash) Status {
	p, ok := e.proposals[id]
	switch {
	case !ok:
		return StatusNotProposed
	case p.vote.Enacted:
		return StatusEnacted
	case e.chain.BlockNumber() < p.vote.Deadline:
		return StatusOpen
	case p.vote.For.Gt(&p.vote.Against) && !p.vote.For.Lt(&p.vote.Required):
		return StatusPassed
	default:
		return StatusRejected
	}
}
