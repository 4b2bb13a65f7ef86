package memddpg

import (
	"fmt"

	"github.com/samuelfneumann/memddpg/network"
	"github.com/samuelfneumann/memddpg/solver"
	"github.com/samuelfneumann/memddpg/utils/op"
	"github.com/samuelfneumann/memddpg/utils/tensorutils"
	G "gorgonia.org/gorgonia"
)

// criticGraph regresses the online critic on a batch of Bellman
// targets. The critic of the criticGraph holds the online critic
// parameters.
type criticGraph struct {
	g  *G.ExprGraph
	vm G.VM

	state   *G.Node // B x StateDim
	action  *G.Node // B x ActionDim
	context *G.Node // B x HypoDim
	target  *G.Node // B x 1

	critic *Critic
	model  []G.ValueGrad
	loss   G.Value
}

func newCriticGraph(c Config, init G.InitWFn) (*criticGraph, error) {
	g := G.NewGraph()
	cg := &criticGraph{
		g:       g,
		state:   tensorutils.NewInput(g, c.BatchSize, c.StateDim, "state"),
		action:  tensorutils.NewInput(g, c.BatchSize, c.ActionDim, "action"),
		context: tensorutils.NewInput(g, c.BatchSize, c.HypoDim, "context"),
		target:  tensorutils.NewInput(g, c.BatchSize, 1, "target"),
	}

	critic, err := NewCritic(cg.state, cg.action, cg.context, init, "critic")
	if err != nil {
		return nil, fmt.Errorf("newCriticGraph: %v", err)
	}
	cg.critic = critic

	loss, err := op.MSE(critic.Value(), cg.target)
	if err != nil {
		return nil, fmt.Errorf("newCriticGraph: %v", err)
	}
	G.Read(loss, &cg.loss)

	if _, err := G.Grad(loss, critic.Learnables()...); err != nil {
		return nil, fmt.Errorf("newCriticGraph: could not compute "+
			"gradient: %v", err)
	}
	cg.model = network.Model(critic)
	cg.vm = G.NewTapeMachine(g, G.BindDualValues(critic.Learnables()...))

	return cg, nil
}

// step takes one optimization step of the critic and returns the loss
// before the step
func (cg *criticGraph) step(state, action, ctx, target []float64,
	s *solver.Solver) (float64, error) {
	inputs := []struct {
		node *G.Node
		data []float64
	}{
		{cg.state, state},
		{cg.action, action},
		{cg.context, ctx},
		{cg.target, target},
	}
	for _, input := range inputs {
		if err := tensorutils.Let(input.node, input.data); err != nil {
			return 0, fmt.Errorf("step: %v", err)
		}
	}

	if err := cg.vm.RunAll(); err != nil {
		return 0, fmt.Errorf("step: %v", err)
	}
	if err := s.Step(cg.model); err != nil {
		return 0, fmt.Errorf("step: could not step solver: %v", err)
	}
	cg.vm.Reset()

	return cg.loss.Data().(float64), nil
}

// actorGraph trains the online actor to maximize the value of its
// actions under a copy of the online critic. The actor of the
// actorGraph holds the online actor parameters.
type actorGraph struct {
	g  *G.ExprGraph
	vm G.VM

	state   *G.Node // B x StateDim
	context *G.Node // B x HypoDim

	actor  *Actor
	critic *Critic // Copy of the online critic, never trained here
	model  []G.ValueGrad
	loss   G.Value
}

func newActorGraph(c Config, init G.InitWFn,
	critic *Critic) (*actorGraph, error) {
	g := G.NewGraph()
	ag := &actorGraph{
		g:       g,
		state:   tensorutils.NewInput(g, c.BatchSize, c.StateDim, "state"),
		context: tensorutils.NewInput(g, c.BatchSize, c.HypoDim, "context"),
	}

	actor, err := NewActor(ag.state, ag.context, c.ActionDim, c.MaxAction,
		init, "actor")
	if err != nil {
		return nil, fmt.Errorf("newActorGraph: %v", err)
	}
	ag.actor = actor

	ag.critic, err = critic.cloneTo("critic", ag.state, actor.Action(),
		ag.context)
	if err != nil {
		return nil, fmt.Errorf("newActorGraph: %v", err)
	}

	loss := G.Must(G.Mean(ag.critic.Value()))
	loss = G.Must(G.Neg(loss))
	G.Read(loss, &ag.loss)

	if _, err := G.Grad(loss, actor.Learnables()...); err != nil {
		return nil, fmt.Errorf("newActorGraph: could not compute "+
			"gradient: %v", err)
	}
	ag.model = network.Model(actor)
	ag.vm = G.NewTapeMachine(g, G.BindDualValues(actor.Learnables()...))

	return ag, nil
}

// step takes one optimization step of the actor and returns the loss
// before the step
func (ag *actorGraph) step(state, ctx []float64,
	s *solver.Solver) (float64, error) {
	if err := tensorutils.Let(ag.state, state); err != nil {
		return 0, fmt.Errorf("step: %v", err)
	}
	if err := tensorutils.Let(ag.context, ctx); err != nil {
		return 0, fmt.Errorf("step: %v", err)
	}

	if err := ag.vm.RunAll(); err != nil {
		return 0, fmt.Errorf("step: %v", err)
	}
	if err := s.Step(ag.model); err != nil {
		return 0, fmt.Errorf("step: could not step solver: %v", err)
	}
	ag.vm.Reset()

	return ag.loss.Data().(float64), nil
}

// targetGraph computes the values of next states under the target
// actor and target critic. The networks of the targetGraph hold the
// target parameters.
type targetGraph struct {
	g  *G.ExprGraph
	vm G.VM

	nextState *G.Node // B x StateDim
	context   *G.Node // B x HypoDim

	actor  *Actor
	critic *Critic
}

// newTargetGraph creates target networks initialized to copies of
// actor and critic
func newTargetGraph(c Config, actor *Actor,
	critic *Critic) (*targetGraph, error) {
	g := G.NewGraph()
	tg := &targetGraph{
		g:         g,
		nextState: tensorutils.NewInput(g, c.BatchSize, c.StateDim, "nextState"),
		context:   tensorutils.NewInput(g, c.BatchSize, c.HypoDim, "context"),
	}

	var err error
	tg.actor, err = actor.cloneTo("targetActor", tg.nextState, tg.context)
	if err != nil {
		return nil, fmt.Errorf("newTargetGraph: %v", err)
	}
	tg.critic, err = critic.cloneTo("targetCritic", tg.nextState,
		tg.actor.Action(), tg.context)
	if err != nil {
		return nil, fmt.Errorf("newTargetGraph: %v", err)
	}
	tg.vm = G.NewTapeMachine(g)

	return tg, nil
}

// run returns Q'(s', μ'(s', h), h) for each next state s' and context h
func (tg *targetGraph) run(nextState, ctx []float64) ([]float64, error) {
	if err := tensorutils.Let(tg.nextState, nextState); err != nil {
		return nil, fmt.Errorf("run: %v", err)
	}
	if err := tensorutils.Let(tg.context, ctx); err != nil {
		return nil, fmt.Errorf("run: %v", err)
	}

	if err := tg.vm.RunAll(); err != nil {
		return nil, fmt.Errorf("run: %v", err)
	}
	defer tg.vm.Reset()

	return tensorutils.Data(tg.critic.Output()), nil
}

// policyGraph selects actions for a fixed number of states under a
// single context, using a copy of the online actor
type policyGraph struct {
	network.Mirror
	g  *G.ExprGraph
	vm G.VM

	state   *G.Node // n x StateDim
	context *G.Node // 1 x HypoDim
	actor   *Actor
}

func newPolicyGraph(c Config, actor *Actor, rows,
	version int) (*policyGraph, error) {
	g := G.NewGraph()
	pg := &policyGraph{
		Mirror:  network.NewMirror(version),
		g:       g,
		state:   tensorutils.NewInput(g, rows, c.StateDim, "state"),
		context: tensorutils.NewInput(g, 1, c.HypoDim, "context"),
	}

	var err error
	pg.actor, err = actor.cloneTo("actor", pg.state, pg.context)
	if err != nil {
		return nil, fmt.Errorf("newPolicyGraph: %v", err)
	}
	pg.vm = G.NewTapeMachine(g)

	return pg, nil
}

// run returns the row-major actions selected in each state
func (pg *policyGraph) run(state, ctx []float64) ([]float64, error) {
	if err := tensorutils.Let(pg.state, state); err != nil {
		return nil, fmt.Errorf("run: %v", err)
	}
	if err := tensorutils.Let(pg.context, ctx); err != nil {
		return nil, fmt.Errorf("run: %v", err)
	}

	if err := pg.vm.RunAll(); err != nil {
		return nil, fmt.Errorf("run: %v", err)
	}
	defer pg.vm.Reset()

	return tensorutils.Data(pg.actor.actionVal), nil
}
