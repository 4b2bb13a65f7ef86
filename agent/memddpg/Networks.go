package memddpg

import (
	"fmt"

	"github.com/samuelfneumann/memddpg/network"
	"github.com/samuelfneumann/memddpg/utils/op"
	G "gorgonia.org/gorgonia"
)

// Layer sizes of the actor and critic
var (
	actorLayers  = []int{400, 300}
	criticLayers = []int{400, 300}
)

// Actor is a deterministic policy conditioned on a context vector:
//
//	[state, ctx] -> 400 relu -> 300 relu -> ActionDim tanh
//
// The output is scaled by the maximum action.
type Actor struct {
	net       *network.MLP
	maxAction float64

	action    *G.Node
	actionVal G.Value
}

// NewActor creates an Actor in the graph of state. The context ctx is
// either a single 1 x HypoDim context shared by all states, or one
// context per state.
func NewActor(state, ctx *G.Node, actionDim int, maxAction float64,
	init G.InitWFn, prefix string) (*Actor, error) {
	tiled, err := op.Tile(ctx, state.Shape()[0])
	if err != nil {
		return nil, fmt.Errorf("newActor: %v", err)
	}

	hiddenSizes := append(append([]int{}, actorLayers...), actionDim)
	biases := []bool{true, true, true}
	activations := []*network.Activation{
		network.ReLU(),
		network.ReLU(),
		network.TanH(),
	}
	net, err := network.NewMLP([]*G.Node{state, tiled}, hiddenSizes,
		biases, init, activations, prefix)
	if err != nil {
		return nil, fmt.Errorf("newActor: %v", err)
	}

	return newActorFromNet(net, maxAction)
}

// newActorFromNet scales the output of net to create an Actor
func newActorFromNet(net *network.MLP, maxAction float64) (*Actor, error) {
	action, err := op.Scale(net.Prediction(), maxAction)
	if err != nil {
		return nil, fmt.Errorf("newActor: %v", err)
	}

	a := &Actor{net: net, maxAction: maxAction, action: action}
	G.Read(action, &a.actionVal)
	return a, nil
}

// cloneTo returns a copy of the Actor in the graph of state, with the
// current weights of the Actor
func (a *Actor) cloneTo(prefix string, state, ctx *G.Node) (*Actor, error) {
	tiled, err := op.Tile(ctx, state.Shape()[0])
	if err != nil {
		return nil, fmt.Errorf("cloneTo: %v", err)
	}

	net, err := a.net.CloneTo(prefix, state, tiled)
	if err != nil {
		return nil, fmt.Errorf("cloneTo: %v", err)
	}
	return newActorFromNet(net, a.maxAction)
}

// Action returns the node holding the actions selected by the Actor
func (a *Actor) Action() *G.Node {
	return a.action
}

// Learnables returns the learnable nodes of the Actor
func (a *Actor) Learnables() G.Nodes {
	return a.net.Learnables()
}

// Critic is an action-value function conditioned on a context vector.
// The state and context pass through a first layer before the action
// is concatenated:
//
//	[state, ctx] -> 400 relu, [·, action] -> 300 relu -> 1
type Critic struct {
	stem *network.MLP
	head *network.MLP

	learnables G.Nodes
}

// NewCritic creates a Critic in the graph of state and action. As for
// the Actor, ctx is either a single context or one context per state.
func NewCritic(state, action, ctx *G.Node, init G.InitWFn,
	prefix string) (*Critic, error) {
	tiled, err := op.Tile(ctx, state.Shape()[0])
	if err != nil {
		return nil, fmt.Errorf("newCritic: %v", err)
	}

	stem, err := network.NewMLP(
		[]*G.Node{state, tiled},
		criticLayers[:1],
		[]bool{true},
		init,
		[]*network.Activation{network.ReLU()},
		prefix+"Stem",
	)
	if err != nil {
		return nil, fmt.Errorf("newCritic: %v", err)
	}

	head, err := network.NewMLP(
		[]*G.Node{stem.Prediction(), action},
		[]int{criticLayers[1], 1},
		[]bool{true, true},
		init,
		[]*network.Activation{network.ReLU(), network.Identity()},
		prefix+"Head",
	)
	if err != nil {
		return nil, fmt.Errorf("newCritic: %v", err)
	}

	return newCritic(stem, head), nil
}

func newCritic(stem, head *network.MLP) *Critic {
	learnables := append(G.Nodes{}, stem.Learnables()...)
	learnables = append(learnables, head.Learnables()...)

	return &Critic{stem: stem, head: head, learnables: learnables}
}

// cloneTo returns a copy of the Critic in the graph of state, with the
// current weights of the Critic
func (c *Critic) cloneTo(prefix string, state, action,
	ctx *G.Node) (*Critic, error) {
	tiled, err := op.Tile(ctx, state.Shape()[0])
	if err != nil {
		return nil, fmt.Errorf("cloneTo: %v", err)
	}

	stem, err := c.stem.CloneTo(prefix+"Stem", state, tiled)
	if err != nil {
		return nil, fmt.Errorf("cloneTo: %v", err)
	}
	head, err := c.head.CloneTo(prefix+"Head", stem.Prediction(), action)
	if err != nil {
		return nil, fmt.Errorf("cloneTo: %v", err)
	}

	return newCritic(stem, head), nil
}

// Value returns the node holding the action values
func (c *Critic) Value() *G.Node {
	return c.head.Prediction()
}

// Output returns the action values computed in the last run of a VM on
// the Critic's graph
func (c *Critic) Output() G.Value {
	return c.head.Output()
}

// Learnables returns the learnable nodes of the Critic
func (c *Critic) Learnables() G.Nodes {
	return c.learnables
}
