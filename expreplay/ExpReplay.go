// Package expreplay implements experience replay buffers that store
// transitions in flat caches and return sampled batches as row-major
// []float64, ready to be fed to computational graphs.
package expreplay

import (
	"fmt"

	"github.com/samuelfneumann/memddpg/timestep"
)

// Config implements a specific configuration of a replay buffer
type Config struct {
	MaxReplayCapacity int
	MinReplayCapacity int
}

// Create creates and returns the replay buffer with the specified
// Config.
func (c Config) Create(featureSize, actionSize int,
	seed uint64) (*Buffer, error) {
	return New(NewUniformSelector(seed), c.MinReplayCapacity,
		c.MaxReplayCapacity, featureSize, actionSize)
}

// Buffer implements an experience replay buffer where elements are
// removed in a FiFo manner, one at a time, once the buffer is full.
// Samples are chosen by a Selector.
type Buffer struct {
	stateCache     []float64
	actionCache    []float64
	rewardCache    []float64
	notDoneCache   []float64
	nextStateCache []float64

	// next is the index of the cache that will be written to next
	next   int
	isFull bool

	sampler Selector

	minCapacity int
	maxCapacity int
	featureSize int
	actionSize  int
}

// New returns a new Buffer. The sampler parameter determines how data
// is sampled from the buffer. The featureSize and actionSize
// parameters define the size of the feature and action vectors.
// The minCapacity parameter determines the minimum number of samples
// that should be in the buffer before sampling is allowed, and
// maxCapacity the maximum number of samples held at any given time.
//
// Pixel observations should be flattened before adding to the buffer.
func New(sampler Selector, minCapacity, maxCapacity, featureSize,
	actionSize int) (*Buffer, error) {
	if minCapacity <= 0 {
		return nil, fmt.Errorf("new: minCapacity must be > 0")
	}
	if maxCapacity < minCapacity {
		return nil, fmt.Errorf("new: maxCapacity must be >= minCapacity")
	}
	if featureSize <= 0 || actionSize <= 0 {
		return nil, fmt.Errorf("new: feature and action sizes must be > 0")
	}

	return &Buffer{
		stateCache:     make([]float64, maxCapacity*featureSize),
		actionCache:    make([]float64, maxCapacity*actionSize),
		rewardCache:    make([]float64, maxCapacity),
		notDoneCache:   make([]float64, maxCapacity),
		nextStateCache: make([]float64, maxCapacity*featureSize),

		sampler: sampler,

		minCapacity: minCapacity,
		maxCapacity: maxCapacity,
		featureSize: featureSize,
		actionSize:  actionSize,
	}, nil
}

// Add adds a transition to the buffer, overwriting the oldest
// transition if the buffer is full
func (b *Buffer) Add(t timestep.Transition) error {
	if t.State.Len() != b.featureSize || t.NextState.Len() != b.featureSize {
		return &ExpReplayError{
			Op: "add",
			Err: fmt.Errorf("invalid state size\n\twant(%v)\n\thave(%v, %v)",
				b.featureSize, t.State.Len(), t.NextState.Len()),
		}
	}
	if t.Action.Len() != b.actionSize {
		return &ExpReplayError{
			Op: "add",
			Err: fmt.Errorf("invalid action size\n\twant(%v)\n\thave(%v)",
				b.actionSize, t.Action.Len()),
		}
	}

	stateStart := b.next * b.featureSize
	copy(b.stateCache[stateStart:stateStart+b.featureSize],
		t.State.RawVector().Data)
	copy(b.nextStateCache[stateStart:stateStart+b.featureSize],
		t.NextState.RawVector().Data)

	actionStart := b.next * b.actionSize
	copy(b.actionCache[actionStart:actionStart+b.actionSize],
		t.Action.RawVector().Data)

	b.rewardCache[b.next] = t.Reward
	if t.Terminal {
		b.notDoneCache[b.next] = 0.0
	} else {
		b.notDoneCache[b.next] = 1.0
	}

	b.next++
	if b.next == b.maxCapacity {
		b.next = 0
		b.isFull = true
	}
	return nil
}

// Sample samples a batch of batchSize transitions from the buffer and
// returns the states, actions, next states, rewards, and not-done
// flags (0 if the next state is terminal, 1 otherwise), each as a
// row-major []float64.
func (b *Buffer) Sample(batchSize int) (state, action, nextState, reward,
	notDone []float64, err error) {
	if b.Capacity() == 0 {
		err = &ExpReplayError{Op: "sample", Err: ErrEmpty}
		return
	}
	if b.Capacity() < b.MinCapacity() {
		err = &ExpReplayError{Op: "sample", Err: ErrInsufficientSamples}
		return
	}

	indices := b.sampler.choose(batchSize, b.Capacity())

	state = make([]float64, batchSize*b.featureSize)
	nextState = make([]float64, batchSize*b.featureSize)
	action = make([]float64, batchSize*b.actionSize)
	reward = make([]float64, batchSize)
	notDone = make([]float64, batchSize)

	for i, index := range indices {
		batchStart := i * b.featureSize
		expStart := index * b.featureSize
		copy(state[batchStart:batchStart+b.featureSize],
			b.stateCache[expStart:expStart+b.featureSize])
		copy(nextState[batchStart:batchStart+b.featureSize],
			b.nextStateCache[expStart:expStart+b.featureSize])

		batchStart = i * b.actionSize
		expStart = index * b.actionSize
		copy(action[batchStart:batchStart+b.actionSize],
			b.actionCache[expStart:expStart+b.actionSize])

		reward[i] = b.rewardCache[index]
		notDone[i] = b.notDoneCache[index]
	}

	return state, action, nextState, reward, notDone, nil
}

// Capacity returns the current number of samples in the buffer
func (b *Buffer) Capacity() int {
	if b.isFull {
		return b.maxCapacity
	}
	return b.next
}

// MaxCapacity returns the maximum allowable samples in the buffer
func (b *Buffer) MaxCapacity() int {
	return b.maxCapacity
}

// MinCapacity returns the number of samples required to be in
// the buffer before the buffer can be sampled
func (b *Buffer) MinCapacity() int {
	return b.minCapacity
}

// String returns the string representation of the Buffer
func (b *Buffer) String() string {
	baseStr := "Capacity: %v/%v \nStates: %v \nActions: %v \nRewards: %v" +
		" \nNot Done: %v \nNext States: %v"
	return fmt.Sprintf(baseStr, b.Capacity(), b.maxCapacity, b.stateCache,
		b.actionCache, b.rewardCache, b.notDoneCache, b.nextStateCache)
}
