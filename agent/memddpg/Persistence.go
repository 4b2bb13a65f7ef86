package memddpg

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/samuelfneumann/memddpg/network"
	"github.com/samuelfneumann/memddpg/solver"
)

// Suffixes of the files written by Save
const (
	criticFile          = "_critic"
	criticOptimizerFile = "_critic_optimizer"
	actorFile           = "_actor"
	actorOptimizerFile  = "_actor_optimizer"
)

// Save saves the online actor and critic parameters and their solver
// configurations to files starting with prefix. The memory and the
// initial context are not saved.
func (m *MemDDPG) Save(prefix string) error {
	if err := saveParams(prefix+criticFile, m.critic.critic); err != nil {
		return fmt.Errorf("save: %v", err)
	}
	if err := saveSolver(prefix+criticOptimizerFile, m.criticSolver); err != nil {
		return fmt.Errorf("save: %v", err)
	}
	if err := saveParams(prefix+actorFile, m.actor.actor); err != nil {
		return fmt.Errorf("save: %v", err)
	}
	if err := saveSolver(prefix+actorOptimizerFile, m.actorSolver); err != nil {
		return fmt.Errorf("save: %v", err)
	}
	return nil
}

// Load loads actor and critic parameters and solvers saved by Save.
// Solvers are recreated with no accumulated state, and the target
// networks are reset to copies of the loaded networks. If any file
// cannot be loaded, the agent is left unchanged.
func (m *MemDDPG) Load(prefix string) error {
	criticParams, err := loadParams(prefix+criticFile, m.critic.critic)
	if err != nil {
		return fmt.Errorf("load: %v", err)
	}
	criticSolver, err := loadSolver(prefix + criticOptimizerFile)
	if err != nil {
		return fmt.Errorf("load: %v", err)
	}
	actorParams, err := loadParams(prefix+actorFile, m.actor.actor)
	if err != nil {
		return fmt.Errorf("load: %v", err)
	}
	actorSolver, err := loadSolver(prefix + actorOptimizerFile)
	if err != nil {
		return fmt.Errorf("load: %v", err)
	}

	loaded := []struct {
		dest   network.Parameterized
		params [][]float64
	}{
		{m.critic.critic, criticParams},
		{m.target.critic, criticParams},
		{m.actor.critic, criticParams},
		{m.actor.actor, actorParams},
		{m.target.actor, actorParams},
	}
	for _, l := range loaded {
		if err := network.SetParams(l.dest, l.params); err != nil {
			return fmt.Errorf("load: %v", err)
		}
	}
	m.criticSolver = criticSolver
	m.actorSolver = actorSolver
	m.actorVersion++

	return nil
}

func saveParams(filename string, p network.Parameterized) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	if err := network.Encode(file, p); err != nil {
		return err
	}
	return file.Sync()
}

// loadParams reads the parameters saved to filename, which must fit p
func loadParams(filename string, p network.Parameterized) ([][]float64,
	error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return network.ReadParams(file, p)
}

func saveSolver(filename string, s *solver.Solver) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("could not marshal solver: %v", err)
	}
	return os.WriteFile(filename, data, 0644)
}

func loadSolver(filename string) (*solver.Solver, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}

	var s solver.Solver
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("could not unmarshal solver %v: %v",
			filename, err)
	}
	return &s, nil
}
