// Command memddpg trains a MemDDPG agent online on one of the
// continuous control environments. The environment is chosen by the Env
// field of the configuration and defaults to the pendulum swing up task.
//
// Usage:
//
//	memddpg -config cfg.json -steps N -seed S -out prefix \
//		-returns returns.bin -lengths lengths.bin -db runs.sqlite \
//		-checkpoint K
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"

	"github.com/samuelfneumann/memddpg/agent"
	"github.com/samuelfneumann/memddpg/agent/memddpg"
	"github.com/samuelfneumann/memddpg/experiment"
	"github.com/samuelfneumann/memddpg/experiment/checkpointer"
	"github.com/samuelfneumann/memddpg/experiment/store"
	"github.com/samuelfneumann/memddpg/experiment/trackers"
	ts "github.com/samuelfneumann/memddpg/timestep"
	"github.com/samuelfneumann/memddpg/utils/progressbar"
)

func main() {
	configFile := flag.String("config", "", "JSON experiment configuration "+
		"(defaults are used if empty)")
	steps := flag.Uint("steps", 0, "number of environment steps "+
		"(overrides the configuration if > 0)")
	seed := flag.Uint64("seed", 0, "random seed")
	out := flag.String("out", "", "prefix of the files the trained agent "+
		"is saved to")
	returnsFile := flag.String("returns", "", "file the episodic returns "+
		"are saved to")
	lengthsFile := flag.String("lengths", "", "file the episode lengths "+
		"are saved to")
	dbFile := flag.String("db", "", "SQLite database recording episodes "+
		"and training losses")
	interval := flag.Int("checkpoint", 0, "steps between checkpoints of "+
		"the agent, 0 to disable")
	progress := flag.Bool("progress", true, "display a progress bar")
	flag.Parse()

	config, err := loadConfig(*configFile)
	if err != nil {
		log.Fatal(err)
	}
	if *steps > 0 {
		config.MaxSteps = *steps
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	// Episode and training step records
	var recorder experiment.EpisodeRecorder
	var db *store.SQLite
	if *dbFile != "" {
		db = store.NewSQLite(*dbFile)
		if err := db.Init(ctx); err != nil {
			log.Fatalf("could not open database: %v", err)
		}
		defer db.Close()
		if err := db.StartRun(ctx, config); err != nil {
			log.Fatalf("could not record run: %v", err)
		}
		recorder = db
		fmt.Fprintf(os.Stderr, "Recording run %v to %v\n", db.RunID(),
			*dbFile)
	}

	var t []trackers.Tracker
	var returns *trackers.Return
	if *returnsFile != "" {
		returns = trackers.NewReturn(*returnsFile)
		t = append(t, returns)
	}
	if *lengthsFile != "" {
		t = append(t, trackers.NewEpisodeLength(*lengthsFile))
	}
	if *progress {
		bar := progressbar.NewManualProgressBar(os.Stdout, 50,
			int(config.MaxSteps))
		t = append(t, &progressTracker{bar: bar, every: 100})
	}

	exp, a, err := config.CreateExp(*seed, t, nil, recorder)
	if err != nil {
		log.Fatal(err)
	}

	if db != nil {
		if online, ok := a.(*memddpg.Online); ok {
			online.SetRecorder(db)
		}
	}

	saver, canSave := a.(agent.Saver)
	if *interval > 0 {
		if !canSave {
			log.Fatalf("agent %T cannot be checkpointed", a)
		}
		check := checkpointer.NewNStep(*interval, saver,
			checkpointer.FilenameEnumerator(0, *out+"_checkpoint", ""))
		if online, ok := exp.(*experiment.Online); ok {
			online.AddCheckpointer(check)
		}
	}

	if err := exp.Run(ctx); err != nil {
		log.Fatal(err)
	}
	if err := exp.Save(); err != nil {
		log.Fatal(err)
	}

	if *out != "" && canSave {
		if err := saver.Save(*out); err != nil {
			log.Fatalf("could not save agent: %v", err)
		}
	}

	if returns != nil {
		r := returns.Returns()
		if len(r) > 10 {
			r = r[len(r)-10:]
		}
		fmt.Println("Last returns:", r)
	}
}

// loadConfig loads an experiment configuration from a JSON file, or
// returns the default configuration if filename is empty
func loadConfig(filename string) (experiment.Config, error) {
	config := experiment.DefaultConfig()
	if filename == "" {
		return config, nil
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		return experiment.Config{}, fmt.Errorf("loadConfig: %v", err)
	}
	if err := json.Unmarshal(data, &config); err != nil {
		return experiment.Config{}, fmt.Errorf("loadConfig: could not "+
			"decode %v: %v", filename, err)
	}
	return config, nil
}

// progressTracker displays the progress of an experiment
type progressTracker struct {
	bar   *progressbar.ManualProgressBar
	every int
	steps int
}

func (p *progressTracker) Track(t ts.TimeStep) {
	if t.First() {
		return
	}
	p.bar.Increment()
	p.steps++
	if p.steps%p.every == 0 {
		p.bar.Display()
	}
}

func (p *progressTracker) Save() error {
	p.bar.Display()
	fmt.Println()
	return nil
}
