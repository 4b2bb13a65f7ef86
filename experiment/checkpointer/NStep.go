package checkpointer

// nStep implements checkpointing every N steps
type nStep struct {
	interval int
	object   Saver // Object to save

	// filename returns the prefix of the files to save the object in.
	// If each checkpoint should be saved with an incremented number as
	// a suffix (e.g. agent1, agent2, ..., agentK), then simply use the
	// static function FilenameEnumerator. For example:
	//
	//	n := NewNStep(10, object, FilenameEnumerator(0, "agent", ""))
	filename func() string
}

// NewNStep returns a checkpointer that checkpoints every n steps.
func NewNStep(n int, object Saver, filename func() string) Checkpointer {
	return &nStep{
		interval: n,
		object:   object,
		filename: filename,
	}
}

// Checkpoint checkpoints the Checkpointer's tracked object by calling
// its Save() method if step is a multiple of the interval
func (n *nStep) Checkpoint(step int) error {
	if n.interval > 0 && step%n.interval == 0 {
		return n.object.Save(n.filename())
	}
	return nil
}
