package data

// Dataset is a restartable stream of batches. Every pass calls the factory
// again, so the corpus is re-read from the start and bucketing draws a fresh
// shuffle. A pass cannot be resumed once abandoned.
type Dataset struct {
	factory func() (Stream[Batch], error)
}

// NewDataset wraps a batch stream factory.
func NewDataset(factory func() (Stream[Batch], error)) *Dataset {
	return &Dataset{factory: factory}
}

// NewPipelineDataset chains source -> vectorize -> batcher into a Dataset.
func NewPipelineDataset(source Source, vectorize func(Pair) (SequencePair, error), batcher Batcher) *Dataset {
	return NewDataset(func() (Stream[Batch], error) {
		pairs, err := source()
		if err != nil {
			return nil, err
		}
		return batcher.Generate(Map(pairs, vectorize)), nil
	})
}

// Epoch opens a new pass.
func (d *Dataset) Epoch() (Stream[Batch], error) {
	return d.factory()
}

// ForEach runs one full pass and returns the number of batches handed to fn.
func (d *Dataset) ForEach(fn func(Batch) error) (int, error) {
	stream, err := d.factory()
	if err != nil {
		return 0, err
	}
	return ForEach(stream, fn)
}
