package data

// PadID is the id used to right-pad sequences inside a batch.
const PadID = 0

// Pair is a (source, target) text pair, raw or preprocessed.
type Pair struct {
	Source string
	Target string
}

// SequencePair holds the id sequences of one vectorized pair.
type SequencePair struct {
	Source []int
	Target []int
}

// Batch holds two padded id matrices of shape [size, max_len] per side.
type Batch struct {
	Source [][]int
	Target [][]int
}

// NewBatch pads pairs to the longest sequence of each side.
func NewBatch(pairs []SequencePair) Batch {
	srcLen, tgtLen := 0, 0
	for _, p := range pairs {
		srcLen = max(srcLen, len(p.Source))
		tgtLen = max(tgtLen, len(p.Target))
	}
	b := Batch{
		Source: make([][]int, len(pairs)),
		Target: make([][]int, len(pairs)),
	}
	for i, p := range pairs {
		b.Source[i] = padTo(p.Source, srcLen)
		b.Target[i] = padTo(p.Target, tgtLen)
	}
	return b
}

func padTo(ids []int, n int) []int {
	row := make([]int, n)
	copy(row, ids)
	for i := len(ids); i < n; i++ {
		row[i] = PadID
	}
	return row
}

// Size returns the number of rows in the batch.
func (b Batch) Size() int {
	return len(b.Source)
}

// SourceLen returns the padded source length.
func (b Batch) SourceLen() int {
	if len(b.Source) == 0 {
		return 0
	}
	return len(b.Source[0])
}

// TargetLen returns the padded target length.
func (b Batch) TargetLen() int {
	if len(b.Target) == 0 {
		return 0
	}
	return len(b.Target[0])
}

// Unpad strips trailing padding from a row.
func Unpad(row []int) []int {
	n := len(row)
	for n > 0 && row[n-1] == PadID {
		n--
	}
	return row[:n]
}
