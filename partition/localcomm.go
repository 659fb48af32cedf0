package partition

import (
	"fmt"
	"sync"

	"github.com/notargets/meshpart"
)

// group is shared state for one simulated run: a reusable barrier plus a
// {destination,tag}-keyed mailbox for point-to-point messages, in the
// same spirit as other_examples' btracey-mpi Mpi.Send/Receive contract
// (unique {destination,tag} pairs identify an in-flight message).
type group struct {
	size int

	mu       sync.Mutex
	cond     *sync.Cond
	gen      int
	arrived  int
	slots    []any
	snapshot []any

	mailboxMu sync.Mutex
	mailbox   map[mailKey]chan []byte
}

type mailKey struct {
	dest, tag int
}

// NewLocalGroup creates the shared state for size simulated ranks. Call
// Rank(group, r) once per goroutine to get that rank's Communicator.
func NewLocalGroup(size int) *group {
	g := &group{size: size, slots: make([]any, size), mailbox: make(map[mailKey]chan []byte)}
	g.cond = sync.NewCond(&g.mu)
	return g
}

func (g *group) gather(rank int, value any) []any {
	g.mu.Lock()
	myGen := g.gen
	g.slots[rank] = value
	g.arrived++
	if g.arrived == g.size {
		g.snapshot = append([]any(nil), g.slots...)
		g.arrived = 0
		g.gen++
		g.cond.Broadcast()
		result := g.snapshot
		g.mu.Unlock()
		return result
	}
	for g.gen == myGen {
		g.cond.Wait()
	}
	result := g.snapshot
	g.mu.Unlock()
	return result
}

func (g *group) channel(key mailKey) chan []byte {
	g.mailboxMu.Lock()
	defer g.mailboxMu.Unlock()
	ch, ok := g.mailbox[key]
	if !ok {
		ch = make(chan []byte, 1)
		g.mailbox[key] = ch
	}
	return ch
}

// LocalComm is an in-process, goroutine/channel-backed Communicator: one
// simulated rank per goroutine sharing a group. It gives a caller a real
// multi-"rank" run without an external MPI runtime (spec.md §5's SPMD
// model, exercised here with Go's native concurrency primitives in place
// of an external transport).
type LocalComm struct {
	g    *group
	rank int
}

// Rank returns the Communicator bound to simulated rank r within g.
func Rank(g *group, r int) *LocalComm { return &LocalComm{g: g, rank: r} }

func (c *LocalComm) Size() int { return c.g.size }
func (c *LocalComm) Rank() int { return c.rank }

func (c *LocalComm) AllreduceMaxInt(v int) int {
	vals := c.g.gather(c.rank, v)
	max := vals[0].(int)
	for _, x := range vals[1:] {
		if xi := x.(int); xi > max {
			max = xi
		}
	}
	return max
}

func (c *LocalComm) AllreduceSumInt(v int) int {
	vals := c.g.gather(c.rank, v)
	sum := 0
	for _, x := range vals {
		sum += x.(int)
	}
	return sum
}

func (c *LocalComm) AllreduceMaxLocInt64(v int64) (int64, int) {
	vals := c.g.gather(c.rank, v)
	best := vals[0].(int64)
	bestRank := 0
	for r := 1; r < len(vals); r++ {
		if x := vals[r].(int64); x > best {
			best = x
			bestRank = r
		}
	}
	return best, bestRank
}

func (c *LocalComm) AllgatherInt(v int) []int {
	vals := c.g.gather(c.rank, v)
	out := make([]int, len(vals))
	for i, x := range vals {
		out[i] = x.(int)
	}
	return out
}

func (c *LocalComm) AllgathervChunkInfo(local []chunkInfo, counts []int) []chunkInfo {
	vals := c.g.gather(c.rank, local)
	var out []chunkInfo
	for _, x := range vals {
		out = append(out, x.([]chunkInfo)...)
	}
	return out
}

func (c *LocalComm) Send(dest, tag int, data []byte) error {
	if dest < 0 || dest >= c.g.size {
		return fmt.Errorf("%w: send to out-of-range rank %d", meshpart.ErrCommunicationFailure, dest)
	}
	c.g.channel(mailKey{dest: dest, tag: tag}) <- data
	return nil
}

func (c *LocalComm) Recv(src, tag int) ([]byte, error) {
	if src < 0 || src >= c.g.size {
		return nil, fmt.Errorf("%w: recv from out-of-range rank %d", meshpart.ErrCommunicationFailure, src)
	}
	data := <-c.g.channel(mailKey{dest: c.rank, tag: tag})
	return data, nil
}
