// Package provenance implements the causal DAG over receipt hashes (C6).
// Nodes are keyed on receipt_hash, a value type, never on a back-pointer
// into the ledger — the redesign note in spec.md §9 calls this out
// explicitly as the way to avoid a cyclic dependency between the DAG and
// the ledger; parents a caller wants resolved to full receipts go back
// through ledger.GetByHash lazily. Ancestors/Descendants generalize the
// closed-form position arithmetic an MMR uses to walk a node's ancestor
// chain (valid there because an MMR's shape is fixed by its size) into an
// explicit BFS over a hash-keyed adjacency map, since a general DAG has
// no closed form; the walk is budgeted defensively against corruption
// rather than trusting acyclicity.
package provenance

import "github.com/mapleaiorg/wll/model"

type node struct {
	hash    model.ObjectId
	parents []model.ObjectId
	seq     uint64
}

// DAG is a concurrency-naive, single-owner causal graph; callers that share
// one across goroutines must serialize their own access (the ledger and
// gate already serialize the commitment path that feeds it).
type DAG struct {
	nodes    map[model.ObjectId]node
	children map[model.ObjectId][]model.ObjectId
}

// New returns an empty DAG.
func New() *DAG {
	return &DAG{
		nodes:    make(map[model.ObjectId]node),
		children: make(map[model.ObjectId][]model.ObjectId),
	}
}

// AddNode records hash with the given causal parents and the receipt's
// seq (used only to break common-ancestor ties). Idempotent: re-adding an
// already known hash is a no-op, even with a different parent set, since
// a receipt hash is immutable once minted and so are its causal parents.
func (d *DAG) AddNode(hash model.ObjectId, parents []model.ObjectId, seq uint64) {
	if _, exists := d.nodes[hash]; exists {
		return
	}
	d.nodes[hash] = node{hash: hash, parents: append([]model.ObjectId(nil), parents...), seq: seq}
	for _, p := range parents {
		d.children[p] = append(d.children[p], hash)
	}
}

// Contains reports whether hash has been recorded.
func (d *DAG) Contains(hash model.ObjectId) bool {
	_, ok := d.nodes[hash]
	return ok
}

// Ancestors returns every node reachable by following parent edges from
// hash (not including hash itself), via cycle-safe BFS: a corrupted graph
// that loops is reported as ErrCycleDetected rather than hung on forever.
func (d *DAG) Ancestors(hash model.ObjectId) (map[model.ObjectId]struct{}, error) {
	if !d.Contains(hash) {
		return nil, ErrNodeNotFound
	}
	return d.walk(hash, func(n node) []model.ObjectId { return n.parents })
}

// Descendants returns every node reachable by following child edges from
// hash (not including hash itself).
func (d *DAG) Descendants(hash model.ObjectId) (map[model.ObjectId]struct{}, error) {
	if !d.Contains(hash) {
		return nil, ErrNodeNotFound
	}
	return d.walk(hash, func(n node) []model.ObjectId { return d.children[n.hash] })
}

func (d *DAG) walk(start model.ObjectId, next func(node) []model.ObjectId) (map[model.ObjectId]struct{}, error) {
	// visited is seeded with start so the walk never requeues it; if the
	// walk ever tries to reach start again from somewhere else, that is
	// itself the signature of a cycle (cycleBackToStart below), not a
	// normal "we already have this" dedup.
	visited := map[model.ObjectId]struct{}{start: {}}
	queue := []model.ObjectId{start}
	cycleBackToStart := false

	// A correct acyclic walk visits each node at most once; budget the
	// total number of dequeues at len(nodes)+1 so a cycle is caught
	// rather than spun on forever.
	budget := len(d.nodes) + 1

	for len(queue) > 0 {
		if budget == 0 {
			return nil, ErrCycleDetected
		}
		budget--

		cur := queue[0]
		queue = queue[1:]

		n, ok := d.nodes[cur]
		if !ok {
			continue
		}
		for _, adj := range next(n) {
			if adj == start {
				cycleBackToStart = true
				continue
			}
			if _, seen := visited[adj]; seen {
				continue
			}
			visited[adj] = struct{}{}
			queue = append(queue, adj)
		}
	}
	if cycleBackToStart {
		return nil, ErrCycleDetected
	}
	delete(visited, start)
	return visited, nil
}

// CommonAncestor returns the lowest common ancestor of a and b: the
// deepest node reachable from both (i.e. not dominated, within the common
// set, by another common ancestor), breaking ties on smallest seq. Returns
// false if a and b share no common ancestor.
func (d *DAG) CommonAncestor(a, b model.ObjectId) (model.ObjectId, bool, error) {
	ancA, err := d.inclusiveAncestors(a)
	if err != nil {
		return model.ObjectId{}, false, err
	}
	ancB, err := d.inclusiveAncestors(b)
	if err != nil {
		return model.ObjectId{}, false, err
	}

	common := make(map[model.ObjectId]struct{})
	for h := range ancA {
		if _, ok := ancB[h]; ok {
			common[h] = struct{}{}
		}
	}
	if len(common) == 0 {
		return model.ObjectId{}, false, nil
	}

	// A node x in common is dominated (not the lowest) if some other node
	// y in common has x as one of its ancestors: y is strictly more
	// downstream, so y is the better common-ancestor candidate.
	lowest := make([]model.ObjectId, 0, len(common))
	for x := range common {
		dominated := false
		for y := range common {
			if x == y {
				continue
			}
			yAnc, err := d.Ancestors(y)
			if err != nil {
				return model.ObjectId{}, false, err
			}
			if _, ok := yAnc[x]; ok {
				dominated = true
				break
			}
		}
		if !dominated {
			lowest = append(lowest, x)
		}
	}

	best := lowest[0]
	bestSeq := d.nodes[best].seq
	for _, candidate := range lowest[1:] {
		if s := d.nodes[candidate].seq; s < bestSeq {
			best, bestSeq = candidate, s
		}
	}
	return best, true, nil
}

// inclusiveAncestors is Ancestors plus hash itself, used by CommonAncestor
// since a node is trivially its own common ancestor with itself.
func (d *DAG) inclusiveAncestors(hash model.ObjectId) (map[model.ObjectId]struct{}, error) {
	anc, err := d.Ancestors(hash)
	if err != nil {
		return nil, err
	}
	anc[hash] = struct{}{}
	return anc, nil
}
