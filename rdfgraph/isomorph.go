package rdfgraph

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
)

// Isomorphic reports whether the two graphs are equal up to a renaming of
// blank-node labels.
//
// Ground triples must match exactly as sets. Blank nodes are first bucketed
// by an iteratively refined neighborhood signature, then a backtracking
// search tries label mappings within matching buckets and verifies the full
// triple sets under the candidate mapping. Test-suite graphs are small, so
// the search stays cheap.
func (g *Graph) Isomorphic(other *Graph) bool {
	if len(g.Triples) != len(other.Triples) {
		return false
	}

	groundA := make(map[string]int)
	groundB := make(map[string]int)
	var blankA, blankB []Triple
	for _, tr := range g.Triples {
		if tr.HasBlank() {
			blankA = append(blankA, tr)
		} else {
			groundA[tr.key()]++
		}
	}
	for _, tr := range other.Triples {
		if tr.HasBlank() {
			blankB = append(blankB, tr)
		} else {
			groundB[tr.key()]++
		}
	}
	if len(groundA) != len(groundB) {
		return false
	}
	for k, n := range groundA {
		if groundB[k] != n {
			return false
		}
	}
	if len(blankA) != len(blankB) {
		return false
	}
	if len(blankA) == 0 {
		return true
	}

	sigA := blankSignatures(blankA)
	sigB := blankSignatures(blankB)
	if len(sigA) != len(sigB) {
		return false
	}

	// Candidate targets per node: the other side's nodes with the same
	// signature.
	nodesA := sortedKeys(sigA)
	candidates := make(map[string][]string, len(nodesA))
	for _, a := range nodesA {
		for b, sb := range sigB {
			if sigA[a] == sb {
				candidates[a] = append(candidates[a], b)
			}
		}
		if len(candidates[a]) == 0 {
			return false
		}
		sort.Strings(candidates[a])
	}
	// Most constrained nodes first.
	sort.SliceStable(nodesA, func(i, j int) bool {
		return len(candidates[nodesA[i]]) < len(candidates[nodesA[j]])
	})

	setB := make(map[string]int, len(blankB))
	for _, tr := range blankB {
		setB[tr.key()]++
	}
	mapping := make(map[string]string, len(nodesA))
	used := make(map[string]bool, len(nodesA))
	return matchBlank(nodesA, 0, candidates, mapping, used, blankA, setB)
}

func matchBlank(nodes []string, i int, candidates map[string][]string, mapping map[string]string, used map[string]bool, blankA []Triple, setB map[string]int) bool {
	if i == len(nodes) {
		return blankSetsEqual(blankA, setB, mapping)
	}
	a := nodes[i]
	for _, b := range candidates[a] {
		if used[b] {
			continue
		}
		mapping[a] = b
		used[b] = true
		if matchBlank(nodes, i+1, candidates, mapping, used, blankA, setB) {
			return true
		}
		delete(mapping, a)
		used[b] = false
	}
	return false
}

func blankSetsEqual(blankA []Triple, setB map[string]int, mapping map[string]string) bool {
	remaining := make(map[string]int, len(setB))
	for k, n := range setB {
		remaining[k] = n
	}
	for _, tr := range blankA {
		k := relabel(tr, mapping).key()
		if remaining[k] == 0 {
			return false
		}
		remaining[k]--
	}
	return true
}

func relabel(tr Triple, mapping map[string]string) Triple {
	if tr.Subject.Kind == BlankTerm {
		tr.Subject.Value = mapping[tr.Subject.Value]
	}
	if tr.Object.Kind == BlankTerm {
		tr.Object.Value = mapping[tr.Object.Value]
	}
	return tr
}

// blankSignatures computes a label-independent signature per blank node by
// refining over each node's incident triples until stable.
func blankSignatures(triples []Triple) map[string]string {
	sigs := make(map[string]string)
	for _, tr := range triples {
		if tr.Subject.Kind == BlankTerm {
			sigs[tr.Subject.Value] = ""
		}
		if tr.Object.Kind == BlankTerm {
			sigs[tr.Object.Value] = ""
		}
	}
	for round := 0; round <= len(sigs); round++ {
		next := make(map[string]string, len(sigs))
		for node := range sigs {
			var parts []string
			for _, tr := range triples {
				if tr.Subject.Kind == BlankTerm && tr.Subject.Value == node {
					parts = append(parts, "S|"+tr.Predicate.key()+"|"+sigTermKey(tr.Object, sigs))
				}
				if tr.Object.Kind == BlankTerm && tr.Object.Value == node {
					parts = append(parts, "O|"+tr.Predicate.key()+"|"+sigTermKey(tr.Subject, sigs))
				}
			}
			sort.Strings(parts)
			sum := sha256.Sum256([]byte(sigs[node] + "\x00" + joinParts(parts)))
			next[node] = hex.EncodeToString(sum[:])
		}
		changed := false
		for node := range sigs {
			if sigs[node] != next[node] {
				changed = true
			}
		}
		sigs = next
		if !changed {
			break
		}
	}
	return sigs
}

func sigTermKey(t Term, sigs map[string]string) string {
	if t.Kind == BlankTerm {
		return "B|" + sigs[t.Value]
	}
	return t.key()
}

func joinParts(parts []string) string {
	out := ""
	for _, p := range parts {
		out += p + "\x01"
	}
	return out
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
