package engine

import (
	"bytes"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"time"

	"ferret/block"
	"ferret/collection"
	"ferret/ferrerr"
	"ferret/query"
	"ferret/trie"
	"ferret/valuestore"
	"ferret/version"
)

// DefaultEdits is the edit budget a bare `~` fuzzy modifier uses when the
// query language itself carries no max-edits parameter.
const DefaultEdits = 2

// ScoredDocument is one ranked result.
type ScoredDocument struct {
	DocID uint64
	Score float64
}

// Evaluator answers field/value queries against one collection's published
// batch versions.
type Evaluator struct {
	col          *collection.Collection
	defaultEdits int

	tries map[versionKey]*trie.Trie
}

type versionKey struct {
	versionID int64
	keyID     uint64
}

// New returns an Evaluator over col using DefaultEdits for fuzzy queries.
func New(col *collection.Collection) *Evaluator {
	return &Evaluator{col: col, defaultEdits: DefaultEdits, tries: map[versionKey]*trie.Trie{}}
}

// Evaluate parses q, evaluates it against every published version newest
// first, and returns the top-k results by score (stable ascending doc-id on
// ties). Later versions shadow earlier ones on matching primary-key value.
func (e *Evaluator) Evaluate(q string, topK int) ([]ScoredDocument, error) {
	stmts, err := query.Parse(q)
	if err != nil {
		return nil, err
	}
	if stmts == nil {
		return nil, nil
	}

	versions, err := version.List(e.col.VersionDir())
	if err != nil {
		return nil, err
	}

	seenPK := map[string]bool{}
	var all []ScoredDocument

	for i := len(versions) - 1; i >= 0; i-- {
		versionID := versions[i]
		info, err := version.Read(e.col.VersionDir(), versionID)
		if err != nil {
			return nil, err
		}

		docs, err := e.evaluateVersion(stmts, versionID, info)
		if err != nil {
			return nil, err
		}

		for _, d := range docs {
			pk, err := e.primaryKeyValue(info, d.DocID)
			if err != nil {
				return nil, err
			}
			if pk != "" {
				if seenPK[pk] {
					continue
				}
				seenPK[pk] = true
			}
			all = append(all, d)
		}
	}

	sort.Slice(all, func(i, j int) bool {
		if all[i].Score != all[j].Score {
			return all[i].Score > all[j].Score
		}
		return all[i].DocID < all[j].DocID
	})

	if topK > 0 && len(all) > topK {
		all = all[:topK]
	}
	return all, nil
}

// primaryKeyValue returns the stringified primary-key field value for
// docID in the batch described by info, or "" if the batch names no
// primary key or the document no longer carries that field.
func (e *Evaluator) primaryKeyValue(info version.Info, docID uint64) (string, error) {
	if info.PrimaryKey == "" {
		return "", nil
	}
	keyID, ok := e.col.Keys.LookupID(info.PrimaryKey)
	if !ok {
		return "", nil
	}
	doc, err := e.col.Docs.Read(int64(docID))
	if err != nil {
		return "", err
	}
	for _, f := range doc {
		if f.KeyID == keyID {
			val, err := e.col.Values.Read(f.Value)
			if err != nil {
				return "", err
			}
			return stringifyValue(val), nil
		}
	}
	return "", nil
}

func (e *Evaluator) evaluateVersion(stmts *query.Node, versionID int64, info version.Info) ([]ScoredDocument, error) {
	acc := map[uint64]float64{}
	first := true

	for stmt := stmts; stmt != nil; stmt = stmt.Next {
		chain, err := e.evaluateChain(stmt, versionID, info)
		if err != nil {
			return nil, err
		}
		foldInto(acc, chain, stmt.Bool, first)
		first = false
	}

	out := make([]ScoredDocument, 0, len(acc))
	for id, score := range acc {
		out = append(out, ScoredDocument{DocID: id, Score: score})
	}
	return out, nil
}

// evaluateChain resolves one statement and every Then-chained term it
// tokenized into, AND-composing the chain (a multi-word value requires
// every word to match).
func (e *Evaluator) evaluateChain(stmt *query.Node, versionID int64, info version.Info) (map[uint64]float64, error) {
	acc := map[uint64]float64{}
	first := true
	for n := stmt; n != nil; n = n.Then {
		docs, err := e.evaluateNode(n, versionID, info)
		if err != nil {
			return nil, err
		}
		foldInto(acc, docs, query.OpAND, first)
		first = false
	}
	return acc, nil
}

// evaluateNode resolves a single node's term(s) — possibly several under a
// fuzzy or prefix modifier — and unions their postings, each weighted by
// idf (and, for fuzzy, by closeness of match).
func (e *Evaluator) evaluateNode(n *query.Node, versionID int64, info version.Info) (map[uint64]float64, error) {
	keyID, ok := e.col.Keys.LookupID(n.Key)
	if !ok {
		return nil, nil
	}
	t, ok, err := e.trieFor(versionID, keyID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	acc := map[uint64]float64{}

	addTerm := func(term string, weight float64) error {
		h, ok := t.Postings(term)
		if !ok {
			return nil
		}
		ids, err := e.col.Pos.Read(h.Offset)
		if err != nil {
			return err
		}
		termIDF := idf(info.DocumentCount, int64(h.Length))
		for _, id := range ids {
			acc[id] += weight * termIDF
		}
		return nil
	}

	switch {
	case n.Cmp == query.CmpLt:
		for _, term := range t.Range("", n.Value) {
			if err := addTerm(term, 1.0); err != nil {
				return nil, err
			}
		}
	case n.Cmp == query.CmpGt:
		for _, term := range t.Range(n.Value, highSentinel) {
			if err := addTerm(term, 1.0); err != nil {
				return nil, err
			}
		}
	case n.Modifier == query.ModFuzzy:
		for _, r := range t.Near(n.Value, e.defaultEdits) {
			weight := 1.0 - float64(r.Distance)/float64(e.defaultEdits)
			if err := addTerm(r.Term, weight); err != nil {
				return nil, err
			}
		}
	case n.Modifier == query.ModPrefix:
		for _, term := range t.StartsWith(n.Value) {
			if err := addTerm(term, 1.0); err != nil {
				return nil, err
			}
		}
	default:
		if t.Has(n.Value) {
			if err := addTerm(n.Value, 1.0); err != nil {
				return nil, err
			}
		}
	}

	return acc, nil
}

// highSentinel sorts after any realistic indexed term for an open-ended
// ">" range bound.
const highSentinel = "\U0010FFFF\U0010FFFF\U0010FFFF\U0010FFFF"

func (e *Evaluator) trieFor(versionID int64, keyID uint64) (*trie.Trie, bool, error) {
	key := versionKey{versionID: versionID, keyID: keyID}
	if t, ok := e.tries[key]; ok {
		return t, true, nil
	}

	path := filepath.Join(e.col.VersionDir(), fmt.Sprintf("%d.%d.tri", versionID, keyID))
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, ferrerr.IO(fmt.Sprintf("reading trie file %s", path), err)
	}

	t, err := trie.Deserialize(bytes.NewReader(data))
	if err != nil {
		return nil, false, err
	}
	e.tries[key] = t
	return t, true, nil
}

// idf mirrors the teacher's tf-idf weighting (log((N+1)/(df+1))), adapted
// since the paged postings format carries no per-document term frequency:
// every doc-id in a matched term's list contributes the term's idf once.
func idf(totalDocs, docFreq int64) float64 {
	if totalDocs <= 0 {
		totalDocs = 1
	}
	return math.Log(float64(totalDocs+1) / float64(docFreq+1))
}

// foldInto composes list into acc using op, mirroring postings.Store.Reduce's
// algorithm at the document-score-map level instead of over raw postings
// cursors, since this layer must first union several terms (fuzzy/prefix
// matches, or a term's candidates under one node) before the node's result
// is AND/OR/NOT-folded against the rest of the query.
func foldInto(acc map[uint64]float64, list map[uint64]float64, op query.BoolOp, first bool) {
	if first {
		for id, s := range list {
			acc[id] = s
		}
		return
	}
	switch op {
	case query.OpAND:
		for id := range acc {
			if s, ok := list[id]; ok {
				acc[id] += s
			} else {
				delete(acc, id)
			}
		}
	case query.OpOR:
		for id, s := range list {
			if _, ok := acc[id]; ok {
				acc[id] += s
			} else {
				acc[id] = s
			}
		}
	case query.OpNOT:
		for id := range list {
			delete(acc, id)
		}
	}
}

func stringifyValue(v valuestore.Value) string {
	switch v.Type {
	case block.TypeString:
		return v.String
	case block.TypeInt64:
		return fmt.Sprintf("%d", v.Int64)
	case block.TypeFloat64:
		return fmt.Sprintf("%g", v.Float64)
	case block.TypeTimestamp:
		return v.Timestamp.UTC().Format(time.RFC3339Nano)
	default:
		return ""
	}
}
