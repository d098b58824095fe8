package textindex

import (
	"math"
	"sort"

	"github.com/perdixdb/perdix/btree"
	"github.com/perdixdb/perdix/internal/textstem"
	"github.com/perdixdb/perdix/record"
)

// Options configures a TextIndex's three backing B+ trees (spec §4.5.2).
type Options struct {
	TermsPath     string
	DocumentsPath string
	LengthsPath   string
	Order         int
	// Stem canonicalizes a token. Defaults to textstem.Stem.
	Stem StemFunc
	// StopWords is consulted during tokenization. Defaults to
	// textstem.StopWords.
	StopWords map[string]bool
}

func (o Options) withDefaults() Options {
	if o.Stem == nil {
		o.Stem = textstem.Stem
	}
	if o.StopWords == nil {
		o.StopWords = textstem.StopWords
	}
	return o
}

// TextIndex is an inverted, stemmed, TF-IDF-scored text index built from
// three cooperating B+ trees: terms (stem -> posting), documents
// (docId -> stem frequencies), and lengths (docId -> total term count).
type TextIndex struct {
	opts      Options
	terms     *btree.Tree
	documents *btree.Tree
	lengths   *btree.Tree
}

// Open opens (or initializes) the three backing trees.
func Open(opts Options) (*TextIndex, error) {
	opts = opts.withDefaults()

	terms, err := btree.Open(btree.Options{Path: opts.TermsPath, Order: opts.Order})
	if err != nil {
		return nil, err
	}
	documents, err := btree.Open(btree.Options{Path: opts.DocumentsPath, Order: opts.Order})
	if err != nil {
		terms.Close()
		return nil, err
	}
	lengths, err := btree.Open(btree.Options{Path: opts.LengthsPath, Order: opts.Order})
	if err != nil {
		terms.Close()
		documents.Close()
		return nil, err
	}

	return &TextIndex{opts: opts, terms: terms, documents: documents, lengths: lengths}, nil
}

// Close releases all three backing trees.
func (t *TextIndex) Close() error {
	var firstErr error
	for _, c := range []func() error{t.terms.Close, t.documents.Close, t.lengths.Close} {
		if err := c(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func encodePosting(m map[string]int64) record.Value {
	pairs := make([]struct {
		Key   string
		Value record.Value
	}, 0, len(m))
	for k, v := range m {
		pairs = append(pairs, struct {
			Key   string
			Value record.Value
		}{k, record.MustInt(v)})
	}
	return record.ObjectFromPairs(pairs)
}

func decodePosting(v record.Value) map[string]int64 {
	keys, vals := v.Fields()
	m := make(map[string]int64, len(keys))
	for i, k := range keys {
		n, _ := vals[i].Int()
		m[k] = n
	}
	return m
}

// Add indexes text under docId. A second Add for the same docId merges:
// stems mentioned in the new text replace their frequency, stems from an
// earlier Add that are absent from this call are left untouched (spec
// §4.5.2).
func (t *TextIndex) Add(docId, text string) error {
	stemsList := Stems(text, t.opts.StopWords, t.opts.Stem)

	freq := make(map[string]int64)
	for _, s := range stemsList {
		freq[s]++
	}

	for stem, f := range freq {
		postingVal, found, err := t.terms.Search(record.String(stem))
		if err != nil {
			return err
		}
		posting := map[string]int64{}
		if found {
			posting = decodePosting(postingVal)
		}
		posting[docId] = f
		if _, err := t.terms.Add(record.String(stem), encodePosting(posting)); err != nil {
			return err
		}
	}

	docVal, found, err := t.documents.Search(record.String(docId))
	if err != nil {
		return err
	}
	merged := map[string]int64{}
	if found {
		merged = decodePosting(docVal)
	}
	for stem, f := range freq {
		merged[stem] = f
	}
	if _, err := t.documents.Add(record.String(docId), encodePosting(merged)); err != nil {
		return err
	}

	var total int64
	for _, f := range merged {
		total += f
	}
	_, err = t.lengths.Add(record.String(docId), record.MustInt(total))
	return err
}

// Remove deletes docId's bindings from all three trees, reporting whether
// it was present.
func (t *TextIndex) Remove(docId string) (bool, error) {
	docVal, found, err := t.documents.Search(record.String(docId))
	if err != nil {
		return false, err
	}
	if !found {
		return false, nil
	}

	doc := decodePosting(docVal)
	for stem := range doc {
		postingVal, found, err := t.terms.Search(record.String(stem))
		if err != nil {
			return false, err
		}
		if !found {
			continue
		}
		posting := decodePosting(postingVal)
		delete(posting, docId)
		if len(posting) == 0 {
			if _, err := t.terms.Delete(record.String(stem)); err != nil {
				return false, err
			}
		} else if _, err := t.terms.Add(record.String(stem), encodePosting(posting)); err != nil {
			return false, err
		}
	}

	if _, err := t.documents.Delete(record.String(docId)); err != nil {
		return false, err
	}
	if _, err := t.lengths.Delete(record.String(docId)); err != nil {
		return false, err
	}
	return true, nil
}

// QueryMode selects query's set semantics (spec §4.5.2).
type QueryMode int

const (
	// ScoredOR is the default: union of postings, TF-IDF scored with a
	// coverage boost, descending by score.
	ScoredOR QueryMode = iota
	// UnscoredOR returns the same documents in the same order as ScoredOR,
	// with every Score left at zero.
	UnscoredOR
	// RequireAll intersects posting key sets across every query stem.
	RequireAll
)

// Result is one Query hit.
type Result struct {
	DocId string
	Score float64
}

// Query searches for text under mode.
func (t *TextIndex) Query(text string, mode QueryMode) ([]Result, error) {
	stemsList := Stems(text, t.opts.StopWords, t.opts.Stem)

	seen := make(map[string]bool, len(stemsList))
	var uniqueStems []string
	for _, s := range stemsList {
		if !seen[s] {
			seen[s] = true
			uniqueStems = append(uniqueStems, s)
		}
	}

	if mode == RequireAll {
		return t.queryRequireAll(uniqueStems)
	}
	return t.queryOR(uniqueStems, mode == UnscoredOR)
}

func (t *TextIndex) queryRequireAll(stems []string) ([]Result, error) {
	if len(stems) == 0 {
		return nil, nil
	}

	var sets []map[string]int64
	for _, s := range stems {
		postingVal, found, err := t.terms.Search(record.String(s))
		if err != nil {
			return nil, err
		}
		if !found {
			return nil, nil
		}
		sets = append(sets, decodePosting(postingVal))
	}

	var out []Result
	for docId := range sets[0] {
		inAll := true
		for _, s := range sets[1:] {
			if _, ok := s[docId]; !ok {
				inAll = false
				break
			}
		}
		if inAll {
			out = append(out, Result{DocId: docId})
		}
	}
	return out, nil
}

func (t *TextIndex) queryOR(stems []string, unscored bool) ([]Result, error) {
	totalDocs := t.lengths.Size()

	scores := make(map[string]float64)
	var discovery []string
	seenDoc := make(map[string]bool)

	for _, stem := range stems {
		postingVal, found, err := t.terms.Search(record.String(stem))
		if err != nil {
			return nil, err
		}
		if !found {
			continue
		}
		posting := decodePosting(postingVal)
		df := int64(len(posting))
		if df == 0 {
			continue
		}
		idf := math.Log(float64(totalDocs) / float64(df))

		for docId, tfRaw := range posting {
			length := int64(1)
			lenVal, found, err := t.lengths.Search(record.String(docId))
			if err != nil {
				return nil, err
			}
			if found {
				if n, ok := lenVal.Int(); ok && n != 0 {
					length = n
				}
			}
			tf := float64(tfRaw) / float64(length)

			if !seenDoc[docId] {
				seenDoc[docId] = true
				discovery = append(discovery, docId)
			}
			scores[docId] += tf * idf
		}
	}

	uniqueCount := len(stems)
	for docId := range scores {
		coverage := 0.0
		if uniqueCount > 0 {
			docVal, found, err := t.documents.Search(record.String(docId))
			if err != nil {
				return nil, err
			}
			if found {
				docStems := decodePosting(docVal)
				present := 0
				for _, s := range stems {
					if _, ok := docStems[s]; ok {
						present++
					}
				}
				coverage = float64(present) / float64(uniqueCount)
			}
		}
		scores[docId] *= 1 + coverage
	}

	order := make(map[string]int, len(discovery))
	for i, d := range discovery {
		order[d] = i
	}

	results := make([]Result, 0, len(scores))
	for docId, score := range scores {
		results = append(results, Result{DocId: docId, Score: score})
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return order[results[i].DocId] < order[results[j].DocId]
	})

	if unscored {
		for i := range results {
			results[i].Score = 0
		}
	}
	return results, nil
}
