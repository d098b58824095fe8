package textindex

import (
	"path/filepath"
	"testing"

	"github.com/perdixdb/perdix/record"
	"github.com/stretchr/testify/require"
)

func stringKey(s string) record.Value { return record.String(s) }

func openIndex(t *testing.T) *TextIndex {
	t.Helper()
	dir := t.TempDir()
	idx, err := Open(Options{
		TermsPath:     filepath.Join(dir, "terms.bin"),
		DocumentsPath: filepath.Join(dir, "documents.bin"),
		LengthsPath:   filepath.Join(dir, "lengths.bin"),
		Order:         4,
	})
	require.NoError(t, err)
	t.Cleanup(func() { idx.Close() })
	return idx
}

func TestTokenizeLowercasesSplitsAndDropsStopwords(t *testing.T) {
	toks := Tokenize("The Quick, brown-fox jumps!", map[string]bool{"the": true})
	require.Equal(t, []string{"quick", "brown", "fox", "jumps"}, toks)
}

func TestStemAppliesToEachToken(t *testing.T) {
	stems := Stems("running runners", nil, func(s string) string { return s + "X" })
	require.Equal(t, []string{"runningX", "runnersX"}, stems)
}

func TestAddAndQueryFindsMatchingDocument(t *testing.T) {
	idx := openIndex(t)

	require.NoError(t, idx.Add("doc1", "the quick brown fox"))
	require.NoError(t, idx.Add("doc2", "lazy dogs sleep all day"))

	results, err := idx.Query("fox", ScoredOR)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "doc1", results[0].DocId)
}

func TestQueryOrderedByTFIDFScore(t *testing.T) {
	idx := openIndex(t)

	require.NoError(t, idx.Add("doc1", "cat cat cat dog"))
	require.NoError(t, idx.Add("doc2", "cat dog dog dog dog"))
	require.NoError(t, idx.Add("doc3", "fish fish fish"))

	results, err := idx.Query("dog", ScoredOR)
	require.NoError(t, err)
	require.Len(t, results, 2)
	// doc2 mentions "dog" with a higher relative frequency than doc1.
	require.Equal(t, "doc2", results[0].DocId)
	require.Equal(t, "doc1", results[1].DocId)
	require.Greater(t, results[0].Score, results[1].Score)
}

func TestQueryRequireAllIntersectsStems(t *testing.T) {
	idx := openIndex(t)

	require.NoError(t, idx.Add("doc1", "red apple green apple"))
	require.NoError(t, idx.Add("doc2", "red banana"))

	results, err := idx.Query("red apple", RequireAll)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "doc1", results[0].DocId)
}

func TestUnscoredOROmitsScores(t *testing.T) {
	idx := openIndex(t)
	require.NoError(t, idx.Add("doc1", "alpha beta"))

	results, err := idx.Query("alpha", UnscoredOR)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, 0.0, results[0].Score)
}

func TestAddTwiceReplacesStemFrequenciesNotOtherStems(t *testing.T) {
	idx := openIndex(t)

	require.NoError(t, idx.Add("doc1", "alpha beta beta"))
	require.NoError(t, idx.Add("doc1", "alpha alpha alpha"))

	docVal, found, err := idx.documents.Search(stringKey("doc1"))
	require.NoError(t, err)
	require.True(t, found)

	merged := decodePosting(docVal)
	require.EqualValues(t, 3, merged["alpha"])
	require.EqualValues(t, 2, merged["beta"], "beta from the first Add must survive since the second Add never mentions it")
}

func TestRemoveDeletesFromAllThreeTrees(t *testing.T) {
	idx := openIndex(t)
	require.NoError(t, idx.Add("doc1", "alpha beta"))
	require.NoError(t, idx.Add("doc2", "alpha gamma"))

	removed, err := idx.Remove("doc1")
	require.NoError(t, err)
	require.True(t, removed)

	_, found, err := idx.documents.Search(stringKey("doc1"))
	require.NoError(t, err)
	require.False(t, found)

	_, found, err = idx.lengths.Search(stringKey("doc1"))
	require.NoError(t, err)
	require.False(t, found)

	postingVal, found, err := idx.terms.Search(stringKey("alpha"))
	require.NoError(t, err)
	require.True(t, found, "alpha still has doc2's posting")
	posting := decodePosting(postingVal)
	_, hasDoc1 := posting["doc1"]
	require.False(t, hasDoc1)

	removed, err = idx.Remove("doc1")
	require.NoError(t, err)
	require.False(t, removed)
}

func TestDocumentWithNoTermsHasZeroLengthAndNeverScores(t *testing.T) {
	idx := openIndex(t)
	require.NoError(t, idx.Add("empty", ""))

	lenVal, found, err := idx.lengths.Search(stringKey("empty"))
	require.NoError(t, err)
	require.True(t, found)
	n, _ := lenVal.Int()
	require.EqualValues(t, 0, n)

	results, err := idx.Query("anything", ScoredOR)
	require.NoError(t, err)
	for _, r := range results {
		require.NotEqual(t, "empty", r.DocId)
	}
}

func TestCompactPreservesQueryResults(t *testing.T) {
	idx := openIndex(t)
	require.NoError(t, idx.Add("doc1", "alpha beta"))
	require.NoError(t, idx.Add("doc2", "alpha gamma"))

	destBase := filepath.Join(t.TempDir(), "compacted")
	_, err := idx.Compact(destBase)
	require.NoError(t, err)

	results, err := idx.Query("alpha", ScoredOR)
	require.NoError(t, err)
	require.Len(t, results, 2)
}
