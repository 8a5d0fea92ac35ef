package lexical

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clearwater-labs/quarry-cli/internal/core/ports/driven"
)

func TestTokenize(t *testing.T) {
	assert.Equal(t,
		[]string{"give", "feedback", "don't", "wait"},
		Tokenize("Give FEEDBACK; don't wait!"))

	assert.Equal(t, []string{"שלום", "עולם"}, Tokenize("שלום, עולם."))

	assert.Equal(t, []string{"step", "1", "listen"}, Tokenize("Step 1: listen"))

	assert.Empty(t, Tokenize("... --- !!!"))
}

func TestIndex_AddAndPostings(t *testing.T) {
	ix := New()
	ix.Add("doc:0001", "feedback matters and feedback helps")
	ix.Add("doc:0000", "feedback once")

	hits := ix.Postings("feedback")
	require.Len(t, hits, 2)
	// Ordered by passage ID.
	assert.Equal(t, driven.TermHit{PassageID: "doc:0000", Frequency: 1}, hits[0])
	assert.Equal(t, driven.TermHit{PassageID: "doc:0001", Frequency: 2}, hits[1])

	assert.Equal(t, 2, ix.Frequency("doc:0001", "feedback"))
	assert.Equal(t, 0, ix.Frequency("doc:0001", "absent"))
	assert.Nil(t, ix.Postings("absent"))
}

func TestIndex_ReAddReplacesPostings(t *testing.T) {
	ix := New()
	ix.Add("doc:0000", "coaching and delegation")
	ix.Add("doc:0000", "coaching only now")

	assert.Equal(t, 1, ix.Frequency("doc:0000", "coaching"))
	assert.Zero(t, ix.Frequency("doc:0000", "delegation"))
	assert.Nil(t, ix.Postings("delegation"))
	assert.Equal(t, 1, ix.Len())
}

func TestIndex_Remove(t *testing.T) {
	ix := New()
	ix.Add("doc:0000", "leadership direction")
	ix.Add("doc:0001", "leadership influence")

	ix.Remove("doc:0000")

	assert.False(t, ix.Contains("doc:0000"))
	assert.True(t, ix.Contains("doc:0001"))
	assert.Equal(t, 1, ix.Len())

	hits := ix.Postings("leadership")
	require.Len(t, hits, 1)
	assert.Equal(t, "doc:0001", hits[0].PassageID)
	assert.Nil(t, ix.Postings("direction"))

	// Removing an absent passage is a no-op.
	ix.Remove("doc:0000")
	assert.Equal(t, 1, ix.Len())
}
