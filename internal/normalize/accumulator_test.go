package normalize

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dealsift/internal/types"
)

func listingWithTitle(id, title string) *types.Listing {
	l := types.NewListing("https://example.com/search")
	l.Identifier = id
	l.SetString(&l.Title, "title", title, "title:heading")
	return l
}

func TestAccumulatorFirstSeenWins(t *testing.T) {
	acc := NewAccumulator(8)

	first := listingWithTitle("1183002", "First version of the record")
	second := listingWithTitle("1183002", "Later version of the record")

	assert.True(t, acc.Insert(first))
	assert.False(t, acc.Insert(second), "duplicate identifier must be discarded")

	all := acc.All()
	require.Len(t, all, 1)
	assert.Equal(t, "First version of the record", *all[0].Title)
	assert.Equal(t, 1, acc.Dropped())
}

func TestAccumulatorDrain(t *testing.T) {
	acc := NewAccumulator(8)

	require.True(t, acc.Insert(listingWithTitle("1", "One listing for the batch")))
	require.True(t, acc.Insert(listingWithTitle("2", "Two listings for the batch")))

	batch := acc.Drain()
	assert.Len(t, batch, 2)
	assert.Empty(t, acc.Drain(), "second drain must be empty")

	// Drained identifiers still dedup.
	assert.False(t, acc.Insert(listingWithTitle("1", "Duplicate after drain")))

	require.True(t, acc.Insert(listingWithTitle("3", "Arrived after the drain")))
	batch = acc.Drain()
	require.Len(t, batch, 1)
	assert.Equal(t, "3", batch[0].Identifier)
}

func TestAccumulatorExportImport(t *testing.T) {
	acc := NewAccumulator(8)
	require.True(t, acc.Insert(listingWithTitle("1183002", "Persisted in a previous run")))
	require.True(t, acc.Insert(listingWithTitle("1183003", "Also persisted previously")))

	ids := acc.Export()
	assert.ElementsMatch(t, []string{"1183002", "1183003"}, ids)

	resumed := NewAccumulator(8)
	resumed.Import(ids)

	assert.False(t, resumed.Insert(listingWithTitle("1183002", "Should be skipped on resume")))
	assert.True(t, resumed.Insert(listingWithTitle("1183099", "Genuinely new listing")))

	// Imported ids carry no record, so All returns only real listings.
	all := resumed.All()
	require.Len(t, all, 1)
	assert.Equal(t, "1183099", all[0].Identifier)
}

func TestAccumulatorConcurrentInserts(t *testing.T) {
	acc := NewAccumulator(256)

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// All workers race on the same 100 identifiers.
			for i := 0; i < 100; i++ {
				acc.Insert(listingWithTitle(fmt.Sprintf("%d", i), "Raced listing record"))
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 100, acc.Len())
	assert.Equal(t, 700, acc.Dropped())
}

func TestAccumulatorSyntheticNeverCollides(t *testing.T) {
	acc := NewAccumulator(8)

	real := listingWithTitle("1183002", "Real numeric identifier")
	synthetic := listingWithTitle(types.SyntheticIDPrefix+"1183002", "Synthetic twin")

	assert.True(t, acc.Insert(real))
	assert.True(t, acc.Insert(synthetic), "prefixed synthetic id must not collide with the numeric one")
	assert.Equal(t, 2, acc.Len())
}
