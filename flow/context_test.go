package flow_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/lingominer"
	"github.com/syssam/lingominer/flow"
	"github.com/syssam/lingominer/template"
)

func TestContextSeedRoundTrip(t *testing.T) {
	run := flow.NewContext(map[string]string{
		"paragraph":           "Saturn has moons.",
		"decorated_paragraph": "Saturn has @@moons@@.",
	})

	v, err := run.Get(context.Background(), "paragraph")
	require.NoError(t, err)
	assert.Equal(t, "Saturn has moons.", v)

	// Seeds are excluded from the card content.
	assert.Empty(t, run.Dump(true))

	// But reappear in the full dump with kind text.
	full := run.Dump(false)
	require.Len(t, full, 2)
	assert.Equal(t, flow.FieldState{Kind: template.KindText, Value: "Saturn has moons."}, full["paragraph"])
}

func TestContextSingleAssignment(t *testing.T) {
	run := flow.NewContext(nil)
	require.NoError(t, run.Declare("word", template.KindText))

	require.NoError(t, run.Put("word", "Titan"))
	err := run.Put("word", "Rhea")
	require.Error(t, err)
	assert.True(t, lingominer.IsDoubleAssign(err))

	// The first write sticks.
	v, err := run.Get(context.Background(), "word")
	require.NoError(t, err)
	assert.Equal(t, "Titan", v)
}

func TestContextConcurrentGets(t *testing.T) {
	run := flow.NewContext(nil)
	require.NoError(t, run.Declare("word", template.KindText))

	const readers = 16
	var wg sync.WaitGroup
	values := make([]string, readers)
	for i := 0; i < readers; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := run.Get(context.Background(), "word")
			require.NoError(t, err)
			values[i] = v
		}()
	}

	time.Sleep(10 * time.Millisecond)
	require.NoError(t, run.Put("word", "Titan"))
	wg.Wait()

	for _, v := range values {
		assert.Equal(t, "Titan", v, "all suspended gets observe the same value")
	}
}

func TestContextGetCancellation(t *testing.T) {
	run := flow.NewContext(nil)
	require.NoError(t, run.Declare("never", template.KindText))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	_, err := run.Get(ctx, "never")
	require.Error(t, err)
	assert.True(t, lingominer.IsCancelled(err))

	dctx, dcancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer dcancel()
	_, err = run.Get(dctx, "never")
	require.Error(t, err)
	assert.True(t, lingominer.IsTimeout(err))
}

func TestContextUnknownField(t *testing.T) {
	run := flow.NewContext(nil)
	_, err := run.Get(context.Background(), "ghost")
	assert.True(t, lingominer.IsNotFound(err))
	assert.True(t, lingominer.IsNotFound(run.Put("ghost", "x")))
}

func TestContextDeclareIdempotent(t *testing.T) {
	run := flow.NewContext(nil)
	require.NoError(t, run.Declare("word", template.KindText))
	require.NoError(t, run.Declare("word", template.KindText))

	err := run.Declare("word", template.KindAudio)
	assert.True(t, lingominer.IsValidation(err), "kind mismatch on redeclare")
}

func TestContextDumpIdempotent(t *testing.T) {
	run := flow.NewContext(map[string]string{"paragraph": "p"})
	require.NoError(t, run.Declare("word", template.KindText))
	require.NoError(t, run.Declare("pending", template.KindText))
	require.NoError(t, run.Put("word", "Titan"))

	first := run.Dump(true)
	second := run.Dump(true)
	assert.Equal(t, first, second)
	assert.Len(t, first, 1, "unresolved cells are not dumped")
	assert.Equal(t, flow.FieldState{Kind: template.KindText, Value: "Titan"}, first["word"])
}
