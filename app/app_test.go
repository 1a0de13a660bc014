package app_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/lingominer/app"
	"github.com/syssam/lingominer/config"
	"github.com/syssam/lingominer/flow"
	"github.com/syssam/lingominer/template"
)

func TestNew(t *testing.T) {
	cfg := config.Default()
	cfg.BlobDir = t.TempDir()
	cfg.RunTimeout = 5 * time.Second

	a := app.New(cfg)
	t.Cleanup(func() { _ = a.Close() })

	require.NotNil(t, a.Store)
	require.NotNil(t, a.Flow)
	require.NotNil(t, a.Cards)
	require.NotNil(t, a.Blobs)

	// The built-in actions are registered and back the template editor's
	// method validation.
	for _, method := range []string{flow.MethodCompletion, flow.MethodToSpeech, flow.MethodToImage} {
		_, ok := a.Registry.Lookup(method)
		assert.True(t, ok, "method %q", method)
	}
	err := a.Registry.ValidateMethod(flow.MethodToSpeech, "say {{paragraph}}",
		[]template.FieldDef{{Name: "utterance", Kind: template.KindAudio}})
	assert.NoError(t, err)
}
