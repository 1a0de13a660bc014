// Package backend defines the side-effecting collaborators of the flow
// engine: language-model completion, speech synthesis and image generation.
// Their wire protocols are hidden behind three small interfaces so tests
// and alternative providers can stand in.
package backend

import "context"

// Completion calls a language model in JSON-object mode and returns the raw
// response body, expected to be a single JSON object.
type Completion interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Speech synthesizes an utterance with the given voice and returns the
// encoded audio bytes.
type Speech interface {
	Synthesize(ctx context.Context, text, voice string) ([]byte, error)
}

// Image generates a picture for a prompt and returns the encoded image
// bytes.
type Image interface {
	Generate(ctx context.Context, prompt string) ([]byte, error)
}
