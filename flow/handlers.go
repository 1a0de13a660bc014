package flow

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/syssam/lingominer"
	"github.com/syssam/lingominer/backend"
	"github.com/syssam/lingominer/blob"
	"github.com/syssam/lingominer/template"
)

// Built-in method names.
const (
	MethodCompletion = "completion"
	MethodToSpeech   = "toSpeech"
	MethodToImage    = "toImage"
)

// Deps carries the backends and stores the built-in handlers effect
// through. All members are initialised at startup and read-only afterwards.
type Deps struct {
	Completion backend.Completion
	Speech     backend.Speech
	Image      backend.Image
	Blob       blob.Store
	Bucket     string // blob bucket for audio and image artifacts
	Voice      string // speech synthesis voice code
	Logger     zerolog.Logger
}

// RegisterBuiltins installs the completion, toSpeech and toImage handlers.
func RegisterBuiltins(r *Registry, deps Deps) {
	r.Register(MethodCompletion, completionHandler(deps), CompletionSignature)
	r.Register(MethodToSpeech, toSpeechHandler(deps), ToSpeechSignature)
	r.Register(MethodToImage, toImageHandler(deps), ToImageSignature)
}

// completionHandler renders the prompt with the JSON output-format suffix,
// calls the language model and extracts one value per declared output.
// Extra keys in the response are dropped.
func completionHandler(deps Deps) Handler {
	return func(ctx context.Context, _ *Context, gen *template.Generation, inputs map[string]string) (map[string]string, error) {
		prompt, err := RenderCompletion(gen.Prompt, inputs, gen.OutputDefs())
		if err != nil {
			return nil, err
		}
		deps.Logger.Debug().Str("generation", gen.Name).Msg("calling completion backend")
		raw, err := deps.Completion.Complete(ctx, prompt)
		if err != nil {
			return nil, lingominer.NewBackendError(MethodCompletion, err)
		}
		var decoded map[string]any
		if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
			return nil, &lingominer.ParseError{Message: "invalid JSON object", Err: err}
		}
		out := make(map[string]string, len(gen.Outputs))
		for _, o := range gen.Outputs {
			v, ok := decoded[o.Name]
			if !ok {
				return nil, &lingominer.ParseError{Field: o.Name}
			}
			out[o.Name] = stringify(v)
		}
		return out, nil
	}
}

// toSpeechHandler renders the prompt as the utterance text, synthesizes it
// and uploads the audio under a fresh opaque key. The output value is the
// artifact key.
func toSpeechHandler(deps Deps) Handler {
	return func(ctx context.Context, _ *Context, gen *template.Generation, inputs map[string]string) (map[string]string, error) {
		utterance, err := Render(gen.Prompt, inputs)
		if err != nil {
			return nil, err
		}
		deps.Logger.Debug().Str("generation", gen.Name).Msg("calling speech backend")
		data, err := deps.Speech.Synthesize(ctx, utterance, deps.Voice)
		if err != nil {
			return nil, lingominer.NewBackendError(MethodToSpeech, err)
		}
		key := newArtifactKey("audio", "mp3")
		if err := deps.Blob.Upload(ctx, deps.Bucket, key, data); err != nil {
			return nil, lingominer.NewBackendError(MethodToSpeech, err)
		}
		return singleOutput(gen, template.KindAudio, key)
	}
}

// toImageHandler renders the prompt as the image prompt, generates the
// picture and uploads the bytes under a fresh opaque key.
func toImageHandler(deps Deps) Handler {
	return func(ctx context.Context, _ *Context, gen *template.Generation, inputs map[string]string) (map[string]string, error) {
		prompt, err := Render(gen.Prompt, inputs)
		if err != nil {
			return nil, err
		}
		deps.Logger.Debug().Str("generation", gen.Name).Msg("calling image backend")
		data, err := deps.Image.Generate(ctx, prompt)
		if err != nil {
			return nil, lingominer.NewBackendError(MethodToImage, err)
		}
		key := newArtifactKey("image", "png")
		if err := deps.Blob.Upload(ctx, deps.Bucket, key, data); err != nil {
			return nil, lingominer.NewBackendError(MethodToImage, err)
		}
		return singleOutput(gen, template.KindImage, key)
	}
}

// singleOutput binds value to the generation's single output of the given
// kind. The signature validation at template-edit time guarantees exactly
// one matching output.
func singleOutput(gen *template.Generation, kind template.FieldKind, value string) (map[string]string, error) {
	for _, o := range gen.Outputs {
		if o.Kind == kind {
			return map[string]string{o.Name: value}, nil
		}
	}
	return nil, lingominer.NewValidationError("generation", gen.Name, fmt.Sprintf("no %s output declared", kind))
}

// newArtifactKey mints an opaque blob key from a fresh UUID, so concurrent
// uploads never target the same key.
func newArtifactKey(prefix, ext string) string {
	return fmt.Sprintf("%s_%x.%s", prefix, [16]byte(uuid.New()), ext)
}

// stringify converts a decoded JSON value to its stored text form: strings
// verbatim, everything else re-encoded as JSON.
func stringify(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}
