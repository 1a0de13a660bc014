package backend

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	openai "github.com/sashabaranov/go-openai"
)

// Config holds the connection settings for an OpenAI-compatible provider.
// BaseURL may point at any endpoint speaking the OpenAI API surface.
type Config struct {
	BaseURL     string
	APIKey      string
	Model       string // chat model for completions
	SpeechModel string // defaults to tts-1
	ImageModel  string // defaults to dall-e-3
}

// OpenAI implements Completion, Speech and Image over a single
// OpenAI-compatible client. The client holds its own connection pool and is
// safe for concurrent use.
type OpenAI struct {
	client *openai.Client
	cfg    Config
}

// NewOpenAI creates a backend client from the given config.
func NewOpenAI(cfg Config) *OpenAI {
	cc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		cc.BaseURL = cfg.BaseURL
	}
	if cfg.SpeechModel == "" {
		cfg.SpeechModel = string(openai.TTSModel1)
	}
	if cfg.ImageModel == "" {
		cfg.ImageModel = openai.CreateImageModelDallE3
	}
	return &OpenAI{client: openai.NewClientWithConfig(cc), cfg: cfg}
}

// Complete calls the chat completion endpoint in JSON-object mode and
// returns the message content of the first choice.
func (o *OpenAI) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.cfg.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: prompt},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return "", fmt.Errorf("backend: chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("backend: chat completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// Synthesize calls the speech endpoint and returns the raw audio bytes.
func (o *OpenAI) Synthesize(ctx context.Context, text, voice string) ([]byte, error) {
	resp, err := o.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model: openai.SpeechModel(o.cfg.SpeechModel),
		Input: text,
		Voice: openai.SpeechVoice(voice),
	})
	if err != nil {
		return nil, fmt.Errorf("backend: speech synthesis: %w", err)
	}
	defer resp.Close()
	data, err := io.ReadAll(resp)
	if err != nil {
		return nil, fmt.Errorf("backend: read speech response: %w", err)
	}
	return data, nil
}

// Generate calls the image endpoint with a base64 response format and
// returns the decoded image bytes.
func (o *OpenAI) Generate(ctx context.Context, prompt string) ([]byte, error) {
	resp, err := o.client.CreateImage(ctx, openai.ImageRequest{
		Prompt:         prompt,
		Model:          o.cfg.ImageModel,
		N:              1,
		Size:           openai.CreateImageSize1024x1024,
		ResponseFormat: openai.CreateImageResponseFormatB64JSON,
	})
	if err != nil {
		return nil, fmt.Errorf("backend: image generation: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, errors.New("backend: image generation returned no data")
	}
	data, err := base64.StdEncoding.DecodeString(resp.Data[0].B64JSON)
	if err != nil {
		return nil, fmt.Errorf("backend: decode image payload: %w", err)
	}
	return data, nil
}
