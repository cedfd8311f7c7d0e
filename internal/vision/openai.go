package vision

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

const systemPrompt = `You read photos of dairy stock: milk, curd, paneer, butter, ghee, cheese and similar goods.
Reply with a single JSON object and nothing else:
{"productName": string, "quantity": number, "unit": string, "date": "YYYY-MM-DD" or ""}
productName is the product shown. quantity is how many units are visible or written on the label.
unit is litre, kg, packet or piece. date is a printed date if one is readable, otherwise "".`

// OpenAIAnalyzer sends images to an OpenAI-compatible chat completion endpoint.
type OpenAIAnalyzer struct {
	client  *openai.Client
	model   string
	timeout time.Duration
}

func NewOpenAIAnalyzer(apiKey, baseURL, model string, timeout time.Duration) *OpenAIAnalyzer {
	opts := []option.RequestOption{option.WithAPIKey(apiKey), option.WithMaxRetries(0)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	client := openai.NewClient(opts...)
	return &OpenAIAnalyzer{client: &client, model: model, timeout: timeout}
}

func (a *OpenAIAnalyzer) Analyze(ctx context.Context, req Request) (Analysis, error) {
	if len(req.Image) == 0 {
		return Analysis{}, errors.New("empty image")
	}
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	resp, err := a.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: shared.ChatModel(a.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
				openai.TextContentPart(userPrompt(req.Candidates)),
				openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
					URL: dataURL(req.ContentType, req.Image),
				}),
			}),
		},
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		},
	})
	if err != nil {
		return Analysis{}, fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return Analysis{}, errors.New("openai returned no choices")
	}
	return ParseAnalysis(resp.Choices[0].Message.Content)
}

func userPrompt(candidates []string) string {
	if len(candidates) == 0 {
		return "Analyze this stock photo."
	}
	return "Analyze this stock photo. If the product is one of these, use that exact name: " +
		strings.Join(candidates, ", ") + "."
}

func dataURL(contentType string, data []byte) string {
	if contentType == "" {
		contentType = "image/jpeg"
	}
	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data)
}
