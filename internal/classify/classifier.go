// Copyright (c) 2026 John Earle
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package classify wraps the Gemini API as a classification oracle for
// social posts. Classify never fails the caller: any model failure
// (timeout, non-2xx, malformed JSON, missing fields) falls back to a
// deterministic keyword heuristic so the pipeline is never blocked by
// an external outage.
package classify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/loopcloser/ingestion/internal/models"
)

// DefaultTimeout bounds a single model call.
const DefaultTimeout = 30 * time.Second

// AccountContext carries the per-account knobs that steer classification.
// ProductName enables relevance filtering (off-topic posts are marked
// IRRELEVANT); BrandVoice steers only the suggested response text.
type AccountContext struct {
	ProductName string
	BrandVoice  string
}

// Classifier is the classification oracle adapter.
type Classifier struct {
	client  *genai.Client
	model   string
	timeout time.Duration
}

// New creates a classifier. A missing API key is a terminal
// configuration error, surfaced once at startup rather than per-call.
func New(ctx context.Context, apiKey, model string) (*Classifier, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	return &Classifier{
		client:  client,
		model:   model,
		timeout: DefaultTimeout,
	}, nil
}

// Classify analyses one post. It always returns a usable Classification.
func (c *Classifier) Classify(ctx context.Context, post models.Post, acct AccountContext) models.Classification {
	result, err := c.classifyLLM(ctx, post, acct)
	if err != nil {
		slog.Warn("classifier falling back to heuristic",
			"post_id", post.ID,
			"error", err,
		)
		return Fallback(post.Content)
	}
	return result
}

// classifyLLM performs the bounded model call and validates the result.
func (c *Classifier) classifyLLM(ctx context.Context, post models.Post, acct AccountContext) (models.Classification, error) {
	var zero models.Classification

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	prompt := buildPrompt(post, acct)

	cfg := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr[float32](0.3),
		MaxOutputTokens: 1024,
	}

	result, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(prompt), cfg)
	if err != nil {
		return zero, fmt.Errorf("generate content: %w", err)
	}

	if result == nil || len(result.Candidates) == 0 ||
		result.Candidates[0].Content == nil || len(result.Candidates[0].Content.Parts) == 0 {
		return zero, fmt.Errorf("empty model response")
	}

	text := cleanJSON(result.Candidates[0].Content.Parts[0].Text)

	var cls models.Classification
	if err := json.Unmarshal([]byte(text), &cls); err != nil {
		return zero, fmt.Errorf("parse model JSON: %w", err)
	}

	if err := validate(cls); err != nil {
		return zero, fmt.Errorf("invalid classification: %w", err)
	}

	return cls, nil
}

// buildPrompt renders the analysis prompt. The JSON contract here must
// match models.Classification exactly.
func buildPrompt(post models.Post, acct AccountContext) string {
	var b strings.Builder

	b.WriteString("Analyze this social media post and respond with ONLY a valid JSON object (no markdown, no code blocks, just the JSON).\n\n")
	fmt.Fprintf(&b, "POST:\nPlatform: %s\nUser: %s\nContent: %q\n\n", post.Platform, post.UserHandle, post.Content)

	b.WriteString("Analyze for:\n")
	b.WriteString("1. Sentiment: Is this positive, negative, or neutral?\n")
	b.WriteString("2. Sarcasm: Is the user being sarcastic? (true/false)\n")
	b.WriteString("3. Intent: What does the user want? (complaint, question, praise, feature_request, general)\n")
	b.WriteString("4. Urgency: How urgent is this? (high, medium, low)\n")
	b.WriteString("5. Ticket Type: What type of support ticket is this? (BUG, FEATURE, QUESTION)\n")
	b.WriteString("6. Summary: A brief 1-sentence summary for a support ticket\n")
	b.WriteString("7. Suggested Response: Draft a helpful, empathetic response\n")
	b.WriteString("8. Confidence: How confident are you in this analysis? (0.0 to 1.0)\n")

	if acct.ProductName != "" {
		fmt.Fprintf(&b, "\nThe post must be about the product %q or its industry. If it is unrelated, set ticket_type to \"IRRELEVANT\".\n", acct.ProductName)
	}
	if acct.BrandVoice != "" {
		fmt.Fprintf(&b, "\nWrite the suggested response in this brand voice: %s\n", acct.BrandVoice)
	}

	b.WriteString("\nRespond with this exact JSON structure:\n")
	b.WriteString(`{"sentiment": "...", "sarcasm": true, "intent": "...", "urgency": "...", "ticket_type": "...", "summary": "...", "suggested_response": "...", "confidence": 0.0}`)

	return b.String()
}

// validate checks that the model returned the required structural fields.
func validate(cls models.Classification) error {
	switch cls.Sentiment {
	case models.SentimentPositive, models.SentimentNegative, models.SentimentNeutral:
	default:
		return fmt.Errorf("bad sentiment %q", cls.Sentiment)
	}
	switch cls.TicketType {
	case models.TicketBug, models.TicketFeature, models.TicketQuestion, models.TicketIrrelevant:
	default:
		return fmt.Errorf("bad ticket_type %q", cls.TicketType)
	}
	if cls.Summary == "" {
		return fmt.Errorf("missing summary")
	}
	if cls.Confidence < 0 || cls.Confidence > 1 {
		return fmt.Errorf("confidence %v out of range", cls.Confidence)
	}
	return nil
}

// cleanJSON strips markdown code fences the model sometimes wraps its
// JSON in.
func cleanJSON(input string) string {
	input = strings.TrimSpace(input)
	input = strings.TrimPrefix(input, "```json")
	input = strings.TrimPrefix(input, "```")
	input = strings.TrimSuffix(input, "```")
	return strings.TrimSpace(input)
}
