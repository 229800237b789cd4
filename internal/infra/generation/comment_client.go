package generation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"virtual_persona_bot/internal/domain/generation"
)

const defaultTextModel = "gemini-2.5-flash"

type textAPIRequest struct {
	Model     string `json:"model"`
	Prompt    string `json:"prompt"`
	MaxTokens int    `json:"max_tokens"`
}

type textAPIResponse struct {
	Text  string    `json:"text"`
	Error *apiError `json:"error,omitempty"`
}

// CommentClient calls the text generation service to produce persona-voiced
// comments, and scores each result so callers can drop weak output.
type CommentClient struct {
	apiURL     string
	apiKey     string
	model      string
	httpClient *http.Client
}

func NewCommentClient(apiURL, apiKey string) *CommentClient {
	return &CommentClient{
		apiURL:     apiURL,
		apiKey:     apiKey,
		model:      defaultTextModel,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

func (c *CommentClient) GenerateComment(ctx context.Context, cc generation.CommentContext) (generation.CommentResult, error) {
	text, err := c.callTextAPI(ctx, buildCommentPrompt(cc))
	if err != nil {
		return generation.CommentResult{}, err
	}

	content := cleanCommentText(text)
	if content == "" {
		return generation.CommentResult{}, fmt.Errorf("text API returned empty comment")
	}

	return generation.CommentResult{
		Content:    content,
		Confidence: scoreComment(content),
	}, nil
}

func (c *CommentClient) callTextAPI(ctx context.Context, prompt string) (string, error) {
	reqBody := textAPIRequest{
		Model:     c.model,
		Prompt:    prompt,
		MaxTokens: 300,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal text request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create text request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("failed to call text API: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read text API response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("text API request failed with status %d: %s", resp.StatusCode, truncate(string(body), 200))
	}

	var apiResp textAPIResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return "", fmt.Errorf("failed to parse text API response: %w", err)
	}
	if apiResp.Error != nil {
		return "", fmt.Errorf("text API error: %s - %s", apiResp.Error.Type, apiResp.Error.Message)
	}

	return apiResp.Text, nil
}

func buildCommentPrompt(cc generation.CommentContext) string {
	var b strings.Builder

	fmt.Fprintf(&b, "You are %s (@%s), a %s enthusiast commenting in an online creative community.\n\n",
		cc.PersonaName, cc.PersonaUsername, cc.PersonaCategory)

	b.WriteString("## Post\n")
	fmt.Fprintf(&b, "- Title: %s\n", cc.PostTitle)
	if cc.PostPrompt != "" {
		fmt.Fprintf(&b, "- Original prompt: %s\n", cc.PostPrompt)
	}
	fmt.Fprintf(&b, "- Category: %s\n", cc.PostCategory)
	fmt.Fprintf(&b, "- Author: %s\n", cc.PostAuthor)

	if len(cc.ThreadHistory) > 0 {
		b.WriteString("\n## Recent conversation (oldest first)\n")
		for _, msg := range cc.ThreadHistory {
			fmt.Fprintf(&b, "- %s: %s\n", msg.AuthorName, msg.Content)
		}
	}
	if cc.TargetComment != "" {
		fmt.Fprintf(&b, "\n## You are replying to\n%s\n", cc.TargetComment)
	}

	b.WriteString(`
## Task
Write one short comment (1-3 sentences) in your own voice.
- React to something specific in the post, not generic praise
- Sound like a practitioner, mention craft details where natural
- No hashtags, no quotation marks around the whole reply
Reply with the comment text only.`)

	return b.String()
}

func cleanCommentText(text string) string {
	content := strings.TrimSpace(text)
	content = strings.Trim(content, `"`)
	// Some models echo a label before the comment.
	if idx := strings.Index(content, ":"); idx > 0 && idx < 20 && strings.HasPrefix(strings.ToLower(content), "comment") {
		content = strings.TrimSpace(content[idx+1:])
	}
	return content
}

// scoreComment is a cheap quality heuristic: reward a conversational length
// and craft vocabulary, penalize generic praise.
func scoreComment(content string) float64 {
	confidence := 0.7
	if n := len(content); n >= 10 && n <= 300 {
		confidence += 0.1
	}
	lower := strings.ToLower(content)
	if !strings.Contains(lower, "great job") && !strings.Contains(lower, "nice work") && !strings.Contains(lower, "amazing!") {
		confidence += 0.1
	}
	for _, kw := range []string{"lighting", "composition", "color", "palette", "texture", "detail", "contrast"} {
		if strings.Contains(lower, kw) {
			confidence += 0.1
			break
		}
	}
	if confidence > 1 {
		confidence = 1
	}
	return confidence
}
