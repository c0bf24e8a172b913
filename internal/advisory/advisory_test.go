package advisory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/meesalavenugopal/novacare247/internal/observability/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubLLM struct {
	reply string
	err   error
	block bool
	calls int
	last  LLMRequest
}

func (s *stubLLM) Complete(ctx context.Context, req LLMRequest) (LLMResponse, error) {
	s.calls++
	s.last = req
	if s.block {
		<-ctx.Done()
		return LLMResponse{}, ctx.Err()
	}
	if s.err != nil {
		return LLMResponse{}, s.err
	}
	return LLMResponse{Text: s.reply}, nil
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", `{"score": 80}`, `{"score": 80}`},
		{"fenced json", "```json\n{\"score\": 80}\n```", `{"score": 80}`},
		{"fenced bare", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"json prefix", "json {\"a\":1}", `{"a":1}`},
		{"prose around", "Here you go:\n{\"a\":{\"b\":2}}\nThanks!", `{"a":{"b":2}}`},
		{"array", "```json\n[1,2]\n```", `[1,2]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractJSON(tt.in))
		})
	}
}

func TestAssessCredentialsParsesFencedReply(t *testing.T) {
	llm := &stubLLM{reply: "```json\n{\"score\": 84.6, \"analysis\": \" Solid profile \", \"recommendations\": [\"Verify license\", \" \"], \"flags\": []}\n```"}
	a := NewAdvisor(llm, WithModel("anthropic.claude-3-haiku"))

	got, err := a.AssessCredentials(context.Background(), CredentialProfile{FullName: "Priya Sharma", LicenseNumber: "KA-123"})
	require.NoError(t, err)
	require.NotNil(t, got.Score)
	assert.Equal(t, 85, *got.Score)
	assert.Equal(t, "Solid profile", got.Analysis)
	assert.Equal(t, []string{"Verify license"}, got.Recommendations)
	assert.Empty(t, got.Flags)
	assert.Equal(t, "anthropic.claude-3-haiku", llm.last.Model)
	assert.Contains(t, llm.last.Messages[0].Content, "KA-123")
}

func TestAssessCredentialsFailsSoft(t *testing.T) {
	tests := []struct {
		name string
		llm  LLMClient
	}{
		{"no client", nil},
		{"transport error", &stubLLM{err: errors.New("connection reset")}},
		{"not json", &stubLLM{reply: "I cannot help with that."}},
		{"score out of range", &stubLLM{reply: `{"score": 140, "analysis": "x"}`}},
		{"score missing", &stubLLM{reply: `{"analysis": "x"}`}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewAdvisor(tt.llm)
			got, err := a.AssessCredentials(context.Background(), CredentialProfile{})
			assert.Nil(t, got)
			assert.ErrorIs(t, err, ErrUnavailable)
		})
	}
}

func TestAdvisorTimeoutIsUnavailable(t *testing.T) {
	reg := prometheus.NewRegistry()
	llm := &stubLLM{block: true}
	a := NewAdvisor(llm, WithTimeout(20*time.Millisecond), WithMetrics(metrics.NewAdvisoryMetrics(reg)))

	start := time.Now()
	_, err := a.ReviewClinicDocuments(context.Background(), ClinicProfile{ClinicName: "Spine Care", Documents: map[string]bool{"gst_certificate": true}})
	require.ErrorIs(t, err, ErrUnavailable)
	assert.Less(t, time.Since(start), 2*time.Second)

	families, err := reg.Gather()
	require.NoError(t, err)
	found := false
	for _, fam := range families {
		if fam.GetName() != "novacare_advisory_requests_total" {
			continue
		}
		for _, m := range fam.GetMetric() {
			for _, lp := range m.GetLabel() {
				if lp.GetName() == "outcome" && lp.GetValue() == "timeout" {
					found = true
				}
			}
		}
	}
	assert.True(t, found, "expected timeout outcome to be counted")
}

func TestInterviewQuestionsFlattensInCategoryOrder(t *testing.T) {
	llm := &stubLLM{reply: `{
		"platform_fit": [{"question": "Why NovaCare?"}],
		"clinical_knowledge": [{"question": "Explain ACL rehab phases", "difficulty": "medium"}, {"question": ""}],
		"unknown": [{"question": "ignored"}]
	}`}
	qs, err := NewAdvisor(llm).InterviewQuestions(context.Background(), CredentialProfile{Specialization: "Sports"})
	require.NoError(t, err)
	require.Len(t, qs, 2)
	assert.Equal(t, "clinical_knowledge", qs[0].Category)
	assert.Equal(t, "platform_fit", qs[1].Category)
}

func TestInterviewQuestionsEmptyIsUnavailable(t *testing.T) {
	_, err := NewAdvisor(&stubLLM{reply: `{}`}).InterviewQuestions(context.Background(), CredentialProfile{})
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestTrainingModuleDraftDropsInvalidQuiz(t *testing.T) {
	llm := &stubLLM{reply: `{"title": "Home visit safety", "content": "# Safety", "quiz_questions": [
		{"question": "q1", "options": ["a", "b"], "correct_answer": 1},
		{"question": "q2", "options": ["a"], "correct_answer": 3}
	]}`}
	draft, err := NewAdvisor(llm).TrainingModuleDraft(context.Background(), "home visits", "")
	require.NoError(t, err)
	assert.Equal(t, 30, draft.DurationMinutes)
	require.Len(t, draft.Quiz, 1)
	assert.Equal(t, "q1", draft.Quiz[0].Question)
}

func TestFallbackClient(t *testing.T) {
	primary := &stubLLM{err: errors.New("throttled")}
	fallback := &stubLLM{reply: "ok"}
	resp, err := NewFallbackClient(primary, fallback, nil).Complete(context.Background(), LLMRequest{})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Text)
	assert.Equal(t, 1, fallback.calls)

	both := &stubLLM{err: errors.New("down")}
	_, err = NewFallbackClient(primary, both, nil).Complete(context.Background(), LLMRequest{})
	assert.EqualError(t, err, "down")

	_, err = NewFallbackClient(primary, nil, nil).Complete(context.Background(), LLMRequest{})
	assert.EqualError(t, err, "throttled")
}

type stubConverse struct {
	input *bedrockruntime.ConverseInput
	out   *bedrockruntime.ConverseOutput
	err   error
}

func (s *stubConverse) Converse(_ context.Context, in *bedrockruntime.ConverseInput, _ ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error) {
	s.input = in
	return s.out, s.err
}

func TestBedrockClientBuildsConverseInput(t *testing.T) {
	api := &stubConverse{out: &bedrockruntime.ConverseOutput{
		Output: &brtypes.ConverseOutputMemberMessage{Value: brtypes.Message{
			Role:    brtypes.ConversationRoleAssistant,
			Content: []brtypes.ContentBlock{&brtypes.ContentBlockMemberText{Value: ` {"score": 70} `}},
		}},
		StopReason: brtypes.StopReasonEndTurn,
		Usage:      &brtypes.TokenUsage{InputTokens: aws.Int32(10), OutputTokens: aws.Int32(5), TotalTokens: aws.Int32(15)},
	}}
	client := NewBedrockClient(api, "default-model")

	resp, err := client.Complete(context.Background(), LLMRequest{
		System:      []string{"be brief", " "},
		Messages:    []ChatMessage{{Role: ChatRoleUser, Content: "hi"}, {Role: ChatRoleSystem, Content: "extra"}},
		MaxTokens:   100,
		Temperature: -1,
	})
	require.NoError(t, err)
	assert.Equal(t, `{"score": 70}`, resp.Text)
	assert.Equal(t, int32(15), resp.Usage.TotalTokens)
	assert.Equal(t, "default-model", aws.ToString(api.input.ModelId))
	assert.Len(t, api.input.System, 2)
	assert.Len(t, api.input.Messages, 1)
	require.NotNil(t, api.input.InferenceConfig)
	assert.Nil(t, api.input.InferenceConfig.Temperature)
	assert.Equal(t, int32(100), aws.ToInt32(api.input.InferenceConfig.MaxTokens))
}

func TestBedrockClientRejectsUnknownRole(t *testing.T) {
	client := NewBedrockClient(&stubConverse{}, "m")
	_, err := client.Complete(context.Background(), LLMRequest{Messages: []ChatMessage{{Role: "tool", Content: "x"}}})
	assert.Error(t, err)
}
