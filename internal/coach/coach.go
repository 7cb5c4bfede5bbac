// Package coach turns a week's schedule adjustment into a short motivational note.
//
// The note is written by an OpenAI-compatible chat model when an API key is configured. Without a key, or when
// the model call fails, the rule-based recommendations are joined into the note instead.
package coach

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/myrjola/fitplan/internal/errors"
	"github.com/myrjola/fitplan/internal/planner"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

const (
	requestTimeout = 15 * time.Second
	defaultModel   = openai.ChatModelGPT4oMini
	allGoodNote    = "Your schedule looks good. Keep up the consistent training!"
	systemPrompt   = `You are a supportive fitness coach. Write at most three sentences addressed to the user.
Mention the concrete schedule changes and keep medical advice out of it. Do not use markdown.`
)

type Source string

const (
	SourceLLM   Source = "llm"
	SourceRules Source = "rules"
)

// Note is the text shown next to the weekly schedule.
type Note struct {
	Text   string
	Source Source
}

// Writer writes coach notes. The zero value is not usable, use [New].
type Writer struct {
	client *openai.Client
	model  string
	logger *slog.Logger
}

// New creates a Writer. An empty apiKey disables the chat model. opts are passed to the OpenAI client and allow
// overriding the base URL for compatible providers.
func New(logger *slog.Logger, apiKey string, model string, opts ...option.RequestOption) *Writer {
	if model == "" {
		model = defaultModel
	}
	w := &Writer{
		client: nil,
		model:  model,
		logger: logger,
	}
	if apiKey != "" {
		client := openai.NewClient(append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)...)
		w.client = &client
	}
	return w
}

// Write narrates adjustment. It never fails: errors are logged and the rule-based note is returned.
func (w *Writer) Write(ctx context.Context, adjustment planner.ScheduleAdjustment, sleep planner.SleepQuality) Note {
	if w.client == nil {
		return RuleNote(adjustment)
	}
	text, err := w.complete(ctx, prompt(adjustment, sleep))
	if err != nil {
		w.logger.LogAttrs(ctx, slog.LevelWarn, "coach note generation failed, using rule-based note",
			errors.SlogError(err))
		return RuleNote(adjustment)
	}
	return Note{Text: text, Source: SourceLLM}
}

func (w *Writer) complete(ctx context.Context, userPrompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	params := openai.ChatCompletionNewParams{
		Model: w.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(userPrompt),
		},
	}
	completion, err := w.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", errors.Wrap(err, "chat completion", slog.String("model", w.model))
	}
	w.logger.LogAttrs(ctx, slog.LevelDebug, "coach note generated",
		slog.String("model", w.model),
		slog.Int64("total_tokens", completion.Usage.TotalTokens))
	if len(completion.Choices) == 0 {
		return "", errors.Wrap(errors.NewSentinel("no choices"), "chat completion")
	}
	text := strings.TrimSpace(completion.Choices[0].Message.Content)
	if text == "" {
		return "", errors.Wrap(errors.NewSentinel("empty content"), "chat completion")
	}
	return text, nil
}

// RuleNote joins the recommendations of adjustment without asking the chat model.
func RuleNote(adjustment planner.ScheduleAdjustment) Note {
	if len(adjustment.Recommendations) == 0 {
		return Note{Text: allGoodNote, Source: SourceRules}
	}
	return Note{Text: strings.Join(adjustment.Recommendations, " "), Source: SourceRules}
}

func prompt(adjustment planner.ScheduleAdjustment, sleep planner.SleepQuality) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Adherence rate: %.0f%%\n", adjustment.AdherenceRate*100) //nolint:mnd // percent
	if sleep.HasData {
		fmt.Fprintf(&b, "Sleep: %s, average %.1f h, last night %.1f h\n", sleep.Quality, sleep.AvgSleep, sleep.LatestSleep)
	} else {
		b.WriteString("Sleep: no data\n")
	}
	if len(adjustment.Adjustments) == 0 {
		b.WriteString("No adjustments were needed this week.\n")
	}
	for _, a := range adjustment.Adjustments {
		fmt.Fprintf(&b, "Adjustment: %s\n", a.Message)
	}
	b.WriteString("Upcoming sessions:\n")
	for _, s := range adjustment.Schedule {
		fmt.Fprintf(&b, "- %s %s %d min %s\n", planner.FormatDate(s.ScheduledDate), s.WorkoutType, s.DurationMin, s.Note)
	}
	return b.String()
}
