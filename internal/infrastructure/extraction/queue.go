package extraction

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/policyscope/policyscope/internal/core/domain"
	"github.com/policyscope/policyscope/internal/core/ports"
	"github.com/policyscope/policyscope/internal/observability/metrics"
)

type Config struct {
	Service         string
	QueueSize       int
	TaskInterval    time.Duration
	RetryDelay      time.Duration
	BatchSize       int
	BatchDelay      time.Duration
	AnswerMaxTokens int
	RetryMaxTokens  int
}

func DefaultConfig() Config {
	return Config{
		Service:         "policyscope",
		QueueSize:       64,
		TaskInterval:    2 * time.Second,
		RetryDelay:      5 * time.Second,
		BatchSize:       2,
		BatchDelay:      5 * time.Second,
		AnswerMaxTokens: 150,
		RetryMaxTokens:  50,
	}
}

func (c Config) normalize() Config {
	out := c
	def := DefaultConfig()
	if out.Service == "" {
		out.Service = def.Service
	}
	if out.QueueSize <= 0 {
		out.QueueSize = def.QueueSize
	}
	if out.TaskInterval <= 0 {
		out.TaskInterval = def.TaskInterval
	}
	if out.RetryDelay <= 0 {
		out.RetryDelay = def.RetryDelay
	}
	if out.BatchSize <= 0 {
		out.BatchSize = def.BatchSize
	}
	if out.BatchDelay <= 0 {
		out.BatchDelay = def.BatchDelay
	}
	if out.AnswerMaxTokens <= 0 {
		out.AnswerMaxTokens = def.AnswerMaxTokens
	}
	if out.RetryMaxTokens <= 0 {
		out.RetryMaxTokens = def.RetryMaxTokens
	}
	return out
}

type taskResult struct {
	answer string
	err    error
}

type task struct {
	ctx      context.Context
	content  string
	question domain.ChapterQuestion
	result   chan taskResult
}

// Queue serializes all coverage extraction behind a single worker so
// at most one completion call is ever in flight. Tasks are paced by a
// rate limiter; a rate-limit response triggers one delayed retry with
// a degraded, cheaper prompt.
type Queue struct {
	completion ports.CompletionClient
	cfg        Config
	limiter    *rate.Limiter
	metrics    *metrics.Pipeline
	log        *slog.Logger

	tasks     chan *task
	startOnce sync.Once
	stopOnce  sync.Once
	stopped   chan struct{}

	// sleep is swapped out in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

func NewQueue(completion ports.CompletionClient, cfg Config, m *metrics.Pipeline, log *slog.Logger) *Queue {
	cfg = cfg.normalize()
	if log == nil {
		log = slog.Default()
	}
	return &Queue{
		completion: completion,
		cfg:        cfg,
		limiter:    rate.NewLimiter(rate.Every(cfg.TaskInterval), 1),
		metrics:    m,
		log:        log,
		tasks:      make(chan *task, cfg.QueueSize),
		stopped:    make(chan struct{}),
		sleep:      sleepCtx,
	}
}

// Start launches the worker goroutine. Safe to call more than once.
func (q *Queue) Start(ctx context.Context) {
	q.startOnce.Do(func() {
		go q.run(ctx)
	})
}

// Close stops accepting work and lets the worker drain.
func (q *Queue) Close() {
	q.stopOnce.Do(func() { close(q.stopped) })
}

func (q *Queue) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-q.stopped:
			return
		case t := <-q.tasks:
			if err := q.limiter.Wait(ctx); err != nil {
				t.result <- taskResult{err: err}
				return
			}
			answer, err := q.execute(ctx, t)
			t.result <- taskResult{answer: answer, err: err}
		}
	}
}

// ExtractAnswer enqueues one question and blocks until the worker
// produced an answer. Failures that are not transport-level come back
// as sentinel answers, never as errors.
func (q *Queue) ExtractAnswer(ctx context.Context, content string, question domain.ChapterQuestion) (string, error) {
	t := &task{
		ctx:      ctx,
		content:  content,
		question: question,
		result:   make(chan taskResult, 1),
	}

	select {
	case q.tasks <- t:
	case <-ctx.Done():
		return "", ctx.Err()
	case <-q.stopped:
		return "", fmt.Errorf("extraction queue closed")
	}

	select {
	case res := <-t.result:
		return res.answer, res.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// ExtractBatch answers all questions in fixed-size batches with a
// pause between batches, on top of the per-task pacing. The map always
// holds an entry per question unless the collaborator became
// unreachable.
func (q *Queue) ExtractBatch(ctx context.Context, content string, questions []domain.ChapterQuestion) (map[string]string, error) {
	answers := make(map[string]string, len(questions))

	for start := 0; start < len(questions); start += q.cfg.BatchSize {
		if start > 0 {
			if err := q.sleep(ctx, q.cfg.BatchDelay); err != nil {
				return answers, err
			}
		}
		end := start + q.cfg.BatchSize
		if end > len(questions) {
			end = len(questions)
		}
		for _, question := range questions[start:end] {
			answer, err := q.ExtractAnswer(ctx, content, question)
			if err != nil {
				return answers, err
			}
			answers[question.ID] = answer
		}
	}
	return answers, nil
}

func (q *Queue) execute(ctx context.Context, t *task) (string, error) {
	excerpt := RelevantExcerpt(t.content, t.question.Keywords)
	answer, err := q.completion.Complete(ctx, ports.CompletionRequest{
		Prompt:    buildAnswerPrompt(excerpt, t.question),
		MaxTokens: q.cfg.AnswerMaxTokens,
	})
	if err == nil {
		q.metrics.Extraction(q.cfg.Service, "success")
		return cleanAnswer(answer), nil
	}

	if domain.IsKind(err, domain.ErrRateLimited) {
		return q.retryDegraded(ctx, t)
	}
	if domain.IsKind(err, domain.ErrCollaboratorUnavailable) {
		q.metrics.Extraction(q.cfg.Service, "unavailable")
		return "", err
	}

	q.metrics.Extraction(q.cfg.Service, "error")
	q.log.Warn("extraction_failed", "question_id", t.question.ID, "error", err)
	return domain.AnswerExtractionError, nil
}

// retryDegraded waits out the rate limit and retries once with a much
// smaller prompt and output budget.
func (q *Queue) retryDegraded(ctx context.Context, t *task) (string, error) {
	q.metrics.ExtractionRetry()
	q.log.Warn("extraction_rate_limited", "question_id", t.question.ID, "delay", q.cfg.RetryDelay)

	if err := q.sleep(ctx, q.cfg.RetryDelay); err != nil {
		return "", err
	}

	brief := BriefExcerpt(t.content, t.question.Keywords)
	answer, err := q.completion.Complete(ctx, ports.CompletionRequest{
		Prompt:    buildAnswerPrompt(brief, t.question),
		MaxTokens: q.cfg.RetryMaxTokens,
	})
	if err != nil {
		if domain.IsKind(err, domain.ErrCollaboratorUnavailable) {
			q.metrics.Extraction(q.cfg.Service, "unavailable")
			return "", err
		}
		q.metrics.Extraction(q.cfg.Service, "error")
		return domain.AnswerExtractionError, nil
	}
	q.metrics.Extraction(q.cfg.Service, "degraded")
	return cleanAnswer(answer), nil
}

func cleanAnswer(raw string) string {
	answer := strings.TrimSpace(raw)
	answer = strings.Trim(answer, `"'`)
	if answer == "" {
		return domain.AnswerNotSpecified
	}
	return answer
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
