package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/panchang-bot/internal/client"
	"github.com/kjstillabower/panchang-bot/internal/degraded"
	"github.com/kjstillabower/panchang-bot/internal/format"
	"github.com/kjstillabower/panchang-bot/internal/markup"
	"github.com/kjstillabower/panchang-bot/internal/models"
	"github.com/kjstillabower/panchang-bot/internal/normalize"
	"github.com/kjstillabower/panchang-bot/internal/observability"
	"github.com/kjstillabower/panchang-bot/internal/panchang"
)

// PanchangService runs one lookup turn: instant, request payload, fetch,
// normalize, render. Every failure is converted to a rendered error reply.
type PanchangService struct {
	client    client.PanchangClient
	location  models.Location
	formatter *format.Formatter
	logger    *zap.Logger
}

// NewPanchangService creates a PanchangService for a fixed observation location.
func NewPanchangService(c client.PanchangClient, loc models.Location, logger *zap.Logger) *PanchangService {
	if loc.Zone == nil {
		loc.Zone = panchang.DefaultZone()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PanchangService{
		client:    c,
		location:  loc,
		formatter: format.New(loc),
		logger:    logger,
	}
}

// Formatter returns the formatter bound to the service location.
func (s *PanchangService) Formatter() *format.Formatter {
	return s.formatter
}

// Instant parses a DD-MM-YYYY argument and combines it with the arrival clock time.
// Errors are *models.PipelineError of kind invalid_date and are counted.
func (s *PanchangService) Instant(dateArg string, arrival time.Time) (models.Instant, error) {
	instant, err := panchang.BuildInstant(dateArg, arrival, s.location.Zone)
	if err != nil {
		observability.RecordPanchangOutcome(string(models.ErrorKindInvalidDate))
		return models.Instant{}, err
	}
	return instant, nil
}

// Lookup fetches and renders the almanac for instant. The returned reply is
// always a valid MarkdownV2 body; err carries the pipeline failure when the
// reply is an error message.
func (s *PanchangService) Lookup(ctx context.Context, instant models.Instant) (string, error) {
	logger := observability.LoggerFromContext(ctx, s.logger)
	start := time.Now()

	raw, err := s.client.FetchPanchang(ctx, panchang.BuildRequest(instant, s.location))
	if err != nil {
		err = client.Classify(err)
		return s.fail(logger, err), err
	}

	rec, shape, err := normalize.NormalizeShape(raw)
	if err != nil {
		return s.fail(logger, err), err
	}

	reply := s.formatter.Panchang(rec, instant)
	if vErr := checkReply(reply); vErr != nil {
		err := models.NewUnexpectedError(vErr)
		return s.fail(logger, err), err
	}

	outcome := "success"
	if rec.Partial {
		outcome = "partial"
	}
	observability.RecordPanchangOutcome(outcome)
	degraded.RecordSuccess()
	logger.Debug("panchang served",
		zap.String("shape", shape.String()),
		zap.Bool("partial", rec.Partial),
		zap.Duration("duration", time.Since(start)))
	return reply, nil
}

// ErrorReply renders err as a single error line.
func (s *PanchangService) ErrorReply(err error) string {
	reply := s.formatter.Error(err)
	if checkReply(reply) != nil {
		return s.formatter.Error(models.NewUnexpectedError(err))
	}
	return reply
}

func (s *PanchangService) fail(logger *zap.Logger, err error) string {
	kind := client.CategorizeError(err)
	observability.RecordPanchangOutcome(string(kind))
	degraded.RecordError()
	logger.Warn("panchang lookup failed", zap.String("kind", string(kind)), zap.Error(err))
	return s.ErrorReply(err)
}

// checkReply rejects bodies Telegram would refuse to parse or accept.
func checkReply(reply string) error {
	if err := markup.Validate(reply); err != nil {
		return err
	}
	if n := markup.UTF16Len(reply); n > markup.MaxMessageLength {
		return fmt.Errorf("reply is %d UTF-16 units, limit %d", n, markup.MaxMessageLength)
	}
	return nil
}
