package http

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/kjstillabower/panchang-bot/internal/degraded"
	"github.com/kjstillabower/panchang-bot/internal/lifecycle"
	"github.com/kjstillabower/panchang-bot/internal/markup"
	"github.com/kjstillabower/panchang-bot/internal/observability"
	"github.com/kjstillabower/panchang-bot/internal/overload"
	"github.com/kjstillabower/panchang-bot/internal/service"
	"github.com/kjstillabower/panchang-bot/internal/telegram"
)

const (
	secretTokenHeader = "X-Telegram-Bot-Api-Secret-Token"
	maxUpdateBytes    = 1 << 20
)

// HealthConfig holds thresholds for the health handler.
type HealthConfig struct {
	OverloadWindow       time.Duration
	OverloadThresholdPct int
	RateLimitRPS         int // 0 when rate limiter disabled
	DegradedWindow       time.Duration
	DegradedErrorPct     int
	StartTime            time.Time
}

// WebhookConfig authenticates and deduplicates incoming updates.
type WebhookConfig struct {
	Token       string
	Secret      string // optional X-Telegram-Bot-Api-Secret-Token value
	BotUsername string // optional; commands addressed to other bots are ignored
	DedupeSize  int
	DedupeTTL   time.Duration
}

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	panchang         *service.PanchangService
	bot              telegram.Sender
	webhook          WebhookConfig
	dedupe           *updateDeduper
	healthConfig     *HealthConfig
	logger           *zap.Logger
	now              func() time.Time
	healthStatusMu   sync.Mutex
	healthStatusPrev string
}

// NewHandler returns a new Handler.
func NewHandler(
	panchang *service.PanchangService,
	bot telegram.Sender,
	webhook WebhookConfig,
	healthConfig *HealthConfig,
	logger *zap.Logger,
) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		panchang:     panchang,
		bot:          bot,
		webhook:      webhook,
		dedupe:       newUpdateDeduper(webhook.DedupeSize, webhook.DedupeTTL),
		healthConfig: healthConfig,
		logger:       logger,
		now:          time.Now,
	}
}

// HandleWebhook handles POST /webhook/{token}. The update is processed before
// the response is written so Telegram redelivers it if the process dies mid-turn.
func (h *Handler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	if !constantTimeEqual(mux.Vars(r)["token"], h.webhook.Token) {
		writeError(w, r, http.StatusNotFound, "NOT_FOUND", "not found")
		return
	}
	if h.webhook.Secret != "" && !constantTimeEqual(r.Header.Get(secretTokenHeader), h.webhook.Secret) {
		writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "invalid secret token")
		return
	}
	if lifecycle.IsShuttingDown() {
		writeError(w, r, http.StatusServiceUnavailable, "SHUTTING_DOWN", "retry later")
		return
	}

	var update telegram.Update
	if err := json.NewDecoder(io.LimitReader(r.Body, maxUpdateBytes)).Decode(&update); err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_UPDATE", "update is not valid JSON")
		return
	}

	logger := observability.LoggerFromContext(r.Context(), h.logger).With(zap.Int64("update_id", update.UpdateID))
	ctx := context.WithValue(r.Context(), observability.LoggerKey, logger)

	if !h.dedupe.firstSeen(update.UpdateID) {
		observability.DuplicateUpdatesTotal.Inc()
		logger.Debug("duplicate update ignored")
		writeJSON(w, http.StatusOK, map[string]string{"status": "duplicate"})
		return
	}

	defer func() {
		if rec := recover(); rec != nil {
			h.dedupe.forget(update.UpdateID)
			panic(rec)
		}
	}()

	msg := update.Message
	if msg == nil || msg.Chat == nil || msg.Text == "" {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
		return
	}
	command, args, ok := parseCommand(msg.Text, h.webhook.BotUsername)
	if !ok {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
		return
	}

	observability.RecordCommand(command)
	logger.Info("command received", zap.String("command", command), zap.Int64("chat_id", msg.Chat.ID))

	if err := h.dispatch(ctx, msg, command, args); err != nil {
		logger.Error("reply not delivered", zap.String("command", command), zap.Error(err))
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// dispatch runs one command and sends exactly one final reply.
func (h *Handler) dispatch(ctx context.Context, msg *telegram.Message, command string, args []string) error {
	f := h.panchang.Formatter()
	switch command {
	case "/start":
		var firstName string
		var userID int64
		if msg.From != nil {
			firstName, userID = msg.From.FirstName, msg.From.ID
		}
		return h.send(ctx, msg.Chat.ID, f.Welcome(firstName, userID))
	case "/help":
		return h.send(ctx, msg.Chat.ID, f.Help())
	case "/panchang":
		return h.handlePanchang(ctx, msg, args)
	default:
		return nil
	}
}

func (h *Handler) handlePanchang(ctx context.Context, msg *telegram.Message, args []string) error {
	if len(args) == 0 {
		return h.send(ctx, msg.Chat.ID, h.panchang.Formatter().Usage())
	}

	instant, err := h.panchang.Instant(args[0], h.arrival(msg))
	if err != nil {
		return h.send(ctx, msg.Chat.ID, h.panchang.Formatter().InvalidDate(args[0]))
	}

	if err := h.send(ctx, msg.Chat.ID, h.panchang.Formatter().Fetching(instant)); err != nil {
		observability.LoggerFromContext(ctx, h.logger).Warn("fetching notice not delivered", zap.Error(err))
	}

	reply, _ := h.panchang.Lookup(ctx, instant)
	return h.send(ctx, msg.Chat.ID, reply)
}

func (h *Handler) send(ctx context.Context, chatID int64, text string) error {
	return h.bot.SendMessage(ctx, chatID, text, markup.ParseMode)
}

// arrival is the message's send time, or now when the update carries none.
func (h *Handler) arrival(msg *telegram.Message) time.Time {
	if msg.Date > 0 {
		return time.Unix(msg.Date, 0)
	}
	return h.now()
}

// parseCommand splits "/cmd@bot arg1 arg2". ok is false for plain text and for
// commands addressed to a different bot.
func parseCommand(text, botUsername string) (command string, args []string, ok bool) {
	fields := strings.Fields(text)
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "/") {
		return "", nil, false
	}
	command = strings.ToLower(fields[0])
	if at := strings.IndexByte(command, '@'); at >= 0 {
		target := command[at+1:]
		command = command[:at]
		if botUsername != "" && !strings.EqualFold(target, botUsername) {
			return "", nil, false
		}
	}
	if command == "/" {
		return "", nil, false
	}
	return command, fields[1:], true
}

func constantTimeEqual(a, b string) bool {
	return b != "" && subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// healthResult holds the computed health status and metadata for logging.
type healthResult struct {
	status     string
	statusCode int
	reason     string
}

// GetHealth handles GET /health.
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	result := h.computeHealthStatus()

	h.healthStatusMu.Lock()
	prev := h.healthStatusPrev
	if prev != "" && prev != result.status {
		h.logger.Info("health status transition",
			zap.String("previous_status", prev),
			zap.String("current_status", result.status),
			zap.String("reason", result.reason))
	}
	h.healthStatusPrev = result.status
	h.healthStatusMu.Unlock()

	checks := map[string]string{"astroApi": "healthy"}
	if result.reason == "error_rate_breach" {
		checks["astroApi"] = "unhealthy"
	}
	resp := map[string]interface{}{
		"status":    result.status,
		"service":   "panchang-bot",
		"version":   "dev",
		"checks":    checks,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	if h.healthConfig != nil && !h.healthConfig.StartTime.IsZero() {
		resp["uptimeSeconds"] = int64(time.Since(h.healthConfig.StartTime).Seconds())
	}
	writeJSON(w, result.statusCode, resp)
}

// computeHealthStatus evaluates conditions in priority order:
// shutting-down > overloaded > degraded > healthy.
func (h *Handler) computeHealthStatus() healthResult {
	if lifecycle.IsShuttingDown() {
		return healthResult{"shutting-down", http.StatusServiceUnavailable, "signal"}
	}
	if h.healthConfig == nil {
		return healthResult{"healthy", http.StatusOK, ""}
	}
	hc := h.healthConfig
	if overload.IsOverloaded(hc.OverloadWindow, hc.RateLimitRPS, hc.OverloadThresholdPct) {
		return healthResult{"overloaded", http.StatusServiceUnavailable, "overload_threshold"}
	}
	if degraded.IsDegraded(hc.DegradedWindow, hc.DegradedErrorPct) {
		return healthResult{"degraded", http.StatusServiceUnavailable, "error_rate_breach"}
	}
	return healthResult{"healthy", http.StatusOK, ""}
}

// writeJSON writes a JSON response with the specified HTTP status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes an error response with code, message and the request's correlation id.
func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]string{
			"code":      code,
			"message":   message,
			"requestId": observability.CorrelationIDFromContext(r.Context()),
		},
	})
}
