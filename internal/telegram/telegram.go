package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"capture-relay/internal/config"
)

type Notifier interface {
	Send(ctx context.Context, text string) error
}

type sendMessageRequest struct {
	ChatID                string `json:"chat_id"`
	Text                  string `json:"text"`
	ParseMode             string `json:"parse_mode"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview"`
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	ErrorCode   int    `json:"error_code,omitempty"`
	Description string `json:"description,omitempty"`
}

type Sender struct {
	endpoint string
	chatID   string
	client   *http.Client
	limiter  *rate.Limiter
	logger   *zap.Logger
}

func NewSender(cfg config.Config, logger *zap.Logger) Notifier {
	return &Sender{
		endpoint: fmt.Sprintf("%s/bot%s/sendMessage", strings.TrimRight(cfg.TelegramAPIURL, "/"), cfg.TelegramBotToken),
		chatID:   cfg.TelegramChatID,
		client:   &http.Client{},
		limiter:  newLimiter(cfg.NotifyRPS, cfg.NotifyBurst),
		logger:   logger.Named("telegram"),
	}
}

// newLimiter paces sends only when rps is positive. Paced sends wait for their
// turn and are never dropped.
func newLimiter(rps float64, burst int) *rate.Limiter {
	if rps <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(rps), burst)
}

// Send posts text to the configured chat. Failures are logged here and
// returned so the caller can decide to ignore them.
func (s *Sender) Send(ctx context.Context, text string) error {
	if err := s.limiter.Wait(ctx); err != nil {
		s.logger.Warn("send pacing interrupted, sending anyway", zap.Error(err))
	}

	data, err := json.Marshal(sendMessageRequest{
		ChatID:                s.chatID,
		Text:                  text,
		ParseMode:             "HTML",
		DisableWebPagePreview: true,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewBuffer(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		// url.Error embeds the endpoint, which carries the bot token.
		err = fmt.Errorf("telegram request failed: %s", s.redact(err.Error()))
		s.logger.Error("failed to send message to telegram", zap.Error(err))
		return err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))

	var result apiResponse
	decodeErr := json.Unmarshal(body, &result)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if decodeErr == nil {
			s.logger.Error("telegram api error",
				zap.Int("error_code", result.ErrorCode),
				zap.String("description", result.Description))
		} else {
			s.logger.Error("telegram api error", zap.ByteString("body", body))
		}
		return fmt.Errorf("telegram error: status=%d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	if decodeErr != nil {
		s.logger.Error("failed to decode telegram response", zap.Error(decodeErr))
		return fmt.Errorf("decode telegram response: %w", decodeErr)
	}

	s.logger.Info("message sent to telegram", zap.Bool("ok", result.OK))
	return nil
}

func (s *Sender) redact(msg string) string {
	return strings.ReplaceAll(msg, s.endpoint, "<telegram sendMessage>")
}
