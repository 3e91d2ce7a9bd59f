package integration

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path"
	"time"

	"github.com/RubachokBoss/homework-distributor/internal/config"
	"github.com/RubachokBoss/homework-distributor/internal/models"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// TelegramClient sends messages and artifacts through the Bot API and
// downloads files students and the teacher upload.
type TelegramClient struct {
	bot        *tgbotapi.BotAPI
	store      ArtifactStore
	httpClient *http.Client
	logger     zerolog.Logger
}

func NewTelegramClient(cfg config.TelegramConfig, store ArtifactStore, logger zerolog.Logger) (*TelegramClient, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("telegram token is not configured")
	}

	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	httpClient := &http.Client{Timeout: timeout}

	if err := tgbotapi.SetLogger(botLogger{logger: logger}); err != nil {
		return nil, fmt.Errorf("failed to set bot logger: %w", err)
	}

	bot, err := tgbotapi.NewBotAPIWithClient(cfg.Token, tgbotapi.APIEndpoint, httpClient)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Telegram: %w", err)
	}
	bot.Debug = cfg.Debug

	logger.Info().Str("username", bot.Self.UserName).Msg("Authorized on Telegram")

	return &TelegramClient{
		bot:        bot,
		store:      store,
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

func (c *TelegramClient) Bot() *tgbotapi.BotAPI {
	return c.bot
}

func (c *TelegramClient) SendText(ctx context.Context, chatID int64, text string) error {
	return c.send(ctx, tgbotapi.NewMessage(chatID, text), nil)
}

func (c *TelegramClient) SendArtifact(ctx context.Context, chatID int64, artifact models.Artifact) error {
	rc, _, err := c.store.Open(ctx, artifact.Handle)
	if err != nil {
		return fmt.Errorf("open artifact: %w", err)
	}

	file := tgbotapi.FileReader{Name: path.Base(artifact.Handle), Reader: rc}

	var msg tgbotapi.Chattable
	switch artifact.Kind {
	case models.MediaKindVideo:
		msg = tgbotapi.NewVideo(chatID, file)
	case models.MediaKindAudio:
		msg = tgbotapi.NewAudio(chatID, file)
	case models.MediaKindVoice:
		msg = tgbotapi.NewVoice(chatID, file)
	default:
		msg = tgbotapi.NewDocument(chatID, file)
	}

	return c.send(ctx, msg, rc)
}

func (c *TelegramClient) SendFile(ctx context.Context, chatID int64, name string, content []byte) error {
	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{Name: name, Bytes: content})
	return c.send(ctx, doc, nil)
}

// send gives up waiting when ctx ends. The Bot API call itself is bounded by
// the HTTP client timeout; closer is released once it returns.
func (c *TelegramClient) send(ctx context.Context, msg tgbotapi.Chattable, closer io.Closer) error {
	done := make(chan error, 1)
	go func() {
		_, err := c.bot.Send(msg)
		if closer != nil {
			closer.Close()
		}
		done <- err
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Download fetches an uploaded Telegram file by its file id.
func (c *TelegramClient) Download(ctx context.Context, fileID string) (io.ReadCloser, int64, error) {
	url, err := c.bot.GetFileDirectURL(fileID)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to resolve file url: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to download file: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, 0, fmt.Errorf("failed to download file: status %d", resp.StatusCode)
	}

	return resp.Body, resp.ContentLength, nil
}

type botLogger struct {
	logger zerolog.Logger
}

func (l botLogger) Println(v ...interface{}) {
	l.logger.Debug().Msg(fmt.Sprint(v...))
}

func (l botLogger) Printf(format string, v ...interface{}) {
	l.logger.Debug().Msgf(format, v...)
}
