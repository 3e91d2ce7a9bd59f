package telegram

import (
	"context"
	"fmt"

	"github.com/RubachokBoss/homework-distributor/internal/models"
	"github.com/RubachokBoss/homework-distributor/internal/service"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type fileRef struct {
	ID   string
	Name string
	Kind models.MediaKind
	Size int64
}

func extractFile(msg *tgbotapi.Message) (fileRef, bool) {
	switch {
	case msg.Video != nil:
		return fileRef{ID: msg.Video.FileID, Name: orDefault(msg.Video.FileName, "video.mp4"), Kind: models.MediaKindVideo, Size: int64(msg.Video.FileSize)}, true
	case msg.Audio != nil:
		return fileRef{ID: msg.Audio.FileID, Name: orDefault(msg.Audio.FileName, "audio.mp3"), Kind: models.MediaKindAudio, Size: int64(msg.Audio.FileSize)}, true
	case msg.Voice != nil:
		return fileRef{ID: msg.Voice.FileID, Name: "voice.ogg", Kind: models.MediaKindVoice, Size: int64(msg.Voice.FileSize)}, true
	case msg.Document != nil:
		return fileRef{ID: msg.Document.FileID, Name: orDefault(msg.Document.FileName, "document"), Kind: models.MediaKindDocument, Size: int64(msg.Document.FileSize)}, true
	default:
		return fileRef{}, false
	}
}

// handleFile creates a task when the teacher uploads and records a submission otherwise.
func (d *Dispatcher) handleFile(ctx context.Context, msg *tgbotapi.Message, file fileRef) {
	isTeacher, err := d.access.IsTeacher(ctx, msg.From.ID)
	if err != nil {
		d.replyError(ctx, msg, err)
		return
	}

	if isTeacher {
		d.createTask(ctx, msg, file)
		return
	}
	d.submit(ctx, msg, file)
}

func (d *Dispatcher) createTask(ctx context.Context, msg *tgbotapi.Message, file fileRef) {
	upload, err := d.download(ctx, file)
	if err != nil {
		d.logger.Error().Err(err).Str("file_id", file.ID).Msg("Failed to download task file")
		d.reply(ctx, msg, "Failed to download the file. Please try again.")
		return
	}
	defer closeUpload(upload)

	title, description := service.ParseTaskCaption(msg.Caption)
	task, err := d.tasks.CreateTask(ctx, &models.CreateTaskRequest{
		Title:       title,
		Description: description,
		Upload:      upload,
	})
	if err != nil {
		d.replyError(ctx, msg, err)
		return
	}

	d.reply(ctx, msg, fmt.Sprintf(
		"Task created (id=%d). Send it with /send_task %d all or /send_task %d <chat_id>",
		task.ID, task.ID, task.ID,
	))
}

func (d *Dispatcher) submit(ctx context.Context, msg *tgbotapi.Message, file fileRef) {
	var replyText string
	if r := msg.ReplyToMessage; r != nil {
		replyText = r.Text
		if replyText == "" {
			replyText = r.Caption
		}
	}

	// Resolve before downloading so unresolvable uploads are never stored.
	if _, ok := service.ParseTaskReference(msg.Caption, replyText); !ok {
		d.replyError(ctx, msg, service.ErrAmbiguousSubmission)
		return
	}

	upload, err := d.download(ctx, file)
	if err != nil {
		d.logger.Error().Err(err).Str("file_id", file.ID).Msg("Failed to download submission file")
		d.reply(ctx, msg, "Failed to download the file. Please try again.")
		return
	}
	defer closeUpload(upload)

	_, err = d.submissions.Submit(ctx, &models.InboundSubmission{
		SenderChatID: msg.From.ID,
		SenderName:   fullName(msg.From),
		Caption:      msg.Caption,
		ReplyText:    replyText,
		Upload:       upload,
	})
	if err != nil {
		d.replyError(ctx, msg, err)
		return
	}

	d.reply(ctx, msg, "Your answer has been saved. Thank you!")
}

func (d *Dispatcher) download(ctx context.Context, file fileRef) (models.Upload, error) {
	rc, size, err := d.downloader.Download(ctx, file.ID)
	if err != nil {
		return models.Upload{}, err
	}
	if size <= 0 {
		size = file.Size
	}
	if size <= 0 {
		size = -1
	}

	return models.Upload{
		FileName: file.Name,
		Kind:     file.Kind,
		Size:     size,
		Content:  rc,
	}, nil
}

func closeUpload(u models.Upload) {
	if c, ok := u.Content.(interface{ Close() error }); ok {
		c.Close()
	}
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
