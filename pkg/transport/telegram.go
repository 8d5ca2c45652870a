package transport

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/mymmrac/telego"

	"github.com/odvcencio/chatview/pkg/view"
)

// Telegram is the Transport implementation over the Telegram Bot API.
type Telegram struct {
	bot   *telego.Bot
	botID int64
}

// NewTelegram creates the adapter and resolves the bot identity.
func NewTelegram(ctx context.Context, token string) (*Telegram, error) {
	bot, err := telego.NewBot(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	me, err := bot.GetMe(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve bot identity: %w", err)
	}
	return &Telegram{bot: bot, botID: me.ID}, nil
}

// Bot exposes the underlying client for update polling.
func (t *Telegram) Bot() *telego.Bot { return t.bot }

func (t *Telegram) BotID() int64 { return t.botID }

func (t *Telegram) Send(ctx context.Context, dest Destination, bp *view.Blueprint) (Handle, error) {
	chatID := telego.ChatID{ID: dest.ChatID}
	markup := keyboardMarkup(bp.Keyboard)
	var replyParams *telego.ReplyParameters
	if dest.ReplyTo != 0 {
		replyParams = &telego.ReplyParameters{MessageID: dest.ReplyTo}
	}

	var (
		msg *telego.Message
		err error
	)
	switch media := bp.Media.(type) {
	case nil:
		msg, err = t.bot.SendMessage(ctx, &telego.SendMessageParams{
			ChatID:              chatID,
			MessageThreadID:     dest.ThreadID,
			Text:                bp.Text,
			Entities:            entities(bp.Entities),
			ParseMode:           bp.ParseMode,
			LinkPreviewOptions:  &telego.LinkPreviewOptions{IsDisabled: true},
			DisableNotification: dest.DisableNotification,
			ProtectContent:      dest.Protect,
			ReplyParameters:     replyParams,
			ReplyMarkup:         markup,
		})
	case view.LinkPreview:
		msg, err = t.bot.SendMessage(ctx, &telego.SendMessageParams{
			ChatID:              chatID,
			MessageThreadID:     dest.ThreadID,
			Text:                bp.Text,
			Entities:            entities(bp.Entities),
			ParseMode:           bp.ParseMode,
			LinkPreviewOptions:  previewOptions(media),
			DisableNotification: dest.DisableNotification,
			ProtectContent:      dest.Protect,
			ReplyParameters:     replyParams,
			ReplyMarkup:         markup,
		})
	case view.Photo:
		var file telego.InputFile
		file, err = inputFile(media.File)
		if err != nil {
			break
		}
		msg, err = t.bot.SendPhoto(ctx, &telego.SendPhotoParams{
			ChatID:              chatID,
			MessageThreadID:     dest.ThreadID,
			Photo:               file,
			HasSpoiler:          media.Spoiler,
			Caption:             bp.Text,
			CaptionEntities:     entities(bp.Entities),
			ParseMode:           bp.ParseMode,
			DisableNotification: dest.DisableNotification,
			ProtectContent:      dest.Protect,
			ReplyParameters:     replyParams,
			ReplyMarkup:         markup,
		})
	case view.Animation:
		var file telego.InputFile
		file, err = inputFile(media.File)
		if err != nil {
			break
		}
		msg, err = t.bot.SendAnimation(ctx, &telego.SendAnimationParams{
			ChatID:              chatID,
			MessageThreadID:     dest.ThreadID,
			Animation:           file,
			Duration:            media.Duration,
			Width:               media.Width,
			Height:              media.Height,
			HasSpoiler:          media.Spoiler,
			Caption:             bp.Text,
			CaptionEntities:     entities(bp.Entities),
			ParseMode:           bp.ParseMode,
			DisableNotification: dest.DisableNotification,
			ProtectContent:      dest.Protect,
			ReplyParameters:     replyParams,
			ReplyMarkup:         markup,
		})
	case view.Video:
		var file telego.InputFile
		file, err = inputFile(media.File)
		if err != nil {
			break
		}
		msg, err = t.bot.SendVideo(ctx, &telego.SendVideoParams{
			ChatID:              chatID,
			MessageThreadID:     dest.ThreadID,
			Video:               file,
			Duration:            media.Duration,
			Width:               media.Width,
			Height:              media.Height,
			HasSpoiler:          media.Spoiler,
			SupportsStreaming:   media.Streaming,
			Caption:             bp.Text,
			CaptionEntities:     entities(bp.Entities),
			ParseMode:           bp.ParseMode,
			DisableNotification: dest.DisableNotification,
			ProtectContent:      dest.Protect,
			ReplyParameters:     replyParams,
			ReplyMarkup:         markup,
		})
	case view.Document:
		var file telego.InputFile
		file, err = inputFile(media.File)
		if err != nil {
			break
		}
		msg, err = t.bot.SendDocument(ctx, &telego.SendDocumentParams{
			ChatID:                      chatID,
			MessageThreadID:             dest.ThreadID,
			Document:                    file,
			DisableContentTypeDetection: media.DisableTypeDetection,
			Caption:                     bp.Text,
			CaptionEntities:             entities(bp.Entities),
			ParseMode:                   bp.ParseMode,
			DisableNotification:         dest.DisableNotification,
			ProtectContent:              dest.Protect,
			ReplyParameters:             replyParams,
			ReplyMarkup:                 markup,
		})
	case view.Audio:
		var file telego.InputFile
		file, err = inputFile(media.File)
		if err != nil {
			break
		}
		msg, err = t.bot.SendAudio(ctx, &telego.SendAudioParams{
			ChatID:              chatID,
			MessageThreadID:     dest.ThreadID,
			Audio:               file,
			Duration:            media.Duration,
			Performer:           media.Performer,
			Title:               media.Title,
			Caption:             bp.Text,
			CaptionEntities:     entities(bp.Entities),
			ParseMode:           bp.ParseMode,
			DisableNotification: dest.DisableNotification,
			ProtectContent:      dest.Protect,
			ReplyParameters:     replyParams,
			ReplyMarkup:         markup,
		})
	default:
		return Handle{}, fmt.Errorf("unsupported media kind %s", bp.MediaKind())
	}
	if err != nil {
		return Handle{}, err
	}
	return Handle{ChatID: msg.Chat.ID, MessageID: msg.MessageID}, nil
}

func (t *Telegram) EditText(ctx context.Context, h Handle, bp *view.Blueprint) error {
	preview := &telego.LinkPreviewOptions{IsDisabled: true}
	if lp, ok := bp.Media.(view.LinkPreview); ok {
		preview = previewOptions(lp)
	}
	_, err := t.bot.EditMessageText(ctx, &telego.EditMessageTextParams{
		ChatID:             telego.ChatID{ID: h.ChatID},
		MessageID:          h.MessageID,
		Text:               bp.Text,
		Entities:           entities(bp.Entities),
		ParseMode:          bp.ParseMode,
		LinkPreviewOptions: preview,
		ReplyMarkup:        keyboardMarkup(bp.Keyboard),
	})
	return mapEditError(err)
}

func (t *Telegram) EditCaption(ctx context.Context, h Handle, bp *view.Blueprint) error {
	_, err := t.bot.EditMessageCaption(ctx, &telego.EditMessageCaptionParams{
		ChatID:          telego.ChatID{ID: h.ChatID},
		MessageID:       h.MessageID,
		Caption:         bp.Text,
		CaptionEntities: entities(bp.Entities),
		ParseMode:       bp.ParseMode,
		ReplyMarkup:     keyboardMarkup(bp.Keyboard),
	})
	return mapEditError(err)
}

func (t *Telegram) EditMedia(ctx context.Context, h Handle, bp *view.Blueprint) error {
	media, err := inputMedia(bp)
	if err != nil {
		return err
	}
	_, err = t.bot.EditMessageMedia(ctx, &telego.EditMessageMediaParams{
		ChatID:      telego.ChatID{ID: h.ChatID},
		MessageID:   h.MessageID,
		Media:       media,
		ReplyMarkup: keyboardMarkup(bp.Keyboard),
	})
	return mapEditError(err)
}

func (t *Telegram) Delete(ctx context.Context, h Handle) error {
	return t.bot.DeleteMessage(ctx, &telego.DeleteMessageParams{
		ChatID:    telego.ChatID{ID: h.ChatID},
		MessageID: h.MessageID,
	})
}

func (t *Telegram) AnswerButton(ctx context.Context, queryID, text string) error {
	return t.bot.AnswerCallbackQuery(ctx, &telego.AnswerCallbackQueryParams{
		CallbackQueryID: queryID,
		Text:            text,
	})
}

// mapEditError folds Telegram's "message is not modified" rejection into the
// NotModified success case.
func mapEditError(err error) error {
	if err == nil {
		return nil
	}
	if strings.Contains(err.Error(), "message is not modified") {
		return ErrNotModified
	}
	return err
}

func previewOptions(lp view.LinkPreview) *telego.LinkPreviewOptions {
	return &telego.LinkPreviewOptions{
		IsDisabled:       false,
		URL:              lp.URL,
		PreferSmallMedia: lp.SizeHint == view.PreviewSmall,
		PreferLargeMedia: lp.SizeHint == view.PreviewLarge,
		ShowAboveText:    lp.Position == view.PreviewAbove,
	}
}

func entities(es []view.Entity) []telego.MessageEntity {
	if len(es) == 0 {
		return nil
	}
	out := make([]telego.MessageEntity, len(es))
	for i, e := range es {
		out[i] = telego.MessageEntity{
			Type:   e.Type,
			Offset: e.Offset,
			Length: e.Length,
			URL:    e.URL,
		}
	}
	return out
}

func keyboardMarkup(k *view.Keyboard) *telego.InlineKeyboardMarkup {
	if k == nil || len(k.Rows) == 0 {
		return nil
	}
	rows := make([][]telego.InlineKeyboardButton, len(k.Rows))
	for i, row := range k.Rows {
		buttons := make([]telego.InlineKeyboardButton, len(row))
		for j, b := range row {
			buttons[j] = telego.InlineKeyboardButton{
				Text:         b.Text,
				CallbackData: b.Data,
				URL:          b.URL,
			}
		}
		rows[i] = buttons
	}
	return &telego.InlineKeyboardMarkup{InlineKeyboard: rows}
}

// inputFile resolves a file source to a telego input file. Local paths are
// opened for streaming upload; openers are closed by the HTTP round trip.
func inputFile(src view.FileSource) (telego.InputFile, error) {
	if src.IsLocal() {
		f, err := os.Open(src.Path)
		if err != nil {
			return telego.InputFile{}, fmt.Errorf("failed to open media file: %w", err)
		}
		return telego.InputFile{File: f}, nil
	}
	if strings.HasPrefix(src.Ref, "http://") || strings.HasPrefix(src.Ref, "https://") {
		return telego.InputFile{URL: src.Ref}, nil
	}
	return telego.InputFile{FileID: src.Ref}, nil
}

func inputMedia(bp *view.Blueprint) (telego.InputMedia, error) {
	switch media := bp.Media.(type) {
	case view.Photo:
		file, err := inputFile(media.File)
		if err != nil {
			return nil, err
		}
		return &telego.InputMediaPhoto{
			Type:            telego.MediaTypePhoto,
			Media:           file,
			HasSpoiler:      media.Spoiler,
			Caption:         bp.Text,
			CaptionEntities: entities(bp.Entities),
			ParseMode:       bp.ParseMode,
		}, nil
	case view.Animation:
		file, err := inputFile(media.File)
		if err != nil {
			return nil, err
		}
		return &telego.InputMediaAnimation{
			Type:            telego.MediaTypeAnimation,
			Media:           file,
			Duration:        media.Duration,
			Width:           media.Width,
			Height:          media.Height,
			HasSpoiler:      media.Spoiler,
			Caption:         bp.Text,
			CaptionEntities: entities(bp.Entities),
			ParseMode:       bp.ParseMode,
		}, nil
	case view.Video:
		file, err := inputFile(media.File)
		if err != nil {
			return nil, err
		}
		return &telego.InputMediaVideo{
			Type:              telego.MediaTypeVideo,
			Media:             file,
			Duration:          media.Duration,
			Width:             media.Width,
			Height:            media.Height,
			HasSpoiler:        media.Spoiler,
			SupportsStreaming: media.Streaming,
			Caption:           bp.Text,
			CaptionEntities:   entities(bp.Entities),
			ParseMode:         bp.ParseMode,
		}, nil
	case view.Document:
		file, err := inputFile(media.File)
		if err != nil {
			return nil, err
		}
		return &telego.InputMediaDocument{
			Type:                        telego.MediaTypeDocument,
			Media:                       file,
			DisableContentTypeDetection: media.DisableTypeDetection,
			Caption:                     bp.Text,
			CaptionEntities:             entities(bp.Entities),
			ParseMode:                   bp.ParseMode,
		}, nil
	case view.Audio:
		file, err := inputFile(media.File)
		if err != nil {
			return nil, err
		}
		return &telego.InputMediaAudio{
			Type:            telego.MediaTypeAudio,
			Media:           file,
			Duration:        media.Duration,
			Performer:       media.Performer,
			Title:           media.Title,
			Caption:         bp.Text,
			CaptionEntities: entities(bp.Entities),
			ParseMode:       bp.ParseMode,
		}, nil
	default:
		return nil, fmt.Errorf("media kind %s cannot be edited in", bp.MediaKind())
	}
}
