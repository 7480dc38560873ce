package relay

import "github.com/LepisevKalisey/tgproxy/internal/models"

// contentOf extracts the first deliverable payload from the message,
// scanning in cascade priority order. For photos only the
// highest-resolution variant is kept.
func contentOf(msg *models.Message) (models.Content, bool) {
	for _, kind := range models.CascadeOrder {
		switch kind {
		case models.TextContent:
			if msg.Text != "" {
				return models.Content{Kind: kind, Text: msg.Text}, true
			}
		case models.PhotoContent:
			if len(msg.Photo) > 0 {
				best := msg.Photo[len(msg.Photo)-1]
				return models.Content{Kind: kind, FileID: best.FileID, Caption: msg.Caption}, true
			}
		case models.DocumentContent:
			if msg.Document != nil {
				return models.Content{Kind: kind, FileID: msg.Document.FileID, Caption: msg.Caption}, true
			}
		case models.AudioContent:
			if msg.Audio != nil {
				return models.Content{Kind: kind, FileID: msg.Audio.FileID, Caption: msg.Caption}, true
			}
		case models.VideoContent:
			if msg.Video != nil {
				return models.Content{Kind: kind, FileID: msg.Video.FileID, Caption: msg.Caption}, true
			}
		case models.VoiceContent:
			if msg.Voice != nil {
				return models.Content{Kind: kind, FileID: msg.Voice.FileID, Caption: msg.Caption}, true
			}
		case models.StickerContent:
			if msg.Sticker != nil {
				// Stickers carry no caption.
				return models.Content{Kind: kind, FileID: msg.Sticker.FileID}, true
			}
		}
	}
	return models.Content{}, false
}
