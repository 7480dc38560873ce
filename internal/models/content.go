package models

type ContentKind string

const (
	TextContent     ContentKind = "text"
	PhotoContent    ContentKind = "photo"
	DocumentContent ContentKind = "document"
	AudioContent    ContentKind = "audio"
	VideoContent    ContentKind = "video"
	VoiceContent    ContentKind = "voice"
	StickerContent  ContentKind = "sticker"
)

// CascadeOrder is the fixed priority used when a verbatim copy is not
// possible and the message has to be re-sent by content type. First match
// wins.
var CascadeOrder = []ContentKind{
	TextContent,
	PhotoContent,
	DocumentContent,
	AudioContent,
	VideoContent,
	VoiceContent,
	StickerContent,
}

// Content is a tagged union over the message payload types the relay can
// re-send explicitly. Exactly one of Text or FileID is meaningful depending
// on Kind; Caption is empty for kinds that do not carry one (stickers).
type Content struct {
	Kind    ContentKind
	Text    string
	FileID  string
	Caption string
}
