package reader

import "regexp"

// Message is the inbound text to read aloud, decoupled from the chat
// platform's event types.
type Message struct {
	AuthorID      string
	AuthorName    string
	Content       string
	HasAttachment bool
}

// Spoken markers substituted for content that cannot be read literally.
const (
	markerTruncated  = "、長文省略"
	markerLink       = "、リンク省略、"
	markerChannel    = "、チャンネル省略、"
	markerMention    = "、メンション省略、"
	markerRole       = "、ロールメンション省略、"
	markerEmoji      = "、絵文字省略、"
	markerAttachment = "、添付ファイル"
)

// maxSpokenRunes bounds how much of a message body is read before
// truncation kicks in.
const maxSpokenRunes = 100

var (
	reLink    = regexp.MustCompile(`https?://\S+`)
	reChannel = regexp.MustCompile(`<#.*?>`)
	reMention = regexp.MustCompile(`<@.*?>`)
	reRole    = regexp.MustCompile(`<@&.*?>`)
	reEmoji   = regexp.MustCompile(`<.*?:.*?>`)
)

// Normalize turns a raw chat message into the exact text handed to the
// speech engine. The stages run in a fixed order: dictionary rules first,
// then truncation, then markup elision, then speaker attribution and the
// attachment marker.
//
// withName controls whether the author attribution prefix
// ("{name}さん、") is added; callers implement the name-prefix policy by
// deciding it per message.
func Normalize(msg Message, dict *Dictionary, withName bool) string {
	text := msg.Content
	if dict != nil {
		text = dict.Apply(text)
	}

	if runes := []rune(text); len(runes) > maxSpokenRunes {
		text = string(runes[:maxSpokenRunes]) + markerTruncated
	}

	text = reLink.ReplaceAllString(text, markerLink)
	text = reChannel.ReplaceAllString(text, markerChannel)
	// Role mentions are a subset of the mention syntax; the generic
	// mention pattern consumes them first, so the role pattern only
	// matches forms the mention pass left behind.
	text = reMention.ReplaceAllString(text, markerMention)
	text = reRole.ReplaceAllString(text, markerRole)
	text = reEmoji.ReplaceAllString(text, markerEmoji)

	if withName && msg.AuthorName != "" {
		text = msg.AuthorName + "さん、" + text
	}
	if msg.HasAttachment {
		text += markerAttachment
	}
	return text
}

// JoinNotice is the spoken announcement for a member entering the voice
// channel.
func JoinNotice(name string) string {
	return name + "さんが入室しました。"
}

// LeaveNotice is the spoken announcement for a member exiting the voice
// channel.
func LeaveNotice(name string) string {
	return name + "さんが退出しました。"
}

// Greeting is spoken once right after the session connects.
const Greeting = "接続しました。"
