package model

import "fmt"

// IncomingMessage is a single message delivered by the transport.
// Exactly one of Text or Audio is populated.
type IncomingMessage struct {
	MessageID int
	ChatID    int64
	Sender    string
	Text      string
	Audio     []byte
}

// Key returns the identity used for message-level deduplication.
// Message IDs are unique per chat, so the key combines both.
func (m IncomingMessage) Key() string {
	return fmt.Sprintf("%d:%d", m.ChatID, m.MessageID)
}

// IsVoice reports whether the message carries an audio payload.
func (m IncomingMessage) IsVoice() bool {
	return len(m.Audio) > 0
}

// Receipt is the confirmation artifact returned after a successful
// ledger append. Row is the 1-based spreadsheet row index of the
// written entry; it is owned by the ledger writer until consumed by
// an undo.
type Receipt struct {
	Row        int64
	MessageKey string
	Summary    string
}
