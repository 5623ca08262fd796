package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// QueueType identifies the kind of display request held by a queue item.
type QueueType string

const (
	QueueTypeMessage QueueType = "MESSAGE"
	QueueTypeVocal   QueueType = "VOCAL"
)

// MessageContent is the payload of a MESSAGE item (url/text/media shown on the display).
type MessageContent struct {
	URL         string `json:"url,omitempty"`
	Text        string `json:"text,omitempty"`
	Media       string `json:"media,omitempty"`
	ContentType string `json:"mediaContentType,omitempty"`
	Duration    *int   `json:"mediaDuration,omitempty"`
	DisplayFull bool   `json:"displayFull"`
	Revealed    *bool  `json:"revealed,omitempty"`
}

// VocalContent is the payload of a VOCAL item (a synthesized voice clip).
type VocalContent struct {
	Text        string `json:"text,omitempty"`
	Media       string `json:"media"`
	ContentType string `json:"mediaContentType"`
	Duration    int    `json:"mediaDuration"`
	Revealed    *bool  `json:"revealed,omitempty"`
}

// Content is a tagged variant: exactly one of Message or Vocal is set, matching Type.
type Content struct {
	Type    QueueType
	Message *MessageContent
	Vocal   *VocalContent
}

// MessageOf wraps a MessageContent.
func MessageOf(m MessageContent) Content {
	return Content{Type: QueueTypeMessage, Message: &m}
}

// VocalOf wraps a VocalContent.
func VocalOf(v VocalContent) Content {
	return Content{Type: QueueTypeVocal, Vocal: &v}
}

// MarshalJSON encodes only the active variant.
func (c Content) MarshalJSON() ([]byte, error) {
	switch c.Type {
	case QueueTypeMessage:
		if c.Message == nil {
			return nil, fmt.Errorf("message content is empty")
		}
		return json.Marshal(c.Message)
	case QueueTypeVocal:
		if c.Vocal == nil {
			return nil, fmt.Errorf("vocal content is empty")
		}
		return json.Marshal(c.Vocal)
	default:
		return nil, fmt.Errorf("unknown queue type %q", c.Type)
	}
}

// DecodeContent decodes a stored content blob according to its queue type.
func DecodeContent(t QueueType, raw []byte) (Content, error) {
	switch t {
	case QueueTypeMessage:
		var m MessageContent
		if err := json.Unmarshal(raw, &m); err != nil {
			return Content{}, fmt.Errorf("failed to decode message content: %w", err)
		}
		return MessageOf(m), nil
	case QueueTypeVocal:
		var v VocalContent
		if err := json.Unmarshal(raw, &v); err != nil {
			return Content{}, fmt.Errorf("failed to decode vocal content: %w", err)
		}
		return VocalOf(v), nil
	default:
		return Content{}, fmt.Errorf("unknown queue type %q", t)
	}
}

// QueueItem represents one pending display request.
type QueueItem struct {
	ID            int64
	GuildID       string
	Type          QueueType
	Content       Content
	Author        *string
	AuthorID      *string
	AuthorImage   *string
	Duration      int // seconds, already clamped
	ExecutionDate time.Time
}

// DisplayPayload is what display clients receive for a dispatched item.
type DisplayPayload struct {
	ID            int64     `json:"id"`
	Type          QueueType `json:"type"`
	Content       Content   `json:"content"`
	Author        *string   `json:"author"`
	AuthorID      *string   `json:"authorId"`
	AuthorImage   *string   `json:"authorImage"`
	GuildID       string    `json:"discordGuildId"`
	Duration      int       `json:"duration"`
	ExecutionDate time.Time `json:"executionDate"`
}

// Payload builds the display envelope for the item's own content.
func (q QueueItem) Payload() DisplayPayload {
	return DisplayPayload{
		ID:            q.ID,
		Type:          q.Type,
		Content:       q.Content,
		Author:        q.Author,
		AuthorID:      q.AuthorID,
		AuthorImage:   q.AuthorImage,
		GuildID:       q.GuildID,
		Duration:      q.Duration,
		ExecutionDate: q.ExecutionDate,
	}
}

// MediaInfo is the best-effort result of media introspection. Every field is optional.
type MediaInfo struct {
	ContentType string
	Duration    *float64 // seconds
	DirectURL   string
}

// StringPtr returns nil for an empty string.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
