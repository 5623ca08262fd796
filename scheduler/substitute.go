package scheduler

import (
	"fmt"

	"livechat-bot/models"
)

// substitute replaces a blacklisted author's content with the moderation placeholder.
// The envelope (id, author fields, guild, duration) is kept.
func substitute(item models.QueueItem, placeholderURL string) models.DisplayPayload {
	name := "Quelqu'un"
	if item.Author != nil && *item.Author != "" {
		name = *item.Author
	}

	p := item.Payload()
	p.Type = models.QueueTypeMessage
	p.Content = models.MessageOf(models.MessageContent{
		URL:         placeholderURL,
		Text:        fmt.Sprintf("%s a essayé d'envoyer un LiveChat mais %s n'est pas drôle", name, name),
		ContentType: "image/jpeg",
		DisplayFull: false,
	})
	return p
}
