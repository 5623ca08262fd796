package handlers

import (
	"bytes"
	"context"
	"fmt"

	"livechat-bot/command"
	"livechat-bot/queue"

	"github.com/bwmarrin/discordgo"
)

const voiceFileName = "voix.mp3"

func author(u *discordgo.User) queue.Author {
	return queue.Author{ID: u.ID, Name: u.Username, AvatarURL: avatarURL(u)}
}

// sendHandler serves /msg and its anonymous variant /cmsg. The anonymous
// variant answers ephemerally so the submitter stays hidden.
func (h *Handler) sendHandler(hidden bool) commandFunc {
	return func(ctx context.Context, r *reply, in invocation) error {
		req := queue.SendRequest{
			GuildID: in.guildID,
			Author:  author(in.user),
			URL:     in.stringOption(command.OptionURL),
			Text:    in.stringOption(command.OptionText),
		}
		if a := in.attachmentOption(command.OptionMedia); a != nil {
			url := a.ProxyURL
			if url == "" {
				url = a.URL
			}
			req.Attachment = &queue.Attachment{URL: url, ContentType: a.ContentType}
		}
		if req.URL == "" && req.Text == "" && req.Attachment == nil {
			return errEmptyMessage
		}
		if err := h.consumeQuota(in); err != nil {
			return err
		}

		if err := r.deferReply(hidden); err != nil {
			return err
		}

		var err error
		if hidden {
			_, err = h.queue.HiddenSend(ctx, req)
		} else {
			_, err = h.queue.Send(ctx, req)
		}
		if err != nil {
			return err
		}
		return r.embed(successEmbed("✅ Succès", "Ton message va être affiché sur le live."), hidden)
	}
}

// talkHandler serves /dire and /cdire. The synthesized clip is uploaded as the
// reply's attachment and its CDN URL is what the overlay plays.
func (h *Handler) talkHandler(hidden bool) commandFunc {
	return func(ctx context.Context, r *reply, in invocation) error {
		voice := in.stringOption(command.OptionVoice)
		if voice == "" {
			return errEmptyMessage
		}
		if err := h.consumeQuota(in); err != nil {
			return err
		}
		if err := r.deferReply(hidden); err != nil {
			return err
		}

		audio, err := h.speech.Synthesize(ctx, voice, h.lang)
		if err != nil {
			return fmt.Errorf("failed to synthesize speech: %w", err)
		}
		msg, err := r.embedWithFile(
			successEmbed("✅ Succès", "Ton message vocal va être joué sur le live."),
			&discordgo.File{Name: voiceFileName, ContentType: "audio/mpeg", Reader: bytes.NewReader(audio)},
		)
		if err != nil {
			return fmt.Errorf("failed to upload voice clip: %w", err)
		}
		voiceURL := uploadedURL(msg)
		if voiceURL == "" {
			return fmt.Errorf("voice clip upload returned no attachment")
		}

		req := queue.TalkRequest{
			GuildID:  in.guildID,
			Author:   author(in.user),
			Text:     in.stringOption(command.OptionText),
			VoiceURL: voiceURL,
		}
		if hidden {
			_, _, err = h.queue.HiddenTalk(ctx, req)
		} else {
			_, err = h.queue.Talk(ctx, req)
		}
		return err
	}
}

// consumeQuota counts a submission against the restricted user's daily quota.
// Other users pass untouched.
func (h *Handler) consumeQuota(in invocation) error {
	if h.quota == nil {
		return nil
	}
	res, err := h.quota.CheckAndConsume(in.guildID, in.user.ID)
	if err != nil {
		return err
	}
	if res.Reminder {
		h.announce(in.channelID, fmt.Sprintf("%s Plus que %d messages restants", mention(in.user.ID), res.Remaining))
	}
	return nil
}

func uploadedURL(msg *discordgo.Message) string {
	if msg == nil || len(msg.Attachments) == 0 {
		return ""
	}
	a := msg.Attachments[0]
	if a.ProxyURL != "" {
		return a.ProxyURL
	}
	return a.URL
}
