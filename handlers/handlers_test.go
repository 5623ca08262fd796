package handlers

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"livechat-bot/command"
	"livechat-bot/models"
	"livechat-bot/queue"
	"livechat-bot/quota"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSession struct {
	mu        sync.Mutex
	responses []*discordgo.InteractionResponse
	edits     []*discordgo.WebhookEdit
	sent      []string
	embeds    []*discordgo.MessageEmbed
	deleted   []string
	uploadURL string
}

func (s *fakeSession) InteractionRespond(_ *discordgo.Interaction, r *discordgo.InteractionResponse, _ ...discordgo.RequestOption) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.responses = append(s.responses, r)
	return nil
}

func (s *fakeSession) InteractionResponseEdit(_ *discordgo.Interaction, e *discordgo.WebhookEdit, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.edits = append(s.edits, e)
	msg := &discordgo.Message{}
	if len(e.Files) > 0 {
		_, _ = io.ReadAll(e.Files[0].Reader)
		msg.Attachments = []*discordgo.MessageAttachment{{ProxyURL: s.uploadURL}}
	}
	return msg, nil
}

func (s *fakeSession) ChannelMessageSend(_ string, content string, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, content)
	return &discordgo.Message{}, nil
}

func (s *fakeSession) ChannelMessageSendEmbed(_ string, e *discordgo.MessageEmbed, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.embeds = append(s.embeds, e)
	return &discordgo.Message{}, nil
}

func (s *fakeSession) ChannelMessageDelete(_, messageID string, _ ...discordgo.RequestOption) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted = append(s.deleted, messageID)
	return nil
}

// lastEmbed returns the most recent embed the interaction showed, edited or not.
func (s *fakeSession) lastEmbed(t *testing.T) *discordgo.MessageEmbed {
	t.Helper()
	if n := len(s.edits); n > 0 && s.edits[n-1].Embeds != nil {
		embeds := *s.edits[n-1].Embeds
		require.NotEmpty(t, embeds)
		return embeds[0]
	}
	require.NotEmpty(t, s.responses)
	r := s.responses[len(s.responses)-1]
	require.NotNil(t, r.Data)
	require.NotEmpty(t, r.Data.Embeds)
	return r.Data.Embeds[0]
}

type fakeModeration struct {
	blocked map[string]bool
	voteRes models.VoteResult
	err     error
	calls   []string
}

func (m *fakeModeration) IsBlocked(_ context.Context, userID, _ string) (bool, error) {
	return m.blocked[userID], nil
}

func (m *fakeModeration) Block(_ context.Context, _, userID, _ string) error {
	m.calls = append(m.calls, "block:"+userID)
	return m.err
}

func (m *fakeModeration) Unblock(_ context.Context, _, userID, _ string) error {
	m.calls = append(m.calls, "unblock:"+userID)
	return m.err
}

func (m *fakeModeration) Vote(_ context.Context, _, targetID, _ string) (models.VoteResult, error) {
	m.calls = append(m.calls, "vote:"+targetID)
	return m.voteRes, m.err
}

func (m *fakeModeration) Unblacklist(_ context.Context, _, userID, _ string) error {
	m.calls = append(m.calls, "unblacklist:"+userID)
	return m.err
}

type fakeSubmissions struct {
	sends  []queue.SendRequest
	hidden []queue.SendRequest
	talks  []queue.TalkRequest
	err    error
}

func (f *fakeSubmissions) Send(_ context.Context, req queue.SendRequest) (int64, error) {
	f.sends = append(f.sends, req)
	return 1, f.err
}

func (f *fakeSubmissions) HiddenSend(_ context.Context, req queue.SendRequest) (int64, error) {
	f.hidden = append(f.hidden, req)
	return 1, f.err
}

func (f *fakeSubmissions) Talk(_ context.Context, req queue.TalkRequest) (int64, error) {
	f.talks = append(f.talks, req)
	return 1, f.err
}

func (f *fakeSubmissions) HiddenTalk(_ context.Context, req queue.TalkRequest) (int64, bool, error) {
	f.talks = append(f.talks, req)
	return 1, false, f.err
}

func (f *fakeSubmissions) SetDefaultDuration(context.Context, string, string, int) error {
	return f.err
}
func (f *fakeSubmissions) SetMaxDuration(context.Context, string, string, int) error  { return f.err }
func (f *fakeSubmissions) SetDisplayFull(context.Context, string, string, bool) error { return f.err }

type fakeSpeech struct{ texts []string }

func (s *fakeSpeech) Synthesize(_ context.Context, text, _ string) ([]byte, error) {
	s.texts = append(s.texts, text)
	return []byte("mp3"), nil
}

type staticAuth map[string]bool

func (a staticAuth) IsAdministrator(_ context.Context, _, userID string) (bool, error) {
	return a[userID], nil
}

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

const (
	guildID    = "g1"
	channelID  = "c1"
	restricted = "161855974754222080"
)

type fixture struct {
	h       *Handler
	session *fakeSession
	mod     *fakeModeration
	subs    *fakeSubmissions
	speech  *fakeSpeech
	limiter *quota.Limiter
}

func newFixture() *fixture {
	f := &fixture{
		session: &fakeSession{uploadURL: "https://media.discordapp.net/attachments/1/2/voix.mp3"},
		mod:     &fakeModeration{blocked: map[string]bool{}},
		subs:    &fakeSubmissions{},
		speech:  &fakeSpeech{},
	}
	f.limiter = quota.NewLimiter(models.QuotaConfig{RestrictedUserID: restricted, DailyLimit: 20, ReminderEvery: 5},
		fixedClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}, staticAuth{"admin": true}, zerolog.Nop())
	f.h = New(f.session, Deps{
		Moderation: f.mod,
		Quota:      f.limiter,
		Queue:      f.subs,
		Speech:     f.speech,
	}, zerolog.Nop())
	return f
}

func interaction(name, userID string, opts []*discordgo.ApplicationCommandInteractionDataOption, resolved *discordgo.ApplicationCommandInteractionDataResolved) *discordgo.Interaction {
	return &discordgo.Interaction{
		Type:      discordgo.InteractionApplicationCommand,
		GuildID:   guildID,
		ChannelID: channelID,
		Member:    &discordgo.Member{User: &discordgo.User{ID: userID, Username: "user-" + userID}},
		Data: discordgo.ApplicationCommandInteractionData{
			Name:     name,
			Options:  opts,
			Resolved: resolved,
		},
	}
}

func userOpt(id string) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{Name: command.OptionUser, Type: discordgo.ApplicationCommandOptionUser, Value: id}
}

func intOpt(name string, v int) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{Name: name, Type: discordgo.ApplicationCommandOptionInteger, Value: float64(v)}
}

func strOpt(name, v string) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{Name: name, Type: discordgo.ApplicationCommandOptionString, Value: v}
}

func TestBlockedUserIsTurnedAway(t *testing.T) {
	f := newFixture()
	f.mod.blocked["bad"] = true

	f.h.Dispatch(context.Background(), interaction(command.Msg, "bad", []*discordgo.ApplicationCommandInteractionDataOption{strOpt(command.OptionText, "hi")}, nil))

	assert.Empty(t, f.subs.sends)
	embed := f.session.lastEmbed(t)
	assert.Equal(t, "🚫 Accès bloqué", embed.Title)
	assert.Equal(t, discordgo.MessageFlagsEphemeral, f.session.responses[0].Data.Flags)
}

func TestBlockedUserMayRunAdminCommands(t *testing.T) {
	f := newFixture()
	f.mod.blocked["bad"] = true

	f.h.Dispatch(context.Background(), interaction(command.Unblock, "bad", []*discordgo.ApplicationCommandInteractionDataOption{userOpt("other")}, nil))

	assert.Equal(t, []string{"unblock:other"}, f.mod.calls)
}

func TestSendQueuesMessage(t *testing.T) {
	f := newFixture()
	resolved := &discordgo.ApplicationCommandInteractionDataResolved{
		Attachments: map[string]*discordgo.MessageAttachment{
			"a1": {ID: "a1", ProxyURL: "https://media.discordapp.net/x.mp4", ContentType: "video/mp4"},
		},
	}
	f.h.Dispatch(context.Background(), interaction(command.Msg, "u1", []*discordgo.ApplicationCommandInteractionDataOption{
		strOpt(command.OptionText, "hello"),
		{Name: command.OptionMedia, Type: discordgo.ApplicationCommandOptionAttachment, Value: "a1"},
	}, resolved))

	require.Len(t, f.subs.sends, 1)
	req := f.subs.sends[0]
	assert.Equal(t, guildID, req.GuildID)
	assert.Equal(t, "u1", req.Author.ID)
	assert.Equal(t, "hello", req.Text)
	require.NotNil(t, req.Attachment)
	assert.Equal(t, "https://media.discordapp.net/x.mp4", req.Attachment.URL)
	assert.Equal(t, "video/mp4", req.Attachment.ContentType)

	assert.Equal(t, discordgo.InteractionResponseDeferredChannelMessageWithSource, f.session.responses[0].Type)
	assert.Equal(t, colorSuccess, f.session.lastEmbed(t).Color)
}

func TestSendRejectsEmptyRequest(t *testing.T) {
	f := newFixture()
	f.h.Dispatch(context.Background(), interaction(command.Msg, "u1", nil, nil))

	assert.Empty(t, f.subs.sends)
	assert.Equal(t, "❌ Message vide", f.session.lastEmbed(t).Title)
}

func TestHiddenSendIsEphemeral(t *testing.T) {
	f := newFixture()
	f.h.Dispatch(context.Background(), interaction(command.HiddenMsg, "u1", []*discordgo.ApplicationCommandInteractionDataOption{strOpt(command.OptionURL, "https://x/y.png")}, nil))

	require.Len(t, f.subs.hidden, 1)
	assert.Equal(t, discordgo.MessageFlagsEphemeral, f.session.responses[0].Data.Flags)
}

func TestTalkUploadsVoiceAndQueuesIt(t *testing.T) {
	f := newFixture()
	f.h.Dispatch(context.Background(), interaction(command.Talk, "u1", []*discordgo.ApplicationCommandInteractionDataOption{
		strOpt(command.OptionVoice, "bonjour tout le monde"),
		strOpt(command.OptionText, "coucou"),
	}, nil))

	assert.Equal(t, []string{"bonjour tout le monde"}, f.speech.texts)
	require.Len(t, f.session.edits, 1)
	require.Len(t, f.session.edits[0].Files, 1)
	assert.Equal(t, "audio/mpeg", f.session.edits[0].Files[0].ContentType)

	require.Len(t, f.subs.talks, 1)
	assert.Equal(t, f.session.uploadURL, f.subs.talks[0].VoiceURL)
	assert.Equal(t, "coucou", f.subs.talks[0].Text)
}

func TestBlacklistVoteReplies(t *testing.T) {
	f := newFixture()
	f.mod.voteRes = models.VoteResult{Votes: 2, Needed: 5, Remaining: 3}
	f.h.Dispatch(context.Background(), interaction(command.Blacklist, "u1", []*discordgo.ApplicationCommandInteractionDataOption{userOpt("target")}, nil))

	embed := f.session.lastEmbed(t)
	assert.Equal(t, "🗳️ Vote enregistré", embed.Title)
	assert.Equal(t, colorPending, embed.Color)
	assert.Contains(t, embed.Description, "Votes: 2/5")

	f.mod.voteRes = models.VoteResult{Votes: 5, Needed: 5, Blacklisted: true}
	f.h.Dispatch(context.Background(), interaction(command.Blacklist, "u2", []*discordgo.ApplicationCommandInteractionDataOption{userOpt("target")}, nil))
	assert.Equal(t, "🚫 Utilisateur blacklisté !", f.session.lastEmbed(t).Title)
}

func TestModerationErrorsAreRendered(t *testing.T) {
	f := newFixture()
	f.mod.err = models.ErrDuplicateVote
	resolved := &discordgo.ApplicationCommandInteractionDataResolved{
		Users: map[string]*discordgo.User{"target": {ID: "target", Username: "bob"}},
	}
	f.h.Dispatch(context.Background(), interaction(command.Blacklist, "u1", []*discordgo.ApplicationCommandInteractionDataOption{userOpt("target")}, resolved))

	embed := f.session.lastEmbed(t)
	assert.Equal(t, "❌ Vote déjà effectué", embed.Title)
	assert.Contains(t, embed.Description, "bob")
}

func TestQuotaAdminCommands(t *testing.T) {
	f := newFixture()

	f.h.Dispatch(context.Background(), interaction(command.QuotaGive, "admin", []*discordgo.ApplicationCommandInteractionDataOption{userOpt(restricted), intOpt(command.OptionAmount, 3)}, nil))
	assert.Equal(t, "✅ Messages offerts", f.session.lastEmbed(t).Title)
	assert.Equal(t, []string{"3 messages t'ont été offert <@" + restricted + "> tache d'en faire bon usage"}, f.session.sent)

	f.h.Dispatch(context.Background(), interaction(command.QuotaReset, "admin", []*discordgo.ApplicationCommandInteractionDataOption{userOpt("someone")}, nil))
	embed := f.session.lastEmbed(t)
	assert.Equal(t, "❌ Utilisateur non géré", embed.Title)
	assert.Equal(t, "Cette commande ne s'applique qu'à <@"+restricted+">", embed.Description)

	f.h.Dispatch(context.Background(), interaction(command.QuotaSetLimit, "nobody", []*discordgo.ApplicationCommandInteractionDataOption{intOpt(command.OptionAmount, 3)}, nil))
	assert.Equal(t, "❌ Permission refusée", f.session.lastEmbed(t).Title)

	f.h.Dispatch(context.Background(), interaction(command.QuotaSetLimit, "admin", []*discordgo.ApplicationCommandInteractionDataOption{intOpt(command.OptionAmount, 7)}, nil))
	assert.Contains(t, f.session.lastEmbed(t).Description, "7 messages")
	assert.Equal(t, 7, f.limiter.Limit(guildID))
}

func TestConfigErrorsAreRendered(t *testing.T) {
	f := newFixture()
	f.subs.err = models.ErrPermissionDenied
	f.h.Dispatch(context.Background(), interaction(command.ConfigMax, "u1", []*discordgo.ApplicationCommandInteractionDataOption{intOpt(command.OptionSeconds, 30)}, nil))
	assert.Equal(t, "❌ Permission refusée", f.session.lastEmbed(t).Title)

	f.subs.err = errors.New("boom")
	f.h.Dispatch(context.Background(), interaction(command.ConfigDefault, "u1", []*discordgo.ApplicationCommandInteractionDataOption{intOpt(command.OptionSeconds, 10)}, nil))
	assert.Equal(t, "❌ Erreur", f.session.lastEmbed(t).Title)
}

func TestQuotaListener(t *testing.T) {
	f := newFixture()
	_, err := f.limiter.SetLimit(context.Background(), "admin", guildID, 6)
	require.NoError(t, err)

	msg := func(id string) *discordgo.Message {
		return &discordgo.Message{ID: id, GuildID: guildID, ChannelID: channelID, Author: &discordgo.User{ID: restricted}}
	}
	for i := 0; i < 6; i++ {
		f.h.HandleMessage(msg("m"))
	}
	assert.Equal(t, []string{"<@" + restricted + "> Plus que 1 messages restants"}, f.session.sent)
	assert.Empty(t, f.session.deleted)

	f.h.HandleMessage(msg("over"))
	assert.Equal(t, []string{"over"}, f.session.deleted)
	assert.Equal(t, "<@"+restricted+"> a dépassé son quota de message par jour merci de revenir demain", f.session.sent[len(f.session.sent)-1])

	f.h.HandleMessage(&discordgo.Message{ID: "x", GuildID: guildID, Author: &discordgo.User{ID: "other"}})
	f.h.HandleMessage(&discordgo.Message{ID: "y", GuildID: guildID, Author: &discordgo.User{ID: restricted, Bot: true}})
	assert.Equal(t, []string{"over"}, f.session.deleted)
}

func TestSubmissionsConsumeQuota(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	_, err := f.limiter.SetLimit(ctx, "admin", guildID, 6)
	require.NoError(t, err)

	text := []*discordgo.ApplicationCommandInteractionDataOption{strOpt(command.OptionText, "hi")}
	for i := 0; i < 5; i++ {
		f.h.Dispatch(ctx, interaction(command.Msg, restricted, text, nil))
	}
	f.h.Dispatch(ctx, interaction(command.HiddenMsg, restricted, text, nil))
	assert.Len(t, f.subs.sends, 5)
	assert.Len(t, f.subs.hidden, 1)
	assert.Equal(t, []string{"<@" + restricted + "> Plus que 1 messages restants"}, f.session.sent)

	f.h.Dispatch(ctx, interaction(command.Msg, restricted, text, nil))
	assert.Len(t, f.subs.sends, 5, "over quota submissions are not queued")
	last := f.session.responses[len(f.session.responses)-1]
	require.NotEmpty(t, last.Data.Embeds)
	assert.Equal(t, "❌ Quota dépassé", last.Data.Embeds[0].Title)
	assert.Equal(t, discordgo.MessageFlagsEphemeral, last.Data.Flags)

	f.h.Dispatch(ctx, interaction(command.Talk, restricted, []*discordgo.ApplicationCommandInteractionDataOption{strOpt(command.OptionVoice, "bonjour")}, nil))
	assert.Empty(t, f.speech.texts, "no clip is synthesized over quota")
	assert.Empty(t, f.subs.talks)

	f.h.Dispatch(ctx, interaction(command.Msg, "u1", text, nil))
	assert.Len(t, f.subs.sends, 6, "other users are not counted")
}

func TestWelcomeOnlyForNewGuilds(t *testing.T) {
	f := newFixture()
	f.h.Ready(nil, &discordgo.Ready{User: &discordgo.User{Username: "bot"}, Guilds: []*discordgo.Guild{{ID: "old"}}})

	guild := &discordgo.Guild{ID: "new", Channels: []*discordgo.Channel{
		{ID: "voice", Type: discordgo.ChannelTypeGuildVoice},
		{ID: "readonly", Type: discordgo.ChannelTypeGuildText},
		{ID: "general", Type: discordgo.ChannelTypeGuildText},
	}}
	canSend := func(id string) bool { return id == "general" || id == "voice" }

	assert.Equal(t, "general", welcomeChannel(guild, canSend))
	f.h.welcome(guild, canSend)
	require.Len(t, f.session.embeds, 1)
	assert.Equal(t, colorInfo, f.session.embeds[0].Color)

	_, seen := f.h.known.Load("old")
	assert.True(t, seen)
}

func TestUnknownCommand(t *testing.T) {
	f := newFixture()
	f.h.Dispatch(context.Background(), interaction("stop", "u1", nil, nil))
	require.Len(t, f.session.responses, 1)
	assert.Equal(t, "🚫 Commande inconnue.", f.session.responses[0].Data.Content)
}
