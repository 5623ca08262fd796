package queue

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"strings"

	"livechat-bot/models"
	"livechat-bot/utils"

	"github.com/rs/zerolog"
)

// Store is the persistence the submission path needs.
type Store interface {
	InsertQueueItem(ctx context.Context, item models.QueueItem) (int64, error)
	GetAudience(ctx context.Context, guildID string) (models.Audience, error)
	UpdateGuildSettings(ctx context.Context, guildID string, s models.GuildSettings) error
}

// Resolver inspects a media URL. Every field of the result is optional.
type Resolver interface {
	Resolve(ctx context.Context, url string) models.MediaInfo
}

// Normalizer rewrites platform-hosted videos into a widely playable copy.
// It returns the input URL when nothing was done.
type Normalizer interface {
	Normalize(ctx context.Context, url string) string
}

// Authorizer decides who may change guild settings.
type Authorizer interface {
	IsAdministrator(ctx context.Context, guildID, userID string) (bool, error)
}

// Author identifies the submitter of a display request.
type Author struct {
	ID        string
	Name      string
	AvatarURL string
}

// Attachment is a file uploaded alongside a command.
type Attachment struct {
	URL         string
	ContentType string
	Duration    *float64
}

// SendRequest is a text/media display request (/msg, /cmsg).
type SendRequest struct {
	GuildID    string
	Author     Author
	URL        string
	Text       string
	Attachment *Attachment
}

// TalkRequest is a voice display request (/dire, /cdire). VoiceURL points at the
// synthesized clip once it has been uploaded.
type TalkRequest struct {
	GuildID  string
	Author   Author
	Text     string
	VoiceURL string
}

type Service struct {
	store      Store
	resolver   Resolver
	normalizer Normalizer
	auth       Authorizer
	clock      utils.Clock
	defaults   models.DisplayConfig
	revealProb float64
	rand       func() float64
	log        zerolog.Logger
}

func NewService(store Store, resolver Resolver, normalizer Normalizer, auth Authorizer, clock utils.Clock,
	defaults models.DisplayConfig, revealProb float64, log zerolog.Logger) *Service {
	if clock == nil {
		clock = utils.SystemClock{}
	}
	return &Service{
		store:      store,
		resolver:   resolver,
		normalizer: normalizer,
		auth:       auth,
		clock:      clock,
		defaults:   defaults,
		revealProb: revealProb,
		rand:       rand.Float64,
		log:        log.With().Str("component", "queue").Logger(),
	}
}

// Submit stores item as due now and returns its id.
func (s *Service) Submit(ctx context.Context, item models.QueueItem) (int64, error) {
	item.ExecutionDate = s.clock.Now()
	id, err := s.store.InsertQueueItem(ctx, item)
	if err != nil {
		return 0, err
	}
	s.log.Debug().Int64("item", id).Str("guild", item.GuildID).Str("type", string(item.Type)).Int("duration", item.Duration).Msg("item queued")
	return id, nil
}

// DefaultDuration is the guild's display duration in seconds.
func (s *Service) DefaultDuration(ctx context.Context, guildID string) (int, error) {
	a, err := s.store.GetAudience(ctx, guildID)
	if err != nil {
		return 0, err
	}
	if a.Settings.DefaultDuration != nil {
		return *a.Settings.DefaultDuration, nil
	}
	return s.defaults.DefaultDuration, nil
}

// MaxDuration is the longest display the guild accepts, in seconds.
func (s *Service) MaxDuration(ctx context.Context, guildID string) (int, error) {
	a, err := s.store.GetAudience(ctx, guildID)
	if err != nil {
		return 0, err
	}
	if a.Settings.MaxDuration != nil {
		return *a.Settings.MaxDuration, nil
	}
	return s.defaults.MaxDuration, nil
}

// DisplayMediaFull reports whether media fill the whole display in this guild.
func (s *Service) DisplayMediaFull(ctx context.Context, guildID string) (bool, error) {
	a, err := s.store.GetAudience(ctx, guildID)
	if err != nil {
		return false, err
	}
	if a.Settings.DisplayFull != nil {
		return *a.Settings.DisplayFull, nil
	}
	return s.defaults.MediaFull, nil
}

// ClampDuration turns a requested duration into the one stored on the item:
// nil means the guild default, and the result is bounded by [0, max].
func (s *Service) ClampDuration(ctx context.Context, guildID string, requested *int) (int, error) {
	d := 0
	if requested != nil {
		d = *requested
	} else {
		def, err := s.DefaultDuration(ctx, guildID)
		if err != nil {
			return 0, err
		}
		d = def
	}
	maxDuration, err := s.MaxDuration(ctx, guildID)
	if err != nil {
		return 0, err
	}
	return min(max(d, 0), maxDuration), nil
}

// Send queues a visible text/media message.
func (s *Service) Send(ctx context.Context, req SendRequest) (int64, error) {
	content, duration, err := s.messageContent(ctx, req, true)
	if err != nil {
		return 0, err
	}
	return s.Submit(ctx, models.QueueItem{
		GuildID:     req.GuildID,
		Type:        models.QueueTypeMessage,
		Content:     models.MessageOf(content),
		Author:      models.StringPtr(req.Author.Name),
		AuthorID:    models.StringPtr(req.Author.ID),
		AuthorImage: models.StringPtr(req.Author.AvatarURL),
		Duration:    duration,
	})
}

// HiddenSend queues an anonymous message. Its duration is always the guild default.
func (s *Service) HiddenSend(ctx context.Context, req SendRequest) (int64, error) {
	content, duration, err := s.messageContent(ctx, req, false)
	if err != nil {
		return 0, err
	}
	return s.Submit(ctx, models.QueueItem{
		GuildID:  req.GuildID,
		Type:     models.QueueTypeMessage,
		Content:  models.MessageOf(content),
		Duration: duration,
	})
}

// Talk queues a voice clip with its author shown.
func (s *Service) Talk(ctx context.Context, req TalkRequest) (int64, error) {
	content, duration, err := s.vocalContent(ctx, req)
	if err != nil {
		return 0, err
	}
	return s.Submit(ctx, models.QueueItem{
		GuildID:     req.GuildID,
		Type:        models.QueueTypeVocal,
		Content:     models.VocalOf(content),
		Author:      models.StringPtr(req.Author.Name),
		AuthorID:    models.StringPtr(req.Author.ID),
		AuthorImage: models.StringPtr(req.Author.AvatarURL),
		Duration:    duration,
	})
}

// HiddenTalk queues an anonymous voice clip. The author is revealed with the
// configured probability; even then the author id is not attached.
func (s *Service) HiddenTalk(ctx context.Context, req TalkRequest) (int64, bool, error) {
	content, duration, err := s.vocalContent(ctx, req)
	if err != nil {
		return 0, false, err
	}
	reveal := s.rand()*100 < s.revealProb
	content.Revealed = &reveal

	item := models.QueueItem{
		GuildID:  req.GuildID,
		Type:     models.QueueTypeVocal,
		Content:  models.VocalOf(content),
		Duration: duration,
	}
	if reveal {
		item.Author = models.StringPtr(req.Author.Name)
		item.AuthorImage = models.StringPtr(req.Author.AvatarURL)
	}
	s.log.Info().Str("guild", req.GuildID).Str("user", req.Author.ID).Bool("revealed", reveal).Msg("anonymous voice message")

	id, err := s.Submit(ctx, item)
	return id, reveal, err
}

// SetDefaultDuration changes the guild's default display duration.
func (s *Service) SetDefaultDuration(ctx context.Context, adminID, guildID string, seconds int) error {
	if seconds < 0 {
		return models.ErrInvalidAmount
	}
	return s.updateSettings(ctx, adminID, guildID, models.GuildSettings{DefaultDuration: &seconds})
}

// SetMaxDuration changes the longest display the guild accepts.
func (s *Service) SetMaxDuration(ctx context.Context, adminID, guildID string, seconds int) error {
	if seconds <= 0 {
		return models.ErrInvalidAmount
	}
	return s.updateSettings(ctx, adminID, guildID, models.GuildSettings{MaxDuration: &seconds})
}

// SetDisplayFull changes whether media fill the display.
func (s *Service) SetDisplayFull(ctx context.Context, adminID, guildID string, full bool) error {
	return s.updateSettings(ctx, adminID, guildID, models.GuildSettings{DisplayFull: &full})
}

func (s *Service) updateSettings(ctx context.Context, adminID, guildID string, settings models.GuildSettings) error {
	ok, err := s.auth.IsAdministrator(ctx, guildID, adminID)
	if err != nil {
		return fmt.Errorf("failed to check administrator: %w", err)
	}
	if !ok {
		return models.ErrPermissionDenied
	}
	if err := s.store.UpdateGuildSettings(ctx, guildID, settings); err != nil {
		return err
	}
	s.log.Info().Str("guild", guildID).Str("by", adminID).Msg("guild settings updated")
	return nil
}

// messageContent resolves what is missing about the submitted media.
// When useMediaDuration is false the guild default applies whatever the media length.
func (s *Service) messageContent(ctx context.Context, req SendRequest, useMediaDuration bool) (models.MessageContent, int, error) {
	content := models.MessageContent{URL: req.URL, Text: req.Text}

	var mediaDuration *float64
	if att := req.Attachment; att != nil && att.URL != "" {
		content.Media = att.URL
		content.ContentType = att.ContentType
		mediaDuration = att.Duration
	}

	target := content.Media
	if target == "" {
		target = content.URL
	}
	if target != "" && (content.ContentType == "" || mediaDuration == nil) && s.resolver != nil {
		info := s.resolver.Resolve(ctx, target)
		if info.DirectURL != "" {
			content.URL = info.DirectURL
		}
		if content.ContentType == "" {
			content.ContentType = info.ContentType
		}
		if mediaDuration == nil {
			mediaDuration = info.Duration
		}
	}

	if content.Media != "" && strings.HasPrefix(content.ContentType, "video/") && s.normalizer != nil {
		content.Media = s.normalizer.Normalize(ctx, content.Media)
	}

	var requested *int
	if useMediaDuration {
		requested = ceilSeconds(mediaDuration)
	}
	duration, err := s.ClampDuration(ctx, req.GuildID, requested)
	if err != nil {
		return models.MessageContent{}, 0, err
	}
	full, err := s.DisplayMediaFull(ctx, req.GuildID)
	if err != nil {
		return models.MessageContent{}, 0, err
	}
	content.Duration = &duration
	content.DisplayFull = full
	return content, duration, nil
}

func (s *Service) vocalContent(ctx context.Context, req TalkRequest) (models.VocalContent, int, error) {
	if req.VoiceURL == "" {
		return models.VocalContent{}, 0, fmt.Errorf("voice clip url is empty")
	}
	var clip *int
	if s.resolver != nil {
		clip = ceilSeconds(s.resolver.Resolve(ctx, req.VoiceURL).Duration)
	}
	duration, err := s.ClampDuration(ctx, req.GuildID, clip)
	if err != nil {
		return models.VocalContent{}, 0, err
	}
	content := models.VocalContent{
		Text:        req.Text,
		Media:       req.VoiceURL,
		ContentType: "audio/mpeg",
		Duration:    duration,
	}
	if clip != nil {
		content.Duration = *clip
	}
	return content, duration, nil
}

func ceilSeconds(d *float64) *int {
	if d == nil || *d <= 0 {
		return nil
	}
	v := int(math.Ceil(*d))
	return &v
}
