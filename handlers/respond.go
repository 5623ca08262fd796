package handlers

import (
	"errors"
	"fmt"

	"livechat-bot/models"

	"github.com/bwmarrin/discordgo"
)

const (
	colorSuccess = 0x2ecc71
	colorError   = 0xe74c3c
	colorPending = 0xf39c12
	colorInfo    = 0x3498db
)

var errEmptyMessage = errors.New("nothing to display")

// reply answers one interaction, either directly or by editing a deferred response.
type reply struct {
	s        Session
	i        *discordgo.Interaction
	deferred bool
}

// deferReply acknowledges the interaction; the answer follows through edits.
func (r *reply) deferReply(ephemeral bool) error {
	data := &discordgo.InteractionResponseData{}
	if ephemeral {
		data.Flags = discordgo.MessageFlagsEphemeral
	}
	if err := r.s.InteractionRespond(r.i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: data,
	}); err != nil {
		return err
	}
	r.deferred = true
	return nil
}

// embed sends e. ephemeral only matters when the interaction was not deferred.
func (r *reply) embed(e *discordgo.MessageEmbed, ephemeral bool) error {
	if r.deferred {
		_, err := r.s.InteractionResponseEdit(r.i, &discordgo.WebhookEdit{
			Embeds: &[]*discordgo.MessageEmbed{e},
		})
		return err
	}
	data := &discordgo.InteractionResponseData{Embeds: []*discordgo.MessageEmbed{e}}
	if ephemeral {
		data.Flags = discordgo.MessageFlagsEphemeral
	}
	return r.s.InteractionRespond(r.i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: data,
	})
}

// embedWithFile edits the deferred response to carry e and file, returning the
// message so the uploaded attachment can be read back.
func (r *reply) embedWithFile(e *discordgo.MessageEmbed, file *discordgo.File) (*discordgo.Message, error) {
	return r.s.InteractionResponseEdit(r.i, &discordgo.WebhookEdit{
		Embeds: &[]*discordgo.MessageEmbed{e},
		Files:  []*discordgo.File{file},
	})
}

func (r *reply) text(content string, ephemeral bool) error {
	data := &discordgo.InteractionResponseData{Content: content}
	if ephemeral {
		data.Flags = discordgo.MessageFlagsEphemeral
	}
	return r.s.InteractionRespond(r.i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: data,
	})
}

func newEmbed(title, description string, color int) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{Title: title, Description: description, Color: color}
}

func successEmbed(title, description string) *discordgo.MessageEmbed {
	return newEmbed(title, description, colorSuccess)
}

func errorEmbed(title, description string) *discordgo.MessageEmbed {
	return newEmbed(title, description, colorError)
}

// describeError renders an operation failure. target names the user the command
// was about and restricted is the quota-managed user id. expected is false for
// failures that deserve a log line.
func describeError(err error, target, restricted string) (e *discordgo.MessageEmbed, expected bool) {
	switch {
	case errors.Is(err, models.ErrPermissionDenied):
		return errorEmbed("❌ Permission refusée", "Seuls les administrateurs peuvent utiliser cette commande."), true
	case errors.Is(err, models.ErrAlreadyBlocked):
		return errorEmbed("❌ Utilisateur déjà bloqué", fmt.Sprintf("%s est déjà bloqué.", target)), true
	case errors.Is(err, models.ErrNotBlocked):
		return errorEmbed("❌ Utilisateur non bloqué", fmt.Sprintf("%s n'est pas bloqué.", target)), true
	case errors.Is(err, models.ErrAlreadyBlacklisted):
		return errorEmbed("❌ Utilisateur déjà blacklisté", fmt.Sprintf("%s est déjà dans la blacklist.", target)), true
	case errors.Is(err, models.ErrDuplicateVote):
		return errorEmbed("❌ Vote déjà effectué", fmt.Sprintf("Vous avez déjà voté pour blacklister %s.", target)), true
	case errors.Is(err, models.ErrNotBlacklisted):
		return errorEmbed("❌ Utilisateur non blacklisté", fmt.Sprintf("%s n'est pas dans la blacklist.", target)), true
	case errors.Is(err, models.ErrInvalidAmount):
		return errorEmbed("❌ Montant invalide", "Le nombre doit être supérieur à 0"), true
	case errors.Is(err, models.ErrUnmanagedUser):
		return errorEmbed("❌ Utilisateur non géré", fmt.Sprintf("Cette commande ne s'applique qu'à <@%s>", restricted)), true
	case errors.Is(err, models.ErrQuotaExceeded):
		return errorEmbed("❌ Quota dépassé", "Tu as dépassé ton quota de message par jour, merci de revenir demain."), true
	case errors.Is(err, errEmptyMessage):
		return errorEmbed("❌ Message vide", "Ajoute un lien, un média ou un texte."), true
	default:
		return errorEmbed("❌ Erreur", "Une erreur est survenue lors du traitement de la commande."), false
	}
}

func mention(userID string) string {
	return "<@" + userID + ">"
}
